package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

var statusIcon = map[Status]string{
	StatusPassed:  "PASS",
	StatusFailed:  "FAIL",
	StatusSkipped: "SKIP",
	StatusPending: "PENDING",
}

// cell escapes text for a markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", " ")
}

// Markdown renders the run as a markdown document.
func (r *Recorder) Markdown() string {
	sum := r.Summary()
	var b strings.Builder
	b.WriteString("# End-to-end run\n\n")
	fmt.Fprintf(&b, "**%d scenarios**: %d passed, %d failed, %d skipped, %d pending in %s\n\n",
		sum.Total, sum.Passed, sum.Failed, sum.Skipped, sum.Pending, sum.Duration.Round(time.Millisecond))

	results := r.Results()
	if len(results) == 0 {
		b.WriteString("No scenarios ran.\n")
		return b.String()
	}

	b.WriteString("| Feature | Scenario | Status | Duration |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, res := range results {
		icon, ok := statusIcon[res.Status]
		if !ok {
			icon = strings.ToUpper(string(res.Status))
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			cell(res.Feature), cell(res.Name), icon, res.Duration.Round(time.Millisecond))
	}

	var failures []ScenarioResult
	for _, res := range results {
		if res.Status == StatusFailed {
			failures = append(failures, res)
		}
	}
	if len(failures) == 0 {
		return b.String()
	}
	b.WriteString("\n## Failures\n")
	for _, res := range failures {
		fmt.Fprintf(&b, "\n### %s: %s\n\n", cell(res.Feature), cell(res.Name))
		if res.FailedStep != "" {
			fmt.Fprintf(&b, "Step: `%s`\n\n", strings.ReplaceAll(res.FailedStep, "`", "'"))
		}
		if res.Error != "" {
			b.WriteString("```\n")
			b.WriteString(strings.ReplaceAll(res.Error, "```", "'''"))
			b.WriteString("\n```\n")
		}
		for _, shot := range res.Screenshots {
			fmt.Fprintf(&b, "\n- screenshot: `%s`\n", shot)
		}
	}
	return b.String()
}

// renderMarkdown converts markdown to sanitized HTML.
func renderMarkdown(md string) []byte {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(md))

	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	out := markdown.Render(doc, renderer)

	policy := bluemonday.UGCPolicy()
	policy.AllowElements("pre", "code", "table", "thead", "tbody", "tr", "th", "td")
	return policy.SanitizeBytes(out)
}

var pageTmpl = template.Must(template.New("report").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem auto; max-width: 960px; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ddd; padding: .4rem .6rem; text-align: left; }
pre { background: #f6f8fa; padding: .8rem; overflow-x: auto; }
</style>
</head>
<body class="{{if .OK}}passed{{else}}failed{{end}}">
{{.Body}}
</body>
</html>
`))

// HTML renders the markdown report as a standalone page.
func (r *Recorder) HTML() ([]byte, error) {
	var buf bytes.Buffer
	err := pageTmpl.Execute(&buf, struct {
		Title string
		OK    bool
		Body  template.HTML
	}{
		Title: "End-to-end run",
		OK:    r.Summary().OK(),
		Body:  template.HTML(renderMarkdown(r.Markdown())),
	})
	if err != nil {
		return nil, fmt.Errorf("report: render html: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteHTML writes the HTML report to path.
func (r *Recorder) WriteHTML(path string) error {
	data, err := r.HTML()
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

// WriteMarkdown writes the markdown report to path.
func (r *Recorder) WriteMarkdown(path string) error {
	return writeFile(path, []byte(r.Markdown()))
}
