// Package features embeds the Gherkin scenarios run by cmd/e2e.
package features

import "embed"

//go:embed *.feature
var FS embed.FS
