package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kuitang/authflow-e2e/internal/browser"
	"github.com/kuitang/authflow-e2e/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration with secrets masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.LoadOptions{PropertiesFile: propertiesFile, Flags: cmd.Flags()})
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, e := range cfg.Entries() {
			fmt.Fprintf(w, "%s\t%s\n", e.Key, e.Value)
		}
		return w.Flush()
	},
}

var installBrowser string

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the playwright driver and a browser",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := browser.Install(installBrowser); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "installed %s\n", config.NormalizeBrowser(installBrowser))
		return nil
	},
}

func init() {
	config.RegisterFlags(configCmd.Flags())
	installCmd.Flags().StringVar(&installBrowser, "browser", config.BrowserChromium, "Browser engine: chromium (alias chrome), firefox or webkit")
}
