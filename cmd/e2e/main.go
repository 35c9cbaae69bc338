// Command e2e runs the authentication end-to-end scenarios in a real browser.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kuitang/authflow-e2e/internal/obs"
)

var (
	propertiesFile string
	exitCode       int
)

var rootCmd = &cobra.Command{
	Use:   "e2e",
	Short: "Browser end-to-end tests for the login and registration flows",
	Long: `e2e drives a web application's login, registration and navigation
flows through playwright and reports the outcome of every scenario.

Configuration is layered: built-in defaults, config.properties, E2E_*
environment variables, then command-line flags.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&propertiesFile, "properties", "", "Properties file (default ./config.properties when present)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	obs.Init()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}
