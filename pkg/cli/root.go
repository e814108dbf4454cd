package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	envFile string
	rootCmd *cobra.Command
)

func init() {
	rootCmd = &cobra.Command{
		Use:   "fiverflow",
		Short: "FiverFlow invoicing service",
		Long: `FiverFlow computes, stores and renders invoices and resolves signed
URLs for stored assets.

Without a subcommand the HTTP API is started.`,
		RunE:          runServe,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to a .env file (default .env)")
}

// Execute runs the root command
func Execute() error {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(calcCmd)
	rootCmd.AddCommand(signCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func envFiles() []string {
	if envFile == "" {
		return nil
	}
	return []string{envFile}
}
