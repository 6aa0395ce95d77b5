package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rmitchellscott/pdfgateway/internal/version"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "pdfgateway",
	Short:         "HTTP gateway in front of the RobotPDF API",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (default $GATEWAY_CONFIG)")
	rootCmd.AddCommand(serveCmd, versionCmd, tokenCmd)
}

func main() {
	// Load .env if present
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pdfgateway: %v\n", err)
		os.Exit(1)
	}
}
