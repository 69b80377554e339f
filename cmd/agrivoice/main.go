// Agrivoice is a bilingual (Hindi/English) voice assistant for farmers. It
// answers crop price and farm advisory questions and speaks the answer.
//
// Usage:
//
//	agrivoice serve --config configs/agrivoice.yaml
//	agrivoice ask "pyaz ka bhav kya hai"
//	agrivoice speak --lang hi-IN "नमस्ते"
package main

// @title       agrivoice API
// @version     1.0
// @description Bilingual crop price and farm advisory assistant.
// @BasePath    /

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/nadzzz/agrivoice/docs"
	"github.com/nadzzz/agrivoice/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	configFile string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "agrivoice",
	Short:         "Bilingual crop price and farm advisory assistant",
	Long:          "Answers spoken or typed questions about commodity prices and crop advice in Hindi or English, and speaks the answer.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		c, err := config.Load(configFile)
		if err != nil {
			return err
		}
		cfg = c
		config.SetupLogging(cfg.Logging)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "agrivoice %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file (e.g. configs/agrivoice.yaml)")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("agrivoice failed", "error", err)
		os.Exit(1)
	}
}
