package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"gxshared/internal/config"
	"gxshared/internal/debuglog"
)

var (
	jsonOutput bool

	cfg    config.Config
	logger *slog.Logger
	debug  *debuglog.Debugger
)

var rootCmd = &cobra.Command{
	Use:           "gxctl <command>",
	Short:         "Operator tools for the shared web services",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		logger = debuglog.NewLogger(cfg.LogLevel, cfg.IsProd())
		debug = debuglog.New(debuglog.Options{
			Logger: logger,
			Level:  debuglog.StaticLevel(cfg.DebugLevel),
			Prod:   cfg.IsProd(),
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "email", Title: "Email:"},
		&cobra.Group{ID: "images", Title: "Images:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	rootCmd.AddCommand(sendTestEmailCmd)
	rootCmd.AddCommand(renderEmailCmd)

	rootCmd.AddCommand(uploadImageCmd)
	rootCmd.AddCommand(deleteImageCmd)
	rootCmd.AddCommand(imageURLCmd)

	rootCmd.AddCommand(pingDBCmd)
	rootCmd.AddCommand(devLoginURLCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
