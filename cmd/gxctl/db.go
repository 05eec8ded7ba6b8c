package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gxshared/internal/store/mongodb"
)

var pingDBCmd = &cobra.Command{
	Use:     "ping-db",
	Short:   "Connect to MongoDB and ping it",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := mongodb.New(mongodb.Options{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDB,
			Prod:     cfg.IsProd(),
			Logger:   logger,
			Debug:    debug,
		})
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 20*time.Second)
		defer cancel()
		defer func() { _ = conn.Close(context.Background()) }()

		start := time.Now()
		if _, err := conn.Connect(ctx); err != nil {
			return fmt.Errorf("connecting to %s: %w", mongodb.RedactURI(cfg.MongoURI), err)
		}
		if err := conn.Ping(ctx); err != nil {
			return fmt.Errorf("pinging: %w", err)
		}
		elapsed := time.Since(start).Round(time.Millisecond)
		return printResult(cmd.OutOrStdout(),
			map[string]string{"status": "ok", "database": conn.DatabaseName(), "elapsed": elapsed.String()},
			fmt.Sprintf("MongoDB ok (database %s, %s)", conn.DatabaseName(), elapsed))
	},
}
