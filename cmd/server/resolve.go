package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"meeting-scheduler/internal/app"
	"meeting-scheduler/internal/config"
	"meeting-scheduler/internal/logging"
)

func newResolveCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Schedule one meeting request read from a JSON file or stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			log, err := logging.New(cfg.App.LogLevel, cfg.App.Env)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			var r io.Reader = cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			var req app.MeetingRequest
			if err := json.NewDecoder(r).Decode(&req); err != nil {
				return fmt.Errorf("decode request: %w", err)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			d, err := build(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer d.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			res, err := d.app.Orchestrator.Schedule(ctx, req)
			if err != nil {
				_ = enc.Encode(err)
				return err
			}
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "request file, - for stdin")
	return cmd
}
