package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "meeting-scheduler",
	Short: "Resolves meeting requests into scheduled time slots",
	Long: `meeting-scheduler turns a meeting request (attendees, a date window and
free-text intent) into a conflict-free slot on the business calendar.

It can run as:
  - An HTTP service (serve, the default)
  - A one-shot resolver for a JSON request file (resolve)`,
	SilenceUsage: true,
}

func SetVersion(v string) {
	rootCmd.Version = v
}

func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "meeting-scheduler version %s\n" .Version}}`)

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "optional config file (yaml, json or toml)")
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newResolveCmd())
}
