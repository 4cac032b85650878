package main

import (
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "skyauth",
		Short:         "skyauth authenticates game clients through Discord and admits them to the game server.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", getEnv("CONFIG_PATH", "skyauth.yaml"),
		"path to the YAML config file (missing file means defaults plus environment)")

	rootCmd.AddCommand(newServeCommand(opts))
	rootCmd.AddCommand(newLoginCommand(opts))
	rootCmd.AddCommand(newProfilesCommand(opts))
	return rootCmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Stderr.WriteString("skyauth: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
