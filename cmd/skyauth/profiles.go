package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"skyauth/core"
	"skyauth/storage"
)

func newProfilesCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Inspect and maintain the identity store",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <providerUserId>",
		Short: "Print the profile id for a provider user id without assigning one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withResolver(cmd, opts, func(r *core.Resolver, _ *storage.Backend) error {
				id, err := r.Lookup(cmd.Context(), args[0])
				if errors.Is(err, core.ErrNotFound) {
					return fmt.Errorf("no profile for %s", args[0])
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "resolve <providerUserId>",
		Short: "Print the profile id for a provider user id, assigning one if needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withResolver(cmd, opts, func(r *core.Resolver, _ *storage.Backend) error {
				id, err := r.Resolve(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "import <mapping.json>",
		Short: "Copy an identity mapping file into the configured store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			mapping := core.NewIdentityMapping()
			if err := json.Unmarshal(data, mapping); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			return withResolver(cmd, opts, func(_ *core.Resolver, backend *storage.Backend) error {
				importer, ok := backend.Store.(storage.Importer)
				if !ok {
					return fmt.Errorf("store type does not support import")
				}
				if err := importer.Import(cmd.Context(), mapping); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d entries\n", len(mapping.Entries))
				return nil
			})
		},
	})

	return cmd
}

func withResolver(cmd *cobra.Command, opts *rootOptions, fn func(*core.Resolver, *storage.Backend) error) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	logger := initLogger(cmd.ErrOrStderr(), cfg.LogLevel)

	backend, err := storage.Open(cmd.Context(), cfg.Store, cfg.Bans, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	return fn(core.NewResolver(backend.Store, core.WithLogger(logger)), backend)
}
