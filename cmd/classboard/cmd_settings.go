/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/friendsincode/classboard/internal/backup"
	"github.com/friendsincode/classboard/internal/cache"
	"github.com/friendsincode/classboard/internal/db"
	"github.com/friendsincode/classboard/internal/events"
	"github.com/friendsincode/classboard/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect and change dashboard settings",
	Long: `Inspect and change dashboard settings directly in the database.

Examples:
  # Create missing settings with their defaults
  classboard settings seed

  # Export all settings as YAML
  classboard settings export > settings.yaml

  # Import settings from a YAML export
  classboard settings import settings.yaml

  # Read or change a single setting (values are JSON)
  classboard settings get zoom_level
  classboard settings set zoom_level 125
  classboard settings set lesson_data '[{"type":"stunde","start":"08:00","end":"08:45"}]'
`,
}

var settingsSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create missing settings with their default values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettings(func(ctx context.Context, svc *settings.Service) error {
			n, err := svc.Seed(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d setting(s)\n", n)
			return nil
		})
	},
}

var settingsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write all settings as YAML to stdout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettings(func(ctx context.Context, svc *settings.Service) error {
			data, err := backup.NewService(svc, nil, "cli", logger).Export(ctx)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		})
	},
}

var settingsImportCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Import settings from a YAML export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		return withSettings(func(ctx context.Context, svc *settings.Service) error {
			n, err := backup.NewService(svc, nil, "cli", logger).Import(ctx, data, settings.Actor{IP: "cli"})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d setting(s)\n", n)
			return nil
		})
	},
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the value of a setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettings(func(ctx context.Context, svc *settings.Service) error {
			doc, err := svc.Get(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(doc.RawValue()))
			return nil
		})
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <json-value>",
	Short: "Change the value of a setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := cliValue(args[0], args[1])
		return withSettings(func(ctx context.Context, svc *settings.Service) error {
			doc, err := svc.Update(ctx, args[0], raw, settings.Actor{IP: "cli"})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s (rev %d)\n", doc.Key, doc.Value, doc.Rev)
			return nil
		})
	},
}

func init() {
	settingsCmd.AddCommand(settingsSeedCmd, settingsExportCmd, settingsImportCmd, settingsGetCmd, settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

// withSettings opens the database and runs fn with a settings service that
// caches in memory and publishes to a local bus.
func withSettings(fn func(ctx context.Context, svc *settings.Service) error) error {
	if err := loadToolConfig(); err != nil {
		return err
	}

	database, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	defer db.Close(database)

	if err := db.Migrate(database); err != nil {
		return err
	}

	svc := settings.NewService(settings.NewGormStore(database), cache.NewMemory(logger), events.NewBus(), logger)
	return fn(context.Background(), svc)
}

// cliValue turns a command line argument into a JSON value. Arguments that
// are not valid JSON, and any argument for a string or rrule setting that is
// not already quoted, are taken as strings.
func cliValue(key, arg string) json.RawMessage {
	raw := json.RawMessage(arg)
	quote := !json.Valid(raw)
	if def, ok := settings.Lookup(key); ok && (def.Type == settings.TypeString || def.Type == settings.TypeRecurrence) {
		quote = quote || !strings.HasPrefix(strings.TrimSpace(arg), `"`)
	}
	if quote {
		quoted, _ := json.Marshal(arg)
		return quoted
	}
	return raw
}

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name)
}
