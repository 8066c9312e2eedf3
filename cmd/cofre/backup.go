package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/cofre/internal/cli"
	"github.com/Veraticus/cofre/internal/config"
)

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup [path]",
		Short: "Write a verified snapshot of the database",
		Long: `Write a consistent copy of the database while it stays online. Without a
path the snapshot goes next to the database as backups/cofre-<timestamp>.db.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if cfg.Database.Path == config.InMemoryDatabase {
				return fmt.Errorf("an in-memory database cannot be backed up")
			}

			dest := config.DefaultBackupPath(cfg.Database.Path, time.Now())
			if len(args) == 1 {
				abs, err := filepath.Abs(args[0])
				if err != nil {
					return fmt.Errorf("failed to resolve %s: %w", args[0], err)
				}
				dest = abs
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			info, err := store.Backup(ctx, dest)
			if err != nil {
				return err
			}

			tables := make([]string, 0, len(info.RowCounts))
			for table := range info.RowCounts {
				tables = append(tables, table)
			}
			sort.Strings(tables)

			fmt.Fprintf(out, "%s (%d bytes, schema v%d)\n",
				cli.FormatSuccess("Backed up to "+info.Path), info.FileSize, info.SchemaVersion)
			for _, table := range tables {
				fmt.Fprintf(out, "  %-24s %d\n", table, info.RowCounts[table])
			}
			return nil
		},
	}

	return cmd
}
