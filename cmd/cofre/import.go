package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Veraticus/cofre/internal/cli"
	"github.com/Veraticus/cofre/internal/engine"
	"github.com/Veraticus/cofre/internal/model"
	"github.com/Veraticus/cofre/internal/ofx"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import transactions from OFX/QFX files",
		Long: `Import bank and credit card statements exported as OFX or QFX. Each new
transaction is categorized on the way in when the suggestion is confident
enough (import.min_confidence); duplicates of already imported
transactions are skipped.

Examples:
  # Import single file
  cofre import --user alice --family fam-1 ~/Downloads/extrato_jan_2025.ofx

  # Import all OFX files in a directory
  cofre import --user alice --family fam-1 ~/Downloads/*.ofx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}

	cmd.Flags().BoolP("dry-run", "d", false, "Parse and summarize without saving")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	actor, err := currentActor()
	if err != nil {
		return err
	}

	files, err := expandFiles(args)
	if err != nil {
		return err
	}

	parser := ofx.NewParser()
	var all []model.Transaction
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			slog.Error("Failed to open file", "file", path, "error", err)
			continue
		}

		txns, err := parser.ParseFile(ctx, f)
		_ = f.Close()
		if err != nil {
			slog.Error("Failed to parse OFX file", "file", path, "error", err)
			continue
		}

		fmt.Fprintf(out, "  - %s: %d transactions\n", filepath.Base(path), len(txns))
		all = append(all, txns...)
	}

	if len(all) == 0 {
		fmt.Fprintln(out, cli.FormatWarning("No transactions found in any file"))
		return nil
	}

	if dryRun {
		fmt.Fprintln(out, cli.SubtleStyle.Render(fmt.Sprintf("Dry run: %d transactions parsed, nothing saved", len(all))))
		return nil
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	eng := newEngine(store)
	defer eng.Close()

	progress := cli.NewProgress(os.Stderr, len(all), "Importing transactions...")
	importer := engine.NewImporter(eng, store,
		engine.WithMinConfidence(cfg.Import.MinConfidence),
		engine.WithProgress(progress.Update))

	result, err := importer.Import(ctx, actor, all)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, cli.RenderBox("Import complete", fmt.Sprintf(
		"Files:        %d\nTransactions: %d\nCategorized:  %d\nInserted:     %d\nDuplicates:   %d",
		len(files), result.Total, result.Categorized, result.Inserted, result.Skipped)))
	return nil
}

func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err == nil {
				files = append(files, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
			continue
		}
		files = append(files, matches...)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no files found to import")
	}
	return files, nil
}
