package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Veraticus/cofre/internal/cli"
	"github.com/Veraticus/cofre/internal/engine"
)

func suggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest <descriptor>...",
		Short: "Suggest categories for bank descriptors",
		Long: `Run descriptors through the categorization cascade: your learned rules,
your family's rules, the built-in descriptor dictionary, and finally the
fallback. With --history, rank by what you categorized the same
description as before instead.`,
		Example: `  cofre suggest --user alice --family fam-1 "PAG*NETFLIX.COM"
  cofre suggest --user alice --history "PADARIA REAL 0042"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSuggest,
	}

	cmd.Flags().Bool("history", false, "Rank by the user's categorization history")

	return cmd
}

func runSuggest(cmd *cobra.Command, args []string) error {
	useHistory, _ := cmd.Flags().GetBool("history")
	ctx := cmd.Context()

	actor, err := currentActor()
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var suggester engine.Suggester
	if useHistory {
		h := newHistorySuggester(store)
		defer h.Close()
		suggester = h
	} else {
		e := newEngine(store)
		defer e.Close()
		suggester = e
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, cli.HeaderStyle.Render("DESCRIPTOR\tCATEGORY\tSOURCE\tCONFIDENCE"))
	for _, raw := range args {
		s := suggester.Suggest(ctx, actor, raw)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			raw,
			cli.FormatCategory(s.CategoryID, s.SubcategoryID),
			s.Source,
			cli.FormatConfidence(s.Confidence))
	}
	return w.Flush()
}
