package main

import (
	"github.com/spf13/cobra"

	"github.com/Veraticus/cofre/internal/api"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Long: `Serve the categorization, feedback, rule and recurring-expense API over
HTTP. Callers are identified by the X-User-ID and X-Family-ID headers,
which an authenticating proxy in front of cofre is expected to set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Server.Address = addr
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			eng := newEngine(store)
			defer eng.Close()

			history := newHistorySuggester(store)
			defer history.Close()

			detector, err := newDetector(store)
			if err != nil {
				return err
			}

			server, err := api.NewServer(api.Deps{
				Suggester: eng,
				History:   history,
				Feedback:  newLearner(store, eng, history),
				Rules:     store,
				Recurring: detector,
			})
			if err != nil {
				return err
			}

			return server.Run(ctx, cfg.Server)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (overrides server.address)")

	return cmd
}
