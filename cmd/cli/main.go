// Package main implements tourctl, the command line client for the tourstack API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dsjohal14/tourstack/internal/libs/config"
	"github.com/dsjohal14/tourstack/internal/libs/obs"
	"github.com/dsjohal14/tourstack/internal/relay"
	"github.com/dsjohal14/tourstack/internal/scope/content"
	"github.com/dsjohal14/tourstack/internal/scope/record"
	"github.com/dsjohal14/tourstack/internal/scope/search"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

// app holds state shared by every subcommand, filled in before any of them runs
type app struct {
	apiURL string
	kind   string

	cfg        *config.Config
	parsedKind content.Kind
	client     *relay.Client
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "tourctl",
		Short: "Search and load tourism portal content",
		Long: `tourctl talks to a running tourstack API.

Examples:
  tourctl search teberda lake      # search with query shortening
  tourctl search --server dombai   # let the server run the search
  tourctl suggest teberda          # titles similar to a query
  tourctl suggest --prefix teb     # complete a title prefix
  tourctl live < queries.txt       # debounced search over stdin lines
  tourctl import ./seed            # load seed files through /ingest`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "API base URL (default from API_URL)")
	root.PersistentFlags().StringVarP(&a.kind, "kind", "k", "", "restrict to one content kind")

	root.AddCommand(
		newHealthCmd(a),
		newSearchCmd(a),
		newSuggestCmd(a),
		newLiveCmd(a),
		newImportCmd(a),
	)
	return root
}

func (a *app) setup(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	a.cfg = cfg
	obs.InitLogger(cfg.LogLevel)

	if a.kind != "" {
		kind, err := content.ParseKind(a.kind)
		if err != nil {
			return err
		}
		a.parsedKind = kind
	}

	url := a.apiURL
	if url == "" {
		url = cfg.APIURL
	}
	a.client = relay.New(url, relay.WithLogger(obs.Logger("tourctl")))
	return nil
}

func (a *app) options() []search.Option {
	if a.cfg.SearchScorer == config.ScorerEdit {
		return []search.Option{search.WithScorer(search.EditDistance)}
	}
	return nil
}

// records fetches every entity of the selected kind, or of all kinds
func (a *app) records(ctx context.Context) ([]record.Value, error) {
	kinds := content.Kinds
	if a.parsedKind != "" {
		kinds = []content.Kind{a.parsedKind}
	}
	var out []record.Value
	for _, kind := range kinds {
		items, err := a.client.All(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", kind, err)
		}
		out = append(out, items...)
	}
	return out, nil
}

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the API is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := a.client.Health(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n",
				titleStyle.Render(resp.Status),
				mutedStyle.Render(fmt.Sprintf("(%d entities)", resp.EntityCount)))
			return err
		},
	}
}
