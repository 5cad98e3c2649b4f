package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dsjohal14/tourstack/internal/scope/search"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		server bool
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Search content, shortening the query until something matches",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			w := cmd.OutOrStdout()

			if server {
				resp, err := a.client.Search(cmd.Context(), query, a.parsedKind, limit)
				if err != nil {
					return err
				}
				if resp.Fallback != nil {
					printFallback(w, resp.Query, *resp.Fallback)
				}
				printRecords(w, resp.Results)
				if len(resp.Suggestions) > 0 {
					printSection(w, "Similar titles")
					printRecords(w, resp.Suggestions)
				}
				return nil
			}

			out, err := search.SearchWithFallback(cmd.Context(), query, a.client.SearchFunc(a.parsedKind, 0), a.options()...)
			if err != nil {
				return err
			}
			if out.UsedFallback() {
				printFallback(w, strings.TrimSpace(query), out.Fallback)
			}
			results := out.Results
			if limit > 0 && len(results) > limit {
				results = results[:limit]
			}
			printRecords(w, results)
			return nil
		},
	}
	cmd.Flags().BoolVar(&server, "server", false, "run the search on the server")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of results")
	return cmd
}

func newSuggestCmd(a *app) *cobra.Command {
	var (
		prefix bool
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "suggest <query...>",
		Short: "List titles similar to a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			w := cmd.OutOrStdout()
			if limit <= 0 {
				limit = a.cfg.SuggestMax
			}

			if prefix {
				suggestions, err := a.client.Suggest(cmd.Context(), query, a.parsedKind, limit)
				if err != nil {
					return err
				}
				if len(suggestions) == 0 {
					_, err = fmt.Fprintln(w, mutedStyle.Render("no completions"))
					return err
				}
				for _, s := range suggestions {
					_, _ = fmt.Fprintf(w, "%s  %s\n", titleStyle.Render(s.Title), mutedStyle.Render(s.Ref))
				}
				return nil
			}

			// titles already found by a direct search are not suggested again
			found, err := search.SearchWithFallback(cmd.Context(), query, a.client.SearchFunc(a.parsedKind, 0), a.options()...)
			if err != nil {
				return err
			}
			items, err := a.records(cmd.Context())
			if err != nil {
				return err
			}
			printRecords(w, search.FindSimilarTitles(query, items, found.Results, nil, limit, a.options()...))
			return nil
		},
	}
	cmd.Flags().BoolVar(&prefix, "prefix", false, "complete a title prefix on the server")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of suggestions (default from SUGGEST_MAX)")
	return cmd
}
