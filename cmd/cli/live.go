package main

import (
	"bufio"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dsjohal14/tourstack/internal/scope/search"
)

func newLiveCmd(a *app) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "live",
		Short: "Search as each stdin line arrives, printing only settled queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			w := cmd.OutOrStdout()
			if !cmd.Flags().Changed("debounce") {
				debounce = a.cfg.Debounce
			}

			done := make(chan struct{})
			defer close(done)
			results := make(chan search.LiveResult)
			live := search.NewLive(debounce, a.client.SearchFunc(a.parsedKind, 0), func(r search.LiveResult) {
				select {
				case results <- r:
				case <-done:
				}
			}, a.options()...)
			defer live.Close()

			lines := make(chan string)
			scanErr := make(chan error, 1)
			go func() {
				defer close(lines)
				scanner := bufio.NewScanner(cmd.InOrStdin())
				for scanner.Scan() {
					select {
					case lines <- scanner.Text():
					case <-done:
						return
					}
				}
				scanErr <- scanner.Err()
			}()

			var (
				last    string
				waiting bool // a result for last is still due
				input   = lines
			)
			for {
				select {
				case line, ok := <-input:
					if !ok {
						input = nil
						if err := <-scanErr; err != nil {
							return fmt.Errorf("failed to read input: %w", err)
						}
						if !waiting {
							return nil
						}
						continue
					}
					last, waiting = line, true
					live.Update(line)

				case r := <-results:
					_, _ = fmt.Fprintf(w, "%s %s\n", sectionStyle.Render("?"), r.Query)
					switch {
					case r.Err != nil:
						_, _ = fmt.Fprintln(w, errorStyle.Render(r.Err.Error()))
					default:
						if r.Outcome.UsedFallback() {
							printFallback(w, r.Query, r.Outcome.Fallback)
						}
						printRecords(w, r.Outcome.Results)
					}
					if r.Query == last {
						waiting = false
						if input == nil {
							return nil
						}
					}

				case <-ctx.Done():
					return ctx.Err()
				}
			}
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "delay before a query is searched (default from DEBOUNCE)")
	return cmd
}
