package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-shows/pkg/columns"
	"github.com/mattsolo1/grove-shows/pkg/config"
	"github.com/mattsolo1/grove-shows/pkg/library"
	"github.com/mattsolo1/grove-shows/pkg/sync"
	"github.com/mattsolo1/grove-shows/pkg/tree"
)

func NewTreeCmd(settings **config.Settings) *cobra.Command {
	var (
		filterText string
		sortColumn string
		descending bool
		depth      string
		fromStore  bool
		missing    bool
		specials   bool
		unaired    bool
	)

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the show tree",
		Long: `Print shows, seasons and episodes as a tree.

Examples:
  shows tree                       # All shows with their episodes
  shows tree --depth season        # Stop at seasons
  shows tree --filter wire         # Only branches matching "wire"
  shows tree --sort rating --desc  # Best rated first
  shows tree --missing --unaired   # Include placeholder episodes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *settings
			logger := newLogger(s, cmd.ErrOrStderr())

			maxLevel, err := parseDepth(depth)
			if err != nil {
				return err
			}

			provider, _, closeSources, err := openProvider(s, fromStore)
			if err != nil {
				return err
			}
			defer closeSources()

			lib := library.New(logger)
			if _, err := sync.NewSyncer(lib, logger).Sync(context.Background(), provider); err != nil {
				return fmt.Errorf("load library: %w", err)
			}

			policy := s.Placeholders
			policy.ShowMissing = policy.ShowMissing || missing
			policy.ShowSpecials = policy.ShowSpecials || specials
			policy.ShowUnaired = policy.ShowUnaired || unaired

			engine := tree.NewEngine(lib,
				tree.WithPolicy(policy),
				tree.WithLogger(logger),
				tree.WithStrict(s.Strict))
			defer engine.Dispose()

			sorter := tree.NewSortStrategy(columns.Default, columns.Title, logger)
			state := s.SortState()
			if cmd.Flags().Changed("sort") {
				col, err := columns.Lookup(sortColumn)
				if err != nil {
					return err
				}
				state.Column = col
			}
			if cmd.Flags().Changed("desc") {
				state.Direction = tree.Ascending
				if descending {
					state.Direction = tree.Descending
				}
			}
			sorter.SetState(state)

			filter := tree.NewTextFilter(engine, s.Filter)
			filter.SetText(filterText)

			p := &treePrinter{engine: engine, sorter: sorter, filter: filter, depth: maxLevel}
			return p.Print(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&filterText, "filter", "f", "", "Only show branches containing this text")
	cmd.Flags().StringVarP(&sortColumn, "sort", "s", "", fmt.Sprintf("Sort shows by column %v", columns.Names()))
	cmd.Flags().BoolVar(&descending, "desc", false, "Sort in descending order")
	cmd.Flags().StringVarP(&depth, "depth", "d", "episode", "Deepest level to print (show, season, episode)")
	cmd.Flags().BoolVar(&fromStore, "store", false, "Read the SQLite store instead of the configured sources")
	cmd.Flags().BoolVar(&missing, "missing", false, "Include missing episodes")
	cmd.Flags().BoolVar(&specials, "specials", false, "Include missing specials")
	cmd.Flags().BoolVar(&unaired, "unaired", false, "Include unaired episodes")

	return cmd
}
