package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-shows/pkg/config"
	"github.com/mattsolo1/grove-shows/pkg/library"
	"github.com/mattsolo1/grove-shows/pkg/models"
	"github.com/mattsolo1/grove-shows/pkg/store"
	"github.com/mattsolo1/grove-shows/pkg/sync"
)

func NewImportCmd(settings **config.Settings) *cobra.Command {
	var merge bool

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a library file into the store",
		Long: `Replace the contents of the SQLite store with a YAML library file.
Without an argument the configured library file is imported. With --merge
only the shows in the file are replaced and the rest of the store is kept.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *settings
			path := s.Library
			if len(args) == 1 {
				path = args[0]
			}

			shows, err := library.LoadFile(path)
			if err != nil {
				return err
			}

			st, err := store.Open(s.DataDir)
			if err != nil {
				return err
			}
			defer st.Close()

			verb := "Imported"
			if merge {
				verb = "Merged"
				for _, show := range shows {
					if err := st.SaveShow(show); err != nil {
						return err
					}
				}
			} else if err := st.Save(shows); err != nil {
				return err
			}
			stats, err := st.Stats()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s into %s: %d shows, %d seasons, %d episodes, %d placeholders\n",
				verb, path, st.Path(), stats.Shows, stats.Seasons, stats.Episodes, stats.Placeholders)
			return nil
		},
	}

	cmd.Flags().BoolVar(&merge, "merge", false, "Replace only the shows in the file")

	return cmd
}

func NewForgetCmd(settings **config.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <show-id>...",
		Short: "Remove shows from the store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open((*settings).DataDir)
			if err != nil {
				return err
			}
			defer st.Close()

			for _, id := range args {
				if err := st.DeleteShow(id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", id)
			}
			return nil
		},
	}
}

func NewExportCmd(settings **config.Settings) *cobra.Command {
	var (
		markdownDir string
		showID      string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the store as a library file",
		Long: `Write the contents of the SQLite store as a YAML library file to stdout,
or with --markdown as one Markdown show file per show. --show limits the
output to a single show.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open((*settings).DataDir)
			if err != nil {
				return err
			}
			defer st.Close()

			var shows []*models.Show
			if showID != "" {
				show, err := st.Get(showID)
				if err != nil {
					return err
				}
				shows = []*models.Show{show}
			} else if shows, err = st.Load(); err != nil {
				return err
			}
			if markdownDir != "" {
				if err := sync.WriteMarkdown(markdownDir, shows); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d show files to %s\n", len(shows), markdownDir)
				return nil
			}
			return library.Encode(cmd.OutOrStdout(), shows)
		},
	}

	cmd.Flags().StringVar(&markdownDir, "markdown", "", "Write Markdown show files into this directory")
	cmd.Flags().StringVar(&showID, "show", "", "Export only the show with this ID")

	return cmd
}
