package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmdconfig "github.com/mattsolo1/grove-shows/cmd/config"
	"github.com/mattsolo1/grove-shows/pkg/config"
	"github.com/mattsolo1/grove-shows/pkg/library"
	"github.com/mattsolo1/grove-shows/pkg/sync"
	"github.com/mattsolo1/grove-shows/pkg/tree"
	"github.com/mattsolo1/grove-shows/pkg/watcher"
)

func NewWatchCmd(settings **config.Settings) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the tree in sync with the library sources",
		Long: `Load the library, then watch its sources and the config file.
Every structural change to the tree is printed as it happens:

  + inserted node
  - removed node
  ~ changed node

Editing the placeholders section of the config file re-applies the
visibility policy without a restart.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *settings
			logger := newLogger(s, cmd.ErrOrStderr())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			provider, paths, closeSources, err := openProvider(s, false)
			if err != nil {
				return err
			}
			defer closeSources()

			lib := library.New(logger)
			syncer := sync.NewSyncer(lib, logger)
			if _, err := syncer.Sync(ctx, provider); err != nil {
				return fmt.Errorf("load library: %w", err)
			}

			engine := tree.NewEngine(lib,
				tree.WithPolicy(s.Placeholders),
				tree.WithLogger(logger),
				tree.WithStrict(s.Strict))
			defer engine.Dispose()

			out := cmd.OutOrStdout()
			expandAll(engine, engine.Root())
			fmt.Fprintf(out, "Watching %d shows (%d nodes)\n", len(lib.Shows()), engine.Len())
			cancel := engine.Observe(printChange(out))
			defer cancel()

			a := &watchActor{
				settings: s,
				provider: provider,
				syncer:   syncer,
				engine:   engine,
				logger:   logger,
				changed:  make(chan string, 1),
				errs:     make(chan error, 1),
				reloads:  make(chan struct{}, 1),
			}
			for _, path := range paths {
				w, err := watcher.New(path, watcher.WithDebounce(debounce), watcher.WithLogger(logger))
				if err != nil {
					return err
				}
				if err := w.Start(ctx); err != nil {
					return err
				}
				defer w.Stop()
				go a.forward(ctx, w)
			}

			if viper.ConfigFileUsed() != "" {
				viper.OnConfigChange(func(e fsnotify.Event) {
					select {
					case a.reloads <- struct{}{}:
					default:
					}
				})
				viper.WatchConfig()
			}

			return a.run(ctx)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", watcher.DefaultDebounce, "Wait this long for file changes to settle")

	return cmd
}

// watchActor owns the library and the engine. Every mutation happens on
// the goroutine running run; watchers and config reloads only post
// messages to it.
type watchActor struct {
	settings *config.Settings
	provider sync.Provider
	syncer   *sync.Syncer
	engine   *tree.Engine
	logger   *logrus.Entry

	changed chan string
	errs    chan error
	reloads chan struct{}
}

func (a *watchActor) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case path := <-a.changed:
			a.logger.WithField("path", path).Info("Source changed")
			report, err := a.syncer.Sync(ctx, a.provider)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				a.logger.WithError(err).Warn("Sync failed")
				continue
			}
			if report.Failed > 0 {
				a.logger.WithField("errors", report.Errors).Warn(report.String())
			}
			expandAll(a.engine, a.engine.Root())

		case err := <-a.errs:
			if errors.Is(err, watcher.ErrFileRemoved) {
				a.logger.Debug("Source removed, waiting for it to come back")
				continue
			}
			a.logger.WithError(err).Warn("Watch error")

		case <-a.reloads:
			next, err := cmdconfig.LoadSettings()
			if err != nil {
				a.logger.WithError(err).Warn("Ignoring invalid config")
				continue
			}
			if a.engine.Policy() != tree.PlaceholderPolicy(next.Placeholders) {
				a.logger.WithField("placeholders", fmt.Sprintf("%+v", next.Placeholders)).Info("Placeholder policy changed")
				a.engine.SetPolicy(next.Placeholders)
				expandAll(a.engine, a.engine.Root())
			}
			a.settings = next
		}
	}
}

// forward relays one watcher's notifications to the actor.
func (a *watchActor) forward(ctx context.Context, w *watcher.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.Changes():
			select {
			case a.changed <- w.Path():
			default:
			}
		case err := <-w.Errors():
			select {
			case a.errs <- err:
			default:
			}
		}
	}
}

// expandAll pulls the whole tree so every node is observed.
func expandAll(engine *tree.Engine, n *tree.Node) {
	for _, kid := range engine.Children(n) {
		expandAll(engine, kid)
	}
}

func printChange(out io.Writer) tree.Observer {
	return func(c tree.Change) {
		mark := "~"
		switch c.Kind {
		case tree.NodeInserted:
			mark = "+"
		case tree.NodeRemoved:
			mark = "-"
		}
		fmt.Fprintf(out, "%s %s %s\n", mark, c.Node.Level(), c.Node.ID())
	}
}
