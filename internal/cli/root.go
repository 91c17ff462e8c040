// Package cli implements the moodgraph command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ewilliams-labs/moodgraph/internal/app"
	"github.com/ewilliams-labs/moodgraph/internal/config"
	"github.com/ewilliams-labs/moodgraph/internal/core/domain"
)

const defaultConfigFile = "moodgraph.toml"

type rootOptions struct {
	cfgFile string
	jsonOut bool
	verbose bool

	cfg *config.Config
	log *logrus.Logger
}

// NewRootCommand builds the moodgraph command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "moodgraph",
		Short: "Generate mood playlists from a track similarity graph",
		Long: `Moodgraph builds a similarity graph over a Spotify track catalog and walks it
to produce ten-track playlists for a mood.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.initConfig(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", defaultConfigFile, "config file")
	cmd.PersistentFlags().BoolVarP(&opts.jsonOut, "json", "j", false, "output as JSON")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(
		newGenerateCommand(opts),
		newMoodsCommand(opts),
		newRebuildGraphCommand(opts),
		newRefreshCatalogCommand(opts),
		newServeCommand(opts),
	)
	return cmd
}

func (o *rootOptions) initConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	o.cfg = cfg
	o.log = cfg.Logging.NewLogger(cmd.ErrOrStderr())
	if o.verbose {
		o.log.SetLevel(logrus.DebugLevel)
	}
	return nil
}

// withApp wires the application for the duration of fn.
func (o *rootOptions) withApp(ctx context.Context, fn func(a *app.App) error) error {
	a, err := app.New(ctx, o.cfg, o.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			o.log.WithError(err).Warn("close failed")
		}
	}()
	return fn(a)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 when the catalog cannot satisfy the request and 1 otherwise.
func exitCode(err error) int {
	if errors.Is(err, domain.ErrNoEligibleTracks) || errors.Is(err, domain.ErrInsufficientCatalog) {
		return 2
	}
	return 1
}
