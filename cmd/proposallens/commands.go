package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"ProposalLens/internal/app"
	"ProposalLens/internal/config"
	"ProposalLens/internal/infrastructure/storage"
	"ProposalLens/internal/logging"
	"ProposalLens/internal/ports"
	"ProposalLens/internal/thumbnail"
	"ProposalLens/internal/view"
)

const appName = "proposallens"

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Governance proposal feed with cached AI summaries",
		Long: `proposallens fetches governance proposals from a Snapshot hub, caches the
list durably and enriches every proposal with a memoized AI summary.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")

	cmd.AddCommand(
		runCmd(&configPath),
		watchCmd(&configPath),
		cacheCmd(&configPath),
		thumbnailCmd(),
	)
	return cmd
}

// session bundles everything a command needs from configuration.
type session struct {
	cfg    config.Config
	logger *slog.Logger
	store  ports.Store
	app    *app.Application
}

func openSession(ctx context.Context, configPath string) (*session, error) {
	cfg := config.Load(configPath)
	logger := logging.NewWithWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	store, err := storage.Open(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	logger.Debug("cache opened", "driver", cfg.Cache.Driver)

	return &session{
		cfg:    cfg,
		logger: logger,
		store:  store,
		app:    app.New(cfg, logger, store),
	}, nil
}

func (s *session) close() {
	if err := s.store.Close(); err != nil {
		s.logger.Warn("close cache", "error", err)
	}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runCmd(configPath *string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Activate the pipeline once and print proposal cards",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			s, err := openSession(ctx, *configPath)
			if err != nil {
				return err
			}
			defer s.close()

			cards, err := s.app.RunOnce(ctx)
			if err != nil {
				s.logger.Error("run degraded", "error", err)
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(cards); encErr != nil {
					return encErr
				}
			} else {
				printCards(cmd.OutOrStdout(), cards)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print cards as JSON")
	return cmd
}

func printCards(w io.Writer, cards []view.Card) {
	if len(cards) == 0 {
		fmt.Fprintln(w, "no proposals")
		return
	}
	for _, c := range cards {
		status := "open"
		if c.Closed {
			status = "closed"
		}
		fmt.Fprintf(w, "%s  [%s] by %s\n", c.Title, status, c.AuthorShort)
		fmt.Fprintf(w, "  choices: %s\n", strings.Join(c.Choices, ", "))
		if c.SummaryReady {
			fmt.Fprintf(w, "  summary: %s\n", c.Summary)
		}
		fmt.Fprintf(w, "  image:   %s\n", c.Thumbnail)
		fmt.Fprintf(w, "  vote:    %s\n\n", c.VoteURL)
	}
}

func watchCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-activate the pipeline on the configured cron schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			s, err := openSession(ctx, *configPath)
			if err != nil {
				return err
			}
			defer s.close()

			s.logger.Debug("effective configuration", "config", s.cfg.String())
			return s.app.Watch(ctx)
		},
	}
}

func cacheCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the durable cache",
	}

	var all bool
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Drop the cached proposal list (or everything with --all)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.app.PurgeCache(cmd.Context(), all); err != nil {
				return err
			}
			s.logger.Info("cache purged", "all", all)
			return nil
		},
	}
	purge.Flags().BoolVar(&all, "all", false, "Also drop memoized summaries")

	cmd.AddCommand(purge)
	return cmd
}

func thumbnailCmd() *cobra.Command {
	var gateway, placeholder string

	cmd := &cobra.Command{
		Use:   "thumbnail <file|->",
		Short: "Print the card image URL for a proposal body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				body []byte
				err  error
			)
			if args[0] == "-" {
				body, err = io.ReadAll(cmd.InOrStdin())
			} else {
				body, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read body: %w", err)
			}

			resolver := thumbnail.NewResolver(gateway, placeholder)
			fmt.Fprintln(cmd.OutOrStdout(), resolver.Resolve(string(body)))
			return nil
		},
	}
	cmd.Flags().StringVar(&gateway, "gateway", thumbnail.DefaultGateway, "IPFS gateway prefix")
	cmd.Flags().StringVar(&placeholder, "placeholder", thumbnail.DefaultPlaceholder, "Image used when the body has none")
	return cmd
}
