package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pable/go-hud-stats/internal/cache"
	"github.com/pable/go-hud-stats/internal/events"
	"github.com/pable/go-hud-stats/internal/importer"
	"github.com/pable/go-hud-stats/internal/parser"
	"github.com/pable/go-hud-stats/internal/server"
)

var (
	serveAddr  string
	serveWatch []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve HUD statistics over HTTP for overlay clients",
	Long: `Start the HUD API:

  GET /healthz
  GET /api/stats
  GET /api/players/{name}/stats?stats=vpip,pfr&style=A&agg=stakes&pos=D&minSeats=2&maxSeats=6
  GET /api/players/{name}/trend/{stat}
  GET /api/players/{name}/sessions
  GET /api/hands/{site}/{handNo}
  GET /ws   (websocket: hand_imported and import_done events)

With --watch, the given files or directories are imported every
HUD_WATCH_INTERVAL and each new hand is pushed to websocket clients, and to
Kafka when HUD_KAFKA_BROKERS is set.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (env HUD_HTTP_ADDR)")
	serveCmd.Flags().StringSliceVar(&serveWatch, "watch", nil, "hand-history files or directories to import continuously")
}

func runServe(cmd *cobra.Command, _ []string) error {
	addr := appCfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	hub := events.NewHub()
	defer hub.Close()
	kafka, err := eventPublisher()
	if err != nil {
		return err
	}
	defer kafka.Close()
	pub := events.Multi{hub, kafka}

	srv := &http.Server{
		Addr:              addr,
		Handler:           server.NewRouter(newHUD(db), db, siteName, hub),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("http_listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if len(serveWatch) > 0 {
		imp := importer.New(db, cache.NewAggregator(db), parser.NewRegistry(), appCfg.Import, importer.WithPublisher(pub))
		w := importer.NewWatcher(imp, siteName, serveWatch, appCfg.Import.WatchInterval)
		g.Go(func() error {
			log.Info().Strs("paths", serveWatch).Dur("every", appCfg.Import.WatchInterval).Msg("watch_started")
			return w.Watch(gctx)
		})
	}
	return g.Wait()
}
