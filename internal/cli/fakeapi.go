package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/scmmishra/clickboard/internal/analytics"
	"github.com/scmmishra/clickboard/internal/db"
	"github.com/scmmishra/clickboard/internal/fakeapi"
	"github.com/scmmishra/clickboard/internal/geo"
)

func newFakeAPICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fakeapi",
		Short: "Serve a local stand-in for the link API",
		Long: `Serves the workspace links and clicks endpoints from a SQLite database.
Any other path is treated as a short link: the click is recorded and the
request is redirected. --seed-workspace fills the database with demo links
and generated traffic before serving.`,
		Args: cobra.NoArgs,
		RunE: runFakeAPI,
	}
	cmd.Flags().String("addr", ":8081", "Listen address")
	cmd.Flags().String("db", "fakeapi.db", "SQLite database path (:memory: for a throwaway store)")
	cmd.Flags().String("key", "", "API key clients must send (default $CLICKBOARD_API_KEY)")
	cmd.Flags().String("geoip", "", "MaxMind country database for redirect clicks")
	cmd.Flags().String("seed-workspace", "", "Create demo links in this workspace before serving")
	cmd.Flags().String("seed-domain", "s.co", "Short domain for demo links")
	cmd.Flags().Int("seed-days", 90, "Days of generated traffic")
	cmd.Flags().Int64("seed", 1, "Random seed for generated traffic")
	return cmd
}

func runFakeAPI(cmd *cobra.Command, args []string) error {
	logger := commandLogger(cmd, "fakeapi: ")

	key, _ := cmd.Flags().GetString("key")
	if key == "" {
		key = os.Getenv("CLICKBOARD_API_KEY")
	}
	if key == "" {
		return errors.New("--key or CLICKBOARD_API_KEY is required")
	}

	dbPath, _ := cmd.Flags().GetString("db")
	database, err := db.Open(dbPath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer database.Close()

	if err := seedIfRequested(cmd, database); err != nil {
		return err
	}

	geoPath, _ := cmd.Flags().GetString("geoip")
	geoReader, err := geo.Open(geoPath)
	if err != nil {
		logger.Printf("geo: %v (country from CF-IPCountry only)", err)
		geoReader, _ = geo.Open("")
	}
	defer geoReader.Close()

	collector := analytics.NewCollector(func(clicks []analytics.Click) error {
		return fakeapi.BatchInsertClicks(database, clicks)
	}, geoReader, 1000, 5*time.Second, logger)

	server := &fakeapi.Server{DB: database, APIKey: key, Collector: collector, Logger: logger}
	addr, _ := cmd.Flags().GetString("addr")
	srv := &http.Server{Addr: addr, Handler: server.Routes()}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fmt.Fprintf(cmd.ErrOrStderr(), "fake link API listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	collector.Shutdown()
	return err
}

func seedIfRequested(cmd *cobra.Command, database *sql.DB) error {
	workspace, _ := cmd.Flags().GetString("seed-workspace")
	if workspace == "" {
		return nil
	}
	domain, _ := cmd.Flags().GetString("seed-domain")
	days, _ := cmd.Flags().GetInt("seed-days")
	seed, _ := cmd.Flags().GetInt64("seed")

	start := time.Now()
	res, err := fakeapi.Seed(database, fakeapi.SeedOptions{
		Workspace: workspace,
		Domain:    domain,
		Days:      days,
		Seed:      seed,
	})
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "seeded %d links and %d clicks into %q in %s\n",
		res.Links, res.Clicks, workspace, time.Since(start).Round(time.Millisecond))
	return nil
}
