package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/opencivic/alignator/config"
	"github.com/opencivic/alignator/internal/engine"
	"github.com/opencivic/alignator/internal/engine/lexicon"
	srv "github.com/opencivic/alignator/internal/server"
	"github.com/opencivic/alignator/internal/store"
	"github.com/opencivic/alignator/internal/telemetry"
	"github.com/opencivic/alignator/models"
)

func main() {
	var cfgPath string
	root := &cobra.Command{Use: "alignator", Short: "Legislative alignment scoring service"}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default searches ./config, .)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server and scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			return srv.Run(cfg)
		},
	}

	var migDir, direction string
	var steps int
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.Storage.Postgres.Validate(); err != nil {
				return err
			}
			return store.Migrate(migDir, cfg.Storage.Postgres.DSN(), direction, steps)
		},
	}
	migrateCmd.Flags().StringVar(&migDir, "dir", "file://migrations", "migrations source")
	migrateCmd.Flags().StringVar(&direction, "direction", "up", "up or down")
	migrateCmd.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")

	var windowStart, windowEnd string
	score := &cobra.Command{
		Use:   "score",
		Short: "Run one scoring pass over stored records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			window, err := parseWindow(windowStart, windowEnd)
			if err != nil {
				return err
			}
			lexicons, err := lexicon.LoadFile(cfg.Lexicons.Path)
			if err != nil {
				return err
			}
			eng, err := engine.New(srv.EngineParams(cfg.Engine), lexicons, telemetry.Logger("[ENGINE] "))
			if err != nil {
				return err
			}
			if err := cfg.Storage.Postgres.Validate(); err != nil {
				return err
			}
			ctx := context.Background()
			st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
			if err != nil {
				return err
			}
			defer st.Close()
			runner := &srv.Runner{
				Store:  st,
				Engine: eng,
				Refs:   srv.References(cfg.References),
				Logger: telemetry.Logger("[SCORE] "),
			}
			runID, n, err := runner.Execute(ctx, window)
			if err != nil {
				return err
			}
			fmt.Printf("run %s: %d scores persisted\n", runID, n)
			return nil
		},
	}
	score.Flags().StringVar(&windowStart, "window-start", "", "window start (RFC 3339 or YYYY-MM-DD)")
	score.Flags().StringVar(&windowEnd, "window-end", "", "window end (RFC 3339 or YYYY-MM-DD)")
	_ = score.MarkFlagRequired("window-start")
	_ = score.MarkFlagRequired("window-end")

	lexicons := &cobra.Command{Use: "lexicons", Short: "Lexicon utilities"}
	check := &cobra.Command{
		Use:   "check [files...]",
		Short: "Validate lexicon files without starting the service",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				store, err := lexicon.LoadFile(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				for _, axis := range store.Axes() {
					fmt.Printf("%s: axis %q with %d terms\n", path, axis, store.TermCount(axis))
				}
			}
			return nil
		},
	}
	lexicons.AddCommand(check)

	root.AddCommand(serve, migrateCmd, score, lexicons)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func parseWindow(start, end string) (models.Window, error) {
	s, err := parseTime(start)
	if err != nil {
		return models.Window{}, fmt.Errorf("window-start: %w", err)
	}
	e, err := parseTime(end)
	if err != nil {
		return models.Window{}, fmt.Errorf("window-end: %w", err)
	}
	w := models.Window{Start: s, End: e}
	if !w.Valid() {
		return w, fmt.Errorf("window-end must be after window-start")
	}
	return w, nil
}

func parseTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
