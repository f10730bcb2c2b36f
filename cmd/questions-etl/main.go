package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/assembly-questions-etl/internal/app"
	"github.com/lueurxax/assembly-questions-etl/internal/ingest/assembly"
	"github.com/lueurxax/assembly-questions-etl/internal/platform/config"
	db "github.com/lueurxax/assembly-questions-etl/internal/storage"
)

const usage = "Usage: %s -mode=[questions|representatives|all|responses|respond|maintenance|schedule]"

type flags struct {
	mode         string
	from         string
	to           string
	full         bool
	question     int64
	responseFile string
	responseDate string
	ministry     int64
}

func main() {
	var f flags

	flag.StringVar(&f.mode, "mode", "", "Run mode (questions, representatives, all, responses, respond, maintenance, schedule)")
	flag.StringVar(&f.from, "from", "", "Earliest deposit date, YYYY-MM-DD")
	flag.StringVar(&f.to, "to", "", "Latest deposit date, YYYY-MM-DD")
	flag.BoolVar(&f.full, "full", false, "Reload questions already stored")
	flag.Int64Var(&f.question, "question", 0, "Question number (respond mode)")
	flag.StringVar(&f.responseFile, "response-file", "", "File holding the response text (respond mode)")
	flag.StringVar(&f.responseDate, "response-date", "", "Response date, YYYY-MM-DD (respond mode)")
	flag.Int64Var(&f.ministry, "ministry", 0, "Responding ministry id (respond mode)")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.NewWithOptions(ctx, cfg.Database.DSN(), db.PoolOptionsFromConfig(cfg.Database), &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	application, err := app.New(cfg, database, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize application")
	}

	err = runMode(ctx, application, f)

	if f.mode != "schedule" {
		application.PushMetrics(context.WithoutCancel(ctx))
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("application stopped")
			return
		}

		logger.Error().Err(err).Str("mode", f.mode).Msg("application error")
		database.Close()
		stop()
		os.Exit(1)
	}
}

func newLogger(appEnv, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(lvl).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func runMode(ctx context.Context, application *app.App, f flags) error {
	opts, err := questionOptions(f)
	if err != nil {
		return err
	}

	switch f.mode {
	case "questions":
		return application.RunQuestions(ctx, opts)
	case "representatives":
		return application.RunRepresentatives(ctx)
	case "all":
		return application.RunAll(ctx, opts)
	case "responses":
		return application.RunResponses(ctx, opts)
	case "respond":
		respond, err := respondOptions(f)
		if err != nil {
			return err
		}

		return application.RunRespond(ctx, respond)
	case "maintenance":
		return application.RunMaintenance(ctx)
	case "schedule":
		return application.RunSchedule(ctx)
	default:
		log.Fatalf(usage, os.Args[0])

		return nil
	}
}

func questionOptions(f flags) (app.QuestionOptions, error) {
	from, err := parseDate("from", f.from)
	if err != nil {
		return app.QuestionOptions{}, err
	}

	to, err := parseDate("to", f.to)
	if err != nil {
		return app.QuestionOptions{}, err
	}

	return app.QuestionOptions{From: from, To: to, Full: f.full}, nil
}

func respondOptions(f flags) (app.RespondOptions, error) {
	if f.question <= 0 || f.responseFile == "" {
		return app.RespondOptions{}, fmt.Errorf("respond mode needs -question and -response-file")
	}

	text, err := os.ReadFile(f.responseFile)
	if err != nil {
		return app.RespondOptions{}, fmt.Errorf("read response file: %w", err)
	}

	date, err := parseDate("response-date", f.responseDate)
	if err != nil {
		return app.RespondOptions{}, err
	}

	opts := app.RespondOptions{Number: f.question, Text: string(text), Date: date}

	if f.ministry > 0 {
		id := f.ministry
		opts.MinistryID = &id
	}

	return opts, nil
}

func parseDate(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}

	t, err := time.Parse(assembly.DateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("parse -%s: %w", name, err)
	}

	return &t, nil
}
