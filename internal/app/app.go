package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Queyrouzec/vocappulary-server/internal/adapter/postgres"
	collectionrepo "github.com/Queyrouzec/vocappulary-server/internal/adapter/postgres/collection"
	languagerepo "github.com/Queyrouzec/vocappulary-server/internal/adapter/postgres/language"
	translationrepo "github.com/Queyrouzec/vocappulary-server/internal/adapter/postgres/translation"
	userrepo "github.com/Queyrouzec/vocappulary-server/internal/adapter/postgres/user"
	wordrepo "github.com/Queyrouzec/vocappulary-server/internal/adapter/postgres/word"
	"github.com/Queyrouzec/vocappulary-server/internal/adapter/provider/gcp"
	"github.com/Queyrouzec/vocappulary-server/internal/config"
	"github.com/Queyrouzec/vocappulary-server/internal/service/audio"
	"github.com/Queyrouzec/vocappulary-server/internal/service/collection"
	"github.com/Queyrouzec/vocappulary-server/internal/service/intake"
	"github.com/Queyrouzec/vocappulary-server/internal/service/language"
	"github.com/Queyrouzec/vocappulary-server/internal/service/pronunciation"
	"github.com/Queyrouzec/vocappulary-server/internal/service/recognition"
	"github.com/Queyrouzec/vocappulary-server/internal/service/resolver"
)

// App holds the wired services and the resources behind them.
type App struct {
	Logger *slog.Logger
	Pool   *pgxpool.Pool

	Languages     *language.Catalog
	Resolver      *resolver.Service
	Audio         *audio.Service
	Intake        *intake.Service
	Collections   *collection.Service
	Recognition   *recognition.Service
	Pronunciation *pronunciation.Service

	closers []func() error
}

// New connects to the database and Google Cloud and wires every service.
// On error, whatever was opened so far is closed again.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	a := &App{Logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a.Pool = pool
	a.closers = append(a.closers, func() error { pool.Close(); return nil })

	gopts := gcp.ClientOptions(cfg.Google)

	translator, err := gcp.DialTranslator(ctx, cfg.Google.TranslateAPIKey, logger, gopts...)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, translator.Close)

	synth, err := gcp.DialSynthesizer(ctx, logger, gopts...)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, synth.Close)

	uploader, err := gcp.DialUploader(ctx, cfg.Storage.Bucket, cfg.Storage.PublicBaseURL, logger, gopts...)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, uploader.Close)

	labeler, err := gcp.DialLabeler(ctx, logger, gopts...)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, labeler.Close)

	recognizer, err := gcp.DialRecognizer(ctx, cfg.Speech.SampleRateHertz, logger, gopts...)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, recognizer.Close)

	// Repositories.
	txm := postgres.NewTxManager(pool)
	languages := languagerepo.New(pool)
	users := userrepo.New(pool)
	words := wordrepo.New(pool)
	translations := translationrepo.New(pool)
	collections := collectionrepo.New(pool)

	// Services.
	mc := cfg.Materialize
	a.Languages = language.NewCatalog(logger, languages, mc.PivotLanguage)
	if err := a.Languages.Load(ctx); err != nil {
		return nil, err
	}
	a.Resolver = resolver.NewService(logger, translations, a.Languages, translator, mc.TranslateTimeout)
	a.Audio = audio.NewService(logger, translations, synth, uploader, audio.Config{
		SynthesizeTimeout: mc.SynthesizeTimeout,
		UploadTimeout:     mc.UploadTimeout,
		StagingDir:        mc.StagingDir,
		KeyPrefix:         mc.AudioKeyPrefix,
	})
	a.Intake = intake.NewService(logger, words, translations, a.Languages, txm)
	a.Collections = collection.NewService(logger, collections, users, a.Languages, a.Resolver, a.Audio, txm, mc.BulkConcurrency)
	a.Recognition = recognition.NewService(logger, labeler, a.Intake, users, translations, a.Languages, a.Resolver, recognition.Config{
		MaxLabels:     cfg.Vision.MaxLabels,
		IgnoredLabels: cfg.Vision.IgnoredLabels(),
		Timeout:       mc.RecognizeTimeout,
		Concurrency:   mc.BulkConcurrency,
	})
	a.Pronunciation = pronunciation.NewService(logger, users, a.Languages, a.Resolver, recognizer, mc.SpeechTimeout)

	logger.InfoContext(ctx, "application wired",
		slog.String("version", BuildVersion()),
		slog.String("pivot_language", mc.PivotLanguage),
		slog.String("bucket", cfg.Storage.Bucket),
	)
	return a, nil
}

// Close releases every resource in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close app: %w", err)
	}
	return nil
}
