package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/ledgerlens/ledgerlens/internal/classify"
	"github.com/ledgerlens/ledgerlens/internal/config"
	"github.com/ledgerlens/ledgerlens/internal/fusion"
	"github.com/ledgerlens/ledgerlens/internal/learning"
	"github.com/ledgerlens/ledgerlens/internal/pipeline"
	"github.com/ledgerlens/ledgerlens/internal/preprocess"
	"github.com/ledgerlens/ledgerlens/internal/recognize"
	"github.com/ledgerlens/ledgerlens/internal/service"
	"github.com/ledgerlens/ledgerlens/internal/signature"
	"github.com/ledgerlens/ledgerlens/internal/storage"
)

// initStorage opens the configured database and runs migrations.
func initStorage(ctx context.Context) (service.Store, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/lens/lens.db"
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// buildComponents assembles the classifier, signature engine, and fusion
// engine over an open store, restoring persisted model state.
func buildComponents(ctx context.Context, store service.Store) (*classify.Classifier, *signature.Engine, *fusion.Engine, error) {
	classifier := classify.NewClassifier(nil)
	if err := learning.RestoreState(ctx, store, classifier.Restore); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to restore classifier state: %w", err)
	}

	engine, err := signature.NewEngine(store, signature.DefaultTemplates(), nil)
	if err != nil {
		return nil, nil, nil, err
	}

	merchants, err := store.GetAllMerchants(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load merchant registry: %w", err)
	}
	fuser := fusion.NewEngine(fusion.NewMatcher(merchants), nil)

	return classifier, engine, fuser, nil
}

// buildPipeline wires the full document pipeline. OCR can be disabled in
// config; text-only documents never touch the recognizer.
func buildPipeline(ctx context.Context, store service.Store) (*pipeline.Pipeline, *classify.Classifier, *signature.Engine, error) {
	classifier, engine, fuser, err := buildComponents(ctx, store)
	if err != nil {
		return nil, nil, nil, err
	}

	var pool *recognize.Pool
	if viper.GetBool("ocr.enabled") || !viper.IsSet("ocr.enabled") {
		languages := viper.GetStringSlice("ocr.languages")
		recognizer := recognize.NewTesseractRecognizer(languages...)
		pool = recognize.NewPool(recognizer, preprocess.NewEnhancer(nil), recognize.PoolConfig{
			Workers: viper.GetInt("ocr.workers"),
			Timeout: viper.GetDuration("ocr.timeout"),
		}, nil)
	}

	p, err := pipeline.New(pipeline.Config{
		Pool:       pool,
		Signatures: engine,
		Classifier: classifier,
		Fuser:      fuser,
		Store:      store,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return p, classifier, engine, nil
}

func init() {
	viper.SetDefault("ocr.workers", recognize.DefaultWorkers)
	viper.SetDefault("ocr.timeout", 2*time.Minute)
	viper.SetDefault("ocr.languages", []string{"eng", "ron"})
}
