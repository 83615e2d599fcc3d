package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ledgerlens/ledgerlens/internal/classify"
	"github.com/ledgerlens/ledgerlens/internal/extract"
	"github.com/ledgerlens/ledgerlens/internal/learning"
	"github.com/ledgerlens/ledgerlens/internal/model"
)

func feedbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback <transaction-hash>",
		Short: "Correct or confirm an extracted transaction",
		Long: `Record a correction for a previously extracted transaction.
Corrections feed the trainable classifiers, and every tenth correction
triggers a retrain, so the engine gets better as you use it.`,
		Args: cobra.ExactArgs(1),
		RunE: runFeedback,
	}

	cmd.Flags().String("merchant", "", "Corrected merchant name")
	cmd.Flags().String("category", "", "Corrected category")
	cmd.Flags().Bool("correct", false, "Confirm the transaction was extracted correctly")
	cmd.Flags().String("pattern", "", "Signature hash of the pattern that detected the document")

	return cmd
}

func runFeedback(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	hash := args[0]

	merchant, _ := cmd.Flags().GetString("merchant")
	category, _ := cmd.Flags().GetString("category")
	patternHash, _ := cmd.Flags().GetString("pattern")
	confirmed, _ := cmd.Flags().GetBool("correct")

	if merchant == "" && category == "" && !confirmed {
		return fmt.Errorf("nothing to record: pass --merchant, --category, or --correct")
	}
	if category != "" && !classify.KnownCategory(category) {
		return fmt.Errorf("unknown category %q (valid: %s)",
			category, strings.Join(extract.Categories(), ", "))
	}

	var corrections model.Corrections
	if merchant != "" {
		corrections.Merchant = &merchant
	}
	if category != "" {
		corrections.Category = &category
	}
	if confirmed {
		corrections.IsCorrect = &confirmed
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	classifier, engine, _, err := buildComponents(ctx, store)
	if err != nil {
		return err
	}

	loop := learning.NewLoop(store, classifier, engine, nil)
	if err := loop.LearnFromFeedback(ctx, hash, patternHash, corrections); err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}

	// Persist the updated windows even between retrain cycles so nothing is
	// lost on exit.
	if state, err := classifier.Snapshot(); err == nil {
		if err := store.SaveModelState(ctx, learning.ModelStateKey, state); err != nil {
			slog.Warn("model state persist failed", "error", err)
		}
	}

	slog.Info("✅ Feedback recorded", "transaction", hash)
	return nil
}
