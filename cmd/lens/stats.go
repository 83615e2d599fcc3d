package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show processing statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			stats, err := store.GetStats(ctx)
			if err != nil {
				return fmt.Errorf("failed to load statistics: %w", err)
			}

			transactions, err := store.CountTransactions(ctx)
			if err != nil {
				return err
			}
			patterns, err := store.CountPatterns(ctx)
			if err != nil {
				return err
			}
			feedback, err := store.CountFeedback(ctx)
			if err != nil {
				return err
			}

			fmt.Println("📊 ledgerlens statistics")
			fmt.Printf("  transactions:      %d\n", transactions)
			fmt.Printf("  learned patterns:  %d\n", patterns)
			fmt.Printf("  feedback records:  %d\n", feedback)

			names := make([]string, 0, len(stats))
			for name := range stats {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Printf("  %-18s %d\n", name+":", stats[name])
			}
			return nil
		},
	}
}
