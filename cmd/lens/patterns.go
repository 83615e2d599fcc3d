package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func patternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Manage learned document patterns",
	}
	cmd.AddCommand(patternsListCmd())
	return cmd
}

func patternsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List learned document patterns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			patterns, err := store.GetAllPatterns(ctx)
			if err != nil {
				return fmt.Errorf("failed to load patterns: %w", err)
			}
			if len(patterns) == 0 {
				fmt.Println("No learned patterns yet.")
				return nil
			}

			sort.Slice(patterns, func(i, j int) bool {
				return patterns[i].UsageCount > patterns[j].UsageCount
			})

			fmt.Printf("%-18s %-12s %8s %9s  %s\n", "SIGNATURE", "BANK", "ACCURACY", "USED", "LAST USED")
			for _, p := range patterns {
				fmt.Printf("%-18s %-12s %8.2f %9d  %s\n",
					p.SignatureHash, p.BankID, p.Accuracy, p.UsageCount,
					p.LastUsedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}
