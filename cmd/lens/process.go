package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/pipeline"
)

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process <file>...",
		Short: "Extract transactions from statement documents",
		Long: `Process one or more bank statement documents and persist the
extracted transactions.

Text files (.txt) are processed directly; image files (.png, .jpg,
.jpeg, .tif, .tiff, .bmp) are grouped into one document and run through
OCR, one page per file in argument order.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runProcess,
	}

	cmd.Flags().Bool("summary-only", false, "Print only the document summary, not per-transaction lines")
	return cmd
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	summaryOnly, _ := cmd.Flags().GetBool("summary-only")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	p, _, _, err := buildPipeline(ctx, store)
	if err != nil {
		return err
	}

	textFiles, imageFiles := splitByKind(args)

	for _, path := range textFiles {
		data, err := os.ReadFile(path) // #nosec G304 -- user-supplied statement path
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		result := p.ProcessText(ctx, string(data))
		printResult(path, result, summaryOnly)
	}

	if len(imageFiles) > 0 {
		images, err := loadPages(imageFiles)
		if err != nil {
			return err
		}
		result := p.ProcessImages(ctx, images)
		printResult(strings.Join(imageFiles, ","), result, summaryOnly)
	}

	return nil
}

// splitByKind separates text documents from image pages by extension.
func splitByKind(paths []string) (textFiles, imageFiles []string) {
	for _, path := range paths {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp":
			imageFiles = append(imageFiles, path)
		default:
			textFiles = append(textFiles, path)
		}
	}
	return textFiles, imageFiles
}

// loadPages decodes image files into ordered document pages.
func loadPages(paths []string) ([]model.PageImage, error) {
	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Loading pages..."),
	)

	pages := make([]model.PageImage, 0, len(paths))
	for i, path := range paths {
		img, err := imaging.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		pages = append(pages, model.PageImage{PageIndex: i, Image: img})
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)
	return pages, nil
}

func printResult(source string, result *pipeline.Result, summaryOnly bool) {
	slog.Info("📄 Document processed",
		"source", source,
		"bank", result.Detection.Bank,
		"detection", result.Detection.Method,
		"transactions", len(result.Transactions),
		"saved", result.Metrics.TransactionsSaved,
		"confidence", fmt.Sprintf("%.2f", result.Confidence),
		"ml_enhanced", result.MLEnhanced,
		"duration", result.ProcessingTime.Round(time.Millisecond))

	if summaryOnly {
		return
	}
	for _, txn := range result.Transactions {
		fmt.Printf("%s  %10.2f  %-14s  %-30s  %s\n",
			txn.Date.Format("2006-01-02"),
			txn.Amount,
			txn.Category,
			txn.Merchant,
			txn.Hash[:12])
	}
}
