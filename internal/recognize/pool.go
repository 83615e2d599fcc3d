package recognize

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/service"
)

// DefaultWorkers is the default recognizer pool size.
const DefaultWorkers = 2

// Pool fans page images out to a bounded set of workers. Each worker
// preprocesses and recognizes one page end-to-end; a failed page is dropped,
// never aborting the document.
type Pool struct {
	recognizer service.Recognizer
	pre        service.Preprocessor
	logger     *slog.Logger
	retry      service.RetryOptions
	workers    int
	timeout    time.Duration
}

// PoolConfig holds pool construction options.
type PoolConfig struct {
	Workers int
	// Timeout bounds the whole document batch; zero means no timeout.
	Timeout time.Duration
	// Retry controls per-page recognition retries. Zero values mean one
	// retry with a short delay.
	Retry service.RetryOptions
}

// NewPool creates a recognizer pool. The preprocessor may be nil to skip
// enhancement.
func NewPool(recognizer service.Recognizer, pre service.Preprocessor, cfg PoolConfig, logger *slog.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = 2
	}
	if cfg.Retry.InitialDelay <= 0 {
		cfg.Retry.InitialDelay = 50 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		recognizer: recognizer,
		pre:        pre,
		workers:    cfg.Workers,
		timeout:    cfg.Timeout,
		retry:      cfg.Retry,
		logger:     logger,
	}
}

// RecognizeAll processes all pages and returns the surviving pages in page
// order plus the document confidence: the mean of non-zero page confidences,
// 0 if none.
func (p *Pool) RecognizeAll(ctx context.Context, images []model.PageImage) ([]model.RecognizedPage, float64) {
	if len(images) == 0 {
		return nil, 0
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	results := make([]*model.RecognizedPage, len(images))

	g := new(errgroup.Group)
	g.SetLimit(p.workers)
	for i, page := range images {
		g.Go(func() error {
			img := page.Image
			if p.pre != nil {
				img = p.pre.Enhance(img)
			}
			var recognized model.RecognizedPage
			err := common.WithRetry(ctx, func() error {
				rec, recErr := p.recognizer.Recognize(ctx, img, page.PageIndex)
				if recErr != nil {
					// Cancellation means the document batch timed out; do
					// not burn more attempts on it.
					return &common.RetryableError{
						Err:       recErr,
						Retryable: !errors.Is(recErr, context.Canceled) && !errors.Is(recErr, context.DeadlineExceeded),
					}
				}
				recognized = rec
				return nil
			}, p.retry)
			if err != nil {
				p.logger.Warn("page recognition failed",
					"page", page.PageIndex,
					"error", err)
				return nil
			}
			results[i] = &recognized
			return nil
		})
	}
	_ = g.Wait()

	pages := make([]model.RecognizedPage, 0, len(results))
	for _, r := range results {
		if r != nil {
			pages = append(pages, *r)
		}
	}
	sort.Slice(pages, func(i, j int) bool {
		return pages[i].PageIndex < pages[j].PageIndex
	})

	return pages, documentConfidence(pages)
}

// documentConfidence averages the non-zero page confidences.
func documentConfidence(pages []model.RecognizedPage) float64 {
	total := 0.0
	count := 0
	for _, page := range pages {
		if page.Confidence > 0 {
			total += page.Confidence
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

// JoinPages concatenates recognized pages into the document text, in page
// order, newline-joined and trimmed.
func JoinPages(pages []model.RecognizedPage) string {
	parts := make([]string, 0, len(pages))
	for _, page := range pages {
		parts = append(parts, page.Text)
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
