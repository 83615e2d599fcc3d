package recognize

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

// fakeRecognizer returns canned pages, optionally failing specific indexes.
type fakeRecognizer struct {
	failPages map[int]bool
	delay     time.Duration
	failAll   bool
	calls     atomic.Int32
}

func (f *fakeRecognizer) Recognize(ctx context.Context, _ image.Image, pageIndex int) (model.RecognizedPage, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return model.RecognizedPage{}, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.failAll || f.failPages[pageIndex] {
		return model.RecognizedPage{}, errors.New("unreadable page")
	}
	return model.RecognizedPage{
		Text:       fmt.Sprintf("page %d", pageIndex),
		PageIndex:  pageIndex,
		Confidence: float64(80 + pageIndex),
	}, nil
}

func makePages(n int) []model.PageImage {
	pages := make([]model.PageImage, n)
	for i := range pages {
		pages[i] = model.PageImage{
			Image:     image.NewNRGBA(image.Rect(0, 0, 2, 2)),
			PageIndex: i,
		}
	}
	return pages
}

func TestPool_RecognizeAll_OrderRestored(t *testing.T) {
	pool := NewPool(&fakeRecognizer{}, nil, PoolConfig{Workers: 4}, nil)

	pages, confidence := pool.RecognizeAll(context.Background(), makePages(5))

	require.Len(t, pages, 5)
	for i, page := range pages {
		assert.Equal(t, i, page.PageIndex)
	}
	assert.InDelta(t, 82.0, confidence, 0.001)
}

func TestPool_RecognizeAll_FailedPageDropped(t *testing.T) {
	rec := &fakeRecognizer{failPages: map[int]bool{1: true}}
	pool := NewPool(rec, nil, PoolConfig{}, nil)

	pages, confidence := pool.RecognizeAll(context.Background(), makePages(3))

	require.Len(t, pages, 2)
	assert.Equal(t, 0, pages[0].PageIndex)
	assert.Equal(t, 2, pages[1].PageIndex)
	assert.Greater(t, confidence, 0.0)
}

func TestPool_RecognizeAll_AllWorkersFail(t *testing.T) {
	pool := NewPool(&fakeRecognizer{failAll: true}, nil, PoolConfig{}, nil)

	pages, confidence := pool.RecognizeAll(context.Background(), makePages(4))

	assert.Empty(t, pages)
	assert.Equal(t, 0.0, confidence)
}

func TestPool_RecognizeAll_EmptyInput(t *testing.T) {
	pool := NewPool(&fakeRecognizer{}, nil, PoolConfig{}, nil)

	pages, confidence := pool.RecognizeAll(context.Background(), nil)

	assert.Empty(t, pages)
	assert.Equal(t, 0.0, confidence)
}

func TestPool_RecognizeAll_TimeoutFallsBackToEmpty(t *testing.T) {
	rec := &fakeRecognizer{delay: 200 * time.Millisecond}
	pool := NewPool(rec, nil, PoolConfig{Workers: 2, Timeout: 20 * time.Millisecond}, nil)

	pages, confidence := pool.RecognizeAll(context.Background(), makePages(3))

	assert.Empty(t, pages)
	assert.Equal(t, 0.0, confidence)
}

func TestJoinPages(t *testing.T) {
	pages := []model.RecognizedPage{
		{Text: "first page", PageIndex: 0},
		{Text: "second page", PageIndex: 1},
	}

	assert.Equal(t, "first page\nsecond page", JoinPages(pages))
	assert.Equal(t, "", JoinPages(nil))
}

func TestStubRecognizer(t *testing.T) {
	stub := NewStubRecognizer()

	page, err := stub.Recognize(context.Background(), nil, 3)

	require.NoError(t, err)
	assert.Equal(t, 3, page.PageIndex)
	assert.Empty(t, page.Text)
	assert.Equal(t, 0.0, page.Confidence)
}
