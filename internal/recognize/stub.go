package recognize

import (
	"context"
	"image"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

// StubRecognizer is the no-op stand-in selected when no OCR backend is
// available. It yields empty pages with zero confidence, which downstream
// stages treat as "no OCR text".
type StubRecognizer struct{}

// NewStubRecognizer creates the no-op recognizer.
func NewStubRecognizer() *StubRecognizer {
	return &StubRecognizer{}
}

// Recognize returns an empty page for any input.
func (r *StubRecognizer) Recognize(ctx context.Context, _ image.Image, pageIndex int) (model.RecognizedPage, error) {
	if err := ctx.Err(); err != nil {
		return model.RecognizedPage{}, err
	}
	return model.RecognizedPage{PageIndex: pageIndex}, nil
}
