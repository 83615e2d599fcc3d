// Package recognize provides the OCR capability and the bounded worker pool
// that turns page images into text with per-word confidence.
package recognize

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"
)

// TesseractRecognizer runs pages through a local Tesseract installation.
// A fresh client is created per call; gosseract clients are not safe for
// concurrent reuse.
type TesseractRecognizer struct {
	// Languages passed to Tesseract, e.g. "eng+ron".
	Languages []string
}

// NewTesseractRecognizer creates a recognizer for the given languages.
func NewTesseractRecognizer(languages ...string) *TesseractRecognizer {
	if len(languages) == 0 {
		languages = []string{"eng", "ron"}
	}
	return &TesseractRecognizer{Languages: languages}
}

// Recognize extracts text and word boxes from one page image.
func (r *TesseractRecognizer) Recognize(ctx context.Context, img image.Image, pageIndex int) (model.RecognizedPage, error) {
	if err := ctx.Err(); err != nil {
		return model.RecognizedPage{}, err
	}
	if img == nil {
		return model.RecognizedPage{}, fmt.Errorf("%w: nil image for page %d", common.ErrRecognition, pageIndex)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return model.RecognizedPage{}, fmt.Errorf("%w: encode page %d: %v", common.ErrRecognition, pageIndex, err)
	}

	client := gosseract.NewClient()
	defer func() { _ = client.Close() }()

	if err := client.SetLanguage(r.Languages...); err != nil {
		return model.RecognizedPage{}, fmt.Errorf("%w: set language: %v", common.ErrRecognition, err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return model.RecognizedPage{}, fmt.Errorf("%w: set image for page %d: %v", common.ErrRecognition, pageIndex, err)
	}

	text, err := client.Text()
	if err != nil {
		return model.RecognizedPage{}, fmt.Errorf("%w: page %d: %v", common.ErrRecognition, pageIndex, err)
	}

	page := model.RecognizedPage{
		Text:      strings.TrimSpace(text),
		PageIndex: pageIndex,
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err == nil {
		page.WordBoxes = make([]model.WordBox, 0, len(boxes))
		total := 0.0
		for _, box := range boxes {
			page.WordBoxes = append(page.WordBoxes, model.WordBox{
				Word:       box.Word,
				Box:        box.Box,
				Confidence: box.Confidence,
			})
			total += box.Confidence
		}
		if len(boxes) > 0 {
			page.Confidence = total / float64(len(boxes))
		}
	} else if page.Text != "" {
		// Word-level confidence is optional; fall back to a flat estimate.
		page.Confidence = 50
	}

	return page, nil
}
