package model

import "image"

// PageImage is one raw statement page awaiting recognition. Owned transiently
// by the recognizer pool and discarded after text extraction.
type PageImage struct {
	Image     image.Image
	PageIndex int
}

// WordBox is a recognized word with its bounding box and confidence.
type WordBox struct {
	Word       string
	Box        image.Rectangle
	Confidence float64
}

// RecognizedPage is the OCR output for a single page. Confidence is the
// recognizer's mean word confidence on a 0-100 scale.
type RecognizedPage struct {
	Text       string
	WordBoxes  []WordBox
	PageIndex  int
	Confidence float64
}
