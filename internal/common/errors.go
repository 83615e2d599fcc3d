// Package common provides shared utilities and types used across the application.
package common

import "errors"

// Common application errors.
var (
	// Database errors.
	ErrNotFound = errors.New("not found")

	// Recognition errors.
	ErrRecognition = errors.New("page recognition failed")

	// Classification errors.
	ErrModelUnavailable = errors.New("trainable model unavailable")
	ErrNotTrained       = errors.New("model not trained")
)
