package themeio

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidFormat = errors.New("invalid theme file format")
	ErrTooLarge      = errors.New("theme file too large")
)

// ParseError means the import payload was not well-formed JSON.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse theme file: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// FormatError means the payload was JSON but not a theme export.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidFormat.Error(), e.Reason)
}

func (e *FormatError) Unwrap() error {
	return ErrInvalidFormat
}
