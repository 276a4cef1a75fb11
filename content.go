package main

import (
	stderrors "errors"
	"io"
	"unicode/utf8"

	"github.com/pkg/errors"
)

const (
	nonTextPlaceholder     = "Non-text file, content not shown."
	undecodablePlaceholder = "Content could not be decoded."
)

// textContentTypes are the media types whose body is decoded and logged.
var textContentTypes = map[string]bool{
	"text/plain":       true,
	"application/json": true,
	"application/xml":  true,
	"text/csv":         true,
}

var errInvalidUTF8 = stderrors.New("content is not valid UTF-8")

// IsTextContentType reports whether contentType is exactly one of the
// allowlisted types. Variants with parameters or different casing are not.
func IsTextContentType(contentType string) bool {
	return textContentTypes[contentType]
}

// decodeText reads body fully and returns it as a string. A read failure is
// returned wrapped; invalid UTF-8 yields errInvalidUTF8.
func decodeText(body io.Reader) (string, error) {
	b, err := io.ReadAll(body)
	if err != nil {
		return "", errors.Wrap(err, "read object body")
	}
	if !utf8.Valid(b) {
		return "", errInvalidUTF8
	}
	return string(b), nil
}
