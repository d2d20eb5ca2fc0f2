// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/goccy/go-json"
	"github.com/rivo/uniseg"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/tomtom215/statusphere/internal/models"
)

// Rejection reasons. Every error returned by ValidateStatus wraps exactly one.
var (
	ErrWrongType            = errors.New("record type is not " + models.StatusCollection)
	ErrMissingField         = errors.New("required field missing or empty")
	ErrInvalidGraphemeCount = errors.New("status must be exactly one grapheme cluster")
	ErrStatusTooLong        = errors.New("status exceeds the maximum length")
	ErrInvalidDatetime      = errors.New("createdAt is not an RFC 3339 datetime")
)

// Reason labels, stable for metrics and logs.
const (
	ReasonWrongType            = "wrong_type"
	ReasonMissingField         = "missing_field"
	ReasonInvalidGraphemeCount = "invalid_grapheme_count"
	ReasonStatusTooLong        = "status_too_long"
	ReasonInvalidDatetime      = "invalid_datetime"
	ReasonOther                = "other"
)

// MaxStatusBytes is the lexicon's maxLength for status, in UTF-8 bytes.
const MaxStatusBytes = 32

// CreatedAtLayout is the stored form of createdAt. Fixed width UTC keeps
// text order equal to time order.
const CreatedAtLayout = "2006-01-02T15:04:05.000Z"

const (
	zeroWidthJoiner = '\u200D'
	tagFirst        = '\U000E0020'
	tagLast         = '\U000E007F'
)

// Candidate is an undecoded record as it arrives from the stream or a
// listRecords page.
type Candidate struct {
	URI    string
	Author string
	Record json.RawMessage
}

// ValidateStatus decodes and checks one status record. It has no side
// effects. Rules apply in order:
//
//  1. $type must be xyz.statusphere.status (ErrWrongType)
//  2. status and createdAt must be non-empty strings after trimming (ErrMissingField)
//  3. createdAt must parse as RFC 3339 (ErrInvalidDatetime)
//  4. the trimmed status must fit in MaxStatusBytes (ErrStatusTooLong)
//  5. the canonical status must be exactly one grapheme cluster with
//     something visible in it (ErrInvalidGraphemeCount)
//
// The accepted record carries the canonical status and createdAt in
// CreatedAtLayout.
func ValidateStatus(c Candidate) (models.StatusRecord, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(c.Record, &fields); err != nil || fields == nil {
		return models.StatusRecord{}, fmt.Errorf("%w: record is not an object", ErrWrongType)
	}

	recordType, ok := stringField(fields, "$type")
	if !ok || recordType != models.StatusCollection {
		return models.StatusRecord{}, fmt.Errorf("%w: got %q", ErrWrongType, recordType)
	}

	status, ok := stringField(fields, "status")
	status = strings.TrimSpace(status)
	if !ok || status == "" {
		return models.StatusRecord{}, fmt.Errorf("%w: status", ErrMissingField)
	}

	createdAt, ok := stringField(fields, "createdAt")
	createdAt = strings.TrimSpace(createdAt)
	if !ok || createdAt == "" {
		return models.StatusRecord{}, fmt.Errorf("%w: createdAt", ErrMissingField)
	}
	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return models.StatusRecord{}, fmt.Errorf("%w: %q", ErrInvalidDatetime, createdAt)
	}

	if len(status) > MaxStatusBytes {
		return models.StatusRecord{}, fmt.Errorf("%w: %d bytes", ErrStatusTooLong, len(status))
	}

	canonical := CanonicalStatus(status)
	if n := uniseg.GraphemeClusterCount(canonical); n != 1 {
		return models.StatusRecord{}, fmt.Errorf("%w: got %d", ErrInvalidGraphemeCount, n)
	}
	if !hasVisible(canonical) {
		return models.StatusRecord{}, fmt.Errorf("%w: nothing visible", ErrInvalidGraphemeCount)
	}

	return models.StatusRecord{
		URI:       c.URI,
		Author:    c.Author,
		Status:    canonical,
		CreatedAt: created.UTC().Format(CreatedAtLayout),
	}, nil
}

// CanonicalStatus returns s with invisible format code points removed,
// NFC normalized, and trimmed of whitespace and dangling joiners. ZWJ and
// tag characters inside s are kept because emoji sequences are built from
// them.
func CanonicalStatus(s string) string {
	out, _, err := transform.String(transform.Chain(runes.Remove(runes.Predicate(isInvisibleFormat)), norm.NFC), s)
	if err != nil {
		// transform only fails on invalid input; keep what we were given.
		out = s
	}
	return strings.TrimFunc(out, func(r rune) bool {
		return unicode.IsSpace(r) || r == zeroWidthJoiner
	})
}

// GraphemeCount returns the number of user-perceived characters in the
// canonical form of s.
func GraphemeCount(s string) int {
	return uniseg.GraphemeClusterCount(CanonicalStatus(s))
}

// hasVisible reports whether s holds a code point that renders on its own.
// Format characters, combining marks and variation selectors do not.
func hasVisible(s string) bool {
	for _, r := range s {
		if !unicode.In(r, unicode.Cf, unicode.Mn, unicode.Me) {
			return true
		}
	}
	return false
}

func isInvisibleFormat(r rune) bool {
	if r == zeroWidthJoiner || (r >= tagFirst && r <= tagLast) {
		return false
	}
	return unicode.Is(unicode.Cf, r)
}

// stringField reports whether key is present and holds a JSON string.
func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Reason maps a validation error to its metric label.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrWrongType):
		return ReasonWrongType
	case errors.Is(err, ErrMissingField):
		return ReasonMissingField
	case errors.Is(err, ErrInvalidGraphemeCount):
		return ReasonInvalidGraphemeCount
	case errors.Is(err, ErrStatusTooLong):
		return ReasonStatusTooLong
	case errors.Is(err, ErrInvalidDatetime):
		return ReasonInvalidDatetime
	default:
		return ReasonOther
	}
}
