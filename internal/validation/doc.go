// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

// Package validation decides which status records are admitted to the store
// and validates query API requests.
//
// # Status records
//
// ValidateStatus is a pure function from a raw record to either a canonical
// models.StatusRecord or one of five sentinel errors:
//
//	rec, err := validation.ValidateStatus(validation.Candidate{
//	    URI:    uri,
//	    Author: evt.DID,
//	    Record: evt.Commit.Record,
//	})
//	switch {
//	case err == nil:
//	    // project rec
//	case errors.Is(err, validation.ErrInvalidGraphemeCount):
//	    // "hi", "", "🔥🔥" ...
//	}
//
// A status must be exactly one grapheme cluster as segmented by
// github.com/rivo/uniseg, and at most MaxStatusBytes before stripping.
// Multi-code-point emoji (family sequences, flags, skin tones, tag
// sequences) count as one. Invisible format characters such as U+200B and
// U+FEFF are stripped from the stored value, so "🔥" followed by U+200B is
// stored as "🔥". Input with nothing visible left, such as a lone ZWJ or
// variation selector, is rejected.
//
// createdAt must be RFC 3339 and is stored as CreatedAtLayout in UTC, so
// the store can order it as text.
//
// # Requests
//
// ValidateStruct runs go-playground/validator v10 over query parameter
// structs and returns a *RequestError whose Details feed the API error
// envelope.
package validation
