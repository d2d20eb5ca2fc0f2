// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package models

import (
	"fmt"
	"strings"
)

// StatusCollection is the NSID of the only record collection the indexer mirrors.
const StatusCollection = "xyz.statusphere.status"

// StatusRecord is a locally projected xyz.statusphere.status record.
//
// Key Fields:
//   - URI: at://{did}/xyz.statusphere.status/{rkey}, primary key
//   - Author: DID of the repository that published the record
//   - Status: exactly one grapheme cluster, invisible format characters stripped
//   - CreatedAt: author-supplied timestamp in UTC, 2006-01-02T15:04:05.000Z, used for ordering
type StatusRecord struct {
	URI       string `json:"uri"`
	Author    string `json:"author"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// StatusCount is one row of the popularity ranking.
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// RecordURI composes the AT-URI of a record from its repository, collection and key.
//
//	RecordURI("did:plc:abc", StatusCollection, "3l3q") // at://did:plc:abc/xyz.statusphere.status/3l3q
func RecordURI(did, collection, rkey string) string {
	return fmt.Sprintf("at://%s/%s/%s", did, collection, rkey)
}

// ParseRecordURI splits an at://{did}/{collection}/{rkey} URI. ok is false
// unless all three parts are present and non-empty.
func ParseRecordURI(uri string) (did, collection, rkey string, ok bool) {
	rest, found := strings.CutPrefix(uri, "at://")
	if !found {
		return "", "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}
