// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package models

import "github.com/goccy/go-json"

// Jetstream event kinds.
const (
	EventKindCommit   = "commit"
	EventKindIdentity = "identity"
	EventKindAccount  = "account"
)

// Commit operations.
const (
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
)

// JetstreamEvent is one message from a Jetstream subscription.
//
// Message Format:
//
//	{
//	  "did": "did:plc:abc",
//	  "time_us": 1725911162329308,
//	  "kind": "commit",
//	  "commit": {
//	    "rev": "3l3qo2vutsw2b",
//	    "operation": "create",
//	    "collection": "xyz.statusphere.status",
//	    "rkey": "3l3qo2vuowo2b",
//	    "record": {"$type": "xyz.statusphere.status", "status": "🔥", "createdAt": "..."},
//	    "cid": "bafyrei..."
//	  }
//	}
//
// Identity and account events carry no commit and are ignored by ingestion.
type JetstreamEvent struct {
	DID    string           `json:"did"`
	TimeUS int64            `json:"time_us"`
	Kind   string           `json:"kind"`
	Commit *JetstreamCommit `json:"commit,omitempty"`
}

// JetstreamCommit describes one repository mutation.
// Record is absent for delete operations.
type JetstreamCommit struct {
	Rev        string          `json:"rev"`
	Operation  string          `json:"operation"`
	Collection string          `json:"collection"`
	RKey       string          `json:"rkey"`
	Record     json.RawMessage `json:"record,omitempty"`
	CID        string          `json:"cid,omitempty"`
}

// RepoRef names one repository in a listReposByCollection page.
type RepoRef struct {
	DID string `json:"did"`
}

// ListReposResponse is a page of com.atproto.sync.listReposByCollection.
type ListReposResponse struct {
	Cursor string    `json:"cursor,omitempty"`
	Repos  []RepoRef `json:"repos"`
}

// RepoRecord is one record in a listRecords page.
type RepoRecord struct {
	URI   string          `json:"uri"`
	CID   string          `json:"cid"`
	Value json.RawMessage `json:"value"`
}

// ListRecordsResponse is a page of com.atproto.repo.listRecords.
type ListRecordsResponse struct {
	Cursor  string       `json:"cursor,omitempty"`
	Records []RepoRecord `json:"records"`
}
