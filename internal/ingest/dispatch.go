// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/statusphere/internal/jetstream"
	"github.com/tomtom215/statusphere/internal/logging"
	"github.com/tomtom215/statusphere/internal/metrics"
	"github.com/tomtom215/statusphere/internal/models"
	"github.com/tomtom215/statusphere/internal/projector"
	"github.com/tomtom215/statusphere/internal/validation"
)

const (
	sourceJetstream = "jetstream"
	reasonDecode    = "decode"
)

// dispatch routes one event. Identity/account events, foreign collections
// and unknown operations are ignored. The returned error describes a
// dropped event; it never ends the stream.
func (s *Supervisor) dispatch(ctx context.Context, evt *models.JetstreamEvent) error {
	if evt.Kind != models.EventKindCommit || evt.Commit == nil {
		metrics.RecordEventReceived(evt.Kind, "")
		return nil
	}

	commit := evt.Commit
	metrics.RecordEventReceived(evt.Kind, commit.Operation)
	if commit.Collection != s.cfg.Collection {
		return nil
	}

	uri := models.RecordURI(evt.DID, commit.Collection, commit.RKey)

	switch commit.Operation {
	case models.OperationCreate, models.OperationUpdate:
		if len(commit.Record) == 0 {
			metrics.RecordRejected(sourceJetstream, reasonDecode)
			return fmt.Errorf("%w: %s %s has no record", ErrDecode, commit.Operation, uri)
		}

		rec, err := validation.ValidateStatus(validation.Candidate{
			URI:    uri,
			Author: evt.DID,
			Record: commit.Record,
		})
		if err != nil {
			metrics.RecordRejected(sourceJetstream, validation.Reason(err))
			return err
		}

		if err := s.projector.Upsert(ctx, &rec); err != nil {
			return err
		}
		metrics.RecordAccepted(sourceJetstream)
		logging.Ctx(ctx).Debug().Str("uri", uri).Str("status", rec.Status).Msg("Status upserted")
		return nil

	case models.OperationDelete:
		if err := s.projector.Delete(ctx, uri); err != nil {
			return err
		}
		logging.Ctx(ctx).Debug().Str("uri", uri).Msg("Status deleted")
		return nil

	default:
		return nil
	}
}

// logDispatchError logs a dropped event at a level matching its cause.
// Rejected records are routine on a public firehose; storage failures are not.
func logDispatchError(ctx context.Context, evt *models.JetstreamEvent, err error) {
	logger := logging.Ctx(ctx)
	var storageErr *projector.StorageError

	switch {
	case errors.As(err, &storageErr):
		logger.Error().Err(err).Str("did", evt.DID).Int64("time_us", evt.TimeUS).Msg("Dropping event after storage failure")
	case errors.Is(err, ErrDecode), errors.Is(err, jetstream.ErrMalformedEvent):
		logger.Warn().Err(err).Str("did", evt.DID).Msg("Dropping undecodable event")
	default:
		logger.Debug().Err(err).Str("did", evt.DID).Str("reason", validation.Reason(err)).Msg("Rejected status record")
	}
}
