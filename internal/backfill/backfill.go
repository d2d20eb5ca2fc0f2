// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package backfill

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/statusphere/internal/config"
	"github.com/tomtom215/statusphere/internal/logging"
	"github.com/tomtom215/statusphere/internal/metrics"
	"github.com/tomtom215/statusphere/internal/models"
	"github.com/tomtom215/statusphere/internal/validation"
)

const sourceBackfill = "backfill"

// reasonForeignURI labels records whose URI names another repository or collection.
const reasonForeignURI = "foreign_uri"

// Projector applies validated records.
type Projector interface {
	Upsert(ctx context.Context, rec *models.StatusRecord) error
}

// Config configures one backfill run.
type Config struct {
	RelayURL          string
	PDSURL            string
	Collection        string
	RequestsPerSecond float64
	PageLimit         int
	MaxRepos          int // 0 = unlimited
	Timeout           time.Duration
}

// ConfigFrom converts the application's backfill section.
func ConfigFrom(cfg *config.BackfillConfig) Config {
	return Config{
		RelayURL:          cfg.RelayURL,
		PDSURL:            cfg.PDSURL,
		Collection:        models.StatusCollection,
		RequestsPerSecond: cfg.RequestsPerSecond,
		PageLimit:         cfg.PageLimit,
		MaxRepos:          cfg.MaxRepos,
		Timeout:           cfg.Timeout,
	}
}

// Stats summarizes a run.
type Stats struct {
	Repos    int // repositories visited
	Records  int // records seen
	Accepted int // records written
	Rejected int // records refused by validation
	Failed   int // repositories or writes that errored
}

// Backfiller imports existing status records from the network. It is best
// effort: a repository that cannot be listed is logged and skipped.
type Backfiller struct {
	cfg       Config
	client    *http.Client
	limiter   *rate.Limiter
	projector Projector
}

// New creates a backfiller. A nil client gets one with cfg.Timeout.
func New(cfg Config, projector Projector, client *http.Client) *Backfiller {
	if cfg.Collection == "" {
		cfg.Collection = models.StatusCollection
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = 100
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Backfiller{
		cfg:       cfg,
		client:    client,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		projector: projector,
	}
}

// Run pages through every repository holding the collection and imports
// its records. Only a failure to list repositories ends the run early.
func (b *Backfiller) Run(ctx context.Context) (Stats, error) {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	logger := logging.Ctx(ctx)
	logger.Info().Str("relay", b.cfg.RelayURL).Str("pds", b.cfg.PDSURL).Msg("Starting status backfill")

	var stats Stats
	start := time.Now()
	cursor := ""

	for {
		page, err := b.listRepos(ctx, cursor)
		if err != nil {
			logger.Error().Err(err).Int("repos", stats.Repos).Msg("Backfill aborted: cannot list repositories")
			return stats, err
		}
		if len(page.Repos) == 0 {
			break
		}

		for _, repo := range page.Repos {
			if b.cfg.MaxRepos > 0 && stats.Repos >= b.cfg.MaxRepos {
				b.logComplete(ctx, stats, start)
				return stats, nil
			}
			if err := ctx.Err(); err != nil {
				return stats, err
			}

			stats.Repos++
			metrics.BackfillReposProcessed.Inc()
			if err := b.importRepo(ctx, repo.DID, &stats); err != nil {
				if ctx.Err() != nil {
					return stats, ctx.Err()
				}
				stats.Failed++
				logger.Warn().Err(err).Str("did", repo.DID).Msg("Skipping repository")
			}

			if stats.Repos%10 == 0 {
				logger.Info().Int("repos", stats.Repos).Int("accepted", stats.Accepted).Msg("Backfill progress")
			}
		}

		cursor = page.Cursor
		if cursor == "" {
			break
		}
	}

	b.logComplete(ctx, stats, start)
	return stats, nil
}

// importRepo pages through one repository's records.
func (b *Backfiller) importRepo(ctx context.Context, did string, stats *Stats) error {
	cursor := ""
	for {
		page, err := b.listRecords(ctx, did, cursor)
		if err != nil {
			return err
		}
		if len(page.Records) == 0 {
			return nil
		}

		for _, record := range page.Records {
			stats.Records++
			b.importRecord(ctx, did, record, stats)
		}

		cursor = page.Cursor
		if cursor == "" {
			return nil
		}
	}
}

// importRecord validates one listRecords entry and upserts it. The row URI
// is rebuilt from did and the record key, so a PDS cannot write rows into
// another repository or collection.
func (b *Backfiller) importRecord(ctx context.Context, did string, record models.RepoRecord, stats *Stats) {
	owner, collection, rkey, ok := models.ParseRecordURI(record.URI)
	if !ok || owner != did || collection != models.StatusCollection {
		stats.Rejected++
		metrics.RecordRejected(sourceBackfill, reasonForeignURI)
		logging.Ctx(ctx).Warn().Str("did", did).Str("uri", record.URI).Msg("Rejected backfill record outside the listed repository")
		return
	}

	rec, err := validation.ValidateStatus(validation.Candidate{
		URI:    models.RecordURI(did, models.StatusCollection, rkey),
		Author: did,
		Record: record.Value,
	})
	if err != nil {
		stats.Rejected++
		metrics.RecordRejected(sourceBackfill, validation.Reason(err))
		logging.Ctx(ctx).Debug().Err(err).Str("uri", record.URI).Msg("Rejected backfill record")
		return
	}

	if err := b.projector.Upsert(ctx, &rec); err != nil {
		stats.Failed++
		logging.Ctx(ctx).Error().Err(err).Str("uri", record.URI).Msg("Failed to store backfill record")
		return
	}
	stats.Accepted++
	metrics.RecordAccepted(sourceBackfill)
}

func (b *Backfiller) logComplete(ctx context.Context, stats Stats, start time.Time) {
	logging.Ctx(ctx).Info().
		Int("repos", stats.Repos).
		Int("records", stats.Records).
		Int("accepted", stats.Accepted).
		Int("rejected", stats.Rejected).
		Int("failed", stats.Failed).
		Dur("duration", time.Since(start)).
		Msg("Backfill complete")
}

// Preload runs the backfill for the ingest supervisor, which streams only
// once it returns. Only a failure to list repositories is an error.
func (b *Backfiller) Preload(ctx context.Context) error {
	_, err := b.Run(ctx)
	return err
}
