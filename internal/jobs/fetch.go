package jobs

import (
	"context"
	"time"

	"waybacktweets/internal/archive"
	"waybacktweets/internal/assemble"
	"waybacktweets/internal/config"
	"waybacktweets/internal/logging"
	"waybacktweets/internal/metrics"
	"waybacktweets/internal/record"
	"waybacktweets/internal/store"
)

const (
	cdxCursorKey   = "cdx:last_timestamp"
	crawlCursorKey = "crawl:last_timestamp"
)

// SnapshotSource is the slice of the archive client the jobs consume.
type SnapshotSource interface {
	FetchCDX(ctx context.Context, username string, opts archive.QueryOptions) ([]record.Snapshot, error)
	FetchCommonCrawl(ctx context.Context, indexName, username string, opts archive.QueryOptions) ([]record.Snapshot, error)
}

// Emit receives each accepted record in input order.
type Emit func(record.TweetRecord)

func queryOptions(cfg config.Config) archive.QueryOptions {
	return archive.QueryOptions{
		Collapse:  cfg.Query.Collapse,
		From:      cfg.Query.From,
		To:        cfg.Query.To,
		Limit:     cfg.Query.Limit,
		Offset:    cfg.Query.Offset,
		MatchType: cfg.Query.MatchType,
	}
}

// RunFetchOnce pulls the account's CDX captures, assembles them, stores the
// accepted records, and advances the resume cursor. db and emit may each be
// nil. Returns the number of accepted records.
func RunFetchOnce(ctx context.Context, db *store.DB, src SnapshotSource, cfg config.Config, embeds assemble.EmbedResolver, log logging.Logger, emit Emit) (int, error) {
	start := time.Now()
	metrics.FetchRuns.WithLabelValues(string(record.SourceWayback)).Inc()

	opts := queryOptions(cfg)
	if db != nil && opts.From == "" {
		if v, err := db.LoadCursor(ctx, cdxCursorKey); err == nil && v != "" {
			opts.From = v
		}
	}
	snaps, err := src.FetchCDX(ctx, cfg.Account.Username, opts)
	if err != nil {
		metrics.FetchErrors.WithLabelValues(string(record.SourceWayback)).Inc()
		return 0, err
	}

	asm := assemble.NewWayback(cfg.Account.Username, embeds, log)
	count, maxTS := drain(ctx, db, asm.Run(ctx, archive.Stream(ctx, snaps)), log, emit)

	if db != nil && maxTS != "" {
		_ = db.SaveCursor(ctx, cdxCursorKey, maxTS)
	}
	log.Info("fetch_once", map[string]any{
		"username": cfg.Account.Username,
		"captures": len(snaps),
		"records":  count,
	})
	metrics.ObserveFetchDuration(start)
	return count, nil
}

// RunCrawlOnce is the Common Crawl counterpart of RunFetchOnce.
func RunCrawlOnce(ctx context.Context, db *store.DB, src SnapshotSource, cfg config.Config, embeds assemble.EmbedResolver, log logging.Logger, emit Emit) (int, error) {
	start := time.Now()
	metrics.FetchRuns.WithLabelValues(string(record.SourceCommonCrawl)).Inc()

	opts := queryOptions(cfg)
	if db != nil && opts.From == "" {
		if v, err := db.LoadCursor(ctx, crawlCursorKey); err == nil && v != "" {
			opts.From = v
		}
	}
	snaps, err := src.FetchCommonCrawl(ctx, cfg.Query.CrawlIndex, cfg.Account.Username, opts)
	if err != nil {
		metrics.FetchErrors.WithLabelValues(string(record.SourceCommonCrawl)).Inc()
		return 0, err
	}

	asm := assemble.NewCommonCrawl(cfg.Account.Username, embeds, log)
	count, maxTS := drain(ctx, db, asm.Run(ctx, archive.Stream(ctx, snaps)), log, emit)

	if db != nil && maxTS != "" {
		_ = db.SaveCursor(ctx, crawlCursorKey, maxTS)
	}
	log.Info("crawl_once", map[string]any{
		"username": cfg.Account.Username,
		"index":    cfg.Query.CrawlIndex,
		"captures": len(snaps),
		"records":  count,
	})
	metrics.ObserveFetchDuration(start)
	return count, nil
}

func drain(ctx context.Context, db *store.DB, recs <-chan record.TweetRecord, log logging.Logger, emit Emit) (int, string) {
	count := 0
	maxTS := ""
	for rec := range recs {
		if db != nil {
			if _, err := db.PutRecord(ctx, rec); err != nil {
				log.Error("store_put_failed", map[string]any{"url": rec.CanonicalURL, "error": err.Error()})
			}
		}
		if emit != nil {
			emit(rec)
		}
		if rec.Timestamp > maxTS {
			maxTS = rec.Timestamp
		}
		count++
	}
	return count, maxTS
}
