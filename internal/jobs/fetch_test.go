package jobs

import (
	"context"
	"testing"

	"waybacktweets/internal/archive"
	"waybacktweets/internal/config"
	"waybacktweets/internal/logging"
	"waybacktweets/internal/record"
	"waybacktweets/internal/store"
)

type fakeSource struct {
	cdx      []record.Snapshot
	crawl    []record.Snapshot
	lastOpts archive.QueryOptions
}

func (f *fakeSource) FetchCDX(ctx context.Context, username string, opts archive.QueryOptions) ([]record.Snapshot, error) {
	f.lastOpts = opts
	return f.cdx, nil
}

func (f *fakeSource) FetchCommonCrawl(ctx context.Context, indexName, username string, opts archive.QueryOptions) ([]record.Snapshot, error) {
	f.lastOpts = opts
	return f.crawl, nil
}

func TestRunFetchOnceStoresAndAdvancesCursor(t *testing.T) {
	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()

	src := &fakeSource{cdx: []record.Snapshot{
		{Timestamp: "20210101000000", Original: "https://x.com/alice/status/1", StatusCode: "200"},
		{Timestamp: "20210201000000", Original: "https://x.com/alice/status/1", StatusCode: "200"}, // dup
		{Timestamp: "20210301000000", Original: "https://x.com/alice/status/2", StatusCode: "200"},
		{Timestamp: "20200101000000", Original: "https://x.com/alice/status/3", StatusCode: "404"},
	}}
	cfg := config.Default()
	cfg.Account.Username = "alice"

	var emitted []string
	count, err := RunFetchOnce(ctx, db, src, cfg, nil, logging.New(false), func(r record.TweetRecord) {
		emitted = append(emitted, r.CanonicalURL)
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if count != 2 || len(emitted) != 2 {
		t.Fatalf("expected 2 records, got count=%d emitted=%v", count, emitted)
	}
	n, err := db.CountRecords(ctx, "wayback")
	if err != nil || n != 2 {
		t.Fatalf("stored: n=%d err=%v", n, err)
	}
	cur, err := db.LoadCursor(ctx, cdxCursorKey)
	if err != nil || cur != "20210301000000" {
		t.Fatalf("cursor: %q err=%v", cur, err)
	}

	// next run resumes from the cursor
	_, err = RunFetchOnce(ctx, db, src, cfg, nil, logging.New(false), nil)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if src.lastOpts.From != "20210301000000" {
		t.Fatalf("expected resume from cursor, got from=%q", src.lastOpts.From)
	}
}

func TestRunCrawlOnce(t *testing.T) {
	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()

	src := &fakeSource{crawl: []record.Snapshot{
		{Timestamp: "20230505", Original: "https://twitter.com/alice/status/9"},
	}}
	cfg := config.Default()
	cfg.Account.Username = "alice"

	count, err := RunCrawlOnce(ctx, db, src, cfg, nil, logging.New(false), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}
	n, err := db.CountRecords(ctx, "commoncrawl")
	if err != nil || n != 1 {
		t.Fatalf("stored: n=%d err=%v", n, err)
	}
}

func TestRunFetchOnceWithoutStore(t *testing.T) {
	src := &fakeSource{cdx: []record.Snapshot{
		{Timestamp: "2021", Original: "https://x.com/alice/status/5", StatusCode: "200"},
	}}
	cfg := config.Default()
	cfg.Account.Username = "alice"

	count, err := RunFetchOnce(context.Background(), nil, src, cfg, nil, logging.New(false), nil)
	if err != nil || count != 1 {
		t.Fatalf("count=%d err=%v", count, err)
	}
}
