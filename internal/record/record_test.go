package record

import "testing"

func sample(src Source) TweetRecord {
	return TweetRecord{
		Source:            src,
		URLKey:            "com,twitter)/alice/status/123",
		Timestamp:         "20210315120000",
		ParsedTimestamp:   "2021/03/15 12:00:00",
		ArchivedURL:       "https://web.archive.org/web/20210315120000/https://x.com/alice/status/123",
		ParsedArchivedURL: "https://web.archive.org/web/20210315120000/https://twitter.com/alice/status/123",
		CapturedURL:       "https://x.com/alice/status/123",
		CanonicalURL:      "https://twitter.com/alice/status/123",
		MimeType:          "text/html",
		StatusCode:        "200",
		Digest:            "ABC123",
		Length:            "4567",
	}
}

func TestFieldsWaybackKeys(t *testing.T) {
	f := sample(SourceWayback).Fields()
	if f["original_tweet_url"] != "https://twitter.com/alice/status/123" {
		t.Fatalf("original_tweet_url = %v", f["original_tweet_url"])
	}
	if f["captured_tweet_url"] != "https://x.com/alice/status/123" {
		t.Fatalf("captured_tweet_url = %v", f["captured_tweet_url"])
	}
	if f["archived_statuscode"] != "200" {
		t.Fatalf("archived_statuscode = %v", f["archived_statuscode"])
	}
	if _, ok := f["common_crawl_url"]; ok {
		t.Fatal("wayback record must not carry common_crawl_* keys")
	}
	if f["available_tweet_text"] != nil {
		t.Fatalf("embed fields should be nil without an embed, got %v", f["available_tweet_text"])
	}
}

func TestFieldsCommonCrawlKeys(t *testing.T) {
	r := sample(SourceCommonCrawl)
	r.Embed = &Embed{Text: "hi", IsRetweet: true, AuthorInfo: "Alice (@alice)"}
	f := r.Fields()
	if f["common_crawl_url"] != "https://x.com/alice/status/123" {
		t.Fatalf("common_crawl_url = %v", f["common_crawl_url"])
	}
	if f["available_tweet_is_RT"] != true {
		t.Fatalf("available_tweet_is_RT = %v", f["available_tweet_is_RT"])
	}
	if _, ok := f["archived_urlkey"]; ok {
		t.Fatal("common crawl record must not carry archived_* keys")
	}
}

func TestFieldsUnparsableTimestampIsNil(t *testing.T) {
	r := sample(SourceWayback)
	r.ParsedTimestamp = ""
	if v := r.Fields()["parsed_archived_timestamp"]; v != nil {
		t.Fatalf("expected nil, got %v", v)
	}
}

func TestSelectAllowList(t *testing.T) {
	r := sample(SourceWayback)
	out := Select(r, []string{"original_tweet_url", "archived_timestamp", "no_such_field"})
	if len(out) != 2 {
		t.Fatalf("expected 2 fields, got %v", out)
	}
	if out["archived_timestamp"] != "20210315120000" {
		t.Fatalf("archived_timestamp = %v", out["archived_timestamp"])
	}

	all := Select(r, nil)
	if len(all) != len(r.Fields()) {
		t.Fatalf("empty allow-list should keep all fields")
	}
}
