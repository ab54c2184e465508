package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"waybacktweets/internal/record"
)

// crawlRow is one NDJSON line from a Common Crawl index query.
type crawlRow struct {
	URLKey    string `json:"urlkey"`
	Timestamp string `json:"timestamp"`
	URL       string `json:"url"`
	Mime      string `json:"mime"`
	Status    string `json:"status"`
	Digest    string `json:"digest"`
	Length    string `json:"length"`
}

// FetchCommonCrawl queries one Common Crawl index (e.g. CC-MAIN-2024-10)
// for a username's status captures. The response is newline-delimited JSON
// objects; a 404 means the index holds no captures and yields an empty
// result rather than an error.
func (c *Client) FetchCommonCrawl(ctx context.Context, indexName, username string, opts QueryOptions) ([]record.Snapshot, error) {
	var out []record.Snapshot
	for _, host := range tweetHosts {
		q := url.Values{}
		q.Set("url", host+"/"+username+"/status/*")
		q.Set("output", "json")
		if opts.From != "" {
			q.Set("from", opts.From)
		}
		if opts.To != "" {
			q.Set("to", opts.To)
		}
		if opts.Limit > 0 {
			q.Set("limit", strconv.Itoa(opts.Limit))
		}

		rows, err := c.getCrawlRows(ctx, c.crawlBase+"/"+indexName+"-index?"+q.Encode())
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			out = append(out, record.Snapshot{
				URLKey:     r.URLKey,
				Timestamp:  r.Timestamp,
				Original:   r.URL,
				MimeType:   r.Mime,
				StatusCode: r.Status,
				Digest:     r.Digest,
				Length:     r.Length,
			})
		}
	}
	return out, nil
}

func (c *Client) getCrawlRows(ctx context.Context, rawURL string) ([]crawlRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("common crawl status %d for %s", resp.StatusCode, rawURL)
	}
	var rows []crawlRow
	dec := json.NewDecoder(resp.Body)
	for {
		var r crawlRow
		if err := dec.Decode(&r); err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		rows = append(rows, r)
	}
	return rows, nil
}
