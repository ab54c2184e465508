package archive

import (
	"context"
	"net/url"
	"strconv"

	"waybacktweets/internal/record"
)

// QueryOptions narrows an index query. Timestamps are YYYYMMDD[HH[MM[SS]]].
type QueryOptions struct {
	Collapse  string
	From      string
	To        string
	Limit     int
	Offset    int
	MatchType string
}

// Tweets were captured under both hostnames; the index treats them as
// distinct URL keys, so both are queried in order.
var tweetHosts = []string{"twitter.com", "x.com"}

// FetchCDX queries the Wayback Machine CDX index for a username's status
// captures and adapts the array-of-arrays response (header row first) into
// snapshots. An empty result is not an error.
func (c *Client) FetchCDX(ctx context.Context, username string, opts QueryOptions) ([]record.Snapshot, error) {
	var out []record.Snapshot
	for _, host := range tweetHosts {
		// Wildcard pathname unless a matchtype scopes the query itself.
		wildcard := "/*"
		if opts.MatchType != "" {
			wildcard = ""
		}
		q := url.Values{}
		q.Set("url", "https://"+host+"/"+username+"/status"+wildcard)
		q.Set("output", "json")
		if opts.Collapse != "" {
			q.Set("collapse", opts.Collapse)
		}
		if opts.From != "" {
			q.Set("from", opts.From)
		}
		if opts.To != "" {
			q.Set("to", opts.To)
		}
		if opts.Limit > 0 {
			q.Set("limit", strconv.Itoa(opts.Limit))
		}
		if opts.Offset > 0 {
			q.Set("offset", strconv.Itoa(opts.Offset))
		}
		if opts.MatchType != "" {
			q.Set("matchType", opts.MatchType)
		}

		var rows [][]string
		if err := c.getJSON(ctx, c.cdxBase+"?"+q.Encode(), &rows); err != nil {
			return nil, err
		}
		out = append(out, zipRows(rows)...)
	}
	return out, nil
}

// zipRows pairs the CDX header row with each data row.
func zipRows(rows [][]string) []record.Snapshot {
	if len(rows) < 2 {
		return nil
	}
	header := rows[0]
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	field := func(row []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}
	out := make([]record.Snapshot, 0, len(rows)-1)
	for _, row := range rows[1:] {
		out = append(out, record.Snapshot{
			URLKey:     field(row, "urlkey"),
			Timestamp:  field(row, "timestamp"),
			Original:   field(row, "original"),
			MimeType:   field(row, "mimetype"),
			StatusCode: field(row, "statuscode"),
			Digest:     field(row, "digest"),
			Length:     field(row, "length"),
		})
	}
	return out
}

// Stream adapts a fetched snapshot slice into the asynchronous sequence the
// assembler consumes.
func Stream(ctx context.Context, snaps []record.Snapshot) <-chan record.Snapshot {
	out := make(chan record.Snapshot)
	go func() {
		defer close(out)
		for _, s := range snaps {
			select {
			case out <- s:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
