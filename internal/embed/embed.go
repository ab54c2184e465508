package embed

import (
	"context"
	"encoding/json"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"waybacktweets/internal/logging"
	"waybacktweets/internal/metrics"
	"waybacktweets/internal/record"
)

// Resolver recovers a tweet's text and author through the publish oembed
// service. The original tweets are long deleted; the embed renderer is the
// only remaining source for their content. Failures here never abort the
// surrounding pipeline: Resolve reports ok=false and the caller leaves the
// embed fields unset.
type Resolver struct {
	Endpoint   string
	HTTPClient *http.Client
	Log        logging.Logger
}

const defaultEndpoint = "https://publish.twitter.com/oembed"

func NewResolver(endpoint string, log logging.Logger) *Resolver {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Resolver{
		Endpoint:   endpoint,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Log:        log,
	}
}

var (
	// Quoted tweet body up to its closing block, then the author caption
	// after the em-dash separator.
	blockquoteRe = regexp.MustCompile(`(?s)<blockquote class="twitter-tweet"(?: [^>]+)?><p[^>]*>(.*?)</p>.*?&mdash;\s*(.*?)</a>`)
	// Author name is the caption substring before the first parenthesis.
	captionAuthorRe = regexp.MustCompile(`^(.*?)\s*\(`)
	anchorTagRe     = regexp.MustCompile(`<a[^>]*>|</a>`)
)

// Resolve fetches the oembed payload for a canonical tweet URL and parses
// the embed markup. When the markup contains several embedded tweets only
// the first is surfaced.
func (r *Resolver) Resolve(ctx context.Context, tweetURL string) (record.Embed, bool) {
	metrics.EmbedLookups.Inc()
	e, ok := r.resolve(ctx, tweetURL)
	if !ok {
		metrics.EmbedMisses.Inc()
	}
	return e, ok
}

func (r *Resolver) resolve(ctx context.Context, tweetURL string) (record.Embed, bool) {
	var out record.Embed
	u := r.Endpoint + "?url=" + url.QueryEscape(tweetURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return out, false
	}
	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		r.Log.Debug("embed_request_failed", map[string]any{"url": tweetURL, "error": err.Error()})
		return out, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		r.Log.Debug("embed_status", map[string]any{"url": tweetURL, "status": resp.StatusCode})
		return out, false
	}
	var payload struct {
		HTML       string `json:"html"`
		AuthorName string `json:"author_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		r.Log.Debug("embed_decode_failed", map[string]any{"url": tweetURL, "error": err.Error()})
		return out, false
	}
	return parseMarkup(payload.HTML, payload.AuthorName)
}

// parseMarkup extracts the first embedded tweet from oembed markup. A
// caption author differing from the declared embed author signals that the
// rendered tweet is a retweet.
func parseMarkup(markup, authorName string) (record.Embed, bool) {
	var out record.Embed
	m := blockquoteRe.FindStringSubmatch(markup)
	if m == nil {
		return out, false
	}
	text := anchorTagRe.ReplaceAllString(strings.TrimSpace(m[1]), "")
	text = html.UnescapeString(strings.ReplaceAll(text, "<br>", "\n"))

	caption := html.UnescapeString(anchorTagRe.ReplaceAllString(strings.TrimSpace(m[2]), ""))

	captionAuthor := ""
	if am := captionAuthorRe.FindStringSubmatch(caption); am != nil {
		captionAuthor = am[1]
	}

	out.Text = text
	out.AuthorInfo = caption
	out.IsRetweet = authorName != captionAuthor
	return out, true
}

// ParseArchivedJSON attempts text recovery from a capture whose mimetype is
// application/json, probing the few payload shapes the old APIs produced.
// Experimental; absent on any failure.
func ParseArchivedJSON(ctx context.Context, client *http.Client, archivedURL string) (string, bool) {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, archivedURL, nil)
	if err != nil {
		return "", false
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", false
	}
	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", false
	}
	if v, ok := payload["data"]; ok {
		return flattenText(v), true
	}
	if v, ok := payload["retweeted_status"]; ok {
		return flattenText(v), true
	}
	if v, ok := payload["text"]; ok {
		return flattenText(v), true
	}
	return "", false
}

func flattenText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		if s, ok := t["text"].(string); ok {
			return s
		}
	}
	b, _ := json.Marshal(v)
	return string(b)
}
