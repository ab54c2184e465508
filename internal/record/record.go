package record

// Source identifies which archive index a snapshot came from.
type Source string

const (
	SourceWayback     Source = "wayback"
	SourceCommonCrawl Source = "commoncrawl"
)

// Snapshot is one raw row from an archive index, adapted to a common shape
// before it reaches the assembler. All fields are strings as delivered by
// the APIs; Timestamp is a 14-digit or truncated YYYYMMDD[HH[MM[SS]]] value.
type Snapshot struct {
	URLKey     string
	Timestamp  string
	Original   string
	MimeType   string
	StatusCode string
	Digest     string
	Length     string
}

// Embed carries tweet data recovered via the oembed service. The three
// fields are populated together or not at all.
type Embed struct {
	Text       string
	IsRetweet  bool
	AuthorInfo string
}

// TweetRecord is one assembled output record. Four URL variants are kept:
// the archive-native URL wrapping the capture as indexed, the same wrapping
// the canonical URL, the escaped capture itself, and the canonical tweet
// identity used as the dedup key. Embed is nil when the tweet could not be
// resolved through the embed service, which is the common case.
type TweetRecord struct {
	Source             Source
	Embed              *Embed
	URLKey             string
	Timestamp          string
	ParsedTimestamp    string // empty when the raw timestamp is unparsable
	ArchivedURL        string // archive-native URL wrapping the raw capture
	ParsedArchivedURL  string // archive-native URL wrapping the canonical URL
	CapturedURL        string // raw capture, escaped
	CanonicalURL       string // canonical https://twitter.com/<user>/status/<id>
	MimeType           string
	StatusCode         string
	Digest             string
	Length             string
}

// Fields flattens the record into its output schema. Key names depend on
// the source: Wayback records use archived_* metadata keys, Common Crawl
// records use common_crawl_* keys, mirroring what each index calls them.
func (r TweetRecord) Fields() map[string]any {
	var text, info any
	var isRT any
	if r.Embed != nil {
		text, isRT, info = r.Embed.Text, r.Embed.IsRetweet, r.Embed.AuthorInfo
	}
	if r.Source == SourceCommonCrawl {
		return map[string]any{
			"available_tweet_text":          text,
			"available_tweet_is_RT":         isRT,
			"available_tweet_info":          info,
			"common_crawl_url":              r.CapturedURL,
			"common_crawl_timestamp":        r.Timestamp,
			"parsed_common_crawl_timestamp": parsedOrNil(r.ParsedTimestamp),
			"common_crawl_tweet_url":        r.ArchivedURL,
			"parsed_common_crawl_tweet_url": r.ParsedArchivedURL,
			"original_tweet_url":            r.CanonicalURL,
			"common_crawl_mimetype":         r.MimeType,
			"common_crawl_statuscode":       r.StatusCode,
			"common_crawl_digest":           r.Digest,
			"common_crawl_length":           r.Length,
		}
	}
	return map[string]any{
		"available_tweet_text":      text,
		"available_tweet_is_RT":     isRT,
		"available_tweet_info":      info,
		"archived_urlkey":           r.URLKey,
		"archived_timestamp":        r.Timestamp,
		"parsed_archived_timestamp": parsedOrNil(r.ParsedTimestamp),
		"archived_tweet_url":        r.ArchivedURL,
		"parsed_archived_tweet_url": r.ParsedArchivedURL,
		"captured_tweet_url":        r.CapturedURL,
		"original_tweet_url":        r.CanonicalURL,
		"archived_mimetype":         r.MimeType,
		"archived_statuscode":       r.StatusCode,
		"archived_digest":           r.Digest,
		"archived_length":           r.Length,
	}
}

func parsedOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Select applies a caller-supplied allow-list to the flattened record.
// An empty list keeps every field.
func Select(r TweetRecord, fields []string) map[string]any {
	all := r.Fields()
	if len(fields) == 0 {
		return all
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := all[f]; ok {
			out[f] = v
		}
	}
	return out
}
