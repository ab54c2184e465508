package assemble

import (
	"context"
	"net/url"
	"strings"

	"waybacktweets/internal/logging"
	"waybacktweets/internal/metrics"
	"waybacktweets/internal/record"
	"waybacktweets/internal/urlx"
)

// EmbedResolver is the lookup service for recovered tweet content. A nil
// resolver disables enrichment.
type EmbedResolver interface {
	Resolve(ctx context.Context, tweetURL string) (record.Embed, bool)
}

// Assembler turns raw archive snapshots into canonical tweet records. Each
// instance owns a dedup set of already-emitted canonical paths, scoped to
// one run over one snapshot sequence for one username. Assemblers are not
// safe for concurrent use; run one per source.
type Assembler struct {
	username string
	source   record.Source
	embeds   EmbedResolver
	log      logging.Logger
	seen     map[string]struct{}
}

func NewWayback(username string, embeds EmbedResolver, log logging.Logger) *Assembler {
	return newAssembler(username, record.SourceWayback, embeds, log)
}

func NewCommonCrawl(username string, embeds EmbedResolver, log logging.Logger) *Assembler {
	return newAssembler(username, record.SourceCommonCrawl, embeds, log)
}

func newAssembler(username string, source record.Source, embeds EmbedResolver, log logging.Logger) *Assembler {
	return &Assembler{
		username: username,
		source:   source,
		embeds:   embeds,
		log:      log,
		seen:     make(map[string]struct{}),
	}
}

func (a *Assembler) archiveBase() string {
	if a.source == record.SourceCommonCrawl {
		return "https://commoncrawl.org"
	}
	return "https://web.archive.org/web"
}

// Process assembles one snapshot into a tweet record, or reports why it was
// dropped. Only the Wayback variant carries a status-code gate; Common
// Crawl rows have no status field worth trusting and always proceed.
func (a *Assembler) Process(ctx context.Context, snap record.Snapshot) (record.TweetRecord, record.DropReason) {
	var rec record.TweetRecord
	if snap.Original == "" {
		return rec, record.DropMissingField
	}
	if a.source == record.SourceWayback {
		if snap.StatusCode == "" {
			return rec, record.DropMissingField
		}
		if snap.StatusCode != "200" {
			return rec, record.DropBadStatus
		}
	}

	// The right single quotation mark is an archive-encoding artifact that
	// breaks every downstream pattern; it never appears in real tweet URLs.
	decoded := strings.ReplaceAll(urlx.Unescape(snap.Original), "’", "")
	cleaned := strings.Trim(urlx.ExtractStatusFragment(decoded), `"`)
	candidate := urlx.StripExtraPathSegments(urlx.NormalizeToUsername(cleaned, a.username))

	archiveNative := a.archiveBase() + "/" + snap.Timestamp + "/" + snap.Original

	// Two mutually exclusive repairs for overlapping malformation shapes.
	// Their precedence is fixed, observed behavior: nested captures are
	// re-rooted under twitter.com, everything else scheme-less gets a bare
	// https:// prefix.
	if urlx.DoubleStatus(archiveNative, candidate) {
		candidate = urlx.StripExtraPathSegments("https://twitter.com" + candidate)
	} else if !strings.Contains(candidate, "://") {
		candidate = urlx.StripExtraPathSegments("https://" + candidate)
	}

	parsedArchive := a.archiveBase() + "/" + snap.Timestamp + "/" + candidate

	encodedArchive := urlx.RepairScheme(urlx.EscapeSemicolons(archiveNative))
	encodedParsedArchive := urlx.RepairScheme(urlx.EscapeSemicolons(parsedArchive))
	encodedOriginal := urlx.RepairScheme(urlx.EscapeSemicolons(snap.Original))
	encodedCandidate := urlx.RepairScheme(urlx.EscapeSemicolons(candidate))

	key := canonicalPath(encodedCandidate)
	if _, dup := a.seen[key]; dup {
		return rec, record.DropDuplicate
	}
	a.seen[key] = struct{}{}

	var emb *record.Embed
	if a.embeds != nil && urlx.IsSingleStatusURL(encodedOriginal) {
		if e, ok := a.embeds.Resolve(ctx, encodedOriginal); ok {
			emb = &record.Embed{
				Text:       urlx.EscapeSemicolons(e.Text),
				IsRetweet:  e.IsRetweet,
				AuthorInfo: urlx.EscapeSemicolons(e.AuthorInfo),
			}
		}
	}

	parsedTS, _ := urlx.ParseTimestamp(snap.Timestamp)

	rec = record.TweetRecord{
		Source:            a.source,
		Embed:             emb,
		URLKey:            snap.URLKey,
		Timestamp:         snap.Timestamp,
		ParsedTimestamp:   parsedTS,
		ArchivedURL:       encodedArchive,
		ParsedArchivedURL: encodedParsedArchive,
		CapturedURL:       encodedOriginal,
		CanonicalURL:      encodedCandidate,
		MimeType:          snap.MimeType,
		StatusCode:        snap.StatusCode,
		Digest:            snap.Digest,
		Length:            snap.Length,
	}
	return rec, record.DropNone
}

// canonicalPath extracts the dedup key: the path component of the final
// candidate URL. Unparsable candidates fall back to the whole string so
// they still dedup against themselves.
func canonicalPath(candidate string) string {
	u, err := url.Parse(candidate)
	if err != nil {
		return candidate
	}
	return u.Path
}

// Run consumes snapshots sequentially and emits assembled records. Each
// snapshot is processed to completion, embed call included, before the
// next is pulled; cancellation is honored between records and on send.
func (a *Assembler) Run(ctx context.Context, in <-chan record.Snapshot) <-chan record.TweetRecord {
	out := make(chan record.TweetRecord)
	go func() {
		defer close(out)
		for {
			var snap record.Snapshot
			var ok bool
			select {
			case <-ctx.Done():
				return
			case snap, ok = <-in:
				if !ok {
					return
				}
			}
			rec, reason := a.Process(ctx, snap)
			if reason != record.DropNone {
				metrics.IncDropped(string(a.source), reason.String())
				a.log.Debug("snapshot_dropped", map[string]any{
					"source":   string(a.source),
					"reason":   reason.String(),
					"original": snap.Original,
					"ts":       snap.Timestamp,
				})
				continue
			}
			metrics.RecordsEmitted.WithLabelValues(string(a.source)).Inc()
			select {
			case out <- rec:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
