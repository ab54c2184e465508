package embed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"waybacktweets/internal/logging"
)

const sampleMarkup = `<blockquote class="twitter-tweet" data-width="550"><p lang="en" dir="ltr">hello archive &amp; friends<br>second line <a href="https://t.co/x">https://t.co/x</a></p>&mdash; Alice Doe (@alice) <a href="https://twitter.com/alice/status/123">March 15, 2021</a></blockquote>`

func newTestResolver(ts *httptest.Server) *Resolver {
	r := NewResolver(ts.URL, logging.New(false))
	r.HTTPClient = ts.Client()
	return r
}

func TestResolveParsesEmbed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("url") == "" {
			t.Errorf("missing url query param")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"html": "` + jsonEscape(sampleMarkup) + `", "author_name": "Alice Doe"}`))
	}))
	defer ts.Close()

	e, ok := newTestResolver(ts).Resolve(context.Background(), "https://twitter.com/alice/status/123")
	if !ok {
		t.Fatal("expected embed result")
	}
	if e.Text != "hello archive & friends\nsecond line https://t.co/x" {
		t.Fatalf("text: %q", e.Text)
	}
	if e.AuthorInfo != "Alice Doe (@alice) March 15, 2021" {
		t.Fatalf("author info: %q", e.AuthorInfo)
	}
	if e.IsRetweet {
		t.Fatal("same author must not be flagged as retweet")
	}
}

func TestResolveFlagsRetweet(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"html": "` + jsonEscape(sampleMarkup) + `", "author_name": "Bob"}`))
	}))
	defer ts.Close()

	e, ok := newTestResolver(ts).Resolve(context.Background(), "https://twitter.com/bob/status/9")
	if !ok {
		t.Fatal("expected embed result")
	}
	if !e.IsRetweet {
		t.Fatal("caption author differs from embed author: expected retweet flag")
	}
}

func TestResolveFirstMatchOnly(t *testing.T) {
	second := `<blockquote class="twitter-tweet"><p>second tweet</p>&mdash; Carol (@carol) <a href="x">d</a></blockquote>`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"html": "` + jsonEscape(sampleMarkup+second) + `", "author_name": "Alice Doe"}`))
	}))
	defer ts.Close()

	e, ok := newTestResolver(ts).Resolve(context.Background(), "https://twitter.com/alice/status/123")
	if !ok {
		t.Fatal("expected embed result")
	}
	if e.Text != "hello archive & friends\nsecond line https://t.co/x" {
		t.Fatalf("expected first embed surfaced, got text %q", e.Text)
	}
}

func TestResolveAbsorbsFailures(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	r := newTestResolver(ts)
	if _, ok := r.Resolve(context.Background(), "https://twitter.com/alice/status/123"); ok {
		t.Fatal("non-2xx must yield absent")
	}
	ts.Close()
	// connection refused after close
	if _, ok := r.Resolve(context.Background(), "https://twitter.com/alice/status/123"); ok {
		t.Fatal("transport failure must yield absent")
	}
}

func TestResolveNoMatchingPattern(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"html": "<div>not an embed</div>", "author_name": "x"}`))
	}))
	defer ts.Close()
	if _, ok := newTestResolver(ts).Resolve(context.Background(), "https://twitter.com/alice/status/123"); ok {
		t.Fatal("markup without blockquote must yield absent")
	}
}

func TestParseArchivedJSON(t *testing.T) {
	cases := []struct {
		body string
		want string
		ok   bool
	}{
		{`{"data": {"text": "from data"}}`, "from data", true},
		{`{"retweeted_status": {"text": "rt text"}}`, "rt text", true},
		{`{"text": "plain"}`, "plain", true},
		{`{"unrelated": 1}`, "", false},
	}
	for _, c := range cases {
		body := c.body
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		}))
		got, ok := ParseArchivedJSON(context.Background(), ts.Client(), ts.URL)
		ts.Close()
		if got != c.want || ok != c.ok {
			t.Fatalf("ParseArchivedJSON body=%s = (%q, %v), want (%q, %v)", c.body, got, ok, c.want, c.ok)
		}
	}
}

// jsonEscape escapes a string for embedding inside a JSON string literal.
func jsonEscape(s string) string {
	out := ""
	for _, r := range s {
		switch r {
		case '"':
			out += `\"`
		case '\\':
			out += `\\`
		default:
			out += string(r)
		}
	}
	return out
}
