package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"waybacktweets/internal/archive"
	"waybacktweets/internal/assemble"
	"waybacktweets/internal/cmdlog"
	"waybacktweets/internal/config"
	"waybacktweets/internal/embed"
	"waybacktweets/internal/jobs"
	"waybacktweets/internal/logging"
	"waybacktweets/internal/metrics"
	"waybacktweets/internal/record"
	"waybacktweets/internal/store"
	"waybacktweets/internal/theme"
)

func main() {
	_ = godotenv.Load()
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "init":
		cmdInit()
	case "fetch":
		cmdFetch()
	case "crawl":
		cmdCrawl()
	case "export":
		cmdExport()
	default:
		printHelp()
	}
}

func printHelp() {
	theme.PrintBanner()
	fmt.Println("Usage: waybacktweets <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init     Create a config file at ./waybacktweets.yaml")
	fmt.Println("  fetch    Fetch and assemble archived tweets from the Wayback CDX index")
	fmt.Println("  crawl    Fetch and assemble archived tweets from a Common Crawl index")
	fmt.Println("  export   Dump stored records as JSON lines")
}

func cmdInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("path", "./waybacktweets.yaml", "path to write config")
	_ = fs.Parse(os.Args[2:])
	cfg := config.Default()
	if err := config.Save(*path, cfg); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	abs, _ := filepath.Abs(*path)
	theme.PrintBanner()
	fmt.Println("Config written to:", abs)
}

// loadConfig reads the config file, falling back to defaults plus env when
// the file does not exist yet.
func loadConfig(path string) config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg = config.Default()
			cfg.ResolveEnv()
			return cfg
		}
		fmt.Println("error:", err)
		os.Exit(1)
	}
	return cfg
}

func applyQueryFlags(cfg *config.Config, user, from, to *string, limit *int) {
	if *user != "" {
		cfg.Account.Username = *user
	}
	if *from != "" {
		cfg.Query.From = *from
	}
	if *to != "" {
		cfg.Query.To = *to
	}
	if *limit > 0 {
		cfg.Query.Limit = *limit
	}
}

func newArchiveClient(cfg config.Config) *archive.Client {
	client := archive.NewClient()
	client.SetLimits(cfg.HTTP.RPS, cfg.HTTP.Burst)
	if cfg.HTTP.TimeoutSeconds > 0 {
		client.SetTimeout(time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second)
	}
	client.SetRetry(cfg.HTTP.MaxAttempts, time.Duration(cfg.HTTP.BaseBackoffMS)*time.Millisecond)
	return client
}

func openStore(cfg config.Config, disabled bool) *store.DB {
	if disabled || cfg.Storage.DBPath == "" {
		return nil
	}
	db, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	return db
}

// stdoutEmit writes each accepted record as one JSON line, filtered to the
// configured field allow-list. Safe for use from both sources at once.
func stdoutEmit(fields []string) jobs.Emit {
	enc := json.NewEncoder(os.Stdout)
	var mu sync.Mutex
	return func(r record.TweetRecord) {
		mu.Lock()
		defer mu.Unlock()
		_ = enc.Encode(record.Select(r, fields))
	}
}

func cmdFetch() {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	cfgPath := fs.String("config", "./waybacktweets.yaml", "config path")
	user := fs.String("user", "", "username override")
	from := fs.String("from", "", "start timestamp YYYYMMDD[HH[MM[SS]]]")
	to := fs.String("to", "", "end timestamp YYYYMMDD[HH[MM[SS]]]")
	limit := fs.Int("limit", 0, "max index rows per host query")
	noEmbed := fs.Bool("no-embed", false, "skip oembed enrichment")
	noStore := fs.Bool("no-store", false, "do not persist records")
	withCrawl := fs.Bool("with-crawl", false, "also query Common Crawl concurrently")
	_ = fs.Parse(os.Args[2:])

	cfg := loadConfig(*cfgPath)
	applyQueryFlags(&cfg, user, from, to, limit)
	if cfg.Account.Username == "" {
		fmt.Println("error: no username (set account.username or -user)")
		os.Exit(1)
	}

	log := logging.New(cfg.Verbose)
	metrics.StartServer(cfg.Metrics.Addr)
	client := newArchiveClient(cfg)

	var resolver assemble.EmbedResolver
	if cfg.Embed.Enabled && !*noEmbed {
		resolver = embed.NewResolver(cfg.Embed.Endpoint, log)
	}
	db := openStore(cfg, *noStore)
	if db != nil {
		defer db.Close()
	}
	emit := stdoutEmit(cfg.Output.Fields)
	ctx := context.Background()

	err := cmdlog.Run("fetch", log, func() error {
		if *withCrawl {
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				_, err := jobs.RunFetchOnce(gctx, db, client, cfg, resolver, log, emit)
				return err
			})
			g.Go(func() error {
				_, err := jobs.RunCrawlOnce(gctx, db, client, cfg, resolver, log, emit)
				return err
			})
			return g.Wait()
		}
		_, err := jobs.RunFetchOnce(ctx, db, client, cfg, resolver, log, emit)
		return err
	})
	if err != nil {
		os.Exit(1)
	}
}

func cmdCrawl() {
	fs := flag.NewFlagSet("crawl", flag.ExitOnError)
	cfgPath := fs.String("config", "./waybacktweets.yaml", "config path")
	user := fs.String("user", "", "username override")
	index := fs.String("index", "", "Common Crawl index name override")
	from := fs.String("from", "", "start timestamp YYYYMMDD[HH[MM[SS]]]")
	to := fs.String("to", "", "end timestamp YYYYMMDD[HH[MM[SS]]]")
	limit := fs.Int("limit", 0, "max index rows per host query")
	noEmbed := fs.Bool("no-embed", false, "skip oembed enrichment")
	noStore := fs.Bool("no-store", false, "do not persist records")
	_ = fs.Parse(os.Args[2:])

	cfg := loadConfig(*cfgPath)
	applyQueryFlags(&cfg, user, from, to, limit)
	if *index != "" {
		cfg.Query.CrawlIndex = *index
	}
	if cfg.Account.Username == "" {
		fmt.Println("error: no username (set account.username or -user)")
		os.Exit(1)
	}

	log := logging.New(cfg.Verbose)
	metrics.StartServer(cfg.Metrics.Addr)
	client := newArchiveClient(cfg)

	var resolver assemble.EmbedResolver
	if cfg.Embed.Enabled && !*noEmbed {
		resolver = embed.NewResolver(cfg.Embed.Endpoint, log)
	}
	db := openStore(cfg, *noStore)
	if db != nil {
		defer db.Close()
	}

	err := cmdlog.Run("crawl", log, func() error {
		_, err := jobs.RunCrawlOnce(context.Background(), db, client, cfg, resolver, log, stdoutEmit(cfg.Output.Fields))
		return err
	})
	if err != nil {
		os.Exit(1)
	}
}

func cmdExport() {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	cfgPath := fs.String("config", "./waybacktweets.yaml", "config path")
	source := fs.String("source", "", "wayback, commoncrawl, or empty for both")
	fields := fs.String("fields", "", "comma-separated field allow-list (default: config output.fields)")
	out := fs.String("out", "", "output file (default stdout)")
	_ = fs.Parse(os.Args[2:])

	cfg := loadConfig(*cfgPath)
	log := logging.New(cfg.Verbose)

	allow := cfg.Output.Fields
	if *fields != "" {
		allow = nil
		for _, f := range strings.Split(*fields, ",") {
			if f = strings.TrimSpace(f); f != "" {
				allow = append(allow, f)
			}
		}
	}

	db, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	defer db.Close()

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			fmt.Println("error:", err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}

	err = cmdlog.Run("export", log, func() error {
		n, err := db.ExportJSONL(context.Background(), w, *source, allow)
		if err != nil {
			return err
		}
		log.Info("export_done", map[string]any{"records": n})
		return nil
	})
	if err != nil {
		os.Exit(1)
	}
}
