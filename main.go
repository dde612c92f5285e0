package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/99souls/webfetcher/engine"
	"github.com/99souls/webfetcher/engine/internal/output/filesink"
	"github.com/99souls/webfetcher/engine/internal/output/stdout"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		outputDir      string
		timeout        time.Duration
		rawParserMode  bool
		contentFilter  string
		crawlMode      bool
		maxCrawlDepth  int
		maxPages       int
		crawlDelay     time.Duration
		jsonOutput     bool
		htmlSnapshot   bool
		downloadAssets bool
		renderPolicy   string
		templateDir    string
	)

	flag.StringVar(&outputDir, "output", ".", "directory to write fetched Markdown documents into")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "per-fetch timeout")
	flag.BoolVar(&rawParserMode, "raw-parser", false, "skip declarative template matching and use the generic template only")
	flag.StringVar(&contentFilter, "content-filter", "standard", "content-filter level (standard|strict|none); reserved for the parsing collaborator")
	flag.BoolVar(&crawlMode, "crawl", false, "follow same-host links from the given URL instead of fetching it alone")
	flag.IntVar(&maxCrawlDepth, "max-crawl-depth", 2, "maximum link-following depth in crawl mode")
	flag.IntVar(&maxPages, "max-pages", 50, "maximum pages fetched in crawl mode")
	flag.DurationVar(&crawlDelay, "crawl-delay", time.Second, "minimum delay between fetches in crawl mode")
	flag.BoolVar(&jsonOutput, "json", false, "stream rendered documents as Markdown to stdout instead of writing files")
	flag.BoolVar(&htmlSnapshot, "html-snapshot", false, "reserved: would also persist the raw fetched HTML alongside the Markdown")
	flag.BoolVar(&downloadAssets, "download-assets", false, "reserved: asset download is out of scope for this engine")
	flag.StringVar(&renderPolicy, "render-policy", "markdown", "reserved: output rendering policy")
	flag.StringVar(&templateDir, "templates", "templates", "directory of declarative parser templates")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: webfetcher [flags] <url>")
		return 2
	}
	startURL := flag.Arg(0)

	cfg := engine.Defaults()
	cfg.FetchTimeout = timeout
	cfg.MaxDepth = maxCrawlDepth
	cfg.MaxPages = maxPages
	cfg.CrawlDelay = crawlDelay
	cfg.TemplateDir = templateDir
	cfg.CrawlerEnabled = crawlMode
	if rawParserMode {
		cfg.TemplateDir = "" // empty directory: loader falls back to the generic template for every URL
	}
	_ = contentFilter
	_ = htmlSnapshot
	_ = downloadAssets
	_ = renderPolicy

	eng, err := engine.New(cfg)
	if err != nil {
		log.Printf("create engine: %v", err)
		return 1
	}
	defer func() { _ = eng.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		cancel()
	}()

	if crawlMode {
		return runCrawl(ctx, eng, startURL, outputDir, jsonOutput)
	}
	return runSingle(ctx, eng, startURL, outputDir, jsonOutput)
}

func runSingle(ctx context.Context, eng *engine.Engine, startURL, outputDir string, jsonOutput bool) int {
	doc, err := eng.FetchOne(ctx, startURL)
	if err != nil {
		log.Printf("fetch %s: %v", startURL, err)
		return 1
	}
	if jsonOutput {
		s := stdout.New()
		if err := s.Write(doc); err != nil {
			log.Printf("write: %v", err)
			return 1
		}
		return 0
	}
	s, err := filesink.New(outputDir)
	if err != nil {
		log.Printf("create output sink: %v", err)
		return 1
	}
	if err := s.Write(doc); err != nil {
		log.Printf("write %s: %v", startURL, err)
		return 1
	}
	return 0
}

func runCrawl(ctx context.Context, eng *engine.Engine, startURL, outputDir string, jsonOutput bool) int {
	docs, stats, err := eng.Crawl(ctx, startURL)
	if err != nil {
		log.Printf("crawl %s: %v", startURL, err)
		return 1
	}

	var writeErr error
	if jsonOutput {
		s := stdout.New()
		for _, d := range docs {
			if err := s.Write(d); err != nil {
				writeErr = err
			}
		}
	} else {
		s, err := filesink.New(outputDir)
		if err != nil {
			log.Printf("create output sink: %v", err)
			return 1
		}
		for _, d := range docs {
			if err := s.Write(d); err != nil {
				writeErr = err
			}
		}
	}
	if writeErr != nil {
		log.Printf("write: %v", writeErr)
		return 1
	}

	log.Printf("crawl complete: %d pages fetched, %d failed, incomplete=%v (%s)",
		stats.ProcessedPages, stats.FailedPages, stats.Incomplete, stats.IncompleteDueTo)
	return 0
}
