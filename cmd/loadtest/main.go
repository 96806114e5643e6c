// Command loadtest replays readers typing into the search box against a
// running search service. Every keystroke is a search in the reader's
// session, so the run exercises stale-query handling, the result cache and
// the batch pager together.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
)

var cli struct {
	URL         string        `help:"Base URL of the search service." default:"http://localhost:8080"`
	Concurrency int           `help:"Simulated readers." default:"10"`
	Duration    time.Duration `help:"Test duration." default:"30s"`
	Keystroke   time.Duration `help:"Pause between keystrokes." default:"80ms"`
	Lang        string        `help:"Language to search." default:"en"`
	More        bool          `help:"Fetch the next verse batch after each completed term." default:"true" negatable:""`
	Terms       []string      `help:"Terms readers type." default:"god,mercy,most gracious,patience,the heavens,19,moses pharaoh,paradise"`
}

type searchResponse struct {
	SessionID string `json:"sessionId"`
	CacheHit  bool   `json:"cacheHit"`
	Total     int    `json:"total"`
	Pages     map[string]struct {
		Remaining int `json:"remaining"`
	} `json:"pages"`
}

func main() {
	kong.Parse(&cli,
		kong.Name("loadtest"),
		kong.Description("Search-as-you-type load generator."),
		kong.UsageOnError(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cli.Duration)
	defer cancel()

	fmt.Println("=== Scripture Search Load Test ===")
	fmt.Printf("Target:      %s\n", cli.URL)
	fmt.Printf("Readers:     %d\n", cli.Concurrency)
	fmt.Printf("Duration:    %s\n", cli.Duration)
	fmt.Printf("Terms:       %d\n", len(cli.Terms))
	fmt.Println()

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cli.Concurrency * 2,
			MaxIdleConnsPerHost: cli.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	stats := NewStats()
	start := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < cli.Concurrency; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			r := &reader{client: client, stats: stats}
			for i := id; ctx.Err() == nil; i++ {
				r.typeTerm(ctx, cli.Terms[i%len(cli.Terms)])
			}
		}(w)
	}
	wg.Wait()

	stats.Print(os.Stdout, time.Since(start))
	if stats.Total() == 0 {
		fmt.Println("\nWARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

// reader keeps one session across every term it types.
type reader struct {
	client *http.Client
	stats  *Stats
	sid    string
}

func (r *reader) typeTerm(ctx context.Context, term string) {
	var last *searchResponse
	for _, prefix := range Prefixes(term) {
		params := url.Values{"q": {prefix}, "lang": {cli.Lang}}
		if r.sid != "" {
			params.Set("sid", r.sid)
		}
		var resp searchResponse
		if !r.get(ctx, "search", "/api/v1/search?"+params.Encode(), &resp) {
			return
		}
		if resp.SessionID != "" {
			r.sid = resp.SessionID
		}
		last = &resp
		if !sleep(ctx, cli.Keystroke) {
			return
		}
	}
	if cli.More && last != nil && last.Pages["verses"].Remaining > 0 {
		params := url.Values{"sid": {r.sid}, "category": {"verses"}}
		r.get(ctx, "more", "/api/v1/search/more?"+params.Encode(), nil)
	}
}

// get records the request and decodes a 200 body into out. It returns false
// once ctx is done.
func (r *reader) get(ctx context.Context, kind, path string, out *searchResponse) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cli.URL+path, nil)
	if err != nil {
		r.stats.Record(kind, 0, 0, false, err)
		return false
	}
	start := time.Now()
	resp, err := r.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		r.stats.Record(kind, elapsed, 0, false, err)
		return true
	}
	defer resp.Body.Close()

	hit := false
	if resp.StatusCode == http.StatusOK && out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err == nil {
			hit = out.CacheHit
		}
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	r.stats.Record(kind, elapsed, resp.StatusCode, hit, nil)
	return true
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
