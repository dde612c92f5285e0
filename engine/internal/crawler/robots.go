package crawler

import (
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// robotsCache fetches and caches parsed robots.txt per host, falling back to
// allow-all when the document is missing or unfetchable.
type robotsCache struct {
	mu    sync.Mutex
	byHost map[string]*robotstxt.RobotsData
	client *http.Client
}

func newRobotsCache() *robotsCache {
	return &robotsCache{
		byHost: make(map[string]*robotstxt.RobotsData),
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Allowed reports whether userAgent may fetch rawURL, and the crawl-delay
// the site requests (zero if unspecified).
func (rc *robotsCache) Allowed(rawURL, userAgent string) (allowed bool, crawlDelay time.Duration) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true, 0
	}
	data := rc.fetch(u)
	if data == nil {
		return true, 0
	}
	group := data.FindGroup(userAgent)
	return group.Test(u.Path), group.CrawlDelay
}

func (rc *robotsCache) fetch(u *url.URL) *robotstxt.RobotsData {
	host := u.Scheme + "://" + u.Host
	rc.mu.Lock()
	if data, ok := rc.byHost[host]; ok {
		rc.mu.Unlock()
		return data
	}
	rc.mu.Unlock()

	resp, err := rc.client.Get(host + "/robots.txt")
	var data *robotstxt.RobotsData
	if err == nil {
		defer resp.Body.Close()
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
		if readErr == nil {
			data, _ = robotstxt.FromStatusAndBytes(resp.StatusCode, body)
		}
	}
	if data == nil {
		// Treat any fetch/parse failure as allow-all, per politeness convention.
		data, _ = robotstxt.FromStatusAndBytes(http.StatusNotFound, nil)
	}

	rc.mu.Lock()
	rc.byHost[host] = data
	rc.mu.Unlock()
	return data
}
