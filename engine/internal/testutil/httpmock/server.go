// Package httpmock is a tiny route-matching HTTP test server for exercising
// strategies and the crawler against canned responses instead of the live
// network.
package httpmock

import (
	"context"
	"log"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// RouteSpec is one canned response, matched against a request path by
// substring, prefix, or regex.
type RouteSpec struct {
	Pattern     string
	Regex       bool
	Status      int
	Body        string
	Headers     map[string]string
	Delay       time.Duration
	MatchPrefix bool
}

// MockServer serves RouteSpecs in order of longest pattern first, so a more
// specific route always wins over a shorter prefix.
type MockServer struct {
	server  *httptest.Server
	mux     sync.RWMutex
	ordered []*RouteSpec
}

func NewServer(routes []RouteSpec) *MockServer {
	ms := &MockServer{ordered: make([]*RouteSpec, 0, len(routes))}
	for i := range routes {
		r := routes[i]
		if r.Status == 0 {
			r.Status = http.StatusOK
		}
		ms.ordered = append(ms.ordered, &r)
	}
	sort.SliceStable(ms.ordered, func(i, j int) bool {
		return len(ms.ordered[i].Pattern) > len(ms.ordered[j].Pattern)
	})
	ms.server = httptest.NewServer(http.HandlerFunc(ms.handle))
	return ms
}

func (m *MockServer) URL() string { return m.server.URL }
func (m *MockServer) Close()      { m.server.Close() }

func (m *MockServer) handle(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	m.mux.RLock()
	defer m.mux.RUnlock()
	for _, spec := range m.ordered {
		if spec.Regex {
			if matched, _ := regexp.MatchString(spec.Pattern, path); !matched {
				continue
			}
		} else if spec.MatchPrefix {
			if !strings.HasPrefix(path, spec.Pattern) {
				continue
			}
		} else if !strings.Contains(path, spec.Pattern) {
			continue
		}
		if spec.Delay > 0 {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(spec.Delay):
			}
		}
		for k, v := range spec.Headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(spec.Status)
		_, _ = w.Write([]byte(spec.Body))
		return
	}
	log.Printf("httpmock: unmatched path %s", path)
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("not found"))
}

// MustGet issues a GET against the mock server, panicking the caller's test
// only via the returned error — it never panics itself.
func (m *MockServer) MustGet(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.URL()+path, nil)
	if err != nil {
		return nil, err
	}
	return http.DefaultClient.Do(req)
}
