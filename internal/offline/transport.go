package offline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/2beens/trainor/internal/telemetry/metrics"

	log "github.com/sirupsen/logrus"
)

const (
	HeaderCacheStatus = "X-Cache"

	DefaultEntryTTL   = 24 * time.Hour
	revalidateTimeout = 30 * time.Second
)

var _ http.RoundTripper = (*Transport)(nil)

// Transport is an http.RoundTripper serving cacheable GET requests according
// to a Policy. Background revalidations are awaited by Close.
type Transport struct {
	next     http.RoundTripper
	policy   Policy
	store    Store
	entryTTL time.Duration
	metrics  *metrics.Manager

	mu         sync.Mutex
	closed     bool
	inflight   map[string]struct{}
	revalidate sync.WaitGroup
}

func NewTransport(next http.RoundTripper, policy Policy, store Store, metricsManager *metrics.Manager) *Transport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &Transport{
		next:     next,
		policy:   policy,
		store:    store,
		entryTTL: DefaultEntryTTL,
		metrics:  metricsManager,
		inflight: make(map[string]struct{}),
	}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return t.next.RoundTrip(req)
	}

	rule := t.policy.Resolve(req)
	if rule.Strategy == StrategyNetworkOnly || rule.CacheName == "" {
		return t.next.RoundTrip(req)
	}

	key := cacheKey(rule.CacheName, req)
	cached, found := loadEntry(t.store, key)

	switch rule.Strategy {
	case StrategyCacheFirst:
		if found {
			t.metrics.CacheLookup(rule.CacheName, metrics.CacheHit)
			return cached.response(req, metrics.CacheHit), nil
		}
	case StrategyStaleWhileRevalidate:
		if found {
			t.metrics.CacheLookup(rule.CacheName, metrics.CacheStale)
			t.startRevalidation(req, key)
			return cached.response(req, metrics.CacheStale), nil
		}
	default:
		return nil, fmt.Errorf("unknown cache strategy: %s", rule.Strategy)
	}

	t.metrics.CacheLookup(rule.CacheName, metrics.CacheMiss)
	return t.fetchAndStore(req, key)
}

// Close stops new background revalidations and waits for the running ones.
func (t *Transport) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.revalidate.Wait()
}

func (t *Transport) fetchAndStore(req *http.Request, key []byte) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if err := saveEntry(t.store, key, newEntry(resp, body), t.entryTTL); err != nil {
		log.Warnf("offline cache, %s: %s", req.URL, err)
	}

	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	resp.Header.Set(HeaderCacheStatus, metrics.CacheMiss)
	return resp, nil
}

func (t *Transport) startRevalidation(req *http.Request, key []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if _, running := t.inflight[string(key)]; running {
		return
	}
	t.inflight[string(key)] = struct{}{}
	t.revalidate.Add(1)

	// detached from the caller's request context
	ctx, cancel := context.WithTimeout(context.Background(), revalidateTimeout)
	bgReq := req.Clone(ctx)

	go func() {
		defer t.revalidate.Done()
		defer cancel()
		defer func() {
			t.mu.Lock()
			delete(t.inflight, string(key))
			t.mu.Unlock()
		}()

		resp, err := t.fetchAndStore(bgReq, key)
		if err != nil {
			log.Debugf("offline cache, revalidate %s: %s", bgReq.URL, err)
			return
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()
}
