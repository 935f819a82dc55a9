package offline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/2beens/trainor/internal/telemetry/metrics"
	"github.com/2beens/trainor/pkg"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

const (
	PathOffline = "/offline"
	PathIndex   = "/"
)

// Fallback proxies requests to the front-end origin. When the origin cannot
// be reached, navigations are answered with the precached offline page, then
// with the precached index page.
type Fallback struct {
	target    *url.URL
	transport http.RoundTripper
	proxy     *httputil.ReverseProxy
	store     Store
	metrics   *metrics.Manager
}

func NewFallback(frontendURL string, transport http.RoundTripper, store Store, metricsManager *metrics.Manager) (*Fallback, error) {
	target, err := url.Parse(strings.TrimRight(frontendURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse frontend url: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid frontend url: %q", frontendURL)
	}
	if transport == nil {
		transport = http.DefaultTransport
	}

	f := &Fallback{
		target:    target,
		transport: transport,
		store:     store,
		metrics:   metricsManager,
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.Transport = transport
	proxy.ErrorHandler = f.handleProxyError
	f.proxy = proxy

	return f, nil
}

func (f *Fallback) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.proxy.ServeHTTP(w, r)
}

// Precache fetches the given front-end paths and keeps them for offline use.
// Paths failing to load are reported together, the rest are still stored.
func (f *Fallback) Precache(ctx context.Context, paths []string) error {
	var errs error
	for _, p := range paths {
		if err := f.precache(ctx, p); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("precache %s: %w", p, err))
			continue
		}
		log.Debugf("offline: precached %s", p)
	}
	return errs
}

func (f *Fallback) precache(ctx context.Context, p string) error {
	pageURL := f.target.JoinPath(p)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/html")

	resp, err := f.transport.RoundTrip(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	return saveEntry(f.store, pageKey(p), newEntry(resp, body), 0)
}

func (f *Fallback) handleProxyError(w http.ResponseWriter, r *http.Request, proxyErr error) {
	if !IsNavigation(r) {
		log.Errorf("offline: proxy %s: %s", r.URL.Path, proxyErr)
		pkg.WriteResponse(w, pkg.ContentType.Text, "front-end unreachable", http.StatusBadGateway)
		return
	}

	log.Warnf("offline: navigation to %s failed: %s, serving fallback page", r.URL.Path, proxyErr)
	for _, p := range []string{PathOffline, PathIndex} {
		page, found := loadEntry(f.store, pageKey(p))
		if !found {
			continue
		}
		f.metrics.CacheLookup(CachePages, metrics.CacheHit)
		for k, v := range page.Header {
			w.Header()[k] = v
		}
		w.Header().Set(HeaderCacheStatus, metrics.CacheHit)
		w.Header().Del("Content-Length")
		w.WriteHeader(page.Status)
		if _, err := w.Write(page.Body); err != nil {
			log.Errorf("offline: write fallback page: %s", err)
		}
		return
	}

	f.metrics.CacheLookup(CachePages, metrics.CacheMiss)
	w.Header().Set("Retry-After", "30")
	pkg.WriteResponse(w, pkg.ContentType.Text, "offline", http.StatusServiceUnavailable)
}

func pageKey(p string) []byte {
	if p == "" {
		p = PathIndex
	}
	return []byte(CachePages + "|" + p)
}
