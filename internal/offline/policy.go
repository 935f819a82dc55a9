// Package offline keeps the app usable on a flaky network: GET responses of
// the backend and image requests are cached by a round tripper, and page
// navigations fall back to precached pages.
package offline

import (
	"net/http"
	"net/url"
	"path"
	"strings"
)

type Strategy string

const (
	// StrategyStaleWhileRevalidate serves a cached response right away and
	// refreshes it in the background.
	StrategyStaleWhileRevalidate Strategy = "stale-while-revalidate"
	// StrategyCacheFirst only goes to the network on a miss.
	StrategyCacheFirst Strategy = "cache-first"
	StrategyNetworkOnly Strategy = "network-only"

	CacheAPI   = "api-cache"
	CacheImage = "image-cache"
	CachePages = "pages"
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".svg":  true,
	".ico":  true,
	".avif": true,
}

type Rule struct {
	Name      string
	Match     func(r *http.Request) bool
	Strategy  Strategy
	CacheName string
}

type Policy struct {
	Rules []Rule
}

var networkOnly = Rule{
	Name:     "default",
	Strategy: StrategyNetworkOnly,
}

// Resolve returns the first rule matching the request, or a network only rule.
func (p Policy) Resolve(r *http.Request) Rule {
	for _, rule := range p.Rules {
		if rule.Match != nil && rule.Match(r) {
			return rule
		}
	}
	return networkOnly
}

// DefaultPolicy caches backend API calls with stale-while-revalidate and
// images with cache-first. Requests to any *.supabase.co host, or to the
// origin of apiURL, count as backend API calls.
func DefaultPolicy(apiURL string) Policy {
	var apiHost string
	if u, err := url.Parse(apiURL); err == nil {
		apiHost = strings.ToLower(u.Host)
	}

	return Policy{
		Rules: []Rule{
			{
				Name: "supabase-api",
				Match: func(r *http.Request) bool {
					host := strings.ToLower(r.URL.Host)
					if strings.HasSuffix(r.URL.Hostname(), ".supabase.co") {
						return true
					}
					return apiHost != "" && host == apiHost
				},
				Strategy:  StrategyStaleWhileRevalidate,
				CacheName: CacheAPI,
			},
			{
				Name:      "images",
				Match:     IsImageRequest,
				Strategy:  StrategyCacheFirst,
				CacheName: CacheImage,
			},
		},
	}
}

// IsImageRequest matches image extensions, image Accept headers and lottie
// animations.
func IsImageRequest(r *http.Request) bool {
	if imageExtensions[strings.ToLower(path.Ext(r.URL.Path))] {
		return true
	}
	if strings.HasPrefix(r.Header.Get("Accept"), "image/") {
		return true
	}
	return strings.Contains(strings.ToLower(r.URL.String()), "lottie")
}

// IsNavigation reports whether the request is a page load of the browser.
func IsNavigation(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	if r.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
