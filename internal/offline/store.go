package offline

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coocood/freecache"
)

// Store holds encoded responses. *freecache.Cache implements it.
type Store interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte, expireSeconds int) error
	Clear()
}

var _ Store = (*freecache.Cache)(nil)

func NewStore(sizeMB int) *freecache.Cache {
	megabyte := 1024 * 1024
	return freecache.NewCache(sizeMB * megabyte)
}

type entry struct {
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"body"`
	StoredAt time.Time   `json:"stored_at"`
}

func newEntry(resp *http.Response, body []byte) entry {
	return entry{
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		StoredAt: time.Now().UTC(),
	}
}

func (e entry) response(req *http.Request, cacheStatus string) *http.Response {
	header := e.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set(HeaderCacheStatus, cacheStatus)
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status)),
		StatusCode:    e.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}

func loadEntry(store Store, key []byte) (entry, bool) {
	raw, err := store.Get(key)
	if err != nil {
		return entry{}, false
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return entry{}, false
	}
	return e, true
}

func saveEntry(store Store, key []byte, e entry, ttl time.Duration) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	if err := store.Set(key, raw, int(ttl.Seconds())); err != nil {
		return fmt.Errorf("store cache entry: %w", err)
	}
	return nil
}

// cacheKey is built from the cache name, the URL and a hash of the
// Authorization and Accept headers. Different credentials never share a key.
func cacheKey(cacheName string, req *http.Request) []byte {
	h := sha256.New()
	h.Write([]byte(req.Header.Get("Authorization")))
	h.Write([]byte{0})
	h.Write([]byte(req.Header.Get("Accept")))
	return []byte(cacheName + "|" + req.URL.String() + "|" + hex.EncodeToString(h.Sum(nil))[:16])
}
