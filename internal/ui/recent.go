package ui

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultRecentSize is how many submitted queries the search box remembers.
const DefaultRecentSize = 20

// Recent remembers submitted queries, most recent first. Resubmitting a
// query moves it to the front.
type Recent struct {
	cache *lru.Cache[string, struct{}]
}

// NewRecent returns a Recent holding up to size queries.
func NewRecent(size int) *Recent {
	if size <= 0 {
		size = DefaultRecentSize
	}
	cache, err := lru.New[string, struct{}](size)
	if err != nil {
		// Only returned for a non-positive size.
		panic(err)
	}
	return &Recent{cache: cache}
}

// Add records q. Blank queries are ignored.
func (r *Recent) Add(q string) {
	q = strings.TrimSpace(q)
	if q == "" {
		return
	}
	r.cache.Add(q, struct{}{})
}

// List returns remembered queries, most recent first.
func (r *Recent) List() []string {
	keys := r.cache.Keys() // oldest first
	out := make([]string, len(keys))
	for i, k := range keys {
		out[len(keys)-1-i] = k
	}
	return out
}

// Len returns the number of remembered queries.
func (r *Recent) Len() int {
	return r.cache.Len()
}
