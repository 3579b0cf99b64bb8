package ogimage

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/murphyslaws/murphys-laws/internal/core"
	"github.com/murphyslaws/murphys-laws/internal/metrics"
)

// Cache defaults.
const (
	DefaultCacheMaxAge  = 24 * time.Hour
	DefaultCacheMaxSize = 500
)

// LawSource loads published laws by id. A missing law is (nil, nil).
type LawSource interface {
	GetLaw(ctx context.Context, id int64) (*core.Law, error)
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Size      int    `json:"size"`
	MaxSize   int    `json:"maxSize"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	HitRate   string `json:"hitRate"`
	Evictions uint64 `json:"evictions"`
}

// Option configures a Service.
type Option func(*Service)

// WithCacheMaxAge sets how long a rendered image stays fresh.
func WithCacheMaxAge(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.maxAge = d
		}
	}
}

// WithCacheMaxSize bounds the number of cached images.
func WithCacheMaxSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSize = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

type cacheEntry struct {
	lawID      int64
	png        []byte
	renderedAt time.Time
}

// Service renders law share cards and keeps recently rendered ones in a
// least-recently-used cache.
type Service struct {
	source  LawSource
	render  func(*core.Law) ([]byte, error)
	maxAge  time.Duration
	maxSize int
	now     func() time.Time

	mu        sync.Mutex
	order     *list.List
	entries   map[int64]*list.Element
	hits      uint64
	misses    uint64
	evictions uint64
}

// NewService builds a Service reading laws from source.
func NewService(source LawSource, opts ...Option) *Service {
	s := &Service{
		source:  source,
		render:  Render,
		maxAge:  DefaultCacheMaxAge,
		maxSize: DefaultCacheMaxSize,
		now:     time.Now,
		order:   list.New(),
		entries: make(map[int64]*list.Element),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LawImage returns the PNG card for a law, or nil when the law does not
// exist or is not published.
func (s *Service) LawImage(ctx context.Context, lawID int64) ([]byte, error) {
	if png, ok := s.lookup(lawID); ok {
		return png, nil
	}

	law, err := s.source.GetLaw(ctx, lawID)
	if err != nil {
		return nil, fmt.Errorf("load law %d: %w", lawID, err)
	}
	if law == nil {
		return nil, nil
	}

	png, err := s.render(law)
	if err != nil {
		return nil, err
	}
	s.store(lawID, png)
	return png, nil
}

func (s *Service) lookup(lawID int64) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[lawID]
	if ok {
		entry := el.Value.(*cacheEntry)
		if s.now().Sub(entry.renderedAt) < s.maxAge {
			s.order.MoveToBack(el)
			s.hits++
			metrics.RecordOGImageCache("hit")
			return entry.png, true
		}
		s.order.Remove(el)
		delete(s.entries, lawID)
	}
	s.misses++
	metrics.RecordOGImageCache("miss")
	return nil, false
}

func (s *Service) store(lawID int64, png []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[lawID]; ok {
		// A concurrent request rendered the same law first.
		entry := el.Value.(*cacheEntry)
		entry.png = png
		entry.renderedAt = s.now()
		s.order.MoveToBack(el)
		return
	}

	for s.order.Len() >= s.maxSize {
		oldest := s.order.Front()
		s.order.Remove(oldest)
		delete(s.entries, oldest.Value.(*cacheEntry).lawID)
		s.evictions++
		metrics.RecordOGImageCache("eviction")
	}

	s.entries[lawID] = s.order.PushBack(&cacheEntry{
		lawID:      lawID,
		png:        png,
		renderedAt: s.now(),
	})
}

// Clear empties the cache and resets counters. The server calls it on
// SIGHUP so moderation changes reach cached cards.
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order.Init()
	s.entries = make(map[int64]*list.Element)
	s.hits, s.misses, s.evictions = 0, 0, 0
}

// Stats returns the current cache counters.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	hitRate := "N/A"
	if total := s.hits + s.misses; total > 0 {
		hitRate = fmt.Sprintf("%.2f%%", float64(s.hits)/float64(total)*100)
	}
	return Stats{
		Size:      s.order.Len(),
		MaxSize:   s.maxSize,
		Hits:      s.hits,
		Misses:    s.misses,
		HitRate:   hitRate,
		Evictions: s.evictions,
	}
}
