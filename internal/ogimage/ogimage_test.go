package ogimage

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murphyslaws/murphys-laws/internal/core"
)

type fakeSource struct {
	mu    sync.Mutex
	laws  map[int64]*core.Law
	calls int
	err   error
}

func (f *fakeSource) GetLaw(_ context.Context, id int64) (*core.Law, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.laws[id], nil
}

func strPtr(s string) *string { return &s }

func sampleLaw(id int64) *core.Law {
	return &core.Law{
		ID:    id,
		Title: strPtr("Murphy's Law"),
		Text:  "Anything that can go wrong will go wrong.",
		Attributions: []core.Attribution{
			{Name: "Edward A. Murphy Jr."},
		},
	}
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(source LawSource, opts ...Option) (*Service, *int) {
	renders := 0
	svc := NewService(source, opts...)
	svc.render = func(law *core.Law) ([]byte, error) {
		renders++
		return []byte{byte(law.ID)}, nil
	}
	return svc, &renders
}

func TestRender_ProducesOpenGraphPNG(t *testing.T) {
	data, err := Render(sampleLaw(1))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, Width, img.Bounds().Dx())
	assert.Equal(t, Height, img.Bounds().Dy())

	// Accent bar along the top edge.
	r, g, b, _ := img.At(Width/2, 1).RGBA()
	assert.Equal(t, uint32(0x4f), r>>8)
	assert.Equal(t, uint32(0x46), g>>8)
	assert.Equal(t, uint32(0xe5), b>>8)
}

func TestRender_NilLaw(t *testing.T) {
	_, err := Render(nil)
	require.Error(t, err)
}

func TestRender_LongTextAndUnicode(t *testing.T) {
	law := &core.Law{
		ID:   2,
		Text: strings.Repeat("“Smart quotes” and naïve words — everywhere. ", 80),
	}
	data, err := Render(law)
	require.NoError(t, err)
	require.NotEmpty(t, data)
}

func TestWrap(t *testing.T) {
	lines := wrap("Anything that can go wrong will go wrong", measure("Anything that"))
	assert.Equal(t, []string{"Anything that", "can go wrong", "will go wrong"}, lines)

	assert.Empty(t, wrap("   ", 100))

	long := strings.Repeat("x", 100)
	for _, line := range wrap(long, measure("xxxxxxxxxx")) {
		assert.LessOrEqual(t, measure(line), measure("xxxxxxxxxx"))
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 1000))
	assert.Equal(t, "abc", truncate("abcdef", measure("abc")))
	assert.Equal(t, "a", truncate("abc", 1), "always keeps one character")
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "'quoted' \"double\" - ...", sanitize("‘quoted’ “double” — …"))
	assert.Equal(t, "caf? line two", sanitize("café\nline\ttwo"))
}

func TestLawImage_CachesRenderedImages(t *testing.T) {
	source := &fakeSource{laws: map[int64]*core.Law{1: sampleLaw(1)}}
	svc, renders := newTestService(source)

	first, err := svc.LawImage(context.Background(), 1)
	require.NoError(t, err)
	second, err := svc.LawImage(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, *renders)
	assert.Equal(t, 1, source.calls)

	stats := svc.Stats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, DefaultCacheMaxSize, stats.MaxSize)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, "50.00%", stats.HitRate)
}

func TestLawImage_MissingLaw(t *testing.T) {
	svc, renders := newTestService(&fakeSource{})

	data, err := svc.LawImage(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.Zero(t, *renders)
	assert.Zero(t, svc.Stats().Size)
}

func TestLawImage_SourceError(t *testing.T) {
	svc, _ := newTestService(&fakeSource{err: errors.New("db down")})

	_, err := svc.LawImage(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestLawImage_ExpiresEntries(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	source := &fakeSource{laws: map[int64]*core.Law{1: sampleLaw(1)}}
	svc, renders := newTestService(source, WithClock(clock.now), WithCacheMaxAge(time.Hour))

	_, err := svc.LawImage(context.Background(), 1)
	require.NoError(t, err)

	clock.advance(59 * time.Minute)
	_, err = svc.LawImage(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, *renders)

	clock.advance(time.Minute)
	_, err = svc.LawImage(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, *renders, "stale entry is rendered again")
}

func TestLawImage_EvictsLeastRecentlyUsed(t *testing.T) {
	source := &fakeSource{laws: map[int64]*core.Law{
		1: sampleLaw(1),
		2: sampleLaw(2),
		3: sampleLaw(3),
	}}
	svc, renders := newTestService(source, WithCacheMaxSize(2))
	ctx := context.Background()

	for _, id := range []int64{1, 2, 1, 3} {
		_, err := svc.LawImage(ctx, id)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, *renders)

	stats := svc.Stats()
	assert.Equal(t, 2, stats.Size)
	assert.Equal(t, uint64(1), stats.Evictions)

	// Law 1 was touched after law 2, so law 2 went first.
	_, err := svc.LawImage(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, *renders)

	_, err = svc.LawImage(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, *renders)
}

func TestClear(t *testing.T) {
	source := &fakeSource{laws: map[int64]*core.Law{1: sampleLaw(1)}}
	svc, renders := newTestService(source)
	ctx := context.Background()

	_, err := svc.LawImage(ctx, 1)
	require.NoError(t, err)
	svc.Clear()
	_, err = svc.LawImage(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, *renders, "cleared entries are rendered again")

	svc.Clear()
	stats := svc.Stats()
	assert.Zero(t, stats.Size)
	assert.Zero(t, stats.Hits)
	assert.Zero(t, stats.Misses)
	assert.Equal(t, "N/A", stats.HitRate)
}
