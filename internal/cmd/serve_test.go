package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murphyslaws/murphys-laws/internal/core"
	"github.com/murphyslaws/murphys-laws/internal/ogimage"
)

type oneLaw struct{ law *core.Law }

func (o oneLaw) GetLaw(_ context.Context, id int64) (*core.Law, error) {
	if id != o.law.ID {
		return nil, nil
	}
	return o.law, nil
}

func TestFlushImageCache(t *testing.T) {
	images := ogimage.NewService(oneLaw{law: &core.Law{ID: 3, Text: "Every solution breeds new problems."}})

	_, err := images.LawImage(context.Background(), 3)
	require.NoError(t, err)
	_, err = images.LawImage(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, 1, images.Stats().Size)

	flushImageCache(nil, images)

	stats := images.Stats()
	assert.Zero(t, stats.Size)
	assert.Zero(t, stats.Hits)
	assert.Equal(t, "N/A", stats.HitRate)
}
