package location

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Retcom59/heritage-app/pkg/model"
)

type fakeSource struct {
	starts atomic.Int64
}

func (f *fakeSource) Watch(ctx context.Context) error {
	f.starts.Add(1)
	return nil
}

func ptr(v float64) *float64 { return &v }

func TestRequestStartsWatchOnce(t *testing.T) {
	src := &fakeSource{}
	tr := NewTracker(src)

	tr.Request(context.Background())
	tr.Request(context.Background())
	tr.Request(context.Background())

	assert.Equal(t, int64(1), src.starts.Load())
	assert.Equal(t, uint64(3), tr.Requests())
}

func TestPositionBeforeFirstFix(t *testing.T) {
	tr := NewTracker(&fakeSource{})

	_, ok := tr.Position()
	assert.False(t, ok)
}

func TestCompassHeadingPreferred(t *testing.T) {
	tr := NewTracker(&fakeSource{})

	tr.OnPosition(PositionFix{Lat: 41, Lon: 29})
	tr.OnOrientation(OrientationSample{Alpha: ptr(90), CompassHeading: ptr(45)})

	pos, ok := tr.Position()
	require.True(t, ok)
	require.NotNil(t, pos.Heading)
	assert.InDelta(t, 45, *pos.Heading, 1e-9)
}

func TestAlphaFallback(t *testing.T) {
	tr := NewTracker(&fakeSource{})

	tr.OnPosition(PositionFix{Lat: 41, Lon: 29})
	tr.OnOrientation(OrientationSample{Alpha: ptr(90)})

	pos, _ := tr.Position()
	require.NotNil(t, pos.Heading)
	assert.InDelta(t, 270, *pos.Heading, 1e-9)
}

func TestEmptyOrientationKeepsHeading(t *testing.T) {
	tr := NewTracker(&fakeSource{})

	tr.OnPosition(PositionFix{Lat: 41, Lon: 29})
	tr.OnOrientation(OrientationSample{CompassHeading: ptr(120)})
	tr.OnOrientation(OrientationSample{})

	pos, _ := tr.Position()
	require.NotNil(t, pos.Heading)
	assert.InDelta(t, 120, *pos.Heading, 1e-9)
}

func TestSourceHeadingAcceptedOnlyAsFirst(t *testing.T) {
	tr := NewTracker(&fakeSource{})

	// No heading yet: the fix heading is accepted
	tr.OnPosition(PositionFix{Lat: 41, Lon: 29, Heading: ptr(10)})
	pos, _ := tr.Position()
	require.NotNil(t, pos.Heading)
	assert.InDelta(t, 10, *pos.Heading, 1e-9)

	// Established heading: a later fix heading is ignored
	tr.OnPosition(PositionFix{Lat: 41.001, Lon: 29.001, Heading: ptr(200)})
	pos, _ = tr.Position()
	assert.InDelta(t, 10, *pos.Heading, 1e-9)
}

func TestSourceHeadingIgnoredAfterCompass(t *testing.T) {
	tr := NewTracker(&fakeSource{})

	tr.OnOrientation(OrientationSample{CompassHeading: ptr(80)})
	tr.OnPosition(PositionFix{Lat: 41, Lon: 29, Heading: ptr(5)})

	pos, ok := tr.Position()
	require.True(t, ok)
	require.NotNil(t, pos.Heading)
	assert.InDelta(t, 80, *pos.Heading, 1e-9)
}

func TestOrientationBeforeFixNotPublished(t *testing.T) {
	tr := NewTracker(&fakeSource{})

	var published []model.UserPosition
	tr.Subscribe(func(p model.UserPosition) { published = append(published, p) })

	tr.OnOrientation(OrientationSample{CompassHeading: ptr(30)})
	assert.Empty(t, published)

	tr.OnPosition(PositionFix{Lat: 41, Lon: 29})
	require.Len(t, published, 1)
	require.NotNil(t, published[0].Heading)
	assert.InDelta(t, 30, *published[0].Heading, 1e-9)
}

func TestErrorKeepsLastFix(t *testing.T) {
	tr := NewTracker(&fakeSource{})

	tr.OnPosition(PositionFix{Lat: 41, Lon: 29})
	tr.OnError(assert.AnError)

	pos, ok := tr.Position()
	require.True(t, ok)
	assert.Equal(t, 41.0, pos.Lat)
}
