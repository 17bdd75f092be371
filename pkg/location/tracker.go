// Package location fuses device position fixes and orientation samples
// into a single live UserPosition signal.
package location

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Retcom59/heritage-app/pkg/model"
)

// Source is the device location source. Watch starts a continuous
// high-accuracy subscription that recenters the map on the first fix;
// there is no cancellation token, activation is append-only.
type Source interface {
	Watch(ctx context.Context) error
}

// PositionFix is one reading from the device location source.
type PositionFix struct {
	Lat      float64  `json:"lat"`
	Lon      float64  `json:"lon"`
	Accuracy float64  `json:"accuracy"`
	Heading  *float64 `json:"heading,omitempty"`
}

// OrientationSample is one reading from the device orientation source.
// CompassHeading is the platform compass value where available; Alpha
// is the generic device rotation.
type OrientationSample struct {
	Alpha          *float64 `json:"alpha,omitempty"`
	CompassHeading *float64 `json:"compass_heading,omitempty"`
}

// Subscriber receives a copy of the fused position on every update.
type Subscriber func(model.UserPosition)

// Tracker owns the UserPosition. Other components read it through
// Position() or a subscription and never mutate it.
type Tracker struct {
	mu       sync.RWMutex
	source   Source
	logger   *slog.Logger
	requests uint64
	watching bool

	hasFix  bool
	lat     float64
	lon     float64
	heading *float64
	// Once an orientation-derived heading has been seen, the position
	// source's own heading is never accepted again.
	compassSeen bool

	subs []Subscriber
}

// NewTracker creates a tracker bound to a device location source.
func NewTracker(src Source) *Tracker {
	return &Tracker{
		source: src,
		logger: slog.With("component", "location"),
	}
}

// Subscribe registers fn for position updates. Not safe to call
// concurrently with updates; wire subscribers during startup.
func (t *Tracker) Subscribe(fn Subscriber) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subs = append(t.subs, fn)
}

// Request records a location request. The first request starts the
// watch-mode subscription; later requests only bump the counter, since
// the subscription has no built-in teardown.
func (t *Tracker) Request(ctx context.Context) {
	t.mu.Lock()
	t.requests++
	start := !t.watching
	if start {
		t.watching = true
	}
	n := t.requests
	t.mu.Unlock()

	if !start {
		t.logger.Debug("Location already watching", "requests", n)
		return
	}

	t.logger.Info("Starting location watch", "requests", n)
	if err := t.source.Watch(ctx); err != nil {
		// Tracking stalls until a fix arrives; nothing is cleared.
		t.logger.Warn("Location source failed to start", "error", err)
	}
}

// Requests returns the monotonically increasing request counter.
func (t *Tracker) Requests() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.requests
}

// OnPosition ingests a position fix from the device source.
func (t *Tracker) OnPosition(fix PositionFix) {
	t.mu.Lock()
	t.hasFix = true
	t.lat = fix.Lat
	t.lon = fix.Lon

	// The source heading is a one-time fallback: accepted only while
	// no heading has ever been established, never clearing a known one.
	if fix.Heading != nil && t.heading == nil && !t.compassSeen {
		h := *fix.Heading
		t.heading = &h
	}
	pos := t.snapshotLocked()
	subs := t.subs
	t.mu.Unlock()

	t.publish(pos, subs)
}

// OnOrientation ingests an orientation sample. The fused compass value
// is CompassHeading when present, otherwise 360-alpha; a sample without
// either is ignored so an established heading is never un-set.
func (t *Tracker) OnOrientation(sample OrientationSample) {
	compass := sample.CompassHeading
	if compass == nil && sample.Alpha != nil {
		derived := 360 - *sample.Alpha
		compass = &derived
	}
	if compass == nil {
		return
	}

	t.mu.Lock()
	h := *compass
	t.heading = &h
	t.compassSeen = true
	if !t.hasFix {
		// Heading is retained and published with the first fix.
		t.mu.Unlock()
		return
	}
	pos := t.snapshotLocked()
	subs := t.subs
	t.mu.Unlock()

	t.publish(pos, subs)
}

// OnError ingests a position-source error. Tracking stalls until the
// next successful fix; known state is kept.
func (t *Tracker) OnError(err error) {
	t.logger.Warn("Location source error", "error", err)
}

// Position returns the latest fused position, or false before the
// first fix.
func (t *Tracker) Position() (model.UserPosition, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.hasFix {
		return model.UserPosition{}, false
	}
	return t.snapshotLocked(), true
}

func (t *Tracker) snapshotLocked() model.UserPosition {
	pos := model.UserPosition{Lat: t.lat, Lon: t.lon}
	if t.heading != nil {
		h := *t.heading
		pos.Heading = &h
	}
	return pos
}

func (t *Tracker) publish(pos model.UserPosition, subs []Subscriber) {
	for _, fn := range subs {
		fn(pos)
	}
}
