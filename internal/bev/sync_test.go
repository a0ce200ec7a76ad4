package bev

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/bev.report/internal/timeutil"
)

type bundleCollector struct {
	mu      sync.Mutex
	bundles []*FrameBundle
}

func (c *bundleCollector) add(b *FrameBundle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bundles = append(c.bundles, b)
}

func (c *bundleCollector) wait(t *testing.T, n int) []*FrameBundle {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		got := len(c.bundles)
		c.mu.Unlock()
		if got >= n {
			break
		}
		time.Sleep(time.Millisecond)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	require.Len(t, c.bundles, n)
	out := make([]*FrameBundle, n)
	copy(out, c.bundles)
	return out
}

func stamped(at time.Time) StampedImage {
	return StampedImage{Frame: "cam_optical", At: at, Image: NewImage(2, 2)}
}

func info(at time.Time) CameraInfo {
	return CameraInfo{Frame: "cam_optical", At: at, K: identityK()}
}

func newTestSync(t *testing.T, cameras []string, clock timeutil.Clock, collector *bundleCollector) *Synchronizer {
	t.Helper()
	s, err := NewSynchronizer(SyncConfig{
		Cameras:  cameras,
		Slop:     10 * time.Millisecond,
		MaxAge:   time.Minute,
		OnBundle: collector.add,
		Clock:    clock,
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestSynchronizer_MatchesAlignedStreams(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := timeutil.NewMockClock(base)
	var c bundleCollector
	s := newTestSync(t, []string{"front", "rear"}, clock, &c)

	s.PushImage("front", stamped(base))
	s.PushInfo("front", info(base.Add(2*time.Millisecond)))
	s.PushImage("rear", stamped(base.Add(3*time.Millisecond)))
	s.PushInfo("rear", info(base.Add(time.Millisecond)))

	bundles := c.wait(t, 1)
	b := bundles[0]
	assert.NotEmpty(t, b.ID)
	require.Len(t, b.Views, 2)
	assert.Equal(t, "front", b.Views[0].Camera, "views keep configured camera order")
	assert.Equal(t, "rear", b.Views[1].Camera)
}

func TestSynchronizer_NoMatchAcrossSlop(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := timeutil.NewMockClock(base)
	var c bundleCollector
	s := newTestSync(t, []string{"front", "rear"}, clock, &c)

	s.PushImage("front", stamped(base))
	s.PushInfo("front", info(base))
	// Rear stream is 100ms behind: far outside the 10ms slop.
	s.PushImage("rear", stamped(base.Add(100*time.Millisecond)))
	s.PushInfo("rear", info(base.Add(100*time.Millisecond)))

	time.Sleep(20 * time.Millisecond)
	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Empty(t, c.bundles, "misaligned streams must not produce a bundle")
}

func TestSynchronizer_RecoversAfterDroppedMessages(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := timeutil.NewMockClock(base)
	var c bundleCollector
	s := newTestSync(t, []string{"front"}, clock, &c)

	// A stale image with no matching info, then an aligned pair.
	s.PushImage("front", stamped(base.Add(-500*time.Millisecond)))
	s.PushImage("front", stamped(base))
	s.PushInfo("front", info(base.Add(time.Millisecond)))

	bundles := c.wait(t, 1)
	assert.Equal(t, base, bundles[0].Views[0].Image.At)
}

func TestSynchronizer_EvictsStaleMessages(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := timeutil.NewMockClock(base)
	var c bundleCollector
	s, err := NewSynchronizer(SyncConfig{
		Cameras:  []string{"front"},
		Slop:     10 * time.Millisecond,
		MaxAge:   100 * time.Millisecond,
		OnBundle: c.add,
		Clock:    clock,
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)

	s.PushImage("front", stamped(base))
	// The clock advances past MaxAge before the info arrives; the queued
	// image must be evicted rather than matched.
	clock.Advance(time.Second)
	s.PushInfo("front", info(base))

	time.Sleep(20 * time.Millisecond)
	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Empty(t, c.bundles)
}

func TestSynchronizer_ConfigValidation(t *testing.T) {
	_, err := NewSynchronizer(SyncConfig{OnBundle: func(*FrameBundle) {}})
	assert.Error(t, err, "no cameras")

	_, err = NewSynchronizer(SyncConfig{Cameras: []string{"front"}})
	assert.Error(t, err, "no callback")
}
