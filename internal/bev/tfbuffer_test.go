package bev

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTFBuffer_StaticAnswersAnyTime(t *testing.T) {
	tf := NewTFBuffer(8, 10*time.Millisecond)
	tf.SetStatic("cam_optical", "base_link", Quaternion{X: 1}, [3]float64{0, 0, 1.2})

	for _, at := range []time.Time{{}, time.Now(), time.Now().Add(-time.Hour)} {
		pose, err := tf.Lookup("cam_optical", "base_link", at)
		require.NoError(t, err)
		assert.Equal(t, [3]float64{0, 0, 1.2}, pose.Translation)
	}
}

func TestTFBuffer_NearestWithinTolerance(t *testing.T) {
	tf := NewTFBuffer(8, 20*time.Millisecond)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		tf.Insert(PoseStamped{
			Target:      "cam",
			Source:      "base_link",
			At:          base.Add(time.Duration(i) * 100 * time.Millisecond),
			Translation: [3]float64{float64(i), 0, 0},
		})
	}

	pose, err := tf.Lookup("cam", "base_link", base.Add(105*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 1.0, pose.Translation[0], "should pick the nearest stamped pose")

	_, err = tf.Lookup("cam", "base_link", base.Add(150*time.Millisecond))
	require.Error(t, err, "50ms gap exceeds 20ms tolerance")
	assert.True(t, errors.Is(err, ErrTransformNotFound))
}

func TestTFBuffer_ZeroTimeMeansLatest(t *testing.T) {
	tf := NewTFBuffer(8, time.Millisecond)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	tf.Insert(PoseStamped{Target: "cam", Source: "base_link", At: base, Translation: [3]float64{1, 0, 0}})
	tf.Insert(PoseStamped{Target: "cam", Source: "base_link", At: base.Add(time.Second), Translation: [3]float64{2, 0, 0}})

	pose, err := tf.Lookup("cam", "base_link", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2.0, pose.Translation[0])
}

func TestTFBuffer_UnknownPair(t *testing.T) {
	tf := NewTFBuffer(8, time.Millisecond)
	_, err := tf.Lookup("nope", "base_link", time.Now())
	assert.True(t, errors.Is(err, ErrTransformNotFound))
}

func TestTFBuffer_HistoryBound(t *testing.T) {
	tf := NewTFBuffer(2, 0)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		tf.Insert(PoseStamped{
			Target:      "cam",
			Source:      "base_link",
			At:          base.Add(time.Duration(i) * time.Second),
			Translation: [3]float64{float64(i), 0, 0},
		})
	}
	// Oldest entries were evicted; the nearest match for t=0 is the
	// oldest retained pose.
	pose, err := tf.Lookup("cam", "base_link", base)
	require.NoError(t, err)
	assert.Equal(t, 3.0, pose.Translation[0])
}
