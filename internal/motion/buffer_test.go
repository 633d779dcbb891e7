package motion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/imu_gesture/internal/imu"
)

func sampleAt(ts float64, v float32) imu.Sample {
	var f imu.Frame
	f[imu.SWLaccX] = v
	return imu.Sample{Time: ts, Values: f}
}

func TestBuffer_RangeIsInclusiveAndOrdered(t *testing.T) {
	b := NewBuffer(16)
	for i := 0; i < 10; i++ {
		b.Add(sampleAt(float64(i)*0.1, float32(i)))
	}

	w := b.Range(0.2, 0.5)
	require.Equal(t, 4, w.Len())
	for i, ts := range w.Times {
		assert.InDelta(t, 0.2+float64(i)*0.1, ts, 1e-9)
		assert.Equal(t, float32(i+2), w.Frames[i][imu.SWLaccX])
	}

	assert.Equal(t, 0, b.Range(5, 6).Len())
}

func TestBuffer_RangeMatchesBruteForce(t *testing.T) {
	b := NewBuffer(8)
	var all []float64
	for i := 0; i < 20; i++ {
		ts := float64(i) * 0.013
		b.Add(sampleAt(ts, float32(i)))
		all = append(all, ts)
	}
	kept := all[len(all)-8:]

	for _, r := range [][2]float64{{0, 1}, {kept[2], kept[5]}, {kept[0], kept[0]}, {0.1, 0.2}} {
		var want []float64
		for _, ts := range kept {
			if ts >= r[0] && ts <= r[1] {
				want = append(want, ts)
			}
		}
		assert.Equal(t, want, b.Range(r[0], r[1]).Times, "range %v", r)
	}
}

func TestBuffer_EvictsOldest(t *testing.T) {
	b := NewBuffer(3)
	for i := 0; i < 5; i++ {
		b.Add(sampleAt(float64(i), float32(i)))
	}
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, 3, b.Cap())
	assert.Equal(t, []float64{2, 3, 4}, b.Recent(10).Times)
}

func TestBuffer_RecentMostRecentLast(t *testing.T) {
	b := NewBuffer(10)
	for i := 0; i < 6; i++ {
		b.Add(sampleAt(float64(i), float32(i)))
	}
	w := b.Recent(2)
	assert.Equal(t, []float64{4, 5}, w.Times)
	assert.Equal(t, float32(5), w.Frames[1][imu.SWLaccX])
	assert.Equal(t, 0, b.Recent(0).Len())
}

func TestBuffer_Clear(t *testing.T) {
	b := NewBuffer(4)
	b.Add(sampleAt(1, 1))
	b.Add(sampleAt(2, 2))
	b.Clear()
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 0, b.Recent(4).Len())

	b.Add(sampleAt(3, 3))
	assert.Equal(t, []float64{3}, b.Recent(4).Times)
}

func TestWindow_Column(t *testing.T) {
	b := NewBuffer(4)
	s := sampleAt(1, 2)
	s.Values[imu.SWGyroZ] = -1
	b.Add(s)

	cols := b.Recent(1).Column([]imu.Channel{imu.SWGyroZ, imu.SWLaccX})
	assert.Equal(t, [][]float64{{-1, 2}}, cols)
}
