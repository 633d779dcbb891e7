package imu

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrame_BigEndianFloats(t *testing.T) {
	b := make([]byte, FrameSize)
	for i := 0; i < NumChannels; i++ {
		binary.BigEndian.PutUint32(b[i*4:], math.Float32bits(float32(i)+0.5))
	}

	f, err := DecodeFrame(b)
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), f[SWDt])
	assert.Equal(t, float32(5.5), f.At(SWLaccX))
	assert.Equal(t, float32(29.5), f[PHRotvecZ])
}

func TestDecodeFrame_RejectsWrongLength(t *testing.T) {
	for _, n := range []int{0, 4, FrameSize - 1, FrameSize + 1} {
		_, err := DecodeFrame(make([]byte, n))
		require.ErrorIs(t, err, ErrFrameSize, "len %d", n)
	}
}

func TestEncodeFrame_RoundTrip(t *testing.T) {
	var f Frame
	f[SWGyroZ] = -3.25
	f[PHLaccY] = 9.81

	got, err := DecodeFrame(EncodeFrame(f))
	require.NoError(t, err)
	assert.Equal(t, f, got)
}

func TestResolveChannels(t *testing.T) {
	chans, err := ResolveChannels([]string{"sw_gyro_x", "ph_lacc_z"})
	require.NoError(t, err)
	assert.Equal(t, []Channel{SWGyroX, PHLaccZ}, chans)

	_, err = ResolveChannels([]string{"sw_lacc_x", "sw_magnet_x"})
	require.ErrorIs(t, err, ErrUnknownChannel)

	def, err := ResolveChannels(nil)
	require.NoError(t, err)
	assert.Equal(t, DetectionChannels, def)
}

func TestChannelNamesMatchLayout(t *testing.T) {
	assert.Equal(t, "sw_lacc_x", SWLaccX.String())
	assert.Equal(t, "ph_rotvec_z", PHRotvecZ.String())
	assert.Equal(t, Channel(20), PHLaccX)
	c, ok := ChannelByName("ph_gyro_y")
	require.True(t, ok)
	assert.Equal(t, Channel(24), c)
}

func TestMockSource_BurstIsStrongerThanIdle(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cur := base
	src := newMockSource(2*time.Second, func() time.Time { return cur })

	cur = base.Add(200 * time.Millisecond) // middle of the burst
	burst, err := src.Next()
	require.NoError(t, err)

	cur = base.Add(1200 * time.Millisecond)
	idle, err := src.Next()
	require.NoError(t, err)

	assert.Greater(t, math.Abs(float64(burst[SWLaccX])), 5.0)
	assert.Less(t, math.Abs(float64(idle[SWLaccX])), 0.1)
	assert.InDelta(t, 1.0, float64(idle[SWDt]), 1e-6)
	assert.InDelta(t, float64(burst[SWLaccX])*0.25, float64(burst[PHLaccX]), 1e-6)
}
