package arena

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_FitMode_String(t *testing.T) {
	assert.Equal(t, "first", FirstFit.String())
	assert.Equal(t, "best", BestFit.String())
	assert.Equal(t, "worst", WorstFit.String())
	assert.Equal(t, "FitMode(9)", FitMode(9).String())
}

func Test_ParseFitMode(t *testing.T) {
	for _, m := range []FitMode{FirstFit, BestFit, WorstFit} {
		parsed, err := ParseFitMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}

	_, err := ParseFitMode("fastest")
	require.Error(t, err)
}

func Test_FitMode_Better(t *testing.T) {
	assert.True(t, BestFit.Better(10, 20))
	assert.False(t, BestFit.Better(20, 10))
	assert.False(t, BestFit.Better(10, 10), "ties keep the earlier block")

	assert.True(t, WorstFit.Better(20, 10))
	assert.False(t, WorstFit.Better(10, 20))
	assert.False(t, WorstFit.Better(10, 10), "ties keep the earlier block")

	assert.False(t, FirstFit.Better(10, 20))
}

func Test_Snapshot_Totals(t *testing.T) {
	blocks := []BlockInfo{
		{Size: 104, Occupied: true},
		{Size: 224, Occupied: false},
		{Size: 104, Occupied: true},
		{Size: 568, Occupied: false},
	}
	assert.Equal(t, 792, TotalFree(blocks))
	assert.Equal(t, 1000, TotalSize(blocks))

	assert.Zero(t, TotalFree(nil))
	assert.Zero(t, TotalSize(nil))
}

func Test_BlocksAttr_Format(t *testing.T) {
	attr := BlocksAttr([]BlockInfo{
		{Size: 104, Occupied: true},
		{Size: 872, Occupied: false},
	})
	assert.Equal(t, "blocks", attr.Key)
	assert.Equal(t, "occup 104|avail 872", attr.Value.String())

	assert.Equal(t, "", BlocksAttr(nil).Value.String())
}

func Test_Log_NilLoggerIsSilent(t *testing.T) {
	// Must not panic.
	Log(nil, slog.LevelInfo, "ignored", "k", "v")
	Log(nil, LevelTrace, "ignored")
	Log(nil, LevelCritical, "ignored")
}

func Test_HeapUpstream(t *testing.T) {
	up := HeapUpstream{}

	region, err := up.Acquire(128, 8)
	require.NoError(t, err)
	assert.Len(t, region, 128)
	require.NoError(t, up.Release(region))

	_, err = up.Acquire(-1, 8)
	require.ErrorIs(t, err, ErrUpstream)
}

func Test_MmapUpstream(t *testing.T) {
	up := MmapUpstream{}

	region, err := up.Acquire(1<<16, 8)
	require.NoError(t, err)
	require.Len(t, region, 1<<16)

	region[0] = 0xFF
	region[len(region)-1] = 0xEE
	assert.Equal(t, byte(0xFF), region[0])

	require.NoError(t, up.Release(region))

	empty, err := up.Acquire(0, 8)
	require.NoError(t, err)
	require.NoError(t, up.Release(empty))
}

func Test_ApplyOptions_Defaults(t *testing.T) {
	cfg := ApplyOptions(nil)
	assert.Equal(t, HeapUpstream{}, cfg.Upstream)
	assert.Nil(t, cfg.Logger)
	assert.Equal(t, FirstFit, cfg.Fit)

	log := slog.Default()
	cfg = ApplyOptions([]Option{
		WithUpstream(MmapUpstream{}),
		WithLogger(log),
		WithFitMode(WorstFit),
	})
	assert.Equal(t, MmapUpstream{}, cfg.Upstream)
	assert.Same(t, log, cfg.Logger)
	assert.Equal(t, WorstFit, cfg.Fit)
}
