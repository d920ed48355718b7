package interval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, min int) time.Time {
	return time.Date(2025, time.March, 3, hour, min, 0, 0, time.UTC)
}

func TestMergeCoalescesOverlapping(t *testing.T) {
	spans := []Span{
		{Start: at(10, 0), End: at(10, 30)},
		{Start: at(10, 25), End: at(11, 0)},
	}

	merged := Merge(spans)

	require.Len(t, merged, 1)
	assert.Equal(t, at(10, 0), merged[0].Start)
	assert.Equal(t, at(11, 0), merged[0].End)
}

func TestMergeCoalescesAdjacent(t *testing.T) {
	merged := Merge([]Span{
		{Start: at(9, 0), End: at(10, 0)},
		{Start: at(10, 0), End: at(10, 30)},
	})

	require.Len(t, merged, 1)
	assert.Equal(t, at(9, 0), merged[0].Start)
	assert.Equal(t, at(10, 30), merged[0].End)
}

func TestMergeKeepsDisjointAndSorts(t *testing.T) {
	merged := Merge([]Span{
		{Start: at(14, 0), End: at(15, 0)},
		{Start: at(9, 0), End: at(10, 0)},
	})

	require.Len(t, merged, 2)
	assert.Equal(t, at(9, 0), merged[0].Start)
	assert.Equal(t, at(14, 0), merged[1].Start)
}

func TestMergeDropsEmptySpans(t *testing.T) {
	merged := Merge([]Span{
		{Start: at(9, 0), End: at(9, 0)},
		{Start: at(10, 0), End: at(9, 0)},
	})

	assert.Empty(t, merged)
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	input := []Span{
		{Start: at(11, 0), End: at(12, 0)},
		{Start: at(9, 0), End: at(10, 0)},
	}

	Merge(input)

	assert.Equal(t, at(11, 0), input[0].Start)
}

func TestGapsWholeBoundsWhenNoBusy(t *testing.T) {
	bounds := Span{Start: at(9, 0), End: at(12, 0)}

	gaps := Gaps(bounds, nil, 30*time.Minute)

	require.Len(t, gaps, 1)
	assert.Equal(t, bounds, gaps[0])
}

func TestGapsSplitsAroundBusyPeriod(t *testing.T) {
	bounds := Span{Start: at(9, 0), End: at(12, 0)}
	busy := []Span{{Start: at(9, 50), End: at(10, 40)}}

	gaps := Gaps(bounds, busy, 30*time.Minute)

	require.Len(t, gaps, 2)
	assert.Equal(t, Span{Start: at(9, 0), End: at(9, 50)}, gaps[0])
	assert.Equal(t, Span{Start: at(10, 40), End: at(12, 0)}, gaps[1])
}

func TestGapsDropsShortGaps(t *testing.T) {
	bounds := Span{Start: at(9, 0), End: at(9, 45)}

	gaps := Gaps(bounds, nil, time.Hour)

	assert.Empty(t, gaps)
}

func TestGapsClipsBusyOutsideBounds(t *testing.T) {
	bounds := Span{Start: at(9, 0), End: at(12, 0)}
	busy := []Span{
		{Start: at(7, 0), End: at(9, 30)},
		{Start: at(11, 30), End: at(13, 0)},
	}

	gaps := Gaps(bounds, busy, 30*time.Minute)

	require.Len(t, gaps, 1)
	assert.Equal(t, Span{Start: at(9, 30), End: at(11, 30)}, gaps[0])
}

func TestGapsIgnoresBusyEntirelyOutside(t *testing.T) {
	bounds := Span{Start: at(9, 0), End: at(10, 0)}
	busy := []Span{{Start: at(12, 0), End: at(13, 0)}}

	gaps := Gaps(bounds, busy, 15*time.Minute)

	require.Len(t, gaps, 1)
	assert.Equal(t, bounds, gaps[0])
}

func TestOverlaps(t *testing.T) {
	a := Span{Start: at(9, 0), End: at(10, 0)}

	assert.True(t, a.Overlaps(Span{Start: at(9, 30), End: at(10, 30)}))
	assert.False(t, a.Overlaps(Span{Start: at(10, 0), End: at(11, 0)}))
}
