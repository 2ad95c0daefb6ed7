package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestPartition_CeilDivision(t *testing.T) {
	tests := []struct {
		m, k    int
		batches int
		last    int
	}{
		{0, 7, 0, 0},
		{1, 7, 1, 1},
		{7, 7, 1, 7},
		{8, 7, 2, 1},
		{14, 7, 2, 7},
		{15, 7, 3, 1},
		{10, 3, 4, 1},
		{9, 3, 3, 3},
		{5, 1, 5, 1},
	}
	for _, tt := range tests {
		got := partition(seq(tt.m), tt.k)
		require.Len(t, got, tt.batches, "m=%d k=%d", tt.m, tt.k)
		for i, b := range got {
			if i < len(got)-1 {
				assert.Len(t, b.Indices, tt.k, "m=%d k=%d batch=%d", tt.m, tt.k, i)
			}
		}
		if tt.batches > 0 {
			assert.Len(t, got[len(got)-1].Indices, tt.last, "m=%d k=%d last", tt.m, tt.k)
		}
	}
}

func TestPartition_PreservesOrder(t *testing.T) {
	got := partition([]int{4, 8, 15, 16, 23, 42}, 4)
	require.Len(t, got, 2)
	assert.Equal(t, []int{4, 8, 15, 16}, got[0].Indices)
	assert.Equal(t, []int{23, 42}, got[1].Indices)
}

func TestPartition_SizeBelowOneClampsToOne(t *testing.T) {
	got := partition(seq(3), 0)
	require.Len(t, got, 3)
}

func TestNaturalLess(t *testing.T) {
	assert.True(t, naturalLess("page2.png", "page10.png"))
	assert.False(t, naturalLess("page10.png", "page2.png"))
	assert.True(t, naturalLess("page2.png", "page2a.png"))
	assert.True(t, naturalLess("a.png", "b.png"))
	assert.True(t, naturalLess("Page1.png", "page2.png")) // case-insensitive
	assert.True(t, naturalLess("scan_009.jpg", "scan_010.jpg"))
	assert.True(t, naturalLess("scan_9.jpg", "scan_10.jpg"))
	assert.False(t, naturalLess("x.png", "x.png"))
}
