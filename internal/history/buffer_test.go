package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_AppendBelowCapacity(t *testing.T) {
	b := NewBuffer[int](5)
	b.Append(1)
	b.Append(2)
	b.Append(3)

	assert.Equal(t, 3, b.Len())
	assert.Equal(t, []int{1, 2, 3}, b.Snapshot(5))
}

func TestBuffer_EvictsOldestFirst(t *testing.T) {
	b := NewBuffer[int](3)
	for i := 1; i <= 10; i++ {
		b.Append(i)
	}

	assert.Equal(t, 3, b.Len())
	assert.Equal(t, []int{8, 9, 10}, b.Snapshot(3))
}

func TestBuffer_HoldsMinOfCountAndCapacity(t *testing.T) {
	// For any number of appends the buffer holds exactly min(count, cap)
	// entries, and they are the most recent, in insertion order.
	const capacity = 7
	b := NewBuffer[int](capacity)

	for count := 1; count <= 20; count++ {
		b.Append(count)

		wantLen := count
		if wantLen > capacity {
			wantLen = capacity
		}
		require.Equal(t, wantLen, b.Len(), "after %d appends", count)

		snap := b.Snapshot(capacity)
		require.Len(t, snap, wantLen)
		for i, v := range snap {
			require.Equal(t, count-wantLen+1+i, v, "after %d appends", count)
		}
	}
}

func TestBuffer_SnapshotReturnsMostRecentN(t *testing.T) {
	b := NewBuffer[string](10)
	b.Append("a")
	b.Append("b")
	b.Append("c")
	b.Append("d")

	assert.Equal(t, []string{"c", "d"}, b.Snapshot(2))
	assert.Equal(t, []string{"a", "b", "c", "d"}, b.Snapshot(99))
}

func TestBuffer_SnapshotIsACopy(t *testing.T) {
	b := NewBuffer[int](5)
	b.Append(1)
	b.Append(2)

	snap := b.Snapshot(2)
	snap[0] = 42

	assert.Equal(t, []int{1, 2}, b.Snapshot(2))
}

func TestBuffer_SnapshotEmpty(t *testing.T) {
	b := NewBuffer[int](5)
	snap := b.Snapshot(3)

	require.NotNil(t, snap)
	assert.Empty(t, snap)
}

func TestBuffer_TrimTo(t *testing.T) {
	b := NewBuffer[int](10)
	for i := 1; i <= 10; i++ {
		b.Append(i)
	}

	b.TrimTo(4)
	assert.Equal(t, 4, b.Len())
	assert.Equal(t, []int{7, 8, 9, 10}, b.Snapshot(10))

	// Trimming above current length is a no-op.
	b.TrimTo(8)
	assert.Equal(t, 4, b.Len())

	// Capacity is unchanged, appends still work normally afterwards.
	assert.Equal(t, 10, b.Cap())
	b.Append(11)
	assert.Equal(t, []int{7, 8, 9, 10, 11}, b.Snapshot(10))
}

func TestBuffer_TrimToZero(t *testing.T) {
	b := NewBuffer[int](5)
	b.Append(1)
	b.TrimTo(0)
	assert.Equal(t, 0, b.Len())
}
