package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_MinimumCapacity(t *testing.T) {
	assert.Equal(t, 1, New[int](0).Cap())
	assert.Equal(t, 1, New[int](-5).Cap())
	assert.Equal(t, 8, New[int](8).Cap())
}

func TestRing_Empty(t *testing.T) {
	r := New[string](3)
	assert.Equal(t, 0, r.Len())
	assert.NotNil(t, r.All())
	assert.Empty(t, r.All())

	_, ok := r.Last()
	assert.False(t, ok)
}

func TestRing_PushBelowCapacity(t *testing.T) {
	r := New[int](4)
	for i := 1; i <= 3; i++ {
		assert.False(t, r.Push(i))
	}
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []int{1, 2, 3}, r.All())

	last, ok := r.Last()
	assert.True(t, ok)
	assert.Equal(t, 3, last)
}

func TestRing_EvictsOldest(t *testing.T) {
	r := New[string](2)
	r.Push("A")
	r.Push("B")
	assert.True(t, r.Push("C"))

	assert.Equal(t, []string{"B", "C"}, r.All())
	last, ok := r.Last()
	assert.True(t, ok)
	assert.Equal(t, "C", last)
}

func TestRing_FIFOLaw(t *testing.T) {
	for _, capacity := range []int{1, 2, 3, 7, 32} {
		r := New[int](capacity)
		for n := 1; n <= 100; n++ {
			r.Push(n)

			want := max(1, n-capacity+1)
			got := r.All()
			assert.LessOrEqual(t, len(got), capacity)
			assert.Equal(t, min(n, capacity), r.Len())
			for i, v := range got {
				assert.Equal(t, want+i, v, "capacity %d after %d pushes", capacity, n)
			}
		}
	}
}

func TestRing_AppendTo(t *testing.T) {
	r := New[int](3)
	for i := range 5 {
		r.Push(i)
	}
	dst := []int{-1}
	assert.Equal(t, []int{-1, 2, 3, 4}, r.AppendTo(dst))
}

func TestRing_AllIsCopy(t *testing.T) {
	r := New[int](2)
	r.Push(1)
	got := r.All()
	got[0] = 99
	assert.Equal(t, []int{1}, r.All())
}
