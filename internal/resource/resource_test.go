package resource_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunthaler/mediatester/internal/resource"
)

func TestReleaseAllRunsInLIFOOrder(t *testing.T) {
	rc := resource.New()
	var order []int
	rc.Push(func() { order = append(order, 1) })
	rc.Push(func() { order = append(order, 2) })
	rc.Push(func() { order = append(order, 3) })

	rc.ReleaseAll()

	assert.Equal(t, []int{3, 2, 1}, order)
	assert.False(t, rc.Rollback())
}

func TestReleaseToStopsAtMarker(t *testing.T) {
	rc := resource.New()
	var order []int
	rc.Push(func() { order = append(order, 1) })
	m := rc.Push(func() { order = append(order, 2) })
	rc.Push(func() { order = append(order, 3) })
	rc.Push(func() { order = append(order, 4) })

	rc.ReleaseTo(m)

	assert.Equal(t, []int{4, 3}, order)

	rc.ReleaseAll()
	assert.Equal(t, []int{4, 3, 2, 1}, order)
}

func TestMarkReleasesOnlyLaterPushes(t *testing.T) {
	rc := resource.New()
	var order []int
	rc.Push(func() { order = append(order, 1) })
	m := rc.Mark()
	rc.Push(func() { order = append(order, 2) })
	rc.Push(func() { order = append(order, 3) })

	rc.ReleaseTo(m)

	assert.Equal(t, []int{3, 2}, order)

	rc.ReleaseAll()
	assert.Equal(t, []int{3, 2, 1}, order)
}

func TestFirstErrorLatches(t *testing.T) {
	rc := resource.New()
	err1 := rc.Raise("first failure")
	err2 := rc.Raise("second failure")

	require.Error(t, err1)
	require.Error(t, err2)
	assert.Equal(t, "first failure", err1.Error())
	assert.Equal(t, "first failure", err2.Error())
	assert.Equal(t, "first failure", rc.Message())
	assert.True(t, rc.Rollback())
}

func TestRaiseRunsDestructorsEvenOnRepeatedRaise(t *testing.T) {
	rc := resource.New()
	calls := 0
	rc.Push(func() { calls++ })

	_ = rc.Raise("boom")
	assert.Equal(t, 1, calls)

	// A destructor itself raising during unwind must not re-latch the
	// message or re-enter before it has been unlinked.
	rc2 := resource.New()
	var secondCalls int
	rc2.Push(func() {
		secondCalls++
		_ = rc2.Raise("destructor failure")
	})
	rc2.Push(func() {})

	err := rc2.Raise("original failure")
	assert.Equal(t, "original failure", err.Error())
	assert.Equal(t, 1, secondCalls)
}
