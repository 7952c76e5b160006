package schedule_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/klee-mta-go/schedule"
)

func TestFIFSOrdering(t *testing.T) {
	q := schedule.NewFIFS[int]()
	q.Add(1)
	q.Add(2)
	q.Add(3)

	cur, ok := q.SelectCurrent()
	require.True(t, ok)
	assert.Equal(t, 1, cur)

	next, ok := q.SelectNext()
	require.True(t, ok)
	assert.Equal(t, 1, next)

	require.True(t, q.Remove(1))
	cur, ok = q.SelectCurrent()
	require.True(t, ok)
	assert.Equal(t, 2, cur)

	assert.Equal(t, []int{2, 3}, q.PopAll())
	assert.True(t, q.Empty())
	_, ok = q.SelectCurrent()
	assert.False(t, ok)
}

func TestPreemptiveSelectsMostRecent(t *testing.T) {
	q := schedule.NewPreemptive[int]()
	q.Add(1)
	q.Add(2)

	cur, ok := q.SelectCurrent()
	require.True(t, ok)
	assert.Equal(t, 2, cur)

	q.Add(3)
	cur, ok = q.SelectCurrent()
	require.True(t, ok)
	assert.Equal(t, 3, cur)

	require.True(t, q.Remove(3))
	cur, ok = q.SelectCurrent()
	require.True(t, ok)
	assert.Equal(t, 2, cur)
}

func TestRoundRobinRotatesAfterMaxInst(t *testing.T) {
	q := schedule.NewRoundRobin[int]()
	q.Add(1)
	q.Add(2)

	for i := 0; i < schedule.MaxInst; i++ {
		cur, ok := q.SelectNext()
		require.True(t, ok)
		assert.Equal(t, 1, cur)
	}

	// count has now reached MaxInst: Reschedule rotates the head to the back.
	q.Reschedule()
	cur, ok := q.SelectCurrent()
	require.True(t, ok)
	assert.Equal(t, 2, cur)
}

func TestRoundRobinRescheduleNoopBelowThreshold(t *testing.T) {
	q := schedule.NewRoundRobin[int]()
	q.Add(1)
	q.Add(2)

	_, _ = q.SelectNext()
	q.Reschedule()

	cur, ok := q.SelectCurrent()
	require.True(t, ok)
	assert.Equal(t, 1, cur)
}

func TestRoundRobinRemoveHeadResetsCount(t *testing.T) {
	q := schedule.NewRoundRobin[int]()
	q.Add(1)
	q.Add(2)

	_, _ = q.SelectNext()
	_, _ = q.SelectNext()
	require.True(t, q.Remove(1))

	q.SetCountZero()
	cur, ok := q.SelectCurrent()
	require.True(t, ok)
	assert.Equal(t, 2, cur)
}

func TestQueueClonesAreIndependent(t *testing.T) {
	q := schedule.NewFIFS[int]()
	q.Add(1)

	clone := q.Clone()
	clone.Add(2)

	assert.Equal(t, 1, q.Len())
	assert.Equal(t, 2, clone.Len())
}
