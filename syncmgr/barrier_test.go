package syncmgr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/klee-mta-go/syncmgr"
)

func TestBarrierReleasesOnceCountReached(t *testing.T) {
	m := syncmgr.NewBarrierManager()
	m.Init("b", 3)

	released, round, ok := m.Wait("b", 1)
	require.True(t, ok)
	assert.Nil(t, released)
	assert.Equal(t, 0, round)

	released, round, ok = m.Wait("b", 2)
	require.True(t, ok)
	assert.Nil(t, released)
	assert.Equal(t, 0, round)

	released, round, ok = m.Wait("b", 3)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, released)
	assert.Equal(t, 0, round, "the releasing call belongs to the round it completed, not the next one")
	assert.Equal(t, 1, m.Barrier("b").Round)
}

func TestBarrierResetsForNextRound(t *testing.T) {
	m := syncmgr.NewBarrierManager()
	m.Init("b", 2)

	_, _, _ = m.Wait("b", 1)
	_, _, _ = m.Wait("b", 2)

	released, round, ok := m.Wait("b", 10)
	require.True(t, ok)
	assert.Nil(t, released)
	assert.Equal(t, 1, round)
	assert.Equal(t, 1, m.Barrier("b").Current)
}

func TestBarrierWaitOnUninitializedFails(t *testing.T) {
	m := syncmgr.NewBarrierManager()
	_, _, ok := m.Wait("missing", 1)
	assert.False(t, ok)
}

func TestBarrierMultiRoundRoundsDontCollide(t *testing.T) {
	m := syncmgr.NewBarrierManager()
	m.Init("b", 2)

	_, round1a, _ := m.Wait("b", 1)
	released1, round1b, _ := m.Wait("b", 2)
	require.Equal(t, []int{1, 2}, released1)
	assert.Equal(t, 0, round1a)
	assert.Equal(t, 0, round1b)

	_, round2a, _ := m.Wait("b", 1)
	released2, round2b, _ := m.Wait("b", 2)
	require.Equal(t, []int{1, 2}, released2)
	assert.Equal(t, 1, round2a)
	assert.Equal(t, 1, round2b, "round-1 releaser must not be tagged into round 2")
}
