package syncmgr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/klee-mta-go/syncmgr"
)

func TestCondWaitReleasesMutexAndSignalReacquires(t *testing.T) {
	mutexes := syncmgr.NewMutexManager()
	conds := syncmgr.NewCondManager(mutexes)

	require.True(t, mutexes.TryLock("m", 1))
	require.NoError(t, conds.Wait("c", "m", 1))

	// the waiting thread released the mutex: another thread can take it.
	assert.True(t, mutexes.TryLock("m", 2))
	require.NoError(t, mutexes.Unlock("m", 2))

	tid, ok, err := conds.Signal("c")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, tid)
	assert.True(t, mutexes.Mutex("m").IsOwnedBy(1))
}

func TestCondSignalWithNoWaitersIsNoop(t *testing.T) {
	conds := syncmgr.NewCondManager(syncmgr.NewMutexManager())
	_, ok, err := conds.Signal("c")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCondBroadcastReleasesAllInFIFSOrder(t *testing.T) {
	mutexes := syncmgr.NewMutexManager()
	conds := syncmgr.NewCondManager(mutexes)

	require.True(t, mutexes.TryLock("m", 1))
	require.NoError(t, conds.Wait("c", "m", 1))
	require.NoError(t, mutexes.Unlock("m", 1))

	require.True(t, mutexes.TryLock("m", 2))
	require.NoError(t, conds.Wait("c", "m", 2))
	require.NoError(t, mutexes.Unlock("m", 2))

	threads := conds.Broadcast("c")
	assert.Equal(t, []int{1, 2}, threads)
}

func TestCondPreemptivePolicyWakesMostRecentWaiter(t *testing.T) {
	mutexes := syncmgr.NewMutexManager()
	conds := syncmgr.NewCondManager(mutexes)
	conds.AddConditionWithPolicy("c", syncmgr.CondPreemptive)

	require.True(t, mutexes.TryLock("m", 1))
	require.NoError(t, conds.Wait("c", "m", 1))
	require.NoError(t, mutexes.Unlock("m", 1))

	require.True(t, mutexes.TryLock("m", 2))
	require.NoError(t, conds.Wait("c", "m", 2))
	require.NoError(t, mutexes.Unlock("m", 2))

	tid, ok, err := conds.Signal("c")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, tid)
}
