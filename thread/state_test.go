package thread_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/klee-mta-go/event"
	"github.com/joeycumines/klee-mta-go/kind"
	"github.com/joeycumines/klee-mta-go/thread"
)

func TestNewExecutionStateHasRunnableMainThread(t *testing.T) {
	s := thread.NewExecutionState(thread.FIFS)
	require.Equal(t, 1, s.Threads.Len())

	cur := s.Current()
	require.NotNil(t, cur)
	assert.Equal(t, 1, cur.ID)
	assert.True(t, cur.IsRunnable())
}

func TestCurrentErrReportsScheduleExhaustedWhenMandatedThreadNotSchedulable(t *testing.T) {
	s := thread.NewExecutionState(thread.FIFS)
	main := s.Threads.ByID(1)

	// the prefix mandates thread 2 first, but thread 2 was never spawned,
	// so it can never become schedulable under this replay.
	prefix := event.NewPrefix("p", []event.Ref{{TraceID: 1, EventID: 1}}, nil)
	s.Sched = thread.NewGuided(thread.FIFS, prefix, func(event.Ref) int { return 2 })
	s.Sched.Add(main)

	cur, err := s.CurrentErr()
	assert.Nil(t, cur)
	require.Error(t, err)
	var kerr *kind.Error
	require.True(t, errors.As(err, &kerr))
	assert.Equal(t, kind.ScheduleExhausted, kerr.Kind)
	assert.True(t, s.MandateFailed())
}

func TestSpawnThreadAddsToListAndScheduler(t *testing.T) {
	s := thread.NewExecutionState(thread.FIFS)
	child := s.SpawnThread(1)

	assert.Equal(t, 2, child.ID)
	assert.Equal(t, 2, s.Threads.Len())
	assert.Equal(t, 2, s.Sched.Len())
}

func TestTryLockMutexBlocksSecondThread(t *testing.T) {
	s := thread.NewExecutionState(thread.FIFS)
	child := s.SpawnThread(1)
	main := s.Threads.ByID(1)

	assert.True(t, s.TryLockMutex(main, "m"))
	assert.True(t, main.IsRunnable())

	assert.True(t, s.TryLockMutex(child, "m"))
	assert.Equal(t, thread.MutexBlocked, child.State)
	assert.True(t, child.IsSchedulable())
}

func TestBlockUnblockRemovesAndRestoresFromScheduler(t *testing.T) {
	s := thread.NewExecutionState(thread.FIFS)
	main := s.Threads.ByID(1)

	s.Block(main, thread.CondBlocked)
	assert.Equal(t, 0, s.Sched.Len())

	s.Unblock(main)
	assert.Equal(t, 1, s.Sched.Len())
	assert.True(t, main.IsRunnable())
}

func TestIsDeadlockedWhenAllRemainingThreadsAreCondBlocked(t *testing.T) {
	s := thread.NewExecutionState(thread.FIFS)
	main := s.Threads.ByID(1)

	assert.False(t, s.IsDeadlocked())

	s.Block(main, thread.CondBlocked)
	assert.True(t, s.IsDeadlocked())
}

func TestIsDeadlockedFalseWhenAllThreadsTerminated(t *testing.T) {
	s := thread.NewExecutionState(thread.FIFS)
	s.Terminate(s.Threads.ByID(1))
	assert.False(t, s.IsDeadlocked())
}

func TestExecutionStateCloneIsIndependent(t *testing.T) {
	s := thread.NewExecutionState(thread.FIFS)
	main := s.Threads.ByID(1)
	require.True(t, s.TryLockMutex(main, "m"))

	clone := s.Clone()
	require.NoError(t, clone.Mutexes.Unlock("m", 1))

	assert.True(t, s.Mutexes.Mutex("m").IsLocked())
	assert.False(t, clone.Mutexes.Mutex("m").IsLocked())
}
