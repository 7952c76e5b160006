package thread_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joeycumines/klee-mta-go/thread"
)

func TestThreadIsSchedulable(t *testing.T) {
	th := thread.New(1, 0, false)
	assert.True(t, th.IsSchedulable())

	th.State = thread.MutexBlocked
	assert.True(t, th.IsSchedulable())

	th.State = thread.CondBlocked
	assert.False(t, th.IsSchedulable())

	th.State = thread.Terminated
	assert.False(t, th.IsSchedulable())
}

func TestThreadCloneIsIndependent(t *testing.T) {
	th := thread.New(1, 0, false)
	clone := th.Clone()
	clone.State = thread.Terminated

	assert.Equal(t, thread.Runnable, th.State)
	assert.Equal(t, thread.Terminated, clone.State)
}
