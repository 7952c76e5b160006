package thread_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/klee-mta-go/thread"
)

func TestListAddAndLookup(t *testing.T) {
	l := thread.NewList()
	t1 := thread.New(1, 0, false)
	t2 := thread.New(2, 1, true)
	l.Add(t1)
	l.Add(t2)

	assert.Equal(t, 2, l.Len())
	assert.Same(t, t1, l.ByID(1))
	assert.Same(t, t2, l.Last())
}

func TestListAddDuplicateIDPanics(t *testing.T) {
	l := thread.NewList()
	l.Add(thread.New(1, 0, false))
	assert.Panics(t, func() { l.Add(thread.New(1, 0, false)) })
}

func TestListUnfinishedExcludesTerminated(t *testing.T) {
	l := thread.NewList()
	t1 := thread.New(1, 0, false)
	t2 := thread.New(2, 0, false)
	t2.State = thread.Terminated
	l.Add(t1)
	l.Add(t2)

	unfinished := l.Unfinished()
	require.Len(t, unfinished, 1)
	assert.Equal(t, 1, unfinished[0].ID)
}

func TestListCloneIsIndependent(t *testing.T) {
	l := thread.NewList()
	l.Add(thread.New(1, 0, false))

	clone := l.Clone()
	clone.ByID(1).State = thread.Terminated

	assert.Equal(t, thread.Runnable, l.ByID(1).State)
	assert.Equal(t, thread.Terminated, clone.ByID(1).State)
}
