package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertEventAssignsIDs(t *testing.T) {
	tr := NewTrace(1)

	e1 := tr.InsertEvent(0, &Event{Kind: Normal, Name: "x", IsGlobal: true})
	e2 := tr.InsertEvent(0, &Event{Kind: Normal, Name: "x", IsGlobal: true})
	e3 := tr.InsertEvent(1, &Event{Kind: Normal})

	assert.Equal(t, ID(1), e1)
	assert.Equal(t, ID(2), e2)
	assert.Equal(t, ID(3), e3)

	assert.Equal(t, 1, tr.Event(e1).ThreadEventID)
	assert.Equal(t, 2, tr.Event(e2).ThreadEventID)
	assert.Equal(t, 1, tr.Event(e3).ThreadEventID)
	assert.Equal(t, []ID{e1, e2, e3}, tr.Path)
}

func TestLockPairing(t *testing.T) {
	tr := NewTrace(1)
	lock := tr.InsertEvent(0, &Event{Kind: Normal})
	require.NoError(t, tr.InsertLockOrUnlock(0, "m", lock, true))
	unlock := tr.InsertEvent(0, &Event{Kind: Normal})
	require.NoError(t, tr.InsertLockOrUnlock(0, "m", unlock, false))

	pairs := tr.AllLockUnlock["m"]
	require.Len(t, pairs, 1)
	assert.Equal(t, lock, pairs[0].Lock)
	assert.Equal(t, unlock, pairs[0].Unlock)

	errs := tr.CheckInvariants()
	assert.Empty(t, errs)
}

func TestUnlockWithoutLockIsError(t *testing.T) {
	tr := NewTrace(1)
	ev := tr.InsertEvent(0, &Event{Kind: Normal})
	err := tr.InsertLockOrUnlock(0, "m", ev, false)
	assert.Error(t, err)
}

func TestIncompletePairIsNotAnInvariantViolation(t *testing.T) {
	tr := NewTrace(1)
	lock := tr.InsertEvent(0, &Event{Kind: Normal})
	require.NoError(t, tr.InsertLockOrUnlock(0, "m", lock, true))

	errs := tr.CheckInvariants()
	assert.Empty(t, errs)
}

func TestWaitWithoutSignalFails(t *testing.T) {
	tr := NewTrace(1)
	wait := tr.InsertEvent(0, &Event{Kind: Normal})
	tr.InsertWait("c", wait, None)

	errs := tr.CheckInvariants()
	require.NotEmpty(t, errs)

	tr.ApplyInvariantResult()
	assert.Equal(t, Failed, tr.Type)
}

func TestWaitWithSignalFromOtherThreadOK(t *testing.T) {
	tr := NewTrace(1)
	wait := tr.InsertEvent(0, &Event{Kind: Normal})
	tr.InsertWait("c", wait, None)
	sig := tr.InsertEvent(1, &Event{Kind: Normal})
	tr.InsertSignal("c", sig)

	tr.ApplyInvariantResult()
	assert.Equal(t, Unique, tr.Type) // default zero value, not Failed
	assert.Empty(t, tr.InvariantViolations)
}

func TestWaitSignalledFromSameThreadStillFails(t *testing.T) {
	tr := NewTrace(1)
	wait := tr.InsertEvent(0, &Event{Kind: Normal})
	tr.InsertWait("c", wait, None)
	sig := tr.InsertEvent(0, &Event{Kind: Normal})
	tr.InsertSignal("c", sig)

	errs := tr.CheckInvariants()
	assert.NotEmpty(t, errs)
}

func TestMarkLatestWrites(t *testing.T) {
	tr := NewTrace(1)
	w1 := tr.InsertEvent(0, &Event{Kind: Normal, Name: "x", IsGlobal: true})
	tr.InsertWriteSet("x", w1)
	r1 := tr.InsertEvent(0, &Event{Kind: Normal, Name: "x", IsGlobal: true})
	tr.InsertReadSet("x", r1)
	w2 := tr.InsertEvent(0, &Event{Kind: Normal, Name: "x", IsGlobal: true})
	tr.InsertWriteSet("x", w2)

	tr.MarkLatestWrites()

	assert.Equal(t, w1, tr.Event(r1).LatestWriteSameThread)
	assert.Equal(t, w1, tr.Event(w2).LatestWriteSameThread)
}

func TestAbstractIsStableAndDistinguishesTraces(t *testing.T) {
	tr1 := NewTrace(1)
	tr1.InsertEvent(0, &Event{Kind: Normal, Name: "x", GlobalName: "x_S1", IsGlobal: true})

	tr2 := NewTrace(2)
	tr2.InsertEvent(0, &Event{Kind: Normal, Name: "x", GlobalName: "x_S1", IsGlobal: true})

	assert.Equal(t, tr1.Abstract(), tr2.Abstract())

	tr3 := NewTrace(3)
	tr3.InsertEvent(0, &Event{Kind: Normal, Name: "y", GlobalName: "y_S1", IsGlobal: true})
	assert.NotEqual(t, tr1.Abstract(), tr3.Abstract())
}

func TestBarrierRoundDistinctThreadsInvariant(t *testing.T) {
	tr := NewTrace(1)
	e0 := tr.InsertEvent(0, &Event{Kind: Normal})
	e1 := tr.InsertEvent(0, &Event{Kind: Normal}) // same thread, same round: violates
	tr.InsertBarrierWait("b", e0, 0)
	tr.InsertBarrierWait("b", e1, 0)

	errs := tr.CheckInvariants()
	assert.NotEmpty(t, errs)
}
