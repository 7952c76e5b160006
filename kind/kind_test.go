package kind_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joeycumines/klee-mta-go/kind"
)

func TestErrorsIsMatchesByKindOnly(t *testing.T) {
	err := kind.New(kind.BadSyncCall, "unlock by non-owner thread %d", 2)
	sentinel := kind.New(kind.BadSyncCall, "")

	assert.True(t, errors.Is(err, sentinel))
	assert.False(t, errors.Is(err, kind.New(kind.SolverError, "")))
}

func TestErrorsAsExposesKindField(t *testing.T) {
	cause := errors.New("boom")
	err := kind.Wrap(kind.SolverError, cause, "check failed")

	var kerr *kind.Error
	require := assert.New(t)
	require.True(errors.As(err, &kerr))
	require.Equal(kind.SolverError, kerr.Kind)
	require.True(errors.Is(err, cause))
}

func TestErrorMessageIncludesKind(t *testing.T) {
	err := kind.New(kind.ScheduleExhausted, "thread %d not schedulable", 3)
	assert.Contains(t, err.Error(), "ScheduleExhausted")
	assert.Contains(t, err.Error(), "thread 3 not schedulable")
}
