package output_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/klee-mta-go/event"
	"github.com/joeycumines/klee-mta-go/internal/output"
	"github.com/joeycumines/klee-mta-go/solverapi"
)

func TestWriteBitcodeRendersOneLinePerEvent(t *testing.T) {
	dir := t.TempDir()
	tr := event.NewTrace(1)
	tr.InsertEvent(1, &event.Event{Name: "x", IsGlobal: true, GlobalName: "x#1", SourceFile: "prog.c", SourceLine: 42})
	tr.InsertEvent(1, &event.Event{CalledFunction: "pthread_create"})

	require.NoError(t, output.WriteBitcode(dir, "Trace1", tr))

	data, err := os.ReadFile(filepath.Join(dir, "Trace1.bitcode"))
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, `"name":"x"`)
	assert.Contains(t, s, `"global":"x#1"`)
	assert.Contains(t, s, `"source":"prog.c:42"`)
	assert.Contains(t, s, `"call":"pthread_create"`)
}

func TestWriteModelRendersSortedModel(t *testing.T) {
	dir := t.TempDir()
	model := solverapi.Model{"b": "1", "a": "2"}

	require.NoError(t, output.WriteModel(dir, "assert_foo", solverapi.Sat, model))

	data, err := os.ReadFile(filepath.Join(dir, "assert_foo.z3expr"))
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, `"result":"SAT"`)
	// a sorts before b
	assert.Less(t, indexOf(s, `"a":"2"`), indexOf(s, `"b":"1"`))
}

func TestWriteStatisticsRendersBothFiles(t *testing.T) {
	dir := t.TempDir()
	s := output.Statistics{
		Traces:          3,
		Instructions:    100,
		SolvingDuration: 250 * time.Millisecond,
		BranchesSat:     2,
	}
	require.NoError(t, output.WriteStatistics(dir, s))

	info, err := os.ReadFile(filepath.Join(dir, "statistics.info"))
	require.NoError(t, err)
	assert.Contains(t, string(info), `"traces":3`)
	assert.Contains(t, string(info), `"solving_duration_ms":250`)

	text, err := os.ReadFile(filepath.Join(dir, "statics.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(text), "traces: 3\n")
	assert.Contains(t, string(text), "branches_sat: 2\n")
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
