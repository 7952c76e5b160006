package runtimedata_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/klee-mta-go/event"
	"github.com/joeycumines/klee-mta-go/runtimedata"
)

func TestCreateTraceMakesItCurrentAndTracksCount(t *testing.T) {
	m := runtimedata.New(t.TempDir(), nil, nil)
	tr := m.CreateTrace(1)
	require.NotNil(t, tr)
	assert.Same(t, tr, m.Current())
	assert.Same(t, tr, m.Trace(1))
}

func TestIsCurrentTraceUntestedDedupsEquivalentAbstracts(t *testing.T) {
	m := runtimedata.New(t.TempDir(), nil, nil)

	tr1 := m.CreateTrace(1)
	tr1.InsertEvent(1, &event.Event{Name: "x", IsGlobal: true, GlobalName: "x#1"})
	assert.True(t, m.IsCurrentTraceUntested())
	assert.Equal(t, event.Unique, tr1.Type)

	tr2 := m.CreateTrace(2)
	tr2.InsertEvent(1, &event.Event{Name: "x", IsGlobal: true, GlobalName: "x#1"})
	assert.False(t, m.IsCurrentTraceUntested(), "tr2 has the same abstract as tr1")
	assert.Equal(t, event.Redundant, tr2.Type)
}

func TestPrefixQueueIsFIFO(t *testing.T) {
	m := runtimedata.New(t.TempDir(), nil, nil)
	a := event.NewPrefix("a", nil, nil)
	b := event.NewPrefix("b", nil, nil)
	m.AddPrefix(a)
	m.AddPrefix(b)

	got, ok := m.NextPrefix()
	require.True(t, ok)
	assert.Same(t, a, got)

	got, ok = m.NextPrefix()
	require.True(t, ok)
	assert.Same(t, b, got)

	_, ok = m.NextPrefix()
	assert.False(t, ok)
}

func TestCloseWritesStatisticsFiles(t *testing.T) {
	dir := t.TempDir()
	m := runtimedata.New(dir, nil, nil)
	tr := m.CreateTrace(1)
	tr.InsertEvent(1, &event.Event{})
	m.RecordTrace(tr)
	m.AddSolvingDuration(10 * time.Millisecond)

	require.NoError(t, m.Close())

	_, err := os.Stat(filepath.Join(dir, "statistics.info"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "statics.txt"))
	require.NoError(t, err)
}

func TestExploreConcurrentlyDrainsWavesIncludingEnqueuedDuringWork(t *testing.T) {
	m := runtimedata.New(t.TempDir(), nil, nil)
	m.AddPrefix(event.NewPrefix("first", nil, nil))

	var processed atomic.Int32
	err := m.ExploreConcurrently(context.Background(), 2, func(ctx context.Context, p *event.Prefix) error {
		processed.Add(1)
		if p.Name == "first" {
			m.AddPrefix(event.NewPrefix("second", nil, nil))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), processed.Load())
}
