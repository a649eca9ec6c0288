package commands

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/satishbabariya/litecore/runtime/client"
)

func TestTimingBins(t *testing.T) {
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }
	durations := []time.Duration{ms(9), ms(1), ms(5), ms(3), ms(7), ms(2), ms(8)}

	bins := TimingBins(durations, 3)
	require.Len(t, bins, 3)

	assert.Equal(t, TimingBin{Count: 3, Min: ms(1), Max: ms(3), Avg: ms(2)}, bins[0])
	assert.Equal(t, TimingBin{Count: 3, Min: ms(5), Max: ms(8), Avg: ms(20) / 3}, bins[1])
	assert.Equal(t, TimingBin{Count: 1, Min: ms(9), Max: ms(9), Avg: ms(9)}, bins[2])

	// The input is left unsorted.
	assert.Equal(t, ms(9), durations[0])

	assert.Len(t, TimingBins(durations, 100), len(durations))
	assert.Nil(t, TimingBins(nil, 3))
}

func TestRunStress(t *testing.T) {
	ctx := context.Background()
	pool, err := client.Open(ctx,
		client.WithFilename(filepath.Join(t.TempDir(), "stress.db")),
		client.WithCreateIfMissing(true),
		client.WithJournalMode(client.JournalWAL),
		client.WithMaxConnections(4),
		client.WithLogStatements(false),
	)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close(ctx) })

	var calls atomic.Int32
	report, err := RunStress(ctx, pool, StressOptions{
		Records:     40,
		Concurrency: 4,
		BlobSize:    16,
		Bins:        4,
	}, func() { calls.Add(1) })
	require.NoError(t, err)

	assert.Equal(t, int32(40), calls.Load())
	assert.Equal(t, 40, report.Records)
	assert.NotEmpty(t, report.RunID)
	assert.Positive(t, report.OpsPerSec)
	require.Len(t, report.Bins, 4)

	total := 0
	for _, b := range report.Bins {
		total += b.Count
	}
	assert.Equal(t, 40, total)

	// A second run against the same database checks row deltas, not totals.
	_, err = RunStress(ctx, pool, StressOptions{Records: 5, Concurrency: 2, BlobSize: 8}, nil)
	require.NoError(t, err)

	_, err = RunStress(ctx, pool, StressOptions{}, nil)
	assert.Error(t, err)
}

func TestStressReport_Output(t *testing.T) {
	report := &StressReport{
		RunID:     "run-1",
		Records:   10,
		Elapsed:   time.Second,
		OpsPerSec: 10,
		Bins:      []TimingBin{{Count: 10, Min: time.Millisecond, Max: 3 * time.Millisecond, Avg: 2 * time.Millisecond}},
		Statements: map[string]StatementTiming{
			"execute INSERT": {Count: 20, Total: 20 * time.Millisecond, Max: 4 * time.Millisecond},
		},
	}

	md := report.Markdown()
	assert.Contains(t, md, "# Stress run `run-1`")
	assert.Contains(t, md, "| 1 | 10 | 1ms | 2ms | 3ms |")
	assert.Contains(t, md, "| execute INSERT | 20 | 1ms | 4ms |")

	path := filepath.Join(t.TempDir(), "report.yaml")
	require.NoError(t, writeReport(report, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.Equal(t, 10, decoded["records"])
	assert.Equal(t, "1s", decoded["elapsed"])
}

func TestStatementTimer(t *testing.T) {
	timer := newStatementTimer()
	mw := timer.middleware()

	for i := 0; i < 3; i++ {
		ev := &client.StatementEvent{Op: "execute", SQL: "  insert into a VALUES (?)", Duration: time.Millisecond}
		require.NoError(t, mw(context.Background(), ev, func() error { return nil }))
	}

	stats := timer.snapshot()
	require.Contains(t, stats, "execute INSERT")
	assert.Equal(t, 3, stats["execute INSERT"].Count)
}
