package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/postcycle/internal/types"
)

func TestJournalRecordAndStats(t *testing.T) {
	j, err := OpenJournal(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	start := time.Now().Add(-time.Minute)
	report := types.CycleReport{
		CycleID:    "c-1",
		StartedAt:  start,
		FinishedAt: start.Add(3 * time.Second),
		Region:     "kenya",
		TrendCount: 4,
		Outcomes: []types.PostOutcome{
			{Channel: "facebook", Topic: "Tree Care", Success: true, ExternalID: "123_456"},
			{Channel: "twitter", Topic: "Tree Care", Error: types.KindAuth, Detail: "401"},
		},
	}
	require.NoError(t, j.Record(context.Background(), report))

	stats, err := j.Stats(context.Background(), start.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []ChannelStats{
		{Channel: "facebook", Attempts: 1, Successes: 1},
		{Channel: "twitter", Attempts: 1, Successes: 0},
	}, stats)
}

func TestCacheSaveAndLoadLatest(t *testing.T) {
	c := NewCache(t.TempDir())

	_, err := SaveStepOutput(c, StepTrends, []string{"#old"})
	require.NoError(t, err)
	path, err := SaveStepOutput(c, StepTrends, []string{"#new"})
	require.NoError(t, err)

	got, latest, err := LoadLatestStepOutput[[]string](c, StepTrends)
	require.NoError(t, err)
	assert.Equal(t, path, latest)
	assert.Equal(t, []string{"#new"}, got)
}

func TestNilCacheDiscards(t *testing.T) {
	var c *Cache
	path, err := c.SaveLLMExchange(LLMExchange{Prompt: "p"})
	assert.NoError(t, err)
	assert.Empty(t, path)

	_, err = c.LatestStepFile(StepLLM, ".json")
	assert.Error(t, err)
}

func TestLatestStepFileMissing(t *testing.T) {
	_, err := NewCache(t.TempDir()).LatestStepFile(StepReport, ".json")
	assert.ErrorContains(t, err, "no cached output")
}
