package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDocumentShapes(t *testing.T) {
	t.Run("standard envelope", func(t *testing.T) {
		doc, err := DecodeDocument([]byte(`{"meta":{"city":"San Francisco"},"pois":[{"poi_id":"coit-tower","name":"Coit Tower","status":"keep","type":"tower"}]}`))
		require.NoError(t, err)
		assert.Equal(t, "San Francisco", doc.Meta.City)
		require.Len(t, doc.POIs, 1)
		assert.Equal(t, StatusKeep, doc.POIs[0].Status)
	})
	t.Run("legacy stops key", func(t *testing.T) {
		doc, err := DecodeDocument([]byte(`{"stops":[{"poi_id":"x","name":"Ferry Building"}]}`))
		require.NoError(t, err)
		require.Len(t, doc.POIs, 1)
		assert.Equal(t, StatusRaw, doc.POIs[0].Status)
	})
	t.Run("bare array", func(t *testing.T) {
		doc, err := DecodeDocument([]byte(`[{"poi_id":"x","name":"Ferry Building","type":"warehouse"}]`))
		require.NoError(t, err)
		require.Len(t, doc.POIs, 1)
		assert.Equal(t, TypeOther, doc.POIs[0].Type)
	})
	t.Run("empty input", func(t *testing.T) {
		doc, err := DecodeDocument(nil)
		require.NoError(t, err)
		assert.Empty(t, doc.POIs)
		assert.Equal(t, SchemaVersion, doc.Meta.SchemaVersion)
	})
	t.Run("garbage is an error", func(t *testing.T) {
		_, err := DecodeDocument([]byte(`{nope`))
		assert.Error(t, err)
	})
}

func TestNormalizeRepairsRecords(t *testing.T) {
	doc := &Document{POIs: []*POI{
		{ID: "a", Name: " Coit Tower ", AltNames: []string{"coit tower", "Coit Memorial Tower", "", "Coit Memorial Tower"}, Confidence: 1.7, Status: "weird"},
		{ID: "b", Name: ""},
		nil,
	}}
	doc.Normalize()
	require.Len(t, doc.POIs, 1)
	p := doc.POIs[0]
	assert.Equal(t, "Coit Tower", p.Name)
	assert.Equal(t, []string{"Coit Memorial Tower"}, p.AltNames)
	assert.Equal(t, 1.0, p.Confidence)
	assert.Equal(t, StatusRaw, p.Status)
}

func TestLedgers(t *testing.T) {
	doc := &Document{}
	assert.False(t, doc.HasMergedRun("run_1"))
	doc.MarkRunMerged("run_1")
	doc.MarkRunMerged("run_1")
	assert.True(t, doc.HasMergedRun("run_1"))
	assert.Len(t, doc.Meta.MergedSelectionRuns, 1)

	doc.MarkBatchMerged("batch_1")
	assert.True(t, doc.HasMergedBatch("batch_1"))
}

func TestSortOrdersByPriorityConfidenceName(t *testing.T) {
	doc := &Document{POIs: []*POI{
		{ID: "1", Name: "Zed", Status: StatusRaw, Confidence: 0.9},
		{ID: "2", Name: "Alpha", Status: StatusKeep, Confidence: 0.2},
		{ID: "3", Name: "Beta", Status: StatusKeep, Confidence: 0.2},
		{ID: "4", Name: "Gamma", Status: StatusKeep, Confidence: 0.8},
		{ID: "5", Name: "Dropped", Status: StatusDrop, Confidence: 1.0},
	}}
	doc.Sort()
	var ids []string
	for _, p := range doc.POIs {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"4", "2", "3", "1", "5"}, ids)
}

func TestDecodeSelectionOutput(t *testing.T) {
	t.Run("envelope", func(t *testing.T) {
		out, err := DecodeSelectionOutput([]byte(`{"runs":[{"run_id":"r1","pass":"pass_1","pois":[{"name":"Coit Tower"}]}]}`))
		require.NoError(t, err)
		require.Len(t, out.Runs, 1)
		assert.Equal(t, "r1", out.Runs[0].RunID)
	})
	t.Run("bare run", func(t *testing.T) {
		out, err := DecodeSelectionOutput([]byte(`{"run_id":"r2","pass":"pass_2","pois":[{"name":"Ferry Building","importance":"Primary"}]}`))
		require.NoError(t, err)
		require.Len(t, out.Runs, 1)
		m := out.Runs[0].POIs[0].ToMention(out.Runs[0].Pass, out.Runs[0].RunID)
		assert.Equal(t, "primary", m.Importance)
		assert.Equal(t, "pass_2", m.SourcePass)
	})
	t.Run("no runs", func(t *testing.T) {
		_, err := DecodeSelectionOutput([]byte(`{}`))
		assert.Error(t, err)
	})
}

func TestGroupAggregates(t *testing.T) {
	g := &Group{Members: []Mention{
		{Name: "Coit Tower", Importance: "primary", NarrationScore: 4, SourcePass: "pass_1", Address: "1 Telegraph Hill Blvd"},
		{Name: "Coit Memorial Tower", AltNames: []string{"Coit Tower"}, Importance: "secondary", NarrationScore: 5, SourcePass: "pass_2"},
	}}
	assert.Equal(t, []string{"Coit Tower", "Coit Memorial Tower"}, g.PrimaryNames())
	assert.Equal(t, []string{"Coit Tower", "Coit Memorial Tower", "Coit Tower"}, g.AllNames())
	assert.Equal(t, []string{"pass_1", "pass_2"}, g.Passes())
	assert.Equal(t, ImportanceVotes{Primary: 1, Secondary: 1}, g.VoteTally())
	sum, sumSq, count := g.NarrationAggregate()
	assert.Equal(t, 9.0, sum)
	assert.Equal(t, 41.0, sumSq)
	assert.Equal(t, 2, count)
}

func TestEffortLabel(t *testing.T) {
	assert.Equal(t, "easy", EffortLabel(2.4))
	assert.Equal(t, "moderate", EffortLabel(5.9))
	assert.Equal(t, "challenging", EffortLabel(7.2))
}
