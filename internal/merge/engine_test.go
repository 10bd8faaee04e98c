package merge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wanderlane/tour-cli/internal/model"
)

func newTestEngine() *Engine {
	return NewEngine(DefaultOptions(), nil)
}

func selectionOf(runID, pass string, pois ...model.RawMention) *model.SelectionOutput {
	return &model.SelectionOutput{Runs: []model.SelectionRun{{
		RunID: runID, Pass: pass, City: "San Francisco", TourTitle: "Gold Rush Walk", POIs: pois,
	}}}
}

func TestMergeSelectionTwoPasses(t *testing.T) {
	e := newTestEngine()
	doc := &model.Document{}

	statsA := e.MergeSelection(context.Background(), doc, selectionOf("run_a", "pass_a",
		model.RawMention{Name: "Coit Tower", Address: "1 Telegraph Hill Blvd", Importance: "primary", NarrationScore: 4.5},
	))
	require.Equal(t, 1, statsA.Inserted)

	statsB := e.MergeSelection(context.Background(), doc, selectionOf("run_b", "pass_b",
		model.RawMention{Name: "Coit Memorial Tower", Address: "1 Telegraph Hill Blvd", Importance: "secondary", NarrationScore: 4.0},
	))
	assert.Equal(t, 1, statsB.Updated)
	assert.Zero(t, statsB.Inserted)

	require.Len(t, doc.POIs, 1)
	p := doc.POIs[0]
	assert.Equal(t, []string{"pass_a", "pass_b"}, p.AppearedIn)
	assert.Equal(t, "majority", p.ConsensusLabel)
	assert.Equal(t, model.ImportanceVotes{Primary: 1, Secondary: 1}, p.Votes)
	assert.Equal(t, 2, p.Narration.Count)
	assert.GreaterOrEqual(t, p.Confidence, 0.0)
	assert.LessOrEqual(t, p.Confidence, 1.0)
	assert.Equal(t, "Coit Tower", p.Name)
	assert.Contains(t, p.AltNames, "Coit Memorial Tower")
	assert.Equal(t, "San Francisco", doc.Meta.City)
}

func TestMergeSelectionPoolsRunsInOneCall(t *testing.T) {
	e := newTestEngine()
	doc := &model.Document{}

	stats := e.MergeSelection(context.Background(), doc, &model.SelectionOutput{Runs: []model.SelectionRun{
		{RunID: "run_a", Pass: "pass_a", City: "San Francisco", POIs: []model.RawMention{
			{Name: "Coit Tower", Address: "1 Telegraph Hill Blvd", Importance: "primary", NarrationScore: 4.5},
		}},
		{RunID: "run_b", Pass: "pass_b", POIs: []model.RawMention{
			{Name: "Coit Memorial Tower", Address: "1 Telegraph Hill Blvd", Importance: "primary", NarrationScore: 4.0},
		}},
	}})
	assert.Equal(t, 2, stats.RunsMerged)
	assert.Equal(t, 1, stats.Inserted)
	assert.Zero(t, stats.Updated)

	require.Len(t, doc.POIs, 1)
	p := doc.POIs[0]
	// Neither spelling has a majority across the pooled runs, so the pool
	// rule decides and the tie breaks toward the shorter form.
	assert.Equal(t, "Coit Tower", p.Name)
	assert.Contains(t, p.AltNames, "Coit Memorial Tower")
	assert.Equal(t, []string{"pass_a", "pass_b"}, p.AppearedIn)
	assert.Equal(t, "majority", p.ConsensusLabel)
	assert.Equal(t, model.ImportanceVotes{Primary: 2}, p.Votes)
	assert.True(t, doc.HasMergedRun("run_a"))
	assert.True(t, doc.HasMergedRun("run_b"))
}

func TestMergeSelectionIdempotent(t *testing.T) {
	e := newTestEngine()
	doc := &model.Document{}
	sel := selectionOf("run_a", "pass_a", model.RawMention{Name: "Ferry Building", Importance: "primary", NarrationScore: 5})

	first := e.MergeSelection(context.Background(), doc, sel)
	require.Equal(t, 1, first.RunsMerged)
	snapshot := *doc.POIs[0]

	second := e.MergeSelection(context.Background(), doc, sel)
	assert.Equal(t, 1, second.RunsSkipped)
	assert.Zero(t, second.RunsMerged)
	assert.Equal(t, snapshot.Votes, doc.POIs[0].Votes)
	assert.Equal(t, snapshot.Narration, doc.POIs[0].Narration)
	assert.Equal(t, snapshot.Confidence, doc.POIs[0].Confidence)
}

func TestMergeSelectionKeepRecordStatsOnly(t *testing.T) {
	e := newTestEngine()
	doc := &model.Document{POIs: []*model.POI{{
		ID: "coit-tower", Name: "Coit Tower", Address: "1 Telegraph Hill Blvd",
		Type: model.TypeTower, Status: model.StatusKeep, AppearedIn: []string{"pass_a"},
	}}}

	stats := e.MergeSelection(context.Background(), doc, selectionOf("run_b", "pass_b",
		model.RawMention{Name: "Coit Tower", Address: "somewhere else entirely", Type: "museum", Importance: "primary", NarrationScore: 3},
	))
	assert.Equal(t, 1, stats.LockedStats)
	assert.Zero(t, stats.Updated)

	p := doc.POIs[0]
	assert.Equal(t, "Coit Tower", p.Name)
	assert.Equal(t, "1 Telegraph Hill Blvd", p.Address)
	assert.Equal(t, model.TypeTower, p.Type)
	assert.Equal(t, model.StatusKeep, p.Status)
	assert.Equal(t, 1, p.Votes.Primary)
	assert.Equal(t, []string{"pass_a", "pass_b"}, p.AppearedIn)
}

func TestNewIDCollision(t *testing.T) {
	e := newTestEngine()
	doc := &model.Document{}

	e.MergeSelection(context.Background(), doc, selectionOf("run_a", "pass_a",
		model.RawMention{Name: "Mission Church", Address: "3321 16th St"},
	))
	// Similar names group, so use a distinct address and a name that slugs
	// identically but does not fuzz-match.
	id1 := doc.POIs[0].ID
	assert.Equal(t, "mission-church", id1)

	id2 := e.newID(doc, "Mission Church", "660 California St")
	assert.NotEqual(t, id1, id2)
	assert.Contains(t, id2, "mission-church-")
	assert.Len(t, id2, len("mission-church-")+6)
}

func TestFinalize(t *testing.T) {
	e := newTestEngine()
	doc := &model.Document{POIs: []*model.POI{
		{ID: "b", Name: "Beta", Status: model.StatusRaw, Confidence: 0.5, Narration: model.Narration{Mean: 3, Sum: 6, SumSq: 18, Count: 2}},
		{ID: "a", Name: "Alpha", Status: model.StatusKeep, Confidence: 0.9},
	}}
	e.Finalize(doc)
	assert.Equal(t, "a", doc.POIs[0].ID)
	assert.Zero(t, doc.POIs[1].Narration.Sum)
	assert.Zero(t, doc.POIs[1].Narration.SumSq)
	assert.Equal(t, 2, doc.POIs[1].Narration.Count)
	assert.False(t, doc.Meta.UpdatedAt.IsZero())
}
