package merge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wanderlane/tour-cli/internal/model"
)

func strPtr(s string) *string { return &s }

func batchDoc() *model.Document {
	return &model.Document{POIs: []*model.POI{
		{ID: "coit-tower", Name: "Coit Tower", Address: "1 Telegraph Hill Blvd", Status: model.StatusRecheck},
		{ID: "old-mint", Name: "Old Mint", Address: "88 5th St", Status: model.StatusRaw},
		{ID: "kept", Name: "Ferry Building", Status: model.StatusKeep},
	}}
}

func TestMergeRefineBatchesActions(t *testing.T) {
	e := newTestEngine()
	doc := batchDoc()

	stats := e.MergeRefineBatches(context.Background(), doc, []model.RefineBatch{{
		BatchID: "batch_1",
		Actions: []model.BatchAction{
			{POIID: "coit-tower", Action: model.ActionApprove},
			{POIID: "old-mint", Action: model.ActionUpdate, Patch: &model.PatchFields{
				Name:    strPtr("San Francisco Old Mint"),
				Address: strPtr("88 5th St, San Francisco, CA 94103"),
			}},
			{POIID: "kept", Action: model.ActionUpdate, Patch: &model.PatchFields{Name: strPtr("Renamed")}},
			{POIID: "ghost", Action: model.ActionDrop},
		},
	}})

	assert.Equal(t, 1, stats.Approved)
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 1, stats.LockedIgnored)
	assert.Equal(t, 1, stats.UnknownIDs)

	idx := doc.Index()
	assert.Equal(t, model.StatusGPTRefined, idx["coit-tower"].Status)
	assert.Equal(t, "San Francisco Old Mint", idx["old-mint"].Name)
	assert.Contains(t, idx["old-mint"].AltNames, "Old Mint")
	assert.Equal(t, model.StatusGPTRefined, idx["old-mint"].Status)
	assert.Equal(t, "Ferry Building", idx["kept"].Name)
	assert.Equal(t, model.StatusKeep, idx["kept"].Status)
}

func TestMergeRefineBatchesDropAndInfoFlags(t *testing.T) {
	e := newTestEngine()
	doc := batchDoc()

	e.MergeRefineBatches(context.Background(), doc, []model.RefineBatch{{
		BatchID: "batch_2",
		Actions: []model.BatchAction{
			{POIID: "coit-tower", Action: model.ActionDrop, Reason: "duplicate of another stop"},
			{POIID: "old-mint", Action: model.ActionNeedsMoreInfo, Reason: "which entrance?"},
		},
	}})

	idx := doc.Index()
	assert.True(t, idx["coit-tower"].Flags.DropSuggested)
	assert.Equal(t, model.StatusRecheck, idx["coit-tower"].Status)
	assert.Contains(t, idx["coit-tower"].Reasons, "duplicate of another stop")
	assert.Equal(t, "which entrance?", idx["old-mint"].Flags.NeedsMoreInfo)
	assert.Equal(t, model.StatusRaw, idx["old-mint"].Status)
}

func TestMergeRefineBatchesIdempotent(t *testing.T) {
	e := newTestEngine()
	doc := batchDoc()
	batch := []model.RefineBatch{{
		BatchID: "batch_3",
		Actions: []model.BatchAction{{POIID: "coit-tower", Action: model.ActionApprove}},
		NewPOIs: []model.RawMention{{Name: "Pier 7", Address: "Pier 7, The Embarcadero"}},
	}}

	first := e.MergeRefineBatches(context.Background(), doc, batch)
	require.Equal(t, 1, first.BatchesMerged)
	require.Equal(t, 1, first.NewInserted)
	count := len(doc.POIs)

	second := e.MergeRefineBatches(context.Background(), doc, batch)
	assert.Equal(t, 1, second.BatchesSkipped)
	assert.Zero(t, second.NewInserted)
	assert.Len(t, doc.POIs, count)
}

func TestApplyProposalsFix(t *testing.T) {
	e := newTestEngine()
	doc := &model.Document{POIs: []*model.POI{{
		ID: "old-mint", Name: "Old Mint", Address: "5th Street area", Status: model.StatusRecheck,
		Flags:   model.Flags{RecheckAttempts: 1},
		Place:   &model.Place{ID: "stale"},
		Reasons: []string{"geocode_failed"},
	}}}

	stats := e.ApplyProposals(context.Background(), doc, []model.Proposal{{
		Name: "Old Mint", Address: "88 5th St, San Francisco, CA 94103", Type: "building", GPTRefined: true,
	}}, "refine_1")

	assert.Equal(t, 1, stats.Fixed)
	p := doc.POIs[0]
	assert.Equal(t, model.StatusGPTRefined, p.Status)
	assert.Equal(t, "88 5th St, San Francisco, CA 94103", p.Address)
	assert.Nil(t, p.Place)
	assert.Empty(t, p.Reasons)
	assert.Zero(t, p.Flags.RecheckAttempts)
}

func TestApplyProposalsFixRenameKeepsOldName(t *testing.T) {
	e := newTestEngine()
	doc := &model.Document{POIs: []*model.POI{{
		ID: "old-mint", Name: "Old Mint", Address: "5th Street area", Status: model.StatusRecheck,
	}}}

	stats := e.ApplyProposals(context.Background(), doc, []model.Proposal{{
		Name: "Old Mint Building", Address: "88 5th St, San Francisco, CA 94103", GPTRefined: true,
	}}, "refine_1")

	assert.Equal(t, 1, stats.Fixed)
	p := doc.POIs[0]
	assert.Equal(t, "Old Mint Building", p.Name)
	assert.Contains(t, p.AltNames, "Old Mint")
}

func TestApplyProposalsVagueAddressDowngrade(t *testing.T) {
	e := newTestEngine()
	doc := &model.Document{POIs: []*model.POI{{
		ID: "crossing", Name: "Historic Crossing", Status: model.StatusRaw,
	}}}

	stats := e.ApplyProposals(context.Background(), doc, []model.Proposal{{
		Name: "Historic Crossing", Address: "Market St & 5th St, SF", GPTRefined: true,
	}}, "refine_1")

	assert.Equal(t, 1, stats.Downgraded)
	p := doc.POIs[0]
	assert.Equal(t, model.StatusRecheck, p.Status)
	assert.Contains(t, p.Reasons, "vague_address")
}

func TestApplyProposalsMatching(t *testing.T) {
	doc := &model.Document{POIs: []*model.POI{
		{ID: "saints-peter-and-paul", Name: "Saints Peter and Paul Church", Status: model.StatusRecheck},
		{ID: "grace-cathedral", Name: "Grace Cathedral", Status: model.StatusRecheck},
	}}
	e := newTestEngine()

	t.Run("containment match", func(t *testing.T) {
		stats := e.ApplyProposals(context.Background(), doc, []model.Proposal{{
			Name: "Saints Peter and Paul", Address: "666 Filbert St, San Francisco", GPTRefined: true,
		}}, "r")
		assert.Equal(t, 1, stats.Fixed)
	})
	t.Run("no match below floor", func(t *testing.T) {
		stats := e.ApplyProposals(context.Background(), doc, []model.Proposal{{
			Name: "Palace of Fine Arts", Address: "3601 Lyon St", GPTRefined: true,
		}}, "r")
		assert.Equal(t, 1, stats.Unmatched)
	})
}

func TestApplyProposalsNewAndDuplicate(t *testing.T) {
	e := newTestEngine()
	doc := &model.Document{POIs: []*model.POI{{ID: "pier-39", Name: "Pier 39", Status: model.StatusKeep}}}

	stats := e.ApplyProposals(context.Background(), doc, []model.Proposal{
		{Name: "Pier 39", Address: "Beach St & The Embarcadero"},
		{Name: "Sue Bierman Park", Address: "Washington St, San Francisco", Importance: "hidden_gem", NarrationScore: 3.5},
	}, "refine_2")

	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, 1, stats.Inserted)
	require.Len(t, doc.POIs, 2)
	added := doc.POIs[1]
	assert.Equal(t, model.StatusRaw, added.Status)
	assert.Equal(t, 1, added.Votes.HiddenGem)
}

func TestLockedRecordsUntouchedByProposals(t *testing.T) {
	e := newTestEngine()
	doc := &model.Document{POIs: []*model.POI{{
		ID: "pier-39", Name: "Pier 39", Address: "The Embarcadero", Type: model.TypeOther, Status: model.StatusDrop,
	}}}

	stats := e.ApplyProposals(context.Background(), doc, []model.Proposal{{
		Name: "Pier 39", Address: "elsewhere", Type: "park", GPTRefined: true,
	}}, "r")

	assert.Equal(t, 1, stats.LockedIgnored)
	p := doc.POIs[0]
	assert.Equal(t, "The Embarcadero", p.Address)
	assert.Equal(t, model.TypeOther, p.Type)
	assert.Equal(t, model.StatusDrop, p.Status)
}
