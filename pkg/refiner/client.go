// Package refiner asks a generative model to repair POIs the validation
// pass could not confirm: fixing vague addresses, renaming misidentified
// entries, and suggesting replacements for dropped ones. The model's reply
// is free-form text; extraction tolerates fences, prose, and curly quotes.
package refiner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/wanderlane/tour-cli/internal/model"
)

// Request carries the unresolved records the model is asked to repair.
type Request struct {
	City      string
	TourTitle string
	Recheck   []*model.POI
	Dropped   []*model.POI
	OpenSlots int
}

// Client proposes refinement edits for unresolved POIs.
type Client interface {
	Propose(ctx context.Context, req Request) ([]model.Proposal, error)
}

// Config for the Anthropic-backed client.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int64
}

type sdkClient struct {
	cfg    Config
	client sdk.Client
}

// New builds an Anthropic-backed refiner.
func New(cfg Config) Client {
	if cfg.Model == "" {
		cfg.Model = string(sdk.ModelClaudeSonnet4_5)
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	return &sdkClient{
		cfg:    cfg,
		client: sdk.NewClient(option.WithAPIKey(cfg.APIKey)),
	}
}

const systemPrompt = `You repair walking-tour points of interest that failed identity validation.
For each entry either fix it (corrected name and a precise, visitable street address, "gpt_refined": true)
or propose a nearby replacement of similar interest ("gpt_refined" omitted).
Reply with a JSON array of objects with keys: name, address, type, alt_names, importance, narration_score, teaser, gpt_refined.
No commentary outside the JSON.`

func (c *sdkClient) Propose(ctx context.Context, req Request) ([]model.Proposal, error) {
	if c.cfg.APIKey == "" {
		return nil, eris.New("refiner: api key not configured")
	}

	payload, err := buildPayload(req)
	if err != nil {
		return nil, err
	}

	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.cfg.Model),
		MaxTokens: c.cfg.MaxTokens,
		System:    []sdk.TextBlockParam{{Text: systemPrompt}},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(payload)),
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "refiner: create message")
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	proposals, skipped, err := ExtractProposals(text.String())
	if err != nil {
		return nil, err
	}
	zap.L().Info("refinement proposals extracted",
		zap.Int("proposals", len(proposals)),
		zap.Int("skipped", skipped),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
	)
	return proposals, nil
}

func buildPayload(req Request) (string, error) {
	lean := func(pois []*model.POI) []map[string]any {
		out := make([]map[string]any, 0, len(pois))
		for _, p := range pois {
			entry := map[string]any{
				"poi_id":  p.ID,
				"name":    p.Name,
				"address": p.Address,
				"type":    p.Type,
				"status":  p.Status,
			}
			if len(p.Reasons) > 0 {
				entry["reasons"] = p.Reasons
			}
			out = append(out, entry)
		}
		return out
	}
	body := map[string]any{
		"city":       req.City,
		"tour_title": req.TourTitle,
		"recheck":    lean(req.Recheck),
		"dropped":    lean(req.Dropped),
		"open_slots": req.OpenSlots,
	}
	raw, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "refiner: marshal payload")
	}
	return fmt.Sprintf("Repair or replace these points of interest:\n\n%s", raw), nil
}
