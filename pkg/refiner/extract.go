package refiner

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/wanderlane/tour-cli/internal/model"
)

var fenceRx = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

var quoteFold = strings.NewReplacer("“", `"`, "”", `"`, "‘", "'", "’", "'")

// ExtractProposals pulls a proposal list out of free-form model output.
// It tries, in order: the whole text, the first fenced code block, and the
// largest balanced JSON array or object. Non-object items are skipped and
// counted rather than failing the batch.
func ExtractProposals(text string) (proposals []model.Proposal, skipped int, err error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, 0, eris.New("refiner: empty response")
	}

	candidates := []string{text}
	if m := fenceRx.FindStringSubmatch(text); m != nil {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	if b := largestBalanced(text); b != "" {
		candidates = append(candidates, b)
	}

	for _, c := range candidates {
		c = quoteFold.Replace(c)
		if items, ok := decodeItems(c); ok {
			return convertItems(items)
		}
	}
	return nil, 0, eris.New("refiner: no parseable JSON in response")
}

// decodeItems accepts a bare array, or an object wrapping one under a
// conventional key.
func decodeItems(s string) ([]json.RawMessage, bool) {
	var arr []json.RawMessage
	if err := json.Unmarshal([]byte(s), &arr); err == nil {
		return arr, true
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &wrapper); err != nil {
		return nil, false
	}
	for _, key := range []string{"proposals", "pois", "items", "results"} {
		if raw, ok := wrapper[key]; ok {
			if err := json.Unmarshal(raw, &arr); err == nil {
				return arr, true
			}
		}
	}
	return nil, false
}

func convertItems(items []json.RawMessage) ([]model.Proposal, int, error) {
	var out []model.Proposal
	skipped := 0
	for _, raw := range items {
		var p model.Proposal
		if err := json.Unmarshal(raw, &p); err != nil || strings.TrimSpace(p.Name) == "" {
			skipped++
			continue
		}
		out = append(out, p)
	}
	return out, skipped, nil
}

// largestBalanced returns the longest balanced {...} or [...] span in s,
// ignoring brackets inside string literals.
func largestBalanced(s string) string {
	best := ""
	for _, open := range []byte{'[', '{'} {
		close := byte(']')
		if open == '{' {
			close = '}'
		}
		for start := 0; start < len(s); start++ {
			if s[start] != open {
				continue
			}
			depth := 0
			inString := false
			escaped := false
			for i := start; i < len(s); i++ {
				ch := s[i]
				if inString {
					switch {
					case escaped:
						escaped = false
					case ch == '\\':
						escaped = true
					case ch == '"':
						inString = false
					}
					continue
				}
				switch ch {
				case '"':
					inString = true
				case open:
					depth++
				case close:
					depth--
					if depth == 0 {
						if span := s[start : i+1]; len(span) > len(best) {
							best = span
						}
						i = len(s)
					}
				}
			}
		}
	}
	return best
}
