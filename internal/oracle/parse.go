package oracle

import (
	"encoding/json"
	"fmt"
	"strings"
)

// stripFences removes a markdown code fence if the model wrapped its
// JSON in one despite the JSON response mode.
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}

func parseExtraction(raw string) (*Extraction, error) {
	var ext Extraction
	if err := json.Unmarshal([]byte(stripFences(raw)), &ext); err != nil {
		return nil, fmt.Errorf("parsing extraction: %w: %v", ErrMalformedResponse, err)
	}

	// Individual bad candidates are dropped, not fatal; an extraction
	// that yields nothing valid from a non-empty list is malformed.
	valid := ext.Candidates[:0]
	for _, c := range ext.Candidates {
		if err := c.Validate(); err == nil {
			valid = append(valid, c)
		}
	}
	if len(ext.Candidates) > 0 && len(valid) == 0 {
		return nil, fmt.Errorf("no valid candidates in extraction: %w", ErrMalformedResponse)
	}
	ext.Candidates = valid

	if ext.Confidence < 0 || ext.Confidence > 1 {
		return nil, fmt.Errorf("confidence %f out of range: %w", ext.Confidence, ErrMalformedResponse)
	}
	return &ext, nil
}

func parseRelevance(raw string) (*Relevance, error) {
	var rel Relevance
	if err := json.Unmarshal([]byte(stripFences(raw)), &rel); err != nil {
		return nil, fmt.Errorf("parsing relevance: %w: %v", ErrMalformedResponse, err)
	}
	if err := rel.Validate(); err != nil {
		return nil, err
	}
	return &rel, nil
}

func parseQuestions(raw string) ([]GeneratedQuestion, error) {
	var out struct {
		Questions []GeneratedQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &out); err != nil {
		return nil, fmt.Errorf("parsing questions: %w: %v", ErrMalformedResponse, err)
	}

	valid := out.Questions[:0]
	for _, q := range out.Questions {
		if strings.TrimSpace(q.Question) == "" {
			continue
		}
		switch q.EntityHint {
		case "character", "plot_event", "setting", "general":
		default:
			q.EntityHint = "general"
		}
		valid = append(valid, q)
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("no questions in response: %w", ErrMalformedResponse)
	}
	return valid, nil
}
