// Package oracle defines the extraction oracle contract: the narrow
// interface through which the core asks an external model to turn free
// text into entity candidates, relevance judgments, and follow-up
// questions. Implementations may fail; callers treat both error kinds
// as recoverable and fall back to rule-based behavior.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnavailable marks transport-level failure: the oracle could not
	// be reached or did not respond in time.
	ErrUnavailable = errors.New("oracle unavailable")

	// ErrMalformedResponse marks a reply that arrived but failed strict
	// validation against the expected shape.
	ErrMalformedResponse = errors.New("oracle malformed response")
)

// Relevance statuses for a (answer, question) pair.
const (
	RelevanceFully     = "fully"
	RelevancePartially = "partially"
	RelevanceNone      = "none"
)

// Candidate is one extracted entity. Type decides which field subset is
// meaningful. ExistingID is the oracle's best-effort mapping onto an
// entity already in the store (same name or alias); empty means new.
type Candidate struct {
	EntityType  string   `json:"type"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Traits      []string `json:"traits,omitempty"`
	Motivations []string `json:"motivations,omitempty"`
	Role        string   `json:"role,omitempty"`
	Timestamp   string   `json:"timestamp,omitempty"`
	Involved    []string `json:"involved,omitempty"`
	Kind        string   `json:"kind,omitempty"`
	Rules       []string `json:"rules,omitempty"`
	ExistingID  string   `json:"existing_id,omitempty"`
}

// Validate rejects malformed candidates at the boundary rather than
// letting them into the store.
func (c *Candidate) Validate() error {
	switch c.EntityType {
	case "character", "plot_event", "setting":
	default:
		return fmt.Errorf("candidate type %q: %w", c.EntityType, ErrMalformedResponse)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("candidate has no name: %w", ErrMalformedResponse)
	}
	return nil
}

// Extraction is the result of one extract call.
type Extraction struct {
	Candidates []Candidate `json:"entities"`
	Confidence float64     `json:"confidence"`
}

// Relevance is the judgment of whether an answer bears on a question.
type Relevance struct {
	Status          string   `json:"status"`
	MatchedEntities []string `json:"matched_entities,omitempty"`
	InferredAnswer  string   `json:"inferred_answer,omitempty"`
}

func (r *Relevance) Validate() error {
	switch r.Status {
	case RelevanceFully, RelevancePartially, RelevanceNone:
		return nil
	}
	return fmt.Errorf("relevance status %q: %w", r.Status, ErrMalformedResponse)
}

// GeneratedQuestion is one follow-up proposed by the oracle.
type GeneratedQuestion struct {
	Question   string `json:"question"`
	EntityHint string `json:"entity_hint"`
}

// Oracle is the external collaborator contract. All three calls are
// pure from the core's perspective: no side effects, safe to retry.
type Oracle interface {
	// Extract returns candidate entities found in text. question and
	// hint ground the extraction but may be empty.
	Extract(ctx context.Context, text, question, hint string) (*Extraction, error)

	// Relevance judges whether answer text resolves the given question.
	Relevance(ctx context.Context, answer, question string) (*Relevance, error)

	// Questions proposes follow-up questions about the named entities.
	Questions(ctx context.Context, answer string, entities []string, hint string) ([]GeneratedQuestion, error)
}
