// Package validate produces a human-readable health report for a
// project: structural invariant failures plus softer issues a writer
// may want to clean up.
package validate

import (
	"fmt"
	"strings"

	"talecraft/internal/truth"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warning"
)

const (
	codeInvariantBroken = "invariant_broken"
	codeDuplicateName   = "duplicate_name"
	codeEmptyEntity     = "empty_entity"
	codeStaleQuestion   = "stale_question"
)

type Issue struct {
	Severity Severity
	Code     string
	Message  string
	Entity   string
	Question string
}

type Report struct {
	Issues []Issue
}

func (r *Report) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Run checks the aggregate. Invariant failures come back as error-level
// issues rather than an error return so a report can show everything at
// once.
func Run(kb *truth.TruthKnowledgeBase) (*Report, error) {
	if kb == nil {
		return nil, fmt.Errorf("knowledge base is required")
	}

	report := &Report{Issues: make([]Issue, 0)}

	if err := kb.Validate(); err != nil {
		report.Issues = append(report.Issues, Issue{
			Severity: SeverityError,
			Code:     codeInvariantBroken,
			Message:  err.Error(),
		})
	}

	report.Issues = append(report.Issues, duplicateNames(kb)...)
	report.Issues = append(report.Issues, emptyEntities(kb)...)
	report.Issues = append(report.Issues, staleQuestions(kb)...)

	return report, nil
}

// duplicateNames flags entities of the same type sharing a name; the
// reconciler merges by name, so duplicates usually mean manual edits
// went sideways.
func duplicateNames(kb *truth.TruthKnowledgeBase) []Issue {
	var issues []Issue
	seen := make(map[string]string)
	for _, e := range kb.Entities.All() {
		key := e.EntityType() + "/" + strings.ToLower(e.DisplayName())
		if firstID, ok := seen[key]; ok {
			issues = append(issues, Issue{
				Severity: SeverityWarn,
				Code:     codeDuplicateName,
				Message:  fmt.Sprintf("%s %q duplicates %s", e.EntityType(), e.DisplayName(), firstID),
				Entity:   e.EntityID(),
			})
			continue
		}
		seen[key] = e.EntityID()
	}
	return issues
}

func emptyEntities(kb *truth.TruthKnowledgeBase) []Issue {
	var issues []Issue
	for _, c := range kb.Entities.All() {
		char, ok := c.(*truth.Character)
		if !ok {
			continue
		}
		if char.Description == "" && char.Backstory == "" && len(char.Traits) == 0 {
			issues = append(issues, Issue{
				Severity: SeverityWarn,
				Code:     codeEmptyEntity,
				Message:  fmt.Sprintf("character %q has a name and nothing else", char.Name),
				Entity:   char.ID,
			})
		}
	}
	return issues
}

// staleQuestions flags partially answered questions with no entity
// links; the partial signal came from keyword overlap only and may be
// noise.
func staleQuestions(kb *truth.TruthKnowledgeBase) []Issue {
	if kb.Tree == nil {
		return nil
	}
	var issues []Issue
	for _, n := range kb.Tree.PartiallyAnswered() {
		if len(n.RelatedEntities) == 0 {
			issues = append(issues, Issue{
				Severity: SeverityWarn,
				Code:     codeStaleQuestion,
				Message:  fmt.Sprintf("question %q is partially answered with no supporting entities", n.Question),
				Question: n.ID,
			})
		}
	}
	return issues
}
