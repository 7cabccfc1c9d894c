package worldbuild

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"talecraft/internal/oracle"
	"talecraft/internal/truth"
)

const maxFollowUps = 5

func (o *Orchestrator) proposeQuestions(ctx context.Context, answer string, entityNames []string, hint string) ([]oracle.GeneratedQuestion, error) {
	if o.oracle == nil {
		return nil, oracle.ErrUnavailable
	}
	return o.oracle.Questions(ctx, answer, entityNames, hint)
}

// attachQuestions files proposed follow-ups as children of the answered
// node, skipping anything equivalent to a question already pending in
// the tree or earlier in the batch. Duplicates are dropped silently;
// a duplicate is not an error.
func (o *Orchestrator) attachQuestions(kb *truth.TruthKnowledgeBase, parent *truth.QuestionNode, proposals []oracle.GeneratedQuestion) []*truth.QuestionNode {
	existing := pendingNormalized(kb.Tree)

	var attached []*truth.QuestionNode
	for _, p := range proposals {
		if len(attached) == maxFollowUps {
			break
		}
		if isDuplicate(p.Question, existing) {
			o.log.Debug("deduplicated follow-up", zap.String("question", p.Question))
			continue
		}
		node := truth.NewQuestionNode(p.Question, p.EntityHint)
		if err := kb.Tree.AddNode(node, parent.ID); err != nil {
			o.log.Warn("attaching follow-up failed",
				zap.String("question", p.Question),
				zap.Error(err))
			continue
		}
		existing = append(existing, node.NormalizedQuestion())
		attached = append(attached, node)
	}
	return attached
}

// attachFallbackQuestions is the rule-based generator used when the
// oracle is out: template questions keyed off the answered node's
// entity-type hint. The same dedup applies.
func (o *Orchestrator) attachFallbackQuestions(kb *truth.TruthKnowledgeBase, parent *truth.QuestionNode) []*truth.QuestionNode {
	hints := []string{parent.EntityHint}
	if parent.EntityHint != truth.TypeGeneral {
		hints = append(hints, truth.TypeGeneral)
	}

	var proposals []oracle.GeneratedQuestion
	for _, hint := range hints {
		for _, q := range o.templates.QuestionsFor(hint) {
			proposals = append(proposals, oracle.GeneratedQuestion{Question: q, EntityHint: hint})
		}
	}
	return o.attachQuestions(kb, parent, proposals)
}

func pendingNormalized(tree *truth.QuestionTree) []string {
	var norms []string
	for _, n := range tree.Pending() {
		norms = append(norms, n.NormalizedQuestion())
	}
	return norms
}

// isDuplicate treats normalized equality or high lexical overlap as the
// same question.
func isDuplicate(question string, existing []string) bool {
	norm := truth.NormalizeQuestion(question)
	if norm == "" {
		return true
	}
	for _, other := range existing {
		if norm == other || tokenJaccard(norm, other) >= 0.75 {
			return true
		}
	}
	return false
}

func tokenJaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	var inter int
	for t := range setA {
		if setB[t] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range strings.Fields(s) {
		set[t] = true
	}
	return set
}
