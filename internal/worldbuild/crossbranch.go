package worldbuild

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"talecraft/internal/oracle"
	"talecraft/internal/truth"
)

// judgment pairs a scanned node with the relevance verdict for the new
// answer.
type judgment struct {
	nodeID    string
	relevance oracle.Relevance
}

// gather issues the cross-branch relevance calls and the follow-up
// question call concurrently. Results are collected here and applied by
// the caller in protocol order; nothing in this function mutates the
// knowledge base.
func (o *Orchestrator) gather(ctx context.Context, kb *truth.TruthKnowledgeBase, node *truth.QuestionNode, answer string, touched []string) ([]judgment, []oracle.GeneratedQuestion) {
	candidates := o.scanTargets(kb, node)
	entityNames := displayNames(kb, touched)

	judgments := make([]judgment, 0, len(candidates))
	var proposals []oracle.GeneratedQuestion
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, target := range candidates {
		g.Go(func() error {
			rel := o.judgeRelevance(gctx, answer, target, entityNames)
			if rel.Status == oracle.RelevanceNone {
				return nil
			}
			mu.Lock()
			judgments = append(judgments, judgment{nodeID: target.ID, relevance: rel})
			mu.Unlock()
			return nil
		})
	}

	g.Go(func() error {
		qs, err := o.proposeQuestions(gctx, answer, entityNames, node.EntityHint)
		if err != nil {
			o.log.Warn("question generation failed, will fall back", zap.Error(err))
			return nil
		}
		mu.Lock()
		proposals = qs
		mu.Unlock()
		return nil
	})

	// Errors degrade per call; the group never aborts the cycle.
	_ = g.Wait()

	// Deterministic application order regardless of goroutine timing.
	sortJudgments(kb, judgments)
	return judgments, proposals
}

// scanTargets returns every other node still worth scanning: pending or
// partially answered, in creation order. Answered nodes are excluded
// outright so cross-branch analysis can never demote or alter them.
func (o *Orchestrator) scanTargets(kb *truth.TruthKnowledgeBase, node *truth.QuestionNode) []*truth.QuestionNode {
	var targets []*truth.QuestionNode
	for _, n := range append(kb.Tree.Pending(), kb.Tree.PartiallyAnswered()...) {
		if n.ID != node.ID {
			targets = append(targets, n)
		}
	}
	return targets
}

// judgeRelevance asks the oracle, falling back to the name-overlap
// heuristic when the call fails. The heuristic never claims full
// resolution; only the oracle can do that.
func (o *Orchestrator) judgeRelevance(ctx context.Context, answer string, target *truth.QuestionNode, entityNames []string) oracle.Relevance {
	if o.oracle != nil {
		rel, err := o.oracle.Relevance(ctx, answer, target.Question)
		if err == nil {
			return *rel
		}
		o.log.Debug("relevance call failed, using heuristic",
			zap.String("node", target.ID),
			zap.Error(err))
	}
	return heuristicRelevance(answer, target.Question, entityNames)
}

// heuristicRelevance is the cheap fallback: an entity named in both the
// answer and the question, or strong keyword overlap, counts as partial
// context.
func heuristicRelevance(answer, question string, entityNames []string) oracle.Relevance {
	answerLower := strings.ToLower(answer)
	questionLower := strings.ToLower(question)

	var matched []string
	for _, name := range entityNames {
		n := strings.ToLower(name)
		if n != "" && strings.Contains(answerLower, n) && strings.Contains(questionLower, n) {
			matched = append(matched, name)
		}
	}
	if len(matched) > 0 {
		return oracle.Relevance{Status: oracle.RelevancePartially, MatchedEntities: matched}
	}

	if keywordOverlap(questionLower, answerLower) >= 0.5 {
		return oracle.Relevance{Status: oracle.RelevancePartially}
	}
	return oracle.Relevance{Status: oracle.RelevanceNone}
}

// keywordOverlap is the share of significant question words present in
// the answer.
func keywordOverlap(question, answer string) float64 {
	answerWords := make(map[string]bool)
	for _, w := range strings.Fields(answer) {
		answerWords[trimWord(w)] = true
	}

	var total, hits int
	for _, w := range strings.Fields(question) {
		w = trimWord(w)
		if len(w) < 4 || stopWords[w] {
			continue
		}
		total++
		if answerWords[w] {
			hits++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

func trimWord(w string) string {
	return strings.Trim(strings.ToLower(w), ".,;:!?\"'()")
}

var stopWords = map[string]bool{
	"what": true, "does": true, "this": true, "that": true, "your": true,
	"story": true, "about": true, "with": true, "have": true, "there": true,
	"where": true, "when": true, "which": true, "their": true, "them": true,
}

// applyCrossBranch applies the collected judgments: full resolution
// promotes to answered (with the inferred answer when the node has
// none), partial context promotes pending to partially_answered. The
// entity links carry the answered node as their source so a later clear
// can retract them.
func (o *Orchestrator) applyCrossBranch(kb *truth.TruthKnowledgeBase, source *truth.QuestionNode, judgments []judgment, touched []string) []NodeUpdate {
	links := make([]truth.EntityLink, 0, len(touched))
	for _, id := range touched {
		links = append(links, truth.EntityLink{EntityID: id, SourceID: source.ID})
	}

	var updates []NodeUpdate
	for _, j := range judgments {
		target, err := kb.Tree.Node(j.nodeID)
		if err != nil {
			continue
		}
		old := target.Status

		var status string
		switch j.relevance.Status {
		case oracle.RelevanceFully:
			status = truth.StatusAnswered
		case oracle.RelevancePartially:
			status = truth.StatusPartiallyAnswered
		default:
			continue
		}

		if err := kb.Tree.UpdateStatus(j.nodeID, status, links...); err != nil {
			// Monotonicity wins over the new signal.
			o.log.Debug("cross-branch update rejected",
				zap.String("node", j.nodeID),
				zap.Error(err))
			continue
		}
		if status == truth.StatusAnswered && target.Answer == "" && j.relevance.InferredAnswer != "" {
			target.Answer = j.relevance.InferredAnswer
		}
		if old != target.Status {
			updates = append(updates, NodeUpdate{NodeID: j.nodeID, OldStatus: old, NewStatus: target.Status})
		}
	}
	return updates
}

func sortJudgments(kb *truth.TruthKnowledgeBase, judgments []judgment) {
	seq := func(id string) int {
		if n, err := kb.Tree.Node(id); err == nil {
			return n.Seq
		}
		return 0
	}
	for i := 1; i < len(judgments); i++ {
		for j := i; j > 0 && seq(judgments[j].nodeID) < seq(judgments[j-1].nodeID); j-- {
			judgments[j], judgments[j-1] = judgments[j-1], judgments[j]
		}
	}
}

func displayNames(kb *truth.TruthKnowledgeBase, ids []string) []string {
	var names []string
	for _, id := range ids {
		if e, err := kb.Entities.Get(id); err == nil {
			names = append(names, e.DisplayName())
		}
	}
	return names
}
