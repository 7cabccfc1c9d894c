// Package worldbuild drives the elicitation cycle: one user answer in,
// a consistent set of truth updates and follow-up questions out. The
// reconciliation protocol lives here and nowhere else.
package worldbuild

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"talecraft/internal/config"
	"talecraft/internal/oracle"
	"talecraft/internal/truth"
)

// Delta is what one orchestration cycle changed, so the caller can
// react without re-reading the whole tree.
type Delta struct {
	NewQuestions    []*truth.QuestionNode `json:"new_questions"`
	TouchedEntities []string              `json:"touched_entities"`
	UpdatedNodes    []NodeUpdate          `json:"updated_nodes"`

	// Degraded is set when the oracle was unavailable or malformed and
	// the cycle fell back to rule-based generation. The answer itself is
	// always recorded regardless.
	Degraded bool   `json:"degraded,omitempty"`
	Warning  string `json:"warning,omitempty"`
}

// NodeUpdate records a cross-branch status change.
type NodeUpdate struct {
	NodeID    string `json:"node_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// Orchestrator runs answer cycles against a TruthKnowledgeBase it
// borrows per call. Cycles against the same orchestrator are
// serialized; concurrent cycles against the same knowledge base through
// different orchestrators are unsupported.
type Orchestrator struct {
	oracle    oracle.Oracle
	templates *config.Templates
	log       *zap.Logger

	mu sync.Mutex
}

// New builds an orchestrator. ora may be nil, which forces the
// rule-based fallback path for every cycle.
func New(ora oracle.Oracle, templates *config.Templates, log *zap.Logger) *Orchestrator {
	if templates == nil {
		templates = config.DefaultTemplates()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{oracle: ora, templates: templates, log: log}
}

// Initialize bootstraps a project's question tree from the writer's
// initial story description and runs a first generation pass over it.
func (o *Orchestrator) Initialize(ctx context.Context, kb *truth.TruthKnowledgeBase, description string) (*Delta, error) {
	root, err := kb.InitTree(o.templates.RootQuestion, "")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(description) == "" {
		return &Delta{}, nil
	}
	return o.AnswerQuestion(ctx, kb, root.ID, description)
}

// AnswerQuestion is the core protocol. Steps, in order:
//
//  1. record the answer on the target node (never lost, even when
//     everything after fails);
//  2. extract entities from the answer text;
//  3. reconcile candidates into the entity store;
//  4. scan every other pending or partially-answered node for
//     cross-branch resolution;
//  5. generate deduplicated follow-up questions under the node;
//  6. return the delta.
//
// Oracle failure in step 2 degrades the cycle: steps 3 and 4 are
// skipped, step 5 uses the rule-based templates, and the delta carries
// a warning.
func (o *Orchestrator) AnswerQuestion(ctx context.Context, kb *truth.TruthKnowledgeBase, nodeID, answer string) (*Delta, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if kb.Tree == nil {
		return nil, fmt.Errorf("answering question: tree not initialized: %w", truth.ErrNotFound)
	}
	node, err := kb.Tree.Node(nodeID)
	if err != nil {
		return nil, fmt.Errorf("answering question: %w", err)
	}

	// Step 1. Applied before anything that can fail.
	if err := kb.Tree.SetAnswer(nodeID, answer); err != nil {
		return nil, err
	}
	kb.Touch()

	delta := &Delta{}

	// Step 2.
	ext, extractErr := o.extract(ctx, node, answer)
	if extractErr != nil {
		o.log.Warn("extraction failed, degrading cycle",
			zap.String("node", nodeID),
			zap.Error(extractErr))
		delta.Degraded = true
		delta.Warning = fmt.Sprintf("oracle unavailable, follow-ups are template-based: %v", extractErr)
		delta.NewQuestions = o.attachFallbackQuestions(kb, node)
		kb.Touch()
		return delta, nil
	}

	// Step 3.
	touched, err := o.reconcile(kb, node, ext.Candidates)
	if err != nil {
		return delta, err
	}
	delta.TouchedEntities = touched

	// Steps 4 and 5 gather their oracle results concurrently but apply
	// them in protocol order below.
	judgments, proposals := o.gather(ctx, kb, node, answer, touched)

	// Step 4.
	delta.UpdatedNodes = o.applyCrossBranch(kb, node, judgments, touched)

	// Step 5.
	delta.NewQuestions = o.attachQuestions(kb, node, proposals)
	if len(delta.NewQuestions) == 0 && len(proposals) == 0 {
		// The oracle produced nothing usable; the writer still gets
		// template follow-ups rather than a dead end.
		delta.NewQuestions = o.attachFallbackQuestions(kb, node)
	}

	kb.Touch()
	o.log.Info("answer cycle complete",
		zap.String("node", nodeID),
		zap.Int("touched_entities", len(delta.TouchedEntities)),
		zap.Int("cross_branch_updates", len(delta.UpdatedNodes)),
		zap.Int("new_questions", len(delta.NewQuestions)))
	return delta, nil
}

func (o *Orchestrator) extract(ctx context.Context, node *truth.QuestionNode, answer string) (*oracle.Extraction, error) {
	if o.oracle == nil {
		return nil, oracle.ErrUnavailable
	}
	return o.oracle.Extract(ctx, answer, node.Question, node.EntityHint)
}

// ClearAnswer is the explicit user-initiated edit path: the node resets
// to pending and every cross-branch link derived from its answer is
// retracted.
func (o *Orchestrator) ClearAnswer(kb *truth.TruthKnowledgeBase, nodeID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if kb.Tree == nil {
		return fmt.Errorf("clearing answer: tree not initialized: %w", truth.ErrNotFound)
	}
	if err := kb.Tree.ClearAnswer(nodeID); err != nil {
		return err
	}
	kb.Touch()
	return nil
}
