package worldbuild

import (
	"context"
	"strings"
	"testing"

	"talecraft/internal/oracle"
	"talecraft/internal/truth"
)

// mockOracle implements oracle.Oracle with function fields. Nil fields
// report unavailability.
type mockOracle struct {
	extract   func(text, question, hint string) (*oracle.Extraction, error)
	relevance func(answer, question string) (*oracle.Relevance, error)
	questions func(answer string, entities []string, hint string) ([]oracle.GeneratedQuestion, error)
}

func (m *mockOracle) Extract(_ context.Context, text, question, hint string) (*oracle.Extraction, error) {
	if m.extract == nil {
		return nil, oracle.ErrUnavailable
	}
	return m.extract(text, question, hint)
}

func (m *mockOracle) Relevance(_ context.Context, answer, question string) (*oracle.Relevance, error) {
	if m.relevance == nil {
		return nil, oracle.ErrUnavailable
	}
	return m.relevance(answer, question)
}

func (m *mockOracle) Questions(_ context.Context, answer string, entities []string, hint string) ([]oracle.GeneratedQuestion, error) {
	if m.questions == nil {
		return nil, oracle.ErrUnavailable
	}
	return m.questions(answer, entities, hint)
}

func newKB(t *testing.T) (*truth.TruthKnowledgeBase, *truth.QuestionNode) {
	t.Helper()
	kb := truth.NewTruthKnowledgeBase()
	root, err := kb.InitTree("What is your story about?", "A heist story set in Venice.")
	if err != nil {
		t.Fatalf("initializing: %v", err)
	}
	return kb, root
}

func addChild(t *testing.T, kb *truth.TruthKnowledgeBase, parentID, question, hint string) *truth.QuestionNode {
	t.Helper()
	n := truth.NewQuestionNode(question, hint)
	if err := kb.Tree.AddNode(n, parentID); err != nil {
		t.Fatalf("adding node: %v", err)
	}
	return n
}

func TestAnswerQuestionCycle(t *testing.T) {
	kb, root := newKB(t)
	target := addChild(t, kb, root.ID, "Who is the protagonist?", truth.TypeCharacter)

	ora := &mockOracle{
		extract: func(text, question, hint string) (*oracle.Extraction, error) {
			return &oracle.Extraction{
				Candidates: []oracle.Candidate{{
					EntityType:  truth.TypeCharacter,
					Name:        "Elena",
					Description: "A cunning thief.",
					Traits:      []string{"cunning"},
				}},
				Confidence: 0.9,
			}, nil
		},
		relevance: func(answer, question string) (*oracle.Relevance, error) {
			return &oracle.Relevance{Status: oracle.RelevanceNone}, nil
		},
		questions: func(answer string, entities []string, hint string) ([]oracle.GeneratedQuestion, error) {
			return []oracle.GeneratedQuestion{
				{Question: "What does Elena want?", EntityHint: truth.TypeCharacter},
				{Question: "Who taught Elena to steal?", EntityHint: truth.TypeCharacter},
			}, nil
		},
	}

	orch := New(ora, nil, nil)
	delta, err := orch.AnswerQuestion(context.Background(), kb, target.ID, "Elena, a cunning thief.")
	if err != nil {
		t.Fatalf("answering: %v", err)
	}

	if delta.Degraded {
		t.Fatalf("unexpected degraded cycle: %s", delta.Warning)
	}
	if target.Status != truth.StatusAnswered || target.Answer != "Elena, a cunning thief." {
		t.Fatalf("answer not recorded: %+v", target)
	}

	if len(delta.TouchedEntities) != 1 {
		t.Fatalf("expected 1 touched entity, got %v", delta.TouchedEntities)
	}
	elena, err := kb.Entities.Get(delta.TouchedEntities[0])
	if err != nil {
		t.Fatalf("entity not stored: %v", err)
	}
	if elena.DisplayName() != "Elena" {
		t.Fatalf("unexpected entity: %v", elena)
	}

	ids := target.RelatedEntityIDs()
	if len(ids) != 1 || ids[0] != elena.EntityID() {
		t.Fatalf("node not linked to entity: %v", ids)
	}

	if len(delta.NewQuestions) != 2 {
		t.Fatalf("expected 2 follow-ups, got %d", len(delta.NewQuestions))
	}
	for _, q := range delta.NewQuestions {
		if q.ParentID != target.ID {
			t.Fatalf("follow-up not attached under answered node: %+v", q)
		}
		if q.Status != truth.StatusPending {
			t.Fatalf("follow-up not pending: %+v", q)
		}
	}

	if err := kb.Validate(); err != nil {
		t.Fatalf("aggregate inconsistent after cycle: %v", err)
	}
}

func TestAnswerQuestionReusesExistingEntity(t *testing.T) {
	kb, root := newKB(t)
	target := addChild(t, kb, root.ID, "What does Elena fear?", truth.TypeCharacter)
	existing, err := kb.Entities.Add(&truth.Character{Name: "Elena", Description: "A thief."})
	if err != nil {
		t.Fatalf("adding: %v", err)
	}

	ora := &mockOracle{
		extract: func(text, question, hint string) (*oracle.Extraction, error) {
			return &oracle.Extraction{
				Candidates: []oracle.Candidate{{
					EntityType:  truth.TypeCharacter,
					Name:        "elena",
					Description: "She fears heights.",
				}},
				Confidence: 0.8,
			}, nil
		},
	}

	orch := New(ora, nil, nil)
	delta, err := orch.AnswerQuestion(context.Background(), kb, target.ID, "Elena fears heights.")
	if err != nil {
		t.Fatalf("answering: %v", err)
	}

	if len(delta.TouchedEntities) != 1 || delta.TouchedEntities[0] != existing {
		t.Fatalf("expected existing entity updated, got %v", delta.TouchedEntities)
	}
	if kb.Entities.Len() != 1 {
		t.Fatalf("duplicate entity created")
	}
	c := kb.Entities.Characters[existing]
	if !strings.Contains(c.Description, "She fears heights.") {
		t.Fatalf("description not merged: %q", c.Description)
	}
}

func TestAnswerQuestionCrossBranch(t *testing.T) {
	kb, root := newKB(t)
	target := addChild(t, kb, root.ID, "Who is the protagonist?", truth.TypeCharacter)
	resolved := addChild(t, kb, root.ID, "What is the protagonist's name?", truth.TypeCharacter)
	context1 := addChild(t, kb, root.ID, "Who helps Elena on the job?", truth.TypeCharacter)
	untouched := addChild(t, kb, root.ID, "Where does it take place?", truth.TypeSetting)

	ora := &mockOracle{
		extract: func(text, question, hint string) (*oracle.Extraction, error) {
			return &oracle.Extraction{
				Candidates: []oracle.Candidate{{EntityType: truth.TypeCharacter, Name: "Elena"}},
				Confidence: 0.9,
			}, nil
		},
		relevance: func(answer, question string) (*oracle.Relevance, error) {
			switch question {
			case resolved.Question:
				return &oracle.Relevance{Status: oracle.RelevanceFully, InferredAnswer: "Elena"}, nil
			case context1.Question:
				return &oracle.Relevance{Status: oracle.RelevancePartially, MatchedEntities: []string{"Elena"}}, nil
			default:
				return &oracle.Relevance{Status: oracle.RelevanceNone}, nil
			}
		},
	}

	orch := New(ora, nil, nil)
	delta, err := orch.AnswerQuestion(context.Background(), kb, target.ID, "The protagonist is Elena.")
	if err != nil {
		t.Fatalf("answering: %v", err)
	}

	if resolved.Status != truth.StatusAnswered {
		t.Fatalf("expected full resolution, got %s", resolved.Status)
	}
	if resolved.Answer != "Elena" {
		t.Fatalf("inferred answer not recorded: %q", resolved.Answer)
	}
	if context1.Status != truth.StatusPartiallyAnswered {
		t.Fatalf("expected partial context, got %s", context1.Status)
	}
	if untouched.Status != truth.StatusPending {
		t.Fatalf("unrelated node changed: %s", untouched.Status)
	}

	// Creation order regardless of goroutine timing.
	if len(delta.UpdatedNodes) != 2 {
		t.Fatalf("expected 2 updates, got %v", delta.UpdatedNodes)
	}
	if delta.UpdatedNodes[0].NodeID != resolved.ID || delta.UpdatedNodes[1].NodeID != context1.ID {
		t.Fatalf("updates out of creation order: %v", delta.UpdatedNodes)
	}

	// Links from the source answer landed on the resolved nodes, so a
	// later clear of the source can retract them.
	if ids := resolved.RelatedEntityIDs(); len(ids) != 1 {
		t.Fatalf("expected entity link on resolved node, got %v", ids)
	}
}

func TestAnswerQuestionNeverDemotes(t *testing.T) {
	kb, root := newKB(t)
	target := addChild(t, kb, root.ID, "Who is the protagonist?", truth.TypeCharacter)
	partial := addChild(t, kb, root.ID, "Who helps Elena?", truth.TypeCharacter)
	if err := kb.Tree.UpdateStatus(partial.ID, truth.StatusPartiallyAnswered); err != nil {
		t.Fatalf("seeding: %v", err)
	}

	ora := &mockOracle{
		extract: func(text, question, hint string) (*oracle.Extraction, error) {
			return &oracle.Extraction{Confidence: 0.5}, nil
		},
		relevance: func(answer, question string) (*oracle.Relevance, error) {
			return &oracle.Relevance{Status: oracle.RelevancePartially}, nil
		},
	}

	orch := New(ora, nil, nil)
	if _, err := orch.AnswerQuestion(context.Background(), kb, target.ID, "Elena works alone."); err != nil {
		t.Fatalf("answering: %v", err)
	}
	if partial.Status != truth.StatusPartiallyAnswered {
		t.Fatalf("status changed: %s", partial.Status)
	}
}

func TestAnswerQuestionDegraded(t *testing.T) {
	t.Run("nil oracle", func(t *testing.T) {
		kb, root := newKB(t)
		target := addChild(t, kb, root.ID, "Who is the protagonist?", truth.TypeCharacter)

		orch := New(nil, nil, nil)
		delta, err := orch.AnswerQuestion(context.Background(), kb, target.ID, "Elena.")
		if err != nil {
			t.Fatalf("answering: %v", err)
		}

		if !delta.Degraded || delta.Warning == "" {
			t.Fatalf("expected degraded delta, got %+v", delta)
		}
		if target.Status != truth.StatusAnswered || target.Answer != "Elena." {
			t.Fatalf("answer lost on degraded cycle: %+v", target)
		}
		if len(delta.NewQuestions) == 0 {
			t.Fatalf("expected template follow-ups")
		}
		for _, q := range delta.NewQuestions {
			if q.ParentID != target.ID {
				t.Fatalf("template follow-up not attached: %+v", q)
			}
		}
	})

	t.Run("oracle transport failure", func(t *testing.T) {
		kb, root := newKB(t)
		target := addChild(t, kb, root.ID, "Where does it take place?", truth.TypeSetting)

		ora := &mockOracle{
			extract: func(text, question, hint string) (*oracle.Extraction, error) {
				return nil, oracle.ErrUnavailable
			},
		}
		orch := New(ora, nil, nil)
		delta, err := orch.AnswerQuestion(context.Background(), kb, target.ID, "Venice.")
		if err != nil {
			t.Fatalf("answering: %v", err)
		}
		if !delta.Degraded {
			t.Fatalf("expected degraded delta")
		}
		if kb.Entities.Len() != 0 {
			t.Fatalf("degraded cycle must not touch entities")
		}
		// Hint-specific templates come first.
		if len(delta.NewQuestions) == 0 || delta.NewQuestions[0].EntityHint != truth.TypeSetting {
			t.Fatalf("expected setting templates first, got %+v", delta.NewQuestions)
		}
	})
}

func TestAnswerQuestionFallsBackWhenOracleProposesNothing(t *testing.T) {
	kb, root := newKB(t)
	target := addChild(t, kb, root.ID, "Who is the protagonist?", truth.TypeCharacter)

	ora := &mockOracle{
		extract: func(text, question, hint string) (*oracle.Extraction, error) {
			return &oracle.Extraction{Confidence: 0.2}, nil
		},
		questions: func(answer string, entities []string, hint string) ([]oracle.GeneratedQuestion, error) {
			return nil, nil
		},
	}

	orch := New(ora, nil, nil)
	delta, err := orch.AnswerQuestion(context.Background(), kb, target.ID, "Elena.")
	if err != nil {
		t.Fatalf("answering: %v", err)
	}
	if delta.Degraded {
		t.Fatalf("empty proposals are not a degraded cycle")
	}
	if len(delta.NewQuestions) == 0 {
		t.Fatalf("expected template fallback when oracle proposes nothing")
	}
}

func TestAttachQuestionsDeduplicates(t *testing.T) {
	kb, root := newKB(t)
	target := addChild(t, kb, root.ID, "Who is the protagonist?", truth.TypeCharacter)
	addChild(t, kb, root.ID, "Where does the story take place?", truth.TypeSetting)

	ora := &mockOracle{
		extract: func(text, question, hint string) (*oracle.Extraction, error) {
			return &oracle.Extraction{Confidence: 0.5}, nil
		},
		questions: func(answer string, entities []string, hint string) ([]oracle.GeneratedQuestion, error) {
			return []oracle.GeneratedQuestion{
				{Question: "Where does the story take place?", EntityHint: truth.TypeSetting},
				{Question: "where DOES the story take place??", EntityHint: truth.TypeSetting},
				{Question: "What does Elena want?", EntityHint: truth.TypeCharacter},
				{Question: "What does Elena want?", EntityHint: truth.TypeCharacter},
			}, nil
		},
	}

	orch := New(ora, nil, nil)
	delta, err := orch.AnswerQuestion(context.Background(), kb, target.ID, "Elena.")
	if err != nil {
		t.Fatalf("answering: %v", err)
	}

	if len(delta.NewQuestions) != 1 {
		t.Fatalf("expected 1 new question after dedup, got %d", len(delta.NewQuestions))
	}
	if delta.NewQuestions[0].Question != "What does Elena want?" {
		t.Fatalf("wrong survivor: %q", delta.NewQuestions[0].Question)
	}
}

func TestClearAnswerRetracts(t *testing.T) {
	kb, root := newKB(t)
	target := addChild(t, kb, root.ID, "Who is the protagonist?", truth.TypeCharacter)
	sibling := addChild(t, kb, root.ID, "What is the protagonist's name?", truth.TypeCharacter)

	ora := &mockOracle{
		extract: func(text, question, hint string) (*oracle.Extraction, error) {
			return &oracle.Extraction{
				Candidates: []oracle.Candidate{{EntityType: truth.TypeCharacter, Name: "Elena"}},
				Confidence: 0.9,
			}, nil
		},
		relevance: func(answer, question string) (*oracle.Relevance, error) {
			if question == sibling.Question {
				return &oracle.Relevance{Status: oracle.RelevanceFully, InferredAnswer: "Elena"}, nil
			}
			return &oracle.Relevance{Status: oracle.RelevanceNone}, nil
		},
	}

	orch := New(ora, nil, nil)
	if _, err := orch.AnswerQuestion(context.Background(), kb, target.ID, "The protagonist is Elena."); err != nil {
		t.Fatalf("answering: %v", err)
	}
	if len(sibling.RelatedEntityIDs()) == 0 {
		t.Fatalf("expected derived link on sibling")
	}

	if err := orch.ClearAnswer(kb, target.ID); err != nil {
		t.Fatalf("clearing: %v", err)
	}

	if target.Status != truth.StatusPending || target.Answer != "" {
		t.Fatalf("target not reset: %+v", target)
	}
	if len(sibling.RelatedEntityIDs()) != 0 {
		t.Fatalf("derived link on sibling not retracted: %v", sibling.RelatedEntityIDs())
	}
	// The entity itself stays; only the provenance links go.
	if kb.Entities.Len() != 1 {
		t.Fatalf("entity removed by clear")
	}
}

func TestHeuristicRelevance(t *testing.T) {
	t.Run("entity named in both sides", func(t *testing.T) {
		rel := heuristicRelevance("Elena is a thief.", "What does Elena fear?", []string{"Elena"})
		if rel.Status != oracle.RelevancePartially {
			t.Fatalf("expected partial, got %s", rel.Status)
		}
		if len(rel.MatchedEntities) != 1 || rel.MatchedEntities[0] != "Elena" {
			t.Fatalf("expected matched entity, got %v", rel.MatchedEntities)
		}
	})

	t.Run("keyword overlap", func(t *testing.T) {
		rel := heuristicRelevance(
			"The vault under the basilica holds the doge's treasure.",
			"Where is the treasure vault?",
			nil)
		if rel.Status != oracle.RelevancePartially {
			t.Fatalf("expected partial, got %s", rel.Status)
		}
	})

	t.Run("unrelated", func(t *testing.T) {
		rel := heuristicRelevance("Elena is a thief.", "What currency do they use?", nil)
		if rel.Status != oracle.RelevanceNone {
			t.Fatalf("expected none, got %s", rel.Status)
		}
	})

	t.Run("never claims full resolution", func(t *testing.T) {
		rel := heuristicRelevance("Elena Elena Elena.", "Elena?", []string{"Elena"})
		if rel.Status == oracle.RelevanceFully {
			t.Fatalf("heuristic must not claim full resolution")
		}
	})
}

func TestIsDuplicate(t *testing.T) {
	existing := []string{truth.NormalizeQuestion("What does Elena want?")}
	cases := []struct {
		question string
		want     bool
	}{
		{"What does Elena want?", true},
		{"what DOES elena want", true},
		{"Where does the story take place?", false},
		{"", true},
	}
	for _, tc := range cases {
		if got := isDuplicate(tc.question, existing); got != tc.want {
			t.Fatalf("isDuplicate(%q) = %v, want %v", tc.question, got, tc.want)
		}
	}
}

func TestInitialize(t *testing.T) {
	kb := truth.NewTruthKnowledgeBase()
	orch := New(nil, nil, nil)

	delta, err := orch.Initialize(context.Background(), kb, "A heist story.")
	if err != nil {
		t.Fatalf("initializing: %v", err)
	}
	root := kb.Tree.Root()
	if root.Question != "What is your story about?" {
		t.Fatalf("unexpected root question: %q", root.Question)
	}
	if root.Status != truth.StatusAnswered {
		t.Fatalf("root not answered: %s", root.Status)
	}
	if len(delta.NewQuestions) == 0 {
		t.Fatalf("expected follow-ups under root")
	}

	t.Run("empty description leaves root pending", func(t *testing.T) {
		kb := truth.NewTruthKnowledgeBase()
		if _, err := New(nil, nil, nil).Initialize(context.Background(), kb, " "); err != nil {
			t.Fatalf("initializing: %v", err)
		}
		if kb.Tree.Root().Status != truth.StatusPending {
			t.Fatalf("expected pending root")
		}
	})
}
