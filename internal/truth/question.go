package truth

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Question statuses. A node's status is monotonically informative:
// pending may become partially_answered or answered, and answered is
// terminal except for an explicit user-initiated clear.
const (
	StatusPending           = "pending"
	StatusPartiallyAnswered = "partially_answered"
	StatusAnswered          = "answered"
)

var validStatuses = map[string]bool{
	StatusPending:           true,
	StatusPartiallyAnswered: true,
	StatusAnswered:          true,
}

// statusRank orders statuses by how much they tell us. Transitions that
// would lower the rank are rejected outside of an explicit clear.
var statusRank = map[string]int{
	StatusPending:           0,
	StatusPartiallyAnswered: 1,
	StatusAnswered:          2,
}

// EntityLink ties a question node to an entity discovered through its
// own answer or through cross-branch analysis. SourceID records which
// node's answer produced the link so a later clear can retract exactly
// the links that answer derived.
type EntityLink struct {
	EntityID string `json:"entity_id"`
	SourceID string `json:"source_id,omitempty"`
}

// QuestionNode is one elicitation question in the tree.
type QuestionNode struct {
	ID         string `json:"id"`
	Question   string `json:"question"`
	Answer     string `json:"answer,omitempty"`
	Status     string `json:"status"`
	EntityHint string `json:"entity_hint"`

	ParentID string   `json:"parent_id,omitempty"`
	ChildIDs []string `json:"child_ids,omitempty"`

	RelatedEntities []EntityLink `json:"related_entities,omitempty"`

	// Seq is assigned by the tree on insertion and gives creation order
	// a stable, serializable form.
	Seq        int        `json:"seq"`
	AnsweredAt *time.Time `json:"answered_at,omitempty"`
}

// NewQuestionNode builds a pending node with a fresh id. hint defaults
// to general when it names no entity type.
func NewQuestionNode(question, hint string) *QuestionNode {
	if !validEntityTypes[hint] {
		hint = TypeGeneral
	}
	return &QuestionNode{
		ID:         "q_" + uuid.NewString(),
		Question:   strings.TrimSpace(question),
		Status:     StatusPending,
		EntityHint: hint,
	}
}

// RelatedEntityIDs returns the deduplicated entity ids linked to this
// node, in link order.
func (n *QuestionNode) RelatedEntityIDs() []string {
	var ids []string
	seen := make(map[string]bool)
	for _, l := range n.RelatedEntities {
		if !seen[l.EntityID] {
			seen[l.EntityID] = true
			ids = append(ids, l.EntityID)
		}
	}
	return ids
}

func (n *QuestionNode) hasLink(entityID, sourceID string) bool {
	for _, l := range n.RelatedEntities {
		if l.EntityID == entityID && l.SourceID == sourceID {
			return true
		}
	}
	return false
}

// NormalizedQuestion lowercases and strips punctuation and extra
// whitespace, the form used for duplicate detection.
func (n *QuestionNode) NormalizedQuestion() string {
	return NormalizeQuestion(n.Question)
}

func NormalizeQuestion(q string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(q) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n':
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
