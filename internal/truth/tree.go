package truth

import (
	"fmt"
	"sort"
	"time"
)

// QuestionTree is the branching elicitation structure: a flat id→node
// map plus a root id. The flat map is simple and serializable; every
// mutation goes through tree methods so the parent/child invariants
// hold after each call.
type QuestionTree struct {
	RootID  string                   `json:"root_id"`
	Nodes   map[string]*QuestionNode `json:"nodes"`
	NextSeq int                      `json:"next_seq"`
}

// NewQuestionTree creates a tree whose root is the given node. The root
// is immutable after creation: it can be answered but never re-parented
// or removed.
func NewQuestionTree(root *QuestionNode) *QuestionTree {
	root.ParentID = ""
	root.Seq = 0
	return &QuestionTree{
		RootID:  root.ID,
		Nodes:   map[string]*QuestionNode{root.ID: root},
		NextSeq: 1,
	}
}

func (t *QuestionTree) Node(id string) (*QuestionNode, error) {
	n, ok := t.Nodes[id]
	if !ok {
		return nil, fmt.Errorf("question %s: %w", id, ErrNotFound)
	}
	return n, nil
}

func (t *QuestionTree) Root() *QuestionNode {
	return t.Nodes[t.RootID]
}

func (t *QuestionTree) Len() int {
	return len(t.Nodes)
}

// AddNode appends node as a new child of parentID. Re-adding an id that
// is already present is a no-op, so retried operations stay safe.
func (t *QuestionTree) AddNode(node *QuestionNode, parentID string) error {
	if node == nil || node.ID == "" {
		return fmt.Errorf("adding question: node id is required")
	}
	if _, exists := t.Nodes[node.ID]; exists {
		return nil
	}
	parent, ok := t.Nodes[parentID]
	if !ok {
		return fmt.Errorf("adding question under %s: %w", parentID, ErrNotFound)
	}

	node.ParentID = parentID
	node.Seq = t.NextSeq
	t.NextSeq++
	t.Nodes[node.ID] = node
	parent.ChildIDs = append(parent.ChildIDs, node.ID)
	return nil
}

// byStatus returns nodes with the given status in creation order.
func (t *QuestionTree) byStatus(status string) []*QuestionNode {
	var nodes []*QuestionNode
	for _, n := range t.Nodes {
		if n.Status == status {
			nodes = append(nodes, n)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Seq < nodes[j].Seq })
	return nodes
}

func (t *QuestionTree) Pending() []*QuestionNode {
	return t.byStatus(StatusPending)
}

func (t *QuestionTree) PartiallyAnswered() []*QuestionNode {
	return t.byStatus(StatusPartiallyAnswered)
}

func (t *QuestionTree) Answered() []*QuestionNode {
	return t.byStatus(StatusAnswered)
}

// NextPending returns the first pending question in creation order, or
// nil when everything is answered.
func (t *QuestionTree) NextPending() *QuestionNode {
	pending := t.Pending()
	if len(pending) == 0 {
		return nil
	}
	return pending[0]
}

// UpdateStatus transitions a node's status and appends the given
// entity links, deduplicated. Transitions that would lose information
// (answered back to pending) are rejected; use ClearAnswer for the
// explicit user-initiated reset.
func (t *QuestionTree) UpdateStatus(id, status string, links ...EntityLink) error {
	n, err := t.Node(id)
	if err != nil {
		return fmt.Errorf("updating status: %w", err)
	}
	if !validStatuses[status] {
		return fmt.Errorf("updating status: unknown status %q", status)
	}
	if statusRank[status] < statusRank[n.Status] {
		return fmt.Errorf("updating status: %s -> %s would lose information: %w",
			n.Status, status, ErrInvariantViolation)
	}

	if status == StatusAnswered && n.Status != StatusAnswered {
		now := time.Now()
		n.AnsweredAt = &now
	}
	n.Status = status
	t.appendLinks(n, links)
	return nil
}

func (t *QuestionTree) appendLinks(n *QuestionNode, links []EntityLink) {
	for _, l := range links {
		if l.EntityID == "" || n.hasLink(l.EntityID, l.SourceID) {
			continue
		}
		n.RelatedEntities = append(n.RelatedEntities, l)
	}
}

// SetAnswer records answer text on a node and marks it answered.
func (t *QuestionTree) SetAnswer(id, answer string) error {
	n, err := t.Node(id)
	if err != nil {
		return fmt.Errorf("recording answer: %w", err)
	}
	n.Answer = answer
	now := time.Now()
	n.AnsweredAt = &now
	n.Status = StatusAnswered
	return nil
}

// ClearAnswer is the explicit user-initiated reset: the node returns to
// pending, its answer is dropped, and every link that was derived from
// this node's answer is retracted tree-wide.
func (t *QuestionTree) ClearAnswer(id string) error {
	n, err := t.Node(id)
	if err != nil {
		return fmt.Errorf("clearing answer: %w", err)
	}
	n.Answer = ""
	n.Status = StatusPending
	n.AnsweredAt = nil

	for _, other := range t.Nodes {
		kept := other.RelatedEntities[:0]
		for _, l := range other.RelatedEntities {
			if l.SourceID != id {
				kept = append(kept, l)
			}
		}
		other.RelatedEntities = kept
	}
	return nil
}

// PathToRoot returns the ancestor chain ordered root first, ending at
// the given node. O(depth).
func (t *QuestionTree) PathToRoot(id string) ([]*QuestionNode, error) {
	n, err := t.Node(id)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	var path []*QuestionNode
	for n != nil {
		path = append(path, n)
		if n.ParentID == "" {
			break
		}
		parent, ok := t.Nodes[n.ParentID]
		if !ok {
			return nil, fmt.Errorf("resolving path: parent %s of %s missing: %w",
				n.ParentID, n.ID, ErrInvariantViolation)
		}
		n = parent
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// RemoveBranch discards a node and its entire subtree. The root cannot
// be removed. Supported for explicit user pruning; the tree invariant
// holds afterwards.
func (t *QuestionTree) RemoveBranch(id string) error {
	if id == t.RootID {
		return fmt.Errorf("removing branch: root is immutable: %w", ErrInvariantViolation)
	}
	n, err := t.Node(id)
	if err != nil {
		return fmt.Errorf("removing branch: %w", err)
	}

	if parent, ok := t.Nodes[n.ParentID]; ok {
		parent.ChildIDs = removeID(parent.ChildIDs, id)
	}

	stack := []string{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node, ok := t.Nodes[cur]; ok {
			stack = append(stack, node.ChildIDs...)
			delete(t.Nodes, cur)
		}
	}
	return nil
}

// RemoveEntityLinks strips the given entity id from every node's
// related-entity list. Called by the owning aggregate on entity delete.
func (t *QuestionTree) RemoveEntityLinks(entityID string) {
	for _, n := range t.Nodes {
		kept := n.RelatedEntities[:0]
		for _, l := range n.RelatedEntities {
			if l.EntityID != entityID {
				kept = append(kept, l)
			}
		}
		n.RelatedEntities = kept
	}
}

// Validate checks the structural invariant: a single connected tree
// rooted at RootID, mutually consistent parent/child pointers, no
// orphans, no cycles.
func (t *QuestionTree) Validate() error {
	root, ok := t.Nodes[t.RootID]
	if !ok {
		return fmt.Errorf("root %s missing: %w", t.RootID, ErrInvariantViolation)
	}
	if root.ParentID != "" {
		return fmt.Errorf("root has parent %s: %w", root.ParentID, ErrInvariantViolation)
	}

	visited := make(map[string]bool, len(t.Nodes))
	stack := []string{t.RootID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			return fmt.Errorf("node %s reachable twice: %w", id, ErrInvariantViolation)
		}
		visited[id] = true

		n, ok := t.Nodes[id]
		if !ok {
			return fmt.Errorf("child %s not in node map: %w", id, ErrInvariantViolation)
		}
		for _, childID := range n.ChildIDs {
			child, ok := t.Nodes[childID]
			if !ok {
				return fmt.Errorf("child %s of %s missing: %w", childID, id, ErrInvariantViolation)
			}
			if child.ParentID != id {
				return fmt.Errorf("child %s lists parent %s, expected %s: %w",
					childID, child.ParentID, id, ErrInvariantViolation)
			}
			stack = append(stack, childID)
		}
	}

	if len(visited) != len(t.Nodes) {
		return fmt.Errorf("%d of %d nodes unreachable from root: %w",
			len(t.Nodes)-len(visited), len(t.Nodes), ErrInvariantViolation)
	}
	return nil
}

// Summary is a nested view of the tree for display.
type Summary struct {
	ID         string    `json:"id"`
	Question   string    `json:"question"`
	Status     string    `json:"status"`
	EntityHint string    `json:"entity_hint"`
	Children   []Summary `json:"children,omitempty"`
}

func (t *QuestionTree) Summarize() (Summary, error) {
	root, err := t.Node(t.RootID)
	if err != nil {
		return Summary{}, fmt.Errorf("summarizing tree: %w", err)
	}
	return t.summarize(root), nil
}

func (t *QuestionTree) summarize(n *QuestionNode) Summary {
	s := Summary{
		ID:         n.ID,
		Question:   n.Question,
		Status:     n.Status,
		EntityHint: n.EntityHint,
	}
	for _, childID := range n.ChildIDs {
		if child, ok := t.Nodes[childID]; ok {
			s.Children = append(s.Children, t.summarize(child))
		}
	}
	return s
}
