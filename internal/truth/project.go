package truth

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Project is the unit of persistence: metadata plus the knowledge base
// it owns.
type Project struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Truth       *TruthKnowledgeBase `json:"truth"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func NewProject(title, description string) (*Project, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("creating project: title is required")
	}
	now := time.Now()
	return &Project{
		ID:          "proj_" + uuid.NewString(),
		Title:       title,
		Description: description,
		Truth:       NewTruthKnowledgeBase(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
