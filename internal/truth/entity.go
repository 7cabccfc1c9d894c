// Package truth holds the knowledge base for a story project: typed
// entity records (characters, plot events, settings), the branching
// question tree used to elicit them, and the aggregate that keeps
// cross-references between the two consistent.
package truth

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entity types. Every record in the knowledge base carries one of these
// tags; question nodes use them as classification hints.
const (
	TypeCharacter = "character"
	TypePlotEvent = "plot_event"
	TypeSetting   = "setting"
	TypeGeneral   = "general"
)

var validEntityTypes = map[string]bool{
	TypeCharacter: true,
	TypePlotEvent: true,
	TypeSetting:   true,
}

// Entity is implemented by the three record kinds stored in an
// EntityStore.
type Entity interface {
	EntityID() string
	EntityType() string
	DisplayName() string
	Validate() error
}

// Character is a person (or person-like agent) in the story.
type Character struct {
	ID                  string            `json:"id"`
	Name                string            `json:"name"`
	Description         string            `json:"description,omitempty"`
	Traits              []string          `json:"traits,omitempty"`
	Backstory           string            `json:"backstory,omitempty"`
	Motivations         []string          `json:"motivations,omitempty"`
	Relationships       map[string]string `json:"relationships,omitempty"`
	PhysicalDescription string            `json:"physical_description,omitempty"`
	Role                string            `json:"role,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

func (c *Character) EntityID() string    { return c.ID }
func (c *Character) EntityType() string  { return TypeCharacter }
func (c *Character) DisplayName() string { return c.Name }

func (c *Character) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("character name is required")
	}
	return nil
}

// PlotEvent is a timeline entry: something that happens in the story.
type PlotEvent struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	Description        string    `json:"description,omitempty"`
	Timestamp          string    `json:"timestamp,omitempty"`
	CharactersInvolved []string  `json:"characters_involved,omitempty"`
	LocationID         string    `json:"location_id,omitempty"`
	Significance       string    `json:"significance,omitempty"`
	Order              int       `json:"order,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (e *PlotEvent) EntityID() string    { return e.ID }
func (e *PlotEvent) EntityType() string  { return TypePlotEvent }
func (e *PlotEvent) DisplayName() string { return e.Title }

func (e *PlotEvent) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("plot event title is required")
	}
	return nil
}

// Setting is a location or world-building element.
type Setting struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Kind              string    `json:"kind,omitempty"`
	Description       string    `json:"description,omitempty"`
	Rules             []string  `json:"rules,omitempty"`
	RelatedCharacters []string  `json:"related_characters,omitempty"`
	RelatedEvents     []string  `json:"related_events,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (s *Setting) EntityID() string    { return s.ID }
func (s *Setting) EntityType() string  { return TypeSetting }
func (s *Setting) DisplayName() string { return s.Name }

func (s *Setting) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("setting name is required")
	}
	return nil
}

// NewEntityID mints an identifier for the given entity type. The prefix
// keeps ids readable in snapshots and CLI output.
func NewEntityID(entityType string) string {
	prefix := map[string]string{
		TypeCharacter: "char",
		TypePlotEvent: "event",
		TypeSetting:   "setting",
	}[entityType]
	if prefix == "" {
		prefix = "entity"
	}
	return prefix + "_" + uuid.NewString()
}
