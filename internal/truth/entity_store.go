package truth

import (
	"fmt"
	"strings"
	"time"
)

// EntityStore holds the typed entity collections. All fields are
// exported for snapshot serialization; mutate only through methods so
// referential integrity and insertion order stay consistent.
type EntityStore struct {
	Characters map[string]*Character `json:"characters"`
	PlotEvents map[string]*PlotEvent `json:"plot_events"`
	Settings   map[string]*Setting   `json:"settings"`

	// InsertionOrder records entity ids in creation order. Search uses
	// it to break ranking ties deterministically.
	InsertionOrder []string `json:"insertion_order"`
}

func NewEntityStore() *EntityStore {
	return &EntityStore{
		Characters: make(map[string]*Character),
		PlotEvents: make(map[string]*PlotEvent),
		Settings:   make(map[string]*Setting),
	}
}

func (s *EntityStore) Len() int {
	return len(s.Characters) + len(s.PlotEvents) + len(s.Settings)
}

// Get returns the entity with the given id, whatever its type.
func (s *EntityStore) Get(id string) (Entity, error) {
	if c, ok := s.Characters[id]; ok {
		return c, nil
	}
	if e, ok := s.PlotEvents[id]; ok {
		return e, nil
	}
	if st, ok := s.Settings[id]; ok {
		return st, nil
	}
	return nil, fmt.Errorf("entity %s: %w", id, ErrNotFound)
}

func (s *EntityStore) Has(id string) bool {
	_, err := s.Get(id)
	return err == nil
}

// Add validates and inserts an entity, minting an id when absent.
// Re-adding an id that already exists with a different type is
// rejected; same id with the same type is an upsert.
func (s *EntityStore) Add(e Entity) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("adding %s: %w", e.EntityType(), err)
	}

	now := time.Now()
	switch v := e.(type) {
	case *Character:
		if v.ID == "" {
			v.ID = NewEntityID(TypeCharacter)
		}
		if err := s.checkCollision(v.ID, TypeCharacter); err != nil {
			return "", err
		}
		if _, exists := s.Characters[v.ID]; !exists {
			s.InsertionOrder = append(s.InsertionOrder, v.ID)
			v.CreatedAt = now
		}
		v.UpdatedAt = now
		s.Characters[v.ID] = v
		return v.ID, nil
	case *PlotEvent:
		if v.ID == "" {
			v.ID = NewEntityID(TypePlotEvent)
		}
		if err := s.checkCollision(v.ID, TypePlotEvent); err != nil {
			return "", err
		}
		if _, exists := s.PlotEvents[v.ID]; !exists {
			s.InsertionOrder = append(s.InsertionOrder, v.ID)
			v.CreatedAt = now
		}
		v.UpdatedAt = now
		s.PlotEvents[v.ID] = v
		return v.ID, nil
	case *Setting:
		if v.ID == "" {
			v.ID = NewEntityID(TypeSetting)
		}
		if err := s.checkCollision(v.ID, TypeSetting); err != nil {
			return "", err
		}
		if _, exists := s.Settings[v.ID]; !exists {
			s.InsertionOrder = append(s.InsertionOrder, v.ID)
			v.CreatedAt = now
		}
		v.UpdatedAt = now
		s.Settings[v.ID] = v
		return v.ID, nil
	default:
		return "", fmt.Errorf("adding entity: unsupported type %T", e)
	}
}

func (s *EntityStore) checkCollision(id, entityType string) error {
	existing, err := s.Get(id)
	if err != nil {
		return nil
	}
	if existing.EntityType() != entityType {
		return fmt.Errorf("id %s already used by a %s: %w", id, existing.EntityType(), ErrInvariantViolation)
	}
	return nil
}

// Update merges the patch into the existing record of the same id.
// Non-empty stored fields are never overwritten by empty patch fields;
// list and map fields are unioned.
func (s *EntityStore) Update(id string, patch Entity) error {
	existing, err := s.Get(id)
	if err != nil {
		return fmt.Errorf("updating entity: %w", err)
	}
	if existing.EntityType() != patch.EntityType() {
		return fmt.Errorf("updating entity %s: type %s does not match stored %s: %w",
			id, patch.EntityType(), existing.EntityType(), ErrInvariantViolation)
	}

	now := time.Now()
	switch dst := existing.(type) {
	case *Character:
		src := patch.(*Character)
		mergeString(&dst.Name, src.Name)
		mergeText(&dst.Description, src.Description)
		mergeText(&dst.Backstory, src.Backstory)
		mergeText(&dst.PhysicalDescription, src.PhysicalDescription)
		mergeString(&dst.Role, src.Role)
		dst.Traits = mergeList(dst.Traits, src.Traits)
		dst.Motivations = mergeList(dst.Motivations, src.Motivations)
		if len(src.Relationships) > 0 {
			if dst.Relationships == nil {
				dst.Relationships = make(map[string]string)
			}
			for k, v := range src.Relationships {
				if v != "" {
					dst.Relationships[k] = v
				}
			}
		}
		dst.UpdatedAt = now
	case *PlotEvent:
		src := patch.(*PlotEvent)
		mergeString(&dst.Title, src.Title)
		mergeText(&dst.Description, src.Description)
		mergeString(&dst.Timestamp, src.Timestamp)
		mergeString(&dst.LocationID, src.LocationID)
		mergeText(&dst.Significance, src.Significance)
		dst.CharactersInvolved = mergeList(dst.CharactersInvolved, src.CharactersInvolved)
		if src.Order != 0 {
			dst.Order = src.Order
		}
		dst.UpdatedAt = now
	case *Setting:
		src := patch.(*Setting)
		mergeString(&dst.Name, src.Name)
		mergeString(&dst.Kind, src.Kind)
		mergeText(&dst.Description, src.Description)
		dst.Rules = mergeList(dst.Rules, src.Rules)
		dst.RelatedCharacters = mergeList(dst.RelatedCharacters, src.RelatedCharacters)
		dst.RelatedEvents = mergeList(dst.RelatedEvents, src.RelatedEvents)
		dst.UpdatedAt = now
	}
	return nil
}

// Delete removes the record and strips every reference to it from the
// remaining entities. References held by the question tree are cleaned
// by the owning TruthKnowledgeBase, which coordinates both sides.
func (s *EntityStore) Delete(id string) error {
	if _, err := s.Get(id); err != nil {
		return fmt.Errorf("deleting entity: %w", err)
	}

	delete(s.Characters, id)
	delete(s.PlotEvents, id)
	delete(s.Settings, id)

	for i, oid := range s.InsertionOrder {
		if oid == id {
			s.InsertionOrder = append(s.InsertionOrder[:i], s.InsertionOrder[i+1:]...)
			break
		}
	}

	for _, c := range s.Characters {
		delete(c.Relationships, id)
	}
	for _, e := range s.PlotEvents {
		e.CharactersInvolved = removeID(e.CharactersInvolved, id)
		if e.LocationID == id {
			e.LocationID = ""
		}
	}
	for _, st := range s.Settings {
		st.RelatedCharacters = removeID(st.RelatedCharacters, id)
		st.RelatedEvents = removeID(st.RelatedEvents, id)
	}
	return nil
}

// All returns every entity in insertion order.
func (s *EntityStore) All() []Entity {
	entities := make([]Entity, 0, s.Len())
	for _, id := range s.InsertionOrder {
		if e, err := s.Get(id); err == nil {
			entities = append(entities, e)
		}
	}
	return entities
}

// FindByName returns the first entity whose name matches, ignoring
// case. Used to map oracle candidates onto existing records.
func (s *EntityStore) FindByName(name string) (Entity, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	if want == "" {
		return nil, false
	}
	for _, e := range s.All() {
		if strings.ToLower(e.DisplayName()) == want {
			return e, true
		}
	}
	return nil, false
}

func mergeString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// mergeText appends genuinely new prose instead of replacing it, so
// details accumulated across answers are not lost.
func mergeText(dst *string, src string) {
	src = strings.TrimSpace(src)
	if src == "" || strings.Contains(*dst, src) {
		return
	}
	if *dst == "" {
		*dst = src
		return
	}
	*dst = *dst + " " + src
}

func mergeList(dst, src []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, v := range dst {
		seen[strings.ToLower(v)] = true
	}
	for _, v := range src {
		if v == "" || seen[strings.ToLower(v)] {
			continue
		}
		seen[strings.ToLower(v)] = true
		dst = append(dst, v)
	}
	return dst
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
