package truth

import (
	"errors"
	"testing"
)

func TestEntityStoreAdd(t *testing.T) {
	t.Run("mints prefixed ids", func(t *testing.T) {
		s := NewEntityStore()
		id, err := s.Add(&Character{Name: "Elena"})
		if err != nil {
			t.Fatalf("adding: %v", err)
		}
		if id[:5] != "char_" {
			t.Fatalf("expected char_ prefix, got %s", id)
		}
		if !s.Has(id) {
			t.Fatalf("expected entity stored")
		}
	})

	t.Run("validation failure rejects", func(t *testing.T) {
		s := NewEntityStore()
		if _, err := s.Add(&Character{}); err == nil {
			t.Fatalf("expected error for empty name")
		}
		if s.Len() != 0 {
			t.Fatalf("expected empty store")
		}
	})

	t.Run("id collision across types rejected", func(t *testing.T) {
		s := NewEntityStore()
		id, err := s.Add(&Character{Name: "Elena"})
		if err != nil {
			t.Fatalf("adding: %v", err)
		}
		_, err = s.Add(&Setting{ID: id, Name: "Venice"})
		if !errors.Is(err, ErrInvariantViolation) {
			t.Fatalf("expected ErrInvariantViolation, got %v", err)
		}
	})

	t.Run("same id same type upserts", func(t *testing.T) {
		s := NewEntityStore()
		id, err := s.Add(&Character{Name: "Elena"})
		if err != nil {
			t.Fatalf("adding: %v", err)
		}
		if _, err := s.Add(&Character{ID: id, Name: "Elena Voss"}); err != nil {
			t.Fatalf("upserting: %v", err)
		}
		if s.Len() != 1 {
			t.Fatalf("expected 1 entity, got %d", s.Len())
		}
		got, err := s.Get(id)
		if err != nil {
			t.Fatalf("getting: %v", err)
		}
		if got.DisplayName() != "Elena Voss" {
			t.Fatalf("expected upserted name, got %s", got.DisplayName())
		}
	})
}

func TestEntityStoreUpdate(t *testing.T) {
	t.Run("merge keeps existing fields and accumulates prose", func(t *testing.T) {
		s := NewEntityStore()
		id, err := s.Add(&Character{Name: "Elena", Description: "A thief.", Traits: []string{"cunning"}})
		if err != nil {
			t.Fatalf("adding: %v", err)
		}
		patch := &Character{Name: "Elena", Description: "She fears heights.", Traits: []string{"Cunning", "loyal"}}
		if err := s.Update(id, patch); err != nil {
			t.Fatalf("updating: %v", err)
		}
		c := s.Characters[id]
		if c.Description != "A thief. She fears heights." {
			t.Fatalf("expected accumulated description, got %q", c.Description)
		}
		if len(c.Traits) != 2 {
			t.Fatalf("expected case-insensitive union, got %v", c.Traits)
		}
	})

	t.Run("empty patch fields never erase", func(t *testing.T) {
		s := NewEntityStore()
		id, err := s.Add(&Character{Name: "Elena", Role: "protagonist"})
		if err != nil {
			t.Fatalf("adding: %v", err)
		}
		if err := s.Update(id, &Character{Name: "Elena"}); err != nil {
			t.Fatalf("updating: %v", err)
		}
		if s.Characters[id].Role != "protagonist" {
			t.Fatalf("role erased")
		}
	})

	t.Run("type mismatch rejected", func(t *testing.T) {
		s := NewEntityStore()
		id, err := s.Add(&Character{Name: "Elena"})
		if err != nil {
			t.Fatalf("adding: %v", err)
		}
		err = s.Update(id, &Setting{Name: "Elena"})
		if !errors.Is(err, ErrInvariantViolation) {
			t.Fatalf("expected ErrInvariantViolation, got %v", err)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		s := NewEntityStore()
		if err := s.Update("char_missing", &Character{Name: "X"}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestEntityStoreDelete(t *testing.T) {
	s := NewEntityStore()
	finn, err := s.Add(&Character{Name: "Finn"})
	if err != nil {
		t.Fatalf("adding: %v", err)
	}
	elena, err := s.Add(&Character{Name: "Elena", Relationships: map[string]string{finn: "brother"}})
	if err != nil {
		t.Fatalf("adding: %v", err)
	}
	event, err := s.Add(&PlotEvent{Title: "The heist", CharactersInvolved: []string{finn, elena}})
	if err != nil {
		t.Fatalf("adding: %v", err)
	}
	setting, err := s.Add(&Setting{Name: "Venice", RelatedCharacters: []string{finn}})
	if err != nil {
		t.Fatalf("adding: %v", err)
	}

	if err := s.Delete(finn); err != nil {
		t.Fatalf("deleting: %v", err)
	}

	if s.Has(finn) {
		t.Fatalf("entity still present")
	}
	if _, ok := s.Characters[elena].Relationships[finn]; ok {
		t.Fatalf("relationship not stripped")
	}
	got := s.PlotEvents[event].CharactersInvolved
	if len(got) != 1 || got[0] != elena {
		t.Fatalf("event involvement not stripped: %v", got)
	}
	if len(s.Settings[setting].RelatedCharacters) != 0 {
		t.Fatalf("setting reference not stripped")
	}
	if err := s.Delete(finn); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestEntityStoreAll(t *testing.T) {
	s := NewEntityStore()
	ids := make([]string, 0, 3)
	for _, e := range []Entity{
		&Character{Name: "Elena"},
		&Setting{Name: "Venice"},
		&PlotEvent{Title: "The heist"},
	} {
		id, err := s.Add(e)
		if err != nil {
			t.Fatalf("adding: %v", err)
		}
		ids = append(ids, id)
	}
	all := s.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 entities, got %d", len(all))
	}
	for i, e := range all {
		if e.EntityID() != ids[i] {
			t.Fatalf("expected insertion order, got %s at %d", e.EntityID(), i)
		}
	}
}

func TestFindByName(t *testing.T) {
	s := NewEntityStore()
	id, err := s.Add(&Character{Name: "Elena Voss"})
	if err != nil {
		t.Fatalf("adding: %v", err)
	}

	got, ok := s.FindByName("elena voss")
	if !ok || got.EntityID() != id {
		t.Fatalf("expected case-insensitive match, got %v %v", got, ok)
	}
	if _, ok := s.FindByName("Elena"); ok {
		t.Fatalf("partial name must not match")
	}
	if _, ok := s.FindByName(""); ok {
		t.Fatalf("empty name must not match")
	}
}
