package truth

import "testing"

func TestSearch(t *testing.T) {
	s := NewEntityStore()
	exact, err := s.Add(&Character{Name: "Elena"})
	if err != nil {
		t.Fatalf("adding: %v", err)
	}
	substr, err := s.Add(&Character{Name: "Elena Voss"})
	if err != nil {
		t.Fatalf("adding: %v", err)
	}
	field, err := s.Add(&PlotEvent{Title: "The heist", Description: "Elena breaks into the vault."})
	if err != nil {
		t.Fatalf("adding: %v", err)
	}
	venice, err := s.Add(&Setting{Name: "Venice", Description: "A city of canals and one famous vault."})
	if err != nil {
		t.Fatalf("adding: %v", err)
	}

	t.Run("ranking", func(t *testing.T) {
		results, err := s.Search("Elena")
		if err != nil {
			t.Fatalf("searching: %v", err)
		}
		if len(results) != 3 {
			t.Fatalf("expected 3 results, got %d", len(results))
		}
		if results[0].ID != exact || results[0].Rank != rankExactName {
			t.Fatalf("expected exact name first, got %+v", results[0])
		}
		if results[1].ID != substr || results[1].Rank != rankName {
			t.Fatalf("expected name substring second, got %+v", results[1])
		}
		if results[2].ID != field || results[2].Field != "description" {
			t.Fatalf("expected field match last, got %+v", results[2])
		}
	})

	t.Run("case-insensitive", func(t *testing.T) {
		results, err := s.Search("eLeNa")
		if err != nil {
			t.Fatalf("searching: %v", err)
		}
		if len(results) != 3 {
			t.Fatalf("expected 3 results, got %d", len(results))
		}
	})

	t.Run("no matches", func(t *testing.T) {
		results, err := s.Search("dragon")
		if err != nil {
			t.Fatalf("searching: %v", err)
		}
		if len(results) != 0 {
			t.Fatalf("expected no results, got %v", results)
		}
	})

	t.Run("empty query rejected", func(t *testing.T) {
		if _, err := s.Search("  "); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("ties keep insertion order", func(t *testing.T) {
		results, err := s.Search("vault")
		if err != nil {
			t.Fatalf("searching: %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(results))
		}
		if results[0].ID != field || results[1].ID != venice {
			t.Fatalf("expected insertion order on equal rank, got %v", results)
		}
	})
}
