package truth

import (
	"fmt"
	"sort"
	"strings"
)

// Search ranks. Exact name matches sort before name substrings, which
// sort before matches in descriptive fields. Ties keep insertion order.
const (
	rankExactName = 3
	rankName      = 2
	rankField     = 1
)

type SearchResult struct {
	ID         string `json:"id"`
	EntityType string `json:"type"`
	Name       string `json:"name"`
	Rank       int    `json:"rank"`
	Field      string `json:"field"`
}

// Search performs a case-insensitive substring match over name/title
// and descriptive fields across all three collections. A single linear
// scan; fine at the expected scale of a few thousand entities.
func (s *EntityStore) Search(query string) ([]SearchResult, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	var results []SearchResult
	for _, e := range s.All() {
		rank, field := matchEntity(e, query)
		if rank == 0 {
			continue
		}
		results = append(results, SearchResult{
			ID:         e.EntityID(),
			EntityType: e.EntityType(),
			Name:       e.DisplayName(),
			Rank:       rank,
			Field:      field,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Rank > results[j].Rank
	})
	return results, nil
}

func matchEntity(e Entity, query string) (int, string) {
	name := strings.ToLower(e.DisplayName())
	if name == query {
		return rankExactName, "name"
	}
	if strings.Contains(name, query) {
		return rankName, "name"
	}

	for _, f := range searchFields(e) {
		if strings.Contains(strings.ToLower(f.text), query) {
			return rankField, f.name
		}
	}
	return 0, ""
}

type searchField struct {
	name string
	text string
}

func searchFields(e Entity) []searchField {
	switch v := e.(type) {
	case *Character:
		return []searchField{
			{"description", v.Description},
			{"backstory", v.Backstory},
			{"physical_description", v.PhysicalDescription},
			{"role", v.Role},
			{"traits", strings.Join(v.Traits, " ")},
			{"motivations", strings.Join(v.Motivations, " ")},
		}
	case *PlotEvent:
		return []searchField{
			{"description", v.Description},
			{"significance", v.Significance},
			{"timestamp", v.Timestamp},
		}
	case *Setting:
		return []searchField{
			{"description", v.Description},
			{"kind", v.Kind},
			{"rules", strings.Join(v.Rules, " ")},
		}
	}
	return nil
}
