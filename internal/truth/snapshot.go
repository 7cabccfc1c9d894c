package truth

import (
	"encoding/json"
	"fmt"
)

const snapshotVersion = 1

type snapshotEnvelope struct {
	Version int             `json:"version"`
	Project json.RawMessage `json:"project"`
}

// EncodeSnapshot serializes a project for whole-snapshot persistence.
// The project must validate first; a snapshot with broken invariants is
// never written.
func EncodeSnapshot(p *Project) ([]byte, error) {
	if p == nil || p.Truth == nil {
		return nil, fmt.Errorf("encoding snapshot: project is empty")
	}
	if err := p.Truth.Validate(); err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	data, err := json.Marshal(snapshotEnvelope{Version: snapshotVersion, Project: raw})
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses and validates a stored snapshot.
func DecodeSnapshot(data []byte) (*Project, error) {
	var env snapshotEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if env.Version != snapshotVersion {
		return nil, fmt.Errorf("decoding snapshot: unsupported version %d", env.Version)
	}

	var p Project
	if err := json.Unmarshal(env.Project, &p); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if p.Truth == nil {
		p.Truth = NewTruthKnowledgeBase()
	}
	if p.Truth.Entities == nil {
		p.Truth.Entities = NewEntityStore()
	}
	ensureMaps(p.Truth.Entities)
	if err := p.Truth.Validate(); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &p, nil
}

func ensureMaps(s *EntityStore) {
	if s.Characters == nil {
		s.Characters = make(map[string]*Character)
	}
	if s.PlotEvents == nil {
		s.PlotEvents = make(map[string]*PlotEvent)
	}
	if s.Settings == nil {
		s.Settings = make(map[string]*Setting)
	}
}
