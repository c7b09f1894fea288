package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"inpaint/internal/image"
)

const (
	snapshotFormat  = "inpaint-repository"
	snapshotVersion = 1
)

// Snapshot is the complete state of a repository in a deterministic order:
// sources and targets sorted by name, assignments sorted by source name with
// each target list kept in assignment order.
type Snapshot struct {
	Format      string          `json:"format"`
	Version     int             `json:"version"`
	Sources     []*image.Source `json:"sources"`
	Targets     []*image.Target `json:"targets"`
	Assignments []Assignment    `json:"assignments"`
}

// Assignment is one source's ordered target list.
type Assignment struct {
	Source  string   `json:"source"`
	Targets []string `json:"targets"`
}

// Orphans returns the names of targets not present in any assignment.
func (s Snapshot) Orphans() []string {
	assigned := make(map[string]struct{})
	for _, a := range s.Assignments {
		for _, name := range a.Targets {
			assigned[name] = struct{}{}
		}
	}
	var out []string
	for _, tgt := range s.Targets {
		if _, ok := assigned[tgt.Name]; !ok {
			out = append(out, tgt.Name)
		}
	}
	return out
}

// EncodeSnapshot renders s as indented JSON.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	s.Format = snapshotFormat
	s.Version = snapshotVersion
	if s.Sources == nil {
		s.Sources = []*image.Source{}
	}
	if s.Targets == nil {
		s.Targets = []*image.Target{}
	}
	if s.Assignments == nil {
		s.Assignments = []Assignment{}
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, wrapIO("encode snapshot", err)
	}
	return append(data, '\n'), nil
}

// DecodeSnapshot parses and checks a snapshot document. Empty input decodes to
// an empty snapshot.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Snapshot{Format: snapshotFormat, Version: snapshotVersion}, nil
	}
	var s Snapshot
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&s); err != nil {
		return Snapshot{}, wrapIO("decode snapshot", err)
	}
	if s.Format != snapshotFormat {
		return Snapshot{}, wrap(ErrIO, "decode snapshot: unexpected format %q", s.Format)
	}
	if s.Version != snapshotVersion {
		return Snapshot{}, wrap(ErrIO, "decode snapshot: unsupported version %d", s.Version)
	}
	if err := s.validate(); err != nil {
		return Snapshot{}, wrap(ErrIO, "decode snapshot: %v", err)
	}
	return s, nil
}

func (s Snapshot) validate() error {
	sources := make(map[string]struct{}, len(s.Sources))
	for _, src := range s.Sources {
		if err := src.Validate(); err != nil {
			return err
		}
		if _, dup := sources[src.Name]; dup {
			return fmt.Errorf("source %q listed twice", src.Name)
		}
		sources[src.Name] = struct{}{}
	}
	targets := make(map[string]struct{}, len(s.Targets))
	for _, tgt := range s.Targets {
		if err := tgt.Validate(); err != nil {
			return err
		}
		if _, dup := targets[tgt.Name]; dup {
			return fmt.Errorf("target %q listed twice", tgt.Name)
		}
		targets[tgt.Name] = struct{}{}
	}
	owners := make(map[string]string)
	seenLists := make(map[string]struct{}, len(s.Assignments))
	for _, a := range s.Assignments {
		if _, ok := sources[a.Source]; !ok {
			return fmt.Errorf("assignment for unknown source %q", a.Source)
		}
		if _, dup := seenLists[a.Source]; dup {
			return fmt.Errorf("source %q has two target lists", a.Source)
		}
		seenLists[a.Source] = struct{}{}
		for _, name := range a.Targets {
			if _, ok := targets[name]; !ok {
				return fmt.Errorf("source %q lists unknown target %q", a.Source, name)
			}
			if owner, taken := owners[name]; taken {
				return fmt.Errorf("target %q assigned to both %q and %q", name, owner, a.Source)
			}
			owners[name] = a.Source
		}
	}
	return nil
}

func sortSnapshot(s *Snapshot) {
	slices.SortFunc(s.Sources, func(a, b *image.Source) int { return strings.Compare(a.Name, b.Name) })
	slices.SortFunc(s.Targets, func(a, b *image.Target) int { return strings.Compare(a.Name, b.Name) })
	slices.SortFunc(s.Assignments, func(a, b Assignment) int { return strings.Compare(a.Source, b.Source) })
}
