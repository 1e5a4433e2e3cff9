// Package config loads a pipeline topology (a list of stages plus the
// flow-def links between them) from YAML, the declarative counterpart to
// wiring up a upipe.Manager graph by hand in Go code. Uses
// github.com/knadh/koanf/v2 the way tomtom215-lyrebirdaudio-go's own
// KoanfConfig loads its capture pipeline config: a file.Provider feeding
// a yaml.Parser into one koanf.Koanf instance, then Unmarshal into a
// plain struct.
package config

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// StageSpec describes one stage to allocate. Kind selects the manager
// ("psimerge", "trickplay.parent", "trickplay.sub"); FlowDef and Parent
// are only meaningful for "trickplay.sub" (the flow-def prefix used to
// classify the track, and the ID of its trickplay.parent stage).
type StageSpec struct {
	ID      string `koanf:"id"`
	Kind    string `koanf:"kind"`
	FlowDef string `koanf:"flow_def"`
	Parent  string `koanf:"parent"`
}

// LinkSpec wires one stage's output to another's input by ID, the
// declarative form of calling Control(KindSetOutput, ...) by hand.
type LinkSpec struct {
	From string `koanf:"from"`
	To   string `koanf:"to"`
}

// Topology is the top-level document shape: an unordered stage list plus
// the links connecting them.
type Topology struct {
	Stages []StageSpec `koanf:"stages"`
	Links  []LinkSpec  `koanf:"links"`
}

// Load reads and parses a topology from a YAML file at path.
func Load(path string) (*Topology, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}

	var top Topology
	if err := k.Unmarshal("", &top); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	if err := top.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &top, nil
}

// Validate checks structural invariants Load alone can't: unique stage
// IDs, every sub's parent/link endpoint actually named, and every
// trickplay.sub carrying a non-empty flow_def (the classification
// depends on it).
func (t *Topology) Validate() error {
	seen := make(map[string]bool, len(t.Stages))
	for _, s := range t.Stages {
		if s.ID == "" {
			return fmt.Errorf("stage with empty id")
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate stage id %q", s.ID)
		}
		seen[s.ID] = true

		switch s.Kind {
		case "psimerge", "trickplay.parent":
		case "trickplay.sub":
			if s.FlowDef == "" {
				return fmt.Errorf("stage %q: trickplay.sub requires flow_def", s.ID)
			}
			if s.Parent == "" {
				return fmt.Errorf("stage %q: trickplay.sub requires parent", s.ID)
			}
		default:
			return fmt.Errorf("stage %q: unknown kind %q", s.ID, s.Kind)
		}
	}
	for _, s := range t.Stages {
		if s.Kind == "trickplay.sub" && !seen[s.Parent] {
			return fmt.Errorf("stage %q: parent %q not found", s.ID, s.Parent)
		}
	}
	for _, l := range t.Links {
		if !seen[l.From] {
			return fmt.Errorf("link: from %q not found", l.From)
		}
		if !seen[l.To] {
			return fmt.Errorf("link: to %q not found", l.To)
		}
	}
	return nil
}

// Dump re-marshals t to canonical YAML, letting `validate --dump` echo back
// exactly what Load resolved the topology to (koanf.Unmarshal doesn't round
// trip back to text on its own). Uses gopkg.in/yaml.v3 directly the way
// tomtom215-lyrebirdaudio-go's plain (non-koanf) config path marshals its
// own structs, since StageSpec/LinkSpec/Topology already carry koanf tags
// only — yaml.v3 falls back to lower-cased field names, which read fine
// for this diagnostic use.
func (t *Topology) Dump() ([]byte, error) {
	return yamlv3.Marshal(t)
}
