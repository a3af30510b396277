package config

import (
	"fmt"
	"os"

	"github.com/skyduel/dogfight/internal/battle"
	"github.com/skyduel/dogfight/pkg/core"
	"gopkg.in/yaml.v3"
)

// Scenario pins the layout of an episode so runs can be reproduced.
//
//	name: crossing
//	seed: 7
//	homes:
//	  red: {x: -30000, y: 0}
//	spawns:
//	  red_1: {x: -20000, y: 0, heading: 90}
//	callsigns:
//	  blue: [blue_1, blue_2]
type Scenario struct {
	Name      string               `yaml:"name"`
	Seed      *uint64              `yaml:"seed,omitempty"`
	Homes     map[string]core.XY   `yaml:"homes,omitempty"`
	Spawns    map[string]core.Pose `yaml:"spawns,omitempty"`
	Callsigns map[string][]string  `yaml:"callsigns,omitempty"`
	Bullseye  *core.XY             `yaml:"bullseye,omitempty"`
}

// LoadScenario decodes a YAML scenario file.
func LoadScenario(path string) (Scenario, error) {
	var s Scenario
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("error reading scenario: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("error parsing scenario %s: %w", path, err)
	}
	for side := range s.Homes {
		if _, err := core.ParseColor(side); err != nil {
			return s, fmt.Errorf("scenario homes: %w", err)
		}
	}
	for side := range s.Callsigns {
		if _, err := core.ParseColor(side); err != nil {
			return s, fmt.Errorf("scenario callsigns: %w", err)
		}
	}
	return s, nil
}

// Apply overlays the scenario onto o.
func (s Scenario) Apply(o *battle.Options) {
	if s.Seed != nil {
		o.Seed = *s.Seed
	}
	if s.Bullseye != nil {
		o.Bullseye = *s.Bullseye
	}
	for side, pos := range s.Homes {
		c, _ := core.ParseColor(side)
		p := pos
		o.Sides[c].HomePosition = &p
	}
	for side, names := range s.Callsigns {
		c, _ := core.ParseColor(side)
		o.Sides[c].Callsigns = append([]string(nil), names...)
	}
	if len(s.Spawns) > 0 {
		if o.Spawns == nil {
			o.Spawns = make(map[string]core.Pose, len(s.Spawns))
		}
		for name, pose := range s.Spawns {
			o.Spawns[name] = pose
		}
	}
}
