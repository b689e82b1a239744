package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ScenarioEntry places objects of one template at simulation start.
type ScenarioEntry struct {
	Template string  `yaml:"template"`
	X        float32 `yaml:"x"`
	Y        float32 `yaml:"y"`
	Z        float32 `yaml:"z"`
	Count    int     `yaml:"count"`
}

type scenarioFile struct {
	MapName string          `yaml:"map_name"`
	Spawns  []ScenarioEntry `yaml:"spawns"`
}

// Scenario is the initial object placement for a headless run.
type Scenario struct {
	MapName string
	Spawns  []ScenarioEntry
}

// LoadScenario loads an initial placement list from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var f scenarioFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	for i := range f.Spawns {
		if f.Spawns[i].Count <= 0 {
			f.Spawns[i].Count = 1
		}
	}
	return &Scenario{MapName: f.MapName, Spawns: f.Spawns}, nil
}
