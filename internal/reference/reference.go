// Package reference holds the static cardholder, door and controller catalogs
// events are generated against. The collections are read-only once loaded.
package reference

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrEmptyPool is returned when reference data lacks an entity a generator
// requires (an active cardholder, any door, the main entrance).
var ErrEmptyPool = errors.New("reference pool empty")

// StatusActive marks a cardholder allowed to produce access events.
const StatusActive = "active"

// Cardholder is a badge holder.
type Cardholder struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	CardNumber  string `yaml:"card_number" json:"card_number"`
	Department  string `yaml:"department" json:"department"`
	AccessGroup string `yaml:"access_group" json:"access_group"`
	Status      string `yaml:"status" json:"status"`
}

// Active reports whether the cardholder may badge in.
func (c Cardholder) Active() bool { return c.Status == StatusActive }

// Door is an access point wired to a controller.
type Door struct {
	ID           string `yaml:"id" json:"id"`
	Name         string `yaml:"name" json:"name"`
	Location     string `yaml:"location" json:"location"`
	ControllerID string `yaml:"controller_id" json:"controller_id"`
}

// Controller is a panel that owns one or more doors.
type Controller struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Location string `yaml:"location" json:"location"`
}

// Data bundles the three catalogs.
type Data struct {
	Cardholders []Cardholder `yaml:"cardholders" json:"cardholders"`
	Doors       []Door       `yaml:"doors" json:"doors"`
	Controllers []Controller `yaml:"controllers" json:"controllers"`
}

//go:embed default.yaml
var defaultYAML []byte

// Default returns the built-in training dataset.
func Default() (*Data, error) {
	return Parse(defaultYAML)
}

// Load reads a reference dataset from a YAML file.
func Load(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference %s: %w", path, err)
	}
	d, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("reference %s: %w", path, err)
	}
	return d, nil
}

// Parse decodes YAML reference data.
func Parse(raw []byte) (*Data, error) {
	var d Data
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parse reference: %w", err)
	}
	return &d, nil
}

// ActiveCardholders returns the cardholders whose status is active, in order.
func ActiveCardholders(all []Cardholder) []Cardholder {
	out := make([]Cardholder, 0, len(all))
	for _, c := range all {
		if c.Active() {
			out = append(out, c)
		}
	}
	return out
}

// ControllerIndex maps controller id to controller.
func ControllerIndex(all []Controller) map[string]Controller {
	m := make(map[string]Controller, len(all))
	for _, c := range all {
		m[c.ID] = c
	}
	return m
}
