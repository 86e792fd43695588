package recommend

import (
	_ "embed"
	"fmt"
	"sync"

	"airease-backend/pkg/models"

	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var tablesYAML []byte

// Stage is one fixed step of the time budget.
type Stage struct {
	Task          string `yaml:"task"`
	International int    `yaml:"international"`
	Domestic      int    `yaml:"domestic"`
	Description   string `yaml:"description"`
}

// Tables holds the lookup data behind rule-based recommendations.
type Tables struct {
	Destinations   map[string]string             `yaml:"destinations"`
	Weather        map[string]models.WeatherInfo `yaml:"weather"`
	DefaultWeather models.WeatherInfo            `yaml:"defaultWeather"`
	ColdBelow      int                           `yaml:"coldBelow"`
	HotAbove       int                           `yaml:"hotAbove"`
	Packing        map[string]models.PackingList `yaml:"packing"`
	Tips           map[string][]models.TravelTip `yaml:"tips"`
	GenericTips    []models.TravelTip            `yaml:"genericTips"`
	Stages         []Stage                       `yaml:"stages"`
}

// ParseTables decodes a recommendation table document.
func ParseTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing recommendation tables: %w", err)
	}
	for _, band := range []string{"cold", "hot", "temperate"} {
		if _, ok := t.Packing[band]; !ok {
			return nil, fmt.Errorf("parsing recommendation tables: missing %s packing band", band)
		}
	}
	if len(t.Stages) == 0 {
		return nil, fmt.Errorf("parsing recommendation tables: no time budget stages")
	}
	return &t, nil
}

var (
	defaultTables     *Tables
	defaultTablesOnce sync.Once
)

// DefaultTables returns the embedded tables.
func DefaultTables() *Tables {
	defaultTablesOnce.Do(func() {
		t, err := ParseTables(tablesYAML)
		if err != nil {
			panic(err)
		}
		defaultTables = t
	})
	return defaultTables
}

// WeatherFor returns the expected weather at an airport.
func (t *Tables) WeatherFor(code string) models.WeatherInfo {
	if w, ok := t.Weather[code]; ok {
		return w
	}
	return t.DefaultWeather
}

// PackingFor picks the packing band for a temperature.
func (t *Tables) PackingFor(temp int) models.PackingList {
	band := "temperate"
	switch {
	case temp < t.ColdBelow:
		band = "cold"
	case temp > t.HotAbove:
		band = "hot"
	}
	return clonePacking(t.Packing[band])
}

// TipsFor returns tips for a destination display name, or the generic tips.
func (t *Tables) TipsFor(destination string) []models.TravelTip {
	tips, ok := t.Tips[destination]
	if !ok {
		tips = t.GenericTips
	}
	return append([]models.TravelTip(nil), tips...)
}

func clonePacking(p models.PackingList) models.PackingList {
	return models.PackingList{
		Clothing:   append([]string(nil), p.Clothing...),
		Weather:    append([]string(nil), p.Weather...),
		Essentials: append([]string(nil), p.Essentials...),
	}
}
