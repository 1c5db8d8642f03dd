package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Topic is one entry of the interview topic catalog.
type Topic struct {
	ID           string   `yaml:"id" json:"id"`
	Name         string   `yaml:"name" json:"name"`
	Description  string   `yaml:"description" json:"description"`
	Difficulties []string `yaml:"difficulties" json:"difficulties"`
}

// Catalog is the set of topics the server offers for new interviews.
type Catalog struct {
	Topics []Topic `yaml:"topics" json:"topics"`
}

// LoadCatalog reads and validates the topic catalog at path.
func LoadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cat Catalog
	if err := yaml.NewDecoder(f).Decode(&cat); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(cat.Topics) == 0 {
		return nil, fmt.Errorf("%s: catalog has no topics", path)
	}

	seen := map[string]bool{}
	for i, t := range cat.Topics {
		if t.ID == "" || t.Name == "" {
			return nil, fmt.Errorf("%s: topic %d missing id or name", path, i)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("%s: duplicate topic id %q", path, t.ID)
		}
		seen[t.ID] = true
	}
	return &cat, nil
}

// Find returns the topic with the given id.
func (c *Catalog) Find(id string) (Topic, bool) {
	for _, t := range c.Topics {
		if t.ID == id {
			return t, true
		}
	}
	return Topic{}, false
}

// Supports reports whether the topic offers the given difficulty. An
// empty difficulty list means anything goes.
func (t Topic) Supports(difficulty string) bool {
	if len(t.Difficulties) == 0 {
		return true
	}
	for _, d := range t.Difficulties {
		if d == difficulty {
			return true
		}
	}
	return false
}
