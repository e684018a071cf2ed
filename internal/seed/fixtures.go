package seed

import (
	_ "embed"
	"fmt"
	"os"

	"captionboard/internal/models"
	"captionboard/internal/validation"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures/captions.yml
var defaultFixturesYAML []byte

// Fixture is a hand-written caption that is always part of the demo feed.
type Fixture struct {
	Department models.Department
	Author     string
	Text       string
}

type fixtureFile struct {
	Captions []struct {
		Department string `yaml:"department"`
		Author     string `yaml:"author"`
		Text       string `yaml:"text"`
	} `yaml:"captions"`
}

// ParseFixtures decodes a fixtures document and runs every entry through
// the same validation as a submitted caption.
func ParseFixtures(data []byte) ([]Fixture, error) {
	var doc fixtureFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}

	out := make([]Fixture, 0, len(doc.Captions))
	for i, raw := range doc.Captions {
		dept, err := validation.Department(raw.Department)
		if err != nil {
			return nil, fmt.Errorf("fixture %d: %w", i, err)
		}
		author, err := validation.AuthorName(raw.Author)
		if err != nil {
			return nil, fmt.Errorf("fixture %d: %w", i, err)
		}
		text, err := validation.CaptionText(raw.Text)
		if err != nil {
			return nil, fmt.Errorf("fixture %d: %w", i, err)
		}
		out = append(out, Fixture{Department: dept, Author: author, Text: text})
	}
	return out, nil
}

// DefaultFixtures returns the fixtures compiled into the binary.
func DefaultFixtures() ([]Fixture, error) {
	return ParseFixtures(defaultFixturesYAML)
}

// LoadFixtures reads fixtures from path, or the built-in set when path is empty.
func LoadFixtures(path string) ([]Fixture, error) {
	if path == "" {
		return DefaultFixtures()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return ParseFixtures(data)
}
