package eval

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/castlemilk/pocketai/internal/extraction"
)

//go:embed fixtures/*.txt fixtures/*.json
var fixtureFS embed.FS

// Kind selects the directive preset a response is extracted with.
type Kind string

const (
	KindScan      Kind = "scan"
	KindMediation Kind = "mediation"
)

// Directives returns the extraction preset for k.
func (k Kind) Directives() extraction.Directives {
	if k == KindMediation {
		return extraction.MediationDirectives
	}
	return extraction.ScanDirectives
}

// GroundTruth is the hand-labelled expectation stored next to each response.
type GroundTruth struct {
	Name     string                     `json:"name"`
	Kind     Kind                       `json:"kind"`
	Expected extraction.ExtractedFields `json:"expected"`
}

// Fixture bundles a recorded response with its ground truth.
type Fixture struct {
	Name     string
	Kind     Kind
	Text     string
	Expected extraction.ExtractedFields
}

// LoadFixtures loads every embedded fixture pair (txt + json), sorted by name.
func LoadFixtures() ([]*Fixture, error) {
	matches, err := fs.Glob(fixtureFS, "fixtures/*.json")
	if err != nil {
		return nil, err
	}
	slices.Sort(matches)

	fixtures := make([]*Fixture, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSuffix(path.Base(m), ".json")
		f, err := loadFixture(name)
		if err != nil {
			return nil, fmt.Errorf("load fixture %q: %w", name, err)
		}
		fixtures = append(fixtures, f)
	}
	return fixtures, nil
}

func loadFixture(name string) (*Fixture, error) {
	textBytes, err := fixtureFS.ReadFile("fixtures/" + name + ".txt")
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}

	jsonBytes, err := fixtureFS.ReadFile("fixtures/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("read ground truth: %w", err)
	}

	var gt GroundTruth
	if err := json.Unmarshal(jsonBytes, &gt); err != nil {
		return nil, fmt.Errorf("parse ground truth: %w", err)
	}
	if gt.Expected.ActionItems == nil {
		gt.Expected.ActionItems = []string{}
	}

	return &Fixture{
		Name:     name,
		Kind:     gt.Kind,
		Text:     string(textBytes),
		Expected: gt.Expected,
	}, nil
}
