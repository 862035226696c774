// Package catalog lists the eyewear assets that can be tried on and the calibration
// each one is rendered with.
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/teslashibe/go-tryon/pkg/anchor"
)

//go:embed data/catalog.json
var embedded embed.FS

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrUnknownModel is returned when a model name is not in the catalog.
	ErrUnknownModel = errors.New("catalog: unknown model")

	// ErrUnknownVariant is returned when a model has no variant of that name.
	ErrUnknownVariant = errors.New("catalog: unknown variant")

	// ErrInvalidCatalog is returned when catalog data is malformed.
	ErrInvalidCatalog = errors.New("catalog: invalid catalog data")
)

// Asset is one selectable model/variant pair.
type Asset struct {
	Model       string             `json:"model"`
	Variant     string             `json:"variant"`
	Path        string             `json:"path"`
	Calibration anchor.Calibration `json:"calibration"`
}

// ID returns "Model/Variant".
func (a Asset) ID() string {
	return a.Model + "/" + a.Variant
}

// Model is a frame shape offered in several colorways.
type Model struct {
	Name     string   `json:"name"`
	Variants []string `json:"variants"`

	// Calibration overrides the catalog-wide calibration for this model's exports.
	Calibration *anchor.Calibration `json:"calibration,omitempty"`
}

// Selection names a model and variant.
type Selection struct {
	Model   string `json:"model"`
	Variant string `json:"variant"`
}

type document struct {
	AssetRoot   string             `json:"asset_root"`
	Default     Selection          `json:"default"`
	Calibration anchor.Calibration `json:"calibration"`
	Models      []Model            `json:"models"`
}

// Slug turns a variant name into its file stem: "Rich Black" -> "rich-black".
func Slug(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), "-"))
}

// LoadEmbedded parses the built-in catalog.
func LoadEmbedded() (*Registry, error) {
	data, err := embedded.ReadFile("data/catalog.json")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded catalog: %w", err)
	}
	return Parse(data)
}

// LoadFromFile parses a catalog from disk, for deployments with their own assets.
func LoadFromFile(filename string) (*Registry, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse builds a registry from catalog JSON. Every calibration is validated and the
// default selection must exist.
func Parse(data []byte) (*Registry, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if len(doc.Models) == 0 {
		return nil, fmt.Errorf("%w: no models", ErrInvalidCatalog)
	}
	if err := doc.Calibration.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	r := newRegistry()
	for _, m := range doc.Models {
		if m.Name == "" || len(m.Variants) == 0 {
			return nil, fmt.Errorf("%w: model %q has no variants", ErrInvalidCatalog, m.Name)
		}
		cal := doc.Calibration
		if m.Calibration != nil {
			if err := m.Calibration.Validate(); err != nil {
				return nil, fmt.Errorf("%w: model %s: %v", ErrInvalidCatalog, m.Name, err)
			}
			cal = *m.Calibration
		}
		for _, v := range m.Variants {
			r.add(Asset{
				Model:       m.Name,
				Variant:     v,
				Path:        path.Join(doc.AssetRoot, m.Name, Slug(v)+".glb"),
				Calibration: cal,
			})
		}
	}

	def, err := r.Get(doc.Default.Model, doc.Default.Variant)
	if err != nil {
		return nil, fmt.Errorf("%w: default selection: %v", ErrInvalidCatalog, err)
	}
	r.def = def
	return r, nil
}
