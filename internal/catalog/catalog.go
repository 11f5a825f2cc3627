// Package catalog holds the read-only variable and station catalogs.
//
// Both catalogs are ordered: the order of the YAML mapping is the order used for
// column grouping and for the station listing.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/printobs/printobs/internal/models"
)

// DefaultTypeIDs is the instrument type filter used when a station does not name one.
const DefaultTypeIDs = "22"

var (
	// ErrStationNotFound is returned when a station alias is not in the catalog.
	ErrStationNotFound = errors.New("station not found")
	// ErrStationIDNotConfigured is returned when a listed station has no Frost station id.
	ErrStationIDNotConfigured = errors.New("station id not configured")
	// ErrEmptyCatalog is returned when a catalog document has no entries.
	ErrEmptyCatalog = errors.New("catalog is empty")

	//go:embed variable_def.yaml
	defaultVariablesYAML []byte
	//go:embed insitu_locations.yaml
	defaultStationsYAML []byte
)

// Variables is the immutable variable catalog.
type Variables struct {
	specs  []models.VariableSpec
	byName map[string]int
}

// NewVariables builds a catalog from specs in catalog order. Aliases must be unique.
func NewVariables(specs []models.VariableSpec) (*Variables, error) {
	if len(specs) == 0 {
		return nil, ErrEmptyCatalog
	}

	v := &Variables{
		specs:  make([]models.VariableSpec, 0, len(specs)),
		byName: make(map[string]int, len(specs)),
	}
	aliases := make(map[string]string, len(specs))
	for _, spec := range specs {
		if spec.Name == "" || spec.Alias == "" {
			return nil, fmt.Errorf("variable %q: name and alias are required", spec.Name)
		}
		if _, dup := v.byName[spec.Name]; dup {
			return nil, fmt.Errorf("variable %q defined twice", spec.Name)
		}
		if other, dup := aliases[spec.Alias]; dup {
			return nil, fmt.Errorf("alias %q used by both %q and %q", spec.Alias, other, spec.Name)
		}
		aliases[spec.Alias] = spec.Name
		v.byName[spec.Name] = len(v.specs)
		v.specs = append(v.specs, spec)
	}
	return v, nil
}

// LoadVariables decodes a variable catalog document.
func LoadVariables(r io.Reader) (*Variables, error) {
	var specs []models.VariableSpec
	err := decodeOrdered(r, func(name string, node *yaml.Node) error {
		var spec models.VariableSpec
		if err := node.Decode(&spec); err != nil {
			return err
		}
		spec.Name = name
		specs = append(specs, spec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load variables: %w", err)
	}
	return NewVariables(specs)
}

// LoadVariablesFile reads the variable catalog at path, or the embedded default when path is empty.
func LoadVariablesFile(path string) (*Variables, error) {
	if path == "" {
		return DefaultVariables()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadVariables(f)
}

// DefaultVariables returns the embedded variable catalog.
func DefaultVariables() (*Variables, error) {
	return LoadVariables(bytes.NewReader(defaultVariablesYAML))
}

// All returns the specs in catalog order.
func (v *Variables) All() []models.VariableSpec {
	out := make([]models.VariableSpec, len(v.specs))
	copy(out, v.specs)
	return out
}

// Names returns canonical variable names in catalog order.
func (v *Variables) Names() []string {
	names := make([]string, 0, len(v.specs))
	for _, spec := range v.specs {
		names = append(names, spec.Name)
	}
	return names
}

// Aliases returns display aliases in catalog order.
func (v *Variables) Aliases() []string {
	aliases := make([]string, 0, len(v.specs))
	for _, spec := range v.specs {
		aliases = append(aliases, spec.Alias)
	}
	return aliases
}

// Lookup returns the spec for a canonical variable name.
func (v *Variables) Lookup(name string) (models.VariableSpec, bool) {
	idx, ok := v.byName[name]
	if !ok {
		return models.VariableSpec{}, false
	}
	return v.specs[idx], true
}

// ByAlias returns the spec whose alias equals alias.
func (v *Variables) ByAlias(alias string) (models.VariableSpec, bool) {
	for _, spec := range v.specs {
		if spec.Alias == alias {
			return spec, true
		}
	}
	return models.VariableSpec{}, false
}

// Len returns the number of variables.
func (v *Variables) Len() int {
	return len(v.specs)
}

// Stations is the immutable station catalog.
type Stations struct {
	specs   []models.StationSpec
	byAlias map[string]int
}

// NewStations builds a station catalog in listing order. Stations may lack an ID;
// they are listed but cannot be queried.
func NewStations(specs []models.StationSpec) (*Stations, error) {
	if len(specs) == 0 {
		return nil, ErrEmptyCatalog
	}

	s := &Stations{
		specs:   make([]models.StationSpec, 0, len(specs)),
		byAlias: make(map[string]int, len(specs)),
	}
	for _, spec := range specs {
		if spec.Alias == "" {
			return nil, fmt.Errorf("station with ID %q: alias is required", spec.StationID)
		}
		if _, dup := s.byAlias[spec.Alias]; dup {
			return nil, fmt.Errorf("station %q defined twice", spec.Alias)
		}
		if spec.TypeIDs == "" {
			spec.TypeIDs = DefaultTypeIDs
		}
		s.byAlias[spec.Alias] = len(s.specs)
		s.specs = append(s.specs, spec)
	}
	return s, nil
}

type stationEntry struct {
	ID      any    `yaml:"ID"`
	TypeIDs any    `yaml:"typeids"`
	Abbrev  string `yaml:"abbrev"`
}

// LoadStations decodes a station catalog document.
func LoadStations(r io.Reader) (*Stations, error) {
	var specs []models.StationSpec
	err := decodeOrdered(r, func(alias string, node *yaml.Node) error {
		var entry stationEntry
		if err := node.Decode(&entry); err != nil {
			return err
		}
		specs = append(specs, models.StationSpec{
			Alias:     alias,
			StationID: scalarString(entry.ID),
			TypeIDs:   scalarString(entry.TypeIDs),
			Abbrev:    entry.Abbrev,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load stations: %w", err)
	}
	return NewStations(specs)
}

// LoadStationsFile reads the station catalog at path, or the embedded default when path is empty.
func LoadStationsFile(path string) (*Stations, error) {
	if path == "" {
		return DefaultStations()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadStations(f)
}

// DefaultStations returns the embedded station catalog.
func DefaultStations() (*Stations, error) {
	return LoadStations(bytes.NewReader(defaultStationsYAML))
}

// All returns the stations in listing order.
func (s *Stations) All() []models.StationSpec {
	out := make([]models.StationSpec, len(s.specs))
	copy(out, s.specs)
	return out
}

// Lookup returns the station registered under alias, or ErrStationNotFound.
func (s *Stations) Lookup(alias string) (models.StationSpec, error) {
	idx, ok := s.byAlias[alias]
	if !ok {
		return models.StationSpec{}, fmt.Errorf("%w: %q", ErrStationNotFound, alias)
	}
	return s.specs[idx], nil
}

// Queryable returns the station registered under alias if it carries a station id.
func (s *Stations) Queryable(alias string) (models.StationSpec, error) {
	station, err := s.Lookup(alias)
	if err != nil {
		return station, err
	}
	if station.StationID == "" {
		return models.StationSpec{}, fmt.Errorf("%w for %q", ErrStationIDNotConfigured, alias)
	}
	return station, nil
}

// Len returns the number of stations.
func (s *Stations) Len() int {
	return len(s.specs)
}

func decodeOrdered(r io.Reader, fn func(key string, value *yaml.Node) error) error {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyCatalog
		}
		return err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return ErrEmptyCatalog
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping at top level", root.Line)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i]
		if err := fn(key.Value, root.Content[i+1]); err != nil {
			return fmt.Errorf("line %d (%s): %w", key.Line, key.Value, err)
		}
	}
	return nil
}

func scalarString(v any) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
