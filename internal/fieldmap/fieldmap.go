// Package fieldmap maps Action Network export columns to EveryAction
// address fields. The default mapping covers the standard export schema;
// a YAML file can override or extend it for nonstandard exports.
package fieldmap

import (
	"io"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/surjbayarea/actionsync/pkg/errors"
	"github.com/surjbayarea/actionsync/pkg/everyaction"
	"github.com/surjbayarea/actionsync/pkg/rows"
)

// Address field targets accepted in a mapping.
const (
	TargetLine1   = "addressLine1"
	TargetCity    = "city"
	TargetState   = "stateOrProvince"
	TargetZip     = "zipOrPostalCode"
	TargetCountry = "countryCode"
)

// Map associates export column names with address field targets.
type Map struct {
	// Address maps column name -> address field target.
	Address map[string]string `yaml:"address"`
}

// Default returns the mapping for the standard Action Network export.
func Default() Map {
	return Map{
		Address: map[string]string{
			"can2_user_address":      TargetLine1,
			"can2_user_city":         TargetCity,
			"can2_state_abbreviated": TargetState,
			"zip_code":               TargetZip,
			"country":                TargetCountry,
		},
	}
}

// LoadFile reads a YAML mapping override. Missing path returns the
// default mapping.
func LoadFile(path string) (Map, error) {
	if path == "" {
		return Default(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return Map{}, errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()

	return Load(f, path)
}

// Load parses a YAML mapping override from a reader.
func Load(r io.Reader, name string) (Map, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Map{}, errors.WrapIO("read", name, err)
	}

	var m Map
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Map{}, errors.WrapParse("yaml", name, err)
	}
	if len(m.Address) == 0 {
		m = Default()
	}

	for col, target := range m.Address {
		switch target {
		case TargetLine1, TargetCity, TargetState, TargetZip, TargetCountry:
		default:
			return Map{}, &errors.ValidationError{
				Field:   col,
				Message: "unknown address field target '" + target + "' in " + name,
			}
		}
	}

	return m, nil
}

// Prune keeps only the columns the dataset actually carries, so per-row
// field synthesis never probes absent columns.
func (m Map) Prune(columns rows.Columns) Map {
	pruned := Map{Address: make(map[string]string, len(m.Address))}
	for col, target := range m.Address {
		if columns.Has(col) {
			pruned.Address[col] = target
		}
	}
	return pruned
}

// Build assembles an address record from one row, or nil when the row
// has no address data.
func (m Map) Build(row *rows.Row) *everyaction.Address {
	var addr everyaction.Address
	found := false

	for col, target := range m.Address {
		value := row.Get(col)
		if value == "" {
			continue
		}
		found = true
		switch target {
		case TargetLine1:
			addr.Line1 = value
		case TargetCity:
			addr.City = value
		case TargetState:
			addr.State = value
		case TargetZip:
			addr.Zip = value
		case TargetCountry:
			addr.Country = value
		}
	}

	if !found {
		return nil
	}
	addr.IsPreferred = true
	return &addr
}
