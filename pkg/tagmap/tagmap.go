// Package tagmap resolves free-text Action Network tags to canonical
// EveryAction code references. The catalog is built once at startup from
// the two remote code catalogs plus a static mapping file and is a pure
// lookup table afterwards.
package tagmap

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/surjbayarea/actionsync/pkg/errors"
	"github.com/surjbayarea/actionsync/pkg/everyaction"
	"github.com/surjbayarea/actionsync/pkg/logging"
)

// CodeLister is the remote capability the catalog build needs.
type CodeLister interface {
	ListActivistCodes(ctx context.Context) ([]everyaction.CodeRef, error)
	ListTagCodes(ctx context.Context) ([]everyaction.CodeRef, error)
}

// Catalog maps legacy tag names to sets of canonical code references.
// Immutable after Load.
type Catalog struct {
	mapping map[string][]everyaction.CodeRef
}

// Load builds the catalog. Remote catalog fetch failures are fatal; a
// mapping row whose canonical name cannot be resolved is dropped with a
// warning, never blocking startup. Name collisions between the two
// remote catalogs prefer the activist code.
func Load(ctx context.Context, lister CodeLister, mappingCSV io.Reader, mappingName string) (*Catalog, error) {
	byName, err := loadCodeNames(ctx, lister)
	if err != nil {
		return nil, err
	}

	mapping, err := loadMapping(mappingCSV, mappingName, byName)
	if err != nil {
		return nil, err
	}

	return &Catalog{mapping: mapping}, nil
}

// loadCodeNames fetches both remote catalogs into one name table.
func loadCodeNames(ctx context.Context, lister CodeLister) (map[string]everyaction.CodeRef, error) {
	byName := make(map[string]everyaction.CodeRef)

	activist, err := lister.ListActivistCodes(ctx)
	if err != nil {
		return nil, err
	}
	for _, code := range activist {
		logging.Ctx(ctx).Debug().Str("name", code.Name).Int("id", code.ID).Msg("load activist code")
		byName[code.Name] = code
	}

	generic, err := lister.ListTagCodes(ctx)
	if err != nil {
		return nil, err
	}
	for _, code := range generic {
		if _, taken := byName[code.Name]; taken {
			logging.Ctx(ctx).Warn().Str("name", code.Name).Msg("ignoring duplicate tag code")
			continue
		}
		logging.Ctx(ctx).Debug().Str("name", code.Name).Int("id", code.ID).Msg("load tag code")
		byName[code.Name] = code
	}

	return byName, nil
}

// loadMapping reads the old->new mapping file. One legacy tag may fan
// out to several canonical names; the result is the union of everything
// that resolves.
func loadMapping(r io.Reader, name string, byName map[string]everyaction.CodeRef) (map[string][]everyaction.CodeRef, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, errors.WrapParse("csv", name, err)
	}
	oldIdx, newIdx := -1, -1
	for i, col := range header {
		switch col {
		case "old":
			oldIdx = i
		case "new":
			newIdx = i
		}
	}
	if oldIdx < 0 || newIdx < 0 {
		return nil, &errors.ValidationError{
			Field:   "old,new",
			Message: "expected columns 'old' and 'new' in " + name,
		}
	}

	mapping := make(map[string][]everyaction.CodeRef)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WrapParse("csv", name, err)
		}
		if oldIdx >= len(record) || newIdx >= len(record) {
			continue
		}

		old := record[oldIdx]
		for _, mapTo := range strings.Split(record[newIdx], ",") {
			mapTo = strings.TrimSpace(mapTo)
			if mapTo == "" {
				continue
			}
			code, ok := byName[mapTo]
			if !ok {
				logging.Warn().Str("name", mapTo).Msg("no activist code or tag with that name")
				continue
			}
			mapping[old] = append(mapping[old], code)
		}
	}

	return mapping, nil
}

// Resolve returns the canonical codes for one legacy tag, or nil when
// the tag has no mapping. Pure lookup, no I/O.
func (c *Catalog) Resolve(tag string) []everyaction.CodeRef {
	return c.mapping[tag]
}

// Len returns the number of mapped legacy tags.
func (c *Catalog) Len() int {
	return len(c.mapping)
}

// SplitTags splits a row's tag column value into individual tag strings.
// Export values look like "SURJ_Action_Hour, SURU2021, Phone_Bank".
func SplitTags(value string) []string {
	var tags []string
	for _, tag := range strings.Split(value, ", ") {
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
