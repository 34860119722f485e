package tagmap_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surjbayarea/actionsync/pkg/errors"
	"github.com/surjbayarea/actionsync/pkg/everyaction"
	"github.com/surjbayarea/actionsync/pkg/tagmap"
)

// fakeLister serves canned remote catalogs.
type fakeLister struct {
	activist []everyaction.CodeRef
	generic  []everyaction.CodeRef
	err      error
}

func (f *fakeLister) ListActivistCodes(_ context.Context) ([]everyaction.CodeRef, error) {
	return f.activist, f.err
}

func (f *fakeLister) ListTagCodes(_ context.Context) ([]everyaction.CodeRef, error) {
	return f.generic, f.err
}

func TestLoadResolvesMapping(t *testing.T) {
	lister := &fakeLister{
		activist: []everyaction.CodeRef{
			{ID: 42, Kind: everyaction.CodeKindActivist, Name: "Phoner"},
		},
	}
	mapping := "old,new\nPhone_Bank,Phoner\n"

	catalog, err := tagmap.Load(context.Background(), lister, strings.NewReader(mapping), "tags_mapping.csv")
	require.NoError(t, err)

	refs := catalog.Resolve("Phone_Bank")
	require.Len(t, refs, 1)
	assert.Equal(t, everyaction.CodeRef{ID: 42, Kind: everyaction.CodeKindActivist, Name: "Phoner"}, refs[0])

	assert.Nil(t, catalog.Resolve("Unknown_Tag"))
}

func TestLoadFanOutIsUnion(t *testing.T) {
	lister := &fakeLister{
		activist: []everyaction.CodeRef{
			{ID: 1, Kind: everyaction.CodeKindActivist, Name: "Phoner"},
			{ID: 2, Kind: everyaction.CodeKindActivist, Name: "Canvasser"},
		},
	}
	mapping := "old,new\nField_Team,\"Phoner, Canvasser\"\n"

	catalog, err := tagmap.Load(context.Background(), lister, strings.NewReader(mapping), "tags_mapping.csv")
	require.NoError(t, err)

	refs := catalog.Resolve("Field_Team")
	require.Len(t, refs, 2)
	assert.Equal(t, "Phoner", refs[0].Name)
	assert.Equal(t, "Canvasser", refs[1].Name)
}

func TestLoadPrefersActivistOnNameCollision(t *testing.T) {
	lister := &fakeLister{
		activist: []everyaction.CodeRef{{ID: 1, Kind: everyaction.CodeKindActivist, Name: "Donor"}},
		generic:  []everyaction.CodeRef{{ID: 9, Kind: everyaction.CodeKindGeneric, Name: "Donor"}},
	}
	mapping := "old,new\nGave_Money,Donor\n"

	catalog, err := tagmap.Load(context.Background(), lister, strings.NewReader(mapping), "tags_mapping.csv")
	require.NoError(t, err)

	refs := catalog.Resolve("Gave_Money")
	require.Len(t, refs, 1)
	assert.Equal(t, everyaction.CodeKindActivist, refs[0].Kind)
	assert.Equal(t, 1, refs[0].ID)
}

func TestLoadDropsUnresolvedNames(t *testing.T) {
	lister := &fakeLister{
		activist: []everyaction.CodeRef{{ID: 1, Kind: everyaction.CodeKindActivist, Name: "Phoner"}},
	}
	mapping := "old,new\nPhone_Bank,\"Phoner, NoSuchCode\"\nGhost_Tag,AlsoMissing\n"

	catalog, err := tagmap.Load(context.Background(), lister, strings.NewReader(mapping), "tags_mapping.csv")
	require.NoError(t, err)

	// Resolvable part of the fan-out survives, the rest is dropped.
	require.Len(t, catalog.Resolve("Phone_Bank"), 1)
	assert.Nil(t, catalog.Resolve("Ghost_Tag"))
	assert.Equal(t, 1, catalog.Len())
}

func TestLoadRequiresMappingColumns(t *testing.T) {
	lister := &fakeLister{}
	_, err := tagmap.Load(context.Background(), lister, strings.NewReader("from,to\na,b\n"), "tags_mapping.csv")
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestSplitTags(t *testing.T) {
	tests := []struct {
		value string
		want  []string
	}{
		{"", nil},
		{"Phone_Bank", []string{"Phone_Bank"}},
		{"SURJ_Action_Hour, SURU2021, ShowUpRiseUp 2020", []string{"SURJ_Action_Hour", "SURU2021", "ShowUpRiseUp 2020"}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tagmap.SplitTags(tt.value), "value %q", tt.value)
	}
}
