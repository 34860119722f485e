package fieldmap_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surjbayarea/actionsync/internal/fieldmap"
	"github.com/surjbayarea/actionsync/pkg/rows"
)

func readOneRow(t *testing.T, csv string) (*rows.Row, rows.Columns) {
	t.Helper()
	src, err := rows.Open(strings.NewReader(csv), "export.csv")
	require.NoError(t, err)
	row, err := src.Next()
	require.NoError(t, err)
	return row, src.Columns()
}

func TestDefaultBuild(t *testing.T) {
	row, columns := readOneRow(t,
		"email,can2_user_address,can2_user_city,can2_state_abbreviated,zip_code,country\n"+
			"ana@example.com,12 Oak St,Oakland,CA,94601,US\n")

	addr := fieldmap.Default().Prune(columns).Build(row)
	require.NotNil(t, addr)
	assert.Equal(t, "12 Oak St", addr.Line1)
	assert.Equal(t, "Oakland", addr.City)
	assert.Equal(t, "CA", addr.State)
	assert.Equal(t, "94601", addr.Zip)
	assert.Equal(t, "US", addr.Country)
	assert.True(t, addr.IsPreferred)
}

func TestBuildReturnsNilWithoutAddressData(t *testing.T) {
	row, columns := readOneRow(t, "email,can2_user_city\nana@example.com,\n")

	addr := fieldmap.Default().Prune(columns).Build(row)
	assert.Nil(t, addr)
}

func TestPruneDropsAbsentColumns(t *testing.T) {
	_, columns := readOneRow(t, "email,zip_code\nana@example.com,94601\n")

	pruned := fieldmap.Default().Prune(columns)
	assert.Equal(t, map[string]string{"zip_code": fieldmap.TargetZip}, pruned.Address)
}

func TestLoadOverride(t *testing.T) {
	override := `
address:
  street: addressLine1
  town: city
`
	m, err := fieldmap.Load(strings.NewReader(override), "fieldmap.yaml")
	require.NoError(t, err)
	assert.Equal(t, fieldmap.TargetLine1, m.Address["street"])
	assert.Equal(t, fieldmap.TargetCity, m.Address["town"])
}

func TestLoadRejectsUnknownTarget(t *testing.T) {
	override := `
address:
  street: notAField
`
	_, err := fieldmap.Load(strings.NewReader(override), "fieldmap.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notAField")
}

func TestLoadFileMissingPathUsesDefault(t *testing.T) {
	m, err := fieldmap.LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, fieldmap.Default(), m)
}
