// Package rows reads an Action Network CSV export as an ordered sequence
// of 1-indexed input rows. It validates the required key column up front
// and reports which optional columns are present so the engine can skip
// irrelevant delta logic per run rather than per cell.
package rows

import (
	"encoding/csv"
	"io"

	"github.com/surjbayarea/actionsync/pkg/errors"
)

// Column names recognized in the export header.
const (
	ColEmail        = "email"
	ColUUID         = "uuid"
	ColSubscription = "can2_subscription_status"
	ColTags         = "can2_user_tags"
	ColMobile       = "can2_phone"
	ColSMSStatus    = "can2_sms_status"
	ColPhone        = "Phone"
	ColPhoneNumber  = "Phone Number"
	ColFirstName    = "first_name"
	ColLastName     = "last_name"
)

// Columns reports which optional column groups the dataset carries.
type Columns struct {
	ExternalID   bool
	Subscription bool
	Phones       bool
	Tags         bool

	// Names holds every header column in file order.
	Names []string
}

// Has reports whether the named column is present in the header.
func (c Columns) Has(name string) bool {
	for _, n := range c.Names {
		if n == name {
			return true
		}
	}
	return false
}

// Row is one input record. Immutable once read.
type Row struct {
	// Index is the 1-based position of the row in the dataset.
	Index int

	values map[string]string
}

// Get returns the value of the named column, or "" when absent.
func (r *Row) Get(name string) string {
	return r.values[name]
}

// Source yields rows from one export dataset in file order.
type Source struct {
	name    string
	reader  *csv.Reader
	columns Columns
	header  []string
	index   int
}

// Open wraps a dataset and validates its header. A header without the
// required email column is a fatal configuration error, not a per-row
// error.
func Open(r io.Reader, name string) (*Source, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, errors.WrapParse("csv", name, err)
	}

	columns := Columns{Names: header}
	if !columns.Has(ColEmail) {
		return nil, &errors.ValidationError{
			Field:   ColEmail,
			Message: "expected column '" + ColEmail + "' in " + name,
		}
	}

	columns.ExternalID = columns.Has(ColUUID)
	columns.Subscription = columns.Has(ColSubscription)
	columns.Tags = columns.Has(ColTags)
	columns.Phones = columns.Has(ColMobile) || columns.Has(ColPhone) || columns.Has(ColPhoneNumber)

	return &Source{
		name:    name,
		reader:  cr,
		columns: columns,
		header:  header,
	}, nil
}

// Name returns the dataset identity the source was opened with.
func (s *Source) Name() string {
	return s.name
}

// Columns returns the optional-column presence report.
func (s *Source) Columns() Columns {
	return s.columns
}

// Next returns the next row, or io.EOF after the last one. A malformed
// record terminates the run.
func (s *Source) Next() (*Row, error) {
	record, err := s.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, errors.WrapParse("csv", s.name, err)
	}

	s.index++
	values := make(map[string]string, len(s.header))
	for i, col := range s.header {
		if i < len(record) {
			values[col] = record[i]
		}
	}

	return &Row{Index: s.index, values: values}, nil
}
