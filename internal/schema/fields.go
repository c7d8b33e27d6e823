// Package schema describes the columns of the sales sheet accepted by the
// importer.
package schema

// FieldType represents the expected data type for a sheet column.
type FieldType int

const (
	FieldText FieldType = iota
	FieldInt
	FieldDate
	FieldNumeric
	FieldFloat
)

func (t FieldType) String() string {
	switch t {
	case FieldText:
		return "text"
	case FieldInt:
		return "integer"
	case FieldDate:
		return "date"
	case FieldNumeric:
		return "number"
	case FieldFloat:
		return "coordinate"
	default:
		return "unknown"
	}
}

// FieldSpec defines one sheet column.
type FieldSpec struct {
	Name     string    // Column header (exact, case-sensitive)
	Type     FieldType // Expected data type
	Required bool      // Column must exist in the header row
	// AllowEmpty marks typed columns whose blank cells decode to "absent"
	// instead of failing the import.
	AllowEmpty bool
}
