package dataset

import (
	"time"

	"kpidash/domain/core"
)

// Kind is the runtime type of a cell value
type Kind int

const (
	KindNull Kind = iota
	KindNumber
	KindText
	KindTime
)

// Value is a single typed cell
type Value struct {
	Kind Kind
	Num  float64
	Str  string
	Time time.Time
}

// Null is the missing value
var Null = Value{Kind: KindNull}

func Number(f float64) Value      { return Value{Kind: KindNumber, Num: f} }
func Text(s string) Value         { return Value{Kind: KindText, Str: s} }
func Timestamp(t time.Time) Value { return Value{Kind: KindTime, Time: t} }

// IsNull reports whether the value is missing
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Key returns a comparable representation, used for grouping and dedup
func (v Value) Key() string {
	switch v.Kind {
	case KindNumber:
		return "n:" + formatFloat(v.Num)
	case KindText:
		return "s:" + v.Str
	case KindTime:
		return "t:" + v.Time.UTC().Format(time.RFC3339Nano)
	default:
		return "null"
	}
}

// String renders the value for labels and category selections
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return formatFloat(v.Num)
	case KindText:
		return v.Str
	case KindTime:
		return v.Time.Format(core.DateLayout)
	default:
		return ""
	}
}

// Role is the inferred purpose of a column
type Role string

const (
	RoleDate        Role = "date"
	RoleNumeric     Role = "numeric"
	RoleCategorical Role = "categorical"
	RoleText        Role = "text"
)

// DateColumn is the canonical name given to the detected date column
const DateColumn = "date"

// Column describes one column of a table
type Column struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// DateRange is the observed span of the date column
type DateRange struct {
	Min time.Time `json:"min"`
	Max time.Time `json:"max"`
}

// Summary describes a loaded table
type Summary struct {
	TotalRows      int                  `json:"total_rows"`
	TotalColumns   int                  `json:"total_columns"`
	Columns        []string             `json:"columns"`
	DateRange      *DateRange           `json:"date_range,omitempty"`
	NumericColumns []string             `json:"numeric_columns"`
	SheetNames     []string             `json:"sheet_names"`
	SourceSheet    string               `json:"source_sheet"`
	SourceFile     string               `json:"source_file"`
	Fingerprint    core.FileFingerprint `json:"fingerprint"`
	LoadedAt       time.Time            `json:"loaded_at"`
}
