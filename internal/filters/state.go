package filters

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"kpidash/domain/core"
	"kpidash/internal/errors"
	"kpidash/internal/validation"
)

// Query parameter names
const (
	ParamStart      = "start"
	ParamEnd        = "end"
	ParamMin        = "min"
	ParamMax        = "max"
	CategoryPrefix  = "cat."
	maxParamLength  = 200
	maxSelectValues = MaxCategoryValues
)

// State is the user's current selection. Nil bounds and empty category
// selections do not constrain anything.
type State struct {
	Start      *time.Time          `json:"start,omitempty"`
	End        *time.Time          `json:"end,omitempty"` // inclusive to the end of the day
	Categories map[string][]string `json:"categories,omitempty"`
	ValueMin   *float64            `json:"value_min,omitempty"`
	ValueMax   *float64            `json:"value_max,omitempty"`
}

// IsZero reports whether s selects everything
func (s State) IsZero() bool {
	if s.Start != nil || s.End != nil || s.ValueMin != nil || s.ValueMax != nil {
		return false
	}
	for _, v := range s.Categories {
		if len(v) > 0 {
			return false
		}
	}
	return true
}

// Selected reports whether value is chosen for column. Without a selection
// everything is chosen.
func (s State) Selected(column, value string) bool {
	selected := s.Categories[column]
	if len(selected) == 0 {
		return true
	}
	for _, v := range selected {
		if v == value {
			return true
		}
	}
	return false
}

type queryParams struct {
	Start string `validate:"omitempty,datetime=2006-01-02"`
	End   string `validate:"omitempty,datetime=2006-01-02"`
	Min   string `validate:"omitempty,numeric"`
	Max   string `validate:"omitempty,numeric"`
}

var validate = validator.New()

// ParseQuery reads a State from query parameters:
// start=YYYY-MM-DD, end=YYYY-MM-DD, min=, max= and cat.<column>=value (repeatable).
func ParseQuery(q url.Values) (State, error) {
	params := queryParams{
		Start: strings.TrimSpace(q.Get(ParamStart)),
		End:   strings.TrimSpace(q.Get(ParamEnd)),
		Min:   strings.TrimSpace(q.Get(ParamMin)),
		Max:   strings.TrimSpace(q.Get(ParamMax)),
	}
	if err := validate.Struct(params); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return State{}, errors.InvalidInput(fmt.Sprintf("invalid %s filter: %q", strings.ToLower(fe.Field()), fe.Value()))
		}
		return State{}, errors.WithCode(errors.CodeInvalidInput, err)
	}

	var s State
	var err error
	if s.Start, err = parseDay(params.Start); err != nil {
		return State{}, err
	}
	if s.End, err = parseDay(params.End); err != nil {
		return State{}, err
	}
	if err := validation.ValidateDateRange(s.Start, s.End); err != nil {
		return State{}, err
	}
	if s.ValueMin, err = parseFloat(params.Min); err != nil {
		return State{}, err
	}
	if s.ValueMax, err = parseFloat(params.Max); err != nil {
		return State{}, err
	}
	if s.ValueMin != nil && s.ValueMax != nil && *s.ValueMin > *s.ValueMax {
		return State{}, errors.InvalidInput("minimum value is greater than maximum value")
	}

	for key, values := range q {
		if !strings.HasPrefix(key, CategoryPrefix) {
			continue
		}
		column := strings.TrimPrefix(key, CategoryPrefix)
		if column == "" || len(column) > maxParamLength {
			continue
		}
		var selected []string
		for _, v := range values {
			if v = strings.TrimSpace(v); v != "" {
				selected = append(selected, validation.TruncateString(v, validation.DefaultMaxStringLength))
			}
			if len(selected) == maxSelectValues {
				break
			}
		}
		if len(selected) == 0 {
			continue
		}
		if s.Categories == nil {
			s.Categories = make(map[string][]string)
		}
		s.Categories[column] = selected
	}
	return s, nil
}

// Query encodes s so that ParseQuery(s.Query()) == s
func (s State) Query() url.Values {
	q := url.Values{}
	if s.Start != nil {
		q.Set(ParamStart, s.Start.Format(core.DateLayout))
	}
	if s.End != nil {
		q.Set(ParamEnd, s.End.Format(core.DateLayout))
	}
	if s.ValueMin != nil {
		q.Set(ParamMin, strconv.FormatFloat(*s.ValueMin, 'f', -1, 64))
	}
	if s.ValueMax != nil {
		q.Set(ParamMax, strconv.FormatFloat(*s.ValueMax, 'f', -1, 64))
	}
	columns := make([]string, 0, len(s.Categories))
	for col := range s.Categories {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	for _, col := range columns {
		for _, v := range s.Categories[col] {
			q.Add(CategoryPrefix+col, v)
		}
	}
	return q
}

// Hash identifies the selection independent of parameter order
func (s State) Hash() core.Hash {
	return core.ComputeQueryHash(s.Query())
}

func parseDay(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := core.ParseDay(raw)
	if err != nil {
		return nil, errors.InvalidInput(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", raw))
	}
	return &t, nil
}

func parseFloat(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errors.InvalidInput(fmt.Sprintf("invalid number %q", raw))
	}
	return &f, nil
}
