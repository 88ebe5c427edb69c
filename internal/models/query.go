package models

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/socialhub/internal/common"
)

// Operator is a comparison operator of a Filter.
type Operator string

const (
	OpEq    Operator = "eq"
	OpNeq   Operator = "neq"
	OpGt    Operator = "gt"
	OpGte   Operator = "gte"
	OpLt    Operator = "lt"
	OpLte   Operator = "lte"
	OpLike  Operator = "like"
	OpILike Operator = "ilike"
	OpIn    Operator = "in"
	OpIs    Operator = "is"
)

// Filter is one (column, operator, value) condition. Filters of a Query are
// ANDed in the order given.
type Filter struct {
	Column   string   `json:"column"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

// OrderBy sorts results by one column; Ascending=false sorts descending.
type OrderBy struct {
	Column    string `json:"column"`
	Ascending bool   `json:"ascending"`
}

// Query is the filter/order/limit descriptor of a read. Limit <= 0 means
// no limit.
type Query struct {
	Filters []Filter `json:"filters,omitempty"`
	OrderBy *OrderBy `json:"order_by,omitempty"`
	Limit   int      `json:"limit,omitempty"`
}

// Eq is shorthand for an equality filter.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Operator: OpEq, Value: value}
}

// Validate reports malformed descriptors as common.ErrInvalidQuery.
func (q Query) Validate() error {
	for i, f := range q.Filters {
		if f.Column == "" {
			return fmt.Errorf("%w: filter %d has no column", common.ErrInvalidQuery, i)
		}
		switch f.Operator {
		case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte:
		case OpLike, OpILike:
			if _, ok := f.Value.(string); !ok {
				return fmt.Errorf("%w: %s on %q needs a string pattern", common.ErrInvalidQuery, f.Operator, f.Column)
			}
		case OpIn:
			if _, ok := asList(f.Value); !ok {
				return fmt.Errorf("%w: in on %q needs a list", common.ErrInvalidQuery, f.Column)
			}
		case OpIs:
			switch f.Value.(type) {
			case nil, bool:
			default:
				return fmt.Errorf("%w: is on %q accepts null, true or false", common.ErrInvalidQuery, f.Column)
			}
		default:
			return fmt.Errorf("%w: unknown operator %q", common.ErrInvalidQuery, f.Operator)
		}
	}
	if q.OrderBy != nil && q.OrderBy.Column == "" {
		return fmt.Errorf("%w: order by without column", common.ErrInvalidQuery)
	}
	return nil
}

// Match reports whether r satisfies every filter of q.
func (q Query) Match(r Record) bool {
	for _, f := range q.Filters {
		if !f.Match(r) {
			return false
		}
	}
	return true
}

// Match evaluates the filter against r. A missing column behaves like SQL
// NULL: it only satisfies "is null".
func (f Filter) Match(r Record) bool {
	v, present := r[f.Column]

	if f.Operator == OpIs {
		if f.Value == nil {
			return !present || v == nil
		}
		return present && equal(v, f.Value)
	}
	if !present {
		return false
	}

	switch f.Operator {
	case OpEq:
		return equal(v, f.Value)
	case OpNeq:
		return !equal(v, f.Value)
	case OpGt, OpGte, OpLt, OpLte:
		c, ok := compare(v, f.Value)
		if !ok {
			return false
		}
		switch f.Operator {
		case OpGt:
			return c > 0
		case OpGte:
			return c >= 0
		case OpLt:
			return c < 0
		default:
			return c <= 0
		}
	case OpLike, OpILike:
		s, ok := v.(string)
		pattern, _ := f.Value.(string)
		return ok && likeRegexp(pattern, f.Operator == OpILike).MatchString(s)
	case OpIn:
		list, _ := asList(f.Value)
		for _, candidate := range list {
			if equal(v, candidate) {
				return true
			}
		}
		return false
	}
	return false
}

func asList(v any) ([]any, bool) {
	if list, ok := v.([]any); ok {
		return list, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func equal(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

// compare orders two values of the same kind: numbers numerically,
// strings lexically, false before true.
func compare(a, b any) (int, bool) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func likeRegexp(pattern string, insensitive bool) *regexp.Regexp {
	var sb strings.Builder
	if insensitive {
		sb.WriteString("(?i)")
	}
	sb.WriteString("(?s)^")
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return regexp.MustCompile(sb.String())
}
