package records

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/socialhub/internal/models"
)

// buildSelect translates q into SQL over the data column. Column names and
// values are always bound as parameters. Range operators only compare values
// of the same JSON type, and like/ilike only match strings.
func buildSelect(collection string, q models.Query) (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}

	b := &sqlBuilder{}
	var sb strings.Builder
	sb.WriteString("SELECT data FROM records WHERE collection = ")
	sb.WriteString(b.arg(collection))

	for _, f := range q.Filters {
		cond, err := b.condition(f)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(" AND ")
		sb.WriteString(cond)
	}

	sb.WriteString(" ORDER BY ")
	if o := q.OrderBy; o != nil {
		dir := "DESC NULLS FIRST"
		if o.Ascending {
			dir = "ASC NULLS LAST"
		}
		fmt.Fprintf(&sb, "data -> %s %s, ", b.key(o.Column), dir)
	}
	sb.WriteString("seq")

	if q.Limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(b.arg(q.Limit))
	}
	return sb.String(), b.args, nil
}

type sqlBuilder struct {
	args []any
}

func (b *sqlBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

func (b *sqlBuilder) key(column string) string {
	return b.arg(column) + "::text"
}

func (b *sqlBuilder) jsonArg(v any) (string, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode filter value: %w", err)
	}
	return b.arg(string(body)) + "::jsonb", nil
}

var rangeOps = map[models.Operator]string{
	models.OpGt:  ">",
	models.OpGte: ">=",
	models.OpLt:  "<",
	models.OpLte: "<=",
}

func (b *sqlBuilder) condition(f models.Filter) (string, error) {
	col := "data -> " + b.key(f.Column)

	switch f.Operator {
	case models.OpEq, models.OpNeq:
		v, err := b.jsonArg(f.Value)
		if err != nil {
			return "", err
		}
		op := "="
		if f.Operator == models.OpNeq {
			op = "<>"
		}
		return fmt.Sprintf("%s %s %s", col, op, v), nil

	case models.OpGt, models.OpGte, models.OpLt, models.OpLte:
		v, err := b.jsonArg(f.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(jsonb_typeof(%s) = jsonb_typeof(%s) AND %s %s %s)", col, v, col, rangeOps[f.Operator], v), nil

	case models.OpLike, models.OpILike:
		op := "LIKE"
		if f.Operator == models.OpILike {
			op = "ILIKE"
		}
		key := b.key(f.Column)
		return fmt.Sprintf("(jsonb_typeof(%s) = 'string' AND data ->> %s %s %s)", col, key, op, b.arg(f.Value)), nil

	case models.OpIn:
		v, err := b.jsonArg(f.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(jsonb_typeof(%s) NOT IN ('array', 'object') AND %s @> (%s))", col, v, col), nil

	case models.OpIs:
		if f.Value == nil {
			return fmt.Sprintf("(%s IS NULL OR %s = 'null'::jsonb)", col, col), nil
		}
		v, err := b.jsonArg(f.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s = %s", col, v), nil
	}
	return "", fmt.Errorf("unsupported operator %q", f.Operator)
}
