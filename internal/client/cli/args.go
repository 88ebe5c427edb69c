package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/socialhub/internal/models"
)

// parseValue reads v as JSON when it is valid JSON (numbers, booleans,
// null, quoted strings, arrays, objects) and as a plain string otherwise.
func parseValue(v string) any {
	var out any
	if err := json.Unmarshal([]byte(v), &out); err == nil {
		return out
	}
	return v
}

// parseFields turns k=v arguments into a record.
func parseFields(args []string) (models.Record, error) {
	rec := make(models.Record, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", a)
		}
		rec[k] = parseValue(v)
	}
	return rec, nil
}

// parseQuery understands "col:op:value" filters, "order=col[:asc|:desc]"
// and "limit=n".
func parseQuery(args []string) (models.Query, error) {
	var q models.Query
	for _, a := range args {
		switch {
		case strings.HasPrefix(a, "order="):
			col, dir, _ := strings.Cut(strings.TrimPrefix(a, "order="), ":")
			if col == "" {
				return q, fmt.Errorf("empty order column in %q", a)
			}
			switch dir {
			case "", "desc":
				q.OrderBy = &models.OrderBy{Column: col}
			case "asc":
				q.OrderBy = &models.OrderBy{Column: col, Ascending: true}
			default:
				return q, fmt.Errorf("order direction must be asc or desc, got %q", dir)
			}
		case strings.HasPrefix(a, "limit="):
			n, err := strconv.Atoi(strings.TrimPrefix(a, "limit="))
			if err != nil || n < 0 {
				return q, fmt.Errorf("bad limit in %q", a)
			}
			q.Limit = n
		default:
			parts := strings.SplitN(a, ":", 3)
			if len(parts) != 3 || parts[0] == "" {
				return q, fmt.Errorf("expected column:operator:value, got %q", a)
			}
			q.Filters = append(q.Filters, models.Filter{
				Column:   parts[0],
				Operator: models.Operator(parts[1]),
				Value:    parseValue(parts[2]),
			})
		}
	}
	return q, nil
}
