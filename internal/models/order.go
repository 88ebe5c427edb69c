package models

import "sort"

// jsonb ordering of value kinds: null < string < number < bool < array < object.
func kindRank(v any) int {
	if v == nil {
		return 0
	}
	if _, ok := toFloat(v); ok {
		return 2
	}
	switch v.(type) {
	case string:
		return 1
	case bool:
		return 3
	case []any:
		return 4
	case map[string]any, Record:
		return 5
	}
	return 6
}

// SortRecords stably sorts records by o. Records missing the column sort
// last when ascending and first when descending, like SQL NULLs.
func SortRecords(records []Record, o OrderBy) {
	sort.SliceStable(records, func(i, j int) bool {
		a, aok := records[i][o.Column]
		b, bok := records[j][o.Column]
		if !aok || !bok {
			if aok == bok {
				return false
			}
			// the present one is "smaller" than NULL
			if o.Ascending {
				return aok
			}
			return bok
		}
		c := orderCompare(a, b)
		if o.Ascending {
			return c < 0
		}
		return c > 0
	})
}

func orderCompare(a, b any) int {
	ra, rb := kindRank(a), kindRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	c, _ := compare(a, b)
	return c
}
