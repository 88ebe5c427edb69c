package records

import (
	"testing"

	"github.com/dmitrijs2005/socialhub/internal/common"
	"github.com/dmitrijs2005/socialhub/internal/models"
	"github.com/stretchr/testify/require"
)

func TestBuildSelect(t *testing.T) {
	tests := []struct {
		name     string
		query    models.Query
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "no filters keeps insertion order",
			query:    models.Query{},
			wantSQL:  "SELECT data FROM records WHERE collection = $1 ORDER BY seq",
			wantArgs: []any{"social_posts"},
		},
		{
			name: "eq with order and limit",
			query: models.Query{
				Filters: []models.Filter{models.Eq("user_id", "u1")},
				OrderBy: &models.OrderBy{Column: "created_at"},
				Limit:   5,
			},
			wantSQL: "SELECT data FROM records WHERE collection = $1 AND data -> $2::text = $3::jsonb " +
				"ORDER BY data -> $4::text DESC NULLS FIRST, seq LIMIT $5",
			wantArgs: []any{"social_posts", "user_id", `"u1"`, "created_at", 5},
		},
		{
			name: "range compares same json type only",
			query: models.Query{
				Filters: []models.Filter{{Column: "likes", Operator: models.OpGt, Value: 10}},
				OrderBy: &models.OrderBy{Column: "likes", Ascending: true},
			},
			wantSQL: "SELECT data FROM records WHERE collection = $1 AND " +
				"(jsonb_typeof(data -> $2::text) = jsonb_typeof($3::jsonb) AND data -> $2::text > $3::jsonb) " +
				"ORDER BY data -> $4::text ASC NULLS LAST, seq",
			wantArgs: []any{"social_posts", "likes", "10", "likes"},
		},
		{
			name:  "ilike matches strings only",
			query: models.Query{Filters: []models.Filter{{Column: "title", Operator: models.OpILike, Value: "%go%"}}},
			wantSQL: "SELECT data FROM records WHERE collection = $1 AND " +
				"(jsonb_typeof(data -> $2::text) = 'string' AND data ->> $3::text ILIKE $4) ORDER BY seq",
			wantArgs: []any{"social_posts", "title", "title", "%go%"},
		},
		{
			name:  "in uses containment",
			query: models.Query{Filters: []models.Filter{{Column: "platform", Operator: models.OpIn, Value: []any{"x", "linkedin"}}}},
			wantSQL: "SELECT data FROM records WHERE collection = $1 AND " +
				"(jsonb_typeof(data -> $2::text) NOT IN ('array', 'object') AND $3::jsonb @> (data -> $2::text)) ORDER BY seq",
			wantArgs: []any{"social_posts", "platform", `["x","linkedin"]`},
		},
		{
			name:  "is null covers missing keys",
			query: models.Query{Filters: []models.Filter{{Column: "published_at", Operator: models.OpIs, Value: nil}}},
			wantSQL: "SELECT data FROM records WHERE collection = $1 AND " +
				"(data -> $2::text IS NULL OR data -> $2::text = 'null'::jsonb) ORDER BY seq",
			wantArgs: []any{"social_posts", "published_at"},
		},
		{
			name:     "neq",
			query:    models.Query{Filters: []models.Filter{{Column: "status", Operator: models.OpNeq, Value: "draft"}}},
			wantSQL:  "SELECT data FROM records WHERE collection = $1 AND data -> $2::text <> $3::jsonb ORDER BY seq",
			wantArgs: []any{"social_posts", "status", `"draft"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := buildSelect(common.CollectionSocialPosts, tt.query)
			require.NoError(t, err)
			require.Equal(t, tt.wantSQL, sql)
			require.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestBuildSelect_InvalidQuery(t *testing.T) {
	_, _, err := buildSelect("posts", models.Query{Filters: []models.Filter{{Column: "x", Operator: "between", Value: 1}}})
	require.ErrorIs(t, err, common.ErrInvalidQuery)

	_, _, err = buildSelect("posts", models.Query{Filters: []models.Filter{{Column: "x", Operator: models.OpLike, Value: 3}}})
	require.ErrorIs(t, err, common.ErrInvalidQuery)
}
