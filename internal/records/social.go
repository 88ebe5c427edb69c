package records

import (
	"context"

	"github.com/dmitrijs2005/socialhub/internal/common"
	"github.com/dmitrijs2005/socialhub/internal/models"
)

// DefaultPostsLimit is used by GetPosts when no positive limit is given.
const DefaultPostsLimit = 20

var newestFirst = &models.OrderBy{Column: common.FieldCreatedAt, Ascending: false}

func ownedBy(userID string) []models.Filter {
	return []models.Filter{models.Eq(common.FieldUserID, userID)}
}

// GetConnectedAccounts lists the user's social accounts, newest first.
func (s *Service) GetConnectedAccounts(ctx context.Context, userID string) ([]models.Record, error) {
	return s.Read(ctx, common.CollectionSocialAccounts, models.Query{Filters: ownedBy(userID), OrderBy: newestFirst})
}

// GetPosts lists up to limit of the user's posts, newest first.
func (s *Service) GetPosts(ctx context.Context, userID string, limit int) ([]models.Record, error) {
	if limit <= 0 {
		limit = DefaultPostsLimit
	}
	return s.Read(ctx, common.CollectionSocialPosts, models.Query{Filters: ownedBy(userID), OrderBy: newestFirst, Limit: limit})
}

// GetAnalytics lists the user's analytics rows in the store's default order.
func (s *Service) GetAnalytics(ctx context.Context, userID string) ([]models.Record, error) {
	return s.Read(ctx, common.CollectionPostAnalytics, models.Query{Filters: ownedBy(userID)})
}

func (s *Service) GetContentTemplates(ctx context.Context, userID string) ([]models.Record, error) {
	return s.Read(ctx, common.CollectionContentTemplates, models.Query{Filters: ownedBy(userID), OrderBy: newestFirst})
}

// SchedulePost creates a post whose status is always "scheduled", whatever
// post carries. post itself is left untouched.
func (s *Service) SchedulePost(ctx context.Context, post models.Record) (models.Record, error) {
	fields := post.Merge(models.Record{common.FieldStatus: common.PostStatusScheduled})
	return s.Create(ctx, common.CollectionSocialPosts, fields)
}
