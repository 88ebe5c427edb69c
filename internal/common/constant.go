package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// Collections used by the dashboard.
const (
	CollectionProfiles         = "user_profiles"
	CollectionSocialAccounts   = "social_accounts"
	CollectionSocialPosts      = "social_posts"
	CollectionPostAnalytics    = "post_analytics"
	CollectionContentTemplates = "content_templates"
)

// Reserved record fields.
const (
	FieldID        = "id"
	FieldUserID    = "user_id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
	FieldStatus    = "status"
)

// PostStatusScheduled is the status forced onto posts created via SchedulePost.
const PostStatusScheduled = "scheduled"
