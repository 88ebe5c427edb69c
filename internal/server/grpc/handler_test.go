package grpc

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/socialhub/internal/common"
	"github.com/dmitrijs2005/socialhub/internal/models"
	"github.com/stretchr/testify/require"
)

func TestAuth_ExpiredTokenIsRefreshedThroughTheServer(t *testing.T) {
	env := startServer(t)
	ctx := context.Background()

	res, err := env.client.SignInWithPassword(ctx, "ann@example.com", "secret")
	require.NoError(t, err)
	require.Equal(t, "old", res.Session.AccessToken)

	s, err := env.client.GetSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, s)
	require.Equal(t, "good", s.AccessToken)
	require.Equal(t, "Ann", s.User.Metadata["full_name"])
	require.Equal(t, 1, env.users.refreshes)

	require.NoError(t, env.client.SignOut(ctx))
	require.Equal(t, []string{"r-good"}, env.users.signedOut)
}

func TestAuth_ErrorsKeepTheirKind(t *testing.T) {
	env := startServer(t)
	ctx := context.Background()

	_, err := env.client.SignInWithPassword(ctx, "ann@example.com", "wrong")
	require.ErrorIs(t, err, common.ErrInvalidCredentials)

	_, err = env.client.SignUp(ctx, "taken@example.com", "secret", models.SignUpOptions{})
	require.ErrorIs(t, err, common.ErrEmailTaken)

	res, err := env.client.SignUp(ctx, "new@example.com", "secret", models.SignUpOptions{Data: map[string]any{"full_name": "Nia"}})
	require.NoError(t, err)
	require.Equal(t, "Nia", res.User.Metadata["full_name"])

	require.NoError(t, env.client.ResetPasswordForEmail(ctx, "ann@example.com"))
	require.NoError(t, env.client.Ping(ctx))
}

func TestTables_RequireAccessToken(t *testing.T) {
	env := startServer(t)

	_, err := env.client.Insert(context.Background(), common.CollectionSocialPosts, models.Record{"title": "x"})
	require.ErrorIs(t, err, common.ErrUnauthorized)

	rows, err := env.store.Select(context.Background(), common.CollectionSocialPosts, models.Query{})
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestTables_RoundTrip(t *testing.T) {
	env := startServer(t)
	ctx := context.Background()
	_, err := env.client.SignInWithPassword(ctx, "ann@example.com", "secret")
	require.NoError(t, err)

	rec, err := env.client.Insert(ctx, common.CollectionSocialPosts, models.Record{"title": "hello", "user_id": "u1"})
	require.NoError(t, err)
	id := rec.ID()
	require.NotEmpty(t, id)

	_, err = env.client.Insert(ctx, common.CollectionSocialPosts, models.Record{"id": id})
	require.ErrorIs(t, err, common.ErrAlreadyExists)

	got, err := env.client.Single(ctx, common.CollectionSocialPosts, id)
	require.NoError(t, err)
	require.Equal(t, "hello", got["title"])

	updated, err := env.client.Update(ctx, common.CollectionSocialPosts, id, models.Record{"title": "bye"})
	require.NoError(t, err)
	require.Equal(t, "bye", updated["title"])

	rows, err := env.client.Select(ctx, common.CollectionSocialPosts, models.Query{
		Filters: []models.Filter{models.Eq("user_id", "u1")},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	require.NoError(t, env.client.Delete(ctx, common.CollectionSocialPosts, id))

	_, err = env.client.Single(ctx, common.CollectionSocialPosts, id)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestStorage_RoundTrip(t *testing.T) {
	env := startServer(t)
	ctx := context.Background()
	_, err := env.client.SignInWithPassword(ctx, "ann@example.com", "secret")
	require.NoError(t, err)

	res, err := env.client.Upload(ctx, "avatars", "u1/me.png", []byte{0x89, 'P', 'N', 'G'}, models.UploadOptions{ContentType: "image/png"})
	require.NoError(t, err)
	require.Equal(t, "u1/me.png", res.Path)

	data, ok := env.store.Object("avatars", "u1/me.png")
	require.True(t, ok)
	require.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data)

	files, err := env.client.List(ctx, "avatars", "u1")
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "me.png", files[0].Name)

	require.NoError(t, env.client.Remove(ctx, "avatars", []string{"u1/me.png"}))
	_, ok = env.store.Object("avatars", "u1/me.png")
	require.False(t, ok)
}

func TestSubscribe_ForwardsStoreChanges(t *testing.T) {
	env := startServer(t)
	ctx := context.Background()
	_, err := env.client.SignInWithPassword(ctx, "ann@example.com", "secret")
	require.NoError(t, err)

	got := make(chan models.ChangeEvent, 4)
	sub, err := env.client.Subscribe(ctx, "realtime-social_posts", common.CollectionSocialPosts, models.EventInsert, func(ev models.ChangeEvent) {
		got <- ev
	})
	require.NoError(t, err)
	defer func() { require.NoError(t, sub.Unsubscribe()) }()

	_, err = env.store.Insert(ctx, common.CollectionPostAnalytics, models.Record{"views": 1})
	require.NoError(t, err)
	rec, err := env.store.Insert(ctx, common.CollectionSocialPosts, models.Record{"title": "live"})
	require.NoError(t, err)

	ev := <-got
	require.Equal(t, models.EventInsert, ev.Type)
	require.Equal(t, common.CollectionSocialPosts, ev.Collection)
	require.Equal(t, rec.ID(), ev.New.ID())
}

func TestSubscribe_RejectsBadCollection(t *testing.T) {
	env := startServer(t)
	ctx := context.Background()
	_, err := env.client.SignInWithPassword(ctx, "ann@example.com", "secret")
	require.NoError(t, err)

	_, err = env.client.Subscribe(ctx, "realtime-x", "Bad Name", models.EventAll, func(models.ChangeEvent) {})
	require.ErrorIs(t, err, common.ErrInvalidCollection)
}
