package blog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blog-service/internal/auth"
)

type fakeUsers struct {
	byUsername map[string]auth.User
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (auth.User, error) {
	user, ok := f.byUsername[username]
	if !ok {
		return auth.User{}, auth.ErrUserNotFound
	}
	return user, nil
}

type fakeBlogFinder struct {
	blogs map[string]Blog
}

func (f *fakeBlogFinder) GetByID(_ context.Context, id string) (Blog, error) {
	b, ok := f.blogs[id]
	if !ok {
		return Blog{}, ErrNotFound
	}
	return b, nil
}

func authorizerFixture() (*Authorizer, auth.Identity, auth.Identity) {
	author := auth.User{ID: "user-1", Username: "alice01", Email: "a@x.com"}
	other := auth.User{ID: "user-2", Username: "bob", Email: "b@x.com"}

	users := &fakeUsers{byUsername: map[string]auth.User{
		author.Username: author,
		other.Username:  other,
	}}
	blogs := &fakeBlogFinder{blogs: map[string]Blog{
		testBlogID: {ID: testBlogID, Title: "Hello", AuthorID: author.ID},
	}}

	return NewAuthorizer(blogs, users), author.Identity(), other.Identity()
}

func TestAuthorizeAuthor(t *testing.T) {
	t.Parallel()

	authorizer, author, _ := authorizerFixture()

	b, err := authorizer.Authorize(context.Background(), author, testBlogID)
	require.NoError(t, err)
	assert.Equal(t, testBlogID, b.ID)
}

func TestAuthorizeNonAuthor(t *testing.T) {
	t.Parallel()

	authorizer, _, other := authorizerFixture()

	_, err := authorizer.Authorize(context.Background(), other, testBlogID)
	assert.ErrorIs(t, err, ErrNotAuthor)
}

func TestAuthorizeMissingBlogBeforeOwnership(t *testing.T) {
	t.Parallel()

	authorizer, _, _ := authorizerFixture()

	// An identity unknown to the user store would be denied, but an
	// absent blog must report not-found first.
	ghost := auth.Identity{ID: "user-9", Username: "ghost"}
	_, err := authorizer.Authorize(context.Background(), ghost, "ffffffffffffffffffffffff")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAuthorizeUnknownIdentity(t *testing.T) {
	t.Parallel()

	authorizer, _, _ := authorizerFixture()

	ghost := auth.Identity{ID: "user-9", Username: "ghost"}
	_, err := authorizer.Authorize(context.Background(), ghost, testBlogID)
	assert.ErrorIs(t, err, ErrNotAuthor)
}

func TestAuthorizeUsesCurrentUserID(t *testing.T) {
	t.Parallel()

	// The token may carry a stale user id; authorization compares the
	// re-resolved record, so a stale id with the right username passes.
	authorizer, author, _ := authorizerFixture()
	stale := auth.Identity{ID: "old-id", Username: author.Username, Email: author.Email}

	_, err := authorizer.Authorize(context.Background(), stale, testBlogID)
	assert.NoError(t, err)
}
