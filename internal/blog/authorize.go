package blog

import (
	"context"
	"errors"
	"fmt"

	"blog-service/internal/auth"
)

var ErrNotAuthor = errors.New("not the author")

// UserResolver re-resolves a token identity to the current user record.
type UserResolver interface {
	GetByUsername(ctx context.Context, username string) (auth.User, error)
}

// BlogFinder is the slice of storage the authorizer needs.
type BlogFinder interface {
	GetByID(ctx context.Context, id string) (Blog, error)
}

// Authorizer gates every blog mutation: only the author may change a
// blog. It re-reads the user record for the identity's username rather
// than trusting the id embedded in the token, because the token is a
// login-time snapshot and authorization must reflect current state.
type Authorizer struct {
	blogs BlogFinder
	users UserResolver
}

func NewAuthorizer(blogs BlogFinder, users UserResolver) *Authorizer {
	return &Authorizer{blogs: blogs, users: users}
}

// Authorize returns the blog when identity is its author. An absent
// blog yields ErrNotFound before any ownership comparison: a missing
// resource is not owned by anyone, and callers report 404 rather than
// 403 for it.
func (a *Authorizer) Authorize(ctx context.Context, identity auth.Identity, blogID string) (Blog, error) {
	b, err := a.blogs.GetByID(ctx, blogID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Blog{}, err
		}
		return Blog{}, fmt.Errorf("load blog for authorization: %w", err)
	}

	user, err := a.users.GetByUsername(ctx, identity.Username)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return Blog{}, ErrNotAuthor
		}
		return Blog{}, fmt.Errorf("resolve author for authorization: %w", err)
	}

	if user.ID != b.AuthorID {
		return Blog{}, ErrNotAuthor
	}

	return b, nil
}
