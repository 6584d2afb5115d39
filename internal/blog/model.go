package blog

import (
	"time"

	"blog-service/internal/auth"
)

type Blog struct {
	ID        string
	Title     string
	Content   string
	Views     int64
	Tags      []string
	AuthorID  string
	CreatedAt time.Time
}

// View is the outward projection of a blog with author details joined
// in. The author is an auth.UserView, so the credential digest never
// enters this type; that projection is a contract, not an optimization.
type View struct {
	ID        string        `json:"_id"`
	Title     string        `json:"title"`
	Content   string        `json:"content"`
	Views     int64         `json:"views"`
	Tags      []string      `json:"tags"`
	Author    auth.UserView `json:"author"`
	CreatedAt time.Time     `json:"createdAt"`
}

// ViewCount is the slim shape returned by the view-counter endpoint.
type ViewCount struct {
	ID    string `json:"_id"`
	Title string `json:"title"`
	Views int64  `json:"views"`
}

type CreateInput struct {
	Title   string
	Content string
	Views   int64
	Tags    []string
}

// UpdateInput is a partial patch; nil fields are left untouched. Tags
// replace the whole tag set when non-nil.
type UpdateInput struct {
	Title   *string
	Content *string
	Tags    []string
}
