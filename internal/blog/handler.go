package blog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/go-playground/validator/v10"

	"blog-service/internal/auth"
	"blog-service/internal/observability"
)

const maxJSONBodyBytes = 1 << 20

// Store is the persistence collaborator the handlers consume.
type Store interface {
	BlogFinder
	Create(ctx context.Context, authorID string, input CreateInput) (Blog, error)
	GetView(ctx context.Context, id string) (View, error)
	Update(ctx context.Context, id string, input UpdateInput) (View, error)
	IncrementViews(ctx context.Context, id string) (int64, error)
	PeekViews(ctx context.Context, id string) (ViewCount, error)
	List(ctx context.Context, limit, skip int) ([]View, error)
	ListByViews(ctx context.Context, gt, lt *int64, limit, skip int) ([]View, error)
	ListByAuthor(ctx context.Context, authorID string, limit, skip int) ([]View, error)
	ListByTags(ctx context.Context, tags []string, limit, skip int) ([]View, error)
	DistinctTags(ctx context.Context) ([]string, error)
}

type Handler struct {
	store      Store
	users      UserResolver
	authorizer *Authorizer
	logger     *observability.Logger
	validate   *validator.Validate
}

func NewHandler(store Store, users UserResolver, logger *observability.Logger) *Handler {
	return &Handler{
		store:      store,
		users:      users,
		authorizer: NewAuthorizer(store, users),
		logger:     logger,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

type createRequest struct {
	Title   string   `json:"title" validate:"required,min=3,max=255"`
	Content string   `json:"content" validate:"required,min=10"`
	Views   int64    `json:"views" validate:"gte=0"`
	Tags    []string `json:"tags" validate:"required"`
}

type updateRequest struct {
	ID      string   `json:"id" validate:"required,len=24,hexadecimal"`
	Title   *string  `json:"title" validate:"omitempty,min=3,max=255"`
	Content *string  `json:"content" validate:"omitempty,min=10"`
	Tags    []string `json:"tags"`
}

// Create adds a blog owned by the authenticated user. The author id is
// re-resolved from storage, not taken from the token, so a stale token
// of a deleted user cannot post.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusForbidden, "authentication required")
		return
	}

	var body createRequest
	if !h.decode(w, r, &body) {
		return
	}

	user, err := h.users.GetByUsername(r.Context(), identity.Username)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeError(w, http.StatusForbidden, "You are not authorised to post blogs. Please signup.")
			return
		}
		h.internalError(w, "create_blog_resolve_author_failed", err)
		return
	}

	b, err := h.store.Create(r.Context(), user.ID, CreateInput{
		Title:   strings.TrimSpace(body.Title),
		Content: body.Content,
		Views:   body.Views,
		Tags:    normalizeTags(body.Tags),
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateTitle) {
			writeError(w, http.StatusConflict, "Duplicate blog with same title exists.")
			return
		}
		h.internalError(w, "create_blog_failed", err)
		return
	}

	h.logger.Info("blog_created", map[string]any{"blog_id": b.ID, "author": user.Username})
	writeMessage(w, http.StatusOK, "Added Blog successfully.", map[string]any{
		"_id":   b.ID,
		"title": b.Title,
	})
}

// Update applies a partial patch after the ownership check. authorId
// is not patchable; a blog never changes author.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusForbidden, "authentication required")
		return
	}

	var body updateRequest
	if !h.decode(w, r, &body) {
		return
	}
	if body.Title == nil && body.Content == nil && body.Tags == nil {
		writeError(w, http.StatusBadRequest, "at least one of title, content or tags is required")
		return
	}

	if _, err := h.authorizer.Authorize(r.Context(), identity, body.ID); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, fmt.Sprintf("Blog with ID: %s not found.", body.ID))
		case errors.Is(err, ErrNotAuthor):
			writeError(w, http.StatusForbidden, "You don't have permission to modify this blog.")
		default:
			h.internalError(w, "update_blog_authorize_failed", err)
		}
		return
	}

	input := UpdateInput{Title: body.Title, Content: body.Content}
	if body.Tags != nil {
		input.Tags = normalizeTags(body.Tags)
	}

	v, err := h.store.Update(r.Context(), body.ID, input)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, fmt.Sprintf("Blog with ID: %s not found.", body.ID))
		case errors.Is(err, ErrDuplicateTitle):
			writeError(w, http.StatusConflict, "Duplicate blog with same title exists.")
		default:
			h.internalError(w, "update_blog_failed", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  http.StatusOK,
		"result":  v,
		"message": "Updated Blog success.",
	})
}

// UpdateHint answers accidental GETs on the update route.
func (h *Handler) UpdateHint(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusBadRequest, "Bad request: use the PATCH method.")
}

// Search routes the request to exactly one retrieval strategy chosen by
// the single recognized query parameter.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q, err := classifySearch(r.URL.Query())
	if err != nil {
		if errors.Is(err, ErrAmbiguousQuery) {
			writeError(w, http.StatusBadRequest, "Bad request: search using only one parameter")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid search parameters.")
		return
	}

	h.logger.Debug("blog_search", map[string]any{"query": r.URL.RawQuery})

	switch q.kind {
	case searchByID:
		v, err := h.store.GetView(r.Context(), q.id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusNotFound, fmt.Sprintf("Blog with _id:%s not found.", q.id))
				return
			}
			h.internalError(w, "search_by_id_failed", err)
			return
		}
		writeResult(w, http.StatusOK, v)

	case searchByViews:
		views, err := h.store.ListByViews(r.Context(), q.viewsGT, q.viewsLT, q.limit, q.skip)
		if err != nil {
			h.internalError(w, "search_by_views_failed", err)
			return
		}
		writeResult(w, http.StatusOK, views)

	case searchByAuthor:
		user, err := h.users.GetByUsername(r.Context(), q.author)
		if err != nil {
			if errors.Is(err, auth.ErrUserNotFound) {
				writeError(w, http.StatusNotFound, "User not found.")
				return
			}
			h.internalError(w, "search_by_author_failed", err)
			return
		}
		views, err := h.store.ListByAuthor(r.Context(), user.ID, q.limit, q.skip)
		if err != nil {
			h.internalError(w, "search_by_author_failed", err)
			return
		}
		writeResult(w, http.StatusOK, views)

	case searchByTags:
		views, err := h.store.ListByTags(r.Context(), q.tags, q.limit, q.skip)
		if err != nil {
			h.internalError(w, "search_by_tags_failed", err)
			return
		}
		writeResult(w, http.StatusOK, views)

	default:
		views, err := h.store.List(r.Context(), q.limit, q.skip)
		if err != nil {
			h.internalError(w, "default_search_failed", err)
			return
		}
		writeResult(w, http.StatusOK, views)
	}
}

// List serves the bare collection route: the default listing when no
// query string is present, a 400 otherwise.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if len(r.URL.Query()) > 0 {
		writeError(w, http.StatusBadRequest, "Bad request: no query parameters expected")
		return
	}

	views, err := h.store.List(r.Context(), defaultSearchLimit, 0)
	if err != nil {
		h.internalError(w, "list_blogs_failed", err)
		return
	}

	writeResult(w, http.StatusOK, views)
}

// Get reads a single blog and counts the navigation as a view. The
// increment and the read are separate statements; the count shown is
// the one the increment returned.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !objectIDPattern.MatchString(id) {
		writeError(w, http.StatusBadRequest, "Bad request: _id length must be 24")
		return
	}

	views, err := h.store.IncrementViews(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Blog with _id:%s not found.", id))
			return
		}
		h.internalError(w, "increment_views_failed", err)
		return
	}

	v, err := h.store.GetView(r.Context(), id)
	if err != nil {
		h.internalError(w, "get_blog_failed", err)
		return
	}

	writeMessage(w, http.StatusOK, fmt.Sprintf("Blog views: %d", views), map[string]any{
		"result": v,
	})
}

// Views returns the view counter. With the ping parameter present the
// counter is incremented first; without it this is a read-only peek.
func (h *Handler) Views(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !objectIDPattern.MatchString(id) {
		writeError(w, http.StatusBadRequest, "Bad request: _id length must be 24")
		return
	}

	if !r.URL.Query().Has("ping") {
		vc, err := h.store.PeekViews(r.Context(), id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusNotFound, fmt.Sprintf("Blog with _id:%s not found.", id))
				return
			}
			h.internalError(w, "peek_views_failed", err)
			return
		}
		writeResult(w, http.StatusOK, vc)
		return
	}

	views, err := h.store.IncrementViews(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Blog with _id:%s not found.", id))
			return
		}
		h.internalError(w, "increment_views_failed", err)
		return
	}

	vc, err := h.store.PeekViews(r.Context(), id)
	if err != nil {
		h.internalError(w, "peek_views_failed", err)
		return
	}

	writeMessage(w, http.StatusOK, fmt.Sprintf("Added one view: %d", views), map[string]any{
		"result": vc,
	})
}

// Tags lists every distinct tag in use. This read is best effort: a
// storage failure degrades to an empty list instead of failing the
// caller, and the error goes to the log.
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.store.DistinctTags(r.Context())
	if err != nil {
		h.logger.Error("distinct_tags_failed", map[string]any{"error": err.Error()})
		writeResult(w, http.StatusOK, []string{})
		return
	}

	writeResult(w, http.StatusOK, tags)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}

	return true
}

func (h *Handler) internalError(w http.ResponseWriter, event string, err error) {
	sentry.CaptureException(err)
	h.logger.Error(event, map[string]any{"error": err.Error()})
	writeError(w, http.StatusInternalServerError, "Server Internal error.")
}

func normalizeTags(tags []string) []string {
	normalized := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		normalized = append(normalized, tag)
	}
	return normalized
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return strings.ToLower(fe.Field()) + " failed validation on '" + fe.Tag() + "'"
	}
	return "invalid request body"
}
