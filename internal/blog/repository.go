package blog

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound       = errors.New("blog not found")
	ErrDuplicateTitle = errors.New("duplicate blog title")
)

const pgUniqueViolation = "23505"

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// viewSelect joins author details into each row. The column list is the
// projection boundary: password_hash is never selected here.
const viewSelect = `
	SELECT
		b.id, b.title, b.content, b.views, b.created_at,
		u.id, u.username, u.email, u.image_ref,
		COALESCE((
			SELECT string_agg(bt.tag, ',' ORDER BY bt.tag)
			FROM blog_tags bt
			WHERE bt.blog_id = b.id
		), '')
	FROM blogs b
	JOIN users u ON u.id = b.author_id
`

func scanView(scanner interface{ Scan(...any) error }) (View, error) {
	var v View
	var tagsCSV string
	err := scanner.Scan(
		&v.ID, &v.Title, &v.Content, &v.Views, &v.CreatedAt,
		&v.Author.ID, &v.Author.Username, &v.Author.Email, &v.Author.ImageRef,
		&tagsCSV,
	)
	if err != nil {
		return View{}, err
	}

	v.Tags = []string{}
	if tagsCSV != "" {
		v.Tags = strings.Split(tagsCSV, ",")
	}

	return v, nil
}

func (r *Repository) Create(ctx context.Context, authorID string, input CreateInput) (Blog, error) {
	id, err := newObjectID()
	if err != nil {
		return Blog{}, err
	}

	b := Blog{
		ID:        id,
		Title:     input.Title,
		Content:   input.Content,
		Views:     input.Views,
		Tags:      input.Tags,
		AuthorID:  authorID,
		CreatedAt: time.Now().UTC(),
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Blog{}, fmt.Errorf("begin create blog tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO blogs (id, title, content, views, author_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, b.ID, b.Title, b.Content, b.Views, b.AuthorID, b.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return Blog{}, ErrDuplicateTitle
		}
		return Blog{}, fmt.Errorf("insert blog: %w", err)
	}

	if err := insertTags(ctx, tx, b.ID, b.Tags); err != nil {
		return Blog{}, err
	}

	if err := tx.Commit(); err != nil {
		return Blog{}, fmt.Errorf("commit create blog tx: %w", err)
	}

	return b, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (Blog, error) {
	var b Blog
	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, content, views, author_id, created_at
		FROM blogs
		WHERE id = $1
	`, id).Scan(&b.ID, &b.Title, &b.Content, &b.Views, &b.AuthorID, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Blog{}, ErrNotFound
		}
		return Blog{}, fmt.Errorf("query blog by id: %w", err)
	}

	return b, nil
}

func (r *Repository) GetView(ctx context.Context, id string) (View, error) {
	v, err := scanView(r.db.QueryRowContext(ctx, viewSelect+` WHERE b.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return View{}, ErrNotFound
		}
		return View{}, fmt.Errorf("query blog view: %w", err)
	}

	return v, nil
}

func (r *Repository) Update(ctx context.Context, id string, input UpdateInput) (View, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return View{}, fmt.Errorf("begin update blog tx: %w", err)
	}
	defer tx.Rollback()

	assignments := make([]string, 0, 2)
	args := []any{id}
	if input.Title != nil {
		args = append(args, *input.Title)
		assignments = append(assignments, "title = $"+strconv.Itoa(len(args)))
	}
	if input.Content != nil {
		args = append(args, *input.Content)
		assignments = append(assignments, "content = $"+strconv.Itoa(len(args)))
	}

	if len(assignments) > 0 {
		res, err := tx.ExecContext(ctx, `
			UPDATE blogs SET `+strings.Join(assignments, ", ")+` WHERE id = $1
		`, args...)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return View{}, ErrDuplicateTitle
			}
			return View{}, fmt.Errorf("update blog: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return View{}, fmt.Errorf("update blog rows affected: %w", err)
		}
		if affected == 0 {
			return View{}, ErrNotFound
		}
	}

	if input.Tags != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM blog_tags WHERE blog_id = $1`, id); err != nil {
			return View{}, fmt.Errorf("clear blog tags: %w", err)
		}
		if err := insertTags(ctx, tx, id, input.Tags); err != nil {
			return View{}, err
		}
	}

	v, err := scanView(tx.QueryRowContext(ctx, viewSelect+` WHERE b.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return View{}, ErrNotFound
		}
		return View{}, fmt.Errorf("reread updated blog: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return View{}, fmt.Errorf("commit update blog tx: %w", err)
	}

	return v, nil
}

// IncrementViews bumps the counter in a single UPDATE so concurrent
// pings never lose increments; atomicity belongs to the database.
func (r *Repository) IncrementViews(ctx context.Context, id string) (int64, error) {
	var views int64
	err := r.db.QueryRowContext(ctx, `
		UPDATE blogs
		SET views = views + 1
		WHERE id = $1
		RETURNING views
	`, id).Scan(&views)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("increment blog views: %w", err)
	}

	return views, nil
}

func (r *Repository) PeekViews(ctx context.Context, id string) (ViewCount, error) {
	var vc ViewCount
	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, views
		FROM blogs
		WHERE id = $1
	`, id).Scan(&vc.ID, &vc.Title, &vc.Views)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ViewCount{}, ErrNotFound
		}
		return ViewCount{}, fmt.Errorf("query blog views: %w", err)
	}

	return vc, nil
}

func (r *Repository) List(ctx context.Context, limit, skip int) ([]View, error) {
	return r.listViews(ctx, viewSelect+`
		ORDER BY b.created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, skip)
}

// ListByViews filters on the view counter; both bounds are exclusive
// and either may be absent.
func (r *Repository) ListByViews(ctx context.Context, gt, lt *int64, limit, skip int) ([]View, error) {
	conditions := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if gt != nil {
		args = append(args, *gt)
		conditions = append(conditions, "b.views > $"+strconv.Itoa(len(args)))
	}
	if lt != nil {
		args = append(args, *lt)
		conditions = append(conditions, "b.views < $"+strconv.Itoa(len(args)))
	}

	query := viewSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, limit)
	query += "\nORDER BY b.views DESC\nLIMIT $" + strconv.Itoa(len(args))
	args = append(args, skip)
	query += " OFFSET $" + strconv.Itoa(len(args))

	return r.listViews(ctx, query, args...)
}

func (r *Repository) ListByAuthor(ctx context.Context, authorID string, limit, skip int) ([]View, error) {
	return r.listViews(ctx, viewSelect+`
		WHERE b.author_id = $1
		ORDER BY b.created_at DESC
		LIMIT $2 OFFSET $3
	`, authorID, limit, skip)
}

// ListByTags returns blogs whose tag set intersects the given one.
func (r *Repository) ListByTags(ctx context.Context, tags []string, limit, skip int) ([]View, error) {
	if len(tags) == 0 {
		return []View{}, nil
	}

	placeholders := make([]string, len(tags))
	args := make([]any, 0, len(tags)+2)
	for i, tag := range tags {
		args = append(args, tag)
		placeholders[i] = "$" + strconv.Itoa(len(args))
	}
	args = append(args, limit, skip)

	query := viewSelect + `
		WHERE EXISTS (
			SELECT 1 FROM blog_tags bt
			WHERE bt.blog_id = b.id AND bt.tag IN (` + strings.Join(placeholders, ", ") + `)
		)
		ORDER BY b.created_at DESC
		LIMIT $` + strconv.Itoa(len(tags)+1) + ` OFFSET $` + strconv.Itoa(len(tags)+2)

	return r.listViews(ctx, query, args...)
}

func (r *Repository) DistinctTags(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT tag
		FROM blog_tags
		ORDER BY tag
	`)
	if err != nil {
		return nil, fmt.Errorf("query distinct tags: %w", err)
	}
	defer rows.Close()

	tags := make([]string, 0)
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}

	return tags, nil
}

func (r *Repository) listViews(ctx context.Context, query string, args ...any) ([]View, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query blog views: %w", err)
	}
	defer rows.Close()

	views := make([]View, 0)
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, fmt.Errorf("scan blog view: %w", err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blog views: %w", err)
	}

	return views, nil
}

func insertTags(ctx context.Context, tx *sql.Tx, blogID string, tags []string) error {
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO blog_tags (blog_id, tag)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, blogID, tag); err != nil {
			return fmt.Errorf("insert blog tag %q: %w", tag, err)
		}
	}
	return nil
}

// newObjectID mints a 24-character hex id. The public API validates
// exactly that shape, so blogs keep it instead of uuid strings.
func newObjectID() (string, error) {
	raw := make([]byte, 12)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate blog id: %w", err)
	}
	return hex.EncodeToString(raw), nil
}
