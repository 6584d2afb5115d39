package blog

import (
	"errors"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrAmbiguousQuery = errors.New("search using only one parameter")
	ErrInvalidQuery   = errors.New("invalid search parameters")
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 20
)

var objectIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

type searchKind int

const (
	searchDefault searchKind = iota
	searchByID
	searchByViews
	searchByAuthor
	searchByTags
)

// searchQuery is the tagged result of classifying raw query parameters:
// exactly one retrieval strategy, already validated and normalized.
type searchQuery struct {
	kind    searchKind
	id      string
	viewsGT *int64
	viewsLT *int64
	author  string
	tags    []string
	limit   int
	skip    int
}

// classifySearch is the single validation-and-classification step in
// front of the search strategies. At most one recognized search
// parameter may be present; viewsgt and viewslt together form the one
// range strategy, not two parameters. limit and skip are pagination
// modifiers, never search parameters. When the single-parameter rule is
// ever relaxed, the switch below fixes precedence: id, views, author,
// tags.
func classifySearch(values url.Values) (searchQuery, error) {
	for key := range values {
		switch key {
		case "id", "viewsgt", "viewslt", "author", "tags", "limit", "skip":
		default:
			return searchQuery{}, ErrInvalidQuery
		}
	}

	recognized := 0
	if values.Has("id") {
		recognized++
	}
	if values.Has("viewsgt") || values.Has("viewslt") {
		recognized++
	}
	if values.Has("author") {
		recognized++
	}
	if values.Has("tags") {
		recognized++
	}
	if recognized > 1 {
		return searchQuery{}, ErrAmbiguousQuery
	}

	limit, skip, err := parsePagination(values)
	if err != nil {
		return searchQuery{}, err
	}
	q := searchQuery{kind: searchDefault, limit: limit, skip: skip}

	switch {
	case values.Has("id"):
		q.kind = searchByID
		q.id = strings.TrimSpace(values.Get("id"))
		if !objectIDPattern.MatchString(q.id) {
			return searchQuery{}, ErrInvalidQuery
		}
	case values.Has("viewsgt") || values.Has("viewslt"):
		q.kind = searchByViews
		if q.viewsGT, err = parseOptionalCount(values, "viewsgt"); err != nil {
			return searchQuery{}, err
		}
		if q.viewsLT, err = parseOptionalCount(values, "viewslt"); err != nil {
			return searchQuery{}, err
		}
	case values.Has("author"):
		q.kind = searchByAuthor
		q.author = strings.TrimSpace(values.Get("author"))
		if q.author == "" {
			return searchQuery{}, ErrInvalidQuery
		}
	case values.Has("tags"):
		q.kind = searchByTags
		for _, tag := range strings.Split(values.Get("tags"), ",") {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag != "" {
				q.tags = append(q.tags, tag)
			}
		}
		if len(q.tags) == 0 {
			return searchQuery{}, ErrInvalidQuery
		}
	}

	return q, nil
}

// parsePagination applies the defaults that keep an omitted parameter
// from ever meaning "unbounded": limit defaults to 10, capped at 20;
// skip defaults to 0 with no upper bound.
func parsePagination(values url.Values) (limit, skip int, err error) {
	limit = defaultSearchLimit
	if values.Has("limit") {
		limit, err = strconv.Atoi(values.Get("limit"))
		if err != nil || limit < 0 {
			return 0, 0, ErrInvalidQuery
		}
		if limit > maxSearchLimit {
			limit = maxSearchLimit
		}
	}

	if values.Has("skip") {
		skip, err = strconv.Atoi(values.Get("skip"))
		if err != nil || skip < 0 {
			return 0, 0, ErrInvalidQuery
		}
	}

	return limit, skip, nil
}

func parseOptionalCount(values url.Values, key string) (*int64, error) {
	if !values.Has(key) {
		return nil, nil
	}

	parsed, err := strconv.ParseInt(values.Get(key), 10, 64)
	if err != nil || parsed < 0 {
		return nil, ErrInvalidQuery
	}

	return &parsed, nil
}
