package blog

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBlogID = "64a1b2c3d4e5f6a7b8c9d0e1"

func TestClassifySearchSingleStrategies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		want  searchKind
	}{
		{"no params", "", searchDefault},
		{"id", "id=" + testBlogID, searchByID},
		{"views lower", "viewsgt=5", searchByViews},
		{"views upper", "viewslt=100", searchByViews},
		{"views range counts as one", "viewsgt=5&viewslt=100", searchByViews},
		{"author", "author=alice01", searchByAuthor},
		{"tags", "tags=go,rust", searchByTags},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			values, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			q, err := classifySearch(values)
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.kind)
		})
	}
}

func TestClassifySearchAmbiguous(t *testing.T) {
	t.Parallel()

	// Any two recognized parameters together are ambiguous, regardless
	// of which two.
	queries := []string{
		"id=" + testBlogID + "&author=alice01",
		"id=" + testBlogID + "&tags=go",
		"id=" + testBlogID + "&viewsgt=5",
		"viewslt=10&author=alice01",
		"tags=go,rust&author=alice01",
		"viewsgt=5&tags=go",
	}
	for _, raw := range queries {
		values, err := url.ParseQuery(raw)
		require.NoError(t, err)

		_, err = classifySearch(values)
		assert.ErrorIs(t, err, ErrAmbiguousQuery, "query %s", raw)
	}
}

func TestClassifySearchInvalid(t *testing.T) {
	t.Parallel()

	queries := []string{
		"id=short",
		"id=zzzzzzzzzzzzzzzzzzzzzzzz",
		"viewsgt=abc",
		"viewsgt=-1",
		"author=",
		"tags=",
		"tags=,,",
		"unknown=1",
		"limit=abc",
		"skip=-2",
	}
	for _, raw := range queries {
		values, err := url.ParseQuery(raw)
		require.NoError(t, err)

		_, err = classifySearch(values)
		assert.ErrorIs(t, err, ErrInvalidQuery, "query %s", raw)
	}
}

func TestClassifySearchPagination(t *testing.T) {
	t.Parallel()

	values, err := url.ParseQuery("tags=go")
	require.NoError(t, err)
	q, err := classifySearch(values)
	require.NoError(t, err)
	assert.Equal(t, 10, q.limit)
	assert.Equal(t, 0, q.skip)

	values, err = url.ParseQuery("tags=go&limit=15&skip=30")
	require.NoError(t, err)
	q, err = classifySearch(values)
	require.NoError(t, err)
	assert.Equal(t, 15, q.limit)
	assert.Equal(t, 30, q.skip)

	// limit is capped, skip is not.
	values, err = url.ParseQuery("tags=go&limit=500&skip=100000")
	require.NoError(t, err)
	q, err = classifySearch(values)
	require.NoError(t, err)
	assert.Equal(t, 20, q.limit)
	assert.Equal(t, 100000, q.skip)
}

func TestClassifySearchNormalizesTags(t *testing.T) {
	t.Parallel()

	values, err := url.ParseQuery("tags=Go, RUST ,go,")
	require.NoError(t, err)

	q, err := classifySearch(values)
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "rust", "go"}, q.tags)
}

func TestClassifySearchViewsBounds(t *testing.T) {
	t.Parallel()

	values, err := url.ParseQuery("viewsgt=5&viewslt=100")
	require.NoError(t, err)

	q, err := classifySearch(values)
	require.NoError(t, err)
	require.NotNil(t, q.viewsGT)
	require.NotNil(t, q.viewsLT)
	assert.EqualValues(t, 5, *q.viewsGT)
	assert.EqualValues(t, 100, *q.viewsLT)
}
