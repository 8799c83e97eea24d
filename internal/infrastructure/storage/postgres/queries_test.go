package postgres

import (
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticlesPublisher/internal/domain"
)

func TestFindExistingQuery(t *testing.T) {
	stmt, args, err := findExistingQuery("s1", []string{"https://x/1"}, []string{"g1", "g2"}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, stmt, "FROM feed_items WHERE source_id = $1")
	assert.Contains(t, stmt, "url IN ($3)")
	assert.Contains(t, stmt, "guid IN ($5,$6)")
	assert.Equal(t, []any{"s1", "", "https://x/1", "", "g1", "g2"}, args)
}

func TestListArticlesQueryOrdersOldestFirst(t *testing.T) {
	stmt, args, err := listArticlesQuery(domain.PublishableStatuses(), 10).ToSql()
	require.NoError(t, err)

	assert.Contains(t, stmt, "WHERE status IN ($1,$2)")
	assert.Contains(t, stmt, "ORDER BY created_at, id LIMIT 10")
	assert.Equal(t, []any{"ready_to_publish", "generated_with_image"}, args)
}

func TestListGenerationsQueryOrdersByPriority(t *testing.T) {
	stmt, _, err := listGenerationsQuery(domain.GenerationPending, 5).ToSql()
	require.NoError(t, err)
	assert.Contains(t, stmt, "ORDER BY priority DESC, created_at, id LIMIT 5")
}

func TestLatestPublicationQuery(t *testing.T) {
	stmt, args, err := latestPublicationQuery("a1").ToSql()
	require.NoError(t, err)
	assert.Contains(t, stmt, "ORDER BY created_at DESC, id DESC LIMIT 1")
	assert.Equal(t, []any{"a1"}, args)
}

func TestCompareAndSetUpdateGuardsOnStatus(t *testing.T) {
	update := psql.Update("publications").Set("status", "processing").
		Where(sq.Eq{"id": "p1", "status": "pending"})
	stmt, args, err := update.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE publications SET status = $1 WHERE id = $2 AND status = $3", stmt)
	assert.Equal(t, []any{"processing", "p1", "pending"}, args)
}

func TestRowConversionRejectsUnknownStatus(t *testing.T) {
	_, err := dbPublication{ID: "p1", Status: "paused"}.toDomain()
	assert.ErrorIs(t, err, domain.ErrUnknownStatus)

	rule, err := dbRule{
		ID:         "r1",
		Conditions: []byte(`{"includeKeywords":["go"]}`),
		Actions:    []byte(`[{"kind":"generate_articles","payload":{"priority":2}}]`),
	}.toDomain()
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, rule.Conditions.IncludeKeywords)
	require.Len(t, rule.Actions, 1)
	assert.Equal(t, domain.GenerateArticles{Priority: 2}, rule.Actions[0])
}

func TestSchemaKeepsAttemptsOfDeletedItems(t *testing.T) {
	assert.NotContains(t, schema, "REFERENCES feed_items")
	assert.Contains(t, schema, "DROP CONSTRAINT IF EXISTS generation_attempts_feed_item_id_fkey")
	assert.Contains(t, schema, "feed_item_id  TEXT NOT NULL UNIQUE,")
}
