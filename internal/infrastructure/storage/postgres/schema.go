package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS sources (
    id               TEXT PRIMARY KEY,
    user_id          TEXT NOT NULL DEFAULT '',
    name             TEXT NOT NULL,
    kind             TEXT NOT NULL,
    url              TEXT NOT NULL,
    config           JSONB NOT NULL DEFAULT '{}',
    last_fetched_at  TIMESTAMPTZ,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS feed_items (
    id            TEXT PRIMARY KEY,
    source_id     TEXT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
    guid          TEXT NOT NULL DEFAULT '',
    url           TEXT NOT NULL DEFAULT '',
    title         TEXT NOT NULL DEFAULT '',
    content       TEXT NOT NULL DEFAULT '',
    published_at  TIMESTAMPTZ,
    fetched_at    TIMESTAMPTZ NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL,
    processed     BOOLEAN NOT NULL DEFAULT FALSE,
    article_id    TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX IF NOT EXISTS feed_items_source_url_key ON feed_items (source_id, url) WHERE url <> '';
CREATE UNIQUE INDEX IF NOT EXISTS feed_items_source_guid_key ON feed_items (source_id, guid) WHERE guid <> '';

CREATE TABLE IF NOT EXISTS generation_attempts (
    id            TEXT PRIMARY KEY,
    feed_item_id  TEXT NOT NULL UNIQUE,
    source_id     TEXT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
    title         TEXT NOT NULL DEFAULT '',
    content       TEXT NOT NULL DEFAULT '',
    status        TEXT NOT NULL,
    article_id    TEXT NOT NULL DEFAULT '',
    retry_count   INTEGER NOT NULL DEFAULT 0,
    error         TEXT NOT NULL DEFAULT '',
    raw_response  TEXT NOT NULL DEFAULT '',
    priority      INTEGER NOT NULL DEFAULT 0,
    created_at    TIMESTAMPTZ NOT NULL,
    updated_at    TIMESTAMPTZ NOT NULL
);
ALTER TABLE generation_attempts DROP CONSTRAINT IF EXISTS generation_attempts_feed_item_id_fkey;
CREATE INDEX IF NOT EXISTS generation_attempts_status_idx ON generation_attempts (status, priority DESC, created_at);

CREATE TABLE IF NOT EXISTS articles (
    id                  TEXT PRIMARY KEY,
    source_id           TEXT NOT NULL DEFAULT '',
    feed_item_id        TEXT NOT NULL DEFAULT '',
    title               TEXT NOT NULL,
    slug                TEXT NOT NULL DEFAULT '',
    content             TEXT NOT NULL,
    excerpt             TEXT NOT NULL DEFAULT '',
    meta_description    TEXT NOT NULL DEFAULT '',
    tags                TEXT[] NOT NULL DEFAULT '{}',
    categories          TEXT[] NOT NULL DEFAULT '{}',
    status              TEXT NOT NULL,
    featured_media_id   BIGINT NOT NULL DEFAULT 0,
    featured_image_url  TEXT NOT NULL DEFAULT '',
    cms_post_id         BIGINT NOT NULL DEFAULT 0,
    cms_url             TEXT NOT NULL DEFAULT '',
    created_at          TIMESTAMPTZ NOT NULL,
    updated_at          TIMESTAMPTZ NOT NULL,
    published_at        TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS articles_status_idx ON articles (status, created_at);

CREATE TABLE IF NOT EXISTS featured_images (
    id                  TEXT PRIMARY KEY,
    article_id          TEXT NOT NULL UNIQUE REFERENCES articles(id) ON DELETE CASCADE,
    ai_prompt           TEXT NOT NULL DEFAULT '',
    filename            TEXT NOT NULL DEFAULT '',
    alt_text            TEXT NOT NULL DEFAULT '',
    url                 TEXT NOT NULL DEFAULT '',
    status              TEXT NOT NULL,
    wordpress_media_id  BIGINT NOT NULL DEFAULT 0,
    wordpress_url       TEXT NOT NULL DEFAULT '',
    error               TEXT NOT NULL DEFAULT '',
    created_at          TIMESTAMPTZ NOT NULL,
    updated_at          TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS publications (
    id            TEXT PRIMARY KEY,
    article_id    TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
    status        TEXT NOT NULL,
    retry_count   INTEGER NOT NULL DEFAULT 0,
    max_retries   INTEGER NOT NULL DEFAULT 0,
    started_at    TIMESTAMPTZ,
    completed_at  TIMESTAMPTZ,
    error         TEXT NOT NULL DEFAULT '',
    cms_post_id   BIGINT NOT NULL DEFAULT 0,
    created_at    TIMESTAMPTZ NOT NULL,
    updated_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS publications_article_idx ON publications (article_id, created_at DESC);

CREATE TABLE IF NOT EXISTS automation_rules (
    id          TEXT PRIMARY KEY,
    source_id   TEXT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
    name        TEXT NOT NULL DEFAULT '',
    enabled     BOOLEAN NOT NULL DEFAULT TRUE,
    conditions  JSONB NOT NULL DEFAULT '{}',
    actions     JSONB NOT NULL DEFAULT '[]'
);
`

// Migrate creates the tables and indexes when missing.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
