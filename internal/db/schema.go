package db

const schemaSQL = `
-- ===========================================================================
-- ENTITY REGISTRY
-- ===========================================================================

CREATE TABLE IF NOT EXISTS entities (
  unique_id TEXT PRIMARY KEY,
  entity_id TEXT NOT NULL UNIQUE,
  kind TEXT NOT NULL,
  name TEXT NOT NULL,
  created_at TEXT NOT NULL DEFAULT (datetime('now')),
  updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_entities_kind ON entities(kind);

-- ===========================================================================
-- MEDIA LIBRARY (media-source references resolve against this table)
-- ===========================================================================

CREATE TABLE IF NOT EXISTS media_items (
  item_id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  url TEXT NOT NULL,
  mime_type TEXT NOT NULL DEFAULT 'audio/mpeg',
  created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

-- ===========================================================================
-- AUDIT EVENTS
-- ===========================================================================

CREATE TABLE IF NOT EXISTS audit_events (
  event_id TEXT PRIMARY KEY,
  timestamp TEXT NOT NULL,
  type TEXT NOT NULL,
  level TEXT NOT NULL DEFAULT 'INFO',
  request_id TEXT,
  player_id TEXT,
  message TEXT NOT NULL,
  payload TEXT
);

CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp ON audit_events(timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_events_type ON audit_events(type, timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_events_player ON audit_events(player_id, timestamp);
`
