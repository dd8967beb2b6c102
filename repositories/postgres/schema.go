package postgres

// schemaDDL creates the event table and the indexes behind the list and
// summary queries. Every statement is idempotent.
const schemaDDL = `
	CREATE TABLE IF NOT EXISTS analytics_events (
		id UUID PRIMARY KEY,
		schema_version VARCHAR(32) NOT NULL,
		event_type VARCHAR(64) NOT NULL,
		provider VARCHAR(64) NOT NULL,
		endpoint VARCHAR(128) NOT NULL,
		status VARCHAR(16) NOT NULL,
		model VARCHAR(128) NOT NULL,
		prompt_tokens INTEGER NOT NULL DEFAULT 0,
		completion_tokens INTEGER NOT NULL DEFAULT 0,
		total_tokens INTEGER NOT NULL DEFAULT 0,
		latency_ms BIGINT NOT NULL DEFAULT 0,
		feature VARCHAR(255) NOT NULL,
		tenant_id VARCHAR(255) NOT NULL,
		customer_id VARCHAR(255),
		plan VARCHAR(255),
		environment VARCHAR(255),
		template_id VARCHAR(255),
		prompt_hash CHAR(64),
		response_hash CHAR(64),
		error_type VARCHAR(255),
		error_message TEXT,
		occurred_at TIMESTAMPTZ NOT NULL,
		received_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_analytics_events_tenant_occurred ON analytics_events(tenant_id, occurred_at DESC);
	CREATE INDEX IF NOT EXISTS idx_analytics_events_tenant_feature_model ON analytics_events(tenant_id, feature, model);
	CREATE INDEX IF NOT EXISTS idx_analytics_events_status ON analytics_events(status) WHERE status = 'failure';
`
