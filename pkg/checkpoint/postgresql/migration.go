package postgresql

// migrations returns the schema migrations for the checkpoints table,
// keyed by version.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS checkpoints (
				instance_id TEXT PRIMARY KEY,
				definition_id TEXT NOT NULL,
				status TEXT NOT NULL,
				state JSONB NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_checkpoints_definition_id ON checkpoints (definition_id);
			CREATE INDEX IF NOT EXISTS idx_checkpoints_status ON checkpoints (status);
		`,
	}
}
