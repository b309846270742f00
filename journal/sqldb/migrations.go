package sqldb

import "fmt"

// MigrationUp returns the SQL to create the events table for the given
// configuration.
func MigrationUp(config Config) string {
	if config.Table == "" {
		config.Table = "readerpool_events"
	}
	if config.Dialect == "" {
		config.Dialect = DialectPostgres
	}

	var idCol, tsCol string
	switch config.Dialect {
	case DialectPostgres:
		idCol = "BIGSERIAL PRIMARY KEY"
		tsCol = "TIMESTAMPTZ NOT NULL"
	case DialectMySQL:
		idCol = "BIGINT AUTO_INCREMENT PRIMARY KEY"
		tsCol = "DATETIME(6) NOT NULL"
	default:
		idCol = "INTEGER PRIMARY KEY AUTOINCREMENT"
		tsCol = "TIMESTAMP NOT NULL"
	}

	return fmt.Sprintf(`-- Create events table
CREATE TABLE %s (
    id %s,
    event_type TEXT NOT NULL,
    pid INTEGER NOT NULL,
    generation_id TEXT NOT NULL,
    detail TEXT NOT NULL DEFAULT '',
    recorded_at %s
);

-- Index for reading recent events per generation
CREATE INDEX idx_%s_generation ON %s(generation_id, id DESC);
`, config.Table, idCol, tsCol, config.Table, config.Table)
}

// MigrationDown returns the SQL to drop the events table.
func MigrationDown(config Config) string {
	if config.Table == "" {
		config.Table = "readerpool_events"
	}
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;\n", config.Table)
}
