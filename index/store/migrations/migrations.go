package migrations

// DialectTemplate is used as the templating control for differing SQL syntax between our supported databases
type DialectTemplate struct {
	Binary            string
	IntegerPrimaryKey string
}

// MigrationSet provides a set of migrations that can be applied to a database.
type MigrationSet []MigrationData

// MigrationData provides the data for a single migration, including Up and Down SQL.
// Templated values are supported and will be substituted for database-specific values
// before the migrations are applied.
type MigrationData struct {
	SequenceNumber int64
	Name           string
	UpSQL          string
	DownSQL        string
}

// ArchivindexMigrations is the set of migrations to set up the capture index database.
var ArchivindexMigrations = MigrationSet{
	{
		SequenceNumber: 1,
		Name:           "create_captures",
		UpSQL: `CREATE TABLE IF NOT EXISTS captures
				(
					capture_urlkey text NOT NULL,
					capture_timestamp text NOT NULL,
					capture_original text NOT NULL,
					capture_mimetype text NOT NULL,
					capture_statuscode integer NOT NULL,
					capture_digest text NOT NULL,
					capture_digest_valid bool NOT NULL,
					capture_length integer,
					capture_redirect text,
					capture_robotflags text,
					capture_offset bigint,
					capture_filename text,
					capture_created_at timestamp without time zone NOT NULL,
					capture_stored bool NOT NULL DEFAULT false,
					PRIMARY KEY (capture_urlkey, capture_timestamp, capture_digest)
				);
				CREATE INDEX IF NOT EXISTS captures_digest_index ON captures(capture_digest);
				CREATE INDEX IF NOT EXISTS captures_unstored_index ON captures(capture_stored)
				WHERE capture_digest_valid AND NOT capture_stored;`,
		DownSQL: `DROP INDEX captures_unstored_index;
				  DROP INDEX captures_digest_index;
				  DROP TABLE captures;`,
	},
	{
		SequenceNumber: 2,
		Name:           "create_ingestions",
		UpSQL: `CREATE TABLE IF NOT EXISTS ingestions
				(
					ingestion_id {{ .IntegerPrimaryKey }},
					ingestion_source text NOT NULL,
					ingestion_source_digest {{ .Binary }},
					ingestion_item_count integer NOT NULL,
					ingestion_created_at timestamp without time zone NOT NULL
				);
				CREATE INDEX IF NOT EXISTS ingestions_source_index ON ingestions(ingestion_source);`,
		DownSQL: `DROP INDEX ingestions_source_index;
				  DROP TABLE ingestions;`,
	},
}
