package db

import "fmt"

// schemaTemplate is the database schema initialization SQL. The %d
// placeholders are the embedding dimension for the two HNSW indexes.
const schemaTemplate = `
    -- ==========================================================================
    -- LINK TABLE (document-level nodes)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS link SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS url ON link TYPE string;
    DEFINE FIELD IF NOT EXISTS title ON link TYPE string;
    DEFINE FIELD IF NOT EXISTS description ON link TYPE string DEFAULT "";
    DEFINE FIELD IF NOT EXISTS content ON link TYPE string DEFAULT "";
    DEFINE FIELD IF NOT EXISTS embedding ON link TYPE array<float>;
    DEFINE FIELD IF NOT EXISTS forge_score ON link TYPE float DEFAULT 0.0
        ASSERT $value >= 0.0 AND $value <= 1.0;
    DEFINE FIELD IF NOT EXISTS content_type ON link TYPE string DEFAULT "article";
    DEFINE FIELD IF NOT EXISTS quality ON link TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created_at ON link TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON link TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS link_url ON link FIELDS url UNIQUE;
    DEFINE INDEX IF NOT EXISTS link_embedding ON link FIELDS embedding HNSW DIMENSION %d DIST COSINE TYPE F32;
    DEFINE ANALYZER IF NOT EXISTS link_analyzer TOKENIZERS class FILTERS lowercase, ascii, snowball(english);
    DEFINE INDEX IF NOT EXISTS link_title_ft ON link FIELDS title FULLTEXT ANALYZER link_analyzer BM25;
    DEFINE INDEX IF NOT EXISTS link_desc_ft ON link FIELDS description FULLTEXT ANALYZER link_analyzer BM25;

    -- ==========================================================================
    -- CHUNK TABLE (passage-level nodes)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS chunk SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS link ON chunk TYPE record<link>;
    DEFINE FIELD IF NOT EXISTS content ON chunk TYPE string;
    DEFINE FIELD IF NOT EXISTS position ON chunk TYPE int;
    DEFINE FIELD IF NOT EXISTS embedding ON chunk TYPE array<float>;
    DEFINE FIELD IF NOT EXISTS created_at ON chunk TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS chunk_link ON chunk FIELDS link;
    DEFINE INDEX IF NOT EXISTS chunk_embedding ON chunk FIELDS embedding HNSW DIMENSION %d DIST COSINE TYPE F32;

    -- ==========================================================================
    -- CATEGORY / TAG TABLES + RELATIONS
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS category SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS name ON category TYPE string;
    DEFINE INDEX IF NOT EXISTS category_name ON category FIELDS name UNIQUE;

    DEFINE TABLE IF NOT EXISTS tag SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS name ON tag TYPE string;
    DEFINE INDEX IF NOT EXISTS tag_name ON tag FIELDS name UNIQUE;

    DEFINE TABLE IF NOT EXISTS categorized_as TYPE RELATION IN link OUT category SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS created_at ON categorized_as TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS unique_key ON categorized_as VALUE <string>string::concat(<string>in, <string>out);
    DEFINE INDEX IF NOT EXISTS unique_categorized_as ON categorized_as FIELDS unique_key UNIQUE;

    DEFINE TABLE IF NOT EXISTS tagged_with TYPE RELATION IN link OUT tag SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS created_at ON tagged_with TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS unique_key ON tagged_with VALUE <string>string::concat(<string>in, <string>out);
    DEFINE INDEX IF NOT EXISTS unique_tagged_with ON tagged_with FIELDS unique_key UNIQUE;

    -- ==========================================================================
    -- QUEUE_JOB TABLE (durable ingestion work queue)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS queue_job SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS payload_kind ON queue_job TYPE string
        ASSERT $value INSIDE ["url", "file"];
    DEFINE FIELD IF NOT EXISTS payload_key ON queue_job TYPE string;
    DEFINE FIELD IF NOT EXISTS payload_ref ON queue_job TYPE string;
    DEFINE FIELD IF NOT EXISTS status ON queue_job TYPE string
        ASSERT $value INSIDE ["queued", "processing", "completed", "failed", "dead_letter"];
    DEFINE FIELD IF NOT EXISTS attempts ON queue_job TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS max_attempts ON queue_job TYPE int DEFAULT 3;
    DEFINE FIELD IF NOT EXISTS lease_owner ON queue_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS lease_expires_at ON queue_job TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS last_error ON queue_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created_at ON queue_job TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON queue_job TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS queue_job_status ON queue_job FIELDS status;
    DEFINE INDEX IF NOT EXISTS queue_job_payload_key ON queue_job FIELDS payload_key;
    DEFINE INDEX IF NOT EXISTS queue_job_created ON queue_job FIELDS created_at;
`

// SchemaSQL returns the schema initialization SQL for the given
// embedding dimension.
func SchemaSQL(embeddingDim int) string {
	return fmt.Sprintf(schemaTemplate, embeddingDim, embeddingDim)
}
