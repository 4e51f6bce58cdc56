package db

// SchemaSQL contains the database schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- RECOMMENDATION TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS recommendation SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS user_query ON recommendation TYPE string;
    DEFINE FIELD IF NOT EXISTS recommendations ON recommendation TYPE array<object> FLEXIBLE;
    -- Note: Must REMOVE then DEFINE to ensure FLEXIBLE is set (IF NOT EXISTS won't update existing field)
    REMOVE FIELD IF EXISTS recommendations.* ON recommendation;
    DEFINE FIELD recommendations.* ON recommendation TYPE object FLEXIBLE;  -- movie objects, optional keys
    DEFINE FIELD IF NOT EXISTS user_id ON recommendation TYPE string DEFAULT "anonymous";
    DEFINE FIELD IF NOT EXISTS created_at ON recommendation TYPE datetime DEFAULT time::now() READONLY;

    DEFINE INDEX IF NOT EXISTS recommendation_user_created ON recommendation FIELDS user_id, created_at;

    -- ==========================================================================
    -- SEARCH HISTORY TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS search_history SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS user_id ON search_history TYPE string;
    DEFINE FIELD IF NOT EXISTS query ON search_history TYPE string;
    DEFINE FIELD IF NOT EXISTS timestamp ON search_history TYPE datetime DEFAULT time::now() READONLY;

    DEFINE INDEX IF NOT EXISTS search_history_user_timestamp ON search_history FIELDS user_id, timestamp;
`
