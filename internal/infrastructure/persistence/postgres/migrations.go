package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: LEDGER STATE
// ══════════════════════════════════════════════════════════════════════════════

// Unsigned 32-bit counters are stored as BIGINT with range checks; 128-bit
// fixed-point amounts and 64-bit balances as NUMERIC.
const migration001Up = `
-- Migration: ledger state
-- Version: 001

CREATE TABLE IF NOT EXISTS ledger_config (
    id SMALLINT PRIMARY KEY DEFAULT 1,
    authority TEXT NOT NULL,
    backend_signer TEXT NOT NULL,
    xp_mint TEXT NOT NULL,
    current_season BIGINT NOT NULL,
    initialized_at TIMESTAMP WITH TIME ZONE NOT NULL,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL,

    CONSTRAINT singleton CHECK (id = 1),
    CONSTRAINT valid_season CHECK (current_season BETWEEN 1 AND 4294967295)
);

CREATE TABLE IF NOT EXISTS courses (
    course_id VARCHAR(32) PRIMARY KEY,
    creator TEXT NOT NULL,
    content_ref TEXT NOT NULL DEFAULT '',
    lesson_count BIGINT NOT NULL,
    xp_per_lesson BIGINT NOT NULL,
    difficulty SMALLINT NOT NULL,
    track_id BIGINT NOT NULL DEFAULT 0,
    track_level BIGINT NOT NULL DEFAULT 0,
    prerequisite VARCHAR(32) NOT NULL DEFAULT '',
    creator_reward_xp BIGINT NOT NULL DEFAULT 0,
    min_completions_for_reward BIGINT NOT NULL DEFAULT 0,
    completion_count BIGINT NOT NULL DEFAULT 0,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL,

    CONSTRAINT valid_lesson_count CHECK (lesson_count BETWEEN 1 AND 4294967295),
    CONSTRAINT valid_completion_count CHECK (completion_count BETWEEN 0 AND 4294967295)
);

CREATE INDEX IF NOT EXISTS idx_courses_track ON courses(track_id, course_id);
CREATE INDEX IF NOT EXISTS idx_courses_active ON courses(course_id) WHERE is_active;

CREATE TABLE IF NOT EXISTS enrollments (
    course_id VARCHAR(32) NOT NULL REFERENCES courses(course_id),
    learner TEXT NOT NULL,
    lesson_bits BYTEA NOT NULL,
    enrolled_at TIMESTAMP WITH TIME ZONE NOT NULL,
    completed_at TIMESTAMP WITH TIME ZONE,
    credential_asset TEXT,

    PRIMARY KEY (course_id, learner)
);

CREATE INDEX IF NOT EXISTS idx_enrollments_learner ON enrollments(learner, course_id);

CREATE TABLE IF NOT EXISTS learner_profiles (
    learner TEXT PRIMARY KEY,
    total_xp BIGINT NOT NULL DEFAULT 0,
    season BIGINT NOT NULL,
    season_xp BIGINT NOT NULL DEFAULT 0,
    xp_earned_today BIGINT NOT NULL DEFAULT 0,
    last_activity TIMESTAMP WITH TIME ZONE NOT NULL,
    current_streak BIGINT NOT NULL DEFAULT 0,
    longest_streak BIGINT NOT NULL DEFAULT 0,
    streak_freezes BIGINT NOT NULL DEFAULT 0,
    achievement_count BIGINT NOT NULL DEFAULT 0,
    courses_completed BIGINT NOT NULL DEFAULT 0,
    referred_by TEXT,
    referral_count BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL,

    CONSTRAINT valid_total_xp CHECK (total_xp BETWEEN 0 AND 4294967295),
    CONSTRAINT valid_streak_freezes CHECK (streak_freezes BETWEEN 0 AND 3),
    CONSTRAINT not_self_referred CHECK (referred_by IS NULL OR referred_by <> learner)
);

CREATE TABLE IF NOT EXISTS minter_roles (
    minter TEXT PRIMARY KEY,
    label VARCHAR(32) NOT NULL DEFAULT '',
    max_xp_per_call NUMERIC(40,0) NOT NULL,
    total_xp_minted NUMERIC(40,0) NOT NULL DEFAULT 0,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL,

    CONSTRAINT valid_amounts CHECK (max_xp_per_call >= 0 AND total_xp_minted >= 0)
);

CREATE TABLE IF NOT EXISTS achievement_types (
    achievement_id VARCHAR(32) PRIMARY KEY,
    name TEXT NOT NULL,
    metadata_uri TEXT NOT NULL DEFAULT '',
    collection TEXT NOT NULL DEFAULT '',
    max_supply BIGINT NOT NULL,
    current_supply BIGINT NOT NULL DEFAULT 0,
    xp_reward BIGINT NOT NULL DEFAULT 0,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL,

    CONSTRAINT supply_within_max CHECK (max_supply >= 1 AND current_supply <= max_supply)
);

-- One receipt per (achievement, recipient); the primary key makes a second
-- grant fail inside the transaction that tried it.
CREATE TABLE IF NOT EXISTS achievement_receipts (
    achievement_id VARCHAR(32) NOT NULL REFERENCES achievement_types(achievement_id),
    recipient TEXT NOT NULL,
    asset TEXT NOT NULL,
    granted_by TEXT NOT NULL,
    awarded_at TIMESTAMP WITH TIME ZONE NOT NULL,

    PRIMARY KEY (achievement_id, recipient)
);

CREATE INDEX IF NOT EXISTS idx_receipts_recipient ON achievement_receipts(recipient, awarded_at);
`

const migration001Down = `
DROP TABLE IF EXISTS achievement_receipts;
DROP TABLE IF EXISTS achievement_types;
DROP TABLE IF EXISTS minter_roles;
DROP TABLE IF EXISTS learner_profiles;
DROP TABLE IF EXISTS enrollments;
DROP TABLE IF EXISTS courses;
DROP TABLE IF EXISTS ledger_config;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: TOKEN ACCOUNTS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: token accounts
-- Version: 002

CREATE TABLE IF NOT EXISTS token_accounts (
    mint TEXT NOT NULL,
    owner TEXT NOT NULL,
    balance NUMERIC(20,0) NOT NULL DEFAULT 0,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL,

    PRIMARY KEY (mint, owner),
    CONSTRAINT valid_balance CHECK (balance BETWEEN 0 AND 18446744073709551615)
);

CREATE INDEX IF NOT EXISTS idx_token_accounts_ranking ON token_accounts(mint, balance DESC, owner);
`

const migration002Down = `
DROP TABLE IF EXISTS token_accounts;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: EVENT OUTBOX
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: event outbox
-- Version: 003

CREATE TABLE IF NOT EXISTS ledger_events (
    seq BIGSERIAL PRIMARY KEY,
    event_id UUID NOT NULL UNIQUE,
    event_type VARCHAR(64) NOT NULL,
    aggregate_id TEXT NOT NULL,
    payload JSONB NOT NULL,
    occurred_at TIMESTAMP WITH TIME ZONE NOT NULL,
    recorded_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_ledger_events_type ON ledger_events(event_type, seq);
CREATE INDEX IF NOT EXISTS idx_ledger_events_aggregate ON ledger_events(aggregate_id, seq);
`

const migration003Down = `
DROP TABLE IF EXISTS ledger_events;
`
