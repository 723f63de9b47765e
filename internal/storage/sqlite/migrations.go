package sqlite

import "database/sql"

// schema sets up the database. It runs on startup and is idempotent.
// Amounts are stored as decimal TEXT and timestamps as Unix milliseconds.
// deal_locks and ledger_entries reference deals polymorphically, so deleting a
// deal removes its rows explicitly instead of through a foreign key.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS groups (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    owner_id TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (owner_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS group_members (
    group_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('pending', 'accepted')),
    invited_by TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (group_id, user_id),
    FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE,
    FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS threads (
    id TEXT PRIMARY KEY,
    creator_id TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL,
    target_amount TEXT NOT NULL,
    deadline INTEGER NOT NULL,
    audience_mode TEXT NOT NULL CHECK (audience_mode IN ('open', 'group', 'specific')),
    group_id TEXT,
    committed_current INTEGER NOT NULL DEFAULT 0,
    committed_amount TEXT,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (creator_id) REFERENCES users(id),
    FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS thread_targets (
    thread_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    PRIMARY KEY (thread_id, user_id),
    FOREIGN KEY (thread_id) REFERENCES threads(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS pledges (
    id TEXT PRIMARY KEY,
    thread_id TEXT NOT NULL,
    supporter_id TEXT NOT NULL,
    amount TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (thread_id) REFERENCES threads(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS reverse_requests (
    id TEXT PRIMARY KEY,
    creator_id TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('open', 'closed')),
    audience_mode TEXT NOT NULL CHECK (audience_mode IN ('open', 'group', 'specific')),
    group_id TEXT,
    winner_bid_id TEXT,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (creator_id) REFERENCES users(id),
    FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS request_targets (
    request_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    PRIMARY KEY (request_id, user_id),
    FOREIGN KEY (request_id) REFERENCES reverse_requests(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS bids (
    id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL,
    bidder_id TEXT NOT NULL,
    ask_amount TEXT NOT NULL,
    active INTEGER NOT NULL DEFAULT 1,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (request_id) REFERENCES reverse_requests(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS request_pledges (
    id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL,
    supporter_id TEXT NOT NULL,
    amount TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (request_id) REFERENCES reverse_requests(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS deal_locks (
    deal_type TEXT NOT NULL,
    deal_id TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (deal_type, deal_id)
);

CREATE TABLE IF NOT EXISTS ledger_entries (
    id TEXT PRIMARY KEY,
    deal_type TEXT NOT NULL,
    deal_id TEXT NOT NULL,
    pledge_id TEXT NOT NULL,
    payer_id TEXT NOT NULL,
    payee_id TEXT NOT NULL,
    amount TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('open', 'received_declared')),
    created_at INTEGER NOT NULL,
    declared_at INTEGER,
    UNIQUE (deal_type, deal_id, pledge_id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_bids_one_active ON bids(request_id, bidder_id) WHERE active = 1;
CREATE INDEX IF NOT EXISTS idx_group_members_user_id ON group_members(user_id);
CREATE INDEX IF NOT EXISTS idx_pledges_thread_id ON pledges(thread_id);
CREATE INDEX IF NOT EXISTS idx_request_pledges_request_id ON request_pledges(request_id);
CREATE INDEX IF NOT EXISTS idx_bids_request_id ON bids(request_id);
CREATE INDEX IF NOT EXISTS idx_ledger_payer_id ON ledger_entries(payer_id);
CREATE INDEX IF NOT EXISTS idx_ledger_payee_id ON ledger_entries(payee_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
