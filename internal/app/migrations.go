package app

import "serotonyl.ru/economy-core/internal/db/postgres"

// Migrations — встроенные SQL-миграции в порядке применения.
// Интеграционные тесты применяют тот же список.
var Migrations = []postgres.Migration{
	{Version: 1, SQL: migration001Players},
	{Version: 2, SQL: migration002Transactions},
	{Version: 3, SQL: migration003Farm},
	{Version: 4, SQL: migration004RedPackets},
	{Version: 5, SQL: migration005VIPCards},
	{Version: 6, SQL: migration006Admin},
}

// SQL-миграции встроены в код для упрощения деплоя.
// Инварианты реестра продублированы CHECK-ограничениями как последний рубеж.

var migration001Players = `
CREATE TABLE IF NOT EXISTS players (
    user_id TEXT PRIMARY KEY,
    nickname TEXT NOT NULL DEFAULT '',
    balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
    deposit BIGINT NOT NULL DEFAULT 0 CHECK (deposit >= 0),
    deposit_limit BIGINT NOT NULL DEFAULT 0,
    credit_level INTEGER NOT NULL DEFAULT 1 CHECK (credit_level >= 1),
    loan_balance BIGINT NOT NULL DEFAULT 0 CHECK (loan_balance >= 0),
    loan_credit_level INTEGER NOT NULL DEFAULT 1 CHECK (loan_credit_level >= 1),
    worth BIGINT NOT NULL DEFAULT 0 CHECK (worth >= 0),
    owner_id TEXT REFERENCES players(user_id) ON DELETE SET NULL,
    owned_at TIMESTAMPTZ,
    is_admin BOOLEAN NOT NULL DEFAULT FALSE,
    command_banned BOOLEAN NOT NULL DEFAULT FALSE,
    vip_until TIMESTAMPTZ,
    jail_until TIMESTAMPTZ,
    bodyguard_name TEXT NOT NULL DEFAULT '',
    bodyguard_until TIMESTAMPTZ,
    jail_work_income BIGINT NOT NULL DEFAULT 0,
    last_work_at TIMESTAMPTZ,
    last_rob_at TIMESTAMPTZ,
    last_transfer_at TIMESTAMPTZ,
    last_buy_at TIMESTAMPTZ,
    last_plant_at TIMESTAMPTZ,
    last_harvest_at TIMESTAMPTZ,
    last_interest_at TIMESTAMPTZ,
    last_loan_interest_at TIMESTAMPTZ,
    register_source TEXT NOT NULL DEFAULT '',
    registered_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT players_deposit_within_limit CHECK (deposit <= deposit_limit),
    CONSTRAINT players_not_self_owned CHECK (owner_id IS NULL OR owner_id <> user_id)
);
CREATE INDEX IF NOT EXISTS idx_players_owner_id ON players(owner_id);
CREATE INDEX IF NOT EXISTS idx_players_worth ON players(worth DESC);
CREATE INDEX IF NOT EXISTS idx_players_register_source ON players(register_source);
`

var migration002Transactions = `
CREATE TABLE IF NOT EXISTS transactions (
    id BIGSERIAL PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES players(user_id) ON DELETE CASCADE,
    kind VARCHAR(32) NOT NULL,
    amount BIGINT NOT NULL,
    balance BIGINT NOT NULL,
    counterparty_id TEXT,
    description TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_transactions_user_created ON transactions(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at);
`

var migration003Farm = `
CREATE TABLE IF NOT EXISTS farm_lands (
    user_id TEXT NOT NULL REFERENCES players(user_id) ON DELETE CASCADE,
    plot_index INTEGER NOT NULL CHECK (plot_index >= 1),
    crop_type TEXT NOT NULL DEFAULT '',
    planted_at TIMESTAMPTZ,
    harvest_at TIMESTAMPTZ,
    PRIMARY KEY (user_id, plot_index)
);
`

var migration004RedPackets = `
CREATE TABLE IF NOT EXISTS red_packets (
    packet_id TEXT PRIMARY KEY,
    sender_id TEXT NOT NULL REFERENCES players(user_id) ON DELETE CASCADE,
    sender_name TEXT NOT NULL DEFAULT '',
    total_amount BIGINT NOT NULL CHECK (total_amount > 0),
    total_count INTEGER NOT NULL CHECK (total_count > 0),
    remaining INTEGER NOT NULL CHECK (remaining >= 0),
    claimed_amount BIGINT NOT NULL DEFAULT 0 CHECK (claimed_amount >= 0),
    scope_key TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    expires_at TIMESTAMPTZ NOT NULL,
    refunded BOOLEAN NOT NULL DEFAULT FALSE,
    CONSTRAINT red_packets_claimed_within_total CHECK (claimed_amount <= total_amount)
);
CREATE INDEX IF NOT EXISTS idx_red_packets_expires_at ON red_packets(expires_at) WHERE NOT refunded;
CREATE TABLE IF NOT EXISTS red_packet_grabs (
    id BIGSERIAL PRIMARY KEY,
    packet_id TEXT NOT NULL REFERENCES red_packets(packet_id) ON DELETE CASCADE,
    user_id TEXT NOT NULL,
    user_name TEXT NOT NULL DEFAULT '',
    amount BIGINT NOT NULL CHECK (amount > 0),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (packet_id, user_id)
);
`

var migration005VIPCards = `
CREATE TABLE IF NOT EXISTS vip_cards (
    code TEXT PRIMARY KEY,
    card_type TEXT NOT NULL,
    duration_seconds BIGINT NOT NULL CHECK (duration_seconds > 0),
    created_by TEXT NOT NULL,
    used BOOLEAN NOT NULL DEFAULT FALSE,
    used_by TEXT,
    used_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_vip_cards_used_at ON vip_cards(used_at) WHERE used;
`

var migration006Admin = `
CREATE TABLE IF NOT EXISTS admins (
    user_id TEXT PRIMARY KEY,
    nickname TEXT NOT NULL DEFAULT '',
    added_by TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS admin_login_attempts (
    id BIGSERIAL PRIMARY KEY,
    user_id TEXT NOT NULL,
    attempt_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    success BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_admin_login_attempts_user ON admin_login_attempts(user_id, attempt_time DESC);
`
