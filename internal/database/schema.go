package database

import (
	"context"
	"fmt"
)

// Migrate creates the schema if it does not exist yet.  Statements are
// idempotent so Migrate is safe to run on every start.
func Migrate(ctx context.Context, db *DB) error {
	var stmts []string
	switch db.Dialect {
	case MySQL:
		stmts = mysqlSchema
	case Postgres:
		stmts = postgresSchema
	case SQLite:
		stmts = sqliteSchema
	default:
		return fmt.Errorf("migrate: unsupported dialect %q", db.Dialect)
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		username      VARCHAR(50)  NOT NULL,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role          VARCHAR(16)  NOT NULL DEFAULT 'CUSTOMER',
		created_at    DATETIME(6)  NOT NULL,
		updated_at    DATETIME(6)  NOT NULL,
		UNIQUE KEY uq_users_email (email),
		UNIQUE KEY uq_users_username (username)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS resources (
		id                 BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		kind               VARCHAR(16)  NOT NULL,
		code               VARCHAR(50)  NOT NULL,
		name               VARCHAR(255) NOT NULL DEFAULT '',
		origin             VARCHAR(100) NOT NULL DEFAULT '',
		destination        VARCHAR(100) NOT NULL DEFAULT '',
		location           VARCHAR(255) NOT NULL DEFAULT '',
		starts_at          DATETIME(6)  NULL,
		ends_at            DATETIME(6)  NULL,
		capacity_total     INT          NOT NULL,
		capacity_remaining INT          NOT NULL,
		price_cents        BIGINT       NOT NULL DEFAULT 0,
		created_at         DATETIME(6)  NOT NULL,
		updated_at         DATETIME(6)  NOT NULL,
		UNIQUE KEY uq_resources_code (code),
		KEY idx_resources_kind_starts (kind, starts_at),
		CONSTRAINT chk_resources_capacity CHECK (capacity_remaining >= 0 AND capacity_remaining <= capacity_total)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id              BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		reference       CHAR(36)        NOT NULL,
		user_id         BIGINT UNSIGNED NOT NULL,
		resource_id     BIGINT UNSIGNED NOT NULL,
		status          VARCHAR(16)     NOT NULL,
		assignment      VARCHAR(16)     NOT NULL,
		idempotency_key VARCHAR(128)    NULL,
		created_at      DATETIME(6)     NOT NULL,
		cancelled_at    DATETIME(6)     NULL,
		UNIQUE KEY uq_bookings_reference (reference),
		UNIQUE KEY uq_bookings_idempotency (user_id, idempotency_key),
		KEY idx_bookings_resource_status (resource_id, status),
		CONSTRAINT fk_bookings_user FOREIGN KEY (user_id) REFERENCES users (id),
		CONSTRAINT fk_bookings_resource FOREIGN KEY (resource_id) REFERENCES resources (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64)        NOT NULL,
		expires_at DATETIME(6)     NOT NULL,
		revoked_at DATETIME(6)     NULL,
		created_at DATETIME(6)     NOT NULL,
		UNIQUE KEY uq_refresh_tokens_hash (token_hash),
		CONSTRAINT fk_refresh_tokens_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id           BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		event_type   VARCHAR(64)  NOT NULL,
		aggregate_id VARCHAR(64)  NOT NULL,
		payload      MEDIUMTEXT   NOT NULL,
		status       VARCHAR(16)  NOT NULL,
		attempts     INT          NOT NULL DEFAULT 0,
		last_error   TEXT         NULL,
		created_at   DATETIME(6)  NOT NULL,
		published_at DATETIME(6)  NULL,
		KEY idx_outbox_status (status, id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		username      VARCHAR(50)  NOT NULL,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role          VARCHAR(16)  NOT NULL DEFAULT 'CUSTOMER',
		created_at    TIMESTAMPTZ  NOT NULL,
		updated_at    TIMESTAMPTZ  NOT NULL,
		CONSTRAINT uq_users_email UNIQUE (email),
		CONSTRAINT uq_users_username UNIQUE (username)
	)`,
	`CREATE TABLE IF NOT EXISTS resources (
		id                 BIGSERIAL PRIMARY KEY,
		kind               VARCHAR(16)  NOT NULL,
		code               VARCHAR(50)  NOT NULL,
		name               VARCHAR(255) NOT NULL DEFAULT '',
		origin             VARCHAR(100) NOT NULL DEFAULT '',
		destination        VARCHAR(100) NOT NULL DEFAULT '',
		location           VARCHAR(255) NOT NULL DEFAULT '',
		starts_at          TIMESTAMPTZ  NULL,
		ends_at            TIMESTAMPTZ  NULL,
		capacity_total     INTEGER      NOT NULL,
		capacity_remaining INTEGER      NOT NULL,
		price_cents        BIGINT       NOT NULL DEFAULT 0,
		created_at         TIMESTAMPTZ  NOT NULL,
		updated_at         TIMESTAMPTZ  NOT NULL,
		CONSTRAINT uq_resources_code UNIQUE (code),
		CONSTRAINT chk_resources_capacity CHECK (capacity_remaining >= 0 AND capacity_remaining <= capacity_total)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_resources_kind_starts ON resources (kind, starts_at)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id              BIGSERIAL PRIMARY KEY,
		reference       VARCHAR(36)  NOT NULL,
		user_id         BIGINT       NOT NULL REFERENCES users (id),
		resource_id     BIGINT       NOT NULL REFERENCES resources (id),
		status          VARCHAR(16)  NOT NULL,
		assignment      VARCHAR(16)  NOT NULL,
		idempotency_key VARCHAR(128) NULL,
		created_at      TIMESTAMPTZ  NOT NULL,
		cancelled_at    TIMESTAMPTZ  NULL,
		CONSTRAINT uq_bookings_reference UNIQUE (reference),
		CONSTRAINT uq_bookings_idempotency UNIQUE (user_id, idempotency_key)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_resource_status ON bookings (resource_id, status)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGSERIAL PRIMARY KEY,
		user_id    BIGINT      NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		token_hash VARCHAR(64) NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		revoked_at TIMESTAMPTZ NULL,
		created_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT uq_refresh_tokens_hash UNIQUE (token_hash)
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id           BIGSERIAL PRIMARY KEY,
		event_type   VARCHAR(64) NOT NULL,
		aggregate_id VARCHAR(64) NOT NULL,
		payload      TEXT        NOT NULL,
		status       VARCHAR(16) NOT NULL,
		attempts     INTEGER     NOT NULL DEFAULT 0,
		last_error   TEXT        NULL,
		created_at   TIMESTAMPTZ NOT NULL,
		published_at TIMESTAMPTZ NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox_events (status, id)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		username      TEXT     NOT NULL UNIQUE,
		email         TEXT     NOT NULL UNIQUE,
		password_hash TEXT     NOT NULL,
		role          TEXT     NOT NULL DEFAULT 'CUSTOMER',
		created_at    DATETIME NOT NULL,
		updated_at    DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS resources (
		id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		kind               TEXT     NOT NULL,
		code               TEXT     NOT NULL UNIQUE,
		name               TEXT     NOT NULL DEFAULT '',
		origin             TEXT     NOT NULL DEFAULT '',
		destination        TEXT     NOT NULL DEFAULT '',
		location           TEXT     NOT NULL DEFAULT '',
		starts_at          DATETIME NULL,
		ends_at            DATETIME NULL,
		capacity_total     INTEGER  NOT NULL,
		capacity_remaining INTEGER  NOT NULL,
		price_cents        INTEGER  NOT NULL DEFAULT 0,
		created_at         DATETIME NOT NULL,
		updated_at         DATETIME NOT NULL,
		CHECK (capacity_remaining >= 0 AND capacity_remaining <= capacity_total)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_resources_kind_starts ON resources (kind, starts_at)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		reference       TEXT     NOT NULL UNIQUE,
		user_id         INTEGER  NOT NULL REFERENCES users (id),
		resource_id     INTEGER  NOT NULL REFERENCES resources (id),
		status          TEXT     NOT NULL,
		assignment      TEXT     NOT NULL,
		idempotency_key TEXT     NULL,
		created_at      DATETIME NOT NULL,
		cancelled_at    DATETIME NULL,
		UNIQUE (user_id, idempotency_key)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_resource_status ON bookings (resource_id, status)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id    INTEGER  NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		token_hash TEXT     NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type   TEXT     NOT NULL,
		aggregate_id TEXT     NOT NULL,
		payload      TEXT     NOT NULL,
		status       TEXT     NOT NULL,
		attempts     INTEGER  NOT NULL DEFAULT 0,
		last_error   TEXT     NULL,
		created_at   DATETIME NOT NULL,
		published_at DATETIME NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox_events (status, id)`,
}
