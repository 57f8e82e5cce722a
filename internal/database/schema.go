package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema holds the DDL of every table, applied in order.  Statements are
// idempotent so Migrate can run on every start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id             VARCHAR(128)   NOT NULL,
		display_name   VARCHAR(255)   NOT NULL DEFAULT '',
		email          VARCHAR(255)   NOT NULL DEFAULT '',
		photo_url      VARCHAR(1024)  NOT NULL DEFAULT '',
		short_code     VARCHAR(8)     NOT NULL,
		wallet_balance DECIMAL(14,2)  NOT NULL DEFAULT 0,
		created_at     DATETIME(3)    NOT NULL,
		version        BIGINT UNSIGNED NOT NULL DEFAULT 1,
		PRIMARY KEY (id),
		UNIQUE KEY uq_accounts_short_code (short_code),
		CONSTRAINT chk_accounts_balance CHECK (wallet_balance >= 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS operator_accounts (
		id              VARCHAR(128)   NOT NULL,
		wallet_balance  DECIMAL(14,2)  NOT NULL DEFAULT 0,
		total_collected DECIMAL(14,2)  NOT NULL DEFAULT 0,
		created_at      DATETIME(3)    NOT NULL,
		version         BIGINT UNSIGNED NOT NULL DEFAULT 1,
		PRIMARY KEY (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS slots (
		id              VARCHAR(64)    NOT NULL,
		name            VARCHAR(255)   NOT NULL,
		address         VARCHAR(512)   NOT NULL DEFAULT '',
		latitude        DOUBLE         NOT NULL DEFAULT 0,
		longitude       DOUBLE         NOT NULL DEFAULT 0,
		bays            JSON           NOT NULL,
		available_count INT            NOT NULL,
		created_at      DATETIME(3)    NOT NULL,
		version         BIGINT UNSIGNED NOT NULL DEFAULT 1,
		PRIMARY KEY (id),
		KEY idx_slots_name (name),
		CONSTRAINT chk_slots_available CHECK (available_count >= 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS reservations (
		id              CHAR(36)       NOT NULL,
		account_id      VARCHAR(128)   NOT NULL,
		slot_id         VARCHAR(64)    NOT NULL,
		bay_index       INT            NOT NULL,
		booking_code    VARCHAR(32)    NOT NULL,
		fee             DECIMAL(14,2)  NOT NULL,
		status          ENUM('active','completed','expired') NOT NULL DEFAULT 'active',
		idempotency_key VARCHAR(128)   NULL,
		created_at      DATETIME(3)    NOT NULL,
		expires_at      DATETIME(3)    NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_reservations_booking_code (booking_code),
		KEY idx_reservations_account_created (account_id, created_at),
		KEY idx_reservations_created (created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing table.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
