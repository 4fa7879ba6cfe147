package db

import (
	"encoding/json"
	"fmt"
	"time"

	"ge-flipper/internal/ge"
)

// SaveAccount upserts one account's snapshot as a JSON document.
func (d *DB) SaveAccount(snap ge.AccountSnapshot) error {
	if snap.DisplayName == "" {
		return fmt.Errorf("empty display name")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal account %q: %w", snap.DisplayName, err)
	}
	updatedAt := time.Now().UTC().Format(time.RFC3339)
	_, err = d.sql.Exec(`
		INSERT INTO accounts (display_name, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(display_name)
		DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, snap.DisplayName, string(data), updatedAt)
	return err
}

// SaveAccounts upserts several snapshots in one transaction.
func (d *DB) SaveAccounts(snaps []ge.AccountSnapshot) error {
	tx, err := d.sql.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO accounts (display_name, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(display_name)
		DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	updatedAt := time.Now().UTC().Format(time.RFC3339)
	for _, snap := range snaps {
		if snap.DisplayName == "" {
			continue
		}
		data, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("marshal account %q: %w", snap.DisplayName, err)
		}
		if _, err := stmt.Exec(snap.DisplayName, string(data), updatedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadAccounts reads every persisted account snapshot.
func (d *DB) LoadAccounts() ([]ge.AccountSnapshot, error) {
	rows, err := d.sql.Query(`SELECT display_name, data FROM accounts ORDER BY display_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ge.AccountSnapshot
	for rows.Next() {
		var name, data string
		if err := rows.Scan(&name, &data); err != nil {
			return nil, err
		}
		var snap ge.AccountSnapshot
		if err := json.Unmarshal([]byte(data), &snap); err != nil {
			return nil, fmt.Errorf("unmarshal account %q: %w", name, err)
		}
		snap.DisplayName = name
		out = append(out, snap)
	}
	return out, rows.Err()
}

// DeleteAccount removes one account's persisted snapshot.
func (d *DB) DeleteAccount(displayName string) error {
	_, err := d.sql.Exec(`DELETE FROM accounts WHERE display_name = ?`, displayName)
	return err
}
