package db

// GetItemMeta reads cached item metadata. ok is false when the item has
// never been cached.
func (d *DB) GetItemMeta(itemID int) (name string, geLimit int, ok bool) {
	err := d.sql.QueryRow(`SELECT name, ge_limit FROM item_cache WHERE item_id = ?`, itemID).
		Scan(&name, &geLimit)
	if err != nil {
		return "", 0, false
	}
	return name, geLimit, true
}

// SetItemMeta upserts cached item metadata.
func (d *DB) SetItemMeta(itemID int, name string, geLimit int) {
	d.sql.Exec(`
		INSERT INTO item_cache (item_id, name, ge_limit) VALUES (?, ?, ?)
		ON CONFLICT(item_id)
		DO UPDATE SET name = excluded.name, ge_limit = excluded.ge_limit
	`, itemID, name, geLimit)
}
