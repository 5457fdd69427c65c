package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpsertQuery(t *testing.T) {
	cols := []string{"id", "name", "family"}

	assert.Equal(t,
		"INSERT INTO venues (id, name, family) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE name = VALUES(name), family = VALUES(family)",
		upsertQuery(MySQL, "venues", cols, cols[1:]))
	assert.Equal(t,
		"INSERT INTO venues (id, name, family) VALUES (?, ?, ?) ON CONFLICT(id) DO UPDATE SET name = excluded.name, family = excluded.family",
		upsertQuery(SQLite, "venues", cols, cols[1:]))
}
