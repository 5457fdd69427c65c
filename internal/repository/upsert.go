package repository

import (
	"fmt"
	"strings"
)

// Dialect names the SQL flavour of the store.  It only affects upserts.
type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite"
)

// upsertQuery builds an insert of cols into table that, when the id already
// exists, overwrites only the update columns.
func upsertQuery(d Dialect, table string, cols, update []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	set := make([]string, 0, len(update))
	for _, c := range update {
		if d == MySQL {
			set = append(set, fmt.Sprintf("%s = VALUES(%s)", c, c))
		} else {
			set = append(set, fmt.Sprintf("%s = excluded.%s", c, c))
		}
	}
	conflict := "ON CONFLICT(id) DO UPDATE SET "
	if d == MySQL {
		conflict = "ON DUPLICATE KEY UPDATE "
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) %s%s",
		table, strings.Join(cols, ", "), placeholders, conflict, strings.Join(set, ", "))
}
