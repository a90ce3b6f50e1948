package database

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AddIndexes adds composite indexes used by the hot queries that AutoMigrate
// does not derive from struct tags.
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		name    string
		columns []string
	}{
		// Writer-cap counts and member listings
		{"users", "idx_users_org_role_status", []string{"organization_id", "role", "status"}},

		// Pending invitation lookups
		{"invitations", "idx_invitations_org_email", []string{"organization_id", "email"}},

		// Gist listings per organization and author
		{"gists", "idx_gists_org_author", []string{"organization_id", "author_id"}},

		// Topic ordering
		{"topics", "idx_topics_gist_order", []string{"gist_id", "sort_order"}},
	}

	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(idx.table, idx.name) {
			slog.Debug("index already exists, skipping", "index", idx.name)
			continue
		}

		quoted := make([]interface{}, len(idx.columns))
		placeholders := ""
		for i, col := range idx.columns {
			if i > 0 {
				placeholders += ", "
			}
			placeholders += "?"
			quoted[i] = clause.Column{Name: col}
		}

		args := append([]interface{}{clause.Column{Name: idx.name}, clause.Table{Name: idx.table}}, quoted...)
		sql := fmt.Sprintf("CREATE INDEX ? ON ? (%s)", placeholders)
		if err := db.Exec(sql, args...).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		slog.Info("created index", "index", idx.name, "table", idx.table)
	}

	return nil
}

// MigrateDatabase runs the migrations that follow AutoMigrate.
func MigrateDatabase(db *gorm.DB) error {
	if err := AddIndexes(db); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}

	return nil
}
