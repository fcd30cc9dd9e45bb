package database

import (
	"database/sql"
	"errors"
	"fmt"
)

// columns added after the first release; older tables are upgraded in place
var lateColumns = []struct {
	name, definition string
}{
	{"guild_id", "VARCHAR(32) NOT NULL DEFAULT ''"},
	{"max_uses", "INT NULL"},
	{"current_uses", "INT NOT NULL DEFAULT 0"},
	{"expires_at", "VARCHAR(32) NULL"},
	{"expires_at_unix", "BIGINT NULL"},
	{"created_at_unix", "BIGINT NOT NULL DEFAULT 0"},
}

func (s *MySql) bootstrap() error {
	create := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
        id                 BIGINT AUTO_INCREMENT PRIMARY KEY,
        guild_id           VARCHAR(32) NOT NULL,
        role_id            VARCHAR(32) NOT NULL,
        link_id            VARCHAR(32) NOT NULL,
        created_by_user_id VARCHAR(32) NOT NULL,
        max_uses           INT NULL,
        current_uses       INT NOT NULL DEFAULT 0,
        expires_at         VARCHAR(32) NULL,
        expires_at_unix    BIGINT NULL,
        created_at         VARCHAR(32) NOT NULL,
        created_at_unix    BIGINT NOT NULL,
        UNIQUE KEY uq_link_id (link_id),
        KEY idx_guild_id (guild_id),
        KEY idx_created_by (created_by_user_id)
    )`, tableInviteLinks)
	if _, err := s.db.Exec(create); err != nil {
		return fmt.Errorf("create table %s: %w", tableInviteLinks, err)
	}
	for _, col := range lateColumns {
		if err := s.addColumnIfNotExists(tableInviteLinks, col.name, col.definition); err != nil {
			return err
		}
	}
	return nil
}

func (s *MySql) addColumnIfNotExists(tableName, columnName, columnType string) error {
	query := `SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS
               WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND COLUMN_NAME = ?`
	var column string
	err := s.db.QueryRow(query, tableName, columnName).Scan(&column)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			alterQuery := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, tableName, columnName, columnType)
			_, err = s.db.Exec(alterQuery)
			if err != nil {
				return fmt.Errorf("add column %s to table %s: %w", columnName, tableName, err)
			}
		} else {
			return fmt.Errorf("checking column %s existence in %s: %w", columnName, tableName, err)
		}
	}
	return nil
}
