package database

import (
	"database/sql"
	"fmt"
)

const linkColumns = `guild_id, role_id, link_id, created_by_user_id, max_uses,
                   current_uses, expires_at, expires_at_unix, created_at, created_at_unix`

func (s *MySql) prepareStmt(name, query string) (*sql.Stmt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stmt, ok := s.statements[name]; ok {
		return stmt, nil
	}

	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("prepare statement [%s]: %w", name, err)
	}

	s.statements[name] = stmt
	return stmt, nil
}

func (s *MySql) closeStmt() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, stmt := range s.statements {
		_ = stmt.Close()
		delete(s.statements, name)
	}
}

func (s *MySql) stmtInsertLink() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tableInviteLinks, linkColumns,
	)
	return s.prepareStmt("insertLink", query)
}

func (s *MySql) stmtSelectLink() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE link_id = ?`,
		linkColumns, tableInviteLinks,
	)
	return s.prepareStmt("selectLink", query)
}

func (s *MySql) stmtSelectGuildLinks() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE guild_id = ? ORDER BY created_at_unix DESC`,
		linkColumns, tableInviteLinks,
	)
	return s.prepareStmt("selectGuildLinks", query)
}

func (s *MySql) stmtSelectCreatorLinks() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE created_by_user_id = ? ORDER BY created_at_unix DESC`,
		linkColumns, tableInviteLinks,
	)
	return s.prepareStmt("selectCreatorLinks", query)
}

func (s *MySql) stmtDeleteLink() (*sql.Stmt, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE link_id = ?`, tableInviteLinks)
	return s.prepareStmt("deleteLink", query)
}

func (s *MySql) stmtIncrementUses() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`UPDATE %s SET current_uses = current_uses + 1 WHERE link_id = ?`,
		tableInviteLinks,
	)
	return s.prepareStmt("incrementUses", query)
}
