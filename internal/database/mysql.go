package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"rolelink/entity"
	"rolelink/internal/config"

	"github.com/go-sql-driver/mysql"
)

const (
	tableInviteLinks = "role_invite_links"
	errDuplicateKey  = 1062
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

type MySql struct {
	db         *sql.DB
	statements map[string]*sql.Stmt
	mu         sync.Mutex
}

func NewSQLClient(conf *config.Config) (*MySql, error) {
	if conf.Database.Driver != config.DatabaseMySQL {
		return nil, fmt.Errorf("mysql client is disabled in configuration")
	}
	dsn := mysql.NewConfig()
	dsn.User = conf.Database.User
	dsn.Passwd = conf.Database.Password
	dsn.Net = "tcp"
	dsn.Addr = fmt.Sprintf("%s:%s", conf.Database.Host, conf.Database.Port)
	dsn.DBName = conf.Database.Name
	dsn.ParseTime = true

	db, err := sql.Open("mysql", dsn.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("sql connect: %w", err)
	}

	// try to ping three times with a 10-second interval; wait for a database to start
	for i := 0; i < 3; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		if i == 2 {
			return nil, fmt.Errorf("ping database: %w", err)
		}
		time.Sleep(10 * time.Second)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &MySql{
		db:         db,
		statements: make(map[string]*sql.Stmt),
	}
	if err = sdb.bootstrap(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return sdb, nil
}

func (s *MySql) Close() {
	s.closeStmt()
	_ = s.db.Close()
}

func (s *MySql) Insert(ctx context.Context, link *entity.InviteLink) error {
	stmt, err := s.stmtInsertLink()
	if err != nil {
		return err
	}
	_, err = stmt.ExecContext(ctx,
		link.GuildID,
		link.RoleID,
		link.LinkID,
		link.CreatedByUserID,
		nullInt(link.MaxUses),
		link.CurrentUses,
		nullString(link.ExpiresAt),
		nullInt64(link.ExpiresAtUnix),
		link.CreatedAt,
		link.CreatedAtUnix,
	)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == errDuplicateKey {
			return entity.ErrDuplicateLink
		}
		return fmt.Errorf("insert link: %w", err)
	}
	return nil
}

// GetByID returns nil without error when the link does not exist.
func (s *MySql) GetByID(ctx context.Context, linkID string) (*entity.InviteLink, error) {
	stmt, err := s.stmtSelectLink()
	if err != nil {
		return nil, err
	}
	link, err := scanLink(stmt.QueryRowContext(ctx, linkID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select link: %w", err)
	}
	return link, nil
}

func (s *MySql) ListByGuild(ctx context.Context, guildID string) ([]*entity.InviteLink, error) {
	stmt, err := s.stmtSelectGuildLinks()
	if err != nil {
		return nil, err
	}
	return s.queryLinks(ctx, stmt, guildID)
}

func (s *MySql) ListByCreator(ctx context.Context, userID string) ([]*entity.InviteLink, error) {
	stmt, err := s.stmtSelectCreatorLinks()
	if err != nil {
		return nil, err
	}
	return s.queryLinks(ctx, stmt, userID)
}

func (s *MySql) DeleteByID(ctx context.Context, linkID string) (bool, error) {
	stmt, err := s.stmtDeleteLink()
	if err != nil {
		return false, err
	}
	return affected(stmt.ExecContext(ctx, linkID))
}

// IncrementUses is a single conditional update; it reports whether a row matched.
func (s *MySql) IncrementUses(ctx context.Context, linkID string) (bool, error) {
	stmt, err := s.stmtIncrementUses()
	if err != nil {
		return false, err
	}
	return affected(stmt.ExecContext(ctx, linkID))
}

func (s *MySql) queryLinks(ctx context.Context, stmt *sql.Stmt, arg string) ([]*entity.InviteLink, error) {
	rows, err := stmt.QueryContext(ctx, arg)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var links []*entity.InviteLink
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, link)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return links, nil
}

func scanLink(row rowScanner) (*entity.InviteLink, error) {
	var link entity.InviteLink
	var maxUses, expiresUnix sql.NullInt64
	var expires sql.NullString
	if err := row.Scan(
		&link.GuildID,
		&link.RoleID,
		&link.LinkID,
		&link.CreatedByUserID,
		&maxUses,
		&link.CurrentUses,
		&expires,
		&expiresUnix,
		&link.CreatedAt,
		&link.CreatedAtUnix,
	); err != nil {
		return nil, err
	}
	if maxUses.Valid {
		n := int(maxUses.Int64)
		link.MaxUses = &n
	}
	if expiresUnix.Valid {
		n := expiresUnix.Int64
		link.ExpiresAtUnix = &n
	}
	link.ExpiresAt = expires.String
	return &link, nil
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
