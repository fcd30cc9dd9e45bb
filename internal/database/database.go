package database

import (
	"context"
	"fmt"

	"rolelink/entity"
	"rolelink/internal/config"
)

// LinkStore is the persistence contract shared by the issuer and the redemption service.
type LinkStore interface {
	Insert(ctx context.Context, link *entity.InviteLink) error
	GetByID(ctx context.Context, linkID string) (*entity.InviteLink, error)
	ListByGuild(ctx context.Context, guildID string) ([]*entity.InviteLink, error)
	ListByCreator(ctx context.Context, userID string) ([]*entity.InviteLink, error)
	DeleteByID(ctx context.Context, linkID string) (bool, error)
	IncrementUses(ctx context.Context, linkID string) (bool, error)
	Close()
}

// Open connects the backend selected by database.driver.
func Open(conf *config.Config) (LinkStore, error) {
	switch conf.Database.Driver {
	case config.DatabaseMySQL:
		db, err := NewSQLClient(conf)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.DatabaseMongo:
		db, err := NewMongoClient(conf)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.DatabaseMemory:
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown database driver %q", conf.Database.Driver)
}
