package database

import (
	"context"
	"testing"

	"rolelink/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLinkLifecycle(t *testing.T) {
	ctx := context.Background()
	db := NewMemory()
	maxUses := 2

	require.NoError(t, db.Insert(ctx, &entity.InviteLink{LinkID: "aaaaaaaaaa", GuildID: "1", RoleID: "2", CreatedByUserID: "3", MaxUses: &maxUses, CreatedAtUnix: 10}))
	require.NoError(t, db.Insert(ctx, &entity.InviteLink{LinkID: "bbbbbbbbbb", GuildID: "1", RoleID: "2", CreatedByUserID: "4", CreatedAtUnix: 20}))
	assert.ErrorIs(t, db.Insert(ctx, &entity.InviteLink{LinkID: "aaaaaaaaaa"}), entity.ErrDuplicateLink)

	links, err := db.ListByGuild(ctx, "1")
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "bbbbbbbbbb", links[0].LinkID, "newest first")

	mine, err := db.ListByCreator(ctx, "3")
	require.NoError(t, err)
	require.Len(t, mine, 1)

	ok, err := db.IncrementUses(ctx, "aaaaaaaaaa")
	require.NoError(t, err)
	assert.True(t, ok)
	link, err := db.GetByID(ctx, "aaaaaaaaaa")
	require.NoError(t, err)
	assert.Equal(t, 1, link.CurrentUses)

	ok, err = db.IncrementUses(ctx, "missing000")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = db.DeleteByID(ctx, "aaaaaaaaaa")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = db.DeleteByID(ctx, "aaaaaaaaaa")
	require.NoError(t, err)
	assert.False(t, ok)

	link, err = db.GetByID(ctx, "aaaaaaaaaa")
	require.NoError(t, err)
	assert.Nil(t, link)
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	db := NewMemory()
	require.NoError(t, db.Insert(ctx, &entity.InviteLink{LinkID: "aaaaaaaaaa"}))

	link, err := db.GetByID(ctx, "aaaaaaaaaa")
	require.NoError(t, err)
	link.CurrentUses = 99

	again, err := db.GetByID(ctx, "aaaaaaaaaa")
	require.NoError(t, err)
	assert.Equal(t, 0, again.CurrentUses)
}
