package database

import (
	"context"
	"sort"
	"sync"

	"rolelink/entity"
)

// Memory is a process-local LinkStore with the same semantics as the SQL backend.
type Memory struct {
	mu    sync.Mutex
	links map[string]*entity.InviteLink
}

func NewMemory() *Memory {
	return &Memory{links: make(map[string]*entity.InviteLink)}
}

func (m *Memory) Close() {}

func (m *Memory) Insert(_ context.Context, link *entity.InviteLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.links[link.LinkID]; ok {
		return entity.ErrDuplicateLink
	}
	m.links[link.LinkID] = clone(link)
	return nil
}

func (m *Memory) GetByID(_ context.Context, linkID string) (*entity.InviteLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[linkID]
	if !ok {
		return nil, nil
	}
	return clone(link), nil
}

func (m *Memory) ListByGuild(_ context.Context, guildID string) ([]*entity.InviteLink, error) {
	return m.filter(func(l *entity.InviteLink) bool { return l.GuildID == guildID }), nil
}

func (m *Memory) ListByCreator(_ context.Context, userID string) ([]*entity.InviteLink, error) {
	return m.filter(func(l *entity.InviteLink) bool { return l.CreatedByUserID == userID }), nil
}

func (m *Memory) DeleteByID(_ context.Context, linkID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.links[linkID]; !ok {
		return false, nil
	}
	delete(m.links, linkID)
	return true, nil
}

func (m *Memory) IncrementUses(_ context.Context, linkID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[linkID]
	if !ok {
		return false, nil
	}
	link.CurrentUses++
	return true, nil
}

func (m *Memory) filter(keep func(*entity.InviteLink) bool) []*entity.InviteLink {
	m.mu.Lock()
	defer m.mu.Unlock()
	var links []*entity.InviteLink
	for _, l := range m.links {
		if keep(l) {
			links = append(links, clone(l))
		}
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].CreatedAtUnix == links[j].CreatedAtUnix {
			return links[i].LinkID < links[j].LinkID
		}
		return links[i].CreatedAtUnix > links[j].CreatedAtUnix
	})
	return links
}

func clone(l *entity.InviteLink) *entity.InviteLink {
	c := *l
	if l.MaxUses != nil {
		n := *l.MaxUses
		c.MaxUses = &n
	}
	if l.ExpiresAtUnix != nil {
		n := *l.ExpiresAtUnix
		c.ExpiresAtUnix = &n
	}
	return &c
}
