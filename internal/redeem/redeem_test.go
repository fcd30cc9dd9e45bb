package redeem

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"rolelink/entity"
	"rolelink/internal/config"
	"rolelink/internal/database"
	"rolelink/internal/issuer"
	"rolelink/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	guild       *entity.Guild
	role        *entity.Role
	guildErr    error
	exchangeErr error
	userErr     error
	joinStatus  entity.JoinStatus
	joinErr     error
	assignErr   error

	calls map[string]int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		guild:      &entity.Guild{ID: "100", Name: "Guild"},
		role:       &entity.Role{ID: "200", Name: "Member"},
		joinStatus: entity.JoinNew,
		calls:      make(map[string]int),
	}
}

func (f *fakeProvider) ExchangeCode(_ context.Context, _ string) (string, error) {
	f.calls["exchange"]++
	return "token", f.exchangeErr
}

func (f *fakeProvider) CurrentUser(_ context.Context, _ string) (*entity.User, error) {
	f.calls["user"]++
	if f.userErr != nil {
		return nil, f.userErr
	}
	return &entity.User{ID: "500", Username: "alice"}, nil
}

func (f *fakeProvider) AddGuildMember(_ context.Context, _, _, _ string, _ []string) (entity.JoinStatus, error) {
	f.calls["join"]++
	return f.joinStatus, f.joinErr
}

func (f *fakeProvider) AssignRole(_ context.Context, _, _, _ string) error {
	f.calls["assign"]++
	return f.assignErr
}

func (f *fakeProvider) Guild(_ context.Context, _ string) (*entity.Guild, error) {
	f.calls["guild"]++
	return f.guild, f.guildErr
}

func (f *fakeProvider) Role(_ context.Context, _, _ string) (*entity.Role, error) {
	f.calls["role"]++
	return f.role, nil
}

func (f *fakeProvider) upstreamCalls() int {
	return f.calls["exchange"] + f.calls["user"] + f.calls["join"] + f.calls["assign"]
}

var testNow = time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	db       *database.Memory
	provider *fakeProvider
	issuer   *issuer.Service
	svc      *Service
	sessions *session.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := database.NewMemory()
	provider := newFakeProvider()
	svc := New(db, provider, testLogger())
	svc.now = func() time.Time { return testNow }
	return &fixture{
		db:       db,
		provider: provider,
		issuer:   issuer.New(db, nil, config.IssuerConfig{}, testLogger()),
		svc:      svc,
		sessions: session.NewMemory(10 * time.Minute),
	}
}

func (f *fixture) createLink(t *testing.T, maxUses *int, expires string) string {
	t.Helper()
	link, err := f.issuer.CreateLink(context.Background(), &entity.CreateLinkRequest{
		GuildID:        "100",
		RoleID:         "200",
		ActorID:        "300",
		CanManageGuild: true,
		MaxUses:        maxUses,
		Expires:        expires,
	})
	require.NoError(t, err)
	return link.LinkID
}

func (f *fixture) seed(t *testing.T, link *entity.InviteLink) {
	t.Helper()
	link.GuildID = "100"
	link.RoleID = "200"
	require.NoError(t, f.db.Insert(context.Background(), link))
}

// pass walks the session handshake and returns the consumed slot.
func (f *fixture) pass(t *testing.T, linkID string) session.Pass {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.sessions.Put(ctx, "sid", linkID))
	state, err := f.sessions.Arm(ctx, "sid")
	require.NoError(t, err)
	pass, err := f.sessions.Take(ctx, "sid", state)
	require.NoError(t, err)
	return pass
}

// redeem resolves and redeems like a browser would.
func (f *fixture) redeem(t *testing.T, linkID string) (*entity.Redemption, error) {
	t.Helper()
	if _, err := f.svc.Resolve(context.Background(), linkID); err != nil {
		return nil, err
	}
	return f.svc.Redeem(context.Background(), f.pass(t, linkID), "code")
}

func uses(t *testing.T, db *database.Memory, linkID string) int {
	t.Helper()
	link, err := db.GetByID(context.Background(), linkID)
	require.NoError(t, err)
	require.NotNil(t, link)
	return link.CurrentUses
}

func intPtr(n int) *int {
	return &n
}

func TestSingleUseLinkScenario(t *testing.T) {
	f := newFixture(t)
	linkID := f.createLink(t, intPtr(1), "1d")

	result, err := f.redeem(t, linkID)
	require.NoError(t, err)
	assert.Equal(t, "alice", result.Username)
	assert.Equal(t, "Member", result.RoleName)
	assert.False(t, result.IsReturning)
	assert.Equal(t, 1, uses(t, f.db, linkID))

	_, err = f.redeem(t, linkID)
	assert.ErrorIs(t, err, entity.ErrLinkInvalid)
	assert.True(t, IsInvalid(err))
	assert.Equal(t, 1, uses(t, f.db, linkID))
}

func TestUnlimitedLinkScenario(t *testing.T) {
	f := newFixture(t)
	linkID := f.createLink(t, nil, "")

	for i := 1; i <= 5; i++ {
		_, err := f.redeem(t, linkID)
		require.NoError(t, err)
		assert.Equal(t, i, uses(t, f.db, linkID))
	}
}

func TestResolveRejectsUniformly(t *testing.T) {
	past := testNow.Add(-time.Minute).Unix()

	tests := []struct {
		name   string
		link   *entity.InviteLink
		mutate func(*fakeProvider)
	}{
		{name: "absent"},
		{name: "expired", link: &entity.InviteLink{LinkID: "expired000", ExpiresAtUnix: &past, MaxUses: intPtr(100)}},
		{name: "exhausted", link: &entity.InviteLink{LinkID: "exhausted0", MaxUses: intPtr(2), CurrentUses: 2}},
		{name: "guild gone", link: &entity.InviteLink{LinkID: "noguild000"}, mutate: func(p *fakeProvider) { p.guild = nil }},
		{name: "role gone", link: &entity.InviteLink{LinkID: "norole0000"}, mutate: func(p *fakeProvider) { p.role = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			linkID := "missing000"
			if tt.link != nil {
				f.seed(t, tt.link)
				linkID = tt.link.LinkID
			}
			if tt.mutate != nil {
				tt.mutate(f.provider)
			}

			inv, err := f.svc.Resolve(context.Background(), linkID)
			assert.Nil(t, inv)
			assert.Equal(t, entity.ErrLinkInvalid, err)
		})
	}
}

func TestResolveExpiresAtBoundary(t *testing.T) {
	f := newFixture(t)
	at := testNow.Unix()
	f.seed(t, &entity.InviteLink{LinkID: "boundary00", ExpiresAtUnix: &at})

	inv, err := f.svc.Resolve(context.Background(), "boundary00")
	require.NoError(t, err)
	assert.Equal(t, "Guild", inv.Guild.Name)
	assert.Equal(t, "Member", inv.Role.Name)
}

func TestResolveTransientError(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &entity.InviteLink{LinkID: "transient0"})
	f.provider.guildErr = entity.Upstream("get guild", errors.New("timeout"))

	_, err := f.svc.Resolve(context.Background(), "transient0")
	require.Error(t, err)
	assert.False(t, IsInvalid(err))
}

func TestRedeemExistingMemberRoleFailure(t *testing.T) {
	f := newFixture(t)
	linkID := f.createLink(t, nil, "")
	f.provider.joinStatus = entity.JoinExisting
	f.provider.assignErr = errors.New("missing permissions")

	_, err := f.redeem(t, linkID)
	require.Error(t, err)
	assert.False(t, IsInvalid(err))
	var ue *entity.UpstreamError
	assert.ErrorAs(t, err, &ue)
	assert.Equal(t, 0, uses(t, f.db, linkID))
}

func TestRedeemExistingMember(t *testing.T) {
	f := newFixture(t)
	linkID := f.createLink(t, nil, "")
	f.provider.joinStatus = entity.JoinExisting

	result, err := f.redeem(t, linkID)
	require.NoError(t, err)
	assert.True(t, result.IsReturning)
	assert.Equal(t, 1, f.provider.calls["assign"])
	assert.Equal(t, 1, uses(t, f.db, linkID))
}

func TestRedeemNewMemberIgnoresRoleFailure(t *testing.T) {
	f := newFixture(t)
	linkID := f.createLink(t, nil, "")
	f.provider.assignErr = errors.New("missing permissions")

	result, err := f.redeem(t, linkID)
	require.NoError(t, err)
	assert.False(t, result.IsReturning)
	assert.Equal(t, 1, uses(t, f.db, linkID))
}

func TestRedeemJoinFailure(t *testing.T) {
	f := newFixture(t)
	linkID := f.createLink(t, nil, "")
	f.provider.joinStatus = entity.JoinUnknown
	f.provider.joinErr = errors.New("connection reset")

	_, err := f.redeem(t, linkID)
	require.Error(t, err)
	assert.False(t, IsInvalid(err))
	assert.Zero(t, f.provider.calls["assign"])
	assert.Equal(t, 0, uses(t, f.db, linkID))
}

func TestRedeemExchangeFailure(t *testing.T) {
	f := newFixture(t)
	linkID := f.createLink(t, nil, "")
	f.provider.exchangeErr = errors.New("invalid_grant: code expired")

	_, err := f.redeem(t, linkID)
	require.Error(t, err)
	assert.False(t, IsInvalid(err))
	assert.Zero(t, f.provider.calls["user"])
	assert.Zero(t, f.provider.calls["join"])
}

func TestRedeemMissingCode(t *testing.T) {
	f := newFixture(t)
	linkID := f.createLink(t, nil, "")

	_, err := f.svc.Redeem(context.Background(), f.pass(t, linkID), "")
	assert.True(t, IsInvalid(err))
	assert.Zero(t, f.provider.upstreamCalls())
}

func TestRedeemRevalidates(t *testing.T) {
	f := newFixture(t)
	linkID := f.createLink(t, intPtr(1), "")

	_, err := f.svc.Resolve(context.Background(), linkID)
	require.NoError(t, err)
	pass := f.pass(t, linkID)

	// another browser used the last slot in the meantime
	_, err = f.db.IncrementUses(context.Background(), linkID)
	require.NoError(t, err)

	_, err = f.svc.Redeem(context.Background(), pass, "code")
	assert.ErrorIs(t, err, entity.ErrLinkInvalid)
	assert.Zero(t, f.provider.calls["join"])
	assert.Equal(t, 1, uses(t, f.db, linkID))
}

func TestRedeemRoleNameFallback(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &entity.InviteLink{LinkID: "fallback00"})
	pass := f.pass(t, "fallback00")
	f.provider.role = &entity.Role{ID: "200"}

	result, err := f.svc.Redeem(context.Background(), pass, "code")
	require.NoError(t, err)
	assert.Equal(t, DefaultRoleName, result.RoleName)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "role_granted", StateRoleGranted.String())
	assert.Equal(t, "rejected", StateRejected.String())
	assert.Equal(t, "unknown", State(99).String())
}
