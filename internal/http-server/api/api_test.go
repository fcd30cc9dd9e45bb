package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rolelink/entity"
	"rolelink/internal/config"
	"rolelink/internal/ratelimit"
	"rolelink/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCore struct {
	resolveErr  error
	authErr     error
	callbackErr error
	returning   bool

	lastSID   string
	lastState string
	lastCode  string
}

func (f *fakeCore) Resolve(_ context.Context, sid, linkID string) (*entity.Invitation, error) {
	f.lastSID = sid
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return &entity.Invitation{
		Link:  &entity.InviteLink{LinkID: linkID},
		Guild: &entity.Guild{ID: "100", Name: "Gophers"},
		Role:  &entity.Role{ID: "200", Name: "Contributor"},
	}, nil
}

func (f *fakeCore) Authorize(_ context.Context, sid string) (string, error) {
	f.lastSID = sid
	if f.authErr != nil {
		return "", f.authErr
	}
	return "https://discord.com/oauth2/authorize?state=abc", nil
}

func (f *fakeCore) Callback(_ context.Context, sid, state, code string) (*entity.Redemption, error) {
	f.lastSID, f.lastState, f.lastCode = sid, state, code
	if f.callbackErr != nil {
		return nil, f.callbackErr
	}
	return &entity.Redemption{Username: "alice", RoleName: "Contributor", IsReturning: f.returning}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Session: config.SessionConfig{CookieName: "rolelink_session", TTL: 10 * time.Minute},
	}
}

func newTestRouter(core *fakeCore, max int) http.Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(testConfig(), log, core, ratelimit.NewSlidingWindow(time.Minute, max))
}

func get(t *testing.T, h http.Handler, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLanding(t *testing.T) {
	rec := get(t, newTestRouter(&fakeCore{}, 20), "/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/join/")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestJoinConfirmationPage(t *testing.T) {
	core := &fakeCore{}
	rec := get(t, newTestRouter(core, 20), "/join/abcdefghij")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Gophers")
	assert.Contains(t, body, "Contributor")
	assert.Contains(t, body, `href="/authorize"`)
	assert.Contains(t, body, ">G<", "initial shown without icon")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "rolelink_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, cookies[0].Value, core.lastSID)
}

func TestSessionCookieReused(t *testing.T) {
	core := &fakeCore{}
	h := newTestRouter(core, 20)
	first := get(t, h, "/join/abcdefghij")
	cookie := first.Result().Cookies()[0]

	rec := get(t, h, "/authorize", cookie)
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, cookie.Value, core.lastSID)

	rec = get(t, h, "/authorize", &http.Cookie{Name: "rolelink_session", Value: "not-a-uuid"})
	require.Len(t, rec.Result().Cookies(), 1)
	assert.NotEqual(t, "not-a-uuid", core.lastSID)
}

func TestJoinInvalidLink(t *testing.T) {
	rec := get(t, newTestRouter(&fakeCore{resolveErr: entity.ErrLinkInvalid}, 20), "/join/abcdefghij")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid or expired link, please restart.")
}

func TestJoinTransientFailure(t *testing.T) {
	core := &fakeCore{resolveErr: entity.Upstream("get guild", io.ErrUnexpectedEOF)}
	rec := get(t, newTestRouter(core, 20), "/join/abcdefghij")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Temporary error, please retry later.")
	assert.NotContains(t, body, "unexpected EOF")
}

func TestAuthorizeRedirects(t *testing.T) {
	rec := get(t, newTestRouter(&fakeCore{}, 20), "/authorize")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "https://discord.com/oauth2/authorize"))
}

func TestAuthorizeWithoutSlot(t *testing.T) {
	rec := get(t, newTestRouter(&fakeCore{authErr: session.ErrNoSlot}, 20), "/authorize")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid or expired link")
}

func TestCallbackSuccess(t *testing.T) {
	core := &fakeCore{returning: true}
	rec := get(t, newTestRouter(core, 20), "/callback?code=c0de&state=st4te")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome back, alice!")
	assert.Equal(t, "st4te", core.lastState)
	assert.Equal(t, "c0de", core.lastCode)
}

func TestCallbackNewMember(t *testing.T) {
	rec := get(t, newTestRouter(&fakeCore{}, 20), "/callback?code=c0de&state=st4te")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome, alice!")
}

func TestCallbackRejected(t *testing.T) {
	for _, err := range []error{session.ErrStateMismatch, session.ErrNoSlot, entity.ErrLinkInvalid} {
		rec := get(t, newTestRouter(&fakeCore{callbackErr: err}, 20), "/callback?code=c0de&state=forged")
		assert.Equal(t, http.StatusBadRequest, rec.Code, err.Error())
	}
}

func TestCallbackUpstreamFailure(t *testing.T) {
	core := &fakeCore{callbackErr: entity.Upstream("exchange code", io.EOF)}
	rec := get(t, newTestRouter(core, 20), "/callback?code=c0de&state=st4te")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Temporary error, please retry later.")
}

func TestRateLimit(t *testing.T) {
	h := newTestRouter(&fakeCore{}, 3)
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(t, h, "/").Code)
	}
	rec := get(t, h, "/")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many requests", rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.20:4000"
	other := httptest.NewRecorder()
	h.ServeHTTP(other, req)
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestRateLimitIgnoresRotatedForwardedFor(t *testing.T) {
	h := newTestRouter(&fakeCore{}, 3)
	allowed := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			allowed++
		}
	}
	assert.Equal(t, 3, allowed)
}

func TestRateLimitBehindTrustedProxy(t *testing.T) {
	conf := testConfig()
	conf.RateLimit.TrustForwarded = true
	h := NewRouter(conf, slog.New(slog.NewTextHandler(io.Discard, nil)), &fakeCore{}, ratelimit.NewSlidingWindow(time.Minute, 1))

	send := func(xff string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:8080"
		req.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, send("203.0.113.7"))
	// a client-supplied prefix does not change the hop the proxy appended
	assert.Equal(t, http.StatusTooManyRequests, send("1.2.3.4, 203.0.113.7"))
	assert.Equal(t, http.StatusOK, send("198.51.100.4"))
}

func TestNotFound(t *testing.T) {
	rec := get(t, newTestRouter(&fakeCore{}, 20), "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
