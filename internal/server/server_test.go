package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Jay160412/jay-website/internal/config"
	"github.com/Jay160412/jay-website/internal/game"
	"github.com/Jay160412/jay-website/internal/model"
	"github.com/Jay160412/jay-website/internal/notify"
	"github.com/Jay160412/jay-website/internal/pkg/auth"
	"github.com/Jay160412/jay-website/internal/pkg/kv"
	"github.com/Jay160412/jay-website/internal/pkg/lock"
	"github.com/Jay160412/jay-website/internal/remote"
	"github.com/Jay160412/jay-website/internal/repository"
	"github.com/Jay160412/jay-website/internal/service"
	"github.com/Jay160412/jay-website/internal/shop"
)

type testEnv struct {
	handler http.Handler
	hub     *notify.Hub
	tokens  *auth.Tokens
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := kv.NewMemory()
	tableLocks := lock.New()
	userLocks := lock.New()
	games := game.NewDefaultRegistry()
	hub := notify.NewHub()
	t.Cleanup(hub.Close)

	tokens, err := auth.NewTokens("secret", "arcade", time.Hour)
	require.NoError(t, err)

	users := repository.NewUserRepository(store, tableLocks)
	skins := repository.NewSkinRepository(store, tableLocks, shop.SkinFamilies(), shop.DefaultSkin)
	economy := service.NewEconomyService(users, skins, hub, userLocks)
	highscores := service.NewHighscoreService(repository.NewHighscoreRepository(store, tableLocks), nil, games, 10)

	srv, err := New(&Dependencies{
		Config:             &config.Config{Server: config.ServerConfig{Addr: ":0"}},
		Tokens:             tokens,
		GameRegistry:       games,
		AccountService:     service.NewAccountService(users, auth.Plaintext{}, tokens, userLocks, 100),
		EconomyService:     economy,
		HighscoreService:   highscores,
		MissionService:     service.NewMissionService(economy, games, 10),
		LeaderboardService: service.NewLeaderboardService(highscores, users),
		Coins:              hub,
	})
	require.NoError(t, err)

	return &testEnv{handler: srv.Handler(), hub: hub, tokens: tokens}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(t *testing.T, username string) service.Session {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"username": username, "password": "pw"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var session service.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	return session
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestServer_RegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	session := env.register(t, "alice")
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, int64(100), session.User.Coins)

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"username": "alice", "password": "other"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "this username is already taken", decode[map[string]string](t, rec)["error"])

	rec = env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"username": "", "password": "pw"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "wrong username or password", decode[map[string]string](t, rec)["error"])

	rec = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice", "password": "pw"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/users/alice", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = env.do(t, http.MethodGet, "/api/users/ghost", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_MalformedBody(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_AccountRoutesNeedOwnerToken(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	rec := env.do(t, http.MethodPost, "/api/users/alice/coins", "", map[string]int64{"delta": 10})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/users/alice/coins", "garbage", map[string]int64{"delta": 10})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/users/alice/coins", bob.Token, map[string]int64{"delta": 10})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/users/alice/coins", alice.Token, map[string]int64{"delta": -150})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(0), decode[model.PublicUser](t, rec).Coins)
}

func TestServer_ShopFlow(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")

	rec := env.do(t, http.MethodGet, "/api/shop", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	catalog := decode[shop.Catalog](t, rec)
	assert.NotEmpty(t, catalog.Cosmetics)

	rec = env.do(t, http.MethodPost, "/api/users/alice/cosmetics/gold_name", alice.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "insufficient coins", decode[map[string]string](t, rec)["error"])

	rec = env.do(t, http.MethodPost, "/api/users/alice/cosmetics/blue_name", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(0), decode[model.PublicUser](t, rec).Coins)

	rec = env.do(t, http.MethodPost, "/api/users/alice/cosmetics/blue_name", alice.Token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/users/alice/cosmetics/unknown", alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/users/alice/cosmetics/active", alice.Token, map[string]string{"cosmeticId": "gold_name"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode[map[string]any](t, rec)["updated"])

	rec = env.do(t, http.MethodPut, "/api/users/alice/cosmetics/active", alice.Token, map[string]string{"cosmeticId": "blue_name"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[map[string]any](t, rec)
	assert.Equal(t, true, resp["updated"])
	assert.Equal(t, "blue_name", resp["activeCosmetic"])

	rec = env.do(t, http.MethodGet, "/api/users/alice/data", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode[model.UserData](t, rec)
	assert.Equal(t, []string{shop.DefaultSkin}, data.OwnedSkins["snake"])
	assert.Equal(t, shop.DefaultSkin, data.ActiveSkins["snake"])

	rec = env.do(t, http.MethodPut, "/api/users/alice/skins/snake/active", alice.Token, map[string]string{"skin": "neon"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/users/alice/skins/snake/neon", alice.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ScoresAndRewards(t *testing.T) {
	env := newTestEnv(t)
	bob := env.register(t, "bob")

	rec := env.do(t, http.MethodPost, "/api/games/snake/scores", "", map[string]int64{"score": 50})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/games/snake/scores", bob.Token, map[string]int64{"score": 50})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[map[string]any](t, rec)
	assert.Equal(t, true, resp["improved"])
	assert.Equal(t, float64(5), resp["reward"])

	rec = env.do(t, http.MethodPost, "/api/games/snake/scores", bob.Token, map[string]int64{"score": 30})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode[map[string]any](t, rec)["improved"])

	rec = env.do(t, http.MethodPost, "/api/games/snake/scores", bob.Token, map[string]any{"username": "eve", "score": 30})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/games/pong/scores", bob.Token, map[string]int64{"score": 30})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/games/snake/scores", bob.Token, map[string]int64{"score": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/games/quiz/progress", bob.Token, map[string]int64{"value": 25})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decode[map[string]any](t, rec)["reward"])

	rec = env.do(t, http.MethodGet, "/api/users/bob", "", nil)
	assert.Equal(t, int64(100+5+3+2), decode[model.PublicUser](t, rec).Coins)

	rec = env.do(t, http.MethodGet, "/api/games/snake/highscores", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	top := decode[map[string][]model.HighscoreEntry](t, rec)["highscores"]
	require.Len(t, top, 1)
	assert.Equal(t, int64(50), top[0].Score)

	rec = env.do(t, http.MethodGet, "/api/games/snake/leaderboard?limit=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	board := decode[map[string][]model.LeaderboardEntry](t, rec)["leaderboard"]
	require.Len(t, board, 1)
	assert.Equal(t, 1, board[0].Rank)

	rec = env.do(t, http.MethodGet, "/api/highscores", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode[map[string][]model.HighscoreEntry](t, rec), "snake")

	rec = env.do(t, http.MethodGet, "/api/games/snake/tracks", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[model.TrackReport](t, rec).RemoteAvailable)
}

func TestServer_ScoreOfUnknownUserIsNotStored(t *testing.T) {
	env := newTestEnv(t)

	token, _, err := env.tokens.Issue("ghost")
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/api/games/snake/scores", token, map[string]int64{"score": 70})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/games/snake/highscores", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[map[string][]model.HighscoreEntry](t, rec)["highscores"])

	rec = env.do(t, http.MethodGet, "/api/games/snake/leaderboard", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[map[string][]model.LeaderboardEntry](t, rec)["leaderboard"])
}

func TestServer_CatalogRoutes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/games", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]game.Info](t, rec)["games"], 8)

	rec = env.do(t, http.MethodGet, "/api/users/anyone/missions", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]model.Mission](t, rec)["missions"], 3)

	rec = env.do(t, http.MethodGet, "/api/global-highscores", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[map[string]any](t, rec)
	assert.Equal(t, false, resp["available"])
	assert.Equal(t, []any{}, resp["highscores"])

	rec = env.do(t, http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_TraceID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/games", "", nil)
	assert.NotEmpty(t, rec.Header().Get(TraceIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/api/games", nil)
	req.Header.Set(TraceIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(TraceIDHeader))
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal error")
}

func TestServer_CoinStream(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	env.register(t, "bob")

	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/coins?username=alice"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return env.hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	env.hub.Publish(model.CoinEvent{Username: "bob", Coins: 1})
	rec := env.do(t, http.MethodPost, "/api/users/alice/coins", alice.Token, map[string]int64{"delta": 25})
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev model.CoinEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, model.CoinEvent{Username: "alice", Coins: 125}, ev)
}

func TestServer_CoinStreamRejectsForeignOrigin(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/coins"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example.net"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {ts.URL}})
	require.NoError(t, err)
	conn.Close()
}

// TestRequireSelfProperty checks that an account route is reachable only with
// a token issued for the same username.
func TestRequireSelfProperty(t *testing.T) {
	env := newTestEnv(t)

	rapid.Check(t, func(t *rapid.T) {
		owner := rapid.StringMatching(`[a-z]{1,8}`).Draw(t, "owner")
		target := rapid.StringMatching(`[a-z]{1,8}`).Draw(t, "target")

		token, _, err := env.tokens.Issue(owner)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}

		req := httptest.NewRequest(http.MethodPost, "/api/users/"+target+"/coins", strings.NewReader(`{"delta":1}`))
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)

		switch {
		case owner != target && rec.Code != http.StatusForbidden:
			t.Fatalf("token of %q reached %q: status %d", owner, target, rec.Code)
		case owner == target && rec.Code == http.StatusForbidden:
			t.Fatalf("owner %q rejected", owner)
		}
	})
}

type healthyDB struct{ err error }

func (d healthyDB) HealthCheck(context.Context) error { return d.err }

type memoryGlobalStore struct {
	best map[string]model.GlobalHighscore
	fail bool
}

func (m *memoryGlobalStore) Submit(_ context.Context, g, username string, score int64) (*model.GlobalHighscore, bool, error) {
	if m.fail {
		return nil, false, assert.AnError
	}
	key := g + "/" + username
	cur, ok := m.best[key]
	if ok && cur.Score >= score {
		return &cur, false, nil
	}
	hs := model.GlobalHighscore{Username: username, Score: score, Game: g, Timestamp: time.Now()}
	m.best[key] = hs
	return &hs, true, nil
}

func (m *memoryGlobalStore) List(_ context.Context, g string, limit int) ([]model.GlobalHighscore, error) {
	if m.fail {
		return nil, assert.AnError
	}
	out := []model.GlobalHighscore{}
	for _, hs := range m.best {
		if (g == "" || hs.Game == g) && len(out) < limit {
			out = append(out, hs)
		}
	}
	return out, nil
}

func TestGlobalServer(t *testing.T) {
	store := &memoryGlobalStore{best: map[string]model.GlobalHighscore{}}
	h := NewGlobal(config.ServerConfig{Addr: ":0"}, store, 100, healthyDB{}).Handler()

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/highscores", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := post(`{"game":"snake","username":"ann","score":40}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[map[string]any](t, rec)
	assert.Equal(t, true, resp["success"])

	rec = post(`{"game":"snake","username":"ann","score":10}`)
	require.Equal(t, http.StatusOK, rec.Code)
	stored := decode[remote.SubmitResponse](t, rec)
	require.NotNil(t, stored.Highscore)
	assert.Equal(t, int64(40), stored.Highscore.Score)

	for _, body := range []string{
		`{"game":"","username":"ann","score":1}`,
		`{"game":"snake","username":" ","score":1}`,
		`{"game":"snake","username":"ann","score":-1}`,
		`not json`,
	} {
		rec = post(body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.NotEmpty(t, decode[map[string]string](t, rec)["error"])
	}

	req := httptest.NewRequest(http.MethodGet, "/api/highscores?game=snake&limit=500", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Len(t, decode[map[string][]model.GlobalHighscore](t, rec)["highscores"], 1)

	store.fail = true
	rec = post(`{"game":"snake","username":"ann","score":99}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed to store highscore", decode[map[string]string](t, rec)["error"])
}

func TestGlobalServer_Healthz(t *testing.T) {
	store := &memoryGlobalStore{best: map[string]model.GlobalHighscore{}}

	rec := httptest.NewRecorder()
	NewGlobal(config.ServerConfig{Addr: ":0"}, store, 100, healthyDB{}).Handler().
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])

	rec = httptest.NewRecorder()
	NewGlobal(config.ServerConfig{Addr: ":0"}, store, 100, healthyDB{err: assert.AnError}).Handler().
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
