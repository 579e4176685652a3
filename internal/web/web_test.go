package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"
	"github.com/klkchan/klkchan/internal/auth"
	"github.com/klkchan/klkchan/internal/cache"
	"github.com/klkchan/klkchan/internal/config"
	"github.com/klkchan/klkchan/internal/database"
	"github.com/klkchan/klkchan/internal/forum"
	"github.com/klkchan/klkchan/internal/models"
	"github.com/klkchan/klkchan/internal/moderation"
	"github.com/klkchan/klkchan/internal/views"
	"github.com/stretchr/testify/require"
)

const testPassword = "Passw0rdX"

type testEnv struct {
	db  *database.Database
	svc *forum.Service
	srv *WebServer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := database.DefaultDBConfig()
	cfg.DataDir = filepath.Join(dir, "data")
	db, err := database.OpenDatabase(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Shutdown() })

	words := filepath.Join(dir, "words")
	require.NoError(t, os.MkdirAll(words, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(words, "en.txt"), []byte("badword\n"), 0o644))
	filter, err := moderation.LoadFilter(words, "en")
	require.NoError(t, err)

	lc := cache.NewListingCache(64, time.Minute)
	t.Cleanup(lc.Stop)

	svc := forum.NewService(db, filter, lc)
	tokens := auth.NewIssuer("test-secret", "klkchan", time.Minute, time.Hour)
	srv := NewServer(svc, db, tokens, lc, &config.WebConfig{ListenPort: 11980, SiteName: "KLKCHAN"})
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return &testEnv{db: db, svc: svc, srv: srv}
}

// api sends a JSON request, token may be empty
func (e *testEnv) api(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.srv.Router.ServeHTTP(w, req)
	return w
}

// form posts a url-encoded form, cookie may be nil
func (e *testEnv) form(t *testing.T, path string, values url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	e.srv.Router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) get(t *testing.T, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	e.srv.Router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func detail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]interface{}](t, w)["detail"].(string)
}

// user registers name and returns the user plus an access token
func (e *testEnv) user(t *testing.T, name string, roles ...string) (*models.User, *auth.TokenPair) {
	t.Helper()
	ctx := context.Background()
	u, err := e.svc.Register(ctx, name, name+"@example.com", testPassword)
	require.NoError(t, err)
	for _, r := range roles {
		require.NoError(t, e.svc.GrantRole(ctx, u.ID, r))
	}
	w := e.form(t, "/api/v1/auth/login", url.Values{"username": {name}, "password": {testPassword}}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	pair := decode[auth.TokenPair](t, w)
	return u, &pair
}

func findSessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "session_id" && c.Value != "" {
			return c
		}
	}
	t.Fatalf("no session cookie in %v", w.Header())
	return nil
}

func TestHealthPingStatic(t *testing.T) {
	e := newTestEnv(t)

	w := e.get(t, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = e.get(t, "/ping", nil)
	require.Equal(t, "pong", w.Body.String())

	w = e.get(t, "/static/style.css", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/css", w.Header().Get("Content-Type"))

	w = e.get(t, "/robots.txt", nil)
	require.Contains(t, w.Body.String(), "User-agent")
}

func TestHomePage(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u, _ := e.user(t, "poster")
	b, err := e.svc.CreateBoard(ctx, forum.BoardInput{Name: "general", Description: "anything goes"})
	require.NoError(t, err)
	_, err = e.svc.CreatePost(ctx, u, forum.PostInput{BoardID: b.ID, Title: "first thread", Body: "hi"})
	require.NoError(t, err)

	w := e.get(t, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	boards := strings.Index(body, `class="board-list"`)
	popular := strings.Index(body, `class="popular-threads"`)
	require.Greater(t, boards, 0)
	require.Greater(t, popular, boards)
	require.Contains(t, body, "<title>KLKCHAN</title>")
	require.Contains(t, body, ">general</a>")
	require.Contains(t, body, ">first thread</a>")
	require.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestHomePageFailureRendersErrorPage(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.db.Shutdown())

	w := e.get(t, "/", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotContains(t, w.Body.String(), `class="popular-threads"`)
	require.Contains(t, w.Body.String(), "Page could not be rendered")
}

func TestAPIRegisterLoginMe(t *testing.T) {
	e := newTestEnv(t)

	w := e.api(t, http.MethodPost, "/api/v1/auth/register",
		map[string]string{"username": "ana", "email": "Ana@Example.com", "password": testPassword}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[map[string]interface{}](t, w)
	require.Equal(t, "ana@example.com", created["email"])

	w = e.api(t, http.MethodPost, "/api/v1/auth/register",
		map[string]string{"username": "other", "email": "ana@example.com", "password": testPassword}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Email already exists", detail(t, w))

	w = e.api(t, http.MethodPost, "/api/v1/auth/register", map[string]string{"username": "x"}, "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = e.form(t, "/api/v1/auth/login", url.Values{"username": {"ana@example.com"}, "password": {"wrong"}}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Invalid credentials", detail(t, w))

	w = e.api(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "ana", "password": testPassword}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	pair := decode[auth.TokenPair](t, w)
	require.Equal(t, "bearer", pair.TokenType)

	w = e.api(t, http.MethodGet, "/api/v1/users/me", nil, pair.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[userResponse](t, w)
	require.Equal(t, "ana", me.Username)
	require.Equal(t, []string{"user"}, me.Roles)

	w = e.api(t, http.MethodGet, "/api/v1/users/me", nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

	w = e.api(t, http.MethodGet, "/api/v1/users/me", nil, pair.RefreshToken)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.api(t, http.MethodGet, "/api/v1/users/me", nil, "garbage")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Could not validate credentials", detail(t, w))
}

func TestAPIRefreshAndLogout(t *testing.T) {
	e := newTestEnv(t)
	_, pair := e.user(t, "ana")

	w := e.api(t, http.MethodPost, "/api/v1/auth/refresh", map[string]string{"refresh_token": pair.RefreshToken}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	fresh := decode[auth.TokenPair](t, w)

	// a refresh token works once
	w = e.api(t, http.MethodPost, "/api/v1/auth/refresh", map[string]string{"refresh_token": pair.RefreshToken}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.api(t, http.MethodPost, "/api/v1/auth/logout", map[string]string{"refresh_token": fresh.RefreshToken}, fresh.AccessToken)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = e.api(t, http.MethodGet, "/api/v1/users/me", nil, fresh.AccessToken)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = e.api(t, http.MethodPost, "/api/v1/auth/refresh", map[string]string{"refresh_token": fresh.RefreshToken}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPIChangePassword(t *testing.T) {
	e := newTestEnv(t)
	_, pair := e.user(t, "ana")

	w := e.api(t, http.MethodPatch, "/api/v1/auth/change-password",
		map[string]string{"current_password": "nope", "new_password": "Another1X"}, pair.AccessToken)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Current password is incorrect", detail(t, w))

	w = e.api(t, http.MethodPatch, "/api/v1/auth/change-password",
		map[string]string{"current_password": testPassword, "new_password": "Another1X"}, pair.AccessToken)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = e.form(t, "/api/v1/auth/login", url.Values{"username": {"ana"}, "password": {"Another1X"}}, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAPIBoards(t *testing.T) {
	e := newTestEnv(t)
	_, userTok := e.user(t, "plain")
	_, modTok := e.user(t, "modder", models.RoleMod)

	w := e.api(t, http.MethodPost, "/api/v1/boards", map[string]string{"name": "general"}, userTok.AccessToken)
	require.Equal(t, http.StatusForbidden, w.Code)
	w = e.api(t, http.MethodPost, "/api/v1/boards", map[string]string{"name": "general"}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var ids []int64
	for _, name := range []string{"general", "tech", "music"} {
		w = e.api(t, http.MethodPost, "/api/v1/boards", map[string]string{"name": name}, modTok.AccessToken)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		ids = append(ids, decode[models.Board](t, w).ID)
	}

	w = e.api(t, http.MethodPost, "/api/v1/boards", map[string]string{"name": "b4dword"}, modTok.AccessToken)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Text contains banned words.", detail(t, w))

	w = e.api(t, http.MethodGet, "/api/v1/boards?limit=2", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[models.CursorPage[*models.Board]](t, w)
	require.Len(t, page.Items, 2)
	require.Equal(t, ids[1], page.NextCursor)

	w = e.api(t, http.MethodGet, "/api/v1/boards?limit=2&cursor="+strconv.FormatInt(page.NextCursor, 10), nil, "")
	page = decode[models.CursorPage[*models.Board]](t, w)
	require.Len(t, page.Items, 1)
	require.Zero(t, page.NextCursor)

	path := "/api/v1/boards/" + strconv.FormatInt(ids[0], 10)
	w = e.api(t, http.MethodPut, path, map[string]string{}, modTok.AccessToken)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "No fields to update", detail(t, w))

	w = e.api(t, http.MethodPut, path, map[string]string{"description": "talk"}, modTok.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "talk", decode[models.Board](t, w).Description)

	w = e.api(t, http.MethodDelete, path, nil, modTok.AccessToken)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = e.api(t, http.MethodGet, path, nil, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "Board not found", detail(t, w))

	w = e.api(t, http.MethodGet, "/api/v1/boards/abc", nil, "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAPIPostsCommentsVotes(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	_, anaTok := e.user(t, "ana")
	_, bobTok := e.user(t, "bob")
	_, modTok := e.user(t, "modder", models.RoleMod)
	b, err := e.svc.CreateBoard(ctx, forum.BoardInput{Name: "general"})
	require.NoError(t, err)

	w := e.api(t, http.MethodPost, "/api/v1/posts",
		map[string]interface{}{"board_id": b.ID, "title": "Hello", "body": "world"}, anaTok.AccessToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	post := decode[models.Post](t, w)
	postPath := "/api/v1/posts/" + strconv.FormatInt(post.ID, 10)

	w = e.api(t, http.MethodPut, postPath, map[string]string{"body": "mine now"}, bobTok.AccessToken)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = e.api(t, http.MethodPost, "/api/v1/comments",
		map[string]interface{}{"post_id": post.ID, "body": "nice"}, bobTok.AccessToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	comment := decode[models.Comment](t, w)

	w = e.api(t, http.MethodGet, "/api/v1/comments?post_id="+strconv.FormatInt(post.ID, 10), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[models.CursorPage[*models.Comment]](t, w).Items, 1)

	w = e.api(t, http.MethodPost, "/api/v1/interactions/votes",
		map[string]interface{}{"target_type": "post", "target_id": post.ID, "value": 1}, bobTok.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, 1, decode[models.VoteSummary](t, w).Score)

	w = e.api(t, http.MethodPost, "/api/v1/interactions/votes",
		map[string]interface{}{"target_type": "post", "target_id": post.ID, "value": 5}, bobTok.AccessToken)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = e.api(t, http.MethodGet, "/api/v1/interactions/votes/post/"+strconv.FormatInt(post.ID, 10), nil, bobTok.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[models.VoteSummary](t, w)
	require.NotNil(t, summary.UserVote)
	require.Equal(t, 1, *summary.UserVote)

	w = e.api(t, http.MethodGet, "/api/v1/threads/popular", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	popular := decode[struct{ Items []models.Post }](t, w)
	require.Len(t, popular.Items, 1)
	require.Equal(t, post.ID, popular.Items[0].ID)

	w = e.api(t, http.MethodGet, postPath, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[models.Post](t, w)
	require.Len(t, got.Comments, 1)
	require.Equal(t, 1, got.Score)

	// lock the thread, further comments are rejected
	w = e.api(t, http.MethodPost, "/api/v1/moderation/actions",
		map[string]interface{}{"target_type": "post", "target_id": post.ID, "action": "lock"}, modTok.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"applied":true}`, w.Body.String())
	w = e.api(t, http.MethodPost, "/api/v1/comments",
		map[string]interface{}{"post_id": post.ID, "body": "late"}, bobTok.AccessToken)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "Post is locked", detail(t, w))

	w = e.api(t, http.MethodDelete, "/api/v1/comments/"+strconv.FormatInt(comment.ID, 10), nil, anaTok.AccessToken)
	require.Equal(t, http.StatusForbidden, w.Code)
	w = e.api(t, http.MethodDelete, "/api/v1/comments/"+strconv.FormatInt(comment.ID, 10), nil, bobTok.AccessToken)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = e.api(t, http.MethodDelete, postPath, nil, anaTok.AccessToken)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = e.api(t, http.MethodGet, postPath, nil, "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPIRemovedContentIsHidden(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	ana, _ := e.user(t, "ana")
	bob, bobTok := e.user(t, "bob")
	_, modTok := e.user(t, "modder", models.RoleMod)
	b, err := e.svc.CreateBoard(ctx, forum.BoardInput{Name: "general"})
	require.NoError(t, err)
	gone, err := e.svc.CreatePost(ctx, ana, forum.PostInput{BoardID: b.ID, Title: "gone", Body: "secret post body"})
	require.NoError(t, err)
	kept, err := e.svc.CreatePost(ctx, ana, forum.PostInput{BoardID: b.ID, Title: "kept", Body: "fine"})
	require.NoError(t, err)
	c, err := e.svc.CreateComment(ctx, bob, forum.CommentInput{PostID: kept.ID, Body: "secret comment body"})
	require.NoError(t, err)

	for _, req := range []map[string]interface{}{
		{"target_type": "post", "target_id": gone.ID, "action": "remove"},
		{"target_type": "comment", "target_id": c.ID, "action": "remove"},
	} {
		w := e.api(t, http.MethodPost, "/api/v1/moderation/actions", req, modTok.AccessToken)
		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{"applied":true}`, w.Body.String())
	}

	boardPosts := "/api/v1/boards/" + strconv.FormatInt(b.ID, 10) + "/posts"
	keptPath := "/api/v1/posts/" + strconv.FormatInt(kept.ID, 10)
	comments := "/api/v1/comments?post_id=" + strconv.FormatInt(kept.ID, 10)

	for _, token := range []string{"", bobTok.AccessToken} {
		w := e.api(t, http.MethodGet, boardPosts, nil, token)
		require.Equal(t, http.StatusOK, w.Code)
		require.NotContains(t, w.Body.String(), "secret post body")
		page := decode[models.CursorPage[*models.Post]](t, w)
		require.Len(t, page.Items, 1)
		require.Equal(t, kept.ID, page.Items[0].ID)

		w = e.api(t, http.MethodGet, "/api/v1/posts/"+strconv.FormatInt(gone.ID, 10), nil, token)
		require.Equal(t, http.StatusNotFound, w.Code)
		require.Equal(t, "Post not found", detail(t, w))

		w = e.api(t, http.MethodGet, keptPath, nil, token)
		require.Equal(t, http.StatusOK, w.Code)
		require.NotContains(t, w.Body.String(), "secret comment body")
		post := decode[models.Post](t, w)
		require.Len(t, post.Comments, 1)
		require.True(t, post.Comments[0].Removed)

		w = e.api(t, http.MethodGet, comments, nil, token)
		require.Equal(t, http.StatusOK, w.Code)
		require.NotContains(t, w.Body.String(), "secret comment body")
	}

	w := e.api(t, http.MethodGet, boardPosts, nil, modTok.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[models.CursorPage[*models.Post]](t, w).Items, 2)
	w = e.api(t, http.MethodGet, comments, nil, modTok.AccessToken)
	require.Contains(t, w.Body.String(), "secret comment body")

	w = e.get(t, "/posts/"+strconv.FormatInt(kept.ID, 10), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "[removed]")
	require.NotContains(t, w.Body.String(), "secret comment body")
}

func TestAPIModeration(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	troll, trollTok := e.user(t, "troll")
	_, anaTok := e.user(t, "ana")
	_, modTok := e.user(t, "modder", models.RoleMod)
	b, err := e.svc.CreateBoard(ctx, forum.BoardInput{Name: "general"})
	require.NoError(t, err)
	post, err := e.svc.CreatePost(ctx, troll, forum.PostInput{BoardID: b.ID, Title: "spam", Body: "buy now"})
	require.NoError(t, err)

	w := e.api(t, http.MethodPost, "/api/v1/moderation/reports",
		map[string]interface{}{"target_type": "post", "target_id": post.ID, "reason": "spam"}, anaTok.AccessToken)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	accepted := decode[struct {
		Accepted bool
		Report   models.Report
	}](t, w)
	require.True(t, accepted.Accepted)

	w = e.api(t, http.MethodGet, "/api/v1/moderation/queue", nil, anaTok.AccessToken)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = e.api(t, http.MethodGet, "/api/v1/moderation/queue", nil, modTok.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	queue := decode[struct{ Items []models.Report }](t, w)
	require.Len(t, queue.Items, 1)

	w = e.api(t, http.MethodPost, "/api/v1/moderation/actions",
		map[string]interface{}{"target_type": "post", "target_id": post.ID, "action": "ban_user"}, modTok.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"applied":false,"error":"ban_only_for_users"}`, w.Body.String())

	w = e.api(t, http.MethodPost, "/api/v1/moderation/actions", map[string]interface{}{
		"target_type": "user", "target_id": troll.ID, "action": "ban_user", "report_id": accepted.Report.ID,
	}, modTok.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"applied":true}`, w.Body.String())

	// banned accounts lose API access
	w = e.api(t, http.MethodGet, "/api/v1/users/me", nil, trollTok.AccessToken)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = e.api(t, http.MethodGet, "/api/v1/moderation/reports?status=closed", nil, modTok.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	closed := decode[struct{ Items []models.Report }](t, w)
	require.Len(t, closed.Items, 1)
	require.Equal(t, "ban_user", closed.Items[0].Resolution)

	w = e.api(t, http.MethodGet, "/api/v1/moderation/actions", nil, modTok.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[struct{ Items []models.ModerationAction }](t, w).Items, 2)
}

func TestAPIAdmin(t *testing.T) {
	e := newTestEnv(t)
	ana, _ := e.user(t, "ana")
	_, modTok := e.user(t, "modder", models.RoleMod)
	admin, adminTok := e.user(t, "root", models.RoleAdmin)

	w := e.api(t, http.MethodGet, "/api/v1/admin/cache", nil, modTok.AccessToken)
	require.Equal(t, http.StatusForbidden, w.Code)

	e.api(t, http.MethodGet, "/api/v1/boards", nil, "")
	w = e.api(t, http.MethodGet, "/api/v1/admin/cache", nil, adminTok.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 1, decode[map[string]interface{}](t, w)["entries"])

	w = e.api(t, http.MethodPost, "/api/v1/admin/cache/clear", nil, adminTok.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 1, decode[map[string]interface{}](t, w)["entries_cleared"])

	w = e.api(t, http.MethodGet, "/api/v1/admin/users", nil, adminTok.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[struct{ Items []userResponse }](t, w).Items, 3)

	path := "/api/v1/admin/users/" + strconv.FormatInt(ana.ID, 10) + "/roles"
	w = e.api(t, http.MethodPost, path, map[string]string{"role": "mod"}, adminTok.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []string{"mod", "user"}, decode[userResponse](t, w).Roles)

	w = e.api(t, http.MethodDelete, path+"/mod", nil, adminTok.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []string{"user"}, decode[userResponse](t, w).Roles)

	w = e.api(t, http.MethodDelete, path+"/user", nil, adminTok.AccessToken)
	require.Equal(t, http.StatusBadRequest, w.Code)

	self := "/api/v1/admin/users/" + strconv.FormatInt(admin.ID, 10) + "/roles/admin"
	w = e.api(t, http.MethodDelete, self, nil, adminTok.AccessToken)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPIUserProfileAndDelete(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	ana, anaTok := e.user(t, "ana")
	bob, bobTok := e.user(t, "bob")
	admin, adminTok := e.user(t, "root", models.RoleAdmin)
	b, err := e.svc.CreateBoard(ctx, forum.BoardInput{Name: "general"})
	require.NoError(t, err)
	post, err := e.svc.CreatePost(ctx, ana, forum.PostInput{BoardID: b.ID, Title: "mine", Body: "x"})
	require.NoError(t, err)

	w := e.api(t, http.MethodPatch, "/api/v1/users/me",
		map[string]string{"display_name": "Ana M.", "bio": "hola"}, anaTok.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	me := decode[userResponse](t, w)
	require.Equal(t, "Ana M.", me.DisplayName)
	require.Equal(t, "hola", me.Bio)
	require.Equal(t, "ana", me.Username)

	w = e.api(t, http.MethodPatch, "/api/v1/users/me", map[string]string{"bio": "badword"}, anaTok.AccessToken)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Text contains banned words.", detail(t, w))
	w = e.api(t, http.MethodPatch, "/api/v1/users/me", map[string]string{"username": "bob"}, anaTok.AccessToken)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Username already exists", detail(t, w))
	w = e.api(t, http.MethodPatch, "/api/v1/users/me", map[string]string{"bio": "x"}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.api(t, http.MethodDelete, "/api/v1/users/me", nil, anaTok.AccessToken)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = e.api(t, http.MethodGet, "/api/v1/users/me", nil, anaTok.AccessToken)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = e.api(t, http.MethodGet, "/api/v1/posts/"+strconv.FormatInt(post.ID, 10), nil, "")
	require.Equal(t, http.StatusNotFound, w.Code)

	bobPath := "/api/v1/admin/users/" + strconv.FormatInt(bob.ID, 10)
	w = e.api(t, http.MethodDelete, bobPath, nil, bobTok.AccessToken)
	require.Equal(t, http.StatusForbidden, w.Code)
	w = e.api(t, http.MethodDelete, "/api/v1/admin/users/"+strconv.FormatInt(admin.ID, 10), nil, adminTok.AccessToken)
	require.Equal(t, http.StatusBadRequest, w.Code)
	w = e.api(t, http.MethodDelete, bobPath, nil, adminTok.AccessToken)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = e.api(t, http.MethodDelete, bobPath, nil, adminTok.AccessToken)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "User not found", detail(t, w))
}

func TestWebLoginCommentLogout(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u, _ := e.user(t, "ana")
	b, err := e.svc.CreateBoard(ctx, forum.BoardInput{Name: "general"})
	require.NoError(t, err)
	post, err := e.svc.CreatePost(ctx, u, forum.PostInput{BoardID: b.ID, Title: "Hello", Body: "world"})
	require.NoError(t, err)
	postPath := "/posts/" + strconv.FormatInt(post.ID, 10)

	w := e.form(t, "/login", url.Values{"login": {"ana"}, "password": {"bad"}}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "Invalid credentials")

	w = e.form(t, "/login", url.Values{"login": {"ana"}, "password": {testPassword}, "redirect": {postPath}}, nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, postPath, w.Header().Get("Location"))
	cookie := findSessionCookie(t, w)

	w = e.get(t, postPath, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Welcome back, ana")
	require.Contains(t, w.Body.String(), `action="`+postPath+`/comments"`)

	w = e.form(t, postPath+"/comments", url.Values{"body": {"a badword reply"}}, cookie)
	require.Equal(t, http.StatusSeeOther, w.Code)
	w = e.get(t, postPath, cookie)
	require.Contains(t, w.Body.String(), "Text contains banned words.")

	w = e.form(t, postPath+"/comments", url.Values{"body": {"first reply"}}, cookie)
	require.Equal(t, http.StatusSeeOther, w.Code)
	w = e.form(t, postPath+"/vote", url.Values{"value": {"1"}}, cookie)
	require.Equal(t, http.StatusSeeOther, w.Code)

	w = e.get(t, postPath, cookie)
	require.Contains(t, w.Body.String(), "first reply")
	require.Contains(t, w.Body.String(), "1 points")

	// the session cookie also authenticates the API
	w = e.get(t, "/api/v1/users/me", cookie)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.get(t, "/logout", cookie)
	require.Equal(t, http.StatusSeeOther, w.Code)
	w = e.get(t, "/", cookie)
	require.NotContains(t, w.Body.String(), `href="/logout"`)
}

func TestWebRegisterAndCreatePost(t *testing.T) {
	e := newTestEnv(t)
	b, err := e.svc.CreateBoard(context.Background(), forum.BoardInput{Name: "general"})
	require.NoError(t, err)
	boardPath := "/boards/" + strconv.FormatInt(b.ID, 10)

	w := e.form(t, "/register", url.Values{
		"username": {"nuevo"}, "email": {"nuevo@example.com"},
		"password": {testPassword}, "confirm_password": {"different1A"},
	}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "Passwords do not match")

	w = e.form(t, "/register", url.Values{
		"username": {"nuevo"}, "email": {"nuevo@example.com"},
		"password": {testPassword}, "confirm_password": {testPassword},
	}, nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	cookie := findSessionCookie(t, w)

	w = e.form(t, boardPath+"/posts", url.Values{"title": {"My thread"}, "body": {"text"}}, cookie)
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.True(t, strings.HasPrefix(w.Header().Get("Location"), "/posts/"))

	w = e.get(t, boardPath, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), ">My thread</a>")
	require.Contains(t, w.Body.String(), "by nuevo")
}

func TestWebAuthRequiredRedirects(t *testing.T) {
	e := newTestEnv(t)
	w := e.form(t, "/boards/1/posts", url.Values{"title": {"x"}}, nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/login?redirect=%2Fboards%2F1%2Fposts", w.Header().Get("Location"))

	w = e.get(t, "/boards/999", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "Board not found")
}

func TestFailedRenderKeepsFlash(t *testing.T) {
	e := newTestEnv(t)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	broken := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return errors.New("boom")
	})
	meta := views.PageMeta{Title: "Board", SiteName: "KLKCHAN", Flash: "Post created"}
	e.srv.renderPage(c, http.StatusOK, meta, broken)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Body.String(), "Page could not be rendered")
	require.Contains(t, w.Body.String(), "Post created")
	require.Contains(t, w.Body.String(), "<title>Error | KLKCHAN</title>")
}

func TestSessionCleanupPurgesStaleFlashes(t *testing.T) {
	e := newTestEnv(t)
	flashes.put("stale-session", "never read", true)
	flashes.put("live-session", "still here", false)
	flashes.mu.Lock()
	stale := flashes.byID["stale-session"]
	stale.at = time.Now().Add(-2 * database.SessionTimeout)
	flashes.byID["stale-session"] = stale
	flashes.mu.Unlock()

	e.srv.cleanupSessions()

	success, errMsg := flashes.take("stale-session")
	require.Empty(t, success)
	require.Empty(t, errMsg)
	_, errMsg = flashes.take("live-session")
	require.Equal(t, "still here", errMsg)
}

func TestStatusFor(t *testing.T) {
	testCases := []struct {
		err  error
		want int
	}{
		{forum.ErrNotFound, http.StatusNotFound},
		{forum.ErrInvalid, http.StatusBadRequest},
		{forum.ErrBannedWords, http.StatusBadRequest},
		{forum.ErrConflict, http.StatusBadRequest},
		{forum.ErrForbidden, http.StatusForbidden},
		{forum.ErrLocked, http.StatusConflict},
		{forum.ErrLockedOut, http.StatusTooManyRequests},
		{forum.ErrBadCredentials, http.StatusUnauthorized},
		{&forum.Error{Kind: forum.ErrNotFound, Detail: "Post not found"}, http.StatusNotFound},
		{context.Canceled, http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		if got := statusFor(tc.err); got != tc.want {
			t.Errorf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestSafeRedirect(t *testing.T) {
	require.Equal(t, "/", safeRedirect(""))
	require.Equal(t, "/", safeRedirect("https://evil.example"))
	require.Equal(t, "/", safeRedirect("//evil.example"))
	require.Equal(t, "/posts/1", safeRedirect("/posts/1"))
}
