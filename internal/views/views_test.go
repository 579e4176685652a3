package views

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/klkchan/klkchan/internal/models"
)

type fakeBoards struct {
	page  models.CursorPage[*models.Board]
	err   error
	calls int
}

func (f *fakeBoards) ListBoards(ctx context.Context, cursor int64, limit int) (models.CursorPage[*models.Board], error) {
	f.calls++
	return f.page, f.err
}

type fakeThreads struct {
	posts     []*models.Post
	err       error
	calls     int
	lastLimit int
}

func (f *fakeThreads) PopularThreads(ctx context.Context, limit int) ([]*models.Post, error) {
	f.calls++
	f.lastLimit = limit
	return f.posts, f.err
}

func sampleHome() (*fakeBoards, *fakeThreads) {
	boards := &fakeBoards{page: models.CursorPage[*models.Board]{
		Items: []*models.Board{
			{ID: 1, Name: "general", Description: "talk", PostCount: 3},
			{ID: 2, Name: "tech", PostCount: 0},
		},
		Limit: 50,
	}}
	threads := &fakeThreads{posts: []*models.Post{
		{ID: 7, Title: "hello", BoardName: "general", Score: 4, CommentCount: 2, CreatedAt: time.Now()},
	}}
	return boards, threads
}

func TestHomePageRendersBoardListThenPopularThreads(t *testing.T) {
	boards, threads := sampleHome()
	var b strings.Builder
	err := HomePage(BoardList{Source: boards}, PopularThreads{Source: threads}).Render(context.Background(), &b)
	if err != nil {
		t.Fatalf("Render() = %v", err)
	}
	got := b.String()

	if n := strings.Count(got, "<section"); n != 2 {
		t.Fatalf("expected exactly two sections, got %d in %q", n, got)
	}
	first := strings.Index(got, `class="board-list"`)
	second := strings.Index(got, `class="popular-threads"`)
	if first != len("<section ") || second < first {
		t.Fatalf("expected board list first then popular threads, got %q", got)
	}
	if !strings.Contains(got, `href="/boards/1">general</a>`) {
		t.Fatalf("missing board link in %q", got)
	}
	if !strings.Contains(got, `href="/posts/7">hello</a>`) {
		t.Fatalf("missing thread link in %q", got)
	}
	if threads.lastLimit != 10 {
		t.Fatalf("default popular limit = %d, want 10", threads.lastLimit)
	}
}

func TestHomePageIsIdempotent(t *testing.T) {
	boards, threads := sampleHome()
	home := HomePage(BoardList{Source: boards}, PopularThreads{Source: threads})

	var first, second strings.Builder
	if err := home.Render(context.Background(), &first); err != nil {
		t.Fatalf("first Render() = %v", err)
	}
	if err := home.Render(context.Background(), &second); err != nil {
		t.Fatalf("second Render() = %v", err)
	}
	if first.String() != second.String() {
		t.Fatalf("renders differ:\n%s\n%s", first.String(), second.String())
	}
	if boards.calls != 2 || threads.calls != 2 {
		t.Fatalf("children should load on every render, got %d/%d", boards.calls, threads.calls)
	}
}

func TestHomePageStopsAtFailingBoardList(t *testing.T) {
	boom := errors.New("boards unavailable")
	boards := &fakeBoards{err: boom}
	threads := &fakeThreads{}

	var b strings.Builder
	err := HomePage(BoardList{Source: boards}, PopularThreads{Source: threads}).Render(context.Background(), &b)
	if !errors.Is(err, boom) {
		t.Fatalf("Render() = %v, want %v", err, boom)
	}
	if threads.calls != 0 {
		t.Fatalf("popular threads rendered after a failing board list")
	}
	if b.Len() != 0 {
		t.Fatalf("expected no output, got %q", b.String())
	}
}

func TestHomePagePropagatesPopularThreadsError(t *testing.T) {
	boards, _ := sampleHome()
	boom := errors.New("ranking failed")
	var b strings.Builder
	err := HomePage(BoardList{Source: boards}, PopularThreads{Source: &fakeThreads{err: boom}}).Render(context.Background(), &b)
	if !errors.Is(err, boom) {
		t.Fatalf("Render() = %v, want %v", err, boom)
	}
	if !strings.Contains(b.String(), `class="board-list"`) {
		t.Fatalf("board list should already be written, got %q", b.String())
	}
}

func TestEmptyStates(t *testing.T) {
	var b strings.Builder
	err := HomePage(BoardList{Source: &fakeBoards{}}, PopularThreads{Source: &fakeThreads{}}).Render(context.Background(), &b)
	if err != nil {
		t.Fatalf("Render() = %v", err)
	}
	for _, want := range []string{"No boards yet.", "Nothing popular right now."} {
		if !strings.Contains(b.String(), want) {
			t.Fatalf("expected %q in %q", want, b.String())
		}
	}
}

func TestUserTextIsEscaped(t *testing.T) {
	boards := &fakeBoards{page: models.CursorPage[*models.Board]{
		Items: []*models.Board{{ID: 1, Name: `<script>alert("x")</script>`}},
	}}
	var b strings.Builder
	if err := (BoardList{Source: boards}).Render(context.Background(), &b); err != nil {
		t.Fatalf("Render() = %v", err)
	}
	if strings.Contains(b.String(), "<script>") {
		t.Fatalf("board name was not escaped: %q", b.String())
	}
	if !strings.Contains(b.String(), "&lt;script&gt;") {
		t.Fatalf("expected escaped name in %q", b.String())
	}
}

func TestBoardListMoreLink(t *testing.T) {
	boards := &fakeBoards{page: models.CursorPage[*models.Board]{
		Items:      []*models.Board{{ID: 1, Name: "a"}},
		Limit:      1,
		NextCursor: 1,
	}}
	var b strings.Builder
	if err := (BoardList{Source: boards, Limit: 1}).Render(context.Background(), &b); err != nil {
		t.Fatalf("Render() = %v", err)
	}
	if !strings.Contains(b.String(), `href="/boards?cursor=1"`) {
		t.Fatalf("expected next page link in %q", b.String())
	}
}

func TestLayout(t *testing.T) {
	user := &models.User{Username: "juan", Roles: []string{models.RoleUser, models.RoleMod}}
	meta := PageMeta{Title: "Home", SiteName: "KLKCHAN", User: user, Flash: "Welcome <back>"}

	var b strings.Builder
	if err := Layout(meta, ErrorPage(404, "Board not found")).Render(context.Background(), &b); err != nil {
		t.Fatalf("Render() = %v", err)
	}
	got := b.String()
	for _, want := range []string{
		"<title>Home | KLKCHAN</title>",
		"juan",
		`href="/logout"`,
		`<p class="flash">Welcome &lt;back&gt;</p>`,
		"<main><section class=\"error\"><h1>404 Not Found</h1><p>Board not found</p>",
		"</main><footer>",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	}
}

func TestLayoutStopsOnContentError(t *testing.T) {
	boom := errors.New("boom")
	var b strings.Builder
	err := Layout(PageMeta{SiteName: "KLKCHAN"}, BoardList{Source: &fakeBoards{err: boom}}).Render(context.Background(), &b)
	if !errors.Is(err, boom) {
		t.Fatalf("Render() = %v, want %v", err, boom)
	}
	if strings.Contains(b.String(), "<footer>") {
		t.Fatalf("footer written after a failed body: %q", b.String())
	}
}

func TestFullTitle(t *testing.T) {
	testCases := []struct {
		meta PageMeta
		want string
	}{
		{PageMeta{SiteName: "KLKCHAN"}, "KLKCHAN"},
		{PageMeta{Title: "Login", SiteName: "KLKCHAN"}, "Login | KLKCHAN"},
		{PageMeta{Title: "Login | KLKCHAN", SiteName: "KLKCHAN"}, "Login | KLKCHAN"},
		{PageMeta{Title: "Login"}, "Login"},
	}
	for _, tc := range testCases {
		if got := tc.meta.FullTitle(); got != tc.want {
			t.Errorf("FullTitle(%+v) = %q, want %q", tc.meta, got, tc.want)
		}
	}
}

func TestPostPage(t *testing.T) {
	post := &models.Post{
		ID: 3, BoardID: 1, BoardName: "general", Title: "t", Author: "ana", Body: "<b>hi</b>",
		Comments: []*models.Comment{
			{ID: 9, Author: "bob", Body: "reply"},
			{ID: 10, Author: "eve", Body: "spam", Removed: true},
		},
	}

	var anon strings.Builder
	if err := PostPage(post, nil).Render(context.Background(), &anon); err != nil {
		t.Fatalf("Render() = %v", err)
	}
	if strings.Contains(anon.String(), `action="/posts/3/comments"`) {
		t.Fatalf("anonymous visitors should not get a reply form")
	}
	if !strings.Contains(anon.String(), "&lt;b&gt;hi&lt;/b&gt;") || strings.Contains(anon.String(), ">spam<") {
		t.Fatalf("unexpected body rendering: %q", anon.String())
	}

	var logged strings.Builder
	if err := PostPage(post, &models.User{ID: 1}).Render(context.Background(), &logged); err != nil {
		t.Fatalf("Render() = %v", err)
	}
	for _, want := range []string{`action="/posts/3/comments"`, `action="/posts/3/vote"`, `value="-1"`} {
		if !strings.Contains(logged.String(), want) {
			t.Fatalf("expected %q in %q", want, logged.String())
		}
	}

	post.Locked = true
	var locked strings.Builder
	if err := PostPage(post, &models.User{ID: 1}).Render(context.Background(), &locked); err != nil {
		t.Fatalf("Render() = %v", err)
	}
	if strings.Contains(locked.String(), `action="/posts/3/comments"`) {
		t.Fatalf("locked threads should not offer a reply form")
	}
}

func TestBoardPage(t *testing.T) {
	board := &models.Board{ID: 2, Name: "general", Description: "talk & more"}
	posts := models.CursorPage[*models.Post]{
		Items: []*models.Post{
			{ID: 7, Title: "<hello>", Author: "ana", Score: 4, CommentCount: 2, Sticky: true},
			{ID: 8, Title: "gone", Author: "bob", Removed: true},
		},
		NextCursor: 7,
	}

	var b strings.Builder
	if err := BoardPage(board, posts, nil).Render(context.Background(), &b); err != nil {
		t.Fatalf("Render() = %v", err)
	}
	got := b.String()
	for _, want := range []string{
		"<h1>general</h1>",
		`<p class="description">talk &amp; more</p>`,
		`<span class="sticky">sticky</span> <a href="/posts/7">&lt;hello&gt;</a> <span class="meta">by ana, `,
		"4 points, 2 comments</span>",
		`href="/boards/2?cursor=7"`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	}
	if strings.Contains(got, "gone") || strings.Contains(got, `class="new-post"`) {
		t.Fatalf("unexpected board rendering: %q", got)
	}

	var logged strings.Builder
	if err := BoardPage(board, models.CursorPage[*models.Post]{}, &models.User{ID: 1}).Render(context.Background(), &logged); err != nil {
		t.Fatalf("Render() = %v", err)
	}
	if !strings.Contains(logged.String(), `No posts yet.`) || !strings.Contains(logged.String(), `action="/boards/2/posts"`) {
		t.Fatalf("unexpected board rendering: %q", logged.String())
	}
}

func TestLayoutAnonymous(t *testing.T) {
	meta := PageMeta{SiteName: "KLKCHAN", Version: "v1.2.0", Flash: "Bad password", IsError: true}

	var b strings.Builder
	if err := Layout(meta, LoginPage("")).Render(context.Background(), &b); err != nil {
		t.Fatalf("Render() = %v", err)
	}
	got := b.String()
	for _, want := range []string{
		"<!DOCTYPE html>",
		`<span class="user"><a href="/login">Login</a> <a href="/register">Register</a></span>`,
		`<p class="flash error">Bad password</p>`,
		"<footer>KLKCHAN v1.2.0</footer></body></html>",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	}
}
