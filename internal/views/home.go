package views

import (
	"context"
	"io"

	"github.com/a-h/templ"
	"github.com/klkchan/klkchan/internal/config"
	"github.com/klkchan/klkchan/internal/models"
)

// BoardSource loads a page of boards
type BoardSource interface {
	ListBoards(ctx context.Context, cursor int64, limit int) (models.CursorPage[*models.Board], error)
}

// ThreadSource loads the currently popular threads
type ThreadSource interface {
	PopularThreads(ctx context.Context, limit int) ([]*models.Post, error)
}

// HomePage renders boardList then popularThreads. A failing child ends the render
// and its error is returned as is.
func HomePage(boardList, popularThreads templ.Component) templ.Component {
	return templ.Join(boardList, popularThreads)
}

// BoardList renders one page of boards, the first one unless Cursor is set
type BoardList struct {
	Source BoardSource
	Cursor int64
	Limit  int
}

func (b BoardList) Render(ctx context.Context, w io.Writer) error {
	page, err := b.Source.ListBoards(ctx, b.Cursor, b.Limit)
	if err != nil {
		return err
	}

	h := &htmlWriter{w: w}
	h.raw(`<section class="board-list"><h2>Boards</h2>`)
	if len(page.Items) == 0 {
		h.raw(`<p class="empty">No boards yet.</p>`)
	} else {
		h.raw(`<ul>`)
		for _, board := range page.Items {
			h.raw(`<li class="board">`)
			h.link("/boards/"+itoa(board.ID), board.Name)
			if board.Description != "" {
				h.raw(` <span class="description">`)
				h.text(board.Description)
				h.raw(`</span>`)
			}
			h.raw(` <span class="count">`)
			h.num(board.PostCount)
			h.raw(` posts</span></li>`)
		}
		h.raw(`</ul>`)
		if page.HasMore() {
			h.link("/boards?cursor="+itoa(page.NextCursor), "More boards")
		}
	}
	h.raw(`</section>`)
	return h.err
}

// PopularThreads renders the hottest threads across all boards
type PopularThreads struct {
	Source ThreadSource
	Limit  int
}

func (p PopularThreads) Render(ctx context.Context, w io.Writer) error {
	limit := p.Limit
	if limit <= 0 {
		limit = config.DefaultPopularLimit
	}
	posts, err := p.Source.PopularThreads(ctx, limit)
	if err != nil {
		return err
	}

	h := &htmlWriter{w: w}
	h.raw(`<section class="popular-threads"><h2>Popular threads</h2>`)
	if len(posts) == 0 {
		h.raw(`<p class="empty">Nothing popular right now.</p>`)
	} else {
		h.raw(`<ol>`)
		for _, post := range posts {
			h.raw(`<li class="thread">`)
			if post.Sticky {
				h.raw(`<span class="sticky">sticky</span> `)
			}
			h.link("/posts/"+itoa(post.ID), post.Title)
			h.raw(` <span class="board">`)
			h.text(post.BoardName)
			h.raw(`</span> <span class="score">`)
			h.num(post.Score)
			h.raw(` points</span> <span class="comments">`)
			h.num(post.CommentCount)
			h.raw(` comments</span></li>`)
		}
		h.raw(`</ol>`)
	}
	h.raw(`</section>`)
	return h.err
}
