package forum

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/klkchan/klkchan/internal/config"
	"github.com/klkchan/klkchan/internal/models"
)

// HotScore ranks a thread: (score + comments) / (age_hours + 2)^1.5
func HotScore(p *models.Post, now time.Time) float64 {
	age := now.Sub(p.CreatedAt).Hours()
	if age < 0 {
		age = 0
	}
	return float64(p.Score+p.CommentCount) / math.Pow(age+2, 1.5)
}

// RankPopular sorts sticky posts first, then by hot score, then newest id
func RankPopular(posts []*models.Post, now time.Time) {
	hot := make(map[int64]float64, len(posts))
	for _, p := range posts {
		hot[p.ID] = HotScore(p, now)
	}
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]
		if a.Sticky != b.Sticky {
			return a.Sticky
		}
		if hot[a.ID] != hot[b.ID] {
			return hot[a.ID] > hot[b.ID]
		}
		return a.ID > b.ID
	})
}

// PopularThreads returns the top limit public threads. Sticky posts are always
// candidates, whatever their age.
func (s *Service) PopularThreads(ctx context.Context, limit int) ([]*models.Post, error) {
	limit = ClampLimit(limit, config.DefaultPopularLimit)
	if s.cache != nil {
		if posts, ok := s.cache.GetPopular(limit); ok {
			return posts, nil
		}
	}

	posts, err := s.store.ListRecentPosts(ctx, popularCandidates)
	if err != nil {
		return nil, err
	}
	sticky, err := s.store.ListStickyPosts(ctx)
	if err != nil {
		return nil, err
	}
	posts = mergePosts(posts, sticky)
	RankPopular(posts, s.Now())
	if len(posts) > limit {
		posts = posts[:limit]
	}
	if s.cache != nil {
		s.cache.SetPopular(limit, posts)
	}
	return posts, nil
}

// mergePosts appends the posts of extra that are not in posts yet
func mergePosts(posts, extra []*models.Post) []*models.Post {
	seen := make(map[int64]bool, len(posts))
	for _, p := range posts {
		seen[p.ID] = true
	}
	for _, p := range extra {
		if !seen[p.ID] {
			seen[p.ID] = true
			posts = append(posts, p)
		}
	}
	return posts
}
