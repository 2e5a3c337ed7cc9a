package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"pkujx.cn/library/internal/modules/stat/dto"
	"pkujx.cn/library/internal/modules/stat/repository"
	"pkujx.cn/library/pkg/apperror"
)

const (
	defaultWindowDays = 30
	defaultTopLimit   = 10
)

type StatService interface {
	Dashboard(ctx context.Context) (*dto.Dashboard, error)
	TopBorrowers(ctx context.Context, query dto.TopBorrowersQuery) ([]dto.TopBorrower, error)
}

type statService struct {
	repo repository.StatRepository
	now  func() time.Time
}

func NewStatService(repo repository.StatRepository) StatService {
	return &statService{repo: repo, now: time.Now}
}

func toMap(rows []repository.GroupCount) map[string]int64 {
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Label] = row.Total
	}
	return out
}

func (s *statService) Dashboard(ctx context.Context) (*dto.Dashboard, error) {
	var d dto.Dashboard
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := s.repo.CountUsersByRole(ctx)
		if err != nil {
			return err
		}
		d.Users.ByRole = toMap(rows)
		for _, row := range rows {
			d.Users.Total += row.Total
		}
		return nil
	})
	g.Go(func() error {
		totals, err := s.repo.BookTotals(ctx)
		if err != nil {
			return err
		}
		d.Books.Titles = totals.Titles
		d.Books.TotalCopies = totals.TotalCopies
		d.Books.AvailableCopies = totals.AvailableCopies
		return nil
	})
	g.Go(func() (err error) {
		d.Borrows.Open, err = s.repo.CountOpenBorrows(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.Borrows.Overdue, err = s.repo.CountOverdueBorrows(ctx, s.now())
		return err
	})
	g.Go(func() error {
		rows, err := s.repo.CountPostsByStatus(ctx)
		if err != nil {
			return err
		}
		d.Blog.PostsByStatus = toMap(rows)
		return nil
	})
	g.Go(func() (err error) {
		d.Blog.Topics, err = s.repo.CountTopics(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.Blog.Likes, err = s.repo.CountLikes(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, apperror.Internal(err)
	}
	return &d, nil
}

func (s *statService) TopBorrowers(ctx context.Context, query dto.TopBorrowersQuery) ([]dto.TopBorrower, error) {
	days, limit := query.Days, query.Limit
	if days == 0 {
		days = defaultWindowDays
	}
	if limit == 0 {
		limit = defaultTopLimit
	}
	if days < 1 || days > 365 {
		return nil, apperror.Validation("days must be between 1 and 365")
	}
	if limit < 1 || limit > 50 {
		return nil, apperror.Validation("limit must be between 1 and 50")
	}

	since := s.now().AddDate(0, 0, -days)
	rows, err := s.repo.TopBorrowers(ctx, since, limit)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return rows, nil
}
