package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/librarian/api"
)

// overviewConcurrency caps the list requests in flight at once
const overviewConcurrency = 4

// Overview counts the entities the backend holds
type Overview struct {
	Users     int
	Authors   int
	Books     int
	Copies    int
	Available int
	Loans     int
	OpenLoans int
	Overdue   int
	Groups    int
	Schedules int
}

// Overview lists every resource concurrently. The first failure cancels the
// remaining requests and is returned.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	var (
		out   Overview
		loans []api.Loan
		cps   []api.Copy
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(overviewConcurrency)

	count := func(dst *int, list func(context.Context) (int, error)) {
		g.Go(func() error {
			n, err := list(ctx)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}

	count(&out.Users, lengthOf(s.backend.Users.List))
	count(&out.Authors, lengthOf(s.backend.Authors.List))
	count(&out.Books, lengthOf(s.backend.Books.List))
	count(&out.Groups, lengthOf(s.backend.Groups.List))
	count(&out.Schedules, lengthOf(s.backend.Schedules.List))
	g.Go(func() error {
		var err error
		cps, err = s.backend.Copies.List(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		loans, err = s.backend.Loans.List(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.Copies = len(cps)
	for _, c := range cps {
		if c.Status == api.CopyAvailable {
			out.Available++
		}
	}

	now := time.Now()
	out.Loans = len(loans)
	for i := range loans {
		if loans[i].Returned() {
			continue
		}
		out.OpenLoans++
		if loans[i].Overdue(now) {
			out.Overdue++
		}
	}

	return &out, nil
}

func lengthOf[T any](list func(context.Context) ([]T, error)) func(context.Context) (int, error) {
	return func(ctx context.Context) (int, error) {
		items, err := list(ctx)
		return len(items), err
	}
}
