package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/target/municipal-portal/internal/domain/leadership"
	"github.com/target/municipal-portal/internal/domain/orders"
	"github.com/target/municipal-portal/internal/ports"
)

// LeadershipServiceOptions groups dependencies for LeadershipService.
type LeadershipServiceOptions struct {
	Requests       ports.LeadershipRepository
	Municipalities ports.MunicipalityDirectory
	Logger         *slog.Logger
}

// LeadershipService manages leadership requests and the municipality directory.
type LeadershipService struct {
	requests       ports.LeadershipRepository
	municipalities ports.MunicipalityDirectory
	logger         *slog.Logger
}

// NewLeadershipService constructs a new LeadershipService.
func NewLeadershipService(opts LeadershipServiceOptions) *LeadershipService {
	if opts.Requests == nil || opts.Municipalities == nil {
		panic("LeadershipService requires request and municipality repositories")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &LeadershipService{requests: opts.Requests, municipalities: opts.Municipalities, logger: logger}
}

// Municipalities lists municipalities, narrowed by an accent-insensitive query.
func (s *LeadershipService) Municipalities(ctx context.Context, c Caller, query string) ([]orders.Municipality, error) {
	list, err := withCaller(ctx, c, func(token string) ([]orders.Municipality, error) {
		return s.municipalities.ListMunicipalities(ctx, token, "")
	})
	if err != nil {
		return nil, fmt.Errorf("list municipalities: %w", err)
	}
	return orders.FilterMunicipalities(list, query), nil
}

// LeadershipOverview is the leadership page model.
type LeadershipOverview struct {
	Requests []leadership.Request
	// Municipio is the active filter, if any; Municipality is its directory
	// entry when the backend knows it.
	Municipio    string
	Municipality *orders.Municipality
}

// Overview lists requests, optionally those mentioning municipio. The
// municipality entry is loaded alongside the requests.
func (s *LeadershipService) Overview(ctx context.Context, c Caller, municipio string) (LeadershipOverview, error) {
	municipio = strings.TrimSpace(municipio)
	ov := LeadershipOverview{Municipio: municipio}

	var dir []orders.Municipality
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := withCaller(gctx, c, func(token string) ([]leadership.Request, error) {
			return s.requests.ListRequests(gctx, token)
		})
		if err != nil {
			return fmt.Errorf("list leadership requests: %w", err)
		}
		ov.Requests = filterByMunicipio(list, municipio)
		return nil
	})
	if municipio != "" {
		g.Go(func() error {
			list, err := withCaller(gctx, c, func(token string) ([]orders.Municipality, error) {
				return s.municipalities.ListMunicipalities(gctx, token, municipio)
			})
			if err != nil {
				return fmt.Errorf("load municipality: %w", err)
			}
			dir = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return LeadershipOverview{}, err
	}

	for i := range dir {
		if orders.Fold(dir[i].Nome) == orders.Fold(municipio) {
			ov.Municipality = &dir[i]
			break
		}
	}
	return ov, nil
}

// filterByMunicipio keeps requests whose lideranca mentions municipio, which
// is how requests are associated with a municipality.
func filterByMunicipio(list []leadership.Request, municipio string) []leadership.Request {
	if municipio == "" {
		return list
	}
	out := make([]leadership.Request, 0, len(list))
	for _, r := range list {
		if orders.ContainsFolded(r.Lideranca, municipio) || orders.ContainsFolded(r.Pedido, municipio) {
			out = append(out, r)
		}
	}
	return out
}

// Create validates and stores r.
func (s *LeadershipService) Create(ctx context.Context, c Caller, r leadership.Request) (leadership.Request, error) {
	r.Normalize()
	if err := r.Validate(); err != nil {
		return leadership.Request{}, err
	}
	created, err := withCaller(ctx, c, func(token string) (leadership.Request, error) {
		return s.requests.CreateRequest(ctx, token, r)
	})
	if err != nil {
		return leadership.Request{}, fmt.Errorf("create leadership request: %w", err)
	}
	s.logger.InfoContext(ctx, "leadership request created", "request_id", created.ID, "protocolo", created.Protocolo)
	return created, nil
}

// Delete removes request id.
func (s *LeadershipService) Delete(ctx context.Context, c Caller, id string) error {
	if err := withCallerErr(ctx, c, func(token string) error { return s.requests.DeleteRequest(ctx, token, id) }); err != nil {
		return fmt.Errorf("delete leadership request: %w", err)
	}
	return nil
}
