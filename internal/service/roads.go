package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	domainauth "github.com/target/municipal-portal/internal/domain/auth"
	"github.com/target/municipal-portal/internal/domain/roads"
	apperrors "github.com/target/municipal-portal/internal/errors"
	"github.com/target/municipal-portal/internal/poller"
	"github.com/target/municipal-portal/internal/ports"
)

// DatasetPollerName is the poller subscriber that keeps the dataset warm.
const DatasetPollerName = "dataset"

// RoadsServiceOptions groups dependencies for RoadsService.
type RoadsServiceOptions struct {
	Source ports.DatasetSource
	// MaxAge is how long a snapshot is served before a request refetches it.
	MaxAge time.Duration
	Logger *slog.Logger
}

// Snapshot is one parsed copy of the dataset.
type Snapshot struct {
	Records   []roads.Record
	FetchedAt time.Time
}

// DatasetQuery selects a page of the dataset.
type DatasetQuery struct {
	Filter roads.Filter
	// Sort is empty to keep sheet order.
	Sort     roads.Column
	Desc     bool
	Page     int
	PageSize int
}

// DatasetView is what the dashboard renders.
type DatasetView struct {
	Page roads.Page
	// Summary covers the filtered rows.
	Summary roads.Summary
	// Estados are the state options across the whole dataset.
	Estados   []string
	FetchedAt time.Time
	// Stale is set when the backend was unreachable and an older snapshot is shown.
	Stale bool
}

// RoadsService caches the rural-road dataset and answers dashboard queries.
type RoadsService struct {
	source ports.DatasetSource
	maxAge time.Duration
	logger *slog.Logger
	now    func() time.Time

	group singleflight.Group

	mu       sync.RWMutex
	snapshot *Snapshot
}

// NewRoadsService constructs a new RoadsService.
func NewRoadsService(opts RoadsServiceOptions) *RoadsService {
	if opts.Source == nil {
		panic("RoadsService requires a dataset source")
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RoadsService{
		source: opts.Source,
		maxAge: opts.MaxAge,
		logger: logger.With("component", "roads"),
		now:    time.Now,
	}
}

func (s *RoadsService) cached() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Refresh fetches and parses the dataset with token and replaces the snapshot.
// Concurrent refreshes with the same token share one backend call.
func (s *RoadsService) Refresh(ctx context.Context, token string) (Snapshot, error) {
	v, err, _ := s.group.Do("dataset:"+token, func() (any, error) {
		rows, err := s.source.FetchDataset(ctx, token)
		if err != nil {
			return nil, err
		}
		snap := &Snapshot{Records: roads.ParseRows(rows), FetchedAt: s.now()}
		s.mu.Lock()
		s.snapshot = snap
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "dataset refreshed", "records", len(snap.Records))
		return snap, nil
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("refresh dataset: %w", err)
	}
	snap, ok := v.(*Snapshot)
	if !ok {
		return Snapshot{}, apperrors.Internal("refresh dataset: unexpected result")
	}
	return *snap, nil
}

// Snapshot returns a snapshot no older than MaxAge, fetching one on behalf of
// c when needed. When the backend is unreachable an older snapshot is
// returned with stale set.
func (s *RoadsService) Snapshot(ctx context.Context, c Caller) (snap Snapshot, stale bool, err error) {
	current := s.cached()
	if current != nil && s.now().Sub(current.FetchedAt) < s.maxAge {
		return *current, false, nil
	}
	fresh, err := withCaller(ctx, c, func(token string) (Snapshot, error) {
		return s.Refresh(ctx, token)
	})
	if err != nil {
		if current != nil && apperrors.IsNetwork(err) {
			s.logger.WarnContext(ctx, "serving stale dataset", "error", err, "fetched_at", current.FetchedAt)
			return *current, true, nil
		}
		return Snapshot{}, false, err
	}
	return fresh, false, nil
}

// Query filters, sorts and paginates the dataset.
func (s *RoadsService) Query(ctx context.Context, c Caller, q DatasetQuery) (DatasetView, error) {
	snap, stale, err := s.Snapshot(ctx, c)
	if err != nil {
		return DatasetView{}, err
	}
	rows := s.selectRows(snap, q)
	return DatasetView{
		Page:      roads.Paginate(rows, q.Page, q.PageSize),
		Summary:   roads.Summarize(rows),
		Estados:   roads.Summarize(snap.Records).Estados,
		FetchedAt: snap.FetchedAt,
		Stale:     stale,
	}, nil
}

// Export returns every row matching q in display order, ignoring pagination.
func (s *RoadsService) Export(ctx context.Context, c Caller, q DatasetQuery) ([]roads.Record, error) {
	snap, _, err := s.Snapshot(ctx, c)
	if err != nil {
		return nil, err
	}
	return s.selectRows(snap, q), nil
}

func (s *RoadsService) selectRows(snap Snapshot, q DatasetQuery) []roads.Record {
	rows := roads.Apply(snap.Records, q.Filter)
	if q.Sort != "" {
		roads.Sort(rows, q.Sort, q.Desc)
	}
	return rows
}

// Warmer returns a poll function that keeps the snapshot fresh using a
// service account, logging in again whenever its token is rejected.
func (s *RoadsService) Warmer(auth ports.AuthBoundary, creds domainauth.Credentials) poller.Func {
	var (
		mu    sync.Mutex
		token string
	)
	return func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		if token == "" {
			res, err := auth.Login(ctx, creds)
			if err != nil {
				return fmt.Errorf("dataset warmer login: %w", err)
			}
			token = res.Token
		}
		_, err := s.Refresh(ctx, token)
		if apperrors.IsUnauthorized(err) {
			token = ""
		}
		return err
	}
}
