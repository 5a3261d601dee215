package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/grosnack/grosnack/internal/identity"
)

// StockReleaser returns reserved units to the stock ledger when an order is
// cancelled.
type StockReleaser interface {
	Release(ctx context.Context, productID string, qty int)
}

// MetricsRefresher rebuilds a user's derived metrics from order history.
// Cancellation invalidates the incremental metrics view, so the store asks for
// a full rebuild instead of trying to subtract the cancelled order.
type MetricsRefresher interface {
	Rebuild(ctx context.Context, userID string) error
}

// Store persists orders with a remote-first, local-fallback strategy. The
// owning user's identity shape selects the backend: server-issued (UUID)
// identities go remote, guests stay local, and any remote failure silently
// falls back to local persistence.
type Store struct {
	remote Repository // nil when no server backend is configured
	local  Repository
	stock  StockReleaser
	lg     *zap.Logger

	metrics MetricsRefresher // optional, wired after construction
}

// NewStore creates a Store. remote may be nil for a local-only deployment;
// local must not be nil.
func NewStore(remote, local Repository, stock StockReleaser, lg *zap.Logger) *Store {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Store{
		remote: remote,
		local:  local,
		stock:  stock,
		lg:     lg,
	}
}

// SetMetricsRefresher wires the metrics rebuild hook. Separate from NewStore
// because the metrics aggregator reads order history from this same store.
func (s *Store) SetMetricsRefresher(m MetricsRefresher) {
	s.metrics = m
}

// Create assigns identity and persists the order, remote-first for
// server-issued user identities with silent local fallback. It returns an
// error only when every applicable backend fails. Create has no stock side
// effects: reservation happens before checkout calls it, which keeps a
// fallback retry from double-reserving.
func (s *Store) Create(ctx context.Context, o *Order) (string, error) {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	if o.Status == "" {
		o.Status = StatusPending
	}

	if s.remote != nil && identity.IsRemote(o.UserID) {
		o.ID = uuid.New().String()
		err := s.remote.Create(ctx, o)
		if err == nil {
			return o.ID, nil
		}
		s.lg.Warn("remote order create failed, falling back to local",
			zap.String("user_id", o.UserID),
			zap.Error(err))
	}

	o.ID = identity.NewLocalOrderID()
	if err := s.local.Create(ctx, o); err != nil {
		return "", errors.Wrap(err, "create order: both backends failed")
	}
	return o.ID, nil
}

// UpdateStatus sets the order's status on whichever backend holds it. When
// the order moves into cancelled from any other status, compensating actions
// run: every line's quantity is released back to the stock ledger and the
// owner's metrics are rebuilt from history. Compensation runs even if the
// remote status write fails; in that case the new status is still recorded in
// the local cache, so status and compensation stay best-effort-consistent
// rather than transactional.
func (s *Store) UpdateStatus(ctx context.Context, id string, status Status) error {
	prev, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repoFor(id).UpdateStatus(ctx, id, status); err != nil {
		s.lg.Error("order status write failed, caching locally",
			zap.String("order_id", id),
			zap.String("status", string(status)),
			zap.Error(err))
		cached := *prev
		cached.Status = status
		if lerr := s.local.Create(ctx, &cached); lerr != nil {
			s.lg.Error("local status cache write failed", zap.String("order_id", id), zap.Error(lerr))
		}
	}

	if status == StatusCancelled && prev.Status != StatusCancelled {
		s.compensateCancellation(ctx, prev)
	}
	return nil
}

// compensateCancellation reverses the order's side effects: stock first, then
// a metrics rebuild for the owner.
func (s *Store) compensateCancellation(ctx context.Context, o *Order) {
	for _, item := range o.Items {
		s.stock.Release(ctx, item.ProductID, item.Quantity)
	}
	if s.metrics != nil {
		if err := s.metrics.Rebuild(ctx, o.UserID); err != nil {
			s.lg.Warn("metrics rebuild after cancellation failed",
				zap.String("user_id", o.UserID),
				zap.Error(err))
		}
	}
}

// ListByUser returns the user's orders, newest first. The remote backend is
// preferred for server-issued identities; the local cache serves when remote
// is unavailable or has nothing for the user.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	if s.remote != nil && identity.IsRemote(userID) {
		orders, err := s.remote.ListByUser(ctx, userID)
		if err != nil {
			s.lg.Warn("remote order list failed, using local cache",
				zap.String("user_id", userID),
				zap.Error(err))
		} else if len(orders) > 0 {
			return orders, nil
		}
	}
	return s.local.ListByUser(ctx, userID)
}

// GetByID returns a single order, routed by the id's shape.
func (s *Store) GetByID(ctx context.Context, id string) (*Order, error) {
	o, err := s.repoFor(id).GetByID(ctx, id)
	if err == nil {
		return o, nil
	}
	if s.repoFor(id) != s.local {
		// Remote order may still be present in the local cache.
		if cached, lerr := s.local.GetByID(ctx, id); lerr == nil {
			return cached, nil
		}
	}
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	return nil, errors.Wrapf(err, "get order %s", id)
}

// Clear bulk-deletes the user's orders from every applicable backend. This is
// the debug/reset path; regular flows never delete orders.
func (s *Store) Clear(ctx context.Context, userID string) error {
	if s.remote != nil && identity.IsRemote(userID) {
		if err := s.remote.DeleteByUser(ctx, userID); err != nil {
			s.lg.Warn("remote order clear failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return s.local.DeleteByUser(ctx, userID)
}

func (s *Store) repoFor(orderID string) Repository {
	if s.remote != nil && identity.IsRemoteOrderID(orderID) {
		return s.remote
	}
	return s.local
}
