package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"inventory-service/internal/domains/inventory/model"
	"inventory-service/internal/domains/inventory/repository"
	"inventory-service/pkg/cache"
	"inventory-service/pkg/logger"
)

// ServiceInterface is the reservation engine's application API.
type ServiceInterface interface {
	Reserve(ctx context.Context, req model.ReserveRequest) (*model.ReserveResponse, error)
	Release(ctx context.Context, req model.ReleaseRequest) (*model.ReleaseResponse, error)
	Adjust(ctx context.Context, req model.AdjustRequest, source string) (*model.AdjustResponse, error)
	GetAvailableInventory(ctx context.Context, skuCode string) (*model.AvailableInventoryResponse, error)
	CreateSKU(ctx context.Context, req model.CreateSKURequest) (*model.SKU, error)
	CreateBatch(ctx context.Context, req model.CreateBatchRequest) (*model.Batch, error)
	ExpireDueReservations(ctx context.Context, limit int) (int, error)
}

type service struct {
	repo           repository.RepositoryInterface
	cache          cache.Cache
	reservationTTL time.Duration
	log            zerolog.Logger
}

// NewService creates the inventory service. reservationTTL of zero disables
// reservation expiry; reservations then stay PENDING until released.
func NewService(repo repository.RepositoryInterface, cacheClient cache.Cache, reservationTTL time.Duration) ServiceInterface {
	return &service{
		repo:           repo,
		cache:          cacheClient,
		reservationTTL: reservationTTL,
		log:            logger.Component("inventory"),
	}
}

// Reserve implements ServiceInterface.Reserve. Input validation beyond the
// DTO shape lives in the repository so it runs after the idempotency probe;
// a replay of an already-applied request must short-circuit before any rule
// gets a chance to reject it.
func (s *service) Reserve(ctx context.Context, req model.ReserveRequest) (*model.ReserveResponse, error) {
	var expiresAt *time.Time
	if s.reservationTTL > 0 {
		t := time.Now().UTC().Add(s.reservationTTL)
		expiresAt = &t
	}

	if err := s.repo.Reserve(ctx, req.OrderID, req.Lines, expiresAt); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("order_id", req.OrderID).
		Int("lines", len(req.Lines)).
		Msg("Order reserved")

	return &model.ReserveResponse{Status: "ok", OrderID: req.OrderID}, nil
}

// Release implements ServiceInterface.Release.
func (s *service) Release(ctx context.Context, req model.ReleaseRequest) (*model.ReleaseResponse, error) {
	reason := req.Reason
	if reason == "" {
		reason = "order_released"
	}

	if err := s.repo.Release(ctx, req.OrderID, reason); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("order_id", req.OrderID).
		Str("reason", reason).
		Msg("Order released")

	return &model.ReleaseResponse{Status: "ok", OrderID: req.OrderID}, nil
}

// Adjust implements ServiceInterface.Adjust. source distinguishes operator
// corrections from reconciliation writes in the ledger.
func (s *service) Adjust(ctx context.Context, req model.AdjustRequest, source string) (*model.AdjustResponse, error) {
	if req.QuantityDelta == 0 {
		return nil, fmt.Errorf("%w: adjustment delta must be non-zero", model.ErrInvalidQuantity)
	}

	newAvailable, err := s.repo.Adjust(ctx, req.BatchID, req.QuantityDelta, req.Reason, source)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("batch_id", req.BatchID).
		Int("delta", req.QuantityDelta).
		Int("new_available", newAvailable).
		Str("source", source).
		Msg("Batch adjusted")

	return &model.AdjustResponse{Status: "ok", NewAvailableQuantity: newAvailable}, nil
}

// GetAvailableInventory implements ServiceInterface.GetAvailableInventory.
// The SKU row is immutable after creation, so it is safe to cache; the batch
// quantities are always read fresh.
func (s *service) GetAvailableInventory(ctx context.Context, skuCode string) (*model.AvailableInventoryResponse, error) {
	if _, err := s.getSKUByCode(ctx, skuCode); err != nil {
		return nil, err
	}

	batches, err := s.repo.ListAvailableBatches(ctx, skuCode)
	if err != nil {
		return nil, err
	}

	resp := &model.AvailableInventoryResponse{
		SkuCode: skuCode,
		Batches: make([]model.BatchAvailability, 0, len(batches)),
	}
	for _, b := range batches {
		resp.TotalAvailable += b.AvailableQuantity
		resp.Batches = append(resp.Batches, model.BatchAvailability{
			BatchID:           b.ID,
			LotNumber:         b.LotNumber,
			ExpiresAt:         b.ExpiresAt,
			TotalQuantity:     b.TotalQuantity,
			AvailableQuantity: b.AvailableQuantity,
		})
	}

	return resp, nil
}

// CreateSKU implements ServiceInterface.CreateSKU.
func (s *service) CreateSKU(ctx context.Context, req model.CreateSKURequest) (*model.SKU, error) {
	sku := &model.SKU{Code: req.Code, Name: req.Name}
	if err := s.repo.CreateSKU(ctx, sku); err != nil {
		return nil, err
	}

	s.log.Info().Str("code", sku.Code).Int64("sku_id", sku.ID).Msg("SKU created")
	return sku, nil
}

// CreateBatch implements ServiceInterface.CreateBatch.
func (s *service) CreateBatch(ctx context.Context, req model.CreateBatchRequest) (*model.Batch, error) {
	if req.UnallocatableQuantity > req.TotalQuantity {
		return nil, fmt.Errorf("%w: unallocatable exceeds total", model.ErrInvalidQuantity)
	}

	batch := &model.Batch{
		SKUID:                 req.SKUID,
		ExternalBatchID:       req.ExternalBatchID,
		LotNumber:             req.LotNumber,
		ExpiresAt:             req.ExpiresAt,
		TotalQuantity:         req.TotalQuantity,
		UnallocatableQuantity: req.UnallocatableQuantity,
	}
	if err := s.repo.CreateBatch(ctx, batch); err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("batch_id", batch.ID).
		Int64("sku_id", batch.SKUID).
		Int("available", batch.AvailableQuantity).
		Msg("Batch received")

	return batch, nil
}

// ExpireDueReservations implements ServiceInterface.ExpireDueReservations.
func (s *service) ExpireDueReservations(ctx context.Context, limit int) (int, error) {
	swept, err := s.repo.ExpireDueReservations(ctx, time.Now().UTC(), limit)
	if err != nil {
		return swept, err
	}

	if swept > 0 {
		s.log.Info().Int("orders", swept).Msg("Expired due reservations")
	}

	return swept, nil
}

// getSKUByCode is a cache read-through keyed on the immutable SKU code.
func (s *service) getSKUByCode(ctx context.Context, code string) (*model.SKU, error) {
	cacheKey := "sku:code:" + code

	if s.cache != nil {
		var cached model.SKU
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	sku, err := s.repo.GetSKUByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, sku, time.Hour); err != nil {
			s.log.Debug().Err(err).Str("code", code).Msg("Failed to cache SKU")
		}
	}

	return sku, nil
}
