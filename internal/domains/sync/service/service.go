package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	invmodel "inventory-service/internal/domains/inventory/model"
	invrepo "inventory-service/internal/domains/inventory/repository"
	"inventory-service/internal/domains/sync/model"
	"inventory-service/internal/domains/sync/repository"
	"inventory-service/internal/infrastructure/wms"
	"inventory-service/pkg/logger"
)

// CommandPublisher publishes reconciliation commands to the broker.
type CommandPublisher interface {
	PublishCommand(ctx context.Context, routingKey, messageID string, body []byte) error
}

// ServiceInterface is the reconciliation engine's application API.
// RequestSync runs on the API process; RunSync runs on the worker that
// consumes the command queue.
type ServiceInterface interface {
	RequestSync(ctx context.Context, batchID *string, reason, requestedBy string) (*model.SyncRequest, error)
	GetSyncRequest(ctx context.Context, id uuid.UUID) (*model.SyncRequest, error)
	ListSyncRequests(ctx context.Context, limit int) ([]model.SyncRequest, error)
	RunSync(ctx context.Context, cmd model.ForceWmsSyncCommand) error
}

type service struct {
	repo      repository.RepositoryInterface
	invRepo   invrepo.RepositoryInterface
	wmsClient wms.Client
	publisher CommandPublisher
	log       zerolog.Logger
}

func NewService(repo repository.RepositoryInterface, invRepo invrepo.RepositoryInterface, wmsClient wms.Client, publisher CommandPublisher) ServiceInterface {
	return &service{
		repo:      repo,
		invRepo:   invRepo,
		wmsClient: wmsClient,
		publisher: publisher,
		log:       logger.Component("wms-sync"),
	}
}

// RequestSync persists a PENDING request and publishes the command that the
// sync worker consumes. batchID is the external WMS batch id; nil means a
// full sync.
func (s *service) RequestSync(ctx context.Context, batchID *string, reason, requestedBy string) (*model.SyncRequest, error) {
	scope := model.ScopeAll
	if batchID != nil {
		scope = model.ScopeBatch
		// Fail fast on an unknown batch instead of queueing a doomed run.
		if _, err := s.invRepo.GetBatchByExternalID(ctx, *batchID); err != nil {
			return nil, err
		}
	}

	req := &model.SyncRequest{
		Scope:       scope,
		BatchID:     batchID,
		Reason:      reason,
		RequestedBy: requestedBy,
	}
	if err := s.repo.CreateSyncRequest(ctx, req); err != nil {
		return nil, err
	}

	cmd := model.ForceWmsSyncCommand{
		RequestID:   req.ID,
		Scope:       scope,
		BatchID:     batchID,
		RequestedBy: requestedBy,
		Timestamp:   time.Now().UTC(),
	}
	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sync command: %w", err)
	}

	if err := s.publisher.PublishCommand(ctx, "wms.forceSync", req.ID.String(), body); err != nil {
		// The request row exists but the command never left; surface that.
		if markErr := s.repo.MarkSyncFailed(ctx, req.ID, "failed to publish sync command"); markErr != nil {
			s.log.Error().Err(markErr).Str("request_id", req.ID.String()).Msg("Failed to mark sync request failed")
		}
		return nil, fmt.Errorf("failed to publish sync command: %w", err)
	}

	s.log.Info().
		Str("request_id", req.ID.String()).
		Str("scope", scope).
		Str("requested_by", requestedBy).
		Msg("Sync requested")

	return req, nil
}

// GetSyncRequest implements ServiceInterface.GetSyncRequest.
func (s *service) GetSyncRequest(ctx context.Context, id uuid.UUID) (*model.SyncRequest, error) {
	return s.repo.GetSyncRequest(ctx, id)
}

// ListSyncRequests implements ServiceInterface.ListSyncRequests.
func (s *service) ListSyncRequests(ctx context.Context, limit int) ([]model.SyncRequest, error) {
	return s.repo.ListSyncRequests(ctx, limit)
}

// RunSync executes one reconciliation run. A retriable WMS failure is
// returned as-is so the worker can requeue the command; everything else
// marks the request FAILED.
func (s *service) RunSync(ctx context.Context, cmd model.ForceWmsSyncCommand) error {
	claimed, err := s.repo.ClaimSyncRequest(ctx, cmd.RequestID)
	if err != nil {
		return err
	}
	if !claimed {
		s.log.Info().Str("request_id", cmd.RequestID.String()).Msg("Sync request already completed, skipping")
		return nil
	}

	adjusted, err := s.runScoped(ctx, cmd)
	if err != nil {
		if wms.IsRetriable(err) {
			// Leave the request IN_PROGRESS; the redelivered command resumes it.
			return err
		}
		if markErr := s.repo.MarkSyncFailed(ctx, cmd.RequestID, err.Error()); markErr != nil {
			s.log.Error().Err(markErr).Str("request_id", cmd.RequestID.String()).Msg("Failed to mark sync request failed")
		}
		return err
	}

	if err := s.repo.MarkSyncDone(ctx, cmd.RequestID, adjusted); err != nil {
		return err
	}

	s.log.Info().
		Str("request_id", cmd.RequestID.String()).
		Int("adjusted", adjusted).
		Msg("Sync completed")

	return nil
}

func (s *service) runScoped(ctx context.Context, cmd model.ForceWmsSyncCommand) (int, error) {
	query := wms.SnapshotQuery{BatchID: cmd.BatchID}

	// Unscoped runs continue from the incremental cursor of the last run.
	if cmd.BatchID == nil {
		state, err := s.repo.GetSyncState(ctx)
		if err != nil {
			return 0, err
		}
		query.Since = state.Token
	}

	adjusted := 0
	var lastToken *string

	for {
		result, err := s.wmsClient.Snapshot(ctx, query)
		if err != nil {
			return adjusted, err
		}

		for _, entry := range result.Entries {
			n, err := s.reconcileEntry(ctx, entry)
			if err != nil {
				return adjusted, err
			}
			adjusted += n
		}

		if result.NextToken == nil {
			break
		}
		lastToken = result.NextToken
		query.Since = result.NextToken
	}

	if cmd.BatchID == nil {
		if err := s.repo.UpdateSyncState(ctx, lastToken, time.Now().UTC()); err != nil {
			return adjusted, err
		}
	}

	return adjusted, nil
}

// reconcileEntry handles one WMS report. The snapshot is always persisted,
// matched or not; the compensating adjustment commits in the same
// transaction when the WMS disagrees with the local available quantity.
// Returns 1 when an adjustment was written.
func (s *service) reconcileEntry(ctx context.Context, entry wms.SnapshotEntry) (int, error) {
	snap := &model.WmsSnapshot{
		WmsBatchID:    entry.WmsBatchID,
		Orderable:     entry.Orderable,
		Unallocatable: entry.Unallocatable,
		ReportedAt:    entry.ReportedAt,
		Raw:           entry.Raw,
	}

	batch, err := s.invRepo.GetBatchByExternalID(ctx, entry.WmsBatchID)
	switch {
	case err == nil:
		snap.BatchID = &batch.ID
	case errors.Is(err, invmodel.ErrBatchNotFound):
		// The WMS knows batches we never received; the snapshot alone is
		// the record of that.
		s.log.Warn().Str("wms_batch_id", entry.WmsBatchID).Msg("Snapshot for unknown batch, recording without adjustment")
	default:
		return 0, err
	}

	outcome, err := s.repo.ApplySnapshot(ctx, snap)
	if err != nil {
		return 0, err
	}

	if outcome.OutOfBounds {
		// Bad data for one batch must not sink the whole run.
		s.log.Warn().
			Int64("batch_id", outcome.BatchID).
			Int("reported", entry.Orderable).
			Msg("Reported quantity outside batch bounds, snapshot recorded without adjustment")
		return 0, nil
	}

	if outcome.Adjusted {
		s.log.Info().
			Int64("batch_id", outcome.BatchID).
			Int("delta", outcome.Delta).
			Msg("Compensating adjustment applied")
		return 1, nil
	}

	return 0, nil
}
