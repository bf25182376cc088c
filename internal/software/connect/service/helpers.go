package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"freight-connect/internal/domain/connect"
	"freight-connect/internal/domain/fault"
	"freight-connect/internal/domain/pricing"
	"freight-connect/internal/domain/wallet"
	"freight-connect/internal/general/contracts"
	"freight-connect/internal/general/metrics"
	"freight-connect/internal/ports"
)

// asFault attaches the HTTP-facing fault sentinel to a domain error so the
// handler layer can map it with errors.Is while callers still see the
// original sentinel.
func asFault(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fault.ErrValidation),
		errors.Is(err, fault.ErrNotFound),
		errors.Is(err, fault.ErrForbidden),
		errors.Is(err, fault.ErrConflict),
		errors.Is(err, fault.ErrInsufficientTokens),
		errors.Is(err, fault.ErrNotPriced):
		// already classified
		return err
	case errors.Is(err, connect.ErrNotRecipient),
		errors.Is(err, connect.ErrNotInitiator),
		errors.Is(err, connect.ErrNotParticipant):
		return fmt.Errorf("%w: %w", fault.ErrForbidden, err)
	case errors.Is(err, connect.ErrInvalidStatusTransition),
		errors.Is(err, connect.ErrRecipientNotAccepted),
		errors.Is(err, connect.ErrAlreadyCounterAccepted):
		return fmt.Errorf("%w: %w", fault.ErrConflict, err)
	case errors.Is(err, wallet.ErrInsufficientTokens):
		return fmt.Errorf("%w: %w", fault.ErrInsufficientTokens, err)
	case errors.Is(err, connect.ErrInitiatorRequired),
		errors.Is(err, connect.ErrRecipientRequired),
		errors.Is(err, connect.ErrSelfConnect),
		errors.Is(err, connect.ErrLeadRequired),
		errors.Is(err, connect.ErrTripRequired),
		errors.Is(err, connect.ErrRolePairing),
		errors.Is(err, connect.ErrInvalidStatus):
		return fmt.Errorf("%w: %w", fault.ErrValidation, err)
	default:
		return err
	}
}

// toView maps the entity onto its wire shape.
func toView(r *connect.Request) ports.ConnectRequestView {
	return ports.ConnectRequestView{
		ID:                   r.ID,
		InitiatorID:          r.InitiatorID,
		RecipientID:          r.RecipientID,
		LeadID:               r.LeadID,
		TripID:               r.TripID,
		Message:              r.Message,
		Status:               r.Status.String(),
		RecipientAccepted:    r.RecipientAccepted,
		InitiatorAccepted:    r.InitiatorAccepted,
		TokensRequired:       r.TokensRequired,
		TokensDeducted:       r.TokensDeducted,
		HasSufficientTokens:  r.HasSufficientTokens,
		ContactDetailsShared: r.ContactDetailsShared,
		RejectionReason:      r.RejectionReason,
		CreatedAt:            r.CreatedAt,
		RespondedAt:          r.RespondedAt,
		SettledAt:            r.SettledAt,
	}
}

// publishConnectEvent sends a lifecycle event to the marketplace topic
// exchange using routing key connect.request.{event}. Publish failures are
// logged and swallowed; the state change already committed.
func (service *connectService) publishConnectEvent(ctx context.Context, event string, r *connect.Request) {
	metrics.ConnectRequests.WithLabelValues(event).Inc()

	msg := contracts.ConnectEventMessage{
		EventType:      event,
		RequestID:      r.ID,
		InitiatorID:    r.InitiatorID,
		RecipientID:    r.RecipientID,
		LeadID:         r.LeadID,
		TripID:         r.TripID,
		Status:         r.Status.String(),
		TokensRequired: r.TokensRequired,
		TokensDeducted: r.TokensDeducted,
		Envelope: contracts.Envelope{
			CorrelationID: r.ID,
			Producer:      "marketplace-service",
			SentAt:        time.Now().UTC(),
		},
	}

	body, err := json.Marshal(msg)
	if err != nil {
		service.logger.Error(ctx, "connect_event_marshal_failed", "Failed to marshal connect event", err, nil)
		return
	}

	routingKey := contracts.RouteConnectPrefix + event
	if err := service.pub.Publish(contracts.ExchangeMarketplaceTopic, routingKey, body); err != nil {
		service.logger.Error(ctx, "connect_event_publish_failed", "Failed to publish connect event to RabbitMQ", err, map[string]any{
			"routing_key":        routingKey,
			"connect_request_id": r.ID,
		})
		return
	}

	service.logger.Info(ctx, "connect_event_published", "Published connect event to RabbitMQ", map[string]any{
		"routing_key": routingKey,
	})
}

// publishWalletTxn mirrors a settlement debit onto the wallet audit stream.
func (service *connectService) publishWalletTxn(ctx context.Context, txn *wallet.Transaction, newBalance int64) {
	msg := contracts.WalletTxnMessage{
		DriverID:   txn.DriverID,
		Kind:       txn.Kind.String(),
		Amount:     txn.Amount,
		NewBalance: newBalance,
		Reason:     txn.Reason,
		CausedBy:   txn.CausedBy,
		Envelope: contracts.Envelope{
			CorrelationID: txn.ID,
			Producer:      "marketplace-service",
			SentAt:        time.Now().UTC(),
		},
	}

	body, err := json.Marshal(msg)
	if err != nil {
		service.logger.Error(ctx, "wallet_txn_marshal_failed", "Failed to marshal wallet transaction message", err, nil)
		return
	}

	routingKey := contracts.RouteWalletPrefix + "debit"
	if err := service.pub.Publish(contracts.ExchangeMarketplaceTopic, routingKey, body); err != nil {
		service.logger.Error(ctx, "wallet_txn_publish_failed", "Failed to publish wallet transaction to RabbitMQ", err, map[string]any{
			"routing_key": routingKey,
			"driver_id":   txn.DriverID,
		})
	}
}

// repriceLead looks the current lead-token cost up for the request's lead.
// Pricing always uses the distance at call time, not creation time.
func (service *connectService) repriceLead(ctx context.Context, leadID string) (int64, error) {
	l, err := service.leadRepo.GetByID(ctx, leadID)
	if err != nil {
		return 0, err
	}
	return service.bandRepo.Lookup(ctx, pricing.TableLeadTokens, l.DistanceKm())
}
