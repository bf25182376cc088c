package service

import (
	"context"
	"fmt"

	"freight-connect/internal/domain/connect"
	"freight-connect/internal/domain/user"
	"freight-connect/internal/general/contracts"
	"freight-connect/internal/ports"
)

// Delete soft-deletes a still-pending request on behalf of its initiator.
func (service *connectService) Delete(ctx context.Context, actor user.Actor, requestID string) error {
	ctx = service.logger.WithConnectRequestID(ctx, requestID)

	var deleted *connect.Request

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		r, err := service.connectRepo.GetByID(txCtx, requestID)
		if err != nil {
			return err
		}
		if err := r.Deletable(actor.ID); err != nil {
			return asFault(err)
		}
		if err := service.connectRepo.SoftDelete(txCtx, r.ID); err != nil {
			return err
		}
		deleted = r
		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "connect_delete_failed", "Failed to delete connect request", err, map[string]any{
			"initiator_id": actor.ID,
		})
		return err
	}

	service.logger.Info(ctx, "connect_request_deleted", fmt.Sprintf("Connect request %s deleted", requestID), nil)

	service.publishConnectEvent(ctx, contracts.ConnectDeleted, deleted)

	return nil
}

// ListForActor pages through the actor's requests on either side of the
// handshake, optionally filtered by status.
func (service *connectService) ListForActor(ctx context.Context, actor user.Actor, status string, page ports.Page) (ports.ConnectRequestPage, error) {
	var filter *connect.Status
	if status != "" {
		parsed, err := connect.ParseStatus(status)
		if err != nil {
			return ports.ConnectRequestPage{}, asFault(err)
		}
		filter = &parsed
	}

	page = page.Normalize(0)

	var (
		items []connect.Request
		total int
	)
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		items, total, err = service.connectRepo.ListForUser(txCtx, actor.ID, filter, page.Offset(), page.Limit)
		return err
	})
	if err != nil {
		service.logger.Error(ctx, "connect_list_failed", "Failed to list connect requests", err, map[string]any{
			"user_id": actor.ID,
		})
		return ports.ConnectRequestPage{}, err
	}

	out := ports.ConnectRequestPage{
		Items: make([]ports.ConnectRequestView, 0, len(items)),
		Meta:  ports.NewPageMeta(page, total),
	}
	for i := range items {
		out.Items = append(out.Items, toView(&items[i]))
	}
	return out, nil
}
