package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"freight-connect/internal/general/config"
	"freight-connect/internal/general/contracts"
	"freight-connect/internal/general/jwt"
	"freight-connect/internal/general/logger"
	"freight-connect/internal/general/rabbitmq"
	"freight-connect/internal/general/websocket"
)

// run wires the notification service and blocks until ctx is cancelled. It
// bridges connect-request lifecycle events off the broker onto each
// participant's WebSocket session.
func run(ctx context.Context, configPath string, prefetch int) error {
	logger := logger.New("notification-service")
	ctx = logger.WithRequestID(ctx, "startup-001")

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}

	mq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
		return err
	}
	defer mq.Close()

	jwtManager := jwt.NewManager(cfg.JWT.SecretKey, 2*time.Hour)
	hub := websocket.NewHub(logger, jwtManager)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", hub.Connect)
	mux.HandleFunc("GET /ws/{user_id}", hub.Connect)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Services.NotificationPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 2)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	// Consumer loop runs alongside the WS server. Consume returns when ctx
	// is cancelled or the channel dies; a dead channel ends the service and
	// lets the supervisor restart it against the reconnected client.
	go func() {
		errCh <- mq.Consume(ctx, contracts.QueueConnectNotifications, "notification-service", prefetch,
			func(c context.Context, d amqp.Delivery) error {
				return fanOutConnectEvent(c, logger, hub, d)
			})
	}()

	logger.Info(ctx, "service_started",
		fmt.Sprintf("Notification service started on port %d", cfg.Services.NotificationPort),
		map[string]any{"port": cfg.Services.NotificationPort, "prefetch": prefetch},
	)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down WS server", err, nil)
		}
	case err := <-errCh:
		if err != nil {
			logger.Error(ctx, "service_error", "Notification service terminated with error", err, nil)
			return err
		}
		return nil
	}

	return nil
}

// connectNotification is the frame pushed to both participants.
type connectNotification struct {
	Type         string `json:"type"` // always "connect_event"
	Event        string `json:"event"`
	RequestID    string `json:"request_id"`
	Status       string `json:"status"`
	LeadID       string `json:"lead_id,omitempty"`
	TripID       string `json:"trip_id,omitempty"`
	TokensNeeded int64  `json:"tokens_required,omitempty"`
	SentAt       string `json:"sent_at"`
}

// fanOutConnectEvent decodes one lifecycle event and pushes it to the
// initiator and the recipient. Disconnected participants are skipped; the
// message is acked regardless because events are not queued per user.
func fanOutConnectEvent(ctx context.Context, logger *logger.Logger, hub *websocket.Hub, d amqp.Delivery) error {
	var evt contracts.ConnectEventMessage
	if err := json.Unmarshal(d.Body, &evt); err != nil {
		logger.Error(ctx, "event_decode_failed", "Failed to decode connect event", err,
			map[string]any{"routing_key": d.RoutingKey})
		return err
	}

	note := connectNotification{
		Type:         "connect_event",
		Event:        evt.EventType,
		RequestID:    evt.RequestID,
		Status:       evt.Status,
		LeadID:       evt.LeadID,
		TripID:       evt.TripID,
		TokensNeeded: evt.TokensRequired,
		SentAt:       time.Now().UTC().Format(time.RFC3339),
	}

	delivered := 0
	for _, userID := range []string{evt.InitiatorID, evt.RecipientID} {
		if userID == "" {
			continue
		}
		if err := hub.Send(userID, note); err != nil {
			logger.Debug(ctx, "notify_skip", "Participant not connected, skipping push",
				map[string]any{"user_id": userID, "request_id": evt.RequestID, "event": evt.EventType})
			continue
		}
		delivered++
	}

	logger.Info(ctx, "event_fanned_out", "Connect event pushed to participants",
		map[string]any{"request_id": evt.RequestID, "event": evt.EventType, "delivered": delivered})
	return nil
}
