package contracts

import "time"

// Envelope carries correlation metadata on every published message.
type Envelope struct {
	CorrelationID string    `json:"correlation_id"`
	Producer      string    `json:"producer"`
	SentAt        time.Time `json:"sent_at"`
}

// ConnectEventMessage announces a connect request lifecycle change. The
// notification service fans it out to both participants' sessions.
type ConnectEventMessage struct {
	EventType   string `json:"event_type"` // created | accepted | rejected | held | promoted | counter_accepted | deleted
	RequestID   string `json:"request_id"`
	InitiatorID string `json:"initiator_id"`
	RecipientID string `json:"recipient_id"`
	LeadID      string `json:"lead_id"`
	TripID      string `json:"trip_id"`
	Status      string `json:"status"`

	TokensRequired int64 `json:"tokens_required"`
	TokensDeducted int64 `json:"tokens_deducted"`

	Envelope Envelope `json:"envelope"`
}

// WalletTxnMessage mirrors one appended ledger entry for the audit stream.
type WalletTxnMessage struct {
	DriverID   string `json:"driver_id"`
	Kind       string `json:"kind"` // CREDIT | DEBIT
	Amount     int64  `json:"amount"`
	NewBalance int64  `json:"new_balance"`
	Reason     string `json:"reason"`
	CausedBy   string `json:"caused_by"`

	Envelope Envelope `json:"envelope"`
}
