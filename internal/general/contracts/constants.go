package contracts

// Exchange names.
const (
	ExchangeMarketplaceTopic = "marketplace.topic"
)

// Queue names.
const (
	QueueConnectNotifications = "connect.events.notify"
	QueueWalletAudit          = "wallet.txn.audit"
)

// Routing keys. Connect events are published as
// "connect.request.<event>" and wallet entries as "wallet.txn.<kind>".
const (
	RouteConnectPrefix = "connect.request."
	RouteWalletPrefix  = "wallet.txn."
)

// Connect lifecycle event types.
const (
	ConnectCreated        = "created"
	ConnectAccepted       = "accepted"
	ConnectRejected       = "rejected"
	ConnectHeld           = "held"
	ConnectPromoted       = "promoted"
	ConnectCounterAccept  = "counter_accepted"
	ConnectDeleted        = "deleted"
)
