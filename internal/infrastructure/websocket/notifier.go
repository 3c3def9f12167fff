package websocket

// Notifier pushes engine notifications to the bidder's live connections. It
// implements domain.Notifier; users without an open socket simply miss the
// message, which is acceptable for this delivery channel.
type Notifier struct {
	connManager *ConnectionManager
}

func NewNotifier(connManager *ConnectionManager) *Notifier {
	return &Notifier{connManager: connManager}
}

func (n *Notifier) OnUpdate(auctionID, userID, message string) {
	n.connManager.NotifyUser(userID, map[string]string{
		"type":       "auction_update",
		"auction_id": auctionID,
		"message":    message,
	})
}
