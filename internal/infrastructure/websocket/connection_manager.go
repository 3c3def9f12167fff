package websocket

import (
	"sync"

	"auction-engine/pkg/logger"
)

// ConnectionManager tracks live client connections by auction and by user.
type ConnectionManager struct {
	connections map[string]map[string]Conn // auctionID -> userID -> connection
	userConns   map[string][]Conn          // userID -> connections
	mutex       sync.RWMutex
	log         logger.Logger
}

func NewConnectionManager(log logger.Logger) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]map[string]Conn),
		userConns:   make(map[string][]Conn),
		log:         log,
	}
}

func (cm *ConnectionManager) RegisterConnection(userID, auctionID string, conn Conn) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.connections[auctionID] == nil {
		cm.connections[auctionID] = make(map[string]Conn)
	}
	cm.connections[auctionID][userID] = conn

	cm.userConns[userID] = append(cm.userConns[userID], conn)

	cm.log.Info("Connection registered", "user_id", userID, "auction_id", auctionID)
}

func (cm *ConnectionManager) UnregisterConnection(userID, auctionID string) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if auctionConns, exists := cm.connections[auctionID]; exists {
		delete(auctionConns, userID)
		if len(auctionConns) == 0 {
			delete(cm.connections, auctionID)
		}
	}

	cm.dropUserConnsLocked(userID, auctionID)

	cm.log.Info("Connection unregistered", "user_id", userID, "auction_id", auctionID)
}

// CloseAuctionConnections closes and forgets every connection watching
// auctionID. Called after the closure notifications have gone out.
func (cm *ConnectionManager) CloseAuctionConnections(auctionID string) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	auctionConns, exists := cm.connections[auctionID]
	if !exists {
		return
	}

	for userID, conn := range auctionConns {
		if err := conn.Close(); err != nil {
			cm.log.Error("Failed to close connection", "user_id", userID,
				"auction_id", auctionID, "error", err)
		}
		cm.dropUserConnsLocked(userID, auctionID)
	}
	delete(cm.connections, auctionID)

	cm.log.Info("Connections closed for auction", "auction_id", auctionID)
}

func (cm *ConnectionManager) NotifyUser(userID string, message interface{}) {
	cm.mutex.RLock()
	conns := append([]Conn(nil), cm.userConns[userID]...)
	cm.mutex.RUnlock()

	for _, conn := range conns {
		if err := conn.Send(message); err != nil {
			cm.log.Error("Failed to send message", "user_id", userID, "error", err)
		}
	}
}

func (cm *ConnectionManager) BroadcastToAuction(auctionID string, message interface{}) {
	cm.mutex.RLock()
	var conns []Conn
	for _, conn := range cm.connections[auctionID] {
		conns = append(conns, conn)
	}
	cm.mutex.RUnlock()

	for _, conn := range conns {
		if err := conn.Send(message); err != nil {
			cm.log.Error("Failed to send message", "user_id", conn.UserID(),
				"auction_id", auctionID, "error", err)
		}
	}
}

func (cm *ConnectionManager) dropUserConnsLocked(userID, auctionID string) {
	userConnections, exists := cm.userConns[userID]
	if !exists {
		return
	}

	var kept []Conn
	for _, conn := range userConnections {
		if conn.AuctionID() != auctionID {
			kept = append(kept, conn)
		}
	}

	if len(kept) == 0 {
		delete(cm.userConns, userID)
	} else {
		cm.userConns[userID] = kept
	}
}
