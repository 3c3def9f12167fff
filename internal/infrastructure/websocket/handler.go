package websocket

import (
	"context"
	"errors"
	"net/http"

	"auction-engine/internal/domain"
	"auction-engine/internal/services"
	"auction-engine/pkg/logger"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// Handler upgrades clients onto the notification stream for one auction and
// accepts place_bid messages over the same socket.
type Handler struct {
	svc         *services.AuctionService
	connManager *ConnectionManager
	log         logger.Logger
}

func NewHandler(svc *services.AuctionService, connManager *ConnectionManager, log logger.Logger) *Handler {
	return &Handler{
		svc:         svc,
		connManager: connManager,
		log:         log,
	}
}

// Register mounts the gateway route on router.
func (h *Handler) Register(router *mux.Router) {
	router.HandleFunc("/ws/auctions/{auctionID}", h.HandleConnection)
}

func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	auctionID := vars["auctionID"]

	auction, err := h.svc.GetAuction(auctionID)
	if err != nil {
		http.Error(w, "auction not found", http.StatusNotFound)
		return
	}
	if !auction.IsActive() {
		http.Error(w, "auction has already ended", http.StatusForbidden)
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}
	if _, err := h.svc.GetUser(userID); err != nil {
		http.Error(w, "unknown user", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	wsConn := NewConnection(conn, userID, auctionID)
	h.connManager.RegisterConnection(userID, auctionID, wsConn)

	go h.readLoop(wsConn, conn, userID, auctionID)
}

func (h *Handler) readLoop(wsConn *Connection, conn *websocket.Conn, userID, auctionID string) {
	defer func() {
		h.connManager.UnregisterConnection(userID, auctionID)
		wsConn.Close()
	}()

	for {
		var msg struct {
			Type   string  `json:"type"`
			Amount float64 `json:"amount"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			h.log.Debug("Connection closed", "user_id", userID, "auction_id", auctionID, "error", err)
			return
		}

		switch msg.Type {
		case "place_bid":
			h.handleBid(wsConn, userID, auctionID, msg.Amount)
		case "ping":
			wsConn.Send(map[string]string{"type": "pong"})
		}
	}
}

func (h *Handler) handleBid(wsConn *Connection, userID, auctionID string, amount float64) {
	err := h.svc.PlaceBid(context.Background(), auctionID, userID, amount)
	if err == nil {
		wsConn.Send(map[string]interface{}{
			"type":       "bid_accepted",
			"auction_id": auctionID,
			"amount":     amount,
		})
		return
	}

	reject := map[string]interface{}{
		"type":       "bid_rejected",
		"auction_id": auctionID,
		"amount":     amount,
	}

	var tooLow *domain.BidTooLowError
	switch {
	case errors.As(err, &tooLow):
		reject["reason"] = "bid_too_low"
		reject["current_highest"] = tooLow.CurrentHighest
	case errors.Is(err, domain.ErrAuctionExpired):
		reject["reason"] = "auction_expired"
	case errors.Is(err, domain.ErrAuctionNotActive):
		reject["reason"] = "auction_not_active"
	default:
		reject["reason"] = "error"
	}

	wsConn.Send(reject)
}
