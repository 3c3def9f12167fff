package handlers

import (
	"errors"
	"net/http"
	"time"

	"auction-engine/internal/domain"
	"auction-engine/internal/services"
	"auction-engine/pkg/logger"

	"github.com/labstack/echo/v4"
)

type AuctionHandler struct {
	svc *services.AuctionService
	log logger.Logger
}

func NewAuctionHandler(svc *services.AuctionService, log logger.Logger) *AuctionHandler {
	return &AuctionHandler{
		svc: svc,
		log: log,
	}
}

// Register mounts the API routes on e.
func (h *AuctionHandler) Register(e *echo.Echo) {
	api := e.Group("/api/v1")
	api.POST("/users", h.CreateUser)
	api.POST("/auctions", h.CreateAuction)
	api.GET("/auctions", h.ListActiveAuctions)
	api.GET("/auctions/:id", h.GetAuction)
	api.POST("/auctions/:id/bids", h.PlaceBid)
	api.POST("/auctions/:id/close", h.CloseAuction)
}

type CreateUserRequest struct {
	Name string `json:"name"`
}

type CreateAuctionRequest struct {
	ItemName    string    `json:"item_name"`
	Description string    `json:"description"`
	BasePrice   float64   `json:"base_price"`
	EndTime     time.Time `json:"end_time"`
}

type PlaceBidRequest struct {
	BidderID string  `json:"bidder_id"`
	Amount   float64 `json:"amount"`
}

type AuctionResponse struct {
	AuctionID   string      `json:"auction_id"`
	ItemName    string      `json:"item_name"`
	Description string      `json:"description"`
	BasePrice   float64     `json:"base_price"`
	EndTime     time.Time   `json:"end_time"`
	State       string      `json:"state"`
	BidCount    int         `json:"bid_count"`
	HighestBid  *domain.Bid `json:"highest_bid,omitempty"`
	WinningBid  *domain.Bid `json:"winning_bid,omitempty"`
}

func (h *AuctionHandler) CreateUser(c echo.Context) error {
	var req CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Name is required"})
	}

	user := h.svc.CreateUser(req.Name)
	return c.JSON(http.StatusCreated, user)
}

func (h *AuctionHandler) CreateAuction(c echo.Context) error {
	var req CreateAuctionRequest
	if err := c.Bind(&req); err != nil {
		h.log.Error("Failed to bind request", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	auction, err := h.svc.CreateAuction(c.Request().Context(),
		req.ItemName, req.Description, req.BasePrice, req.EndTime)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidAuction) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		h.log.Error("Failed to create auction", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create auction"})
	}

	return c.JSON(http.StatusCreated, snapshotResponse(auction.Snapshot()))
}

func (h *AuctionHandler) GetAuction(c echo.Context) error {
	auction, err := h.svc.GetAuction(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Auction not found"})
	}

	return c.JSON(http.StatusOK, snapshotResponse(auction.Snapshot()))
}

func (h *AuctionHandler) ListActiveAuctions(c echo.Context) error {
	auctions := h.svc.ViewActiveAuctions()

	responses := make([]AuctionResponse, 0, len(auctions))
	for _, auction := range auctions {
		responses = append(responses, snapshotResponse(auction.Snapshot()))
	}
	return c.JSON(http.StatusOK, responses)
}

func (h *AuctionHandler) PlaceBid(c echo.Context) error {
	auctionID := c.Param("id")

	var req PlaceBidRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if req.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Amount must be positive"})
	}

	err := h.svc.PlaceBid(c.Request().Context(), auctionID, req.BidderID, req.Amount)
	if err != nil {
		return h.bidError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"auction_id": auctionID,
		"bidder_id":  req.BidderID,
		"amount":     req.Amount,
		"status":     "accepted",
	})
}

func (h *AuctionHandler) CloseAuction(c echo.Context) error {
	auctionID := c.Param("id")

	if err := h.svc.EndAuction(c.Request().Context(), auctionID); err != nil {
		if errors.Is(err, domain.ErrAuctionNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Auction not found"})
		}
		h.log.Error("Failed to close auction", "auction_id", auctionID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to close auction"})
	}

	auction, err := h.svc.GetAuction(auctionID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Auction not found"})
	}
	return c.JSON(http.StatusOK, snapshotResponse(auction.Snapshot()))
}

func (h *AuctionHandler) bidError(c echo.Context, err error) error {
	var tooLow *domain.BidTooLowError

	switch {
	case errors.As(err, &tooLow):
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
			"error":           "Bid amount too low",
			"current_highest": tooLow.CurrentHighest,
		})
	case errors.Is(err, domain.ErrAuctionNotFound), errors.Is(err, domain.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrAuctionNotActive), errors.Is(err, domain.ErrAuctionExpired):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		h.log.Error("Failed to place bid", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to place bid"})
	}
}

func snapshotResponse(snap domain.AuctionSnapshot) AuctionResponse {
	return AuctionResponse{
		AuctionID:   snap.ID,
		ItemName:    snap.ItemName,
		Description: snap.Description,
		BasePrice:   snap.BasePrice,
		EndTime:     snap.EndTime,
		State:       snap.State.String(),
		BidCount:    len(snap.Bids),
		HighestBid:  domain.BestBid(snap.Bids),
		WinningBid:  snap.WinningBid,
	}
}
