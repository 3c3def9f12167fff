package mysql

import (
	"context"
	"database/sql"
	"time"

	"auction-engine/internal/domain"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLAuctionStore persists committed auction state. It implements
// domain.AuctionStore; the engine stays authoritative in memory and calls in
// after each accepted mutation.
type MySQLAuctionStore struct {
	db *sql.DB
}

func NewMySQLAuctionStore(db *sql.DB) *MySQLAuctionStore {
	return &MySQLAuctionStore{db: db}
}

func (r *MySQLAuctionStore) SaveAuction(ctx context.Context, snap domain.AuctionSnapshot) error {
	query := `
        INSERT INTO auctions (id, item_name, description, base_price, end_time, state, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		snap.ID, snap.ItemName, snap.Description, snap.BasePrice,
		snap.EndTime, int(snap.State), snap.CreatedAt, time.Now())
	return err
}

func (r *MySQLAuctionStore) SaveBid(ctx context.Context, auctionID string, bid domain.Bid) error {
	query := `
        INSERT INTO bids (id, auction_id, bidder_id, amount, submitted_at)
        VALUES (?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		bid.ID, auctionID, bid.Bidder, bid.Amount, bid.SubmittedAt)
	return err
}

func (r *MySQLAuctionStore) MarkClosed(ctx context.Context, auctionID string, winning *domain.Bid) error {
	winnerID := sql.NullString{}
	winnerAmount := sql.NullFloat64{}
	if winning != nil {
		winnerID = sql.NullString{String: winning.Bidder, Valid: true}
		winnerAmount = sql.NullFloat64{Float64: winning.Amount, Valid: true}
	}

	query := `UPDATE auctions SET state = ?, winner_id = ?, winner_amount = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query,
		int(domain.StateClosed), winnerID, winnerAmount, time.Now(), auctionID)
	return err
}

func (r *MySQLAuctionStore) LoadOpenAuctions(ctx context.Context) ([]domain.AuctionSnapshot, error) {
	query := `
        SELECT id, item_name, description, base_price, end_time, created_at
        FROM auctions WHERE state = ?
    `

	rows, err := r.db.QueryContext(ctx, query, int(domain.StateActive))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []domain.AuctionSnapshot
	for rows.Next() {
		var snap domain.AuctionSnapshot
		err := rows.Scan(&snap.ID, &snap.ItemName, &snap.Description,
			&snap.BasePrice, &snap.EndTime, &snap.CreatedAt)
		if err != nil {
			return nil, err
		}
		snap.State = domain.StateActive
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range snaps {
		bids, err := r.loadBids(ctx, snaps[i].ID)
		if err != nil {
			return nil, err
		}
		snaps[i].Bids = bids
	}

	return snaps, nil
}

func (r *MySQLAuctionStore) loadBids(ctx context.Context, auctionID string) ([]domain.Bid, error) {
	query := `
        SELECT id, bidder_id, amount, submitted_at
        FROM bids WHERE auction_id = ?
        ORDER BY submitted_at ASC
    `

	rows, err := r.db.QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []domain.Bid
	for rows.Next() {
		var bid domain.Bid
		if err := rows.Scan(&bid.ID, &bid.Bidder, &bid.Amount, &bid.SubmittedAt); err != nil {
			return nil, err
		}
		bids = append(bids, bid)
	}
	return bids, rows.Err()
}
