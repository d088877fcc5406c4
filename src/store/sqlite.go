package store

import (
	"database/sql"
	"fmt"

	"github.com/username/smartflow/backend/src/logger"
	"github.com/username/smartflow/backend/src/models"
)

// SQLiteStore implements every collaborator interface over a single SQLite
// handle. The schema is owned by the database package.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) tableFor(category Category) (table, idCol, nameCol string, err error) {
	switch category {
	case CategoryItem:
		return "dim_items", "item_id", "item_name", nil
	case CategoryClient:
		return "dim_clients", "client_id", "client_name", nil
	default:
		return "", "", "", fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
}

func (s *SQLiteStore) ListValid(category Category) ([]string, error) {
	table, _, nameCol, err := s.tableFor(category)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(fmt.Sprintf("SELECT %s FROM %s ORDER BY %s ASC", nameCol, table, nameCol))
	if err != nil {
		return nil, fmt.Errorf("error querying %s: %w", table, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if scanErr := rows.Scan(&name); scanErr != nil {
			return nil, fmt.Errorf("error scanning %s row: %w", table, scanErr)
		}
		names = append(names, name)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over %s rows: %w", table, err)
	}
	return names, nil
}

func (s *SQLiteStore) LookupID(category Category, canonicalName string) (*int64, error) {
	table, idCol, nameCol, err := s.tableFor(category)
	if err != nil {
		return nil, err
	}

	var id int64
	err = s.db.QueryRow(
		fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", idCol, table, nameCol), canonicalName).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching id from %s for %q: %w", table, canonicalName, err)
	}
	return &id, nil
}

func (s *SQLiteStore) GetStock(itemID int64) (*StockInfo, error) {
	var info StockInfo
	err := s.db.QueryRow(
		"SELECT current_stock, unit_price FROM dim_items WHERE item_id = ?", itemID).
		Scan(&info.AvailableQty, &info.UnitPrice)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching stock for item %d: %w", itemID, err)
	}
	return &info, nil
}

func (s *SQLiteStore) Insert(record *models.TransactionRecord) error {
	result, err := s.db.Exec(`INSERT INTO fact_sales_transactions
		(client_id, item_id, quantity, total_price, anomaly_score, is_flagged, data_source)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ClientID, record.ItemID, record.Quantity, record.TotalPrice,
		record.AnomalyScore, record.IsFlagged, record.SourceTag)
	if err != nil {
		return fmt.Errorf("error inserting transaction: %w", err)
	}
	if id, idErr := result.LastInsertId(); idErr == nil {
		record.ID = id
	}
	logger.L.Info("Transaction saved.", "itemID", record.ItemID, "clientID", record.ClientID, "totalPrice", record.TotalPrice)
	return nil
}

func (s *SQLiteStore) ListRecent(limit int) ([]models.RecentTransaction, error) {
	rows, err := s.db.Query(`
		SELECT t.transaction_id, i.item_name, c.client_name, t.quantity,
			t.total_price, t.anomaly_score, t.is_flagged, t.transaction_date
		FROM fact_sales_transactions t
		JOIN dim_items i ON t.item_id = i.item_id
		JOIN dim_clients c ON t.client_id = c.client_id
		ORDER BY t.transaction_date DESC, t.transaction_id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying recent transactions: %w", err)
	}
	defer rows.Close()

	var transactions []models.RecentTransaction
	for rows.Next() {
		var tx models.RecentTransaction
		if scanErr := rows.Scan(&tx.TransactionID, &tx.ItemName, &tx.ClientName,
			&tx.Quantity, &tx.TotalPrice, &tx.AnomalyScore, &tx.IsFlagged, &tx.Date); scanErr != nil {
			return nil, fmt.Errorf("error scanning recent transaction row: %w", scanErr)
		}
		transactions = append(transactions, tx)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over recent transaction rows: %w", err)
	}
	return transactions, nil
}

func (s *SQLiteStore) HasFingerprint(hash string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM transaction_idempotency_log WHERE request_hash = ?", hash).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("error checking idempotency log: %w", err)
	}
	return count > 0, nil
}

func (s *SQLiteStore) RecordFingerprint(hash string) error {
	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO transaction_idempotency_log (request_hash) VALUES (?)", hash)
	if err != nil {
		return fmt.Errorf("error recording fingerprint: %w", err)
	}
	return nil
}
