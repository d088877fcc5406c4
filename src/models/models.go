package models

// ExtractedPayload is the raw structured output of an extractor. Field types
// are whatever the decoder produced; nothing here is trusted until it has
// passed structural validation.
type ExtractedPayload map[string]any

// ExtractedRecord is a payload after structural validation, with fields in
// their final types.
type ExtractedRecord struct {
	Item     string `json:"item"`
	Quantity int    `json:"qty"`
	Client   string `json:"client"`
	Action   string `json:"action"`
}

// ValidationResult reports the outcome of structural validation. Errors are
// ordered as they were discovered.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// ResolvedIDs carries the dimension-table identifiers for a transaction's
// entities. A nil pointer means the reference could not be resolved, which is
// a terminal rejection.
type ResolvedIDs struct {
	ItemID   *int64 `json:"item_id"`
	ClientID *int64 `json:"client_id"`
}

// StockDecision is the business rule engine's verdict for one requested
// quantity. UnitPrice is authoritative only when Allowed is true; rejected
// decisions may still report it for diagnostics.
type StockDecision struct {
	Allowed   bool    `json:"allowed"`
	Reason    string  `json:"reason"`
	UnitPrice float64 `json:"unit_price"`
}

// TransactionRecord is the final, approved payload persisted to the fact
// table. Immutable once written.
type TransactionRecord struct {
	ID           int64   `json:"id,omitempty"`
	ClientID     int64   `json:"client_id"`
	ItemID       int64   `json:"item_id"`
	Quantity     int     `json:"quantity"`
	TotalPrice   float64 `json:"total_price"`
	AnomalyScore float64 `json:"anomaly_score"`
	IsFlagged    bool    `json:"is_flagged"`
	SourceTag    string  `json:"source_tag"`
}

// RecentTransaction is a fact row joined with its dimension names, as served
// to the dashboard.
type RecentTransaction struct {
	TransactionID int64   `json:"transaction_id"`
	ItemName      string  `json:"item_name"`
	ClientName    string  `json:"client_name"`
	Quantity      int     `json:"quantity"`
	TotalPrice    float64 `json:"total_price"`
	AnomalyScore  float64 `json:"anomaly_score"`
	IsFlagged     bool    `json:"is_flagged"`
	Date          string  `json:"transaction_date"`
}

// Pipeline terminal states.
const (
	StatusSuccess  = "SUCCESS"
	StatusRejected = "REJECTED"
)

// PipelineResponse is the router's answer for one raw request. Logs holds the
// per-stage trace and is populated even on rejection; it is returned to the
// caller and never persisted.
type PipelineResponse struct {
	Status string             `json:"status"`
	Error  string             `json:"error,omitempty"`
	Data   *TransactionRecord `json:"data,omitempty"`
	Logs   map[string]any     `json:"logs"`
}
