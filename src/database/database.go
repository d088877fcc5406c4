package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/smartflow/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Checking database migrations", "databasePath", databasePath)
	} else {
		stdlog.Println("Checking database migrations for:", databasePath)
	}
	migrateFactTable()

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS dim_items (
		item_id INTEGER PRIMARY KEY AUTOINCREMENT,
		item_name TEXT NOT NULL UNIQUE,
		current_stock INTEGER NOT NULL DEFAULT 0,
		unit_price REAL NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS dim_clients (
		client_id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_name TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS fact_sales_transactions (
		transaction_id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_id INTEGER NOT NULL,
		item_id INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		total_price REAL NOT NULL,
		anomaly_score REAL NOT NULL,
		is_flagged BOOLEAN NOT NULL DEFAULT FALSE,
		data_source TEXT,
		transaction_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(client_id) REFERENCES dim_clients(client_id),
		FOREIGN KEY(item_id) REFERENCES dim_items(item_id)
	);

	CREATE TABLE IF NOT EXISTS transaction_idempotency_log (
		request_hash TEXT PRIMARY KEY,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err = DB.Exec(createTableStatement)
	if err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// referenceItem is one row of the baseline catalog.
type referenceItem struct {
	name  string
	stock int
	price float64
}

var seedItems = []referenceItem{
	{"iPhone 15", 50, 1000},
	{"Dell XPS", 30, 1200},
	{"MacBook Pro", 20, 2500},
}

var seedClients = []string{"TechCorp", "Client A", "AlphaLLC"}

// SeedReferenceData provisions the baseline catalog when the dimension tables
// are empty. Existing rows are never touched.
func SeedReferenceData() error {
	var itemCount int
	if err := DB.QueryRow("SELECT COUNT(*) FROM dim_items").Scan(&itemCount); err != nil {
		return err
	}
	if itemCount == 0 {
		for _, it := range seedItems {
			if _, err := DB.Exec(
				"INSERT OR IGNORE INTO dim_items (item_name, current_stock, unit_price) VALUES (?, ?, ?)",
				it.name, it.stock, it.price); err != nil {
				return err
			}
		}
		if logger.L != nil {
			logger.L.Info("Seeded dim_items with baseline catalog", "count", len(seedItems))
		}
	}

	var clientCount int
	if err := DB.QueryRow("SELECT COUNT(*) FROM dim_clients").Scan(&clientCount); err != nil {
		return err
	}
	if clientCount == 0 {
		for _, name := range seedClients {
			if _, err := DB.Exec(
				"INSERT OR IGNORE INTO dim_clients (client_name) VALUES (?)", name); err != nil {
				return err
			}
		}
		if logger.L != nil {
			logger.L.Info("Seeded dim_clients with baseline catalog", "count", len(seedClients))
		}
	}
	return nil
}

func migrateFactTable() {
	var tableName string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='fact_sales_transactions'").Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			if logger.L != nil {
				logger.L.Info("fact_sales_transactions table does not exist, no migration needed as table will be created.")
			} else {
				stdlog.Println("fact_sales_transactions table does not exist, no migration needed as table will be created.")
			}
			return
		}
		if logger.L != nil {
			logger.L.Error("Error checking for fact_sales_transactions table", "error", err)
		} else {
			stdlog.Printf("Error checking for fact_sales_transactions table: %v", err)
		}
		return
	}

	rows, err := DB.Query("PRAGMA table_info(fact_sales_transactions)")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema for fact_sales_transactions", "error", err)
		} else {
			stdlog.Printf("Error querying table schema: %v", err)
		}
		return
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}

		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			if logger.L != nil {
				logger.L.Error("Error scanning column info", "error", err)
			} else {
				stdlog.Printf("Error scanning column info: %v", err)
			}
			return
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info", "error", err)
		} else {
			stdlog.Printf("Error iterating over column info: %v", err)
		}
		return
	}

	if _, ok := columnExists["data_source"]; !ok {
		_, err := DB.Exec("ALTER TABLE fact_sales_transactions ADD COLUMN data_source TEXT")
		if err != nil {
			if logger.L != nil {
				logger.L.Error("Error adding data_source column", "error", err)
			} else {
				stdlog.Printf("Error adding data_source column: %v", err)
			}
		} else {
			if logger.L != nil {
				logger.L.Info("Added data_source column to fact_sales_transactions table")
			} else {
				stdlog.Println("Added data_source column to fact_sales_transactions table")
			}
		}
	}

	if _, ok := columnExists["transaction_date"]; !ok {
		_, err := DB.Exec("ALTER TABLE fact_sales_transactions ADD COLUMN transaction_date TIMESTAMP")
		if err != nil {
			if logger.L != nil {
				logger.L.Error("Error adding transaction_date column", "error", err)
			} else {
				stdlog.Printf("Error adding transaction_date column: %v", err)
			}
		} else {
			if logger.L != nil {
				logger.L.Info("Added transaction_date column to fact_sales_transactions table")
			} else {
				stdlog.Println("Added transaction_date column to fact_sales_transactions table")
			}
		}
	}
}
