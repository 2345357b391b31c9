package database

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/nivasa/nivasa/cache"
	"github.com/nivasa/nivasa/config"
)

// Package-level singleton; not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn  *sql.DB
	Cache cache.Cache
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con, Cache: nil}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

// ConnectDB opens the postgres connection, retrying the initial ping with
// exponential backoff so the service survives a database that is still
// starting, then ensures the schema exists.
func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 30 * time.Second
	err = backoff.Retry(func() error {
		if pingErr := db.Ping(); pingErr != nil {
			logrus.Warnf("database not reachable yet, retrying: %v", pingErr)
			return pingErr
		}
		return nil
	}, policy)
	if err != nil {
		logrus.Errorf("database connection error: %v", err)
		return nil, err
	}

	for _, create := range []func(*sql.DB) error{
		createCompanyTable,
		createDimensionTables,
		createBankAccountTable,
		createUploadBatchTable,
		createBankTransactionTable,
		createClassificationTable,
		createCashEntryTable,
	} {
		if err := create(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func GenerateUUIDWithSuffix(module string) string {
	return fmt.Sprintf("%s_%s", module, uuid.New().String())
}

func createCompanyTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS companies (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func createDimensionTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS entities (
			id SERIAL PRIMARY KEY,
			company_id INT REFERENCES companies(id),
			name TEXT NOT NULL,
			entity_type TEXT NOT NULL DEFAULT 'Contact',
			linked_project_id INT REFERENCES entities(id),
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS cost_centres (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			code TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS transaction_types (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			code TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS contracts (
			id SERIAL PRIMARY KEY,
			company_id INT REFERENCES companies(id),
			name TEXT,
			vendor_name TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS assets (
			id SERIAL PRIMARY KEY,
			company_id INT REFERENCES companies(id),
			name TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS persons (
			id SERIAL PRIMARY KEY,
			full_name TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func createBankAccountTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bank_accounts (
			id SERIAL PRIMARY KEY,
			company_id INT NOT NULL REFERENCES companies(id),
			name TEXT NOT NULL,
			account_number TEXT NOT NULL UNIQUE,
			bank_name TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func createUploadBatchTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS upload_batches (
			id SERIAL PRIMARY KEY,
			batch_id TEXT NOT NULL UNIQUE,
			bank_account_id INT NOT NULL REFERENCES bank_accounts(id),
			file_name TEXT,
			uploaded_by TEXT,
			uploaded_count INT NOT NULL DEFAULT 0,
			skipped_count INT NOT NULL DEFAULT 0,
			errors_count INT NOT NULL DEFAULT 0,
			screened BOOLEAN NOT NULL DEFAULT FALSE,
			balance_continuity_in_file BOOLEAN NOT NULL DEFAULT FALSE,
			previous_ending_balance_match BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

// createBankTransactionTable keys deduplication on (bank_account_id,
// dedupe_key) so re-uploads are no-ops at the database level.
func createBankTransactionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bank_transactions (
			id SERIAL PRIMARY KEY,
			transaction_id TEXT NOT NULL UNIQUE,
			bank_account_id INT NOT NULL REFERENCES bank_accounts(id),
			upload_batch_id TEXT REFERENCES upload_batches(batch_id),
			transaction_date DATE NOT NULL,
			narration TEXT,
			credit_amount NUMERIC(18,2),
			debit_amount NUMERIC(18,2),
			balance_amount NUMERIC(18,2),
			utr_number TEXT,
			signed_amount NUMERIC(18,2) NOT NULL,
			dedupe_key TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT 'BANK',
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			UNIQUE (bank_account_id, dedupe_key)
		)
	`)
	return err
}

func createClassificationTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS classifications (
			id SERIAL PRIMARY KEY,
			classification_id TEXT NOT NULL UNIQUE,
			bank_transaction_id TEXT NOT NULL REFERENCES bank_transactions(transaction_id),
			company_id INT NOT NULL REFERENCES companies(id),
			transaction_type_id INT NOT NULL REFERENCES transaction_types(id),
			cost_centre_id INT NOT NULL REFERENCES cost_centres(id),
			entity_id INT NOT NULL REFERENCES entities(id),
			asset_id INT REFERENCES assets(id),
			contract_id INT REFERENCES contracts(id),
			amount NUMERIC(18,2) NOT NULL,
			value_date DATE NOT NULL,
			remarks TEXT,
			replaces_ids TEXT[] NOT NULL DEFAULT '{}',
			created_by TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func createCashEntryTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS cash_entries (
			id SERIAL PRIMARY KEY,
			cash_entry_id TEXT NOT NULL UNIQUE,
			company_id INT NOT NULL REFERENCES companies(id),
			transaction_type_id INT NOT NULL REFERENCES transaction_types(id),
			cost_centre_id INT NOT NULL REFERENCES cost_centres(id),
			entity_id INT NOT NULL REFERENCES entities(id),
			asset_id INT REFERENCES assets(id),
			contract_id INT REFERENCES contracts(id),
			spent_by_id INT REFERENCES persons(id),
			amount NUMERIC(18,2) NOT NULL,
			chargeable BOOLEAN NOT NULL DEFAULT FALSE,
			margin NUMERIC(18,2),
			balance_amount NUMERIC(18,2) NOT NULL,
			entry_date DATE NOT NULL,
			remarks TEXT,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_by TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	return err
}
