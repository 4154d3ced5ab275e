package portfolio

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository handles database operations for positions
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a position repository and ensures its schema exists
func NewRepository(db *sql.DB, log zerolog.Logger) (*Repository, error) {
	repo := &Repository{
		db:  db,
		log: log.With().Str("component", "portfolio_repository").Logger(),
	}
	if err := repo.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize portfolio schema: %w", err)
	}
	return repo, nil
}

func (r *Repository) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS positions (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		account TEXT NOT NULL DEFAULT '',
		quantity REAL NOT NULL DEFAULT 0,
		avg_cost REAL NOT NULL DEFAULT 0,
		last_price REAL NOT NULL DEFAULT 0,
		currency TEXT NOT NULL DEFAULT '',
		imported_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		UNIQUE(symbol, account)
	);
	`
	_, err := r.db.Exec(schema)
	return err
}

const positionColumns = `id, symbol, account, quantity, avg_cost, last_price, currency, imported_at, updated_at`

// Upsert inserts a position or updates the existing (symbol, account) row.
// Returns true when a new row was created.
func (r *Repository) Upsert(p *Position) (bool, error) {
	existing, err := r.getBySymbolAccount(p.Symbol, p.Account)
	if err != nil {
		return false, err
	}

	if existing == nil {
		_, err := r.db.Exec(`INSERT INTO positions (`+positionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Symbol, p.Account, p.Quantity, p.AvgCost, p.LastPrice, p.Currency,
			p.ImportedAt.Unix(), p.UpdatedAt.Unix())
		if err != nil {
			return false, fmt.Errorf("failed to insert position: %w", err)
		}
		return true, nil
	}

	// Keep the original id and imported_at
	p.ID = existing.ID
	p.ImportedAt = existing.ImportedAt
	_, err = r.db.Exec(`UPDATE positions SET quantity = ?, avg_cost = ?, last_price = ?, currency = ?, updated_at = ?
		WHERE id = ?`,
		p.Quantity, p.AvgCost, p.LastPrice, p.Currency, p.UpdatedAt.Unix(), p.ID)
	if err != nil {
		return false, fmt.Errorf("failed to update position: %w", err)
	}
	return false, nil
}

func (r *Repository) getBySymbolAccount(symbol, account string) (*Position, error) {
	row := r.db.QueryRow(`SELECT `+positionColumns+` FROM positions WHERE symbol = ? AND account = ?`,
		symbol, account)
	p, err := scanPosition(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return p, nil
}

// List returns all positions ordered by symbol
func (r *Repository) List() ([]Position, error) {
	rows, err := r.db.Query(`SELECT ` + positionColumns + ` FROM positions ORDER BY symbol, account`)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	defer rows.Close()

	positions := []Position{}
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, *p)
	}
	return positions, rows.Err()
}

// UpdateLastPrice marks every row for a symbol at the given price
func (r *Repository) UpdateLastPrice(symbol string, price float64, now time.Time) error {
	_, err := r.db.Exec(`UPDATE positions SET last_price = ?, updated_at = ? WHERE symbol = ?`,
		price, now.Unix(), symbol)
	if err != nil {
		return fmt.Errorf("failed to update last price: %w", err)
	}
	return nil
}

// Delete removes a position by id
func (r *Repository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM positions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPositionNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosition(row rowScanner) (*Position, error) {
	var p Position
	var importedAt, updatedAt int64

	err := row.Scan(&p.ID, &p.Symbol, &p.Account, &p.Quantity, &p.AvgCost,
		&p.LastPrice, &p.Currency, &importedAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	p.ImportedAt = time.Unix(importedAt, 0).UTC()
	p.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &p, nil
}
