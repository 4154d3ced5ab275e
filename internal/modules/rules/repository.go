package rules

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/alevras/covercall/internal/domain"
)

// Repository handles rule persistence in rules.db.
// Conditions and the action are stored as JSON columns: rules are small
// documents read as a whole, never queried by condition internals.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a rules repository and ensures its schema exists
func NewRepository(db *sql.DB, log zerolog.Logger) (*Repository, error) {
	r := &Repository{
		db:  db,
		log: log.With().Str("repository", "rules").Logger(),
	}
	if err := r.initSchema(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repository) initSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS rules (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			strategy_type TEXT NOT NULL DEFAULT '',
			conditions TEXT NOT NULL,
			action TEXT NOT NULL,
			is_enabled INTEGER NOT NULL DEFAULT 1,
			times_triggered INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create rules table: %w", err)
	}
	return nil
}

// Create inserts a new rule
func (r *Repository) Create(rule *Rule) error {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("failed to encode rule conditions: %w", err)
	}
	action, err := json.Marshal(rule.Action)
	if err != nil {
		return fmt.Errorf("failed to encode rule action: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO rules (id, name, description, strategy_type, conditions, action,
			is_enabled, times_triggered, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.Name, rule.Description, string(rule.StrategyType),
		string(conditions), string(action),
		boolToInt(rule.IsEnabled), rule.TimesTriggered,
		rule.CreatedAt.Unix(), rule.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert rule %s: %w", rule.ID, err)
	}
	return nil
}

// GetByID returns a rule, or nil when it doesn't exist
func (r *Repository) GetByID(id string) (*Rule, error) {
	row := r.db.QueryRow(`
		SELECT id, name, description, strategy_type, conditions, action,
			is_enabled, times_triggered, created_at, updated_at
		FROM rules WHERE id = ?`, id)

	rule, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule %s: %w", id, err)
	}
	return rule, nil
}

// List returns all rules ordered by creation time
func (r *Repository) List() ([]Rule, error) {
	rows, err := r.db.Query(`
		SELECT id, name, description, strategy_type, conditions, action,
			is_enabled, times_triggered, created_at, updated_at
		FROM rules ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var out []Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		out = append(out, *rule)
	}
	return out, rows.Err()
}

// ListEnabled returns only enabled rules
func (r *Repository) ListEnabled() ([]Rule, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}
	enabled := make([]Rule, 0, len(all))
	for _, rule := range all {
		if rule.IsEnabled {
			enabled = append(enabled, rule)
		}
	}
	return enabled, nil
}

// Update rewrites a rule's editable fields
func (r *Repository) Update(rule *Rule) error {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("failed to encode rule conditions: %w", err)
	}
	action, err := json.Marshal(rule.Action)
	if err != nil {
		return fmt.Errorf("failed to encode rule action: %w", err)
	}

	res, err := r.db.Exec(`
		UPDATE rules SET name = ?, description = ?, strategy_type = ?,
			conditions = ?, action = ?, is_enabled = ?, updated_at = ?
		WHERE id = ?`,
		rule.Name, rule.Description, string(rule.StrategyType),
		string(conditions), string(action), boolToInt(rule.IsEnabled),
		time.Now().Unix(), rule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule %s: %w", rule.ID, err)
	}
	return requireRowAffected(res, rule.ID)
}

// SetEnabled flips only the enabled flag
func (r *Repository) SetEnabled(id string, enabled bool) error {
	res, err := r.db.Exec(
		"UPDATE rules SET is_enabled = ?, updated_at = ? WHERE id = ?",
		boolToInt(enabled), time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to toggle rule %s: %w", id, err)
	}
	return requireRowAffected(res, id)
}

// IncrementTriggered bumps the monotonic trigger counter
func (r *Repository) IncrementTriggered(id string) error {
	_, err := r.db.Exec(
		"UPDATE rules SET times_triggered = times_triggered + 1, updated_at = ? WHERE id = ?",
		time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to increment trigger count for rule %s: %w", id, err)
	}
	return nil
}

// Delete removes a rule
func (r *Repository) Delete(id string) error {
	res, err := r.db.Exec("DELETE FROM rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete rule %s: %w", id, err)
	}
	return requireRowAffected(res, id)
}

// ErrRuleNotFound is returned when an operation targets a missing rule
var ErrRuleNotFound = fmt.Errorf("rule not found")

func requireRowAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows for rule %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("rule %s: %w", id, ErrRuleNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*Rule, error) {
	var rule Rule
	var strategy, conditions, action string
	var enabled int
	var createdAt, updatedAt int64

	err := row.Scan(&rule.ID, &rule.Name, &rule.Description, &strategy,
		&conditions, &action, &enabled, &rule.TimesTriggered, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	rule.StrategyType = domain.StrategyType(strategy)
	rule.IsEnabled = enabled != 0
	rule.CreatedAt = time.Unix(createdAt, 0).UTC()
	rule.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	if err := json.Unmarshal([]byte(conditions), &rule.Conditions); err != nil {
		return nil, fmt.Errorf("failed to decode conditions for rule %s: %w", rule.ID, err)
	}
	if err := json.Unmarshal([]byte(action), &rule.Action); err != nil {
		return nil, fmt.Errorf("failed to decode action for rule %s: %w", rule.ID, err)
	}
	return &rule, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
