package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/leaseline/leaseline/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Intended for local
// development and tests; Postgres is the production driver.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given DSN and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS accounts (
	id            TEXT PRIMARY KEY,
	type          TEXT NOT NULL CHECK (type IN ('realtor', 'property_manager')),
	name          TEXT NOT NULL,
	contact_phone TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS account_sources (
	account_id TEXT NOT NULL REFERENCES accounts(id),
	source_id  TEXT NOT NULL,
	PRIMARY KEY (account_id, source_id)
);

CREATE TABLE IF NOT EXISTS purchased_numbers (
	id               TEXT PRIMARY KEY,
	number           TEXT NOT NULL UNIQUE,
	status           TEXT NOT NULL DEFAULT 'unassigned',
	assigned_to_type TEXT,
	assigned_to_id   TEXT,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS properties (
	id                  TEXT PRIMARY KEY,
	property_manager_id TEXT NOT NULL REFERENCES accounts(id),
	name                TEXT NOT NULL,
	address             TEXT NOT NULL DEFAULT '',
	created_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS tenants (
	id                  TEXT PRIMARY KEY,
	property_manager_id TEXT NOT NULL REFERENCES accounts(id),
	property_id         TEXT NOT NULL REFERENCES properties(id),
	name                TEXT NOT NULL,
	phone               TEXT NOT NULL DEFAULT '',
	email               TEXT NOT NULL DEFAULT '',
	is_active           INTEGER NOT NULL DEFAULT 1,
	created_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// Migrate creates the schema if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AccountByPhone finds an account of the given type by exact contact phone.
func (s *SQLiteStore) AccountByPhone(ctx context.Context, typ model.AccountType, phone string) (*model.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, type, name, contact_phone FROM accounts WHERE type = ? AND contact_phone = ? LIMIT 1`, typ, phone)
	return scanSQLAccount(row, "account by phone")
}

// AccountByID fetches an account by type and id.
func (s *SQLiteStore) AccountByID(ctx context.Context, typ model.AccountType, id string) (*model.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, type, name, contact_phone FROM accounts WHERE type = ? AND id = ?`, typ, id)
	return scanSQLAccount(row, "account by id")
}

func scanSQLAccount(row *sql.Row, op string) (*model.Account, error) {
	var a model.Account
	if err := row.Scan(&a.ID, &a.Type, &a.Name, &a.ContactPhone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: "+op)
	}
	return &a, nil
}

// ListAccounts returns all accounts of the given type in creation order.
func (s *SQLiteStore) ListAccounts(ctx context.Context, typ model.AccountType) ([]model.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, name, contact_phone FROM accounts WHERE type = ? ORDER BY created_at, id`, typ)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list accounts")
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.ID, &a.Type, &a.Name, &a.ContactPhone); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan account")
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// AccountSources returns the data-source identifiers linked to an account.
func (s *SQLiteStore) AccountSources(ctx context.Context, accountID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_id FROM account_sources WHERE account_id = ? ORDER BY source_id`, accountID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: account sources")
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan source")
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// PurchasedNumberByPhone finds an assigned platform number by exact match.
func (s *SQLiteStore) PurchasedNumberByPhone(ctx context.Context, phone string) (*model.PurchasedPhoneNumber, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, number, status, assigned_to_type, assigned_to_id FROM purchased_numbers WHERE status = 'assigned' AND number = ? LIMIT 1`, phone)
	n, err := scanSQLPurchased(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: purchased number by phone")
	}
	return n, nil
}

// ListAssignedNumbers returns all assigned platform numbers in creation order.
func (s *SQLiteStore) ListAssignedNumbers(ctx context.Context) ([]model.PurchasedPhoneNumber, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, number, status, assigned_to_type, assigned_to_id FROM purchased_numbers WHERE status = 'assigned' ORDER BY created_at, id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list assigned numbers")
	}
	defer rows.Close()

	var numbers []model.PurchasedPhoneNumber
	for rows.Next() {
		n, err := scanSQLPurchased(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan purchased number")
		}
		numbers = append(numbers, *n)
	}
	return numbers, rows.Err()
}

func scanSQLPurchased(scan func(dest ...any) error) (*model.PurchasedPhoneNumber, error) {
	var n model.PurchasedPhoneNumber
	var toType, toID sql.NullString
	if err := scan(&n.ID, &n.Number, &n.Status, &toType, &toID); err != nil {
		return nil, err
	}
	if toType.Valid {
		n.AssignedToType = model.AccountType(toType.String)
	}
	if toID.Valid {
		n.AssignedToID = toID.String
	}
	return &n, nil
}

// FindTenantCandidates runs the OR-combined candidate query over active
// tenants, optionally scoped to a property manager.
func (s *SQLiteStore) FindTenantCandidates(ctx context.Context, q TenantQuery) ([]model.Tenant, error) {
	var conds []string
	var args []any

	if q.Phone != "" {
		conds = append(conds, "phone = ?")
		args = append(args, q.Phone)
	}
	if q.Email != "" {
		conds = append(conds, "(lower(email) = lower(?) OR instr(lower(email), lower(?)) > 0)")
		args = append(args, q.Email, q.Email)
	}
	if q.Name != "" {
		nameConds := []string{"instr(lower(name), lower(?)) > 0"}
		args = append(args, q.Name)
		if q.NameFirst != "" {
			nameConds = append(nameConds, "lower(name) LIKE lower(?) || '%'")
			args = append(args, q.NameFirst)
		}
		if q.NameLast != "" {
			nameConds = append(nameConds, "instr(lower(name), lower(?)) > 0")
			args = append(args, q.NameLast)
		}
		conds = append(conds, "("+strings.Join(nameConds, " OR ")+")")
	}
	if len(conds) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(
		"SELECT id, property_manager_id, property_id, name, phone, email, is_active FROM tenants WHERE is_active = 1 AND (%s)",
		strings.Join(conds, " OR "))
	if q.PropertyManagerID != "" {
		query += " AND property_manager_id = ?"
		args = append(args, q.PropertyManagerID)
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find tenant candidates")
	}
	defer rows.Close()
	return scanSQLTenants(rows)
}

// ListActiveTenants returns active tenants, optionally scoped to a property
// manager, in creation order.
func (s *SQLiteStore) ListActiveTenants(ctx context.Context, propertyManagerID string) ([]model.Tenant, error) {
	query := `SELECT id, property_manager_id, property_id, name, phone, email, is_active FROM tenants WHERE is_active = 1`
	var args []any
	if propertyManagerID != "" {
		query += " AND property_manager_id = ?"
		args = append(args, propertyManagerID)
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list active tenants")
	}
	defer rows.Close()
	return scanSQLTenants(rows)
}

func scanSQLTenants(rows *sql.Rows) ([]model.Tenant, error) {
	var tenants []model.Tenant
	for rows.Next() {
		var t model.Tenant
		if err := rows.Scan(&t.ID, &t.PropertyManagerID, &t.PropertyID, &t.Name, &t.Phone, &t.Email, &t.IsActive); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan tenant")
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// PropertyByID fetches a property by id.
func (s *SQLiteStore) PropertyByID(ctx context.Context, id string) (*model.Property, error) {
	var p model.Property
	err := s.db.QueryRowContext(ctx,
		`SELECT id, property_manager_id, name, address FROM properties WHERE id = ?`, id).
		Scan(&p.ID, &p.PropertyManagerID, &p.Name, &p.Address)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: property by id")
	}
	return &p, nil
}

// CreateAccount inserts an account row.
func (s *SQLiteStore) CreateAccount(ctx context.Context, a model.Account) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, type, name, contact_phone) VALUES (?, ?, ?, ?)`,
		a.ID, a.Type, a.Name, a.ContactPhone)
	if err != nil {
		return eris.Wrap(err, "sqlite: create account")
	}
	return nil
}

// CreateProperty inserts a property row.
func (s *SQLiteStore) CreateProperty(ctx context.Context, p model.Property) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO properties (id, property_manager_id, name, address) VALUES (?, ?, ?, ?)`,
		p.ID, p.PropertyManagerID, p.Name, p.Address)
	if err != nil {
		return eris.Wrap(err, "sqlite: create property")
	}
	return nil
}

// CreateTenant inserts a tenant row.
func (s *SQLiteStore) CreateTenant(ctx context.Context, t model.Tenant) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tenants (id, property_manager_id, property_id, name, phone, email, is_active) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.PropertyManagerID, t.PropertyID, t.Name, t.Phone, t.Email, t.IsActive)
	if err != nil {
		return eris.Wrap(err, "sqlite: create tenant")
	}
	return nil
}

// UpsertPurchasedNumber inserts or updates a platform number by number.
func (s *SQLiteStore) UpsertPurchasedNumber(ctx context.Context, n model.PurchasedPhoneNumber) error {
	var toType, toID any
	if n.AssignedToType != "" {
		toType = string(n.AssignedToType)
	}
	if n.AssignedToID != "" {
		toID = n.AssignedToID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO purchased_numbers (id, number, status, assigned_to_type, assigned_to_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (number) DO UPDATE SET
			status = excluded.status,
			assigned_to_type = excluded.assigned_to_type,
			assigned_to_id = excluded.assigned_to_id`,
		n.ID, n.Number, n.Status, toType, toID)
	if err != nil {
		return eris.Wrap(err, "sqlite: upsert purchased number")
	}
	return nil
}

// AddAccountSource links a data source to an account.
func (s *SQLiteStore) AddAccountSource(ctx context.Context, accountID, sourceID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO account_sources (account_id, source_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		accountID, sourceID)
	if err != nil {
		return eris.Wrap(err, "sqlite: add account source")
	}
	return nil
}
