package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/leaseline/leaseline/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses, satisfied by pgxmock
// for unit testing.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const (
	accountColumns = `id, type, name, contact_phone`

	accountByPhoneSQL = `SELECT ` + accountColumns + ` FROM accounts WHERE type = $1 AND contact_phone = $2 LIMIT 1`
	accountByIDSQL    = `SELECT ` + accountColumns + ` FROM accounts WHERE type = $1 AND id = $2`
	listAccountsSQL   = `SELECT ` + accountColumns + ` FROM accounts WHERE type = $1 ORDER BY created_at, id`
	accountSourcesSQL = `SELECT source_id FROM account_sources WHERE account_id = $1 ORDER BY source_id`

	purchasedColumns = `id, number, status, assigned_to_type, assigned_to_id`

	purchasedByPhoneSQL = `SELECT ` + purchasedColumns + ` FROM purchased_numbers WHERE status = 'assigned' AND number = $1 LIMIT 1`
	listAssignedSQL     = `SELECT ` + purchasedColumns + ` FROM purchased_numbers WHERE status = 'assigned' ORDER BY created_at, id`

	tenantColumns = `id, property_manager_id, property_id, name, phone, email, is_active`

	propertyByIDSQL = `SELECT id, property_manager_id, name, address FROM properties WHERE id = $1`
)

// preparedStatements lists the hot lookup queries to prepare on each new
// connection.
var preparedStatements = map[string]string{
	"account_by_phone":   accountByPhoneSQL,
	"account_by_id":      accountByIDSQL,
	"account_sources":    accountSourcesSQL,
	"purchased_by_phone": purchasedByPhoneSQL,
	"property_by_id":     propertyByIDSQL,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS accounts (
	id            TEXT PRIMARY KEY,
	type          TEXT NOT NULL CHECK (type IN ('realtor', 'property_manager')),
	name          TEXT NOT NULL,
	contact_phone TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_accounts_contact_phone ON accounts (type, contact_phone);

CREATE TABLE IF NOT EXISTS account_sources (
	account_id TEXT NOT NULL REFERENCES accounts(id),
	source_id  TEXT NOT NULL,
	PRIMARY KEY (account_id, source_id)
);

CREATE TABLE IF NOT EXISTS purchased_numbers (
	id               TEXT PRIMARY KEY,
	number           TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'unassigned',
	assigned_to_type TEXT,
	assigned_to_id   TEXT,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_purchased_numbers_number ON purchased_numbers (number);

CREATE TABLE IF NOT EXISTS properties (
	id                  TEXT PRIMARY KEY,
	property_manager_id TEXT NOT NULL REFERENCES accounts(id),
	name                TEXT NOT NULL,
	address             TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS tenants (
	id                  TEXT PRIMARY KEY,
	property_manager_id TEXT NOT NULL REFERENCES accounts(id),
	property_id         TEXT NOT NULL REFERENCES properties(id),
	name                TEXT NOT NULL,
	phone               TEXT NOT NULL DEFAULT '',
	email               TEXT NOT NULL DEFAULT '',
	is_active           BOOLEAN NOT NULL DEFAULT true,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_tenants_phone ON tenants (phone) WHERE is_active;
CREATE INDEX IF NOT EXISTS idx_tenants_pm ON tenants (property_manager_id) WHERE is_active;
`

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// AccountByPhone finds an account of the given type by exact contact phone.
func (s *PostgresStore) AccountByPhone(ctx context.Context, typ model.AccountType, phone string) (*model.Account, error) {
	return s.scanAccount(s.pool.QueryRow(ctx, accountByPhoneSQL, typ, phone), "account by phone")
}

// AccountByID fetches an account by type and id.
func (s *PostgresStore) AccountByID(ctx context.Context, typ model.AccountType, id string) (*model.Account, error) {
	return s.scanAccount(s.pool.QueryRow(ctx, accountByIDSQL, typ, id), "account by id")
}

func (s *PostgresStore) scanAccount(row pgx.Row, op string) (*model.Account, error) {
	var a model.Account
	if err := row.Scan(&a.ID, &a.Type, &a.Name, &a.ContactPhone); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: "+op)
	}
	return &a, nil
}

// ListAccounts returns all accounts of the given type in creation order.
func (s *PostgresStore) ListAccounts(ctx context.Context, typ model.AccountType) ([]model.Account, error) {
	rows, err := s.pool.Query(ctx, listAccountsSQL, typ)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list accounts")
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.ID, &a.Type, &a.Name, &a.ContactPhone); err != nil {
			return nil, eris.Wrap(err, "postgres: scan account")
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// AccountSources returns the data-source identifiers linked to an account.
func (s *PostgresStore) AccountSources(ctx context.Context, accountID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, accountSourcesSQL, accountID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: account sources")
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			return nil, eris.Wrap(err, "postgres: scan source")
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// PurchasedNumberByPhone finds an assigned platform number by exact match.
func (s *PostgresStore) PurchasedNumberByPhone(ctx context.Context, phone string) (*model.PurchasedPhoneNumber, error) {
	n, err := scanPurchased(s.pool.QueryRow(ctx, purchasedByPhoneSQL, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: purchased number by phone")
	}
	return n, nil
}

// ListAssignedNumbers returns all assigned platform numbers in creation order.
func (s *PostgresStore) ListAssignedNumbers(ctx context.Context) ([]model.PurchasedPhoneNumber, error) {
	rows, err := s.pool.Query(ctx, listAssignedSQL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list assigned numbers")
	}
	defer rows.Close()

	var numbers []model.PurchasedPhoneNumber
	for rows.Next() {
		n, err := scanPurchased(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan purchased number")
		}
		numbers = append(numbers, *n)
	}
	return numbers, rows.Err()
}

func scanPurchased(row pgx.Row) (*model.PurchasedPhoneNumber, error) {
	var n model.PurchasedPhoneNumber
	var toType, toID *string
	if err := row.Scan(&n.ID, &n.Number, &n.Status, &toType, &toID); err != nil {
		return nil, err
	}
	if toType != nil {
		n.AssignedToType = model.AccountType(*toType)
	}
	if toID != nil {
		n.AssignedToID = *toID
	}
	return &n, nil
}

// FindTenantCandidates runs the OR-combined candidate query over active
// tenants, optionally scoped to a property manager. Row order is stable
// (creation order) so score ties resolve deterministically upstream.
func (s *PostgresStore) FindTenantCandidates(ctx context.Context, q TenantQuery) ([]model.Tenant, error) {
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Phone != "" {
		conds = append(conds, fmt.Sprintf("phone = %s", arg(q.Phone)))
	}
	if q.Email != "" {
		p := arg(q.Email)
		conds = append(conds, fmt.Sprintf("(lower(email) = lower(%s) OR email ILIKE '%%' || %s || '%%')", p, p))
	}
	if q.Name != "" {
		p := arg(q.Name)
		nameConds := []string{fmt.Sprintf("name ILIKE '%%' || %s || '%%'", p)}
		if q.NameFirst != "" {
			nameConds = append(nameConds, fmt.Sprintf("name ILIKE %s || '%%'", arg(q.NameFirst)))
		}
		if q.NameLast != "" {
			nameConds = append(nameConds, fmt.Sprintf("name ILIKE '%%' || %s || '%%'", arg(q.NameLast)))
		}
		conds = append(conds, "("+strings.Join(nameConds, " OR ")+")")
	}
	if len(conds) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT %s FROM tenants WHERE is_active AND (%s)", tenantColumns, strings.Join(conds, " OR "))
	if q.PropertyManagerID != "" {
		query += fmt.Sprintf(" AND property_manager_id = %s", arg(q.PropertyManagerID))
	}
	query += " ORDER BY created_at, id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find tenant candidates")
	}
	defer rows.Close()
	return scanTenants(rows)
}

// ListActiveTenants returns active tenants, optionally scoped to a property
// manager, in creation order.
func (s *PostgresStore) ListActiveTenants(ctx context.Context, propertyManagerID string) ([]model.Tenant, error) {
	query := fmt.Sprintf("SELECT %s FROM tenants WHERE is_active", tenantColumns)
	var args []any
	if propertyManagerID != "" {
		query += " AND property_manager_id = $1"
		args = append(args, propertyManagerID)
	}
	query += " ORDER BY created_at, id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list active tenants")
	}
	defer rows.Close()
	return scanTenants(rows)
}

func scanTenants(rows pgx.Rows) ([]model.Tenant, error) {
	var tenants []model.Tenant
	for rows.Next() {
		var t model.Tenant
		if err := rows.Scan(&t.ID, &t.PropertyManagerID, &t.PropertyID, &t.Name, &t.Phone, &t.Email, &t.IsActive); err != nil {
			return nil, eris.Wrap(err, "postgres: scan tenant")
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// PropertyByID fetches a property by id.
func (s *PostgresStore) PropertyByID(ctx context.Context, id string) (*model.Property, error) {
	var p model.Property
	err := s.pool.QueryRow(ctx, propertyByIDSQL, id).Scan(&p.ID, &p.PropertyManagerID, &p.Name, &p.Address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: property by id")
	}
	return &p, nil
}

// CreateAccount inserts an account row.
func (s *PostgresStore) CreateAccount(ctx context.Context, a model.Account) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO accounts (id, type, name, contact_phone) VALUES ($1, $2, $3, $4)`,
		a.ID, a.Type, a.Name, a.ContactPhone)
	if err != nil {
		return eris.Wrap(err, "postgres: create account")
	}
	return nil
}

// CreateProperty inserts a property row.
func (s *PostgresStore) CreateProperty(ctx context.Context, p model.Property) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO properties (id, property_manager_id, name, address) VALUES ($1, $2, $3, $4)`,
		p.ID, p.PropertyManagerID, p.Name, p.Address)
	if err != nil {
		return eris.Wrap(err, "postgres: create property")
	}
	return nil
}

// CreateTenant inserts a tenant row.
func (s *PostgresStore) CreateTenant(ctx context.Context, t model.Tenant) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tenants (id, property_manager_id, property_id, name, phone, email, is_active) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.PropertyManagerID, t.PropertyID, t.Name, t.Phone, t.Email, t.IsActive)
	if err != nil {
		return eris.Wrap(err, "postgres: create tenant")
	}
	return nil
}

// UpsertPurchasedNumber inserts or updates a platform number by number.
func (s *PostgresStore) UpsertPurchasedNumber(ctx context.Context, n model.PurchasedPhoneNumber) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO purchased_numbers (id, number, status, assigned_to_type, assigned_to_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (number) DO UPDATE SET
			status = EXCLUDED.status,
			assigned_to_type = EXCLUDED.assigned_to_type,
			assigned_to_id = EXCLUDED.assigned_to_id`,
		n.ID, n.Number, n.Status, nilIfEmpty(string(n.AssignedToType)), nilIfEmpty(n.AssignedToID))
	if err != nil {
		return eris.Wrap(err, "postgres: upsert purchased number")
	}
	return nil
}

// AddAccountSource links a data source to an account.
func (s *PostgresStore) AddAccountSource(ctx context.Context, accountID, sourceID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO account_sources (account_id, source_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		accountID, sourceID)
	if err != nil {
		return eris.Wrap(err, "postgres: add account source")
	}
	return nil
}

// nilIfEmpty returns nil for empty strings, allowing NULL storage.
func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
