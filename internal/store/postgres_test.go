package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leaseline/leaseline/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit
// testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_AccountByPhone(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, type, name, contact_phone FROM accounts WHERE type = \$1 AND contact_phone = \$2`).
		WithArgs(model.AccountTypeRealtor, "+14125551234").
		WillReturnRows(pgxmock.NewRows([]string{"id", "type", "name", "contact_phone"}).
			AddRow("acct-1", "realtor", "Jane Realtor", "+14125551234"))

	a, err := s.AccountByPhone(context.Background(), model.AccountTypeRealtor, "+14125551234")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "acct-1", a.ID)
	assert.Equal(t, model.AccountTypeRealtor, a.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AccountByPhone_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, type, name, contact_phone FROM accounts WHERE type = \$1 AND contact_phone = \$2`).
		WithArgs(model.AccountTypePropertyManager, "+19995550000").
		WillReturnError(pgx.ErrNoRows)

	a, err := s.AccountByPhone(context.Background(), model.AccountTypePropertyManager, "+19995550000")
	require.NoError(t, err)
	assert.Nil(t, a)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AccountSources(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT source_id FROM account_sources WHERE account_id = \$1`).
		WithArgs("acct-1").
		WillReturnRows(pgxmock.NewRows([]string{"source_id"}).
			AddRow("crm-14").AddRow("mls-7"))

	sources, err := s.AccountSources(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"crm-14", "mls-7"}, sources)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PurchasedNumberByPhone(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	toType := "realtor"
	toID := "acct-1"
	mock.ExpectQuery(`SELECT id, number, status, assigned_to_type, assigned_to_id FROM purchased_numbers WHERE status = 'assigned' AND number = \$1`).
		WithArgs("+14125559999").
		WillReturnRows(pgxmock.NewRows([]string{"id", "number", "status", "assigned_to_type", "assigned_to_id"}).
			AddRow("pn-1", "+14125559999", "assigned", &toType, &toID))

	n, err := s.PurchasedNumberByPhone(context.Background(), "+14125559999")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, model.AccountTypeRealtor, n.AssignedToType)
	assert.Equal(t, "acct-1", n.AssignedToID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PurchasedNumberByPhone_NullAssignment(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, number, status, assigned_to_type, assigned_to_id FROM purchased_numbers`).
		WithArgs("+14125559999").
		WillReturnRows(pgxmock.NewRows([]string{"id", "number", "status", "assigned_to_type", "assigned_to_id"}).
			AddRow("pn-1", "+14125559999", "assigned", (*string)(nil), (*string)(nil)))

	n, err := s.PurchasedNumberByPhone(context.Background(), "+14125559999")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Empty(t, string(n.AssignedToType))
	assert.Empty(t, n.AssignedToID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindTenantCandidates_PhoneAndName(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, property_manager_id, property_id, name, phone, email, is_active FROM tenants WHERE is_active AND .+ ORDER BY created_at, id`).
		WithArgs("+14125551234", "john smith", "john", "smith").
		WillReturnRows(pgxmock.NewRows([]string{"id", "property_manager_id", "property_id", "name", "phone", "email", "is_active"}).
			AddRow("ten-1", "pm-1", "prop-1", "John Smith", "+14125551234", "john@example.com", true))

	tenants, err := s.FindTenantCandidates(context.Background(), TenantQuery{
		Phone:     "+14125551234",
		Name:      "john smith",
		NameFirst: "john",
		NameLast:  "smith",
	})
	require.NoError(t, err)
	require.Len(t, tenants, 1)
	assert.Equal(t, "ten-1", tenants[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindTenantCandidates_ScopedToManager(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM tenants WHERE is_active AND .+ AND property_manager_id = \$2`).
		WithArgs("+14125551234", "pm-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "property_manager_id", "property_id", "name", "phone", "email", "is_active"}))

	tenants, err := s.FindTenantCandidates(context.Background(), TenantQuery{
		Phone:             "+14125551234",
		PropertyManagerID: "pm-1",
	})
	require.NoError(t, err)
	assert.Empty(t, tenants)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindTenantCandidates_NoSignals(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	// No query signals means no query at all.
	tenants, err := s.FindTenantCandidates(context.Background(), TenantQuery{})
	require.NoError(t, err)
	assert.Nil(t, tenants)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PropertyByID_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, property_manager_id, name, address FROM properties WHERE id = \$1`).
		WithArgs("prop-missing").
		WillReturnError(pgx.ErrNoRows)

	p, err := s.PropertyByID(context.Background(), "prop-missing")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertPurchasedNumber(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO purchased_numbers .+ ON CONFLICT \(number\) DO UPDATE`).
		WithArgs("pn-1", "+14125559999", model.NumberStatusAssigned, "realtor", "acct-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertPurchasedNumber(context.Background(), model.PurchasedPhoneNumber{
		ID:             "pn-1",
		Number:         "+14125559999",
		Status:         model.NumberStatusAssigned,
		AssignedToType: model.AccountTypeRealtor,
		AssignedToID:   "acct-1",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertPurchasedNumber_Unassigned(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	// Empty assignment fields are stored as NULL.
	mock.ExpectExec(`INSERT INTO purchased_numbers`).
		WithArgs("pn-2", "+14125558888", model.NumberStatusUnassigned, nil, nil).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertPurchasedNumber(context.Background(), model.PurchasedPhoneNumber{
		ID:     "pn-2",
		Number: "+14125558888",
		Status: model.NumberStatusUnassigned,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS accounts`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
