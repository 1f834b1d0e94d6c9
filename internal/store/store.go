package store

import (
	"context"

	"github.com/leaseline/leaseline/internal/model"
)

// TenantQuery specifies the OR-combined conditions for tenant candidate
// retrieval. Empty fields are skipped. NameFirst/NameLast are derived from
// Name by the caller after title/suffix stripping.
type TenantQuery struct {
	Phone             string
	Email             string
	Name              string
	NameFirst         string
	NameLast          string
	PropertyManagerID string
}

// Store defines the persistence contract for the identity resolution engine.
// All lookups are read paths; a miss is (nil, nil), never an error. The
// create/upsert methods exist for operator seeding and tests, not for the
// engine itself.
type Store interface {
	// Accounts
	AccountByPhone(ctx context.Context, typ model.AccountType, phone string) (*model.Account, error)
	AccountByID(ctx context.Context, typ model.AccountType, id string) (*model.Account, error)
	ListAccounts(ctx context.Context, typ model.AccountType) ([]model.Account, error)
	// AccountSources returns the data-source identifiers the account may
	// query, derived from its stored source relationships.
	AccountSources(ctx context.Context, accountID string) ([]string, error)

	// Purchased numbers (assigned rows only)
	PurchasedNumberByPhone(ctx context.Context, phone string) (*model.PurchasedPhoneNumber, error)
	ListAssignedNumbers(ctx context.Context) ([]model.PurchasedPhoneNumber, error)

	// Tenants
	FindTenantCandidates(ctx context.Context, q TenantQuery) ([]model.Tenant, error)
	ListActiveTenants(ctx context.Context, propertyManagerID string) ([]model.Tenant, error)
	PropertyByID(ctx context.Context, id string) (*model.Property, error)

	// Seeding
	CreateAccount(ctx context.Context, a model.Account) error
	CreateProperty(ctx context.Context, p model.Property) error
	CreateTenant(ctx context.Context, t model.Tenant) error
	UpsertPurchasedNumber(ctx context.Context, n model.PurchasedPhoneNumber) error
	AddAccountSource(ctx context.Context, accountID, sourceID string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
