package identity

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leaseline/leaseline/internal/model"
	"github.com/leaseline/leaseline/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedAccount(t *testing.T, st store.Store, a model.Account) {
	t.Helper()
	require.NoError(t, st.CreateAccount(context.Background(), a))
	for _, src := range a.AccessScope {
		require.NoError(t, st.AddAccountSource(context.Background(), a.ID, src))
	}
}

func seedProperty(t *testing.T, st store.Store, p model.Property) {
	t.Helper()
	require.NoError(t, st.CreateProperty(context.Background(), p))
}

func seedTenant(t *testing.T, st store.Store, tn model.Tenant) {
	t.Helper()
	require.NoError(t, st.CreateTenant(context.Background(), tn))
}

// seedPMWithProperty creates a property manager and one property, returning
// their ids.
func seedPMWithProperty(t *testing.T, st store.Store) (pmID, propertyID string) {
	t.Helper()
	seedAccount(t, st, model.Account{
		ID:           "pm-1",
		Type:         model.AccountTypePropertyManager,
		Name:         "Steel City Management",
		ContactPhone: "+14120000000",
	})
	seedProperty(t, st, model.Property{
		ID:                "prop-1",
		PropertyManagerID: "pm-1",
		Name:              "Penn Ave Lofts",
		Address:           "500 Penn Ave",
	})
	return "pm-1", "prop-1"
}
