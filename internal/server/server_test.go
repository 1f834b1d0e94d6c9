package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leaseline/leaseline/internal/identity"
	"github.com/leaseline/leaseline/internal/model"
	"github.com/leaseline/leaseline/internal/resolver"
	"github.com/leaseline/leaseline/internal/store"
)

// newTestServer wires a full engine over a seeded SQLite store: one realtor
// account and one tenant under a property manager.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))

	require.NoError(t, st.CreateAccount(ctx, model.Account{
		ID: "realtor-1", Type: model.AccountTypeRealtor,
		Name: "Jane Realtor", ContactPhone: "+14125551111",
	}))
	require.NoError(t, st.CreateAccount(ctx, model.Account{
		ID: "pm-1", Type: model.AccountTypePropertyManager, Name: "Oak PM",
	}))
	require.NoError(t, st.CreateProperty(ctx, model.Property{
		ID: "prop-1", PropertyManagerID: "pm-1", Name: "Oak Flats",
	}))
	require.NoError(t, st.CreateTenant(ctx, model.Tenant{
		ID: "ten-1", PropertyManagerID: "pm-1", PropertyID: "prop-1",
		Name: "John Smith", Phone: "+14125559999", IsActive: true,
	}))

	cache, err := resolver.NewLRUCache(64)
	require.NoError(t, err)
	pipeline := resolver.NewPipeline(identity.NewResolver(st), nil, cache)
	matcher := identity.NewMatcher(st, identity.DefaultWeights())

	srv := httptest.NewServer(New(pipeline, matcher).Router())
	t.Cleanup(srv.Close)
	return srv
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestServer_WebhookResolves(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/webhook/vapi",
		strings.NewReader(`{"twilio": {"To": "+14125551111"}}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var match model.AccountMatch
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&match))
	assert.Equal(t, "realtor-1", match.Account.ID)
	assert.Equal(t, "twilio-destination", match.Source)
}

func TestServer_WebhookHeaderWins(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/webhook/vapi", strings.NewReader(`{}`))
	require.NoError(t, err)
	req.Header.Set(resolver.HeaderInboundNumber, "412-555-1111")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var match model.AccountMatch
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&match))
	assert.Equal(t, "inbound-header", match.Source)
}

func TestServer_WebhookUnidentified(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/webhook/vapi", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_WebhookBadBody(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/webhook/vapi", "application/json", strings.NewReader(`not json`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Identify(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/identify", "application/json",
		strings.NewReader(`{"phone": "(412) 555-9999"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var match model.TenantMatch
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&match))
	assert.Equal(t, "ten-1", match.Tenant.ID)
	assert.Equal(t, "prop-1", match.Property.ID)
	assert.Equal(t, "pm-1", match.PropertyManager.ID)
}

func TestServer_IdentifyNoSignals(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/identify", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_IdentifyNoMatch(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/identify", "application/json",
		strings.NewReader(`{"phone": "+19995550000"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
