package velneo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/policy-intake/constants"
	"github.com/joseph-ayodele/policy-intake/internal/common"
	"github.com/joseph-ayodele/policy-intake/internal/vocabulary"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/api", APIKey: "k", RetryDelay: time.Millisecond}, srv.Client(), nil)
}

func TestFetchMasterData(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "/api/maestros", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("X-API-Key"))
		_, _ = w.Write([]byte(`{
			"combustibles": [{"id": "DIS", "name": "DISEL"}, {"id": "NAF", "name": "NAFTA"}],
			"monedas": [{"id": 1, "nombre": "PESOS"}],
			"formasPago": ["CONTADO", "TARJETA"],
			"estadosPoliza": ["VIGENTE", "ANULADA"]
		}`))
	})

	md, err := c.FetchMasterData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	require.Len(t, md.Combustibles, 2)
	assert.Equal(t, "DISEL", md.Combustibles[0].Name)
	assert.Equal(t, "1", md.Monedas[0].ID)
	assert.Len(t, md.FormasPago, 2)

	// plugs into the vocabulary loader
	l := vocabulary.NewLoader(c, vocabulary.Defaults{constants.Fuel: "NAF"})
	v, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v.Table(constants.Fuel).Len())
}

func TestDirectoryLookups(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/clientes":
			assert.Equal(t, "perez", r.URL.Query().Get("filtro"))
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			_, _ = w.Write([]byte(`{"items": [{"id": 17, "nombre": "Ana Perez"}]}`))
		case "/api/companias":
			_, _ = w.Write([]byte(`[{"id": "bse", "displayName": "BSE"}]`))
		case "/api/companias/bse/secciones":
			_, _ = w.Write([]byte(`[{"id": "4", "descripcion": "Automóviles"}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	clients, err := c.SearchClients(ctx, " perez ", 5)
	require.NoError(t, err)
	assert.Equal(t, []DirectoryEntry{{ID: "17", DisplayName: "Ana Perez"}}, clients)

	companies, err := c.Companies(ctx)
	require.NoError(t, err)
	assert.Equal(t, "BSE", companies[0].DisplayName)

	sections, err := c.Sections(ctx, "bse")
	require.NoError(t, err)
	assert.Equal(t, []DirectoryEntry{{ID: "4", DisplayName: "Automóviles"}}, sections)

	_, err = c.Sections(ctx, "sura")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = c.Sections(ctx, "")
	assert.Error(t, err)
}

func TestSubmitPolicyIsTriedOnce(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.SubmitPolicy(context.Background(), map[string]any{"nro_poliza": "X"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSubmitPolicy(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["procesado_con_ia"])
		_, _ = w.Write([]byte(`{"polizaId": 991, "mensaje": "ok"}`))
	})
	res, err := c.SubmitPolicy(context.Background(), map[string]any{"procesado_con_ia": true})
	require.NoError(t, err)
	assert.Equal(t, SubmitResult{ID: "991", Message: "ok"}, res)
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "bad"}`))
	})
	_, err := c.Companies(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Equal(t, int32(1), calls.Load())
}
