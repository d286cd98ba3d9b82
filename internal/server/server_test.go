package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-dialogform/internal/catalog"
	"github.com/goliatone/go-dialogform/pkg/model"
	"github.com/goliatone/go-dialogform/pkg/orchestrator"
	"github.com/goliatone/go-dialogform/pkg/session"
)

type fixture struct {
	server *Server
	orch   *orchestrator.Orchestrator
	store  *session.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg, err := catalog.Load()
	require.NoError(t, err)
	store := session.NewMemoryStore()
	require.NoError(t, catalog.Seed(context.Background(), store))
	loaders := catalog.Loaders(reg, store)

	orch := orchestrator.New(
		orchestrator.WithAdapters(reg),
		orchestrator.WithStore(store),
		orchestrator.WithOptionLoaders(loaders),
	)
	t.Cleanup(orch.Close)

	srv, err := New(orch, WithOptionLoaders(loaders), WithRecords(store))
	require.NoError(t, err)
	return &fixture{server: srv, orch: orch, store: store}
}

func (f *fixture) do(t *testing.T, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

// open follows the record link and returns the dialog path.
func (f *fixture) open(t *testing.T, entityType, id string) string {
	t.Helper()
	rec := f.do(t, http.MethodGet, "/entities/"+entityType+"/"+id, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	location := rec.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "/dialogs/"), location)
	return location
}

func TestIndexListsEntitiesAndRecords(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `href="/entities/application/app-ledger"`)
	assert.Contains(t, body, "Ledger")
	assert.Contains(t, body, "New AI component")
}

func TestOpenAndRenderRecord(t *testing.T) {
	f := newFixture(t)
	path := f.open(t, "application", "app-ledger")

	rec := f.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `data-mode="view"`)
	assert.Contains(t, body, `value="Ledger"`)
	assert.Contains(t, body, `formaction="`+path+`/edit"`)
	assert.NotContains(t, body, "Retirement reason")
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	text := f.do(t, http.MethodGet, path+"?renderer=tui", nil)
	require.Equal(t, http.StatusOK, text.Code)
	assert.Contains(t, text.Body.String(), "Name*: Ledger")
}

func TestOpenUnknownRecord(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/entities/application/missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/entities/unknown/x", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/dialogs/nope", nil).Code)
}

func TestEditAndSubmit(t *testing.T) {
	f := newFixture(t)
	path := f.open(t, "application", "app-ledger")

	rec := f.do(t, http.MethodPost, path+"/edit", url.Values{})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = f.do(t, http.MethodPost, path+"/submit", url.Values{
		"_fields": {"name", "tags"},
		"name":    {"Ledger 2"},
		"tags":    {"internal, core"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, path, rec.Header().Get("Location"))

	record, err := f.store.Load(context.Background(), "application", "app-ledger")
	require.NoError(t, err)
	assert.Equal(t, "Ledger 2", record["name"])
	assert.Equal(t, "active", record["status"])
}

func TestSubmitReportsValidationErrors(t *testing.T) {
	f := newFixture(t)
	path := f.open(t, "application", "app-ledger")
	require.Equal(t, http.StatusSeeOther, f.do(t, http.MethodPost, path+"/edit", url.Values{}).Code)

	rec := f.do(t, http.MethodPost, path+"/submit", url.Values{
		"_fields": {"name"},
		"name":    {""},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "df-invalid")

	rec = f.do(t, http.MethodPost, path+"/submit", url.Values{
		"_fields": {"budget"},
		"budget":  {"lots"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "must be a number")

	record, err := f.store.Load(context.Background(), "application", "app-ledger")
	require.NoError(t, err)
	assert.Equal(t, "Ledger", record["name"])
}

func TestSubmitInViewModeConflicts(t *testing.T) {
	f := newFixture(t)
	path := f.open(t, "application", "app-ledger")
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, path+"/submit", url.Values{}).Code)

	// A stale form posted against the view dialog is not reported as bad input.
	rec := f.do(t, http.MethodPost, path+"/submit", url.Values{
		"_fields": {"name"},
		"name":    {"Renamed"},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NotContains(t, rec.Body.String(), "read-only")

	rec = f.do(t, http.MethodPost, path+"/tokens/capabilities/cap-billing", url.Values{
		"_fields": {"name"},
		"name":    {"Renamed"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	record, err := f.store.Load(context.Background(), "application", "app-ledger")
	require.NoError(t, err)
	assert.Equal(t, "Ledger", record["name"])
}

func TestCancelDiscardsEdits(t *testing.T) {
	f := newFixture(t)
	path := f.open(t, "capability", "cap-finance")
	require.Equal(t, http.StatusSeeOther, f.do(t, http.MethodPost, path+"/edit", url.Values{}).Code)

	rec := f.do(t, http.MethodPost, path+"/tokens/applications/app-ledger", url.Values{
		"_fields": {"name"},
		"name":    {"Finance & Risk"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	require.Equal(t, http.StatusSeeOther, f.do(t, http.MethodPost, path+"/close", url.Values{}).Code)

	// The pending edit survived the round trip through the nested dialog.
	body := f.do(t, http.MethodGet, path, nil).Body.String()
	assert.Contains(t, body, `value="Finance &amp; Risk"`)

	require.Equal(t, http.StatusSeeOther, f.do(t, http.MethodPost, path+"/cancel", url.Values{}).Code)
	body = f.do(t, http.MethodGet, path, nil).Body.String()
	assert.Contains(t, body, `data-mode="view"`)
	assert.Contains(t, body, `value="Finance"`)
}

func TestTokenNavigation(t *testing.T) {
	f := newFixture(t)
	path := f.open(t, "application", "app-ledger")

	rec := f.do(t, http.MethodPost, path+"/tokens/capabilities/cap-billing", url.Values{})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	body := f.do(t, http.MethodGet, path, nil).Body.String()
	assert.Contains(t, body, "df-breadcrumbs")
	assert.Contains(t, body, `value="Billing"`)

	// Following a link back to a record already on the stack keeps the stack.
	rec = f.do(t, http.MethodPost, path+"/tokens/applications/app-ledger", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = f.do(t, http.MethodPost, path+"/tokens/name/x", url.Values{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.Equal(t, http.StatusSeeOther, f.do(t, http.MethodPost, path+"/close", url.Values{}).Code)
	body = f.do(t, http.MethodGet, path, nil).Body.String()
	assert.NotContains(t, body, "df-breadcrumbs")

	rec = f.do(t, http.MethodPost, path+"/close", url.Values{})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Empty(t, f.orch.Sessions())
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	f := newFixture(t)
	path := f.open(t, "capability", "cap-analytics")

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPost, path+"/delete", url.Values{}).Code)
	require.Equal(t, http.StatusSeeOther, f.do(t, http.MethodPost, path+"/edit", url.Values{}).Code)

	rec := f.do(t, http.MethodPost, path+"/delete", url.Values{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="confirm" value="yes"`)
	_, err := f.store.Load(context.Background(), "capability", "cap-analytics")
	require.NoError(t, err)

	rec = f.do(t, http.MethodPost, path+"/delete", url.Values{"confirm": {"yes"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	_, err = f.store.Load(context.Background(), "capability", "cap-analytics")
	assert.True(t, errors.Is(err, session.ErrRecordNotFound))
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, path, nil).Code)
}

func TestCreateRecord(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/dialogs", url.Values{"entityType": {"principle"}})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	path := rec.Header().Get("Location")

	body := f.do(t, http.MethodGet, path, nil).Body.String()
	assert.Contains(t, body, `data-mode="create"`)

	rec = f.do(t, http.MethodPost, path+"/submit", url.Values{
		"_fields":   {"name", "statement", "category"},
		"name":      {"Cloud first"},
		"statement": {"New workloads run on managed services."},
		"category":  {"technology"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	assert.Len(t, f.store.List("principle"), 2)
	body = f.do(t, http.MethodGet, path, nil).Body.String()
	assert.Contains(t, body, `data-mode="edit"`)

	rec = f.do(t, http.MethodPost, "/dialogs", url.Values{"entityType": {"principle"}, "mode": {"sideways"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOptionsEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/options/capability?q=bill", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	var payload struct {
		Data []model.Option `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, []model.Option{{ID: "cap-billing", Label: "Billing"}}, payload.Data)

	rec = f.do(t, http.MethodGet, "/options/timezone?q=europe&limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Len(t, payload.Data, 2)

	rec = f.do(t, http.MethodGet, "/options/principle?q=nothing-matches", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/options/timezone?limit=-1", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/options/unknown", nil).Code)

	head := f.do(t, http.MethodHead, "/options/capability", nil)
	assert.Equal(t, http.StatusOK, head.Code)
	assert.Empty(t, head.Body.String())

	assert.Equal(t, http.StatusMethodNotAllowed, f.do(t, http.MethodPost, "/options/capability", url.Values{}).Code)
}

func TestAssetsAndMetrics(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/assets/dialogform.css", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")

	f.open(t, "application", "app-ledger")
	rec = f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `dialogform_http_requests_total{method="GET",route="/entities/{entityType}/{entityID}",status="303"} 1`)
	assert.Contains(t, body, "dialogform_dialog_open_sessions 1")
	assert.Contains(t, body, `dialogform_dialog_actions_total{action="open",outcome="ok"} 1`)

	assert.Equal(t, "ok", f.do(t, http.MethodGet, "/healthz", nil).Body.String())
}

func TestNewRequiresOrchestrator(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestLoadedOptionsOverLiveServer(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.server)
	t.Cleanup(ts.Close)
	client := ts.Client()
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	get := func(path string) string {
		t.Helper()
		resp, err := client.Get(ts.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
		return string(body)
	}
	post := func(path string, form url.Values) {
		t.Helper()
		resp, err := client.PostForm(ts.URL+path, form)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	}

	resp, err := client.Get(ts.URL + "/entities/application/app-ledger")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	path := resp.Header.Get("Location")

	post(path+"/edit", url.Values{})
	body := get(path)
	assert.Contains(t, body, `<option value="cap-analytics">Analytics</option>`)
	assert.Contains(t, body, `<option value="cap-finance" selected>Finance</option>`)
	assert.Contains(t, body, `>Finance</button>`)

	post(path+"/tokens/capabilities/cap-billing", url.Values{})
	body = get(path)
	assert.Contains(t, body, `value="Billing"`)
	assert.Contains(t, body, `<option value="cap-analytics">Analytics</option>`)
}

func TestPostedChangesShowErrorsWithoutSubmit(t *testing.T) {
	f := newFixture(t)
	path := f.open(t, "application", "app-ledger")
	require.Equal(t, http.StatusSeeOther, f.do(t, http.MethodPost, path+"/edit", url.Values{}).Code)

	rec := f.do(t, http.MethodPost, path+"/tokens/capabilities/cap-billing", url.Values{
		"_fields": {"name", "vendor"},
		"name":    {""},
		"vendor":  {"In-house"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	require.Equal(t, http.StatusSeeOther, f.do(t, http.MethodPost, path+"/close", url.Values{}).Code)

	sess, err := f.orch.Session(strings.TrimPrefix(path, "/dialogs/"))
	require.NoError(t, err)
	snap := sess.Root().Snapshot()
	assert.True(t, snap.Touched["name"])
	assert.False(t, snap.Touched["vendor"], "unchanged inputs stay untouched")

	body := f.do(t, http.MethodGet, path, nil).Body.String()
	assert.Contains(t, body, "Name is required")
}
