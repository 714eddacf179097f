package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/dynsql/internal/engine"
	"github.com/leapstack-labs/dynsql/internal/testutil"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := testutil.TempTree(t, map[string]string{
		"by_id.sql":  "select * from users where id = #{id, jdbcType=INTEGER}",
		"users.yaml": "filters: \"@{and,name = :name} @{and,age >= :age}\"\nbroken: \"@{macro, nope}\"\n",
	})

	eng, err := engine.New(engine.Config{MacrosDir: dir, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	srv := New(Config{Engine: eng, Logger: testutil.NewTestLogger(t)})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) (*http.Response, []byte) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(payload)) //nolint:noctx // test helper
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url) //nolint:noctx // test helper
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp
}

func TestServer_Render(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantSQL    string
		wantArgs   []Arg
		wantError  string
	}{
		{
			name:       "template",
			body:       RenderRequest{Name: "q", Template: "select * from t @{and,id = :id}", Params: map[string]any{"id": 7}},
			wantStatus: http.StatusOK,
			wantSQL:    "select * from t where id = ?",
			wantArgs:   []Arg{{Expr: "id", Value: float64(7), Mode: "IN"}},
		},
		{
			name:       "macro",
			body:       RenderRequest{Macro: "by_id", Params: map[string]any{"id": 3}},
			wantStatus: http.StatusOK,
			wantSQL:    "select * from users where id = ?",
			wantArgs:   []Arg{{Expr: "id", Value: float64(3), Mode: "IN", JDBCType: "INTEGER"}},
		},
		{
			name:       "namespaced macro",
			body:       RenderRequest{Macro: "users.filters", Params: map[string]any{"name": "ann", "age": 30}},
			wantStatus: http.StatusOK,
			wantSQL:    "where name = ? and age >= ?",
			wantArgs: []Arg{
				{Expr: "name", Value: "ann", Mode: "IN"},
				{Expr: "age", Value: float64(30), Mode: "IN"},
			},
		},
		{
			name:       "missing macro",
			body:       RenderRequest{Macro: "nope"},
			wantStatus: http.StatusNotFound,
			wantError:  "nope",
		},
		{
			name:       "missing nested macro",
			body:       RenderRequest{Macro: "users.broken"},
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "nope",
		},
		{
			name:       "parse error",
			body:       RenderRequest{Template: "select @{and, x"},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "neither template nor macro",
			body:       RenderRequest{},
			wantStatus: http.StatusBadRequest,
			wantError:  "template or macro is required",
		},
		{
			name:       "both template and macro",
			body:       RenderRequest{Template: "x", Macro: "by_id"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown field",
			body:       map[string]any{"sql": "select 1"},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := postJSON(t, ts.URL+"/render", tt.body)
			require.Equal(t, tt.wantStatus, resp.StatusCode, string(body))
			assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

			if tt.wantStatus != http.StatusOK {
				var e ErrorResponse
				require.NoError(t, json.Unmarshal(body, &e))
				assert.NotEmpty(t, e.Error)
				if tt.wantError != "" {
					assert.Contains(t, e.Error, tt.wantError)
				}
				return
			}

			var got RenderResponse
			require.NoError(t, json.Unmarshal(body, &got))
			assert.Equal(t, tt.wantSQL, got.SQL)
			assert.Equal(t, tt.wantArgs, got.Args)
		})
	}
}

func TestServer_RenderErrorPosition(t *testing.T) {
	ts := newTestServer(t)

	resp, body := postJSON(t, ts.URL+"/render", RenderRequest{Template: "select *\nfrom t @{nope, x}"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var e ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	assert.Equal(t, "nope", e.Rule)
	assert.Equal(t, 2, e.Line)
}

func TestServer_RenderBatch(t *testing.T) {
	ts := newTestServer(t)

	resp, body := postJSON(t, ts.URL+"/render/batch", BatchRequest{Requests: []RenderRequest{
		{Template: "select 1"},
		{Name: "by_id", Macro: "by_id", Params: map[string]any{"id": 1}},
		{Template: "select * from t @{and,a @{in, :ids}}", Params: map[string]any{"ids": []any{1, 2}}},
	}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var got []RenderResponse
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got, 3)
	assert.Equal(t, "#0", got[0].Name)
	assert.Equal(t, "select 1", got[0].SQL)
	assert.Equal(t, "by_id", got[1].Name)
	assert.Equal(t, "select * from users where id = ?", got[1].SQL)
	assert.Equal(t, "select * from t where a in (?, ?)", got[2].SQL)
	assert.Len(t, got[2].Args, 2)

	resp, _ = postJSON(t, ts.URL+"/render/batch", BatchRequest{Requests: []RenderRequest{{Macro: "nope"}}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_Macros(t *testing.T) {
	ts := newTestServer(t)

	var list []map[string]any
	resp := getJSON(t, ts.URL+"/macros", &list)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, list, 3)
	assert.Equal(t, "by_id", list[0]["name"])
	assert.Equal(t, "users.broken", list[1]["name"])
	assert.Equal(t, "users.filters", list[2]["name"])

	var one map[string]any
	resp = getJSON(t, ts.URL+"/macros/users.broken", &one)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "@{macro, nope}", one["body"])
	assert.Equal(t, []any{"nope"}, one["unresolved"])

	var missing ErrorResponse
	resp = getJSON(t, ts.URL+"/macros/missing", &missing)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_RulesAndStats(t *testing.T) {
	ts := newTestServer(t)

	var rules []string
	getJSON(t, ts.URL+"/rules", &rules)
	assert.Contains(t, rules, "and")
	assert.Contains(t, rules, "pairs")

	postJSON(t, ts.URL+"/render", RenderRequest{Template: "select 1"})
	postJSON(t, ts.URL+"/render", RenderRequest{Template: "select 1"})

	var stats struct {
		Cache struct {
			Entries int64 `json:"entries"`
			Hits    int64 `json:"hits"`
		} `json:"cache"`
		Macros int `json:"macros"`
	}
	getJSON(t, ts.URL+"/stats", &stats)
	assert.Equal(t, int64(1), stats.Cache.Entries)
	assert.Equal(t, int64(1), stats.Cache.Hits)
	assert.Equal(t, 3, stats.Macros)

	var health map[string]string
	getJSON(t, ts.URL+"/healthz", &health)
	assert.Equal(t, "ok", health["status"])
}

func TestServer_RequestIDPassthrough(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, ts.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "abc-123")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get(RequestIDHeader))
}

func TestServer_ServeListener(t *testing.T) {
	eng, err := engine.New(engine.Config{})
	require.NoError(t, err)
	defer func() { _ = eng.Close() }()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(Config{Engine: eng}).ServeListener(ctx, ln) }()

	var health map[string]string
	getJSON(t, "http://"+ln.Addr().String()+"/healthz", &health)
	assert.Equal(t, "ok", health["status"])

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
