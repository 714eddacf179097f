package engine

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/dynsql/internal/adapter"
	"github.com/leapstack-labs/dynsql/internal/testutil"
	"github.com/leapstack-labs/dynsql/pkg/dynamic"
	"github.com/leapstack-labs/dynsql/pkg/template"
)

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = testutil.NewTestLogger(t)
	}
	e, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestNew_Defaults(t *testing.T) {
	e := newTestEngine(t, Config{})

	assert.Equal(t, "dev", e.Environment())
	assert.Equal(t, adapter.Config{Type: "sqlite", Database: ":memory:"}, e.Target())
	assert.Equal(t, 0, e.Macros().Len())
	assert.NotNil(t, e.Dynamic())
}

func TestNew_BadMacros(t *testing.T) {
	dir := testutil.TempTree(t, map[string]string{"macros/9bad.sql": "x"})

	_, err := New(Config{MacrosDir: filepath.Join(dir, "macros")})
	assert.ErrorContains(t, err, "failed to load macros")
}

func TestEngine_Render(t *testing.T) {
	dir := testutil.TempTree(t, map[string]string{
		"macros/columns.sql": "id, name, age",
		"macros/users.yaml":  "adults: \"@{ifand,min_age != None,age >= :min_age}\"\n",
	})
	e := newTestEngine(t, Config{
		MacrosDir:   filepath.Join(dir, "macros"),
		Environment: "prod",
		Globals:     map[string]any{"tenant": "acme"},
	})

	tests := []struct {
		name     string
		src      string
		params   map[string]any
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "macros and starlark conditions",
			src:      "select @{macro, columns} from users @{macro, users.adults} @{ifand,len(names) > 0,name @{in, :names}}",
			params:   map[string]any{"min_age": 18, "names": []any{"ann", "bob"}},
			wantSQL:  "select id, name, age from users where age >= ? and name in (?, ?)",
			wantArgs: []any{18, "ann", "bob"},
		},
		{
			name:     "conditions off",
			src:      "select @{macro, columns} from users @{macro, users.adults}",
			params:   map[string]any{},
			wantSQL:  "select id, name, age from users ",
			wantArgs: []any{},
		},
		{
			name:     "environment and globals",
			src:      "select * from @{if,env == 'prod',${tenant}_users}",
			wantSQL:  "select * from acme_users",
			wantArgs: []any{},
		},
		{
			name:     "case on a starlark expression",
			src:      "order by @{case, sort or 'id', @{when, 'name', name} @{else,, id}}",
			params:   map[string]any{"sort": "name"},
			wantSQL:  "order by  name",
			wantArgs: []any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := e.Render(tt.src, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, stmt.SQL)
			assert.Equal(t, tt.wantArgs, stmt.Values())
		})
	}
}

func TestEngine_RenderFile(t *testing.T) {
	dir := testutil.TempTree(t, map[string]string{
		"ok.sql":  "select * from t @{and,id = :id}",
		"bad.sql": "select *\nfrom t @{and, id = :id",
	})
	e := newTestEngine(t, Config{})

	stmt, err := e.RenderFile(filepath.Join(dir, "ok.sql"), map[string]any{"id": 7})
	require.NoError(t, err)
	assert.Equal(t, "select * from t where id = ?", stmt.SQL)
	assert.Equal(t, filepath.Join(dir, "ok.sql"), stmt.Name)

	_, err = e.RenderFile(filepath.Join(dir, "bad.sql"), nil)
	var te template.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "bad.sql", te.Position().File)
	assert.Equal(t, 2, te.Position().Line)

	_, err = e.RenderFile(filepath.Join(dir, "missing.sql"), nil)
	assert.ErrorContains(t, err, "failed to read template")
}

func TestEngine_RenderMacro(t *testing.T) {
	dir := testutil.TempTree(t, map[string]string{"by_id.sql": "select * from t where id = #{id}"})
	e := newTestEngine(t, Config{MacrosDir: dir})

	stmt, err := e.RenderMacro("by_id", map[string]any{"id": 3})
	require.NoError(t, err)
	assert.Equal(t, "by_id", stmt.Name)
	assert.Equal(t, "select * from t where id = ?", stmt.SQL)
	assert.Equal(t, []any{3}, stmt.Values())

	_, err = e.RenderMacro("nope", nil)
	assert.ErrorIs(t, err, dynamic.ErrMacroNotFound)
}

func TestEngine_RenderAll(t *testing.T) {
	e := newTestEngine(t, Config{Concurrency: 4})

	reqs := make([]Request, 40)
	for i := range reqs {
		reqs[i] = Request{
			Name:   "q" + strings.Repeat("x", i%3),
			Source: "select * from t @{and,id = :id}",
			Params: map[string]any{"id": i},
		}
	}

	out, err := e.RenderAll(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, out, len(reqs))
	for i, stmt := range out {
		assert.Equal(t, "select * from t where id = ?", stmt.SQL)
		assert.Equal(t, []any{i}, stmt.Values(), "order is preserved")
		assert.Equal(t, reqs[i].Name, stmt.Name)
	}

	stats := e.Dynamic().Cache().Stats()
	assert.Equal(t, stats.Entries, stats.Misses, "each source is parsed once")
	assert.Positive(t, stats.Hits)
}

func TestEngine_RenderAll_Error(t *testing.T) {
	e := newTestEngine(t, Config{})

	_, err := e.RenderAll(context.Background(), []Request{
		{Name: "good", Source: "select 1"},
		{Name: "bad", Source: "select @{nope, x}"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "render bad")
	assert.ErrorIs(t, err, dynamic.ErrMissingRule)
}

func TestEngine_CustomEvaluator(t *testing.T) {
	var calls atomic.Int32
	ev := dynamic.EvaluatorFunc(func(expr string, scope dynamic.Scope) (any, error) {
		calls.Add(1)
		return dynamic.PathEvaluator{}.Eval(expr, scope)
	})
	e := newTestEngine(t, Config{Evaluator: ev})

	stmt, err := e.Render("@{and,a = :user.id}", map[string]any{"user": map[string]any{"id": 5}})
	require.NoError(t, err)
	assert.Equal(t, "where a = ?", stmt.SQL)
	assert.Equal(t, []any{5}, stmt.Values())
	assert.Positive(t, calls.Load())
}

func TestEngine_ExecWithMock(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	logger, logs := testutil.NewCaptureLogger(slog.LevelInfo)
	e, err := NewWithAdapter(Config{Logger: logger}, adapter.NewWithDB(db, adapter.Dollar, nil))
	require.NoError(t, err)

	mock.ExpectExec("update users set name = $1 where id = $2").
		WithArgs("ann", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("select id from users where id in ($1, $2)").
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(2)))
	mock.ExpectClose()

	ctx := context.Background()
	res, err := e.ExecTemplate(ctx, "update users @{set,name = :name} @{and,id = :id}",
		map[string]any{"name": "ann", "id": 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsAffected)

	rows, err := e.QueryTemplate(ctx, "select id from users @{and,id @{in, :ids}}",
		map[string]any{"ids": []int{1, 2}})
	require.NoError(t, err)
	_, data, err := rows.Collect()
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(1)}, {int64(2)}}, data)

	require.NoError(t, e.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, []string{"executed statement", "executed query"}, logs.Messages())
}

func TestEngine_ExecSQLite(t *testing.T) {
	e := newTestEngine(t, Config{Target: &adapter.Config{Type: "sqlite", Database: ":memory:"}})
	ctx := context.Background()

	_, err := e.ExecTemplate(ctx, "create table kv (k text primary key, v text)", nil)
	require.NoError(t, err)

	for k, v := range map[string]string{"a": "1", "b": "2"} {
		_, err = e.ExecTemplate(ctx, "insert into kv (k, v) values (#{k}, #{v})", map[string]any{"k": k, "v": v})
		require.NoError(t, err)
	}

	rows, err := e.QueryTemplate(ctx, "select k, v from kv @{and,k = :key} order by k", map[string]any{"key": "b"})
	require.NoError(t, err)
	_, data, err := rows.Collect()
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"b", "2"}}, data)
}

func TestEngine_ExecUnknownAdapter(t *testing.T) {
	e := newTestEngine(t, Config{Target: &adapter.Config{Type: "oracle"}})

	_, err := e.ExecTemplate(context.Background(), "select 1", nil)
	var unknown *adapter.UnknownAdapterError
	require.ErrorAs(t, err, &unknown)
}

func TestEngine_WatchMacrosWithoutDir(t *testing.T) {
	e := newTestEngine(t, Config{})
	assert.Error(t, e.WatchMacros(context.Background()))
}
