package adapter

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/dynsql/internal/testutil"
	"github.com/leapstack-labs/dynsql/pkg/dynamic"
	"github.com/leapstack-labs/dynsql/pkg/types"
)

func newMock(t *testing.T, style PlaceholderStyle) (*BaseSQLAdapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db, style, testutil.NewTestLogger(t)), mock
}

func TestBaseSQLAdapter_Close(t *testing.T) {
	tests := []struct {
		name    string
		setupDB bool
	}{
		{name: "close with nil DB"},
		{name: "close with open DB", setupDB: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLAdapter{}

			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				mock.ExpectClose()
				base.DB = db
			}

			assert.NoError(t, base.Close())
		})
	}
}

func TestBaseSQLAdapter_Exec(t *testing.T) {
	tests := []struct {
		name      string
		style     PlaceholderStyle
		setupMock func(mock sqlmock.Sqlmock)
		sql       string
		args      []*dynamic.SQLArg
		want      *Result
		errMsg    string
	}{
		{
			name:  "exec with bound args",
			style: Question,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("update users set name = ? where id = ?").
					WithArgs("ann", int64(3)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			sql:  "update users set name = ? where id = ?",
			args: []*dynamic.SQLArg{dynamic.NewSQLArg("name", "ann"), dynamic.NewSQLArg("id", 3)},
			want: &Result{RowsAffected: 1},
		},
		{
			name:  "dollar placeholders",
			style: Dollar,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("insert into t values ($1, $2)").
					WithArgs("9", nil).
					WillReturnResult(sqlmock.NewResult(42, 1))
			},
			sql: "insert into t values (?, ?)",
			args: []*dynamic.SQLArg{
				dynamic.NewTypedArg(9, types.Varchar, types.StringHandler),
				dynamic.NewSQLArg("x", nil),
			},
			want: &Result{RowsAffected: 1, LastInsertID: 42},
		},
		{
			name:  "exec with error",
			style: Question,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INVALID SQL").WillReturnError(assert.AnError)
			},
			sql:    "INVALID SQL",
			errMsg: "failed to execute SQL",
		},
		{
			name:   "bind error",
			style:  Question,
			sql:    "select ?",
			args:   []*dynamic.SQLArg{dynamic.NewTypedArg("x", types.Integer, types.IntegerHandler)},
			errMsg: "bind argument 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, mock := newMock(t, tt.style)
			if tt.setupMock != nil {
				tt.setupMock(mock)
			}

			got, err := base.Exec(context.Background(), tt.sql, tt.args)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestBaseSQLAdapter_Query(t *testing.T) {
	base, mock := newMock(t, Dollar)
	rows := sqlmock.NewRows([]string{"id", "name"}).
		AddRow(int64(1), "alice").
		AddRow(int64(2), []byte("bob"))
	mock.ExpectQuery("select id, name from users where id in ($1, $2)").
		WithArgs(int64(1), int64(2)).
		WillReturnRows(rows)

	got, err := base.Query(context.Background(), "select id, name from users where id in (?, ?)",
		[]*dynamic.SQLArg{dynamic.NewSQLArg("ids[0]", 1), dynamic.NewSQLArg("ids[1]", 2)})
	require.NoError(t, err)

	columns, data, err := got.Collect()
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, columns)
	assert.Equal(t, [][]any{{int64(1), "alice"}, {int64(2), "bob"}}, data)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseSQLAdapter_QueryError(t *testing.T) {
	base, mock := newMock(t, Question)
	mock.ExpectQuery("INVALID").WillReturnError(assert.AnError)

	rows, err := base.Query(context.Background(), "INVALID", nil)
	require.Error(t, err)
	assert.Nil(t, rows)
	assert.Contains(t, err.Error(), "failed to execute query")
}

func TestBaseSQLAdapter_NotConnected(t *testing.T) {
	base := &BaseSQLAdapter{}
	ctx := context.Background()

	_, err := base.Exec(ctx, "SELECT 1", nil)
	assert.ErrorContains(t, err, "database connection not established")

	_, err = base.Query(ctx, "SELECT 1", nil)
	assert.ErrorContains(t, err, "database connection not established")

	assert.False(t, base.IsConnected())
}
