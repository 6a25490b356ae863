package database

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatements(t *testing.T) {
	stmts := Statements()
	require.Len(t, stmts, 7)
	for _, s := range stmts {
		assert.Regexp(t, `^CREATE TABLE IF NOT EXISTS `, s)
		assert.NotContains(t, s, "--")
	}
	assert.Contains(t, stmts[6], "UNIQUE KEY uq_ticket_seat (show_session_id, row_num, seat_num)")
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for _, s := range Statements() {
		mock.ExpectExec(regexp.QuoteMeta(s)).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
