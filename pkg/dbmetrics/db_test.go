package dbmetrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperationName(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{query: "SELECT id, status FROM reservations WHERE id = $1", want: "select reservations"},
		{query: "INSERT INTO reservations (client_id) VALUES ($1) RETURNING id", want: "insert reservations"},
		{query: "UPDATE reservations SET status = $1 WHERE id = $2", want: "update reservations"},
		{query: "DELETE FROM specialist_policies WHERE specialist_id = $1", want: "delete specialist_policies"},
		{query: "SELECT pg_advisory_xact_lock(hashtext($1))", want: "select"},
		{query: "COMMIT", want: "commit"},
		{query: "", want: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, operationName(tt.query))
		})
	}
}

type fakeTx struct {
	DBExecutor
}

func (fakeTx) Commit() error   { return nil }
func (fakeTx) Rollback() error { return nil }

func TestGetExecutor(t *testing.T) {
	db := Wrap(nil, nil)
	ctx := context.Background()

	assert.False(t, IsInTransaction(ctx))
	assert.Same(t, db, GetExecutor(ctx, db))

	tx := fakeTx{}
	txCtx := WithTx(ctx, tx)
	assert.True(t, IsInTransaction(txCtx))
	assert.Equal(t, tx, GetExecutor(txCtx, db))
}
