package offline

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestQueue_ExportImport(t *testing.T) {
	api := newFakeAPI(t, http.StatusCreated, http.StatusBadRequest, http.StatusServiceUnavailable)
	old, _ := newTestQueue(t, api)
	ctx := context.Background()
	ops := enqueue(t, old, "bad", "r2", "r3")

	_, err := old.Flush(ctx)
	require.Error(t, err)

	var buf bytes.Buffer
	n, err := old.Export(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, 1, doc["version"])

	fresh, _ := newTestQueue(t, newFakeAPI(t, http.StatusCreated))
	n, err = fresh.Import(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	pending, err := fresh.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, ops[1].ID, pending[0].ID)
	assert.Equal(t, ops[2].ID, pending[1].ID)
	assert.JSONEq(t, string(ops[1].Body), string(pending[0].Body))
	assert.Equal(t, 1, pending[0].Attempts)

	dead, err := fresh.Dead(ctx)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, ops[0].ID, dead[0].ID)

	// importing again does not duplicate
	_, err = fresh.Import(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	stats, err := fresh.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Pending)
	assert.Equal(t, int64(1), stats.Dead)
}

func TestQueue_ImportRejectsBadFiles(t *testing.T) {
	q, _ := newTestQueue(t, newFakeAPI(t, http.StatusCreated))
	ctx := context.Background()

	_, err := q.Import(ctx, strings.NewReader("version: 9\noperations: []\n"))
	assert.ErrorContains(t, err, "unsupported version")

	_, err = q.Import(ctx, strings.NewReader("version: 1\noperations:\n  - kind: CREATE_ORDER\n"))
	assert.ErrorIs(t, err, ErrInvalidOperation)

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
