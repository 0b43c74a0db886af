package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voyager-tech/go-backend/internal/ledger"
	"github.com/voyager-tech/go-backend/pkg/e"
)

func TestReadItems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"name": "RAM 8GB", "price": 1999.9, "url": "https://s.com/p1", "category": "ram"},
		{"name": "SSD 1TB", "price": "4999.00", "url": "https://s.com/p2", "in_stock": false}
	]`), 0o600))

	items, err := readItems(path)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "1999.9", items[0].Price.String())
	assert.Equal(t, "ram", items[0].Category)
	require.NotNil(t, items[1].InStock)
	assert.False(t, *items[1].InStock)
}

func TestReadItems_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name": "not an array"}`), 0o600))

	_, err := readItems(path)
	assert.Error(t, err)
}

func TestReadItems_MissingPrice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"name": "RAM 8GB", "price": 19.99, "url": "https://s.com/p1"},
		{"name": "SSD 1TB", "url": "https://s.com/p2"}
	]`), 0o600))

	_, err := readItems(path)
	require.ErrorIs(t, err, e.ErrValidation)

	var ve *e.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 1, ve.Index)
	assert.Equal(t, "price", ve.Field)
}

func TestPrintStatus(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var buf bytes.Buffer

	require.NoError(t, printStatus(&buf, []ledger.State{
		{Version: 1, Description: "create_stores", Applied: true, AppliedAt: &at},
		{Version: 2, Description: "create_categories"},
	}))

	out := buf.String()
	assert.Contains(t, out, "000001")
	assert.Contains(t, out, "2026-03-01 10:00:00")
	assert.Contains(t, out, "pending")
}
