//go:build !integration

package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonpay/amlscreen/internal/index"
	"github.com/halcyonpay/amlscreen/internal/model"
)

func TestFormatIndexStatus_NeverBuilt(t *testing.T) {
	store, err := index.Open(filepath.Join(t.TempDir(), "sanctions.db"))
	require.NoError(t, err)
	defer store.Close() //nolint:errcheck

	var buf bytes.Buffer
	formatIndexStatus(context.Background(), &buf, store)

	output := buf.String()
	assert.Contains(t, output, "not ready")
	assert.Contains(t, output, "amlscreen refresh")
}

func TestFormatIndexStatus_Built(t *testing.T) {
	store, err := index.Open(filepath.Join(t.TempDir(), "sanctions.db"))
	require.NoError(t, err)
	defer store.Close() //nolint:errcheck

	entities := []model.Entity{
		{ListName: "OFAC_SDN", ListID: "1001", PrimaryName: "Vladimir Petrov"},
		{ListName: "OFAC_SDN", ListID: "1002", PrimaryName: "Acme Trading FZE"},
		{ListName: "UK", ListID: "SAN0042", PrimaryName: "Ivan Sokolov"},
	}
	_, err = store.Rebuild(context.Background(), entities)
	require.NoError(t, err)

	var buf bytes.Buffer
	formatIndexStatus(context.Background(), &buf, store)

	output := buf.String()
	assert.Contains(t, output, "ready (generation 1, 3 entities)")
	assert.Contains(t, output, "last built:")
	assert.Contains(t, output, "OFAC_SDN")
	assert.Contains(t, output, "UK")
}
