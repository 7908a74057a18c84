package backend

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
)

func testLogger() *log.Logger {
	return log.New(log.Config{Output: &bytes.Buffer{}})
}

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{GoogleSheetName: "Ledger"})
	require.NoError(t, err)
	assert.Equal(t, MemoryMirror, cfg.Type)

	cfg, err = FromAppConfig(&config.Config{
		GoogleSpreadsheetID:      "sheet-id",
		GoogleSheetName:          "Ledger",
		GoogleServiceAccountFile: "/secrets/sa.json",
	})
	require.NoError(t, err)
	assert.Equal(t, SheetsMirror, cfg.Type)
	assert.Equal(t, "sheet-id", cfg.GoogleSpreadsheetID)
	assert.Equal(t, "/secrets/sa.json", cfg.GoogleServiceAccountFile)
}

func TestMirrorType_IsValid(t *testing.T) {
	assert.True(t, SheetsMirror.IsValid())
	assert.True(t, MemoryMirror.IsValid())
	assert.False(t, MirrorType("sqlite").IsValid())
	assert.Equal(t, "memory", MemoryMirror.String())
}

func TestCreateMirror(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(testLogger())

	t.Run("memory", func(t *testing.T) {
		res, err := f.CreateMirror(ctx, Config{Type: MemoryMirror})
		require.NoError(t, err)
		assert.Equal(t, MemoryMirror, res.Type)
		assert.Nil(t, res.Cleanup)

		require.NoError(t, res.Mirror.Upsert(ctx, sheets.Row{ID: 7, Note: "coffee"}))
		reader, ok := res.Mirror.(sheets.LedgerReader)
		require.True(t, ok)
		rows, err := reader.List(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, int64(7), rows[0].ID)
	})

	t.Run("invalid type", func(t *testing.T) {
		_, err := f.CreateMirror(ctx, Config{Type: "postgres"})
		assert.ErrorContains(t, err, "invalid mirror type")
	})

	t.Run("sheets without spreadsheet", func(t *testing.T) {
		_, err := f.CreateMirror(ctx, Config{Type: SheetsMirror})
		assert.Error(t, err)
	})

	t.Run("nil logger", func(t *testing.T) {
		assert.NotNil(t, NewFactory(nil))
	})
}
