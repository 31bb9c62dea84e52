package parq

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/require"

	"github.com/quarrydev/quarry/pkg/collector"
)

func TestSaveWritesOneFilePerFlush(t *testing.T) {
	dir := t.TempDir()

	sink, err := NewSink(slog.Default(), dir, "proj.ds.table")
	require.NoError(t, err)

	records := []collector.Record{
		{"timestamp": int64(1), "actor": "alice"},
		{"timestamp": int64(2), "actor": "bob"},
	}
	require.NoError(t, sink.Save(context.Background(), records))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.True(t, strings.HasPrefix(entries[0].Name(), "proj.ds.table_"))
	require.True(t, strings.HasSuffix(entries[0].Name(), ".parquet"))

	rows, err := parquet.ReadFile[Record](filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "proj.ds.table", rows[0].Source)
	require.Contains(t, rows[0].Raw, "alice")
}

func TestNewSinkCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")

	_, err := NewSink(slog.Default(), dir, "proj.ds.table")
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}
