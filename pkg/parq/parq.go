package parq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/quarrydev/quarry/pkg/collector"
)

// Record is one collected row as written to parquet files.
type Record struct {
	CollectedAt int64  `parquet:"collected_at"`
	Source      string `parquet:"source"`
	Raw         string `parquet:"raw"`
}

// Sink writes each flushed batch of records to its own parquet file. It
// satisfies collector.Sink.
type Sink struct {
	logger  *slog.Logger
	fileDir string
	source  string
}

func NewSink(logger *slog.Logger, fileDir, source string) (*Sink, error) {
	// Make sure the file directory exists
	err := os.MkdirAll(fileDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet file directory: %w", err)
	}

	return &Sink{
		logger:  logger.With("module", "parq"),
		fileDir: fileDir,
		source:  source,
	}, nil
}

// Save writes the given records to a parquet file named after the source and
// the current timestamp. Each collection flush produces one file.
func (s *Sink) Save(ctx context.Context, records []collector.Record) error {
	now := time.Now().UTC()

	rows := make([]*Record, 0, len(records))
	for _, record := range records {
		raw, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		rows = append(rows, &Record{
			CollectedAt: now.UnixMicro(),
			Source:      s.source,
			Raw:         string(raw),
		})
	}

	fName := path.Join(s.fileDir, fmt.Sprintf("%s_%s.parquet", s.source, now.Format("2006_01_02-15_04_05")))

	s.logger.Info("writing parquet file", "file_path", fName, "num_records", len(rows))

	filterBits := uint(10)

	err := parquet.WriteFile(fName, rows, parquet.BloomFilters(
		parquet.SplitBlockFilter(filterBits, "source"),
	))
	if err != nil {
		return fmt.Errorf("failed to write parquet file: %w", err)
	}

	s.logger.Info("wrote parquet file", "file_path", fName)

	return nil
}
