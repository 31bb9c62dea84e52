package collector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func queryConfig(format TimeFormat) *Config {
	return &Config{
		ProjectID:   "my-project",
		DatasetName: "my_dataset",
		TableName:   "audit_log",
		Columns:     []string{"timestamp", "actor", "action"},
		PointerPath: "timestamp",
		MaxBatches:  3,
		TimeFormat:  format,
	}
}

func TestBuildQueryMicroseconds(t *testing.T) {
	p, err := Microseconds.ParsePointer("1700000000000000")
	require.NoError(t, err)

	query := BuildQuery(queryConfig(Microseconds), p, PageLimit)
	require.Equal(t,
		"SELECT timestamp, actor, action "+
			"FROM `my-project.my_dataset.audit_log` "+
			"WHERE timestamp > 1700000000000000 "+
			"AND timestamp IS NOT NULL "+
			"ORDER BY timestamp ASC "+
			"LIMIT 1000",
		query,
	)
}

func TestBuildQueryTimestamp(t *testing.T) {
	p, err := Timestamp.ParsePointer("2023-11-14 22:13:20+00")
	require.NoError(t, err)

	query := BuildQuery(queryConfig(Timestamp), p, PageLimit)
	require.Equal(t,
		"SELECT timestamp, actor, action "+
			"FROM `my-project.my_dataset.audit_log` "+
			"WHERE timestamp > TIMESTAMP('2023-11-14 22:13:20+00') "+
			"AND timestamp IS NOT NULL "+
			"ORDER BY timestamp ASC "+
			"LIMIT 1000",
		query,
	)
}

func TestBuildQueryStrictLowerBound(t *testing.T) {
	p := Microseconds.DefaultWindow(resolveNow)

	query := BuildQuery(queryConfig(Microseconds), p, 50)
	require.Contains(t, query, "timestamp > ")
	require.NotContains(t, query, ">=")
	require.True(t, strings.HasSuffix(query, "LIMIT 50"))
}
