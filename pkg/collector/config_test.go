package collector

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validRaw() RawConfig {
	return RawConfig{
		ProjectID:   "my-project",
		DatasetName: "my_dataset",
		TableName:   "audit_log",
		Columns:     []string{"timestamp", "actor", "action"},
		PointerPath: "timestamp",
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg, err := Validate(validRaw())
	require.NoError(t, err)
	require.Equal(t, 3, cfg.MaxBatches)
	require.Equal(t, Microseconds, cfg.TimeFormat)
	require.Equal(t, "my-project.my_dataset.audit_log", cfg.Source())
}

func TestValidateMissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RawConfig)
	}{
		{"project_id", func(r *RawConfig) { r.ProjectID = "" }},
		{"dataset_name", func(r *RawConfig) { r.DatasetName = "" }},
		{"table_name", func(r *RawConfig) { r.TableName = "" }},
		{"columns", func(r *RawConfig) { r.Columns = nil }},
		{"pointer_path", func(r *RawConfig) { r.PointerPath = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw()
			tt.mutate(&raw)
			_, err := Validate(raw)
			require.ErrorIs(t, err, ErrMissingField)
			require.Contains(t, err.Error(), tt.name)
		})
	}
}

func TestValidateInvalidFields(t *testing.T) {
	raw := validRaw()
	raw.MaxBatches = -1
	_, err := Validate(raw)
	require.ErrorIs(t, err, ErrInvalidField)

	raw = validRaw()
	raw.TimeFormat = "nanoseconds"
	_, err = Validate(raw)
	require.ErrorIs(t, err, ErrInvalidField)

	raw = validRaw()
	raw.Columns = []string{"timestamp", ""}
	_, err = Validate(raw)
	require.ErrorIs(t, err, ErrInvalidField)
}

func TestValidateExplicitValues(t *testing.T) {
	raw := validRaw()
	raw.MaxBatches = 10
	raw.TimeFormat = "timestamp"

	cfg, err := Validate(raw)
	require.NoError(t, err)
	require.Equal(t, 10, cfg.MaxBatches)
	require.Equal(t, Timestamp, cfg.TimeFormat)
}
