package collector

// RawConfig carries operator-supplied configuration exactly as provided, before
// validation. Zero values stand in for absent optional fields.
type RawConfig struct {
	ProjectID   string
	DatasetName string
	TableName   string
	Columns     []string
	PointerPath string
	MaxBatches  int
	TimeFormat  string
}

// Config is a validated, immutable per-run configuration with defaults
// resolved. Construct it with Validate.
type Config struct {
	ProjectID   string
	DatasetName string
	TableName   string
	Columns     []string
	PointerPath string
	MaxBatches  int
	TimeFormat  TimeFormat
}

const defaultMaxBatches = 3

// Validate checks the raw configuration and resolves defaults, surfacing the
// first violation found. No remote call happens before this succeeds.
func Validate(raw RawConfig) (*Config, error) {
	if raw.ProjectID == "" {
		return nil, missingField("project_id")
	}
	if raw.DatasetName == "" {
		return nil, missingField("dataset_name")
	}
	if raw.TableName == "" {
		return nil, missingField("table_name")
	}
	if len(raw.Columns) == 0 {
		return nil, missingField("columns")
	}
	for _, col := range raw.Columns {
		if col == "" {
			return nil, invalidField("columns", "must not contain empty column names")
		}
	}
	maxBatches := raw.MaxBatches
	if maxBatches == 0 {
		maxBatches = defaultMaxBatches
	}
	if maxBatches < 0 {
		return nil, invalidField("max_batches", "must be a positive integer")
	}

	if raw.PointerPath == "" {
		return nil, missingField("pointer_path")
	}

	format, err := ParseTimeFormat(raw.TimeFormat)
	if err != nil {
		return nil, err
	}

	return &Config{
		ProjectID:   raw.ProjectID,
		DatasetName: raw.DatasetName,
		TableName:   raw.TableName,
		Columns:     raw.Columns,
		PointerPath: raw.PointerPath,
		MaxBatches:  maxBatches,
		TimeFormat:  format,
	}, nil
}

// Source is the logical source name used to key the persisted pointer and
// label metrics.
func (c *Config) Source() string {
	return c.ProjectID + "." + c.DatasetName + "." + c.TableName
}
