package collector

import (
	"fmt"
	"strings"
)

// PageLimit is the fixed page size for collection queries.
const PageLimit = 1000

// BuildQuery produces the bounded range scan for one page: rows whose pointer
// column is strictly greater than the resolved pointer, non-null, in
// ascending pointer order, capped at limit. The strict comparator and the
// NOT NULL filter guarantee forward-only progress over rows with a usable
// ordering key.
func BuildQuery(cfg *Config, pointer Pointer, limit int) string {
	return fmt.Sprintf(
		"SELECT %s FROM `%s.%s.%s` WHERE %s > %s AND %s IS NOT NULL ORDER BY %s ASC LIMIT %d",
		strings.Join(cfg.Columns, ", "),
		cfg.ProjectID,
		cfg.DatasetName,
		cfg.TableName,
		cfg.PointerPath,
		pointer.QueryLiteral(),
		cfg.PointerPath,
		cfg.PointerPath,
		limit,
	)
}
