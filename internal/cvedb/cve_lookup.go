package cvedb

import (
	"context"
	"strings"

	"CVELens/internal/model"
)

// Search 在描述与编号中模糊查找，按v3评分从高到低返回
func (cd *CVEDatabase) Search(ctx context.Context, term string, limit int) ([]model.Record, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
	SELECT ` + recordColumns + `
	FROM cve
	WHERE LOWER(description) LIKE ? OR LOWER(id) LIKE ?
	ORDER BY cvss_v3_score IS NULL, cvss_v3_score DESC, id
	LIMIT ?
	`

	pattern := "%" + strings.ToLower(strings.TrimSpace(term)) + "%"
	return cd.queryRecords(ctx, query, pattern, pattern, limit)
}
