package cvedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"CVELens/internal/model"
	"CVELens/internal/utils"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("cve not found")

const recordColumns = `id, published, last_modified, description, cvss_v3_score,
	cvss_v3_severity, cvss_v2_score, cvss_v2_severity, reference_urls`

const upsertStmt = `INSERT OR REPLACE INTO cve (` + recordColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

type CVEDatabase struct {
	db     *sql.DB
	path   string
	logger *utils.Logger
}

// UpdateRecord 一次数据更新的记录
type UpdateRecord struct {
	ID           int    `json:"id" yaml:"id"`
	LastUpdate   string `json:"last_update" yaml:"last_update"`
	Source       string `json:"source" yaml:"source"`
	RecordsAdded int    `json:"records_added" yaml:"records_added"`
}

func NewCVEDatabase(dbPath string) (*CVEDatabase, error) {
	logger := utils.NewLogger("cvedb")

	// 确保目录存在
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("创建数据库目录失败: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	// sqlite只允许单写者
	db.SetMaxOpenConns(1)

	cvedb := &CVEDatabase{
		db:     db,
		path:   dbPath,
		logger: logger,
	}

	// 初始化表
	if err := cvedb.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化数据表失败: %w", err)
	}

	logger.Debug("已打开数据库 %s", dbPath)
	return cvedb, nil
}

func (cd *CVEDatabase) initTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cve (
		id TEXT PRIMARY KEY,
		published TEXT,
		last_modified TEXT,
		description TEXT,
		cvss_v3_score REAL,
		cvss_v3_severity TEXT,
		cvss_v2_score REAL,
		cvss_v2_severity TEXT,
		reference_urls TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_cve_v3_score ON cve(cvss_v3_score);
	CREATE INDEX IF NOT EXISTS idx_cve_published ON cve(published);

	CREATE TABLE IF NOT EXISTS update_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		last_update TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		source TEXT,
		records_added INTEGER
	);
	`

	_, err := cd.db.Exec(schema)
	return err
}

func recordArgs(r model.Record) []interface{} {
	return []interface{}{
		r.ID, r.Published, r.LastModified, nullable(r.Description),
		r.CVSSV3Score, nullable(string(r.CVSSV3Severity)),
		r.CVSSV2Score, nullable(string(r.CVSSV2Severity)),
		nullable(r.ReferenceURLs),
	}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// InsertCVE 插入或替换单条CVE记录
func (cd *CVEDatabase) InsertCVE(ctx context.Context, r model.Record) error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("CVE编号不能为空")
	}
	_, err := cd.db.ExecContext(ctx, upsertStmt, recordArgs(r)...)
	return err
}

// SaveBatch 在一个事务中批量写入，同一编号的旧记录被替换
func (cd *CVEDatabase) SaveBatch(ctx context.Context, records []model.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := cd.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("开启事务失败: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertStmt)
	if err != nil {
		return 0, fmt.Errorf("准备语句失败: %w", err)
	}
	defer stmt.Close()

	saved := 0
	for _, r := range records {
		if strings.TrimSpace(r.ID) == "" {
			cd.logger.Debug("跳过缺少编号的记录")
			continue
		}
		if _, err := stmt.ExecContext(ctx, recordArgs(r)...); err != nil {
			return 0, fmt.Errorf("写入 %s 失败: %w", r.ID, err)
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("提交事务失败: %w", err)
	}
	return saved, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (model.Record, error) {
	var r model.Record
	var published, modified, description, v3Sev, v2Sev, refs sql.NullString
	err := row.Scan(&r.ID, &published, &modified, &description,
		&r.CVSSV3Score, &v3Sev, &r.CVSSV2Score, &v2Sev, &refs)
	if err != nil {
		return model.Record{}, err
	}
	r.Published = published.String
	r.LastModified = modified.String
	r.Description = description.String
	r.CVSSV3Severity = model.ParseSeverity(v3Sev.String)
	r.CVSSV2Severity = model.ParseSeverity(v2Sev.String)
	r.ReferenceURLs = refs.String
	return r, nil
}

func (cd *CVEDatabase) queryRecords(ctx context.Context, query string, args ...interface{}) ([]model.Record, error) {
	rows, err := cd.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []model.Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			cd.logger.Warn("读取记录失败: %v", err)
			continue
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// All 返回全部记录，按编号排序
func (cd *CVEDatabase) All(ctx context.Context) ([]model.Record, error) {
	return cd.queryRecords(ctx, `SELECT `+recordColumns+` FROM cve ORDER BY id`)
}

// Get 按编号查询单条记录
func (cd *CVEDatabase) Get(ctx context.Context, id string) (model.Record, error) {
	row := cd.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM cve WHERE id = ?`,
		strings.ToUpper(strings.TrimSpace(id)))
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Record{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return r, err
}

// HasData 检查数据库中是否有数据
func (cd *CVEDatabase) HasData(ctx context.Context) (bool, error) {
	count, err := cd.Count(ctx)
	return count > 0, err
}

// Count 获取CVE总数
func (cd *CVEDatabase) Count(ctx context.Context) (int, error) {
	var count int
	err := cd.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cve").Scan(&count)
	return count, err
}

// DeleteAll 清空CVE表
func (cd *CVEDatabase) DeleteAll(ctx context.Context) (int64, error) {
	res, err := cd.db.ExecContext(ctx, "DELETE FROM cve")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RecordUpdate 记录一次数据更新
func (cd *CVEDatabase) RecordUpdate(ctx context.Context, source string, added int) error {
	_, err := cd.db.ExecContext(ctx, `
		INSERT INTO update_history (source, records_added)
		VALUES (?, ?)`,
		source, added,
	)
	if err != nil {
		return fmt.Errorf("记录更新历史失败: %w", err)
	}
	return nil
}

// GetUpdateHistory 获取最近10次更新历史
func (cd *CVEDatabase) GetUpdateHistory(ctx context.Context) ([]UpdateRecord, error) {
	rows, err := cd.db.QueryContext(ctx, `
		SELECT id, last_update, source, records_added
		FROM update_history
		ORDER BY last_update DESC, id DESC
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := []UpdateRecord{}
	for rows.Next() {
		var h UpdateRecord
		if err := rows.Scan(&h.ID, &h.LastUpdate, &h.Source, &h.RecordsAdded); err != nil {
			continue
		}
		history = append(history, h)
	}

	return history, rows.Err()
}

func (cd *CVEDatabase) Close() error {
	return cd.db.Close()
}
