// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SolveRun 求解运行记录
type SolveRun struct {
	ID           uuid.UUID `json:"id"`
	StartDate    string    `json:"start_date"`
	EndDate      string    `json:"end_date"`
	StaffCount   int       `json:"staff_count"`
	Feasible     bool      `json:"feasible"`
	Degraded     bool      `json:"degraded"`
	Fitness      float64   `json:"fitness"`
	Completeness float64   `json:"completeness"`
	Backtracks   int       `json:"backtracks"`
	Assignments  int       `json:"assignments"`
	Repaired     int       `json:"repaired"`
	DurationMs   int64     `json:"duration_ms"`

	// 排班结果：员工ID → 日期 → 班次符号
	Result map[string]map[string]string `json:"result,omitempty"`

	Violations []SolveViolation `json:"violations,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// SolveViolation 持久化的约束违规
type SolveViolation struct {
	Constraint string `json:"constraint"`
	Severity   string `json:"severity"`
	StaffName  string `json:"staff_name,omitempty"`
	Date       string `json:"date,omitempty"`
	Message    string `json:"message"`
}

// SolveRepository 求解运行仓储
type SolveRepository struct {
	db DB
}

// NewSolveRepository 创建求解运行仓储
func NewSolveRepository(db DB) *SolveRepository {
	return &SolveRepository{db: db}
}

// Create 持久化一次求解运行
func (r *SolveRepository) Create(ctx context.Context, run *SolveRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	run.CreatedAt = time.Now()

	resultJSON, _ := json.Marshal(run.Result)
	violationsJSON, _ := json.Marshal(run.Violations)

	query := `
		INSERT INTO solve_runs (
			id, start_date, end_date, staff_count, feasible, degraded,
			fitness, completeness, backtracks, assignments, repaired,
			duration_ms, result, violations, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.StartDate, run.EndDate, run.StaffCount, run.Feasible, run.Degraded,
		run.Fitness, run.Completeness, run.Backtracks, run.Assignments, run.Repaired,
		run.DurationMs, resultJSON, violationsJSON, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建求解记录失败: %w", err)
	}

	return nil
}

// GetByID 根据ID获取求解记录
func (r *SolveRepository) GetByID(ctx context.Context, id uuid.UUID) (*SolveRun, error) {
	query := `
		SELECT id, start_date, end_date, staff_count, feasible, degraded,
			fitness, completeness, backtracks, assignments, repaired,
			duration_ms, result, violations, created_at
		FROM solve_runs
		WHERE id = $1
	`

	return r.scanRun(r.db.QueryRowContext(ctx, query, id))
}

// List 列出求解记录
func (r *SolveRepository) List(ctx context.Context, filter ListFilter) ([]*SolveRun, int, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.StartDate != "" {
		conditions = append(conditions, fmt.Sprintf("start_date >= $%d", argNum))
		args = append(args, filter.StartDate)
		argNum++
	}
	if filter.EndDate != "" {
		conditions = append(conditions, fmt.Sprintf("end_date <= $%d", argNum))
		args = append(args, filter.EndDate)
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM solve_runs " + whereClause
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("统计求解记录失败: %w", err)
	}

	orderBy := "created_at"
	if filter.OrderBy != "" {
		orderBy = filter.OrderBy
	}
	orderDir := "DESC"
	if strings.EqualFold(filter.OrderDir, "asc") {
		orderDir = "ASC"
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	query := fmt.Sprintf(`
		SELECT id, start_date, end_date, staff_count, feasible, degraded,
			fitness, completeness, backtracks, assignments, repaired,
			duration_ms, result, violations, created_at
		FROM solve_runs
		%s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, whereClause, orderBy, orderDir, argNum, argNum+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("查询求解记录失败: %w", err)
	}
	defer rows.Close()

	var runs []*SolveRun
	for rows.Next() {
		run, err := r.scanRun(rows)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("遍历求解记录失败: %w", err)
	}

	return runs, total, nil
}

// Delete 删除求解记录
func (r *SolveRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM solve_runs WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("删除求解记录失败: %w", err)
	}
	return nil
}

// Latest 获取指定日期范围的最近一次求解
func (r *SolveRepository) Latest(ctx context.Context, startDate, endDate string) (*SolveRun, error) {
	query := `
		SELECT id, start_date, end_date, staff_count, feasible, degraded,
			fitness, completeness, backtracks, assignments, repaired,
			duration_ms, result, violations, created_at
		FROM solve_runs
		WHERE start_date = $1 AND end_date = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	return r.scanRun(r.db.QueryRowContext(ctx, query, startDate, endDate))
}

func (r *SolveRepository) scanRun(row Scanner) (*SolveRun, error) {
	run := &SolveRun{}
	var resultJSON, violationsJSON []byte

	err := row.Scan(
		&run.ID, &run.StartDate, &run.EndDate, &run.StaffCount, &run.Feasible, &run.Degraded,
		&run.Fitness, &run.Completeness, &run.Backtracks, &run.Assignments, &run.Repaired,
		&run.DurationMs, &resultJSON, &violationsJSON, &run.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("求解记录不存在")
	}
	if err != nil {
		return nil, fmt.Errorf("扫描求解记录失败: %w", err)
	}

	if len(resultJSON) > 0 {
		json.Unmarshal(resultJSON, &run.Result)
	}
	if len(violationsJSON) > 0 {
		json.Unmarshal(violationsJSON, &run.Violations)
	}

	return run, nil
}
