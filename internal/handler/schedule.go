// Package handler 提供HTTP请求处理器
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/paiban/roster/internal/config"
	"github.com/paiban/roster/internal/metrics"
	"github.com/paiban/roster/internal/repository"
	"github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/logger"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler"
	"github.com/paiban/roster/pkg/scheduler/solver"
)

// ScheduleHandler 排班处理器
type ScheduleHandler struct {
	engine   *scheduler.Engine
	repo     *repository.SolveRepository
	validate *validator.Validate
	cfg      *config.SolverConfig
}

// NewScheduleHandler 创建排班处理器
// repo 可为 nil，此时跳过持久化
func NewScheduleHandler(engine *scheduler.Engine, repo *repository.SolveRepository, cfg *config.SolverConfig) *ScheduleHandler {
	return &ScheduleHandler{
		engine:   engine,
		repo:     repo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		cfg:      cfg,
	}
}

// StaffInput 员工输入
type StaffInput struct {
	ID       string `json:"id" validate:"required,uuid"`
	Name     string `json:"name" validate:"required"`
	Status   string `json:"status,omitempty"`
	Position string `json:"position,omitempty"`
}

// GroupInput 互斥组输入
type GroupInput struct {
	Name    string   `json:"name" validate:"required"`
	Members []string `json:"members" validate:"required,min=2"`
	Backup  string   `json:"backup,omitempty"`
}

// PriorityInput 班次优先规则输入
type PriorityInput struct {
	StaffName string `json:"staff_name" validate:"required"`
	DayOfWeek int    `json:"day_of_week" validate:"min=0,max=6"`
	Preferred string `json:"preferred" validate:"required"`
	Level     int    `json:"level" validate:"min=1,max=3"`
}

// RulesInput 约束规则输入，零值字段取默认配置
type RulesInput struct {
	MonthlyOffCeiling int             `json:"monthly_off_ceiling,omitempty" validate:"min=0"`
	DailyOffCeiling   int             `json:"daily_off_ceiling,omitempty" validate:"min=0"`
	DailyEarlyCeiling int             `json:"daily_early_ceiling,omitempty" validate:"min=0"`
	DailyLateCeiling  int             `json:"daily_late_ceiling,omitempty" validate:"min=0"`
	MinWorkingPerDay  int             `json:"min_working_per_day,omitempty" validate:"min=0"`
	Groups            []GroupInput    `json:"groups,omitempty" validate:"dive"`
	Priorities        []PriorityInput `json:"priorities,omitempty" validate:"dive"`
}

// OptionsInput 求解选项输入
type OptionsInput struct {
	UseGA           *bool   `json:"use_ga,omitempty"`
	UseSA           *bool   `json:"use_sa,omitempty"`
	TimeoutSeconds  int     `json:"timeout_seconds,omitempty" validate:"min=0,max=600"`
	Seed            int64   `json:"seed,omitempty"`
	AcceptThreshold float64 `json:"accept_threshold,omitempty" validate:"min=0,max=100"`
}

// GenerateRequest 排班生成请求
type GenerateRequest struct {
	StartDate string       `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string       `json:"end_date" validate:"required,datetime=2006-01-02"`
	Staff     []StaffInput `json:"staff" validate:"required,min=1,dive"`

	// 部分排班：员工ID → 日期 → 班次符号（日/早/晚/休），视为固定
	Partial map[string]map[string]string `json:"partial,omitempty"`

	Rules   *RulesInput   `json:"rules,omitempty"`
	Options *OptionsInput `json:"options,omitempty"`
}

// ViolationOutput 约束违规输出
type ViolationOutput struct {
	Constraint string `json:"constraint"`
	Severity   string `json:"severity"`
	StaffName  string `json:"staff_name,omitempty"`
	Date       string `json:"date,omitempty"`
	Message    string `json:"message"`
}

// GenerateResponse 排班生成响应
type GenerateResponse struct {
	Success      bool    `json:"success"`
	SolveID      string  `json:"solve_id"`
	Valid        bool    `json:"valid"`
	Degraded     bool    `json:"degraded"`
	Fitness      float64 `json:"fitness"`
	Completeness float64 `json:"completeness"`
	Message      string  `json:"message,omitempty"`

	// 员工ID → 日期 → 班次符号
	Schedule map[string]map[string]string `json:"schedule"`

	Breakdown       interface{}        `json:"breakdown,omitempty"`
	Violations      []ViolationOutput  `json:"violations,omitempty"`
	Fairness        interface{}        `json:"fairness,omitempty"`
	Recommendations interface{}        `json:"recommendations,omitempty"`
	Statistics      *solver.Statistics `json:"statistics,omitempty"`
	Repaired        int                `json:"repaired"`
	Duration        string             `json:"duration"`
}

// Generate 生成排班
func (h *ScheduleHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeValidationFail, "请求参数校验失败").WithDetails(err.Error()))
		return
	}

	solveReq, appErr := h.buildSolveRequest(&req)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	timeout := h.cfg.DefaultTimeout
	if solveReq.Options.Timeout > 0 {
		timeout = solveReq.Options.Timeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	logger.Info().
		Str("start_date", req.StartDate).
		Str("end_date", req.EndDate).
		Int("staff", len(req.Staff)).
		Msg("接收排班生成请求")

	start := time.Now()
	report, err := h.engine.Solve(ctx, solveReq)
	h.recordSolveMetrics(report, err, time.Since(start))

	if err != nil && report == nil {
		respondError(w, toAppError(err))
		return
	}

	resp := buildGenerateResponse(report, err)
	h.persistRun(r.Context(), solveReq, report)

	status := http.StatusOK
	if err != nil {
		status = errors.GetHTTPStatus(err)
	}
	respondJSON(w, status, resp)
}

// buildSolveRequest 将API请求转换为求解请求
func (h *ScheduleHandler) buildSolveRequest(req *GenerateRequest) (*scheduler.Request, *errors.AppError) {
	if len(req.Staff) > h.cfg.MaxStaff {
		return nil, errors.InvalidInput("staff", "员工数量超出上限")
	}
	// 日期格式错误交由求解引擎统一报告
	if dates, err := model.BuildDates(req.StartDate, req.EndDate); err == nil && len(dates) > h.cfg.MaxDays {
		return nil, errors.InvalidInput("end_date",
			fmt.Sprintf("日期范围 %d 天超出上限 %d 天", len(dates), h.cfg.MaxDays))
	}

	roster := make([]*model.Staff, 0, len(req.Staff))
	for _, s := range req.Staff {
		id, err := uuid.Parse(s.ID)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidInput, "无效的员工ID格式: "+s.ID)
		}
		roster = append(roster, &model.Staff{
			ID:       id,
			Name:     s.Name,
			Status:   s.Status,
			Position: s.Position,
		})
	}

	var partial map[uuid.UUID]map[string]model.ShiftCode
	if len(req.Partial) > 0 {
		partial = make(map[uuid.UUID]map[string]model.ShiftCode, len(req.Partial))
		for idStr, row := range req.Partial {
			id, err := uuid.Parse(idStr)
			if err != nil {
				return nil, errors.Wrap(err, errors.CodeInvalidInput, "部分排班的员工ID无效: "+idStr)
			}
			cells := make(map[string]model.ShiftCode, len(row))
			for date, symbol := range row {
				cells[date] = model.ParseSymbol(symbol)
			}
			partial[id] = cells
		}
	}

	rules := buildRules(req.Rules)

	opts := scheduler.DefaultOptions()
	opts.UseGA = h.cfg.UseGA
	opts.UseSA = h.cfg.UseSA
	opts.Timeout = h.cfg.DefaultTimeout
	opts.AcceptThreshold = h.cfg.AcceptThreshold
	if o := req.Options; o != nil {
		if o.UseGA != nil {
			opts.UseGA = *o.UseGA
		}
		if o.UseSA != nil {
			opts.UseSA = *o.UseSA
		}
		if o.TimeoutSeconds > 0 {
			opts.Timeout = time.Duration(o.TimeoutSeconds) * time.Second
		}
		if o.Seed != 0 {
			opts.Seed = o.Seed
		}
		if o.AcceptThreshold > 0 {
			opts.AcceptThreshold = o.AcceptThreshold
		}
	}

	return &scheduler.Request{
		Staff:     roster,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Partial:   partial,
		Rules:     rules,
		Options:   opts,
	}, nil
}

// buildRules 将规则输入转换为规则配置，零值字段取默认值
func buildRules(in *RulesInput) *model.RuleConfig {
	rules := model.DefaultRuleConfig()
	if in == nil {
		return rules
	}

	if in.MonthlyOffCeiling > 0 {
		rules.MonthlyOffCeiling = in.MonthlyOffCeiling
	}
	if in.DailyOffCeiling > 0 {
		rules.DailyOffCeiling = in.DailyOffCeiling
	}
	if in.DailyEarlyCeiling > 0 {
		rules.DailyEarlyCeiling = in.DailyEarlyCeiling
	}
	if in.DailyLateCeiling > 0 {
		rules.DailyLateCeiling = in.DailyLateCeiling
	}
	if in.MinWorkingPerDay > 0 {
		rules.MinWorkingPerDay = in.MinWorkingPerDay
	}
	for _, g := range in.Groups {
		rules.Groups = append(rules.Groups, model.StaffGroup{
			Name:    g.Name,
			Members: g.Members,
			Backup:  g.Backup,
		})
	}
	for _, p := range in.Priorities {
		rules.Priorities = append(rules.Priorities, model.PriorityRule{
			StaffName: p.StaffName,
			DayOfWeek: time.Weekday(p.DayOfWeek),
			Preferred: model.ParseSymbol(p.Preferred),
			Level:     model.PriorityLevel(p.Level),
		})
	}
	return rules
}

// buildGenerateResponse 构建生成响应
func buildGenerateResponse(report *scheduler.Report, err error) *GenerateResponse {
	resp := &GenerateResponse{
		Success:      err == nil,
		SolveID:      report.SolveID.String(),
		Valid:        report.Valid,
		Degraded:     report.Degraded,
		Fitness:      report.Fitness,
		Completeness: report.Completeness,
		Schedule:     report.Schedule.ToMap(),
		Breakdown:    report.Breakdown,
		Fairness:     report.Fairness,
		Repaired:     report.Repaired,
		Duration:     report.Duration.String(),
	}
	if err != nil {
		resp.Message = toAppError(err).Message
	} else if report.Degraded {
		resp.Message = "排班有效但适应度低于阈值"
	}

	for _, v := range report.Violations {
		resp.Violations = append(resp.Violations, ViolationOutput{
			Constraint: v.Constraint,
			Severity:   string(v.Severity),
			StaffName:  v.StaffName,
			Date:       v.Date,
			Message:    v.Message,
		})
	}
	if len(report.Recommendations) > 0 {
		resp.Recommendations = report.Recommendations
	}
	if report.CSPResult != nil {
		resp.Statistics = report.CSPResult.Statistics
	}
	return resp
}

// recordSolveMetrics 记录求解指标
func (h *ScheduleHandler) recordSolveMetrics(report *scheduler.Report, err error, duration time.Duration) {
	backtracks, checks := 0, 0
	if report != nil && report.CSPResult != nil && report.CSPResult.Statistics != nil {
		backtracks = report.CSPResult.Statistics.Backtracks
		checks = int(report.CSPResult.Statistics.ConstraintChecks)
	}
	metrics.RecordSolve(err == nil, duration, backtracks, checks)
	if report != nil {
		gini := 0.0
		if report.Fairness != nil {
			gini = report.Fairness.WorkloadGini
		}
		metrics.RecordQuality(report.Fitness, report.Completeness, gini)
	}
}

// persistRun 持久化求解记录，失败只记日志
func (h *ScheduleHandler) persistRun(ctx context.Context, req *scheduler.Request, report *scheduler.Report) {
	if h.repo == nil || report == nil || report.Schedule == nil {
		return
	}

	run := &repository.SolveRun{
		ID:           report.SolveID,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		StaffCount:   len(req.Staff),
		Feasible:     report.Valid,
		Degraded:     report.Degraded,
		Fitness:      report.Fitness,
		Completeness: report.Completeness,
		Repaired:     report.Repaired,
		DurationMs:   report.Duration.Milliseconds(),
		Result:       report.Schedule.ToMap(),
	}
	if report.CSPResult != nil && report.CSPResult.Statistics != nil {
		run.Backtracks = report.CSPResult.Statistics.Backtracks
		run.Assignments = report.CSPResult.Statistics.Assignments
	}
	for _, v := range report.Violations {
		run.Violations = append(run.Violations, repository.SolveViolation{
			Constraint: v.Constraint,
			Severity:   string(v.Severity),
			StaffName:  v.StaffName,
			Date:       v.Date,
			Message:    v.Message,
		})
	}

	if err := h.repo.Create(ctx, run); err != nil {
		logger.Error().Err(err).Str("solve_id", run.ID.String()).Msg("持久化求解记录失败")
	}
}

// ListSolves 列出历史求解记录
func (h *ScheduleHandler) ListSolves(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET方法"))
		return
	}
	if h.repo == nil {
		respondError(w, errors.New(errors.CodeInternal, "持久化未启用"))
		return
	}

	filter := repository.DefaultListFilter()
	if v := r.URL.Query().Get("start_date"); v != "" {
		filter.StartDate = v
	}
	if v := r.URL.Query().Get("end_date"); v != "" {
		filter.EndDate = v
	}

	runs, total, err := h.repo.List(r.Context(), filter)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询求解记录失败"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"total": total,
		"runs":  runs,
	})
}

// GetSolve 获取单条求解记录
func (h *ScheduleHandler) GetSolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET方法"))
		return
	}
	if h.repo == nil {
		respondError(w, errors.New(errors.CodeInternal, "持久化未启用"))
		return
	}

	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "无效的记录ID"))
		return
	}

	run, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeNotFound, "求解记录不存在"))
		return
	}

	respondJSON(w, http.StatusOK, run)
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError 返回错误响应
func respondError(w http.ResponseWriter, err *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"code":    err.Code,
		"message": err.Message,
		"details": err.Details,
		"fields":  err.Fields,
	})
}

// toAppError 将任意错误转换为应用错误
func toAppError(err error) *errors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*errors.AppError); ok {
		return appErr
	}
	if err == context.DeadlineExceeded {
		return errors.New(errors.CodeTimeout, "求解超时")
	}
	return errors.Wrap(err, errors.CodeInternal, "求解失败")
}
