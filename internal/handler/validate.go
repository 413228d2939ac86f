package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/scheduler/constraint/builtin"
	"github.com/paiban/roster/pkg/scheduler/fitness"
	"github.com/paiban/roster/pkg/stats"
	"github.com/paiban/roster/pkg/validator"
)

// ValidateRequest 排班验证请求
type ValidateRequest struct {
	StartDate string       `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string       `json:"end_date" validate:"required,datetime=2006-01-02"`
	Staff     []StaffInput `json:"staff" validate:"required,min=1,dive"`

	// 待验证排班：员工ID → 日期 → 班次符号
	Schedule map[string]map[string]string `json:"schedule" validate:"required"`

	Rules *RulesInput `json:"rules,omitempty"`
}

// ValidateResponse 排班验证响应
type ValidateResponse struct {
	Valid        bool              `json:"valid"`
	Fitness      float64           `json:"fitness"`
	Completeness float64           `json:"completeness"`
	Breakdown    interface{}       `json:"breakdown"`
	Violations   []ViolationOutput `json:"violations,omitempty"`
	Fairness     interface{}       `json:"fairness,omitempty"`

	Recommendations interface{} `json:"recommendations,omitempty"`
}

// Validate 验证已有排班
func (h *ScheduleHandler) Validate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeValidationFail, "请求参数校验失败").WithDetails(err.Error()))
		return
	}

	roster := make([]*model.Staff, 0, len(req.Staff))
	for _, s := range req.Staff {
		id, err := uuid.Parse(s.ID)
		if err != nil {
			respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "无效的员工ID格式: "+s.ID))
			return
		}
		roster = append(roster, &model.Staff{ID: id, Name: s.Name, Status: s.Status, Position: s.Position})
	}

	dates, err := model.BuildDates(req.StartDate, req.EndDate)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidTimeRange, "日期范围无效"))
		return
	}

	sched := model.NewSchedule(roster, dates)
	for idStr, row := range req.Schedule {
		id, err := uuid.Parse(idStr)
		if err != nil {
			respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "排班中的员工ID无效: "+idStr))
			return
		}
		if sched.StaffIndex(id) < 0 {
			respondError(w, errors.InvalidInput("schedule", "排班引用了未知员工: "+idStr))
			return
		}
		for date, symbol := range row {
			if sched.DateIndex(date) < 0 {
				respondError(w, errors.InvalidInput("schedule", "排班引用了范围外日期: "+date))
				return
			}
			sched.Set(model.Variable{StaffID: id, Date: date}, model.ParseSymbol(symbol))
		}
	}

	rules := buildRules(req.Rules)
	constraints, err := builtin.Build(roster, rules)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "约束构建失败"))
		return
	}
	engine := constraint.NewEngine(constraints...)
	eval := fitness.NewEvaluator(engine, fitness.SingleWeights()).WithSoftRules(rules.Priorities)

	result := engine.ValidateAll(sched)
	breakdown := eval.Breakdown(sched)

	resp := &ValidateResponse{
		Valid:        result.Valid,
		Fitness:      breakdown.Total,
		Completeness: sched.Completeness(),
		Breakdown:    breakdown,
		Fairness:     stats.NewFairnessAnalyzer().Analyze(sched),
	}
	for _, v := range result.Violations {
		resp.Violations = append(resp.Violations, ViolationOutput{
			Constraint: v.Constraint,
			Severity:   string(v.Severity),
			StaffName:  v.StaffName,
			Date:       v.Date,
			Message:    v.Message,
		})
	}
	recs := validator.NewRecommender(rules).Build(result, breakdown, sched.Completeness())
	if len(recs) > 0 {
		resp.Recommendations = recs
	}

	respondJSON(w, http.StatusOK, resp)
}
