package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/stats"
)

// FairnessRequest 公平性分析请求
type FairnessRequest struct {
	StartDate string       `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string       `json:"end_date" validate:"required,datetime=2006-01-02"`
	Staff     []StaffInput `json:"staff" validate:"required,min=1,dive"`

	// 员工ID → 日期 → 班次符号
	Schedule map[string]map[string]string `json:"schedule" validate:"required"`
}

// Fairness 分析排班公平性
func (h *ScheduleHandler) Fairness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req FairnessRequest
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
			continue
		}
		for date, symbol := range row {
			sched.Set(model.Variable{StaffID: id, Date: date}, model.ParseSymbol(symbol))
		}
	}

	respondJSON(w, http.StatusOK, stats.NewFairnessAnalyzer().Analyze(sched))
}
