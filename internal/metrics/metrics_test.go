package metrics

import (
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestGetRegistry_Singleton(t *testing.T) {
	a := GetRegistry()
	b := GetRegistry()
	if a != b {
		t.Error("GetRegistry应返回同一实例")
	}
	if a.GetCounter("roster_solve_total") == nil {
		t.Error("默认指标应已注册")
	}
}

func TestCounter(t *testing.T) {
	r := GetRegistry()
	c := r.NewCounter("test_counter_total", "测试计数器", []string{"status"})

	c.Inc("ok")
	c.Inc("ok")
	c.Add(3, "failed")

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.values["ok"] != 2 {
		t.Errorf("ok计数 = %f, expected 2", c.values["ok"])
	}
	if c.values["failed"] != 3 {
		t.Errorf("failed计数 = %f, expected 3", c.values["failed"])
	}
}

func TestGauge(t *testing.T) {
	r := GetRegistry()
	g := r.NewGauge("test_gauge", "测试仪表盘", []string{})

	g.Set(10)
	g.Inc()
	g.Dec()
	g.Add(5)

	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.values[""] != 15 {
		t.Errorf("仪表盘值 = %f, expected 15", g.values[""])
	}
}

func TestHistogram(t *testing.T) {
	r := GetRegistry()
	h := r.NewHistogram("test_histogram", "测试直方图", []string{}, []float64{0.1, 1.0, 10.0})

	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(100)

	h.mu.RLock()
	defer h.mu.RUnlock()
	counts := h.counts[""]
	// 0.05 落入所有桶; 0.5 落入 1.0 和 10.0; 100 仅计入 +Inf
	if counts[0] != 1 || counts[1] != 2 || counts[2] != 2 {
		t.Errorf("桶计数错误: %v", counts)
	}
	if counts[3] != 3 {
		t.Errorf("+Inf桶应为3, 实际 %d", counts[3])
	}
	if math.Abs(h.sums[""]-100.55) > 1e-9 {
		t.Errorf("sum = %f, expected 100.55", h.sums[""])
	}
}

func TestHandler(t *testing.T) {
	RecordSolve(true, 2*time.Second, 15, 300)
	RecordQuality(92.5, 100, 0.03)
	RecordRequest("POST", "/api/v1/schedule/generate", 200, 50*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, req)

	body := w.Body.String()
	expected := []string{
		"# TYPE roster_solve_total counter",
		`roster_solve_total{status="success"}`,
		"# TYPE roster_solution_fitness gauge",
		"roster_solution_fitness 92.5",
		"# TYPE roster_solve_duration_seconds histogram",
		"roster_solve_duration_seconds_count",
		`le="+Inf"`,
		`roster_http_requests_total{method="POST",path="/api/v1/schedule/generate",status="200"}`,
	}
	for _, s := range expected {
		if !strings.Contains(body, s) {
			t.Errorf("输出应包含 %q", s)
		}
	}
}

func TestRecordDBStats(t *testing.T) {
	RecordDBStats(10, 4, 6)

	g := GetRegistry().GetGauge("roster_db_connections")
	if g == nil {
		t.Fatal("连接池指标应已注册")
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.values["open"] != 10 || g.values["idle"] != 4 || g.values["in_use"] != 6 {
		t.Errorf("连接池指标错误: %v", g.values)
	}
}
