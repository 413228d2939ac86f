package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load失败: %v", err)
	}

	if cfg.App.Name != "roster" {
		t.Errorf("App.Name = %q, expected %q", cfg.App.Name, "roster")
	}
	if cfg.App.Port != 7012 {
		t.Errorf("App.Port = %d, expected 7012", cfg.App.Port)
	}
	if cfg.Solver.DefaultTimeout != 60*time.Second {
		t.Errorf("Solver.DefaultTimeout = %v, expected 60s", cfg.Solver.DefaultTimeout)
	}
	if !cfg.Solver.UseGA || cfg.Solver.UseSA {
		t.Error("默认应启用GA、关闭SA")
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != "/metrics" {
		t.Errorf("监控默认配置错误: %+v", cfg.Metrics)
	}
	if !cfg.IsDevelopment() || cfg.IsProduction() {
		t.Error("默认环境应为development")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("SOLVER_TIMEOUT", "90s")
	t.Setenv("SOLVER_USE_SA", "true")
	t.Setenv("DB_HOST", "db.internal")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load失败: %v", err)
	}
	if !cfg.IsProduction() {
		t.Error("APP_ENV应覆盖为production")
	}
	if cfg.App.Port != 8080 {
		t.Errorf("App.Port = %d, expected 8080", cfg.App.Port)
	}
	if cfg.Solver.DefaultTimeout != 90*time.Second {
		t.Errorf("Solver.DefaultTimeout = %v, expected 90s", cfg.Solver.DefaultTimeout)
	}
	if !cfg.Solver.UseSA {
		t.Error("SOLVER_USE_SA应覆盖为true")
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("Database.Host = %q", cfg.Database.Host)
	}
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("APP_PORT", "不是数字")
	if _, err := Load(); err == nil {
		t.Error("非法端口值应报错")
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := &DatabaseConfig{
		Host: "localhost", Port: 5432,
		User: "roster", Password: "secret",
		Name: "roster", SSLMode: "disable",
	}
	expected := "host=localhost port=5432 user=roster password=secret dbname=roster sslmode=disable"
	if got := cfg.DSN(); got != expected {
		t.Errorf("DSN() = %q, expected %q", got, expected)
	}
}
