// Package config 提供配置管理
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config 应用配置
type Config struct {
	App      AppConfig      `envPrefix:"APP_"`
	Database DatabaseConfig `envPrefix:"DB_"`
	Solver   SolverConfig   `envPrefix:"SOLVER_"`
	Metrics  MetricsConfig  `envPrefix:"METRICS_"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name     string `env:"NAME" envDefault:"roster"`
	Env      string `env:"ENV" envDefault:"development"`
	Port     int    `env:"PORT" envDefault:"7012"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string        `env:"HOST" envDefault:"localhost"`
	Port            int           `env:"PORT" envDefault:"5432"`
	Name            string        `env:"NAME" envDefault:"roster"`
	User            string        `env:"USER" envDefault:"roster"`
	Password        string        `env:"PASSWORD" envDefault:"roster123"`
	SSLMode         string        `env:"SSL_MODE" envDefault:"disable"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"5m"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// SolverConfig 求解引擎配置
type SolverConfig struct {
	DefaultTimeout  time.Duration `env:"TIMEOUT" envDefault:"60s"`
	AcceptThreshold float64       `env:"ACCEPT_THRESHOLD" envDefault:"70"`
	UseGA           bool          `env:"USE_GA" envDefault:"true"`
	UseSA           bool          `env:"USE_SA" envDefault:"false"`
	MaxStaff        int           `env:"MAX_STAFF" envDefault:"200"`
	MaxDays         int           `env:"MAX_DAYS" envDefault:"62"`
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"true"`
	Path    string `env:"PATH" envDefault:"/metrics"`
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if errors.As(err, &aggErr) {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}
	return cfg, nil
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
