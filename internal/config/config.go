// Package config loads the service configuration from an optional YAML file
// with environment variables taking precedence. Environment is the source of
// truth in deployments; the file exists for local development.
package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Services  ServicesConfig  `yaml:"services"`
	Roles     RolesConfig     `yaml:"roles"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	Env  string `yaml:"env"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL          string `yaml:"url"`
	EventChannel string `yaml:"event_channel"`
}

// ServicesConfig points at the collaborating services. InternalToken
// authenticates outbound notification fan-outs; when blank, notifications
// are disabled.
type ServicesConfig struct {
	AuthURL          string `yaml:"auth_url"`
	LocationURL      string `yaml:"location_url"`
	InventoryURL     string `yaml:"inventory_url"`
	NotificationsURL string `yaml:"notifications_url"`
	InternalToken    string `yaml:"internal_token"`
}

// RolesConfig names the roles recognised by the API guards. The admin role
// implies both audit roles.
type RolesConfig struct {
	SystemAdmin     string `yaml:"system_admin"`
	AuditAuditor    string `yaml:"audit_auditor"`
	AuditSupervisor string `yaml:"audit_supervisor"`
}

type RateLimitConfig struct {
	MaxCallsPerMinute int `yaml:"max_calls_per_minute"`
	BurstSize         int `yaml:"burst_size"`
}

// Load reads path (ignored when missing) and applies environment overrides
// and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		f, err := os.Open(path)
		if err == nil {
			defer f.Close()
			if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	envString(&cfg.Server.Port, "PORT")
	envString(&cfg.Server.Env, "APP_ENV")
	envString(&cfg.Database.URL, "DATABASE_URL")
	envString(&cfg.Redis.URL, "REDIS_URL")
	envString(&cfg.Redis.EventChannel, "REDIS_EVENT_CHANNEL")
	envString(&cfg.Services.AuthURL, "AUTH_SERVICE_URL")
	envString(&cfg.Services.LocationURL, "LOCATION_SERVICE_URL")
	envString(&cfg.Services.InventoryURL, "INVENTORY_SERVICE_URL")
	envString(&cfg.Services.NotificationsURL, "NOTIFICATION_SERVICE_URL")
	envString(&cfg.Services.InternalToken, "INTERNAL_TOKEN")
	envString(&cfg.Roles.SystemAdmin, "SYSTEM_ADMIN_ROLE")
	envString(&cfg.Roles.AuditAuditor, "AUDIT_AUDITOR_ROLE")
	envString(&cfg.Roles.AuditSupervisor, "AUDIT_SUPERVISOR_ROLE")
	envInt(&cfg.RateLimit.MaxCallsPerMinute, "RATE_LIMIT_PER_MINUTE")
	envInt(&cfg.RateLimit.BurstSize, "RATE_LIMIT_BURST")

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8000"
	}
	if cfg.Server.Env == "" {
		cfg.Server.Env = "development"
	}
	if cfg.Redis.EventChannel == "" {
		cfg.Redis.EventChannel = "audit:events:session"
	}
	if cfg.Roles.SystemAdmin == "" {
		cfg.Roles.SystemAdmin = "system_admin"
	}
	if cfg.Roles.AuditAuditor == "" {
		cfg.Roles.AuditAuditor = "inventory_auditor"
	}
	if cfg.Roles.AuditSupervisor == "" {
		cfg.Roles.AuditSupervisor = "inventory_audit_supervisor"
	}
	if cfg.RateLimit.MaxCallsPerMinute == 0 {
		cfg.RateLimit.MaxCallsPerMinute = 300
	}
	if cfg.RateLimit.BurstSize == 0 {
		cfg.RateLimit.BurstSize = cfg.RateLimit.MaxCallsPerMinute * 2
	}
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
