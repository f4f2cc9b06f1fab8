package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration. An empty Departments table means the
// built-in admissions departments. TrustedProxies holds the parsed
// TrustedProxyList entries.
type Config struct {
	Port                 string
	DatabaseURL          string
	Env                  string
	Timezone             string
	Location             *time.Location
	AutoMigrate          bool
	RateLimitPerMinute   int
	RateLimitBurst       int
	ReconcileInterval    time.Duration
	ReconcileBatchSize   int
	AdminJWTSecret       string
	CORSOrigins          []string
	StatsCacheSize       int
	StatsCacheTTL        time.Duration
	GuestCacheTTL        time.Duration
	AllDepartmentViewers []string
	Departments          map[string]string
	TrustedProxyList     []string
	TrustedProxies       []netip.Prefix
}

// fileConfig is the optional YAML layer. Environment variables override it.
type fileConfig struct {
	Server struct {
		Port               string   `yaml:"port"`
		Env                string   `yaml:"env"`
		Timezone           string   `yaml:"timezone"`
		RateLimitPerMinute int      `yaml:"rate_limit_per_min"`
		RateLimitBurst     int      `yaml:"rate_limit_burst"`
		CORSOrigins        []string `yaml:"cors_origins"`
		AdminJWTSecret     string   `yaml:"admin_jwt_secret"`
		TrustedProxies     []string `yaml:"trusted_proxies"`
	} `yaml:"server"`
	Database struct {
		DSN         string `yaml:"dsn"`
		AutoMigrate *bool  `yaml:"auto_migrate"`
	} `yaml:"database"`
	Queue struct {
		Departments             map[string]string `yaml:"departments"`
		AllDepartmentViewers    []string          `yaml:"all_department_viewers"`
		ReconcileIntervalSecond int               `yaml:"reconcile_interval_seconds"`
		ReconcileBatchSize      int               `yaml:"reconcile_batch_size"`
	} `yaml:"queue"`
	Cache struct {
		StatsSize       int `yaml:"stats_size"`
		StatsTTLSeconds int `yaml:"stats_ttl_seconds"`
		GuestTTLSeconds int `yaml:"guest_ttl_seconds"`
	} `yaml:"cache"`
}

func defaults() Config {
	return Config{
		Port:                 "8080",
		Env:                  "dev",
		AutoMigrate:          true,
		RateLimitPerMinute:   120,
		RateLimitBurst:       30,
		ReconcileInterval:    5 * time.Minute,
		ReconcileBatchSize:   100,
		CORSOrigins:          []string{"*"},
		StatsCacheSize:       256,
		StatsCacheTTL:        time.Hour,
		GuestCacheTTL:        10 * time.Minute,
		AllDepartmentViewers: []string{"IT", "Administration"},
	}
}

// Load builds the configuration from defaults, the YAML file at path (when
// path is non-empty) and the environment, in that order.
func Load(path string) (Config, error) {
	cfg := defaults()
	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)

	if cfg.Timezone == "" {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return Config{}, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	cfg.TrustedProxies = nil
	for _, entry := range cfg.TrustedProxyList {
		prefix, err := parseProxy(entry)
		if err != nil {
			return Config{}, fmt.Errorf("trusted proxy %q: %w", entry, err)
		}
		cfg.TrustedProxies = append(cfg.TrustedProxies, prefix)
	}
	return cfg, nil
}

// parseProxy accepts a CIDR block or a single address.
func parseProxy(entry string) (netip.Prefix, error) {
	entry = strings.TrimSpace(entry)
	if strings.Contains(entry, "/") {
		prefix, err := netip.ParsePrefix(entry)
		if err != nil {
			return netip.Prefix{}, err
		}
		return prefix.Masked(), nil
	}
	addr, err := netip.ParseAddr(entry)
	if err != nil {
		return netip.Prefix{}, err
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

func applyFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var file fileConfig
	if err := yaml.NewDecoder(f).Decode(&file); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}

	setString(&cfg.Port, file.Server.Port)
	setString(&cfg.Env, file.Server.Env)
	setString(&cfg.Timezone, file.Server.Timezone)
	setString(&cfg.AdminJWTSecret, file.Server.AdminJWTSecret)
	setString(&cfg.DatabaseURL, file.Database.DSN)
	setPositive(&cfg.RateLimitPerMinute, file.Server.RateLimitPerMinute)
	setPositive(&cfg.RateLimitBurst, file.Server.RateLimitBurst)
	setPositive(&cfg.ReconcileBatchSize, file.Queue.ReconcileBatchSize)
	setPositive(&cfg.StatsCacheSize, file.Cache.StatsSize)
	if file.Database.AutoMigrate != nil {
		cfg.AutoMigrate = *file.Database.AutoMigrate
	}
	if len(file.Server.CORSOrigins) > 0 {
		cfg.CORSOrigins = file.Server.CORSOrigins
	}
	if len(file.Server.TrustedProxies) > 0 {
		cfg.TrustedProxyList = file.Server.TrustedProxies
	}
	if len(file.Queue.AllDepartmentViewers) > 0 {
		cfg.AllDepartmentViewers = file.Queue.AllDepartmentViewers
	}
	if len(file.Queue.Departments) > 0 {
		cfg.Departments = file.Queue.Departments
	}
	if file.Queue.ReconcileIntervalSecond > 0 {
		cfg.ReconcileInterval = time.Duration(file.Queue.ReconcileIntervalSecond) * time.Second
	}
	if file.Cache.StatsTTLSeconds > 0 {
		cfg.StatsCacheTTL = time.Duration(file.Cache.StatsTTLSeconds) * time.Second
	}
	if file.Cache.GuestTTLSeconds > 0 {
		cfg.GuestCacheTTL = time.Duration(file.Cache.GuestTTLSeconds) * time.Second
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Port = readString("PORT", cfg.Port)
	cfg.DatabaseURL = readString("DB_DSN", cfg.DatabaseURL)
	cfg.Env = readString("APP_ENV", cfg.Env)
	cfg.Timezone = readString("TIMEZONE", cfg.Timezone)
	cfg.AutoMigrate = readBool("AUTO_MIGRATE", cfg.AutoMigrate)
	cfg.RateLimitPerMinute = readInt("RATE_LIMIT_PER_MIN", cfg.RateLimitPerMinute)
	cfg.RateLimitBurst = readInt("RATE_LIMIT_BURST", cfg.RateLimitBurst)
	cfg.ReconcileInterval = readDurationSeconds("RECONCILE_INTERVAL_SECONDS", cfg.ReconcileInterval)
	cfg.ReconcileBatchSize = readInt("RECONCILE_BATCH_SIZE", cfg.ReconcileBatchSize)
	cfg.AdminJWTSecret = readString("ADMIN_JWT_SECRET", cfg.AdminJWTSecret)
	cfg.CORSOrigins = readList("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.TrustedProxyList = readList("TRUSTED_PROXIES", cfg.TrustedProxyList)
	cfg.StatsCacheSize = readInt("STATS_CACHE_SIZE", cfg.StatsCacheSize)
	cfg.StatsCacheTTL = readDurationSeconds("STATS_CACHE_TTL_SECONDS", cfg.StatsCacheTTL)
	cfg.GuestCacheTTL = readDurationSeconds("GUEST_CACHE_TTL_SECONDS", cfg.GuestCacheTTL)
	cfg.AllDepartmentViewers = readList("ALL_DEPARTMENT_VIEWERS", cfg.AllDepartmentViewers)
}

// CanViewAllDepartments reports whether department sees every archive row.
func (c Config) CanViewAllDepartments(department string) bool {
	for _, viewer := range c.AllDepartmentViewers {
		if strings.EqualFold(viewer, strings.TrimSpace(department)) {
			return true
		}
	}
	return false
}

func setString(target *string, value string) {
	if value != "" {
		*target = value
	}
}

func setPositive(target *int, value int) {
	if value > 0 {
		*target = value
	}
}

func readString(key, fallback string) string {
	if raw := os.Getenv(key); raw != "" {
		return raw
	}
	return fallback
}

func readList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	var values []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}

// readDurationSeconds reads whole seconds; zero or negative disables.
func readDurationSeconds(key string, fallback time.Duration) time.Duration {
	value := readInt(key, int(fallback/time.Second))
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}
