package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// EntityNames lists the logical entities whose namespace can be overridden.
var EntityNames = []string{"student", "parent", "teacher", "class", "assessment"}

type Config struct {
	Env        string
	Port       int
	BackendURL string

	Warehouse WarehouseConfig
	Redis     RedisConfig
	RowCache  RowCacheConfig
	Upload    UploadConfig
	CORS      CORSConfig
	Log       LogConfig
}

// WarehouseConfig describes the warehouse connection and table layout.
// Namespaces maps an entity name to the schema holding its table.
type WarehouseConfig struct {
	Project      string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	Namespaces   map[string]string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RowCacheConfig toggles caching of list results in Redis.
type RowCacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// UploadConfig bounds spreadsheet uploads.
type UploadConfig struct {
	MaxFileSizeBytes int64
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ErrMissingProject is returned when no warehouse project identity is configured.
var ErrMissingProject = errors.New("WAREHOUSE_PROJECT is required")

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.BackendURL = v.GetString("BACKEND_URL")

	namespaces := make(map[string]string, len(EntityNames))
	for _, name := range EntityNames {
		namespaces[name] = v.GetString("WAREHOUSE_NAMESPACE_" + strings.ToUpper(name))
	}

	cfg.Warehouse = WarehouseConfig{
		Project:      strings.TrimSpace(v.GetString("WAREHOUSE_PROJECT")),
		Host:         v.GetString("WAREHOUSE_HOST"),
		Port:         v.GetInt("WAREHOUSE_PORT"),
		User:         v.GetString("WAREHOUSE_USER"),
		Password:     v.GetString("WAREHOUSE_PASSWORD"),
		Name:         v.GetString("WAREHOUSE_NAME"),
		SSLMode:      v.GetString("WAREHOUSE_SSL_MODE"),
		MaxOpenConns: v.GetInt("WAREHOUSE_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("WAREHOUSE_MAX_IDLE_CONNS"),
		Namespaces:   namespaces,
	}
	if cfg.Warehouse.Project == "" {
		return nil, ErrMissingProject
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.RowCache = RowCacheConfig{
		Enabled: v.GetBool("ENABLE_ROW_CACHE"),
		TTL:     parseDuration(v.GetString("ROW_CACHE_TTL"), 2*time.Minute),
	}

	maxUpload := v.GetInt64("UPLOAD_MAX_FILE_SIZE")
	if maxUpload <= 0 {
		maxUpload = 20 * 1024 * 1024
	}
	cfg.Upload = UploadConfig{MaxFileSizeBytes: maxUpload}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8000)
	v.SetDefault("BACKEND_URL", "http://localhost:8000")

	v.SetDefault("WAREHOUSE_PROJECT", "")
	v.SetDefault("WAREHOUSE_HOST", "localhost")
	v.SetDefault("WAREHOUSE_PORT", 5432)
	v.SetDefault("WAREHOUSE_USER", "postgres")
	v.SetDefault("WAREHOUSE_PASSWORD", "postgres")
	v.SetDefault("WAREHOUSE_NAME", "special_ed")
	v.SetDefault("WAREHOUSE_SSL_MODE", "disable")
	v.SetDefault("WAREHOUSE_MAX_OPEN_CONNS", 10)
	v.SetDefault("WAREHOUSE_MAX_IDLE_CONNS", 5)

	v.SetDefault("WAREHOUSE_NAMESPACE_STUDENT", "groups")
	v.SetDefault("WAREHOUSE_NAMESPACE_PARENT", "groups")
	v.SetDefault("WAREHOUSE_NAMESPACE_TEACHER", "groups")
	v.SetDefault("WAREHOUSE_NAMESPACE_CLASS", "groups")
	v.SetDefault("WAREHOUSE_NAMESPACE_ASSESSMENT", "assessment")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ENABLE_ROW_CACHE", false)
	v.SetDefault("ROW_CACHE_TTL", "2m")
	v.SetDefault("UPLOAD_MAX_FILE_SIZE", 20*1024*1024)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
