package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"studyhub/logger"
)

type Config struct {
	Env         string
	Port        string
	BindAddress string

	DBDriver     string
	DBHost       string
	DBPort       string
	DBUser       string
	DBPassword   string
	DBName       string
	DBSQLitePath string

	RedisEnabled  bool
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisChannel  string

	JWTSecret   string
	CORSOrigins []string

	PageSize    int
	MaxPageSize int
	QuizSeed    uint64

	WSPongWait       time.Duration
	WSWriteWait      time.Duration
	WSMaxMessageSize int64

	SeedDemoData bool
}

func defaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("port", "8080")
	v.SetDefault("bind_address", "localhost")
	v.SetDefault("db_driver", "postgres")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "studyhub")
	v.SetDefault("db_password", "studyhub")
	v.SetDefault("db_name", "studyhub")
	v.SetDefault("db_sqlite_path", "studyhub.db")
	v.SetDefault("redis_enabled", false)
	v.SetDefault("redis_host", "localhost")
	v.SetDefault("redis_port", "6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_channel", "studyhub:chat")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("cors_origins", "http://localhost:3000")
	v.SetDefault("page_size", 15)
	v.SetDefault("max_page_size", 100)
	v.SetDefault("quiz_seed", 0)
	v.SetDefault("ws_pong_wait", 60*time.Second)
	v.SetDefault("ws_write_wait", 10*time.Second)
	v.SetDefault("ws_max_message_size", 4096)
	v.SetDefault("seed_demo_data", false)
}

// Load reads configuration from the environment. A ".env.<env>" or ".env"
// file in the working directory is loaded first when present; variables
// already set in the environment win.
func Load() (*Config, error) {
	env := strings.ToLower(strings.TrimSpace(os.Getenv("ENV")))
	if env == "" {
		env = "dev"
	}
	for _, name := range []string{".env." + env, ".env"} {
		path := filepath.Join(".", name)
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err != nil {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
	}

	v := viper.New()
	defaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:              strings.ToLower(v.GetString("env")),
		Port:             v.GetString("port"),
		BindAddress:      v.GetString("bind_address"),
		DBDriver:         strings.ToLower(v.GetString("db_driver")),
		DBHost:           v.GetString("db_host"),
		DBPort:           v.GetString("db_port"),
		DBUser:           v.GetString("db_user"),
		DBPassword:       v.GetString("db_password"),
		DBName:           v.GetString("db_name"),
		DBSQLitePath:     v.GetString("db_sqlite_path"),
		RedisEnabled:     v.GetBool("redis_enabled"),
		RedisHost:        v.GetString("redis_host"),
		RedisPort:        v.GetString("redis_port"),
		RedisPassword:    v.GetString("redis_password"),
		RedisDB:          v.GetInt("redis_db"),
		RedisChannel:     v.GetString("redis_channel"),
		JWTSecret:        v.GetString("jwt_secret"),
		PageSize:         v.GetInt("page_size"),
		MaxPageSize:      v.GetInt("max_page_size"),
		QuizSeed:         v.GetUint64("quiz_seed"),
		WSPongWait:       v.GetDuration("ws_pong_wait"),
		WSWriteWait:      v.GetDuration("ws_write_wait"),
		WSMaxMessageSize: v.GetInt64("ws_max_message_size"),
		SeedDemoData:     v.GetBool("seed_demo_data"),
	}
	for _, origin := range strings.Split(v.GetString("cors_origins"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProd() {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
		cfg.JWTSecret = "dev-secret-change-in-production"
	}
	switch cfg.DBDriver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.PageSize < 1 || cfg.MaxPageSize < 1 {
		return nil, fmt.Errorf("PAGE_SIZE and MAX_PAGE_SIZE must be positive")
	}
	if cfg.PageSize > cfg.MaxPageSize {
		return nil, fmt.Errorf("PAGE_SIZE (%d) exceeds MAX_PAGE_SIZE (%d)", cfg.PageSize, cfg.MaxPageSize)
	}
	if cfg.WSPongWait <= 0 || cfg.WSWriteWait <= 0 {
		return nil, fmt.Errorf("WS_PONG_WAIT and WS_WRITE_WAIT must be positive")
	}
	return cfg, nil
}

func (c *Config) IsProd() bool {
	return c.Env == "prod" || c.Env == "production"
}

func (c *Config) Addr() string {
	return c.BindAddress + ":" + c.Port
}

func InitDB(cfg *Config, log *logger.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DBSQLitePath)
	default:
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)
		dialector = postgres.Open(dsn)
	}

	level := gormlogger.Warn
	if !cfg.IsProd() {
		level = gormlogger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(log, level, 200*time.Millisecond),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

func InitRedis(ctx context.Context, cfg *Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
