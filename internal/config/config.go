// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/magabrotheeeer/sublist/internal/lib/billing"
)

// Драйверы удалённого хранилища.
const (
	RemotePostgres = "postgres"
	RemoteSupabase = "supabase"
)

// Бэкенды локального снимка.
const (
	SnapshotFile  = "file"
	SnapshotRedis = "redis"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	Timezone                string `yaml:"timezone" env:"TIMEZONE" env-default:"Asia/Seoul"`
	WeekStart               string `yaml:"week_start" env:"WEEK_START" env-default:"Monday"`
	Remote                  string `yaml:"remote" env:"REMOTE" env-default:"postgres"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	Supabase                `yaml:"supabase"`
	RedisConnection         `yaml:"redis_connection"`
	Snapshot                `yaml:"snapshot"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	RabbitMQ                `yaml:"rabbitmq"`
	Push                    `yaml:"push"`
	Scheduler               `yaml:"scheduler"`
}

// Supabase структура для подключения к размещённому хранилищу и авторизации
type Supabase struct {
	SupabaseURL     string `yaml:"url" env:"SUPABASE_URL"`
	SupabaseAnonKey string `yaml:"anon_key" env:"SUPABASE_ANON_KEY"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:"localhost:8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	RateLimit   float64       `yaml:"rate_limit" env-default:"10"`
	RateBurst   int           `yaml:"rate_burst" env-default:"20"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	RedisAddress     string        `yaml:"addressredis"`
	RedisPassword    string        `yaml:"password" env:"REDIS_PASSWORD"`
	RedisUser        string        `yaml:"user"`
	RedisDB          int           `yaml:"db"`
	RedisMaxRetries  int           `yaml:"max_retries"`
	RedisDialTimeout time.Duration `yaml:"dial_timeout"`
	RedisTimeout     time.Duration `yaml:"timeoutredis"`
}

// Snapshot структура для настройки локального снимка состояния
type Snapshot struct {
	SnapshotBackend string `yaml:"backend" env-default:"file"`
	SnapshotPath    string `yaml:"path" env-default:"./data/snapshot.json"`
	SnapshotKey     string `yaml:"key" env-default:"sublist:snapshot"`
}

// JWTToken структура для проверки токенов доступа
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"1h"`
}

// RabbitMQ структура для настройки брокера уведомлений
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQExchange   string        `yaml:"exchange" env-default:"notifications"`
	RabbitMQQueue      string        `yaml:"queue" env-default:"notifications.push"`
	RabbitMQRoutingKey string        `yaml:"routing_key" env-default:"push"`
	RabbitMQRetries    int           `yaml:"retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// Push структура для настройки Web Push (VAPID)
type Push struct {
	VAPIDPublicKey  string        `yaml:"vapid_public_key" env:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string        `yaml:"vapid_private_key" env:"VAPID_PRIVATE_KEY"`
	VAPIDSubject    string        `yaml:"vapid_subject" env-default:"mailto:admin@sublist.app"`
	PushTTL         int           `yaml:"ttl" env-default:"86400"`
	RegisterTimeout time.Duration `yaml:"register_timeout" env-default:"2s"`
}

// Scheduler структура для настройки ежедневной рассылки
type Scheduler struct {
	SchedulerInterval time.Duration `yaml:"interval" env-default:"24h"`
}

// Load читает конфиг из файла path, переменные окружения имеют приоритет.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: file %s does not exist", op, path)
	}
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad функция для загрузки конфига из CONFIG_PATH, завершает процесс при ошибке
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

func (c *Config) validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	if _, err := billing.ParseWeekday(c.WeekStart); err != nil {
		return err
	}
	switch c.Remote {
	case RemotePostgres, RemoteSupabase:
	default:
		return fmt.Errorf("unknown remote driver %q", c.Remote)
	}
	switch c.SnapshotBackend {
	case SnapshotFile, SnapshotRedis:
	default:
		return fmt.Errorf("unknown snapshot backend %q", c.SnapshotBackend)
	}
	return nil
}

// Location возвращает часовой пояс расчёта дат оплаты.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WeekStartDay возвращает первый день недели.
func (c *Config) WeekStartDay() time.Weekday {
	d, err := billing.ParseWeekday(c.WeekStart)
	if err != nil {
		return time.Monday
	}
	return d
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"Timezone: %s\n"+
			"WeekStart: %s\n"+
			"Remote: %s\n"+
			"Supabase:\n"+
			"  URL: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  User: %s\n"+
			"  DB: %d\n"+
			"Snapshot:\n"+
			"  Backend: %s\n"+
			"  Path: %s\n"+
			"  Key: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"RabbitMQ:\n"+
			"  Exchange: %s\n"+
			"  Queue: %s\n"+
			"Scheduler:\n"+
			"  Interval: %s\n",
		c.Env,
		c.Timezone,
		c.WeekStart,
		c.Remote,
		c.SupabaseURL,
		c.RedisAddress,
		c.RedisUser,
		c.RedisDB,
		c.SnapshotBackend,
		c.SnapshotPath,
		c.SnapshotKey,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.RabbitMQExchange,
		c.RabbitMQQueue,
		c.SchedulerInterval,
	)
}
