package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jimlawless/whereami"
	"github.com/joho/godotenv"
	"github.com/voyager-tech/go-backend/pkg/e"
	"github.com/voyager-tech/go-backend/pkg/logger"
)

var ErrIncorrectEnvVariable = errors.New("incorrect env variable")

type Config struct {
	Http    *HTTPConfig
	Db      *PGDBCfg
	Redis   *RedisCfg
	Kafka   *KafkaCfg
	Catalog *CatalogCfg
}

type KafkaCfg struct {
	Enabled           bool
	Topic             string
	Brokers           []string
	NetworkMode       string
	Partitions        int
	ReplicationFactor int
	OutboxBatchSize   int
	OutboxPoll        time.Duration
}

type HTTPConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PGDBCfg struct {
	Host        string
	Port        string
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int
	AutoMigrate bool // применять ожидающие миграции при старте сервиса
}

// DSN собирает строку подключения в формате key=value.
func (c *PGDBCfg) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

type RedisCfg struct {
	Enabled     bool
	Addr        string
	Password    string
	User        string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
	Timeout     time.Duration
	ProductTTL  time.Duration
}

// CatalogCfg — параметры ядра каталога.
type CatalogCfg struct {
	DefaultCurrency string // локальная валюта магазинов по умолчанию
	IncludeDeleted  bool   // показывать мягко удалённые товары в выдаче
	RecentLimit     int
	SearchLimit     int
	HistoryLimit    int
	MaxBatchSize    int
}

// Load безопасно загружает конфигурацию и возвращает ошибку в случае неудачи.
// Если рядом лежит .env, переменные из него подмешиваются к окружению процесса.
func Load(log logger.Logger) (*Config, error) {
	if err := godotenv.Load(envOr("ENV_FILE", ".env")); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		log.Debugf("no .env file found, using process environment")
	}

	r := &envReader{}
	c := &Config{
		Db:      readPGDBCfg(r),
		Http:    readHTTPConfig(r),
		Redis:   readRedisCfg(r),
		Kafka:   readKafkaCfg(r),
		Catalog: readCatalogCfg(r),
	}
	if r.err != nil {
		log.Errorf(r.err, "invalid configuration")
		return nil, e.Wrap(whereami.WhereAmI(), r.err)
	}

	return c, nil
}

func readPGDBCfg(r *envReader) *PGDBCfg {
	return &PGDBCfg{
		Host:        envOr("POSTGRES_HOST", "localhost"),
		Port:        envOr("POSTGRES_PORT", "5432"),
		User:        r.required("POSTGRES_USER"),
		Password:    r.required("POSTGRES_PASSWORD"),
		DBName:      r.required("POSTGRES_DB"),
		SSLMode:     envOr("POSTGRES_SSLMODE", "disable"),
		MaxConns:    r.int("POSTGRES_MAX_CONNS", 10),
		AutoMigrate: r.bool("POSTGRES_AUTO_MIGRATE", true),
	}
}

func readHTTPConfig(r *envReader) *HTTPConfig {
	return &HTTPConfig{
		Port:         envOr("HTTP_PORT", "8080"),
		ReadTimeout:  r.duration("HTTP_READ_TIMEOUT", 5*time.Second),
		WriteTimeout: r.duration("HTTP_WRITE_TIMEOUT", 10*time.Second),
		IdleTimeout:  r.duration("HTTP_IDLE_TIMEOUT", time.Minute),
	}
}

// readRedisCfg: без REDIS_ADDR кэш выключен.
func readRedisCfg(r *envReader) *RedisCfg {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return &RedisCfg{}
	}

	return &RedisCfg{
		Enabled:     true,
		Addr:        addr,
		Password:    os.Getenv("REDIS_PASSWORD"),
		User:        os.Getenv("REDIS_USER"),
		DB:          r.int("REDIS_DB", 0),
		MaxRetries:  r.int("REDIS_MAX_RETRIES", 3),
		DialTimeout: r.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		Timeout:     r.duration("REDIS_TIMEOUT", 3*time.Second),
		ProductTTL:  r.duration("REDIS_PRODUCT_TTL", 3*time.Minute),
	}
}

// readKafkaCfg: без KAFKA_BROKERS события не публикуются и в outbox не пишутся.
func readKafkaCfg(r *envReader) *KafkaCfg {
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		return &KafkaCfg{}
	}

	return &KafkaCfg{
		Enabled:           true,
		Brokers:           strings.Split(brokers, ","),
		Topic:             envOr("KAFKA_TOPIC", "catalog.ingested"),
		NetworkMode:       envOr("KAFKA_NETWORK_MODE", "tcp"),
		Partitions:        r.int("KAFKA_PARTITIONS", 3),
		ReplicationFactor: r.int("KAFKA_REPLICATION_FACTOR", 1),
		OutboxBatchSize:   r.int("OUTBOX_BATCH_SIZE", 10),
		OutboxPoll:        r.duration("OUTBOX_POLL_INTERVAL", 30*time.Second),
	}
}

func readCatalogCfg(r *envReader) *CatalogCfg {
	return &CatalogCfg{
		DefaultCurrency: strings.ToUpper(envOr("CATALOG_DEFAULT_CURRENCY", "MKD")),
		IncludeDeleted:  r.bool("CATALOG_INCLUDE_DELETED", false),
		RecentLimit:     r.int("CATALOG_RECENT_LIMIT", 20),
		SearchLimit:     r.int("CATALOG_SEARCH_LIMIT", 50),
		HistoryLimit:    r.int("CATALOG_HISTORY_LIMIT", 100),
		MaxBatchSize:    r.int("CATALOG_MAX_BATCH_SIZE", 1000),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

// envReader разбирает переменные окружения и запоминает первую ошибку,
// чтобы секции конфигурации собирались без проверки после каждого поля.
type envReader struct {
	err error
}

func (r *envReader) fail(key string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s: %w", ErrIncorrectEnvVariable, key, err)
	}
}

func (r *envReader) required(key string) string {
	v := os.Getenv(key)
	if v == "" {
		r.fail(key, errors.New("is required"))
	}

	return v
}

func (r *envReader) int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, err)
		return def
	}

	return n
}

func (r *envReader) bool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, err)
		return def
	}

	return b
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, err)
		return def
	}

	return d
}
