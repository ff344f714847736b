package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Record store backends.
const (
	StoreBubble = "bubble"
	StoreSQL    = "sql"
	StoreMemory = "memory"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Store    StoreConfig
	Bubble   BubbleConfig
	DB       DBConfig
	OCR      OCRConfig
	S3       S3Config
	Model    ModelConfig
	Train    TrainConfig
	Auth     AuthConfig
	Security SecurityConfig
	CORS     CORSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
	Timezone     string        `mapstructure:"timezone"`
}

// Location returns the configured time zone, UTC when unset or unknown.
func (s *ServerConfig) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StoreConfig selects the record store backend.
type StoreConfig struct {
	Backend        string        `mapstructure:"backend"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxFieldLength int           `mapstructure:"max_field_length"`
}

// BubbleConfig holds the Bubble Data API settings.
type BubbleConfig struct {
	APIBase string `mapstructure:"api_base"`
	APIKey  string `mapstructure:"api_key"`
}

// DBConfig holds SQL record store connection settings.
type DBConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the connection string for the configured driver.
func (d *DBConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// OCRConfig holds OCR engine settings. Engines are tried in order.
type OCRConfig struct {
	Engines          []string      `mapstructure:"engines"`
	Language         string        `mapstructure:"language"`
	Timeout          time.Duration `mapstructure:"timeout"`
	Cooldown         time.Duration `mapstructure:"cooldown"`
	AllowRemoteFetch bool          `mapstructure:"allow_remote_fetch"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout"`
	MaxImageBytes    int64         `mapstructure:"max_image_bytes"`
	DocumentAI       DocumentAIConfig
	Azure            AzureOCRConfig
}

// DocumentAIConfig holds Google Document AI settings.
type DocumentAIConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	Location        string `mapstructure:"location"`
	ProcessorID     string `mapstructure:"processor_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// AzureOCRConfig holds Azure Computer Vision settings.
type AzureOCRConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Key      string `mapstructure:"key"`
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region         string `mapstructure:"region"`
	Bucket         string `mapstructure:"bucket"`
	Endpoint       string `mapstructure:"endpoint"`
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	ArchiveUploads bool   `mapstructure:"archive_uploads"`
}

// Enabled reports whether an S3 bucket is configured.
func (s *S3Config) Enabled() bool { return s.Bucket != "" }

// ModelConfig holds model version store settings.
type ModelConfig struct {
	Task      string        `mapstructure:"task"`
	ChunkSize int           `mapstructure:"chunk_size"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

// TrainConfig holds training settings.
type TrainConfig struct {
	MinSamples       int           `mapstructure:"min_samples"`
	PageSize         int           `mapstructure:"page_size"`
	Epochs           int           `mapstructure:"epochs"`
	Loss             string        `mapstructure:"loss"`
	RefitVocabulary  bool          `mapstructure:"refit_vocabulary"`
	ScheduleInterval time.Duration `mapstructure:"schedule_interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

// AuthConfig holds admin authentication settings.
type AuthConfig struct {
	AdminToken     string        `mapstructure:"admin_token"`
	AdminTokenHash string        `mapstructure:"admin_token_hash"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
	TokenExpiry    time.Duration `mapstructure:"token_expiry"`
	Issuer         string        `mapstructure:"issuer"`
}

// SecurityConfig holds webhook signature and idempotency settings.
type SecurityConfig struct {
	SignatureSecret string        `mapstructure:"signature_secret"`
	IdempotencyTTL  time.Duration `mapstructure:"idempotency_ttl"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration from environment variables with the RECEIPTAI_
// prefix. A .env file in the working directory is loaded first without
// overriding variables that are already set. The unprefixed names used by
// earlier deployments (BUBBLE_API_BASE, OCR_ENGINE, ...) are also honored.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("RECEIPTAI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.environment", EnvDevelopment)
	v.SetDefault("server.timezone", "")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// Store defaults
	v.SetDefault("store.backend", StoreMemory)
	v.SetDefault("store.timeout", "30s")
	v.SetDefault("store.max_field_length", 1_000_000)

	v.SetDefault("bubble.api_base", "")
	v.SetDefault("bubble.api_key", "")

	// DB defaults
	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "receiptai")
	v.SetDefault("db.password", "receiptai_secret")
	v.SetDefault("db.name", "receiptai")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.path", "receiptai.db")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// OCR defaults
	v.SetDefault("ocr.engines", "tesseract")
	v.SetDefault("ocr.language", "jpn+eng")
	v.SetDefault("ocr.timeout", "60s")
	v.SetDefault("ocr.cooldown", "1m")
	v.SetDefault("ocr.allow_remote_fetch", true)
	v.SetDefault("ocr.fetch_timeout", "20s")
	v.SetDefault("ocr.max_image_bytes", 20<<20)
	v.SetDefault("ocr.documentai.location", "us")

	// S3 defaults
	v.SetDefault("s3.region", "ap-northeast-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.archive_uploads", false)

	// Model defaults
	v.SetDefault("model.task", "receipt_category")
	v.SetDefault("model.chunk_size", 200_000)
	v.SetDefault("model.cache_ttl", time.Minute)

	// Train defaults
	v.SetDefault("train.min_samples", 1)
	v.SetDefault("train.page_size", 100)
	v.SetDefault("train.epochs", 5)
	v.SetDefault("train.loss", "log_loss")
	v.SetDefault("train.refit_vocabulary", false)
	v.SetDefault("train.schedule_interval", "0s")
	v.SetDefault("train.timeout", "10m")

	// Auth defaults
	v.SetDefault("auth.admin_token", "")
	v.SetDefault("auth.admin_token_hash", "")
	v.SetDefault("auth.jwt_secret", "change-me-in-production")
	v.SetDefault("auth.token_expiry", "1h")
	v.SetDefault("auth.issuer", "receiptai")

	// Security defaults
	v.SetDefault("security.signature_secret", "")
	v.SetDefault("security.idempotency_ttl", "10m")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Bind environment variables explicitly for nested keys. Later names are
	// fallbacks for deployments configured before the prefix existed.
	envBindings := map[string][]string{
		"server.port":                    {"RECEIPTAI_SERVER_PORT"},
		"server.read_timeout":            {"RECEIPTAI_SERVER_READ_TIMEOUT"},
		"server.write_timeout":           {"RECEIPTAI_SERVER_WRITE_TIMEOUT"},
		"server.environment":             {"RECEIPTAI_SERVER_ENVIRONMENT"},
		"server.timezone":                {"RECEIPTAI_SERVER_TIMEZONE", "TZ"},
		"log.level":                      {"RECEIPTAI_LOG_LEVEL"},
		"log.format":                     {"RECEIPTAI_LOG_FORMAT"},
		"store.backend":                  {"RECEIPTAI_STORE_BACKEND"},
		"store.timeout":                  {"RECEIPTAI_STORE_TIMEOUT"},
		"store.max_field_length":         {"RECEIPTAI_STORE_MAX_FIELD_LENGTH"},
		"bubble.api_base":                {"RECEIPTAI_BUBBLE_API_BASE", "BUBBLE_API_BASE"},
		"bubble.api_key":                 {"RECEIPTAI_BUBBLE_API_KEY", "BUBBLE_API_KEY"},
		"db.driver":                      {"RECEIPTAI_DB_DRIVER"},
		"db.host":                        {"RECEIPTAI_DB_HOST"},
		"db.port":                        {"RECEIPTAI_DB_PORT"},
		"db.user":                        {"RECEIPTAI_DB_USER"},
		"db.password":                    {"RECEIPTAI_DB_PASSWORD"},
		"db.name":                        {"RECEIPTAI_DB_NAME"},
		"db.sslmode":                     {"RECEIPTAI_DB_SSLMODE"},
		"db.path":                        {"RECEIPTAI_DB_PATH"},
		"db.max_open":                    {"RECEIPTAI_DB_MAX_OPEN"},
		"db.max_idle":                    {"RECEIPTAI_DB_MAX_IDLE"},
		"ocr.engines":                    {"RECEIPTAI_OCR_ENGINES", "OCR_ENGINE"},
		"ocr.language":                   {"RECEIPTAI_OCR_LANGUAGE", "OCR_LANGUAGE"},
		"ocr.timeout":                    {"RECEIPTAI_OCR_TIMEOUT"},
		"ocr.cooldown":                   {"RECEIPTAI_OCR_COOLDOWN"},
		"ocr.allow_remote_fetch":         {"RECEIPTAI_OCR_ALLOW_REMOTE_FETCH"},
		"ocr.fetch_timeout":              {"RECEIPTAI_OCR_FETCH_TIMEOUT"},
		"ocr.max_image_bytes":            {"RECEIPTAI_OCR_MAX_IMAGE_BYTES"},
		"ocr.documentai.project_id":      {"RECEIPTAI_OCR_DOCUMENTAI_PROJECT_ID"},
		"ocr.documentai.location":        {"RECEIPTAI_OCR_DOCUMENTAI_LOCATION"},
		"ocr.documentai.processor_id":    {"RECEIPTAI_OCR_DOCUMENTAI_PROCESSOR_ID"},
		"ocr.documentai.credentials_file": {"RECEIPTAI_OCR_DOCUMENTAI_CREDENTIALS_FILE", "GOOGLE_APPLICATION_CREDENTIALS"},
		"ocr.azure.endpoint":             {"RECEIPTAI_OCR_AZURE_ENDPOINT"},
		"ocr.azure.key":                  {"RECEIPTAI_OCR_AZURE_KEY"},
		"s3.region":                      {"RECEIPTAI_S3_REGION"},
		"s3.bucket":                      {"RECEIPTAI_S3_BUCKET"},
		"s3.endpoint":                    {"RECEIPTAI_S3_ENDPOINT"},
		"s3.access_key":                  {"RECEIPTAI_S3_ACCESS_KEY"},
		"s3.secret_key":                  {"RECEIPTAI_S3_SECRET_KEY"},
		"s3.archive_uploads":             {"RECEIPTAI_S3_ARCHIVE_UPLOADS"},
		"model.task":                     {"RECEIPTAI_MODEL_TASK"},
		"model.chunk_size":               {"RECEIPTAI_MODEL_CHUNK_SIZE"},
		"model.cache_ttl":                {"RECEIPTAI_MODEL_CACHE_TTL"},
		"train.min_samples":              {"RECEIPTAI_TRAIN_MIN_SAMPLES"},
		"train.page_size":                {"RECEIPTAI_TRAIN_PAGE_SIZE"},
		"train.epochs":                   {"RECEIPTAI_TRAIN_EPOCHS"},
		"train.loss":                     {"RECEIPTAI_TRAIN_LOSS"},
		"train.refit_vocabulary":         {"RECEIPTAI_TRAIN_REFIT_VOCABULARY"},
		"train.schedule_interval":        {"RECEIPTAI_TRAIN_SCHEDULE_INTERVAL"},
		"train.timeout":                  {"RECEIPTAI_TRAIN_TIMEOUT"},
		"auth.admin_token":               {"RECEIPTAI_AUTH_ADMIN_TOKEN", "ADMIN_TOKEN"},
		"auth.admin_token_hash":          {"RECEIPTAI_AUTH_ADMIN_TOKEN_HASH"},
		"auth.jwt_secret":                {"RECEIPTAI_AUTH_JWT_SECRET"},
		"auth.token_expiry":              {"RECEIPTAI_AUTH_TOKEN_EXPIRY"},
		"auth.issuer":                    {"RECEIPTAI_AUTH_ISSUER"},
		"security.signature_secret":      {"RECEIPTAI_SECURITY_SIGNATURE_SECRET", "BUBBLE_SIGNATURE_SECRET"},
		"security.idempotency_ttl":       {"RECEIPTAI_SECURITY_IDEMPOTENCY_TTL"},
		"cors.allowed_origins":           {"RECEIPTAI_CORS_ALLOWED_ORIGINS"},
	}
	for key, envs := range envBindings {
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}

	cfg := &Config{}

	// Cloud Run and similar platforms set PORT. Use it unless the prefixed
	// variable is set explicitly.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("RECEIPTAI_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
		Timezone:     strings.TrimSpace(v.GetString("server.timezone")),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.Store = StoreConfig{
		Backend:        strings.ToLower(v.GetString("store.backend")),
		Timeout:        v.GetDuration("store.timeout"),
		MaxFieldLength: v.GetInt("store.max_field_length"),
	}
	cfg.Bubble = BubbleConfig{
		APIBase: strings.TrimSpace(v.GetString("bubble.api_base")),
		APIKey:  strings.TrimSpace(v.GetString("bubble.api_key")),
	}
	cfg.DB = DBConfig{
		Driver:   strings.ToLower(v.GetString("db.driver")),
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		Path:     v.GetString("db.path"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.OCR = OCRConfig{
		Engines:          splitList(v.GetString("ocr.engines"), true),
		Language:         strings.TrimSpace(v.GetString("ocr.language")),
		Timeout:          v.GetDuration("ocr.timeout"),
		Cooldown:         v.GetDuration("ocr.cooldown"),
		AllowRemoteFetch: v.GetBool("ocr.allow_remote_fetch"),
		FetchTimeout:     v.GetDuration("ocr.fetch_timeout"),
		MaxImageBytes:    v.GetInt64("ocr.max_image_bytes"),
		DocumentAI: DocumentAIConfig{
			ProjectID:       v.GetString("ocr.documentai.project_id"),
			Location:        v.GetString("ocr.documentai.location"),
			ProcessorID:     v.GetString("ocr.documentai.processor_id"),
			CredentialsFile: v.GetString("ocr.documentai.credentials_file"),
		},
		Azure: AzureOCRConfig{
			Endpoint: v.GetString("ocr.azure.endpoint"),
			Key:      v.GetString("ocr.azure.key"),
		},
	}
	cfg.S3 = S3Config{
		Region:         v.GetString("s3.region"),
		Bucket:         v.GetString("s3.bucket"),
		Endpoint:       v.GetString("s3.endpoint"),
		AccessKey:      v.GetString("s3.access_key"),
		SecretKey:      v.GetString("s3.secret_key"),
		ArchiveUploads: v.GetBool("s3.archive_uploads"),
	}
	cfg.Model = ModelConfig{
		Task:      v.GetString("model.task"),
		ChunkSize: v.GetInt("model.chunk_size"),
		CacheTTL:  v.GetDuration("model.cache_ttl"),
	}
	cfg.Train = TrainConfig{
		MinSamples:       v.GetInt("train.min_samples"),
		PageSize:         v.GetInt("train.page_size"),
		Epochs:           v.GetInt("train.epochs"),
		Loss:             v.GetString("train.loss"),
		RefitVocabulary:  v.GetBool("train.refit_vocabulary"),
		ScheduleInterval: v.GetDuration("train.schedule_interval"),
		Timeout:          v.GetDuration("train.timeout"),
	}
	cfg.Auth = AuthConfig{
		AdminToken:     strings.TrimSpace(v.GetString("auth.admin_token")),
		AdminTokenHash: strings.TrimSpace(v.GetString("auth.admin_token_hash")),
		JWTSecret:      v.GetString("auth.jwt_secret"),
		TokenExpiry:    v.GetDuration("auth.token_expiry"),
		Issuer:         v.GetString("auth.issuer"),
	}
	cfg.Security = SecurityConfig{
		SignatureSecret: strings.TrimSpace(v.GetString("security.signature_secret")),
		IdempotencyTTL:  v.GetDuration("security.idempotency_ttl"),
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: splitList(v.GetString("cors.allowed_origins"), false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalizes and checks the configuration.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case StoreBubble:
		base, err := NormalizeBubbleBase(c.Bubble.APIBase)
		if err != nil {
			errs = append(errs, err)
		}
		c.Bubble.APIBase = base
		if c.Bubble.APIKey == "" {
			errs = append(errs, errors.New("bubble.api_key is required for the bubble store"))
		}
	case StoreSQL:
		if c.DB.Driver != "postgres" && c.DB.Driver != "sqlite" {
			errs = append(errs, fmt.Errorf("db.driver must be postgres or sqlite, got %q", c.DB.Driver))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store.backend %q", c.Store.Backend))
	}

	if len(c.OCR.Engines) == 0 {
		errs = append(errs, errors.New("ocr.engines must name at least one engine"))
	}
	for i, e := range c.OCR.Engines {
		// "local" is the engine name used by earlier deployments.
		if e == "local" {
			c.OCR.Engines[i] = "tesseract"
		}
	}
	if c.OCR.Language == "" {
		errs = append(errs, errors.New("ocr.language is required"))
	}
	if c.Model.ChunkSize <= 0 {
		errs = append(errs, errors.New("model.chunk_size must be positive"))
	}
	if c.Model.CacheTTL < 0 {
		errs = append(errs, errors.New("model.cache_ttl must not be negative"))
	}
	if c.Store.MaxFieldLength > 0 && c.Model.ChunkSize > c.Store.MaxFieldLength {
		errs = append(errs, fmt.Errorf("model.chunk_size %d exceeds store.max_field_length %d", c.Model.ChunkSize, c.Store.MaxFieldLength))
	}
	if c.Server.Environment != EnvDevelopment && c.Auth.AdminToken == "" && c.Auth.AdminTokenHash == "" {
		errs = append(errs, errors.New("auth.admin_token is required outside development"))
	}
	return errors.Join(errs...)
}

// NormalizeBubbleBase requires an https base URL and strips a trailing /obj
// so callers may pass either the API root or the collection root.
func NormalizeBubbleBase(raw string) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	if !strings.HasPrefix(base, "https://") {
		return "", fmt.Errorf("bubble.api_base must start with https://, got %q", raw)
	}
	base = strings.TrimSuffix(base, "/obj")
	return strings.TrimRight(base, "/"), nil
}

func splitList(s string, lower bool) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if lower {
			item = strings.ToLower(item)
		}
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
