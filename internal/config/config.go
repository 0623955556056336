package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Auth       AuthConfig
	Cache      CacheConfig
	Badges     BadgeConfig
	Cloudinary CloudinaryConfig
	Logging    LoggingConfig
	Security   SecurityConfig
	Features   FeatureConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port         string
	Environment  string
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	TLSEnabled   bool

	GracefulTimeout time.Duration
	MaxHeaderBytes  int
	ServerName      string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL                 string
	MaxOpenConns        int
	MaxIdleConns        int
	ConnMaxLifetime     time.Duration
	ConnMaxIdleTime     time.Duration
	SlowQueryThreshold  time.Duration
	EnableQueryLogging  bool
	EnableMetrics       bool
	HealthCheckInterval time.Duration
	MigrationsPath      string
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	BCryptCost int
	JWTSecret  string
	JWTExpiry  time.Duration

	MinPasswordLength int
}

// CacheConfig holds cache configuration. With no Redis URL the cache
// falls back to the in-process implementation.
type CacheConfig struct {
	RedisURL   string
	DefaultTTL time.Duration
	KeyPrefix  string
}

// BadgeConfig tunes the achievement pipeline
type BadgeConfig struct {
	// DedupeTTL is how long a processed completion stays in the watcher's
	// suppression set.
	DedupeTTL time.Duration

	// Listener reconnect backoff bounds for the completion change feed.
	WatcherMinBackoff time.Duration
	WatcherMaxBackoff time.Duration

	// SweepInterval is how often the watcher rescans for completed rows
	// that still owe a notification, independent of the change feed.
	SweepInterval time.Duration

	// StatsCacheTTL bounds staleness of the cached badge stats view.
	StatsCacheTTL time.Duration
}

// CloudinaryConfig holds Cloudinary configuration
type CloudinaryConfig struct {
	CloudName    string
	APIKey       string
	APISecret    string
	UploadFolder string
	MaxFileSize  int64

	AllowedFormats     []string
	MaxImageDimensions int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// SecurityConfig holds HTTP security configuration
type SecurityConfig struct {
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
	CORSMaxAge         time.Duration

	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// FeatureConfig holds feature flags
type FeatureConfig struct {
	EnableRegistration bool
	EnableFileUploads  bool
	EnableWebSocket    bool
	MaintenanceMode    bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	env := getEnv("GO_ENV", "development")
	if env != "production" {
		envFile := fmt.Sprintf(".env.%s", env)
		if _, err := os.Stat(envFile); err == nil {
			_ = godotenv.Load(envFile)
		} else {
			_ = godotenv.Load()
		}
	}

	config := &Config{
		Server:     loadServerConfig(env),
		Database:   loadDatabaseConfig(env),
		Auth:       loadAuthConfig(),
		Cache:      loadCacheConfig(),
		Badges:     loadBadgeConfig(),
		Cloudinary: loadCloudinaryConfig(),
		Logging:    loadLoggingConfig(env),
		Security:   loadSecurityConfig(env),
		Features:   loadFeatureConfig(env),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func loadServerConfig(env string) ServerConfig {
	config := ServerConfig{
		Port:         getEnv("PORT", "9000"),
		Environment:  env,
		Host:         getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
		TLSEnabled:   getBoolEnv("TLS_ENABLED", env == "production"),

		GracefulTimeout: getDurationEnv("GRACEFUL_TIMEOUT", 30*time.Second),
		MaxHeaderBytes:  getIntEnv("MAX_HEADER_BYTES", 1<<20),
		ServerName:      getEnv("SERVER_NAME", "PlateWise"),
	}

	switch env {
	case "production":
		config.TLSEnabled = true
	case "staging":
		config.GracefulTimeout = 20 * time.Second
	default:
		config.TLSEnabled = false
		config.GracefulTimeout = 10 * time.Second
	}

	return config
}

func loadDatabaseConfig(env string) DatabaseConfig {
	var defaultMaxOpen, defaultMaxIdle int
	var defaultConnLifetime time.Duration

	switch env {
	case "production":
		defaultMaxOpen = 50
		defaultMaxIdle = 20
		defaultConnLifetime = 15 * time.Minute
	case "staging":
		defaultMaxOpen = 25
		defaultMaxIdle = 10
		defaultConnLifetime = 10 * time.Minute
	default: // development
		defaultMaxOpen = 10
		defaultMaxIdle = 5
		defaultConnLifetime = 5 * time.Minute
	}

	return DatabaseConfig{
		URL:                 os.Getenv("DATABASE_URL"),
		MaxOpenConns:        getIntEnv("DB_MAX_OPEN_CONNS", defaultMaxOpen),
		MaxIdleConns:        getIntEnv("DB_MAX_IDLE_CONNS", defaultMaxIdle),
		ConnMaxLifetime:     getDurationEnv("DB_CONN_MAX_LIFETIME", defaultConnLifetime),
		ConnMaxIdleTime:     getDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		SlowQueryThreshold:  getDurationEnv("DB_SLOW_QUERY_THRESHOLD", 100*time.Millisecond),
		EnableQueryLogging:  getBoolEnv("DB_ENABLE_QUERY_LOGGING", env == "development"),
		EnableMetrics:       getBoolEnv("DB_ENABLE_METRICS", true),
		HealthCheckInterval: getDurationEnv("DB_HEALTH_CHECK_INTERVAL", 30*time.Second),
		MigrationsPath:      getEnv("DB_MIGRATIONS_PATH", "./migrations"),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		BCryptCost:        getIntEnv("BCRYPT_COST", 12),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		JWTExpiry:         getDurationEnv("JWT_EXPIRY", 24*time.Hour),
		MinPasswordLength: getIntEnv("MIN_PASSWORD_LENGTH", 8),
	}
}

func loadCacheConfig() CacheConfig {
	return CacheConfig{
		RedisURL:   getEnv("REDIS_URL", ""),
		DefaultTTL: getDurationEnv("CACHE_DEFAULT_TTL", 10*time.Minute),
		KeyPrefix:  getEnv("CACHE_KEY_PREFIX", "platewise"),
	}
}

func loadBadgeConfig() BadgeConfig {
	return BadgeConfig{
		DedupeTTL:         getDurationEnv("BADGE_DEDUPE_TTL", 5*time.Minute),
		WatcherMinBackoff: getDurationEnv("BADGE_WATCHER_MIN_BACKOFF", 2*time.Second),
		WatcherMaxBackoff: getDurationEnv("BADGE_WATCHER_MAX_BACKOFF", 30*time.Second),
		SweepInterval:     getDurationEnv("BADGE_SWEEP_INTERVAL", 5*time.Minute),
		StatsCacheTTL:     getDurationEnv("BADGE_STATS_CACHE_TTL", 1*time.Minute),
	}
}

func loadCloudinaryConfig() CloudinaryConfig {
	config := CloudinaryConfig{
		CloudName:    os.Getenv("CLOUDINARY_CLOUD_NAME"),
		APIKey:       os.Getenv("CLOUDINARY_API_KEY"),
		APISecret:    os.Getenv("CLOUDINARY_API_SECRET"),
		UploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "platewise/recipes"),
		MaxFileSize:  getInt64Env("CLOUDINARY_MAX_FILE_SIZE", 10*1024*1024),

		MaxImageDimensions: getIntEnv("CLOUDINARY_MAX_DIMENSIONS", 2048),
	}

	if formats := getEnv("CLOUDINARY_ALLOWED_FORMATS", "jpg,jpeg,png,webp"); formats != "" {
		config.AllowedFormats = strings.Split(formats, ",")
	}

	return config
}

func loadLoggingConfig(env string) LoggingConfig {
	return LoggingConfig{
		Level:  getEnv("LOG_LEVEL", getDefaultLogLevel(env)),
		Format: getEnv("LOG_FORMAT", getDefaultLogFormat(env)),
		Output: getEnv("LOG_OUTPUT", "stdout"),
	}
}

func loadSecurityConfig(env string) SecurityConfig {
	config := SecurityConfig{
		CORSMaxAge:        getDurationEnv("CORS_MAX_AGE", 24*time.Hour),
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", rateLimitForEnv(env)),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", 1*time.Minute),
	}

	switch env {
	case "production":
		config.CORSAllowedOrigins = splitEnv("CORS_ALLOWED_ORIGINS", "https://app.platewise.io")
		config.CORSAllowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
		config.CORSAllowedHeaders = []string{"Accept", "Authorization", "Content-Type"}

	case "staging":
		config.CORSAllowedOrigins = splitEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
		config.CORSAllowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
		config.CORSAllowedHeaders = []string{"*"}

	default: // development
		config.CORSAllowedOrigins = []string{"*"}
		config.CORSAllowedMethods = []string{"*"}
		config.CORSAllowedHeaders = []string{"*"}
	}

	return config
}

func loadFeatureConfig(env string) FeatureConfig {
	return FeatureConfig{
		EnableRegistration: getBoolEnv("ENABLE_REGISTRATION", true),
		EnableFileUploads:  getBoolEnv("ENABLE_FILE_UPLOADS", getEnv("CLOUDINARY_CLOUD_NAME", "") != ""),
		EnableWebSocket:    getBoolEnv("ENABLE_WEBSOCKET", true),
		MaintenanceMode:    getBoolEnv("MAINTENANCE_MODE", false),
	}
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database config: %w", err)
	}
	if err := c.Auth.Validate(c.Server.Environment); err != nil {
		return fmt.Errorf("auth config: %w", err)
	}
	if err := c.Badges.Validate(); err != nil {
		return fmt.Errorf("badge config: %w", err)
	}

	if c.Features.EnableFileUploads {
		if c.Cloudinary.CloudName == "" || c.Cloudinary.APIKey == "" {
			return fmt.Errorf("file uploads are enabled but cloudinary configuration is missing")
		}
	}

	if c.Server.Environment == "production" && strings.Contains(c.Database.URL, "sslmode=disable") {
		return fmt.Errorf("SSL must be enabled for database in production")
	}

	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if s.ReadTimeout <= 0 {
		return fmt.Errorf("ReadTimeout must be positive")
	}
	if s.WriteTimeout <= 0 {
		return fmt.Errorf("WriteTimeout must be positive")
	}
	return nil
}

// Validate validates database configuration
func (d *DatabaseConfig) Validate() error {
	if d.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if d.MaxOpenConns <= 0 {
		return fmt.Errorf("MaxOpenConns must be positive")
	}
	if d.MaxIdleConns < 0 {
		return fmt.Errorf("MaxIdleConns cannot be negative")
	}
	if d.MaxIdleConns > d.MaxOpenConns {
		return fmt.Errorf("MaxIdleConns cannot be greater than MaxOpenConns")
	}
	if d.ConnMaxLifetime <= 0 {
		return fmt.Errorf("ConnMaxLifetime must be positive")
	}
	if d.SlowQueryThreshold <= 0 {
		return fmt.Errorf("SlowQueryThreshold must be positive")
	}
	return nil
}

// Validate validates auth configuration
func (a *AuthConfig) Validate(environment string) error {
	if a.JWTSecret == "" && environment == "production" {
		return fmt.Errorf("JWT_SECRET must be set for production")
	}
	if a.BCryptCost < 4 || a.BCryptCost > 31 {
		return fmt.Errorf("BCryptCost must be between 4 and 31")
	}
	if a.MinPasswordLength < 6 {
		return fmt.Errorf("minimum password length must be at least 6")
	}
	return nil
}

// Validate validates the badge pipeline configuration
func (b *BadgeConfig) Validate() error {
	if b.DedupeTTL <= 0 {
		return fmt.Errorf("DedupeTTL must be positive")
	}
	if b.WatcherMinBackoff <= 0 || b.WatcherMaxBackoff < b.WatcherMinBackoff {
		return fmt.Errorf("watcher backoff bounds are invalid")
	}
	if b.SweepInterval <= 0 {
		return fmt.Errorf("SweepInterval must be positive")
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func splitEnv(key, defaultValue string) []string {
	return strings.Split(getEnv(key, defaultValue), ",")
}

func rateLimitForEnv(env string) int {
	switch env {
	case "production":
		return 100
	case "staging":
		return 200
	default:
		return 1000
	}
}

func getDefaultLogLevel(env string) string {
	switch env {
	case "production":
		return "info"
	default:
		return "debug"
	}
}

func getDefaultLogFormat(env string) string {
	switch env {
	case "production":
		return "json"
	default:
		return "console"
	}
}
