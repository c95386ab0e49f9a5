package config

import "time"

// Config is the full runtime configuration, populated from the environment
type Config struct {
	App          AppConfig          `envPrefix:"APP_"`
	Log          LogConfig          `envPrefix:"LOG_"`
	Store        StoreConfig        `envPrefix:"STORE_"`
	Redis        RedisConfig        `envPrefix:"REDIS_"`
	Database     DatabaseConfig     `envPrefix:"DB_"`
	Memcached    MemcachedConfig    `envPrefix:"MEMCACHED_"`
	API          APIConfig          `envPrefix:"API_"`
	SQS          SQSConfig          `envPrefix:"SQS_"`
	Sync         SyncConfig         `envPrefix:"SYNC_"`
	Connectivity ConnectivityConfig `envPrefix:"CONNECTIVITY_"`
	HTTP         HTTPConfig         `envPrefix:"HTTP_"`
}

// AppConfig holds process-wide settings
type AppConfig struct {
	Name    string `env:"NAME" envDefault:"agrione-sync"`
	DataDir string `env:"DATA_DIR" envDefault:"./data"`
}

// LogConfig controls the global zerolog logger
type LogConfig struct {
	Level string `env:"LEVEL" envDefault:"info"`
	// Format is console or json
	Format string `env:"FORMAT" envDefault:"console"`
	// Traces prints OpenTelemetry spans to stdout
	Traces bool `env:"TRACES" envDefault:"false"`
}

// StoreConfig selects where the queue slot is persisted
type StoreConfig struct {
	// Driver is one of sqlite, database, redis, memcached, memory
	Driver string `env:"DRIVER" envDefault:"sqlite"`
	Key    string `env:"KEY" envDefault:"agrione-sync-queue"`
	Table  string `env:"TABLE" envDefault:"sync_slots"`
}

// RedisConfig holds configuration for Redis connection
type RedisConfig struct {
	Host     string `env:"HOST" envDefault:"127.0.0.1"`
	Port     string `env:"PORT" envDefault:"6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// Addr returns host:port
func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// DatabaseConfig holds configuration for SQL database connection
type DatabaseConfig struct {
	// Connection is one of sqlite, mysql, pgsql
	Connection string `env:"CONNECTION" envDefault:"sqlite"`
	Host       string `env:"HOST" envDefault:"127.0.0.1"`
	Port       string `env:"PORT" envDefault:"3306"`
	Database   string `env:"DATABASE" envDefault:"agrione"`
	Username   string `env:"USERNAME"`
	Password   string `env:"PASSWORD"`
	// Path is the sqlite file, defaults to <DATA_DIR>/agrione.db
	Path string `env:"PATH"`
}

// MemcachedConfig holds memcached server addresses
type MemcachedConfig struct {
	Servers []string `env:"SERVERS" envSeparator:"," envDefault:"127.0.0.1:11211"`
}

// APIConfig describes the remote AgriOne REST API
type APIConfig struct {
	BaseURL   string        `env:"BASE_URL" envDefault:"http://localhost:8000/api/v1"`
	Token     string        `env:"TOKEN"`
	Transport string        `env:"TRANSPORT" envDefault:"http"`
	Timeout   time.Duration `env:"TIMEOUT" envDefault:"20s"`
}

// SQSConfig holds configuration for SQS connection
type SQSConfig struct {
	Region   string `env:"REGION" envDefault:"us-east-1"`
	QueueUrl string `env:"QUEUE_URL"`
	// Profile is an optional AWS profile
	Profile string `env:"PROFILE"`
}

// SyncConfig tunes the sync pass
type SyncConfig struct {
	MaxAttempts   int           `env:"MAX_ATTEMPTS" envDefault:"3"`
	ActionTimeout time.Duration `env:"ACTION_TIMEOUT" envDefault:"30s"`
	Interval      string        `env:"INTERVAL" envDefault:"@every 1m"`
	OnEnqueue     bool          `env:"ON_ENQUEUE" envDefault:"true"`
	DropPermanent bool          `env:"DROP_PERMANENT" envDefault:"false"`
	// Lock is one of none, redis, database
	Lock string `env:"LOCK" envDefault:"none"`
	// RecordDropped is one of none, redis, database
	RecordDropped string `env:"RECORD_DROPPED" envDefault:"none"`
	DroppedTable  string `env:"DROPPED_TABLE" envDefault:"dropped_actions"`
}

// ConnectivityConfig configures the health prober
type ConnectivityConfig struct {
	// HealthURL defaults to the API base URL
	HealthURL string        `env:"HEALTH_URL"`
	Interval  string        `env:"INTERVAL" envDefault:"@every 10s"`
	Timeout   time.Duration `env:"TIMEOUT" envDefault:"5s"`
}

// HTTPConfig configures the local control API
type HTTPConfig struct {
	Addr    string `env:"ADDR" envDefault:"127.0.0.1:8787"`
	Enabled bool   `env:"ENABLED" envDefault:"true"`
}
