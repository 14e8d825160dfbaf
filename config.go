package reportql

import "time"

// Config aggregates every ambient setting this module needs, grouped
// by concern the way the rest of this codebase's configuration is
// grouped.
type Config struct {
	Database DatabaseConfig `json:"database"`
	DuckDB   DuckDBConfig   `json:"duckdb"`
	Query    QueryConfig    `json:"query"`
	Export   ExportConfig   `json:"export"`
	Logging  LoggingConfig  `json:"logging"`
}

// DatabaseConfig is the Postgres connection-pool configuration used by
// the Postgres SQL provider.
type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Database        string        `json:"database"`
	Username        string        `json:"username"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"sslMode"`
	MaxConnections  int           `json:"maxConnections"`
	MaxIdleConns    int           `json:"maxIdleConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime"`
	ConnMaxIdleTime time.Duration `json:"connMaxIdleTime"`
	Timeout         time.Duration `json:"timeout"`
}

// DuckDBConfig configures the embedded analytical store backing
// CSV-derived datasets.
type DuckDBConfig struct {
	Path          string `json:"path"` // ":memory:" or a file path
	MaxOpenConns  int    `json:"maxOpenConns"`
	ReadOnly      bool   `json:"readOnly"`
}

// QueryConfig bounds page sizes for grid/flat queries. Reporting grids
// paginate with larger windows than a CRUD entity list, hence the
// larger defaults than the teacher's entity-manager config.
type QueryConfig struct {
	DefaultPageSize int           `json:"defaultPageSize"`
	MaxPageSize     int           `json:"maxPageSize"`
	DefaultTimeout  time.Duration `json:"defaultTimeout"`
}

// ExportConfig holds export-to-storage settings (§6.1). cmd/server
// loads them from the environment; the export/s3 handler takes its
// bucket and object key from the request body and does not read them.
type ExportConfig struct {
	DefaultBucket string `json:"defaultBucket"`
	DefaultPrefix string `json:"defaultPrefix"`
	Region        string `json:"region"`
}

// LoggingConfig holds logging settings. cmd/server builds its zap
// logger with zap.NewProduction() and does not read these fields.
type LoggingConfig struct {
	Level             string `json:"level"`
	EnableQueryLogging bool  `json:"enableQueryLogging"`
}

// DefaultConfig returns sane defaults, analogous in shape and
// philosophy to this codebase's existing DefaultConfig.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "reportql",
			SSLMode:         "disable",
			MaxConnections:  25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 1 * time.Hour,
			ConnMaxIdleTime: 5 * time.Minute,
			Timeout:         30 * time.Second,
		},
		DuckDB: DuckDBConfig{
			Path:         ":memory:",
			MaxOpenConns: 1,
		},
		Query: QueryConfig{
			DefaultPageSize: 50,
			MaxPageSize:     500,
			DefaultTimeout:  30 * time.Second,
		},
		Export: ExportConfig{
			DefaultPrefix: "reports/",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks cross-field invariants, mirroring the validation
// style already used elsewhere in this codebase.
func (c *Config) Validate() error {
	if c.Query.DefaultPageSize <= 0 {
		return &ConfigError{Field: "query.defaultPageSize", Message: "must be greater than 0"}
	}
	if c.Query.MaxPageSize < c.Query.DefaultPageSize {
		return &ConfigError{Field: "query.maxPageSize", Message: "must be greater than or equal to defaultPageSize"}
	}
	if c.Database.MaxConnections <= 0 {
		return &ConfigError{Field: "database.maxConnections", Message: "must be greater than 0"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}
