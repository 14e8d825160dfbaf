package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/arborfold/reportql"
	"github.com/arborfold/reportql/internal/catalog"
	"github.com/arborfold/reportql/internal/export"
	"github.com/arborfold/reportql/internal/sqlprovider/duckprovider"
	"github.com/arborfold/reportql/internal/sqlprovider/pgprovider"
)

// Server holds everything the dataset HTTP surface needs: the dataset
// registry, the ambient config (page-size bounds, export defaults),
// and an optional S3 uploader for the export-to-storage endpoint.
type Server struct {
	registry *reportql.Registry
	config   *reportql.Config
	uploader export.Uploader
	mux      *http.ServeMux
}

// NewServer builds a Server wired to registry and config. uploader may
// be nil, in which case /datasets/{key}/export/s3 reports 400.
func NewServer(registry *reportql.Registry, config *reportql.Config, uploader export.Uploader) *Server {
	return &Server{registry: registry, config: config, uploader: uploader, mux: http.NewServeMux()}
}

// RegisterRoutes wires the dataset HTTP surface (§6/§6.1). All
// dataset-scoped routes funnel through one handler that does manual
// path parsing, matching the teacher's apiHandler idiom rather than
// introducing a router library (none exists anywhere in the example
// pack).
func (s *Server) RegisterRoutes() {
	s.mux.HandleFunc("/datasets", s.datasetHandler)
	s.mux.HandleFunc("/datasets/", s.datasetHandler)
}

// Start starts the HTTP server on the given port.
func (s *Server) Start(port string) error {
	zap.S().Infow("starting server", "port", port)
	return http.ListenAndServe(":"+port, s.mux)
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	config := reportql.DefaultConfig()
	config.Database.Host = getEnv("DB_HOST", config.Database.Host)
	config.Database.Port = getEnvInt("DB_PORT", config.Database.Port)
	config.Database.Database = getEnv("DB_NAME", config.Database.Database)
	config.Database.Username = getEnv("DB_USER", config.Database.Username)
	config.Database.Password = getEnv("DB_PASSWORD", config.Database.Password)
	config.Database.SSLMode = getEnv("DB_SSL_MODE", config.Database.SSLMode)
	config.Database.MaxConnections = getEnvInt("DB_MAX_CONNECTIONS", config.Database.MaxConnections)
	config.DuckDB.Path = getEnv("DUCKDB_PATH", config.DuckDB.Path)
	config.DuckDB.MaxOpenConns = getEnvInt("DUCKDB_MAX_OPEN_CONNS", config.DuckDB.MaxOpenConns)
	config.Query.DefaultPageSize = getEnvInt("QUERY_DEFAULT_PAGE_SIZE", config.Query.DefaultPageSize)
	config.Query.MaxPageSize = getEnvInt("QUERY_MAX_PAGE_SIZE", config.Query.MaxPageSize)
	config.Export.DefaultBucket = getEnv("EXPORT_DEFAULT_BUCKET", config.Export.DefaultBucket)
	config.Export.Region = getEnv("AWS_REGION", config.Export.Region)

	if err := config.Validate(); err != nil {
		sugar.Fatalf("invalid configuration: %v", err)
	}

	registry := reportql.NewRegistry()

	datasetDir := getEnv("DATASET_DIR", "./datasets")
	if entries, err := os.ReadDir(datasetDir); err == nil {
		pool, poolErr := createDatabasePoolFromConfig(config.Database)
		if poolErr != nil {
			sugar.Warnf("postgres pool unavailable, postgres-backed datasets will be skipped: %v", poolErr)
		} else {
			defer pool.Close()
		}

		duckDB, duckErr := duckprovider.Open(config.DuckDB.Path, config.DuckDB.MaxOpenConns)
		if duckErr != nil {
			sugar.Warnf("duckdb unavailable, duckdb-backed datasets will be skipped: %v", duckErr)
		} else {
			defer duckDB.Close()
		}

		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
				continue
			}
			if err := registerDatasetFile(registry, filepath.Join(datasetDir, entry.Name()), pool, duckDB); err != nil {
				sugar.Errorw("failed to register dataset", "file", entry.Name(), "error", err)
			}
		}
	} else {
		sugar.Infow("no dataset directory found, starting with an empty registry", "dir", datasetDir)
	}

	var uploader export.Uploader
	if awsCfg, err := awsconfig.LoadDefaultConfig(context.Background()); err == nil {
		uploader = manager.NewUploader(s3.NewFromConfig(awsCfg))
	} else {
		sugar.Warnf("aws config unavailable, export-to-storage disabled: %v", err)
	}

	server := NewServer(registry, config, uploader)
	server.RegisterRoutes()

	port := getEnv("PORT", "8080")
	if err := server.Start(port); err != nil {
		sugar.Fatalf("server error: %v", err)
	}
}

// datasetFile is the on-disk shape a dataset definition file decodes
// into: catalog column defs plus the backend/selectable it binds to.
type datasetFile struct {
	Key         string          `json:"key"`
	Label       string          `json:"label"`
	Description string          `json:"description"`
	Backend     string          `json:"backend"` // "postgres" | "duckdb"
	Selectable  string          `json:"selectable"`
	Pivot       bool            `json:"pivot"`
	Columns     json.RawMessage `json:"columns"`
}

func registerDatasetFile(registry *reportql.Registry, path string, pool *pgxpool.Pool, duckDB *sql.DB) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var def datasetFile
	if err := json.Unmarshal(raw, &def); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	columns, err := catalog.BuildColumnMetas(def.Columns)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	caps := reportql.DatasetCapabilities{Pivot: def.Pivot}

	switch def.Backend {
	case "postgres":
		if pool == nil {
			return fmt.Errorf("%s: postgres backend requested but no pool is available", path)
		}
		registry.Add(pgprovider.New(pool, def.Key, def.Label, def.Selectable, columns, caps))
	case "duckdb":
		if duckDB == nil {
			return fmt.Errorf("%s: duckdb backend requested but no connection is available", path)
		}
		registry.Add(duckprovider.New(duckDB, def.Key, def.Label, def.Selectable, columns, caps))
	default:
		return fmt.Errorf("%s: unknown backend %q", path, def.Backend)
	}
	return nil
}

// createDatabasePoolFromConfig creates a PostgreSQL connection pool
// from config, reused near-verbatim from this project's original
// entity-service bootstrap.
func createDatabasePoolFromConfig(config reportql.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		config.Username,
		config.Password,
		config.Host,
		config.Port,
		config.Database,
		config.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(config.MaxConnections)
	poolConfig.MinConns = int32(config.MaxIdleConns)
	poolConfig.MaxConnLifetime = config.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = config.ConnMaxIdleTime
	poolConfig.ConnConfig.ConnectTimeout = config.Timeout

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
