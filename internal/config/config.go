package config

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"net"
	neturl "net/url"
	"os"
	"strings"
	"time"

	domain "identity/backend/internal/domain/auth"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config centralises runtime configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	Database DatabaseConfig `koanf:"database"`
	JWT      JWTConfig      `koanf:"jwt"`
	Password PasswordConfig `koanf:"password"`
	Log      LogConfig      `koanf:"log"`
}

// HTTPConfig configures the listener and routing.
type HTTPConfig struct {
	Port            string        `koanf:"port"`
	BasePath        string        `koanf:"base_path"`
	AllowedOrigins  []string      `koanf:"allowed_origins"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig selects and addresses the user store.
type DatabaseConfig struct {
	Driver   string `koanf:"driver"`
	URL      string `koanf:"url"`
	MaxConns int32  `koanf:"max_conns"`
}

// JWTConfig holds token signing settings. Secret is read once at startup.
type JWTConfig struct {
	Secret string        `koanf:"secret"`
	Issuer string        `koanf:"issuer"`
	Expiry time.Duration `koanf:"expiry"`
}

// PasswordConfig tunes bcrypt.
type PasswordConfig struct {
	Cost    int `koanf:"cost"`
	Workers int `koanf:"workers"`
}

// LogConfig selects the log encoding and threshold.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// envKeys maps the environment variables the service honours onto config keys.
var envKeys = map[string]string{
	"PORT":                 "http.port",
	"HTTP_PORT":            "http.port",
	"HTTP_BASE_PATH":       "http.base_path",
	"CORS_ALLOWED_ORIGINS": "http.allowed_origins",
	"HTTP_READ_TIMEOUT":    "http.read_timeout",
	"HTTP_WRITE_TIMEOUT":   "http.write_timeout",
	"HTTP_IDLE_TIMEOUT":    "http.idle_timeout",
	"DATABASE_DRIVER":      "database.driver",
	"DATABASE_URL":         "database.url",
	"DATABASE_MAX_CONNS":   "database.max_conns",
	"JWT_SECRET":           "jwt.secret",
	"JWT_ISSUER":           "jwt.issuer",
	"JWT_EXPIRY":           "jwt.expiry",
	"BCRYPT_COST":          "password.cost",
	"PASSWORD_WORKERS":     "password.workers",
	"LOG_FORMAT":           "log.format",
	"LOG_LEVEL":            "log.level",
}

// Load builds the configuration from, in increasing precedence: built-in
// defaults, the YAML file at path (optional), a .env file in the working
// directory, the process environment and explicitly set flags.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(rawBytes(defaultsYAML), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, fmt.Errorf("loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}

	if cfg.Database.Driver == DriverPostgres {
		if cfg.Database.URL == "" {
			cfg.Database.URL = resolveDatabaseURL()
		} else {
			cfg.Database.URL = normalisePostgresScheme(cfg.Database.URL)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings the service cannot start with.
func (c Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("%w: set JWT_SECRET", domain.ErrMissingSecret)
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return errors.New("database configuration missing: provide DATABASE_URL or PG* env vars")
		}
	case DriverSQLite:
		if c.Database.URL == "" {
			return errors.New("database configuration missing: provide DATABASE_URL for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Password.Cost < bcrypt.MinCost || c.Password.Cost > bcrypt.MaxCost {
		return fmt.Errorf("password cost %d outside [%d, %d]", c.Password.Cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.JWT.Expiry <= 0 {
		return errors.New("jwt expiry must be positive")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c HTTPConfig) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func envValue(key, value string) (string, any) {
	target, ok := envKeys[key]
	if !ok || value == "" {
		return "", nil
	}
	// HTTP_PORT wins over the platform-provided PORT.
	if key == "PORT" && os.Getenv("HTTP_PORT") != "" {
		return "", nil
	}
	if target == "http.allowed_origins" {
		return target, splitCSV(value)
	}
	return target, value
}

// rawBytes serves an in-memory document to koanf.
type rawBytes []byte

func (b rawBytes) ReadBytes() ([]byte, error) {
	return b, nil
}

func (b rawBytes) Read() (map[string]any, error) {
	return nil, errors.New("raw bytes provider does not support Read")
}

func splitCSV(value string) []string {
	parts := []string{}
	for _, part := range strings.Split(value, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return []string{"*"}
	}
	return parts
}

func resolveDatabaseURL() string {
	for _, key := range []string{"DATABASE_URL", "POSTGRES_URL", "PGURL"} {
		if url := coerceDatabaseURL(os.Getenv(key)); url != "" {
			return url
		}
	}

	for _, key := range []string{"DATABASE_URL_FILE", "PGURL_FILE"} {
		if url := coerceDatabaseURL(readEnvFile(key)); url != "" {
			return url
		}
	}

	host := firstNonEmpty(os.Getenv("PGHOST"), os.Getenv("POSTGRES_HOST"), os.Getenv("DATABASE_HOST"))
	user := firstNonEmpty(os.Getenv("PGUSER"), os.Getenv("POSTGRES_USER"), os.Getenv("DATABASE_USER"))
	if host == "" || user == "" {
		return ""
	}
	password := firstNonEmpty(os.Getenv("PGPASSWORD"), os.Getenv("POSTGRES_PASSWORD"), os.Getenv("DATABASE_PASSWORD"))
	database := firstNonEmpty(os.Getenv("PGDATABASE"), os.Getenv("POSTGRES_DB"), os.Getenv("DATABASE_NAME"), user)
	port := firstNonEmpty(os.Getenv("PGPORT"), os.Getenv("POSTGRES_PORT"), os.Getenv("DATABASE_PORT"), "5432")
	sslMode := firstNonEmpty(os.Getenv("PGSSLMODE"), os.Getenv("POSTGRES_SSL_MODE"), "require")

	dsn := &neturl.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + database,
		User:   neturl.User(user),
	}
	if password != "" {
		dsn.User = neturl.UserPassword(user, password)
	}
	query := dsn.Query()
	query.Set("sslmode", sslMode)
	dsn.RawQuery = query.Encode()

	return dsn.String()
}

func normalisePostgresScheme(url string) string {
	if strings.HasPrefix(url, "postgresql://") {
		return "postgres://" + strings.TrimPrefix(url, "postgresql://")
	}
	return url
}

func coerceDatabaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://") {
		return normalisePostgresScheme(raw)
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func readEnvFile(key string) string {
	path := os.Getenv(key)
	if path == "" {
		return ""
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func loadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf(".env line %d: missing '='", lineNum)
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			return fmt.Errorf(".env line %d: empty key", lineNum)
		}

		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') || (value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		// The real environment wins over the file.
		if current, set := os.LookupEnv(key); set && current != "" {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf(".env line %d: %w", lineNum, err)
		}
	}
	return scanner.Err()
}
