package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ModeDev     = "dev"
	ModeRelease = "release"

	DefaultPath = "config/config.yaml"
)

// パスワード類は YAML に書かせない（環境変数のみ）
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"` // mysql | sqlite3
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Username        string        `yaml:"user"`
	Password        string        `yaml:"-"`
	DBName          string        `yaml:"dbname"`
	Path            string        `yaml:"path"` // sqlite3 のみ
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

type Certs struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

type ServerConfig struct {
	BooksAddr    string   `yaml:"books_addr"`
	AuthAddr     string   `yaml:"auth_addr"`
	AllowOrigins []string `yaml:"allow_origins"`
}

type AuthConfig struct {
	Secret   string        `yaml:"-"`
	Required bool          `yaml:"required"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

type Config struct {
	Version     string         `yaml:"version"`
	Mode        string         `yaml:"mode"`
	DB          DatabaseConfig `yaml:"database"`
	Server      ServerConfig   `yaml:"server"`
	Auth        AuthConfig     `yaml:"auth"`
	Certificate Certs          `yaml:"certificate"`
}

// Load: YAML → 環境変数で上書き → デフォルト補完の順で読み込む。
// path が空なら YAML は読まない。auth.required は明示的に false にしない限り true。
func Load(path string) (*Config, error) {
	cfg := Config{Auth: AuthConfig{Required: true}}
	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("設定ファイルの読み込み失敗: %w", err)
		}
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return nil, fmt.Errorf("設定ファイルのパース失敗: %w", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Mode, "APP_MODE")
	setString(&c.DB.Driver, "DB_DRIVER")
	setString(&c.DB.Host, "DB_HOST")
	setString(&c.DB.Username, "DB_USER")
	setString(&c.DB.Password, "DB_PASSWORD")
	setString(&c.DB.DBName, "DB_NAME")
	setString(&c.DB.Path, "DB_PATH")
	setString(&c.Auth.Secret, "JWT_SECRET")
	setString(&c.Server.BooksAddr, "BOOKS_ADDR")
	setString(&c.Server.AuthAddr, "AUTH_ADDR")

	if v, ok := os.LookupEnv("DB_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid integer for DB_PORT: %w", err)
		}
		c.DB.Port = port
	}
	if v, ok := os.LookupEnv("AUTH_REQUIRED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid bool for AUTH_REQUIRED: %w", err)
		}
		c.Auth.Required = b
	}
	if v, ok := os.LookupEnv("CORS_ALLOW_ORIGINS"); ok {
		c.Server.AllowOrigins = splitList(v)
	}
	return nil
}

// 接続プールの既定値は旧システムの配分（合算が max_connections を超えないように）に合わせる
func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeRelease
	}
	if c.DB.Driver == "" {
		c.DB.Driver = "mysql"
	}
	if c.DB.Host == "" {
		c.DB.Host = "localhost"
	}
	if c.DB.Port == 0 {
		c.DB.Port = 3306
	}
	if c.DB.DBName == "" {
		c.DB.DBName = "library_db"
	}
	if c.DB.MaxOpenConns == 0 {
		c.DB.MaxOpenConns = 80
	}
	if c.DB.MaxIdleConns == 0 {
		c.DB.MaxIdleConns = 20
	}
	if c.DB.ConnMaxLifetime == 0 {
		c.DB.ConnMaxLifetime = 30 * time.Minute
	}
	if c.DB.ConnMaxIdleTime == 0 {
		c.DB.ConnMaxIdleTime = 5 * time.Minute
	}
	if c.Server.BooksAddr == "" {
		c.Server.BooksAddr = ":8080"
	}
	if c.Server.AuthAddr == "" {
		c.Server.AuthAddr = ":8081"
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
}

// ValidateDB: DB 接続に必要な値が揃っているか
func (c *Config) ValidateDB() error {
	if c.Mode != ModeDev && c.Mode != ModeRelease {
		return fmt.Errorf("mode must be %q or %q, got %q", ModeDev, ModeRelease, c.Mode)
	}
	switch c.DB.Driver {
	case "mysql":
		if c.DB.Username == "" {
			return errors.New("DB_USER environment variable (or database.user) is not set")
		}
		if c.DB.Password == "" {
			return errors.New("DB_PASSWORD environment variable is not set")
		}
	case "sqlite3":
		if c.DB.Path == "" {
			return errors.New("DB_PATH environment variable (or database.path) is not set")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.DB.Driver)
	}
	return nil
}

// ValidateAuth: トークンの発行・検証をするプロセスで呼ぶ
func (c *Config) ValidateAuth() error {
	if c.Auth.Secret == "" {
		return errors.New("JWT_SECRET environment variable is not set")
	}
	if c.Auth.TokenTTL < 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	return nil
}

// String はログ出力用。秘密情報は伏せる。
func (c *Config) String() string {
	target := c.DB.Path
	if c.DB.Driver == "mysql" {
		target = fmt.Sprintf("%s@%s:%d/%s", c.DB.Username, c.DB.Host, c.DB.Port, c.DB.DBName)
	}
	return fmt.Sprintf("Config{mode: %s, db: %s(%s), books: %s, auth: %s, auth_required: %t, secrets: *** (masked) ***}",
		c.Mode, c.DB.Driver, target, c.Server.BooksAddr, c.Server.AuthAddr, c.Auth.Required)
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
