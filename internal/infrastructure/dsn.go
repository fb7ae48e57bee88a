package infrastructure

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/config"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Dialector picks the GORM dialector for the configured driver.
func Dialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return postgres.Open(PostgresDSN(cfg)), nil
	case config.DriverMySQL:
		dsn, err := MySQLDSN(cfg)
		if err != nil {
			return nil, err
		}
		return mysql.Open(dsn), nil
	case config.DriverSQLite:
		return sqlite.Open(SQLiteDSN(cfg)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", cfg.Driver)
	}
}

// PostgresDSN returns cfg.DSN when set, otherwise a keyword/value DSN built
// from the individual fields.
func PostgresDSN(cfg config.DatabaseConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)
}

// MySQLDSN converts the configured connection into a go-sql-driver DSN.
// mysql:// and mariadb:// URLs are accepted as well as native DSNs. The
// result always has parseTime enabled and loc=UTC.
func MySQLDSN(cfg config.DatabaseConfig) (string, error) {
	if cfg.DSN == "" {
		c := newMySQLConfig()
		c.User = cfg.User
		c.Passwd = cfg.Password
		c.Addr = cfg.Host + ":" + cfg.Port
		c.DBName = cfg.Name
		return c.FormatDSN(), nil
	}
	return toMySQLDSN(cfg.DSN)
}

func toMySQLDSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "mariadb://") || strings.HasPrefix(dsn, "mysql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}

		c := newMySQLConfig()
		if u.User != nil {
			c.User = u.User.Username()
			c.Passwd, _ = u.User.Password()
		}
		c.Addr = u.Host
		c.DBName = strings.TrimPrefix(u.Path, "/")
		if c.User == "" || c.Addr == "" || c.DBName == "" {
			return "", fmt.Errorf("incomplete mysql dsn (user/host/db required)")
		}
		return c.FormatDSN(), nil
	}

	c, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}
	c.ParseTime = true
	c.Loc = time.UTC
	return c.FormatDSN(), nil
}

func newMySQLConfig() *mysqldriver.Config {
	c := mysqldriver.NewConfig()
	c.Net = "tcp"
	c.ParseTime = true
	c.Loc = time.UTC
	c.InterpolateParams = true
	return c
}

// SQLiteDSN falls back to a database file named after cfg.Name.
func SQLiteDSN(cfg config.DatabaseConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	name := cfg.Name
	if name == "" {
		name = "segmena"
	}
	return "file:" + name + ".db?_foreign_keys=on"
}
