package storage

import (
	"context"
	"fmt"
	"net"
	"path"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/rl1809/locofly/internal/config"
	"github.com/rl1809/locofly/internal/port"
)

// OpenDatabase creates the process-wide connection pool and verifies it answers.
func OpenDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}
	return db, nil
}

// NewRepository picks the adapter matching the pool's driver.
func NewRepository(db *sqlx.DB) (port.DatabaseRepository, error) {
	switch db.DriverName() {
	case config.DriverPostgres:
		return NewPostgresAdapter(db), nil
	case config.DriverMySQL:
		return NewMySQLAdapter(db), nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", db.DriverName())
	}
}

// DSN renders the connection string for the configured driver. When an
// instance connection name is set the connection goes over a unix socket.
func DSN(cfg config.DatabaseConfig) (string, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return postgresDSN(cfg), nil
	case config.DriverMySQL:
		return mysqlDSN(cfg), nil
	default:
		return "", fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
}

func postgresDSN(cfg config.DatabaseConfig) string {
	host, sslmode := cfg.Host, cfg.SSLMode
	if cfg.InstanceConnectionName != "" {
		host = path.Join(cfg.SocketDir, cfg.InstanceConnectionName)
		sslmode = "disable"
	}

	params := []string{
		"host=" + quotePQ(host),
		"port=" + strconv.Itoa(cfg.Port),
		"user=" + quotePQ(cfg.User),
		"dbname=" + quotePQ(cfg.DBName),
		"sslmode=" + quotePQ(sslmode),
	}
	if cfg.Password != "" {
		params = append(params, "password="+quotePQ(cfg.Password))
	}
	return strings.Join(params, " ")
}

// quotePQ quotes a value for lib/pq's key=value connection strings.
func quotePQ(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func mysqlDSN(cfg config.DatabaseConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	if cfg.InstanceConnectionName != "" {
		mc.Net = "unix"
		mc.Addr = path.Join(cfg.SocketDir, cfg.InstanceConnectionName)
	} else {
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	}
	return mc.FormatDSN()
}
