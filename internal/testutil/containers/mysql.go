//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
)

// MySQL identifiers: letters, digits, underscore and dollar; no leading digit.
var tableNameRe = regexp.MustCompile(`^[a-zA-Z_$][a-zA-Z0-9_$]*$`)

// MySQLContainer is a running MySQL server plus a pooled connection to it.
type MySQLContainer struct {
	container *mysql.MySQLContainer
	db        *sql.DB
	dsn       string
}

// MySQLConfig configures NewMySQLContainer.
type MySQLConfig struct {
	Database string
	Username string
	Password string
	// Scripts run once after startup, in order.
	InitScripts []string
}

// DefaultMySQLConfig returns the settings used when NewMySQLContainer gets nil.
func DefaultMySQLConfig() MySQLConfig {
	return MySQLConfig{
		Database: "triggerkit_test",
		Username: "triggerkit",
		Password: "triggerkit",
	}
}

// NewMySQLContainer starts MySQL and waits until it accepts queries.
func NewMySQLContainer(ctx context.Context, config *MySQLConfig) (*MySQLContainer, error) {
	if config == nil {
		cfg := DefaultMySQLConfig()
		config = &cfg
	}

	opts := []testcontainers.ContainerCustomizer{
		mysql.WithDatabase(config.Database),
		mysql.WithUsername(config.Username),
		mysql.WithPassword(config.Password),
	}
	for _, script := range config.InitScripts {
		opts = append(opts, mysql.WithScripts(script))
	}

	ctr, err := mysql.Run(ctx, "mysql:8.0", opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start MySQL container: %w", err)
	}

	// gorm scans DATETIME columns into time.Time only with parseTime.
	dsn, err := ctr.ConnectionString(ctx, "parseTime=true", "charset=utf8mb4")
	if err != nil {
		_ = ctr.Terminate(context.Background())
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		_ = ctr.Terminate(context.Background())
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	err = RetryWithBackoff(ctx, 5, 200*time.Millisecond, 2*time.Second, func() error {
		return db.PingContext(ctx)
	})
	if err != nil {
		_ = db.Close()
		_ = ctr.Terminate(context.Background())
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &MySQLContainer{container: ctr, db: db, dsn: dsn}, nil
}

// DB returns the shared connection pool. Callers must not close it.
func (c *MySQLContainer) DB() *sql.DB {
	return c.db
}

// DSN returns a go-sql-driver DSN suitable for gorm's mysql dialector.
func (c *MySQLContainer) DSN() string {
	return c.dsn
}

// Truncate empties the named tables with foreign key checks disabled.
func (c *MySQLContainer) Truncate(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		if !tableNameRe.MatchString(table) {
			return fmt.Errorf("invalid table name: %q", table)
		}
	}

	// FOREIGN_KEY_CHECKS is per session, so pin a single connection.
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 0"); err != nil {
		return fmt.Errorf("failed to disable foreign key checks: %w", err)
	}
	defer func() { _, _ = conn.ExecContext(context.Background(), "SET FOREIGN_KEY_CHECKS = 1") }()

	for _, table := range tables {
		if _, err := conn.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE `%s`", table)); err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table, err)
		}
	}
	return nil
}

// Terminate closes the pool and removes the container.
func (c *MySQLContainer) Terminate(ctx context.Context) error {
	if c.db != nil {
		_ = c.db.Close()
		c.db = nil
	}
	if c.container == nil {
		return nil
	}
	if err := c.container.Terminate(ctx); err != nil {
		return fmt.Errorf("failed to terminate container: %w", err)
	}
	return nil
}
