// Package relationaldb holds the configuration and contract for the
// optional relational index of redemption records.
package relationaldb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yieldprotocol/principald/internal/journal"
)

var ErrBadConfig = errors.New("relationaldb: bad configuration")

// Config describes a PostgreSQL connection.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	DefaultTimeout  time.Duration
}

// Validate checks required fields and fills pool defaults.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host is required", ErrBadConfig)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: dbname is required", ErrBadConfig)
	}
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 8
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 2
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = time.Hour
	}
	if c.DefaultTimeout == 0 {
		c.DefaultTimeout = 10 * time.Second
	}
	return nil
}

// ConnectionString builds a lib/pq connection string.
func (c *Config) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// RecordIndex is the write side of the relational index: redemption
// records flow in from the journal, SQL consumers read them out of
// band.
type RecordIndex interface {
	Open(ctx context.Context) error
	IndexRecord(ctx context.Context, rec journal.Record) error
	RecordsFrom(ctx context.Context, account string, limit int) ([]journal.Record, error)
	Count(ctx context.Context) (uint64, error)
	Close() error
}
