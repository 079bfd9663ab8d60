package ch

import (
	"context"
	"crypto/tls"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"

	"bookapp/internal/activity"
	"bookapp/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrations returns the goose migrations for the events table
func Migrations() fs.FS {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

var _ activity.Recorder = (*Recorder)(nil)

// Recorder writes book activity to ClickHouse
type Recorder struct {
	conn   clickhouse.Conn
	logger *zap.Logger
}

// Options returns the native-protocol connection options
func Options(host string, port int, database, user, password string, useTLS bool) *clickhouse.Options {
	options := &clickhouse.Options{
		Addr:     []string{fmt.Sprintf("%s:%d", host, port)},
		Protocol: clickhouse.Native,
		Auth: clickhouse.Auth{
			Database: database,
			Username: user,
			Password: password,
		},
	}
	if useTLS {
		options.TLS = &tls.Config{
			InsecureSkipVerify: false,
		}
	}
	return options
}

// NewRecorder connects to ClickHouse. The book_events table is managed by
// migrations.
func NewRecorder(ctx context.Context, options *clickhouse.Options, logger *zap.Logger) (*Recorder, error) {
	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	logger.Info("Connected to ClickHouse", zap.Strings("addr", options.Addr))
	return &Recorder{conn: conn, logger: logger}, nil
}

// Record stores a single event
func (r *Recorder) Record(ctx context.Context, event activity.Event) error {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	err := r.conn.Exec(ctx, `INSERT INTO book_events (at, kind, book_id, title, user_id) VALUES (?, ?, ?, ?, ?)`,
		event.At, string(event.Kind), event.BookID, event.Title, event.UserID)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// TopBooks returns the most active books for kind since the given time
func (r *Recorder) TopBooks(ctx context.Context, kind activity.Kind, limit int, since time.Time) ([]models.BookStat, error) {
	if since.IsZero() {
		since = time.Unix(0, 0)
	}
	rows, err := r.conn.Query(ctx, `
		SELECT book_id, argMax(title, at) AS title, count() AS events
		FROM book_events
		WHERE kind = ? AND at >= ?
		GROUP BY book_id
		ORDER BY events DESC, book_id ASC
		LIMIT ?`, string(kind), since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top books: %w", err)
	}
	defer rows.Close()

	var stats []models.BookStat
	for rows.Next() {
		var (
			stat  models.BookStat
			count uint64
		)
		if err := rows.Scan(&stat.BookID, &stat.Title, &count); err != nil {
			return nil, fmt.Errorf("failed to scan book stat: %w", err)
		}
		stat.Count = int(count)
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

// Close closes the connection
func (r *Recorder) Close() error {
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
