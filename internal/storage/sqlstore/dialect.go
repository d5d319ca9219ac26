package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect isolates the differences between the supported databases.
// Queries are written once with ? placeholders.
type Dialect interface {
	// Name is the configured driver name ("sqlite" or "postgres").
	Name() string

	// DSN adapts the configured data source for sql.Open.
	DSN(raw string) string

	// Rebind rewrites ? placeholders for the target database.
	Rebind(query string) string

	// Configure applies pool settings after the database is opened.
	Configure(db *sql.DB)

	// IsUniqueViolation reports whether err came from a unique constraint.
	IsUniqueViolation(err error) bool
}

// DialectFor returns the dialect registered under driver.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3", "":
		return sqliteDialect{}, nil
	case "postgres", "postgresql":
		return postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

// sqliteParams are merged into every SQLite DSN. Keys the caller already
// sets are kept, except foreign_keys, which cascades depend on.
var sqliteParams = []struct {
	key, value string
	force      bool
}{
	{key: "_pragma=foreign_keys", value: "_pragma=foreign_keys(1)", force: true},
	{key: "_pragma=busy_timeout", value: "_pragma=busy_timeout(5000)"},
	{key: "_txlock", value: "_txlock=immediate"},
}

// DSN enables foreign keys and a busy timeout on every pooled connection and
// takes the write lock when a transaction begins.
func (sqliteDialect) DSN(raw string) string {
	base, query, _ := strings.Cut(raw, "?")
	var params []string
	if query != "" {
		params = strings.Split(query, "&")
	}
	for _, p := range sqliteParams {
		i := slices.IndexFunc(params, func(param string) bool {
			return strings.HasPrefix(strings.ToLower(unescape(param)), p.key)
		})
		switch {
		case i < 0:
			params = append(params, p.value)
		case p.force:
			params[i] = p.value
		}
	}
	return base + "?" + strings.Join(params, "&")
}

func unescape(param string) string {
	if v, err := url.QueryUnescape(param); err == nil {
		return v
	}
	return param
}

func (sqliteDialect) Rebind(query string) string { return query }

// Configure serializes access through one connection; SQLite allows a single
// writer anyway.
func (sqliteDialect) Configure(db *sql.DB) {
	db.SetMaxOpenConns(1)
}

func (sqliteDialect) IsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) DSN(raw string) string { return raw }

var placeholderRegexp = regexp.MustCompile(`\?`)

// Rebind converts ? placeholders to $1, $2, ...
func (postgresDialect) Rebind(query string) string {
	counter := 0
	return placeholderRegexp.ReplaceAllStringFunc(query, func(string) string {
		counter++
		return "$" + strconv.Itoa(counter)
	})
}

func (postgresDialect) Configure(db *sql.DB) {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
}

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

func (postgresDialect) IsUniqueViolation(err error) bool {
	var pe *pq.Error
	return errors.As(err, &pe) && pe.Code == uniqueViolation
}
