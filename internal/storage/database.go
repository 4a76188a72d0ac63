package storage

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/isdelr/hbnb-api/internal/models"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver ("pgx")
	_ "modernc.org/sqlite"             // SQLite driver ("sqlite")
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// openDB creates a new database connection pool.
func openDB(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverSQLite:
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		// WAL lets sessions read while another one writes. Write
		// transactions take the lock up front and queue on busy_timeout.
		dsn += sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// migrate creates one table per recognized kind if it does not exist yet.
func migrate(db *sql.DB) error {
	for _, k := range models.Kinds() {
		if _, err := db.Exec(createTableSQL(k)); err != nil {
			return fmt.Errorf("create table %s: %w", k.Plural(), err)
		}
	}
	return nil
}

func columnType(t models.FieldType) string {
	switch t {
	case models.Int:
		return "INTEGER"
	case models.Float:
		return "DOUBLE PRECISION"
	default:
		// String lists are stored as JSON text.
		return "TEXT"
	}
}

func createTableSQL(k models.Kind) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", k.Plural())
	b.WriteString("\tid VARCHAR(60) NOT NULL PRIMARY KEY,\n")
	b.WriteString("\tcreated_at TEXT NOT NULL,\n")
	b.WriteString("\tupdated_at TEXT NOT NULL")
	for _, f := range models.Schema(k) {
		fmt.Fprintf(&b, ",\n\t%s %s", f.Name, columnType(f.Type))
	}
	b.WriteString("\n)")
	return b.String()
}

// columns lists the columns of k's table in select/insert order.
func columns(k models.Kind) []string {
	cols := []string{"id", "created_at", "updated_at"}
	for _, f := range models.Schema(k) {
		cols = append(cols, f.Name)
	}
	return cols
}

func selectSQL(k models.Kind) string {
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns(k), ", "), k.Plural())
}

func upsertSQL(k models.Kind) string {
	cols := columns(k)
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	sets := make([]string, 0, len(cols)-1)
	for _, c := range cols[1:] {
		sets = append(sets, c+" = excluded."+c)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET %s",
		k.Plural(), strings.Join(cols, ", "), marks, strings.Join(sets, ", "))
}

// rebind rewrites ? placeholders as $1, $2, ... for PostgreSQL.
func rebind(driver, query string) string {
	if driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
