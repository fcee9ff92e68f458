package store

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/richard-senior/podds/internal/logger"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no row matches a primary key.
var ErrNotFound = errors.New("record not found")

// Persistable is implemented by every record type. Columns come from struct
// tags: `column:"name" dbtype:"TEXT" primary:"true" index:"true"`.
type Persistable interface {
	GetTableName() string
	GetPrimaryKey() map[string]any
}

// Optional hooks
type beforeSaver interface{ BeforeSave() error }
type afterSaver interface{ AfterSave() error }
type beforeDeleter interface{ BeforeDelete() error }

// Store owns one sqlite database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at path and creates every
// table the package knows about. ":memory:" gives a private in memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps ":memory:" databases alive and serialises writers
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	s := &Store{db: db, path: path}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("Database initialized successfully", path)
	return s, nil
}

// Migrate creates all tables and indexes that do not exist yet.
func (s *Store) Migrate() error {
	for _, obj := range []Persistable{&PosteriorRecord{}, &PredictionRecord{}, &MatchRecord{}} {
		if err := s.CreateTable(obj); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	return s.db
}

// column describes one persisted struct field.
type column struct {
	name    string
	dbType  string
	primary bool
	index   bool
	field   int
}

// columnsOf reads the persisted columns of a struct (or pointer to struct) type.
func columnsOf(t reflect.Type) []column {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	var cols []column
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Tag.Get("persist") == "false" {
			continue
		}
		dbType := f.Tag.Get("dbtype")
		if dbType == "" {
			continue
		}
		name := f.Tag.Get("column")
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		cols = append(cols, column{
			name:    name,
			dbType:  dbType,
			primary: f.Tag.Get("primary") == "true",
			index:   f.Tag.Get("index") == "true",
			field:   i,
		})
	}
	return cols
}

func names(cols []column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.name
	}
	return out
}

// generateCreateTableSQL generates CREATE TABLE SQL from struct tags
func generateCreateTableSQL(obj any, tableName string) string {
	var defs, primaryKeys []string
	for _, c := range columnsOf(reflect.TypeOf(obj)) {
		defs = append(defs, c.name+" "+c.dbType)
		if c.primary {
			primaryKeys = append(primaryKeys, c.name)
		}
	}
	if len(primaryKeys) > 0 {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(primaryKeys, ", ")))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", tableName, strings.Join(defs, ", "))
}

// generateIndexSQL generates index creation SQL from struct tags
func generateIndexSQL(obj any, tableName string) []string {
	var out []string
	for _, c := range columnsOf(reflect.TypeOf(obj)) {
		if c.index {
			out = append(out, fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)", tableName, c.name, tableName, c.name))
		}
	}
	return out
}

// CreateTable creates a table for the given persistable object using struct tags
func (s *Store) CreateTable(obj Persistable) error {
	tableName := obj.GetTableName()
	createSQL := generateCreateTableSQL(obj, tableName)
	logger.Debug("Creating table with SQL", createSQL)
	if _, err := s.db.Exec(createSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}
	for _, query := range generateIndexSQL(obj, tableName) {
		if _, err := s.db.Exec(query); err != nil {
			logger.Warn("Failed to create index", err)
		}
	}
	return nil
}

// buildWhereClause builds a WHERE clause from a primary key map
func buildWhereClause(primaryKey map[string]any) (string, []any) {
	keys := make([]string, 0, len(primaryKey))
	for k := range primaryKey {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	conditions := make([]string, len(keys))
	values := make([]any, len(keys))
	for i, k := range keys {
		conditions[i] = k + " = ?"
		values[i] = primaryKey[k]
	}
	return strings.Join(conditions, " AND "), values
}

// Exists checks if the object exists in the database
func (s *Store) Exists(obj Persistable) (bool, error) {
	tableName := obj.GetTableName()
	where, values := buildWhereClause(obj.GetPrimaryKey())
	var count int
	err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", tableName, where), values...).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check existence in %s: %w", tableName, err)
	}
	return count > 0, nil
}

// Save persists the object to the database (INSERT or UPDATE)
func (s *Store) Save(obj Persistable) error {
	if h, ok := obj.(beforeSaver); ok {
		if err := h.BeforeSave(); err != nil {
			return fmt.Errorf("before save hook failed: %w", err)
		}
	}
	exists, err := s.Exists(obj)
	if err != nil {
		return err
	}

	tableName := obj.GetTableName()
	cols := columnsOf(reflect.TypeOf(obj))
	v := reflect.ValueOf(obj).Elem()

	var query string
	var values []any
	if exists {
		var sets []string
		for _, c := range cols {
			if c.primary {
				continue
			}
			sets = append(sets, c.name+" = ?")
			values = append(values, v.Field(c.field).Interface())
		}
		where, whereValues := buildWhereClause(obj.GetPrimaryKey())
		values = append(values, whereValues...)
		query = fmt.Sprintf("UPDATE %s SET %s WHERE %s", tableName, strings.Join(sets, ", "), where)
	} else {
		placeholders := make([]string, len(cols))
		for i, c := range cols {
			placeholders[i] = "?"
			values = append(values, v.Field(c.field).Interface())
		}
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", tableName, strings.Join(names(cols), ", "), strings.Join(placeholders, ", "))
	}

	logger.Debug("Save SQL", query)
	if _, err := s.db.Exec(query, values...); err != nil {
		return fmt.Errorf("failed to save into %s: %w", tableName, err)
	}
	if h, ok := obj.(afterSaver); ok {
		if err := h.AfterSave(); err != nil {
			return fmt.Errorf("after save hook failed: %w", err)
		}
	}
	return nil
}

// Delete removes the object from the database
func (s *Store) Delete(obj Persistable) error {
	if h, ok := obj.(beforeDeleter); ok {
		if err := h.BeforeDelete(); err != nil {
			return fmt.Errorf("before delete hook failed: %w", err)
		}
	}
	tableName := obj.GetTableName()
	where, values := buildWhereClause(obj.GetPrimaryKey())
	if _, err := s.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s", tableName, where), values...); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", tableName, err)
	}
	return nil
}

// DeleteAll empties the table of obj.
func (s *Store) DeleteAll(obj Persistable) error {
	tableName := obj.GetTableName()
	if _, err := s.db.Exec("DELETE FROM " + tableName); err != nil {
		return fmt.Errorf("failed to clear %s: %w", tableName, err)
	}
	return nil
}

// scanTargets returns pointers to the persisted fields of obj, in column order.
func scanTargets(obj any, cols []column) []any {
	v := reflect.ValueOf(obj).Elem()
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = v.Field(c.field).Addr().Interface()
	}
	return out
}

// FindByPrimaryKey loads the row matching obj's primary key into obj.
func (s *Store) FindByPrimaryKey(obj Persistable) error {
	tableName := obj.GetTableName()
	cols := columnsOf(reflect.TypeOf(obj))
	where, values := buildWhereClause(obj.GetPrimaryKey())
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", strings.Join(names(cols), ", "), tableName, where)

	logger.Debug("FindByPrimaryKey SQL", query)
	err := s.db.QueryRow(query, values...).Scan(scanTargets(obj, cols)...)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", tableName, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to scan row from %s: %w", tableName, err)
	}
	return nil
}

// FindWhere returns every row of T's table matching the clause, which may
// include ORDER BY and LIMIT.
func FindWhere[T any, PT interface {
	*T
	Persistable
}](s *Store, whereClause string, args ...any) ([]PT, error) {
	var zero PT = new(T)
	tableName := zero.GetTableName()
	cols := columnsOf(reflect.TypeOf(zero))
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", strings.Join(names(cols), ", "), tableName, whereClause)

	logger.Debug("FindWhere SQL", query)
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", tableName, err)
	}
	defer rows.Close()

	var results []PT
	for rows.Next() {
		obj := PT(new(T))
		if err := rows.Scan(scanTargets(obj, cols)...); err != nil {
			return nil, fmt.Errorf("failed to scan row from %s: %w", tableName, err)
		}
		results = append(results, obj)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows from %s: %w", tableName, err)
	}
	return results, nil
}

// Count returns the number of rows in obj's table.
func (s *Store) Count(obj Persistable) (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM " + obj.GetTableName()).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", obj.GetTableName(), err)
	}
	return n, nil
}
