// Package kb reads the WiX knowledge base: a SQLite database with element,
// attribute and rule tables produced by the harvester. The store is opened
// read-only and never written.
package kb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/tliron/commonlog"

	"winter/internal/diag"
	"winter/internal/rules"
)

var log = commonlog.GetLogger("winter.kb")

// ErrNotFound is returned when an element does not exist in the store.
var ErrNotFound = errors.New("kb: not found")

// Store is a read-only handle on the knowledge base.
type Store struct {
	db   *sql.DB
	path string
}

// Element documents one schema element.
type Element struct {
	Name              string
	Namespace         string
	SinceVersion      string
	DeprecatedVersion string
	Description       string
	DocumentationURL  string
	Remarks           string
	Example           string
}

// Attribute documents one attribute of an element.
type Attribute struct {
	Name              string
	Type              string
	Required          bool
	DefaultValue      string
	Description       string
	SinceVersion      string
	DeprecatedVersion string
	EnumValues        []string
}

// Open opens the database at path in read-only mode.
func Open(path string) (*Store, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("kb path: %w", err)
	}
	dsn := (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs), RawQuery: "mode=ro&_query_only=1"}).String()
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open kb: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open kb %s: %w", path, err)
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Path() string { return s.path }

// EnabledRules returns the enabled rules as tier-2 rule definitions. Rows
// without a condition cannot be evaluated and are skipped.
func (s *Store) EnabledRules(ctx context.Context) ([]rules.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rule_id, category, severity, name, description, rationale,
		       condition, target_kind, target_name, tags, documentation_url
		FROM rules WHERE enabled = 1
		ORDER BY category, rule_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var out []rules.Rule
	for rows.Next() {
		var (
			id, category, severity                          string
			name, desc, rationale, cond, kind, target, tags sql.NullString
			docs                                            sql.NullString
		)
		if err := rows.Scan(&id, &category, &severity, &name, &desc, &rationale, &cond, &kind, &target, &tags, &docs); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		if strings.TrimSpace(cond.String) == "" {
			log.Debugf("skipping store rule %s without condition", id)
			continue
		}
		sev, err := diag.ParseSeverity(severity)
		if err != nil {
			sev = diag.SevWarning
		}
		description := desc.String
		if description == "" {
			description = rationale.String
		}
		out = append(out, rules.Rule{
			ID:          id,
			Title:       name.String,
			Description: description,
			Category:    strings.ToLower(category),
			Severity:    sev,
			Condition:   cond.String,
			Target:      rules.Target{Kind: kind.String, Name: target.String},
			Message:     firstNonEmpty(name.String, description, id),
			Tags:        splitTags(tags.String),
			DocsURL:     docs.String,
			Enabled:     true,
			Origin:      rules.OriginStore,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rules: %w", err)
	}
	return out, nil
}

// GetElement looks an element up by name, ignoring case.
func (s *Store) GetElement(ctx context.Context, name string) (*Element, error) {
	var (
		e                                                  Element
		ns, since, deprecated, desc, docURL, remarks, exam sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT name, namespace, since_version, deprecated_version,
		       description, documentation_url, remarks, example
		FROM elements WHERE name = ? COLLATE NOCASE`, name).
		Scan(&e.Name, &ns, &since, &deprecated, &desc, &docURL, &remarks, &exam)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query element %s: %w", name, err)
	}
	e.Namespace = ns.String
	e.SinceVersion = since.String
	e.DeprecatedVersion = deprecated.String
	e.Description = desc.String
	e.DocumentationURL = docURL.String
	e.Remarks = remarks.String
	e.Example = exam.String
	return &e, nil
}

// GetAttributes lists the attributes of an element, required first.
func (s *Store) GetAttributes(ctx context.Context, element string) ([]Attribute, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.name, a.attr_type, a.required, a.default_value,
		       a.description, a.since_version, a.deprecated_version
		FROM attributes a
		JOIN elements e ON a.element_id = e.id
		WHERE e.name = ? COLLATE NOCASE
		ORDER BY a.required DESC, a.name`, element)
	if err != nil {
		return nil, fmt.Errorf("failed to query attributes: %w", err)
	}
	defer rows.Close()

	var (
		out []Attribute
		ids []int64
	)
	for rows.Next() {
		var (
			id                                int64
			a                                 Attribute
			typ, def, desc, since, deprecated sql.NullString
		)
		if err := rows.Scan(&id, &a.Name, &typ, &a.Required, &def, &desc, &since, &deprecated); err != nil {
			return nil, fmt.Errorf("failed to scan attribute: %w", err)
		}
		a.Type = typ.String
		a.DefaultValue = def.String
		a.Description = desc.String
		a.SinceVersion = since.String
		a.DeprecatedVersion = deprecated.String
		out = append(out, a)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read attributes: %w", err)
	}
	rows.Close()

	for i := range out {
		if !strings.EqualFold(out[i].Type, "enum") {
			continue
		}
		vals, err := s.enumValues(ctx, ids[i])
		if err != nil {
			return nil, err
		}
		out[i].EnumValues = vals
	}
	return out, nil
}

func (s *Store) enumValues(ctx context.Context, attrID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT value FROM attribute_enum_values WHERE attribute_id = ? ORDER BY value`, attrID)
	if err != nil {
		return nil, fmt.Errorf("failed to query enum values: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan enum value: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetChildren lists the permitted child element names.
func (s *Store) GetChildren(ctx context.Context, element string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.name
		FROM element_children ec
		JOIN elements p ON ec.element_id = p.id
		JOIN elements c ON ec.child_id = c.id
		WHERE p.name = ? COLLATE NOCASE
		ORDER BY c.name`, element)
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func splitTags(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
