package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/jointscope/pkg/model"
)

// Schema creates the tables a SQLite document uses.
const Schema = `
CREATE TABLE IF NOT EXISTS managers (
	id    INTEGER PRIMARY KEY,
	name  TEXT NOT NULL,
	class TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS nodes (
	id          INTEGER PRIMARY KEY,
	manager_id  INTEGER NOT NULL REFERENCES managers(id),
	parent_id   INTEGER REFERENCES nodes(id),
	name        TEXT NOT NULL,
	class       TEXT NOT NULL DEFAULT '',
	is_fragment INTEGER NOT NULL DEFAULT 0,
	ord         INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS fields (
	id      INTEGER PRIMARY KEY,
	node_id INTEGER NOT NULL REFERENCES nodes(id),
	name    TEXT NOT NULL,
	kind    TEXT NOT NULL DEFAULT 'string',
	value   TEXT NOT NULL DEFAULT '',
	flags   TEXT NOT NULL DEFAULT ''
);
`

// SQLiteStore provides access to a SQLite node-graph document.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens the database behind source. A read-only store refuses writes.
func OpenSQLite(source DataSource, readOnly bool) (*SQLiteStore, error) {
	if source.Type != SourceTypeSQLite {
		return nil, fmt.Errorf("source is not SQLite: %s", source.Type)
	}
	mode := "rwc"
	if readOnly {
		mode = "ro"
	}
	dsn := fmt.Sprintf("file:%s?mode=%s&_pragma=busy_timeout(5000)", source.Path, mode)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	return &SQLiteStore{db: db, path: source.Path}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// CountManagers returns the number of managers in the document.
func (s *SQLiteStore) CountManagers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM managers").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

type nodeRow struct {
	node      *model.Node
	managerID int64
	parentID  sql.NullInt64
	fragment  bool
}

// LoadManagers reads every manager with its nodes and fields.
func (s *SQLiteStore) LoadManagers(ctx context.Context) ([]*model.Manager, error) {
	managers, byID, err := s.loadManagerRows(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, manager_id, parent_id, name, class, is_fragment
		FROM nodes
		ORDER BY manager_id, ord, id`)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	var ordered []nodeRow
	nodes := make(map[int64]*model.Node)
	for rows.Next() {
		var r nodeRow
		var id int64
		var name, class string
		if err := rows.Scan(&id, &r.managerID, &r.parentID, &name, &class, &r.fragment); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		r.node = model.NewNode(name, class)
		r.node.ID = id
		nodes[id] = r.node
		ordered = append(ordered, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}

	// Attach once every node exists, so parents may appear after children.
	for _, r := range ordered {
		if r.parentID.Valid {
			if parent := nodes[r.parentID.Int64]; parent != nil {
				parent.AddFragment(r.node)
			}
			continue
		}
		m := byID[r.managerID]
		if m == nil {
			continue
		}
		if r.fragment {
			m.AddFragment(r.node)
		} else {
			m.AddNode(r.node)
		}
	}

	if err := s.loadFields(ctx, nodes); err != nil {
		return nil, err
	}
	return managers, nil
}

func (s *SQLiteStore) loadManagerRows(ctx context.Context) ([]*model.Manager, map[int64]*model.Manager, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, class FROM managers ORDER BY id")
	if err != nil {
		return nil, nil, fmt.Errorf("query managers: %w", err)
	}
	defer rows.Close()

	var out []*model.Manager
	byID := make(map[int64]*model.Manager)
	for rows.Next() {
		var id int64
		var name, class string
		if err := rows.Scan(&id, &name, &class); err != nil {
			return nil, nil, fmt.Errorf("scan manager: %w", err)
		}
		m := model.NewManager(name, class)
		m.ID = id
		byID[id] = m
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating managers: %w", err)
	}
	return out, byID, nil
}

func (s *SQLiteStore) loadFields(ctx context.Context, nodes map[int64]*model.Node) error {
	rows, err := s.db.QueryContext(ctx, "SELECT id, node_id, name, kind, value, flags FROM fields ORDER BY id")
	if err != nil {
		return fmt.Errorf("query fields: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, nodeID int64
		var name, kind, value, flags string
		if err := rows.Scan(&id, &nodeID, &name, &kind, &value, &flags); err != nil {
			return fmt.Errorf("scan field: %w", err)
		}
		n := nodes[nodeID]
		if n == nil {
			continue
		}
		k, err := model.ParseFieldKind(kind)
		if err != nil {
			return fmt.Errorf("field %d: %w", id, err)
		}
		f := model.NewField(name, k, model.ParseFlags(splitFlags(flags)), value)
		f.ID = id
		n.AddField(f)
	}
	return rows.Err()
}

func splitFlags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// UpdateFields writes the values of changed fields back in one transaction.
// Fields without a database id are skipped. It returns the number written.
func (s *SQLiteStore) UpdateFields(ctx context.Context, changed []*model.Field) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "UPDATE fields SET value = ? WHERE id = ?")
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	n := 0
	for _, f := range changed {
		if f == nil || f.ID == 0 {
			continue
		}
		if _, err := stmt.ExecContext(ctx, f.Value(), f.ID); err != nil {
			return 0, fmt.Errorf("update field %d: %w", f.ID, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// WriteManagers creates the schema and inserts ms, assigning database ids to
// every manager, node and field.
func (s *SQLiteStore) WriteManagers(ctx context.Context, ms []*model.Manager) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	for _, m := range ms {
		res, err := tx.ExecContext(ctx, "INSERT INTO managers (name, class) VALUES (?, ?)", m.Name, m.Class)
		if err != nil {
			return fmt.Errorf("insert manager %s: %w", m.Name, err)
		}
		if m.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		for i, n := range m.Fragments() {
			if err := insertNode(ctx, tx, m.ID, sql.NullInt64{}, n, true, i); err != nil {
				return err
			}
		}
		for i, n := range m.Nodes() {
			if err := insertNode(ctx, tx, m.ID, sql.NullInt64{}, n, false, i); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func insertNode(ctx context.Context, tx *sql.Tx, managerID int64, parent sql.NullInt64, n *model.Node, fragment bool, ord int) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO nodes (manager_id, parent_id, name, class, is_fragment, ord) VALUES (?, ?, ?, ?, ?, ?)",
		managerID, parent, n.Name, n.Class, fragment, ord)
	if err != nil {
		return fmt.Errorf("insert node %s: %w", n.Name, err)
	}
	if n.ID, err = res.LastInsertId(); err != nil {
		return err
	}
	for _, f := range n.Fields() {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO fields (node_id, name, kind, value, flags) VALUES (?, ?, ?, ?, ?)",
			n.ID, f.Name, string(f.Kind), f.Value(), strings.Join(f.Flags.Names(), ","))
		if err != nil {
			return fmt.Errorf("insert field %s: %w", f.Name, err)
		}
		if f.ID, err = res.LastInsertId(); err != nil {
			return err
		}
	}
	self := sql.NullInt64{Int64: n.ID, Valid: true}
	for i, c := range n.Fragments() {
		if err := insertNode(ctx, tx, managerID, self, c, true, i); err != nil {
			return err
		}
	}
	return nil
}
