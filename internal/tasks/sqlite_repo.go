package tasks

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteRepo struct {
	db *sql.DB
}

func NewSQLiteRepo(dsn string) (*SQLiteRepo, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// Reasonable pragmas for an app server
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA synchronous=NORMAL;
		PRAGMA foreign_keys=ON;
	`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteRepo{db: db}, nil
}

func (r *SQLiteRepo) Close() error { return r.db.Close() }

func (r *SQLiteRepo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

// ApplyMigrations ensures the schema exists. Tags live in a junction table
// so a rename touches one row and deletes cascade.
func (r *SQLiteRepo) ApplyMigrations(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	priority TEXT NOT NULL,
	status TEXT NOT NULL,
	due_date TEXT,
	completed_at TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS tags (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT UNIQUE NOT NULL
);
CREATE TABLE IF NOT EXISTS task_tags (
	task_id INTEGER,
	tag_id INTEGER,
	PRIMARY KEY (task_id, tag_id),
	FOREIGN KEY (task_id) REFERENCES tasks (id) ON DELETE CASCADE,
	FOREIGN KEY (tag_id) REFERENCES tags (id) ON DELETE CASCADE
);
	`)
	return err
}

func (r *SQLiteRepo) Create(ctx context.Context, p CreateParams) (Task, error) {
	t, err := newTask(p, time.Now().UTC())
	if err != nil {
		return Task{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Task{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO tasks (title, description, priority, status, due_date, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, t.Title, t.Description, string(t.Priority), string(t.Status),
		encodeTime(t.DueDate), encodeTime(t.CompletedAt),
		t.CreatedAt.Format(time.RFC3339Nano), t.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Task{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Task{}, err
	}
	t.ID = id

	if err := replaceTags(ctx, tx, id, t.Tags); err != nil {
		return Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return Task{}, err
	}
	return t, nil
}

func (r *SQLiteRepo) Get(ctx context.Context, id int64) (Task, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, description, priority, status, due_date, completed_at, created_at, updated_at
		FROM tasks WHERE id = ?
	`, id)
	t, err := scanTask(row)
	if err != nil {
		return Task{}, err
	}
	tags, err := r.taskTags(ctx, id)
	if err != nil {
		return Task{}, err
	}
	t.Tags = tags
	return t, nil
}

func (r *SQLiteRepo) Update(ctx context.Context, id int64, p UpdateParams) (Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Task{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT id, title, description, priority, status, due_date, completed_at, created_at, updated_at
		FROM tasks WHERE id = ?
	`, id)
	t, err := scanTask(row)
	if err != nil {
		return Task{}, err
	}
	if p.Tags == nil {
		if t.Tags, err = tagsInTx(ctx, tx, id); err != nil {
			return Task{}, err
		}
	}

	t, err = applyUpdate(t, p, time.Now().UTC())
	if err != nil {
		return Task{}, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, priority = ?, status = ?,
			due_date = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`, t.Title, t.Description, string(t.Priority), string(t.Status),
		encodeTime(t.DueDate), encodeTime(t.CompletedAt),
		t.UpdatedAt.Format(time.RFC3339Nano), id); err != nil {
		return Task{}, err
	}

	if p.Tags != nil {
		if err := replaceTags(ctx, tx, id, t.Tags); err != nil {
			return Task{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return Task{}, err
	}
	return t, nil
}

func (r *SQLiteRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// List loads the full snapshot and lets the filter layer derive the view.
// Views depend on wall-clock comparisons that are simpler and better
// tested in one place than in SQL.
func (r *SQLiteRepo) List(ctx context.Context, f Filter) ([]Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, description, priority, status, due_date, completed_at, created_at, updated_at
		FROM tasks
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Task
	index := make(map[int64]int)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		index[t.ID] = len(out)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Single join query instead of one tag lookup per task.
	tagRows, err := r.db.QueryContext(ctx, `
		SELECT tt.task_id, t.name
		FROM tags t
		JOIN task_tags tt ON t.id = tt.tag_id
		ORDER BY t.name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var taskID int64
		var name string
		if err := tagRows.Scan(&taskID, &name); err != nil {
			return nil, err
		}
		if i, ok := index[taskID]; ok {
			out[i].Tags = append(out[i].Tags, name)
		}
	}
	if err := tagRows.Err(); err != nil {
		return nil, err
	}

	return f.Apply(out, time.Now()), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (Task, error) {
	var t Task
	var priority, status, created, updated string
	var due, completed sql.NullString
	err := row.Scan(&t.ID, &t.Title, &t.Description, &priority, &status, &due, &completed, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, err
	}
	t.Priority = Priority(priority)
	t.Status = Status(status)
	t.DueDate = decodeTime(due)
	t.CompletedAt = decodeTime(completed)
	if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
		t.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339Nano, updated); err == nil {
		t.UpdatedAt = ts
	}
	return t, nil
}

func encodeTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	return &ts
}

// replaceTags implements the delete-and-relink discipline: clear the
// junction rows for the task, upsert each tag name, link again.
func replaceTags(ctx context.Context, tx *sql.Tx, taskID int64, tags []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_tags WHERE task_id = ?`, taskID); err != nil {
		return err
	}
	for _, name := range tags {
		var tagID int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM tags WHERE name = ?`, name).Scan(&tagID)
		if errors.Is(err, sql.ErrNoRows) {
			res, err := tx.ExecContext(ctx, `INSERT INTO tags (name) VALUES (?)`, name)
			if err != nil {
				return err
			}
			if tagID, err = res.LastInsertId(); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO task_tags (task_id, tag_id) VALUES (?, ?)
		`, taskID, tagID); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRepo) taskTags(ctx context.Context, taskID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.name FROM tags t
		JOIN task_tags tt ON t.id = tt.tag_id
		WHERE tt.task_id = ?
		ORDER BY t.name ASC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tags = append(tags, name)
	}
	return tags, rows.Err()
}

func tagsInTx(ctx context.Context, tx *sql.Tx, taskID int64) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT t.name FROM tags t
		JOIN task_tags tt ON t.id = tt.tag_id
		WHERE tt.task_id = ?
		ORDER BY t.name ASC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tags = append(tags, name)
	}
	return tags, rows.Err()
}

// SQLiteFileDSN builds a DSN like file:/absolute/path?_pragma=busy_timeout(5000)
func SQLiteFileDSN(path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return "file:" + filepath.ToSlash(abs) + "?_pragma=busy_timeout(5000)", nil
}
