// Package sqlite is the persistent storage backend. One Store implements
// every storage port over a single SQLite database file.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/asub927/human-vs-ai-app/internal/domain"
)

type Store struct {
	db *sql.DB
}

// NewStore opens or creates a SQLite database at the given path.
func NewStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		name       TEXT NOT NULL,
		task_names TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_projects_user ON projects(user_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS tasks (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL,
		project_id   TEXT NOT NULL,
		project_name TEXT NOT NULL,
		name         TEXT NOT NULL,
		human_time   INTEGER NOT NULL,
		ai_time      INTEGER NOT NULL,
		created_at   TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks(user_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id, created_at);

	CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		title      TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id, updated_at DESC);

	CREATE TABLE IF NOT EXISTS messages (
		id         TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id),
		author     TEXT NOT NULL,
		text       TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, id);

	CREATE TABLE IF NOT EXISTS chat_history (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		role       TEXT NOT NULL,
		text       TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_history_user ON chat_history(user_id, id);
	`
	_, err := s.db.Exec(schema)
	return err
}

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ─── ProjectStore ───

func (s *Store) CreateProject(p *domain.Project) error {
	names, err := json.Marshal(p.TaskNames)
	if err != nil {
		return fmt.Errorf("encode task names: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO projects (id, user_id, name, task_names, created_at) VALUES (?, ?, ?, ?, ?)`,
		string(p.ID), string(p.UserID), p.Name, string(names), formatTime(p.CreatedAt),
	)
	return err
}

func (s *Store) GetProject(id domain.ProjectID) (*domain.Project, error) {
	row := s.db.QueryRow(
		`SELECT id, user_id, name, task_names, created_at FROM projects WHERE id = ?`,
		string(id),
	)
	return scanProject(row)
}

func (s *Store) ListProjectsByUser(userID domain.UserID) ([]*domain.Project, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, name, task_names, created_at FROM projects
		 WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		string(userID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdateProject(p *domain.Project) error {
	names, err := json.Marshal(p.TaskNames)
	if err != nil {
		return fmt.Errorf("encode task names: %w", err)
	}
	res, err := s.db.Exec(
		`UPDATE projects SET name = ?, task_names = ? WHERE id = ?`,
		p.Name, string(names), string(p.ID),
	)
	if err != nil {
		return err
	}
	return requireRow(res, domain.ErrProjectNotFound)
}

func (s *Store) DeleteProject(id domain.ProjectID) error {
	res, err := s.db.Exec(`DELETE FROM projects WHERE id = ?`, string(id))
	if err != nil {
		return err
	}
	return requireRow(res, domain.ErrProjectNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*domain.Project, error) {
	var (
		p         domain.Project
		id, user  string
		names     string
		createdAt string
	)
	if err := row.Scan(&id, &user, &p.Name, &names, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, err
	}
	p.ID = domain.ProjectID(id)
	p.UserID = domain.UserID(user)
	p.CreatedAt = parseTime(createdAt)
	if err := json.Unmarshal([]byte(names), &p.TaskNames); err != nil {
		return nil, fmt.Errorf("decode task names: %w", err)
	}
	return &p, nil
}

// ─── TaskStore ───

func (s *Store) CreateTask(t *domain.Task) error {
	_, err := s.db.Exec(
		`INSERT INTO tasks (id, user_id, project_id, project_name, name, human_time, ai_time, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(t.ID), string(t.UserID), string(t.ProjectID), t.ProjectName,
		t.Name, t.HumanTime, t.AITime, formatTime(t.CreatedAt),
	)
	return err
}

func (s *Store) GetTask(id domain.TaskID) (*domain.Task, error) {
	row := s.db.QueryRow(
		`SELECT id, user_id, project_id, project_name, name, human_time, ai_time, created_at
		 FROM tasks WHERE id = ?`,
		string(id),
	)
	return scanTask(row)
}

func (s *Store) ListTasksByUser(userID domain.UserID) ([]*domain.Task, error) {
	return s.queryTasks(
		`SELECT id, user_id, project_id, project_name, name, human_time, ai_time, created_at
		 FROM tasks WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		string(userID),
	)
}

func (s *Store) ListTasksByProject(projectID domain.ProjectID) ([]*domain.Task, error) {
	return s.queryTasks(
		`SELECT id, user_id, project_id, project_name, name, human_time, ai_time, created_at
		 FROM tasks WHERE project_id = ? ORDER BY created_at ASC, id ASC`,
		string(projectID),
	)
}

func (s *Store) UpdateTask(t *domain.Task) error {
	res, err := s.db.Exec(
		`UPDATE tasks SET name = ?, human_time = ?, ai_time = ? WHERE id = ?`,
		t.Name, t.HumanTime, t.AITime, string(t.ID),
	)
	if err != nil {
		return err
	}
	return requireRow(res, domain.ErrTaskNotFound)
}

func (s *Store) DeleteTask(id domain.TaskID) error {
	res, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, string(id))
	if err != nil {
		return err
	}
	return requireRow(res, domain.ErrTaskNotFound)
}

func (s *Store) queryTasks(query string, args ...any) ([]*domain.Task, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		t                 domain.Task
		id, user, project string
		createdAt         string
	)
	if err := row.Scan(&id, &user, &project, &t.ProjectName, &t.Name, &t.HumanTime, &t.AITime, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}
	t.ID = domain.TaskID(id)
	t.UserID = domain.UserID(user)
	t.ProjectID = domain.ProjectID(project)
	t.CreatedAt = parseTime(createdAt)
	return &t, nil
}

// ─── SessionStore ───

func (s *Store) CreateSession(sess *domain.Session) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, user_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		string(sess.ID), string(sess.UserID), sess.Title,
		formatTime(sess.CreatedAt), formatTime(sess.UpdatedAt),
	)
	return err
}

func (s *Store) UpdateSession(sess *domain.Session) error {
	res, err := s.db.Exec(
		`UPDATE sessions SET title = ?, updated_at = ? WHERE id = ?`,
		sess.Title, formatTime(sess.UpdatedAt), string(sess.ID),
	)
	if err != nil {
		return err
	}
	return requireRow(res, domain.ErrSessionNotFound)
}

func (s *Store) GetSession(id domain.SessionID) (*domain.Session, error) {
	var (
		sess                 domain.Session
		sid, user            string
		createdAt, updatedAt string
	)
	err := s.db.QueryRow(
		`SELECT id, user_id, title, created_at, updated_at FROM sessions WHERE id = ?`,
		string(id),
	).Scan(&sid, &user, &sess.Title, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	sess.ID = domain.SessionID(sid)
	sess.UserID = domain.UserID(user)
	sess.CreatedAt = parseTime(createdAt)
	sess.UpdatedAt = parseTime(updatedAt)
	return &sess, nil
}

func (s *Store) ListSessionsByUser(userID domain.UserID, limit int) ([]*domain.Session, error) {
	query := `SELECT id, user_id, title, created_at, updated_at FROM sessions
	          WHERE user_id = ? ORDER BY updated_at DESC`
	args := []any{string(userID)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		var (
			sess                 domain.Session
			sid, user            string
			createdAt, updatedAt string
		)
		if err := rows.Scan(&sid, &user, &sess.Title, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		sess.ID = domain.SessionID(sid)
		sess.UserID = domain.UserID(user)
		sess.CreatedAt = parseTime(createdAt)
		sess.UpdatedAt = parseTime(updatedAt)
		out = append(out, &sess)
	}
	return out, rows.Err()
}

func (s *Store) DeleteSession(id domain.SessionID) error {
	if _, err := s.db.Exec(`DELETE FROM messages WHERE session_id = ?`, string(id)); err != nil {
		return err
	}
	res, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, string(id))
	if err != nil {
		return err
	}
	return requireRow(res, domain.ErrSessionNotFound)
}

// ─── MessageStore ───

func (s *Store) AppendMessage(msg *domain.Message) error {
	_, err := s.db.Exec(
		`INSERT INTO messages (id, session_id, author, text, created_at) VALUES (?, ?, ?, ?, ?)`,
		string(msg.ID), string(msg.SessionID), string(msg.Author), msg.Text, formatTime(msg.CreatedAt),
	)
	return err
}

// GetMessagesBySession returns the last `limit` messages, oldest first.
// Message ids are ULIDs, so id order is append order.
func (s *Store) GetMessagesBySession(sessionID domain.SessionID, limit int) ([]*domain.Message, error) {
	query := `SELECT id, session_id, author, text, created_at FROM messages
	          WHERE session_id = ? ORDER BY id ASC`
	rows, err := s.db.Query(query, string(sessionID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Message
	for rows.Next() {
		var (
			msg                 domain.Message
			id, session, author string
			createdAt           string
		)
		if err := rows.Scan(&id, &session, &author, &msg.Text, &createdAt); err != nil {
			return nil, err
		}
		msg.ID = domain.MessageID(id)
		msg.SessionID = domain.SessionID(session)
		msg.Author = domain.Role(author)
		msg.CreatedAt = parseTime(createdAt)
		out = append(out, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// ─── HistoryStore ───

func (s *Store) AppendHistory(entry *domain.HistoryEntry) error {
	_, err := s.db.Exec(
		`INSERT INTO chat_history (id, user_id, role, text, created_at) VALUES (?, ?, ?, ?, ?)`,
		string(entry.ID), string(entry.UserID), string(entry.Role), entry.Text, formatTime(entry.CreatedAt),
	)
	return err
}

// ListHistoryByUser returns the last `limit` entries, oldest first.
func (s *Store) ListHistoryByUser(userID domain.UserID, limit int) ([]*domain.HistoryEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, role, text, created_at FROM chat_history
		 WHERE user_id = ? ORDER BY id ASC`,
		string(userID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.HistoryEntry
	for rows.Next() {
		var (
			e              domain.HistoryEntry
			id, user, role string
			createdAt      string
		)
		if err := rows.Scan(&id, &user, &role, &e.Text, &createdAt); err != nil {
			return nil, err
		}
		e.ID = domain.HistoryEntryID(id)
		e.UserID = domain.UserID(user)
		e.Role = domain.Role(role)
		e.CreatedAt = parseTime(createdAt)
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *Store) DeleteHistoryByUser(userID domain.UserID) error {
	_, err := s.db.Exec(`DELETE FROM chat_history WHERE user_id = ?`, string(userID))
	return err
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
