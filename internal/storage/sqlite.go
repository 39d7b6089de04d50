package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/achimid/web-page-notify-api/internal/model"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db *sql.DB
}

// Open initializes the sqlite store, creating the file and schema as
// needed.
func Open(cfg Config) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const taskColumns = `id, url, selector, hit_time, only_changed, only_unique, is_dependency, owner_id, notifications, filter, last_execution`

func (s *sqliteStore) LoadEligibleTasks(ctx context.Context) ([]model.WatchTask, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE is_dependency = 0`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []model.WatchTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *sqliteStore) GetTask(ctx context.Context, id string) (model.WatchTask, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.WatchTask{}, ErrNotFound
	}
	return t, err
}

func (s *sqliteStore) SaveTask(ctx context.Context, t *model.WatchTask) error {
	notifications, err := json.Marshal(t.Notifications)
	if err != nil {
		return err
	}
	filter, err := json.Marshal(t.Filter)
	if err != nil {
		return err
	}
	lastExec, err := json.Marshal(t.LastExecution)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tasks(`+taskColumns+`) VALUES(?,?,?,?,?,?,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET
		   url=excluded.url, selector=excluded.selector, hit_time=excluded.hit_time,
		   only_changed=excluded.only_changed, only_unique=excluded.only_unique,
		   is_dependency=excluded.is_dependency, owner_id=excluded.owner_id,
		   notifications=excluded.notifications, filter=excluded.filter,
		   last_execution=excluded.last_execution`,
		t.ID, t.URL, t.Selector, t.Options.HitTime,
		boolInt(t.Options.OnlyChanged), boolInt(t.Options.OnlyUnique), boolInt(t.Options.IsDependency),
		t.OwnerID, string(notifications), string(filter), string(lastExec),
	)
	return err
}

func (s *sqliteStore) GetOwner(ctx context.Context, id string) (model.Owner, error) {
	var o model.Owner
	var notifications, filter string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, notifications, filter FROM owners WHERE id = ?`, id).
		Scan(&o.ID, &notifications, &filter)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Owner{}, ErrNotFound
	}
	if err != nil {
		return model.Owner{}, err
	}
	if err := json.Unmarshal([]byte(notifications), &o.Notifications); err != nil {
		return model.Owner{}, err
	}
	if err := json.Unmarshal([]byte(filter), &o.Filter); err != nil {
		return model.Owner{}, err
	}
	return o, nil
}

func (s *sqliteStore) SaveOwner(ctx context.Context, o *model.Owner) error {
	notifications, err := json.Marshal(o.Notifications)
	if err != nil {
		return err
	}
	filter, err := json.Marshal(o.Filter)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO owners(id, notifications, filter) VALUES(?,?,?)
		 ON CONFLICT(id) DO UPDATE SET
		   notifications=excluded.notifications, filter=excluded.filter`,
		o.ID, string(notifications), string(filter),
	)
	return err
}

func (s *sqliteStore) AppendExecution(ctx context.Context, e model.ExecutionResult) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO executions(id, task_id, url, success, hash_target, extracted_target, extracted_content, error_message, created_at)
		 VALUES(?,?,?,?,?,?,?,?,?)`,
		e.ID, e.TaskID, e.URL, boolInt(e.Success),
		e.HashTarget, e.ExtractedTarget, e.ExtractedContent, e.ErrorMessage,
		e.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) CountExecutionsByHash(ctx context.Context, url, hash, excludeID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM executions WHERE url = ? AND hash_target = ? AND id <> ?`,
		url, hash, excludeID).Scan(&n)
	return n, err
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(sc scanner) (model.WatchTask, error) {
	var t model.WatchTask
	var onlyChanged, onlyUnique, isDependency int
	var notifications, filter, lastExec string
	err := sc.Scan(
		&t.ID, &t.URL, &t.Selector, &t.Options.HitTime,
		&onlyChanged, &onlyUnique, &isDependency,
		&t.OwnerID, &notifications, &filter, &lastExec,
	)
	if err != nil {
		return model.WatchTask{}, err
	}
	t.Options.OnlyChanged = onlyChanged != 0
	t.Options.OnlyUnique = onlyUnique != 0
	t.Options.IsDependency = isDependency != 0
	if err := json.Unmarshal([]byte(notifications), &t.Notifications); err != nil {
		return model.WatchTask{}, err
	}
	if err := json.Unmarshal([]byte(filter), &t.Filter); err != nil {
		return model.WatchTask{}, err
	}
	if err := json.Unmarshal([]byte(lastExec), &t.LastExecution); err != nil {
		return model.WatchTask{}, err
	}
	return t, nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
