package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/wricardo/warehouse-sim/sim/engine"
	"github.com/wricardo/warehouse-sim/sim/state"
)

// DefaultListLimit bounds List when no limit is given
const DefaultListLimit = 50

// timeLayout sorts lexically in chronological order
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// recordTimeout bounds asynchronous writes triggered by finished runs
const recordTimeout = 5 * time.Second

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id      TEXT NOT NULL,
	grid_id         TEXT NOT NULL,
	grid_name       TEXT NOT NULL,
	strategy        TEXT NOT NULL,
	total_time      INTEGER NOT NULL,
	total_recharges INTEGER NOT NULL,
	ended_at        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_ended_at ON runs (ended_at);
`

// Config holds the parameters for opening a run store
type Config struct {
	// Path is the SQLite database file. It is created if missing.
	Path string
	// PoolSize defaults to 4
	PoolSize int
	Logger   logrus.FieldLogger
}

// Run is one persisted run
type Run struct {
	ID             int64          `json:"id"`
	SessionID      string         `json:"session_id"`
	GridID         string         `json:"grid_id"`
	GridName       string         `json:"grid_name"`
	Strategy       state.Strategy `json:"strategy"`
	TotalTime      int            `json:"total_time"`
	TotalRecharges int            `json:"total_recharges"`
	EndedAt        time.Time      `json:"ended_at"`
}

// Store writes and reads run records
type Store struct {
	pool   *sqlitex.Pool
	path   string
	logger logrus.FieldLogger
}

// Open creates the connection pool
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("metrics: Path is required")
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 4
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    cfg.PoolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("metrics: opening %s: %w", cfg.Path, err)
	}

	logger.WithFields(logrus.Fields{"path": cfg.Path, "pool_size": cfg.PoolSize}).Info("run store opened")

	return &Store{
		pool:   pool,
		path:   cfg.Path,
		logger: logger.WithField("component", "metrics"),
	}, nil
}

// Record persists the final metrics of a run
func (s *Store) Record(ctx context.Context, sessionID string, m engine.FinalMetrics) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("metrics: take: %w", err)
	}
	defer s.pool.Put(conn)

	endedAt := m.EndedAt
	if endedAt.IsZero() {
		endedAt = time.Now()
	}

	err = sqlitex.Execute(conn, `INSERT INTO runs
		(session_id, grid_id, grid_name, strategy, total_time, total_recharges, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{
			sessionID,
			m.GridID,
			m.GridName,
			string(m.Strategy),
			m.TotalTime,
			m.TotalRecharges,
			endedAt.UTC().Format(timeLayout),
		},
	})
	if err != nil {
		return fmt.Errorf("metrics: insert run: %w", err)
	}
	return nil
}

// List returns the most recent runs, newest first
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("metrics: take: %w", err)
	}
	defer s.pool.Put(conn)

	runs := []Run{}
	err = sqlitex.Execute(conn, `SELECT id, session_id, grid_id, grid_name, strategy,
		total_time, total_recharges, ended_at
		FROM runs ORDER BY ended_at DESC, id DESC LIMIT ?`, &sqlitex.ExecOptions{
		Args: []any{limit},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			run, err := scanRun(stmt)
			if err != nil {
				return err
			}
			runs = append(runs, run)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("metrics: list runs: %w", err)
	}
	return runs, nil
}

// ObserverFor returns an engine observer that records the session's runs.
// Writes happen on the goroutine the engine uses to report the end of a run.
func (s *Store) ObserverFor(sessionID string) engine.Observer {
	return engine.ObserverFuncs{
		OnSimulationEnded: func(m engine.FinalMetrics) {
			ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
			defer cancel()
			if err := s.Record(ctx, sessionID, m); err != nil {
				s.logger.WithError(err).WithField("session", sessionID).Error("failed to record run")
				return
			}
			s.logger.WithFields(logrus.Fields{
				"session":    sessionID,
				"grid":       m.GridID,
				"total_time": m.TotalTime,
			}).Info("run recorded")
		},
	}
}

// Close closes all connections
func (s *Store) Close() error {
	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("metrics: closing %s: %w", s.path, err)
	}
	return nil
}

func scanRun(stmt *sqlite.Stmt) (Run, error) {
	endedAt, err := time.Parse(timeLayout, stmt.ColumnText(7))
	if err != nil {
		return Run{}, fmt.Errorf("metrics: parse ended_at: %w", err)
	}
	return Run{
		ID:             stmt.ColumnInt64(0),
		SessionID:      stmt.ColumnText(1),
		GridID:         stmt.ColumnText(2),
		GridName:       stmt.ColumnText(3),
		Strategy:       state.Strategy(stmt.ColumnText(4)),
		TotalTime:      stmt.ColumnInt(5),
		TotalRecharges: stmt.ColumnInt(6),
		EndedAt:        endedAt,
	}, nil
}

func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("metrics: %s: %w", pragma, err)
		}
	}
	return sqlitex.ExecuteScript(conn, schema, nil)
}
