// Package store 以 SQLite（modernc，純 Go）保存 session、指令紀錄與模擬結果。
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zintix-labs/clawlab"
	"github.com/zintix-labs/clawlab/corefmt"
	"github.com/zintix-labs/clawlab/errs"
	"github.com/zintix-labs/clawlab/sdk/progress"
	"github.com/zintix-labs/clawlab/spec"
	"github.com/zintix-labs/clawlab/stats"
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// --------- Data models ---------

// SessionRecord 一個 session 的開局資訊與結算
type SessionRecord struct {
	ID          string     `json:"id"`
	MachineID   spec.MID   `json:"machine_id"`
	MachineName string     `json:"machine_name"`
	Player      string     `json:"player"`
	Seed        int64      `json:"seed"`
	OpenedAt    time.Time  `json:"opened_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	Coins       int        `json:"coins"`
	Points      int        `json:"points"`
	Plays       int        `json:"plays"`
	Wins        int        `json:"wins"`
	BestStreak  int        `json:"best_streak"`
	BestCombo   int        `json:"best_combo"`
	CoreB64U    string     `json:"core_b64u,omitempty"`
}

// SimRun 一次模擬的摘要；完整報表以 JSON 保存
type SimRun struct {
	ID            string            `json:"id"`
	MachineID     spec.MID          `json:"machine_id"`
	Strategy      string            `json:"strategy"`
	Seed          int64             `json:"seed"`
	Players       int               `json:"players"`
	Plays         int               `json:"plays"`
	WinRate       float64           `json:"win_rate"`
	PointsPerCoin float64           `json:"points_per_coin"`
	UsedMs        int64             `json:"used_ms"`
	CreatedAt     time.Time         `json:"created_at"`
	Report        *stats.StatReport `json:"report,omitempty"`
}

// LeaderboardEntry 已結束 session 的排行
type LeaderboardEntry struct {
	Rank       int       `json:"rank"`
	SessionID  string    `json:"session_id"`
	Player     string    `json:"player"`
	Points     int       `json:"points"`
	Plays      int       `json:"plays"`
	Wins       int       `json:"wins"`
	BestStreak int       `json:"best_streak"`
	ClosedAt   time.Time `json:"closed_at"`
}

// --------- Store ---------

type Store struct {
	db *sql.DB
}

// Open 開啟（或建立）資料庫並執行 migration。path 為 ":memory:" 時使用記憶體資料庫（同樣啟用 foreign key）。
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errs.Wrap(err, "store: open db")
	}
	db.SetMaxOpenConns(1) // SQLite is not concurrent for writes
	s := &Store{db: db}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewFromDB wraps an existing sql.DB.
func NewFromDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error { return s.db.Close() }

// --------- Migrations ---------

func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			machine_id INTEGER NOT NULL,
			machine_name TEXT NOT NULL,
			player TEXT NOT NULL DEFAULT '',
			seed INTEGER NOT NULL,
			opened_at TIMESTAMP NOT NULL,
			closed_at TIMESTAMP,
			coins INTEGER NOT NULL DEFAULT 0,
			points INTEGER NOT NULL DEFAULT 0,
			plays INTEGER NOT NULL DEFAULT 0,
			wins INTEGER NOT NULL DEFAULT 0,
			best_streak INTEGER NOT NULL DEFAULT 0,
			best_combo INTEGER NOT NULL DEFAULT 0,
			core_b64u TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_machine_points ON sessions(machine_id, points DESC);`,

		`CREATE TABLE IF NOT EXISTS journals (
			session_id TEXT PRIMARY KEY,
			commands INTEGER NOT NULL,
			blob BLOB NOT NULL,
			saved_at TIMESTAMP NOT NULL,
			FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE
		);`,

		`CREATE TABLE IF NOT EXISTS sim_runs (
			id TEXT PRIMARY KEY,
			machine_id INTEGER NOT NULL,
			strategy TEXT NOT NULL,
			seed INTEGER NOT NULL,
			players INTEGER NOT NULL,
			plays INTEGER NOT NULL,
			win_rate REAL NOT NULL,
			points_per_coin REAL NOT NULL,
			used_ms INTEGER NOT NULL,
			report_json TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sim_runs_machine ON sim_runs(machine_id, created_at DESC);`,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(err, "store: migrate")
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			tx.Rollback()
			return errs.Wrap(err, "store: migrate")
		}
	}
	if err := tx.Commit(); err != nil {
		return errs.Wrap(err, "store: migrate")
	}
	return nil
}

// --------- Sessions ---------

// SaveSession 開局時寫入；ID 為空時產生 uuid。
func (s *Store) SaveSession(ctx context.Context, r *SessionRecord) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.OpenedAt.IsZero() {
		r.OpenedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, machine_id, machine_name, player, seed, opened_at, coins)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, int64(r.MachineID), r.MachineName, r.Player, r.Seed, r.OpenedAt.UTC(), r.Coins,
	)
	if err != nil {
		return "", errs.Wrap(err, "store: save session")
	}
	return r.ID, nil
}

// FinishSession 寫入結算；session 不存在回傳 NotFound。
func (s *Store) FinishSession(ctx context.Context, id string, st progress.State, coreB64U string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET
			closed_at = ?, coins = ?, points = ?, plays = ?, wins = ?,
			best_streak = ?, best_combo = ?, core_b64u = ?
		 WHERE id = ?`,
		time.Now().UTC(), st.Coins, st.Points, st.Plays, st.Wins,
		st.BestStreak, st.BestCombo, coreB64U,
		id,
	)
	if err != nil {
		return errs.Wrap(err, "store: finish session")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFoundf("store: session %s not found", id)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*SessionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, machine_id, machine_name, player, seed, opened_at, closed_at,
			coins, points, plays, wins, best_streak, best_combo, core_b64u
		 FROM sessions WHERE id = ?`, id)
	var (
		r      SessionRecord
		mid    int64
		closed sql.NullTime
	)
	err := row.Scan(&r.ID, &mid, &r.MachineName, &r.Player, &r.Seed, &r.OpenedAt, &closed,
		&r.Coins, &r.Points, &r.Plays, &r.Wins, &r.BestStreak, &r.BestCombo, &r.CoreB64U)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFoundf("store: session %s not found", id)
	}
	if err != nil {
		return nil, errs.Wrap(err, "store: get session")
	}
	r.MachineID = spec.MID(mid)
	if closed.Valid {
		t := closed.Time
		r.ClosedAt = &t
	}
	return &r, nil
}

// --------- Journals ---------

// SaveJournal 以 zstd 壓縮的 JSON-lines 保存指令紀錄（重複保存會覆寫）
func (s *Store) SaveJournal(ctx context.Context, sessionID string, cmds []clawlab.Command) error {
	blob, err := corefmt.EncodeJournal(cmds)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO journals (session_id, commands, blob, saved_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET commands = excluded.commands, blob = excluded.blob, saved_at = excluded.saved_at`,
		sessionID, len(cmds), blob, time.Now().UTC(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY") {
			return errs.NotFoundf("store: session %s not found", sessionID)
		}
		return errs.Wrap(err, "store: save journal")
	}
	return nil
}

func (s *Store) LoadJournal(ctx context.Context, sessionID string) ([]clawlab.Command, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT blob FROM journals WHERE session_id = ?`, sessionID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFoundf("store: journal %s not found", sessionID)
	}
	if err != nil {
		return nil, errs.Wrap(err, "store: load journal")
	}
	return corefmt.DecodeJournal[clawlab.Command](blob)
}

// --------- Simulations ---------

func (s *Store) SaveSimRun(ctx context.Context, r *SimRun) (string, error) {
	if r.Report == nil || r.Report.Summary == nil {
		return "", errs.NewWarn("store: sim report is required")
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	sum := r.Report.Summary
	r.Players, r.Plays = sum.Players, sum.Plays
	r.WinRate, r.PointsPerCoin = sum.WinRate, sum.PointsPerCoin
	raw, err := json.Marshal(r.Report)
	if err != nil {
		return "", errs.Wrap(err, "store: encode sim report")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sim_runs (id, machine_id, strategy, seed, players, plays, win_rate, points_per_coin, used_ms, report_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, int64(r.MachineID), r.Strategy, r.Seed, r.Players, r.Plays, r.WinRate, r.PointsPerCoin, r.UsedMs, string(raw), r.CreatedAt.UTC(),
	)
	if err != nil {
		return "", errs.Wrap(err, "store: save sim run")
	}
	return r.ID, nil
}

// ListSimRuns 依時間新到舊；不含完整報表
func (s *Store) ListSimRuns(ctx context.Context, mid spec.MID, limit int) ([]SimRun, error) {
	limit = clampLimit(limit)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, machine_id, strategy, seed, players, plays, win_rate, points_per_coin, used_ms, created_at
		 FROM sim_runs WHERE machine_id = ? ORDER BY created_at DESC, id LIMIT ?`, int64(mid), limit)
	if err != nil {
		return nil, errs.Wrap(err, "store: list sim runs")
	}
	defer rows.Close()
	var out []SimRun
	for rows.Next() {
		var (
			r  SimRun
			id int64
		)
		if err := rows.Scan(&r.ID, &id, &r.Strategy, &r.Seed, &r.Players, &r.Plays, &r.WinRate, &r.PointsPerCoin, &r.UsedMs, &r.CreatedAt); err != nil {
			return nil, errs.Wrap(err, "store: scan sim run")
		}
		r.MachineID = spec.MID(id)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(err, "store: list sim runs")
	}
	return out, nil
}

// --------- Leaderboard ---------

// Leaderboard 某台機台已結束 session 的點數排行（同分時局數少者在前）
func (s *Store) Leaderboard(ctx context.Context, mid spec.MID, limit int) ([]LeaderboardEntry, error) {
	limit = clampLimit(limit)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, player, points, plays, wins, best_streak, closed_at
		 FROM sessions
		 WHERE machine_id = ? AND closed_at IS NOT NULL
		 ORDER BY points DESC, plays ASC, closed_at ASC
		 LIMIT ?`, int64(mid), limit)
	if err != nil {
		return nil, errs.Wrap(err, "store: leaderboard")
	}
	defer rows.Close()
	out := make([]LeaderboardEntry, 0, limit)
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.SessionID, &e.Player, &e.Points, &e.Plays, &e.Wins, &e.BestStreak, &e.ClosedAt); err != nil {
			return nil, errs.Wrap(err, "store: scan leaderboard")
		}
		e.Rank = len(out) + 1
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(err, "store: leaderboard")
	}
	return out, nil
}

func clampLimit(n int) int {
	if n <= 0 {
		return 10
	}
	return min(n, 100)
}
