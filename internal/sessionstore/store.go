// Package sessionstore persists phone-menu sessions in SQLite. Sessions are
// durability for stateless request handlers, not concurrency control: the
// transport guarantees at most one in-flight request per session.
package sessionstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // sqlite driver

	dialerr "github.com/cryptodial/cryptodial/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	sessionId        TEXT PRIMARY KEY,
	phoneNumber      TEXT NOT NULL DEFAULT '',
	state            TEXT NOT NULL DEFAULT '',
	walletId         TEXT NOT NULL DEFAULT '',
	tempPin          TEXT NOT NULL DEFAULT '',
	tempEncryptedKey TEXT NOT NULL DEFAULT '',
	tempBlockchain   TEXT NOT NULL DEFAULT '',
	tempData         TEXT NOT NULL DEFAULT '',
	createdAt        INTEGER NOT NULL,
	expiresAt        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_expiry ON sessions (expiresAt);
`

// Session is one phone call's persisted state. Timestamps are epoch seconds.
type Session struct {
	SessionID        string `db:"sessionId"`
	PhoneNumber      string `db:"phoneNumber"`
	State            string `db:"state"`
	WalletID         string `db:"walletId"`
	TempPin          string `db:"tempPin"`
	TempEncryptedKey string `db:"tempEncryptedKey"`
	TempBlockchain   string `db:"tempBlockchain"`
	TempData         string `db:"tempData"`
	CreatedAt        int64  `db:"createdAt"`
	ExpiresAt        int64  `db:"expiresAt"`
}

// Temp decodes the flow-scoped scratch payload. An empty or malformed
// payload decodes to an empty map.
func (s *Session) Temp() map[string]string {
	out := make(map[string]string)
	if s.TempData != "" {
		_ = json.Unmarshal([]byte(s.TempData), &out)
	}
	return out
}

// EncodeTemp serializes a scratch payload for an Update.
func EncodeTemp(m map[string]string) *string {
	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	s := string(b)
	return &s
}

// Update is a partial session mutation. Nil fields retain prior values
// (merge semantics, never replace).
type Update struct {
	State            *string
	WalletID         *string
	TempPin          *string
	TempEncryptedKey *string
	TempBlockchain   *string
	TempData         *string
}

// StringPtr is a convenience for building Updates.
func StringPtr(s string) *string { return &s }

// Store is the SQLite-backed session store. The clock is injected so expiry
// behavior is testable.
type Store struct {
	db  *sqlx.DB
	ttl time.Duration
	now func() time.Time
}

// Open opens (or creates) the session database at path, applies the schema,
// and eagerly sweeps rows already past expiry. Pass ":memory:" for an
// ephemeral store.
func Open(path string, ttl time.Duration, clock func() time.Time) (*Store, error) {
	if clock == nil {
		clock = time.Now
	}

	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, dialerr.WrapWith(err, dialerr.ErrPersistence, "opening session database")
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, dialerr.WrapWith(err, dialerr.ErrPersistence, "applying session schema")
	}

	s := &Store{db: db, ttl: ttl, now: clock}
	if _, err := s.SweepExpired(context.Background(), clock()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Get returns the session, or ErrSessionExpired when it is absent or past
// expiry. An expired row is deleted on read.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	var sess Session
	err := s.db.GetContext(ctx, &sess,
		`SELECT * FROM sessions WHERE sessionId = ?`, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dialerr.ErrSessionExpired
	}
	if err != nil {
		return nil, dialerr.WrapWith(err, dialerr.ErrPersistence, "loading session")
	}

	if sess.ExpiresAt < s.now().Unix() {
		_ = s.Clear(ctx, sessionID)
		return nil, dialerr.ErrSessionExpired
	}
	return &sess, nil
}

// Upsert merges the update into the session, creating it if absent. Every
// write pushes expiry out by the configured TTL.
func (s *Store) Upsert(ctx context.Context, sessionID, phoneNumber string, upd Update) (*Session, error) {
	now := s.now()

	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		if !dialerr.Is(err, dialerr.ErrSessionExpired) {
			return nil, err
		}
		sess = &Session{
			SessionID:   sessionID,
			PhoneNumber: phoneNumber,
			CreatedAt:   now.Unix(),
		}
	}

	if upd.State != nil {
		sess.State = *upd.State
	}
	if upd.WalletID != nil {
		sess.WalletID = *upd.WalletID
	}
	if upd.TempPin != nil {
		sess.TempPin = *upd.TempPin
	}
	if upd.TempEncryptedKey != nil {
		sess.TempEncryptedKey = *upd.TempEncryptedKey
	}
	if upd.TempBlockchain != nil {
		sess.TempBlockchain = *upd.TempBlockchain
	}
	if upd.TempData != nil {
		sess.TempData = *upd.TempData
	}
	sess.ExpiresAt = now.Add(s.ttl).Unix()

	_, err = s.db.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO sessions
			(sessionId, phoneNumber, state, walletId, tempPin,
			 tempEncryptedKey, tempBlockchain, tempData, createdAt, expiresAt)
		VALUES
			(:sessionId, :phoneNumber, :state, :walletId, :tempPin,
			 :tempEncryptedKey, :tempBlockchain, :tempData, :createdAt, :expiresAt)`,
		sess)
	if err != nil {
		return nil, dialerr.WrapWith(err, dialerr.ErrPersistence, "saving session")
	}
	return sess, nil
}

// ClearSensitive blanks the staged PIN, key and scratch payload while
// keeping the session alive.
func (s *Store) ClearSensitive(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET tempPin = '', tempEncryptedKey = '', tempData = ''
		WHERE sessionId = ?`, sessionID)
	if err != nil {
		return dialerr.WrapWith(err, dialerr.ErrPersistence, "clearing sensitive session fields")
	}
	return nil
}

// Clear deletes the session outright.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE sessionId = ?`, sessionID); err != nil {
		return dialerr.WrapWith(err, dialerr.ErrPersistence, "deleting session")
	}
	return nil
}

// SweepExpired deletes every session past expiry at the given instant and
// returns how many were removed.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expiresAt < ?`, now.Unix())
	if err != nil {
		return 0, dialerr.WrapWith(err, dialerr.ErrPersistence, "sweeping expired sessions")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// StartSweeper runs a background expiry sweep every interval until the
// context is canceled.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = s.SweepExpired(ctx, s.now())
			}
		}
	}()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
