// Package postgres implements the interface for PostgreSQL.
package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/tarancss/wadp/lib/store"
)

// schema is created when connecting.
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	client_id     TEXT PRIMARY KEY,
	verifier      TEXT NOT NULL,
	verifier_id   TEXT NOT NULL,
	type_of_login TEXT NOT NULL,
	email         TEXT NOT NULL DEFAULT '',
	name          TEXT NOT NULL DEFAULT '',
	curve         TEXT NOT NULL,
	idx           BIGINT NOT NULL,
	key           BYTEA NOT NULL,
	id_token      TEXT NOT NULL,
	expires       TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS events (
	id          BIGSERIAL PRIMARY KEY,
	client_id   TEXT NOT NULL,
	name        TEXT NOT NULL,
	adapter     TEXT NOT NULL DEFAULT '',
	reconnected BOOLEAN NOT NULL DEFAULT FALSE,
	error       TEXT NOT NULL DEFAULT '',
	ts          TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS events_client_id ON events (client_id, ts DESC);`

// Postgres implements a connection to a PostgreSQL database.
type Postgres struct {
	db *sql.DB
}

// New returns a postgres client connection to the specified database in 'connection'. The tables are created if
// they do not exist.
func New(connection string) (*Postgres, error) {
	db, err := sql.Open("postgres", connection)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to DB in %s: %w", connection, err)
	}

	if _, err = db.Exec(schema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("cannot create schema: %w", describe(err))
	}

	return &Postgres{db: db}, nil
}

// ClosePostgres will close any database connection. Must be called at termination time.
func (p *Postgres) ClosePostgres() error {
	return p.db.Close()
}

// SaveSession saves the session, replacing the one of the same client id.
func (p *Postgres) SaveSession(s store.Session) error {
	if s.ClientID == "" {
		return store.ErrBadSession
	}

	_, err := p.db.Exec(`INSERT INTO sessions
		(client_id, verifier, verifier_id, type_of_login, email, name, curve, idx, key, id_token, expires)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (client_id) DO UPDATE SET
		verifier = $2, verifier_id = $3, type_of_login = $4, email = $5, name = $6, curve = $7, idx = $8, key = $9,
		id_token = $10, expires = $11`,
		s.ClientID, s.Verifier, s.VerifierID, s.TypeOfLogin, s.Email, s.Name, s.Curve, int64(s.Index), s.Key,
		s.IDToken, s.Expires)
	if err != nil {
		return fmt.Errorf("could not save session in db: %w", describe(err))
	}

	return nil
}

// LoadSession loads from db the session of the client id.
func (p *Postgres) LoadSession(clientID string) (store.Session, error) {
	var (
		s   store.Session
		idx int64
	)

	err := p.db.QueryRow(`SELECT client_id, verifier, verifier_id, type_of_login, email, name, curve, idx, key,
		id_token, expires FROM sessions WHERE client_id = $1`, clientID).Scan(&s.ClientID, &s.Verifier,
		&s.VerifierID, &s.TypeOfLogin, &s.Email, &s.Name, &s.Curve, &idx, &s.Key, &s.IDToken, &s.Expires)
	if errors.Is(err, sql.ErrNoRows) {
		return s, store.ErrDataNotFound
	}

	if err != nil {
		return s, fmt.Errorf("could not load session from db: %w", describe(err))
	}

	s.Index = uint32(idx)

	return s, nil
}

// DeleteSession deletes from db the session of the client id.
func (p *Postgres) DeleteSession(clientID string) error {
	res, err := p.db.Exec(`DELETE FROM sessions WHERE client_id = $1`, clientID)
	if err != nil {
		return fmt.Errorf("could not delete session from db: %w", describe(err))
	}

	if n, _ := res.RowsAffected(); n != 1 {
		return store.ErrDataNotFound
	}

	return nil
}

// SaveEvent inserts the event.
func (p *Postgres) SaveEvent(e store.Event) error {
	_, err := p.db.Exec(`INSERT INTO events (client_id, name, adapter, reconnected, error, ts)
		VALUES ($1, $2, $3, $4, $5, $6)`, e.ClientID, e.Name, e.Adapter, e.Reconnected, e.Error, e.TS)
	if err != nil {
		return fmt.Errorf("could not insert event in db: %w", describe(err))
	}

	return nil
}

// LoadEvents returns the last limit events of the client id, most recent first. A limit of 0 or less returns all of
// them.
func (p *Postgres) LoadEvents(clientID string, limit int) ([]store.Event, error) {
	q := `SELECT client_id, name, adapter, reconnected, error, ts FROM events WHERE client_id = $1
		ORDER BY ts DESC, id DESC`
	args := []interface{}{clientID}

	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := p.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("could not load events from db: %w", describe(err))
	}
	defer rows.Close()

	evs := []store.Event{}

	for rows.Next() {
		var e store.Event
		if err = rows.Scan(&e.ClientID, &e.Name, &e.Adapter, &e.Reconnected, &e.Error, &e.TS); err != nil {
			return nil, fmt.Errorf("could not decode event: %w", err)
		}

		evs = append(evs, e)
	}

	return evs, rows.Err()
}

// describe adds the postgres error code to err, when it is a server error.
func describe(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%w (code %s %s)", err, pqErr.Code, pqErr.Code.Name())
	}

	return err
}
