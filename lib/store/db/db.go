// Package db implements the opening and graceful closing of database connections.
package db

import (
	"errors"
	"fmt"

	"github.com/tarancss/wadp/lib/store"
	"github.com/tarancss/wadp/lib/store/memory"
	"github.com/tarancss/wadp/lib/store/mongo"
	"github.com/tarancss/wadp/lib/store/postgres"
)

const (
	MONGODB  string = "mongodb"
	POSTGRES string = "postgresql"
	MEMORY   string = "memory"
)

// ErrUnknownDB is returned for database types not supported.
var ErrUnknownDB = errors.New("unknown database type")

// New returns a new database connection according to the options (database type). The connection string is ignored
// by the memory database.
func New(options, connection string) (store.DB, error) {
	switch options {
	case MONGODB:
		return mongo.New(connection)
	case POSTGRES:
		return postgres.New(connection)
	case MEMORY:
		return memory.New(), nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownDB, options)
}

// Close gracefully closes the database connection.
func Close(options string, dh store.DB) error {
	switch options {
	case MONGODB:
		return dh.(*mongo.Mongo).CloseMongo()
	case POSTGRES:
		return dh.(*postgres.Postgres).ClosePostgres()
	}

	return nil
}
