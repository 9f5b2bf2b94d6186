// Package mongo implements the interface for MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mgo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tarancss/wadp/lib/store"
)

// database and collection names.
const (
	database    = "wadp"
	sessionsCol = "sessions"
	eventsCol   = "events"
)

// Mongo implements a connection to a MongoDB database.
type Mongo struct {
	c *mgo.Client
}

// New returns a Mongo client connection to the specified MongoDB database uri.
func New(uri string) (*Mongo, error) {
	// get a client
	c, err := mgo.NewClient(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("cannot connect to mongo DB in %s: %w", uri, err)
	}
	// connect client
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second) //nolint:gomnd // 5 seconds timeout
	defer cancel()

	err = c.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("error connecting to mongo DB: %w", err)
	}

	return &Mongo{c: c}, nil
}

// CloseMongo will close a database connection. Must be called at termination time.
func (m *Mongo) CloseMongo() error {
	return m.c.Disconnect(context.Background())
}

// SaveSession saves the session, replacing the one of the same client id.
func (m *Mongo) SaveSession(s store.Session) error {
	if s.ClientID == "" {
		return store.ErrBadSession
	}

	_, err := m.c.Database(database).Collection(sessionsCol).ReplaceOne(context.Background(),
		bson.M{"_id": s.ClientID}, s, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("could not save session in db: %w", err)
	}

	return nil
}

// LoadSession loads from db the session of the client id.
func (m *Mongo) LoadSession(clientID string) (s store.Session, err error) {
	sr := m.c.Database(database).Collection(sessionsCol).FindOne(context.Background(), bson.M{"_id": clientID})
	if err = sr.Decode(&s); errors.Is(err, mgo.ErrNoDocuments) {
		err = store.ErrDataNotFound
	}

	return
}

// DeleteSession deletes from db the session of the client id.
func (m *Mongo) DeleteSession(clientID string) error {
	res, err := m.c.Database(database).Collection(sessionsCol).DeleteOne(context.Background(),
		bson.M{"_id": clientID}, options.Delete())
	if err == nil && res.DeletedCount != 1 {
		err = store.ErrDataNotFound
	}

	return err
}

// SaveEvent inserts the event.
func (m *Mongo) SaveEvent(e store.Event) error {
	if _, err := m.c.Database(database).Collection(eventsCol).InsertOne(context.Background(), e); err != nil {
		return fmt.Errorf("could not insert event in db: %w", err)
	}

	return nil
}

// LoadEvents returns the last limit events of the client id, most recent first. A limit of 0 or less returns all of
// them.
func (m *Mongo) LoadEvents(clientID string, limit int) ([]store.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "ts", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := m.c.Database(database).Collection(eventsCol).Find(context.Background(),
		bson.M{"clientId": clientID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error getting mongo DB object: %w", err)
	}

	evs := []store.Event{}
	if err = cur.All(context.Background(), &evs); err != nil {
		return nil, fmt.Errorf("error decoding events: %w", err)
	}

	return evs, nil
}
