// +build integration

package mongo

import (
	"errors"
	"testing"
	"time"

	"github.com/tarancss/wadp/lib/store"
)

var uri string = "mongodb://localhost:27017"

func TestNewMongo(t *testing.T) {
	m, err := New(uri)
	if err != nil {
		t.Fatalf("err:%e", err)
	}

	if err = m.CloseMongo(); err != nil {
		t.Errorf("err:%e", err)
	}
}

func TestSession(t *testing.T) {
	var m store.DB

	var err error

	if m, err = New(uri); err != nil {
		t.Fatalf("err:%e", err)
	}
	defer m.(*Mongo).CloseMongo()

	s := store.Session{ClientID: "test-client", Verifier: "google", VerifierID: "alice@example.com",
		Curve: "secp256k1", Index: 7, Key: []byte{1, 2, 3}, Expires: time.Now().Add(time.Hour).UTC()}

	if err = m.SaveSession(s); err != nil {
		t.Errorf("SaveSession - err:%e", err)
	}

	s2, err := m.LoadSession(s.ClientID)
	if err != nil || s2.VerifierID != s.VerifierID || s2.Index != 7 || len(s2.Key) != 3 {
		t.Errorf("LoadSession - err:%e, session:%+v", err, s2)
	}

	if err = m.DeleteSession(s.ClientID); err != nil {
		t.Errorf("DeleteSession - err:%e", err)
	}

	if _, err = m.LoadSession(s.ClientID); !errors.Is(err, store.ErrDataNotFound) {
		t.Errorf("expected ErrDataNotFound, got %v", err)
	}
}

func TestEvents(t *testing.T) {
	m, err := New(uri)
	if err != nil {
		t.Fatalf("err:%e", err)
	}
	defer m.CloseMongo()

	now := time.Now().UTC()
	for i, n := range []string{"ready", "connecting", "connected"} {
		if err = m.SaveEvent(store.Event{ClientID: "test-events", Name: n,
			TS: now.Add(time.Duration(i) * time.Second)}); err != nil {
			t.Errorf("SaveEvent - err:%e", err)
		}
	}

	evs, err := m.LoadEvents("test-events", 2)
	if err != nil || len(evs) != 2 || evs[0].Name != "connected" {
		t.Errorf("LoadEvents - err:%e, events:%+v", err, evs)
	}
}
