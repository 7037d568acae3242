// Package memory implements the store interfaces in process memory. It is
// intended for tests and dev environments; nothing survives a restart.
package memory

import (
	"sync"
	"time"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/store"
)

type enrolledSignature struct {
	sig        model.Signature
	enrolledAt time.Time
}

type terminal struct {
	known    bool
	lastSeen time.Time
}

type heartbeat struct {
	terminalID string
	rec        store.HeartbeatRecord
}

// Store satisfies every interface in package store behind one mutex.
type Store struct {
	mu sync.RWMutex

	identities map[string]model.Identity
	signatures map[string]enrolledSignature
	retired    map[string][]enrolledSignature
	passes     map[string]model.TemporaryPass
	sessions   []model.Session
	events     []store.AccessEventRecord
	terminals  map[string]terminal
	heartbeats []heartbeat
}

func New() *Store {
	return &Store{
		identities: make(map[string]model.Identity),
		signatures: make(map[string]enrolledSignature),
		retired:    make(map[string][]enrolledSignature),
		passes:     make(map[string]model.TemporaryPass),
		terminals:  make(map[string]terminal),
	}
}

// Stores returns s behind every store interface.
func (s *Store) Stores() store.Stores {
	return store.Stores{
		Identities: s,
		Passes:     s,
		Sessions:   s,
		Events:     s,
		Terminals:  s,
		Heartbeats: s,
	}
}
