package intake

import (
	"encoding/json"
	"errors"
	"os"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// SessionKey is the durable key the active case pointer is stored under.
const SessionKey = "currentEmergencyCase"

const fileMode os.FileMode = 0600

var sessionBucket = []byte("session")

var ErrNoSession = errors.New("intake: no active case session")

// CasePointer identifies the active case so a restarted terminal can pick
// it up again.
type CasePointer struct {
	CaseID    string    `json:"caseId"`
	PatientID string    `json:"patientId"`
	Name      string    `json:"name"`
	Surname   string    `json:"surname"`
	CreatedAt time.Time `json:"createdAt"`
}

// SessionPersistence stores the active case pointer. Load returns
// ErrNoSession when nothing is stored.
type SessionPersistence interface {
	Save(CasePointer) error
	Load() (CasePointer, error)
	Clear() error
}

type MemoryPersistence struct {
	mu      sync.Mutex
	pointer *CasePointer
}

func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{}
}

func (m *MemoryPersistence) Save(p CasePointer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pointer = &p
	return nil
}

func (m *MemoryPersistence) Load() (CasePointer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pointer == nil {
		return CasePointer{}, ErrNoSession
	}
	return *m.pointer, nil
}

func (m *MemoryPersistence) Clear() error {
	m.mu.Lock()
	m.pointer = nil
	m.mu.Unlock()
	return nil
}

// BoltPersistence keeps the pointer in a bolt database file so it survives
// restarts.
type BoltPersistence struct {
	db *bolt.DB
}

func OpenBoltPersistence(path string) (*BoltPersistence, error) {
	db, err := bolt.Open(path, fileMode, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltPersistence{db: db}, nil
}

func (b *BoltPersistence) Save(p CasePointer) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionBucket).Put([]byte(SessionKey), raw)
	})
}

func (b *BoltPersistence) Load() (p CasePointer, err error) {
	err = b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(sessionBucket).Get([]byte(SessionKey))
		if raw == nil {
			return ErrNoSession
		}
		return json.Unmarshal(raw, &p)
	})
	return p, err
}

func (b *BoltPersistence) Clear() error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionBucket).Delete([]byte(SessionKey))
	})
}

func (b *BoltPersistence) Close() error {
	return b.db.Close()
}
