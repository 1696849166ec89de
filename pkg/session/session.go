package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/RubachokBoss/classroom-assignments/internal/models"
)

var (
	sessionBucket = []byte("session")
	currentKey    = []byte("current")
)

// Session is the signed-in user and the token sent with every call.
type Session struct {
	AccessToken string       `json:"accessToken"`
	User        *models.User `json:"user"`
}

func FromLogin(resp *models.LoginResponse) *Session {
	user := resp.User
	return &Session{AccessToken: resp.AccessToken, User: &user}
}

// Store persists the session across restarts. Load it once on start, Set
// it after login and Clear it on logout.
type Store struct {
	mu      sync.RWMutex
	db      *bbolt.DB
	current *Session
}

func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create session bucket: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Load reads the persisted session, nil when nobody is signed in.
func (s *Store) Load() (*Session, error) {
	var sess *Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(sessionBucket).Get(currentKey)
		if data == nil {
			return nil
		}
		sess = &Session{}
		return json.Unmarshal(data, sess)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
	return sess, nil
}

func (s *Store) Set(sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionBucket).Put(currentKey, data)
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
	return nil
}

func (s *Store) Clear() error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionBucket).Delete(currentKey)
	})
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	return nil
}

func (s *Store) Current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// AccessToken lets the store act as the client's token source.
func (s *Store) AccessToken() string {
	if sess := s.Current(); sess != nil {
		return sess.AccessToken
	}
	return ""
}
