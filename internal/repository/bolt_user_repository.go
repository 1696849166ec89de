package repository

import (
	"context"
	"strings"

	"go.etcd.io/bbolt"

	"github.com/RubachokBoss/classroom-assignments/internal/models"
)

// userRecord keeps the password hash, which models.User hides from JSON.
type userRecord struct {
	models.User
	Seq          uint64 `json:"seq"`
	PasswordHash []byte `json:"passwordHash"`
}

func (rec *userRecord) user() *models.User {
	u := rec.User
	u.PasswordHash = rec.PasswordHash
	return &u
}

type boltUserRepository struct {
	store *BoltStore
}

func NewBoltUserRepository(store *BoltStore) UserRepository {
	return &boltUserRepository{store: store}
}

func emailKey(email string) []byte {
	return []byte(strings.ToLower(strings.TrimSpace(email)))
}

func (r *boltUserRepository) Create(ctx context.Context, user *models.User) error {
	return r.store.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketUsers)
		byEmail := tx.Bucket(bucketUsersByEmail)
		if b.Get([]byte(user.ID)) != nil || byEmail.Get(emailKey(user.Email)) != nil {
			return ErrDuplicate
		}

		order := tx.Bucket(bucketUserOrder)
		seq, err := order.NextSequence()
		if err != nil {
			return err
		}
		if err := order.Put(itob(seq), []byte(user.ID)); err != nil {
			return err
		}
		if err := byEmail.Put(emailKey(user.Email), []byte(user.ID)); err != nil {
			return err
		}

		return putJSON(b, []byte(user.ID), userRecord{User: *user, Seq: seq, PasswordHash: user.PasswordHash})
	})
}

func (r *boltUserRepository) Update(ctx context.Context, user *models.User) error {
	return r.store.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketUsers)
		byEmail := tx.Bucket(bucketUsersByEmail)

		rec, err := getJSON[userRecord](b, []byte(user.ID))
		if err != nil {
			return err
		}
		if rec == nil {
			return ErrVersionMismatch
		}

		newKey := emailKey(user.Email)
		if owner := byEmail.Get(newKey); owner != nil && string(owner) != user.ID {
			return ErrDuplicate
		}
		if err := byEmail.Delete(emailKey(rec.Email)); err != nil {
			return err
		}
		if err := byEmail.Put(newKey, []byte(user.ID)); err != nil {
			return err
		}

		return putJSON(b, []byte(user.ID), userRecord{User: *user, Seq: rec.Seq, PasswordHash: user.PasswordHash})
	})
}

func (r *boltUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user *models.User
	err := r.store.db.View(func(tx *bbolt.Tx) error {
		rec, err := getJSON[userRecord](tx.Bucket(bucketUsers), []byte(id))
		if err != nil || rec == nil {
			return err
		}
		user = rec.user()
		return nil
	})
	return user, err
}

func (r *boltUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user *models.User
	err := r.store.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(bucketUsersByEmail).Get(emailKey(email))
		if id == nil {
			return nil
		}
		rec, err := getJSON[userRecord](tx.Bucket(bucketUsers), id)
		if err != nil || rec == nil {
			return err
		}
		user = rec.user()
		return nil
	})
	return user, err
}

func (r *boltUserRepository) ListByPosition(ctx context.Context, position string, limit, offset int) ([]models.User, int, error) {
	var matched []models.User
	err := r.store.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketUsers)
		c := tx.Bucket(bucketUserOrder).Cursor()

		for _, id := c.First(); id != nil; _, id = c.Next() {
			rec, err := getJSON[userRecord](b, id)
			if err != nil {
				return err
			}
			if rec == nil || rec.Position != position {
				continue
			}
			matched = append(matched, *rec.user())
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return window(matched, limit, offset), len(matched), nil
}
