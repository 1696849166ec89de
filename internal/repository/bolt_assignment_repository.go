package repository

import (
	"context"

	"go.etcd.io/bbolt"

	"github.com/RubachokBoss/classroom-assignments/internal/models"
)

type assignmentRecord struct {
	Seq        uint64            `json:"seq"`
	Assignment models.Assignment `json:"assignment"`
}

type boltAssignmentRepository struct {
	store *BoltStore
}

func NewBoltAssignmentRepository(store *BoltStore) AssignmentRepository {
	return &boltAssignmentRepository{store: store}
}

func (r *boltAssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.store.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketAssignments)
		if b.Get([]byte(assignment.ID)) != nil {
			return ErrDuplicate
		}

		order := tx.Bucket(bucketAssignmentOrder)
		seq, err := order.NextSequence()
		if err != nil {
			return err
		}
		if err := order.Put(itob(seq), []byte(assignment.ID)); err != nil {
			return err
		}

		return putJSON(b, []byte(assignment.ID), assignmentRecord{Seq: seq, Assignment: *assignment})
	})
}

func (r *boltAssignmentRepository) GetByID(ctx context.Context, id string) (*models.Assignment, error) {
	var assignment *models.Assignment
	err := r.store.db.View(func(tx *bbolt.Tx) error {
		rec, err := getJSON[assignmentRecord](tx.Bucket(bucketAssignments), []byte(id))
		if err != nil || rec == nil {
			return err
		}
		assignment = &rec.Assignment
		return nil
	})
	return assignment, err
}

func (r *boltAssignmentRepository) Query(ctx context.Context, filter models.AssignmentFilter, limit, offset int) ([]models.Assignment, int, error) {
	var matched []models.Assignment
	err := r.store.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketAssignments)
		c := tx.Bucket(bucketAssignmentOrder).Cursor()

		for _, id := c.First(); id != nil; _, id = c.Next() {
			rec, err := getJSON[assignmentRecord](b, id)
			if err != nil {
				return err
			}
			if rec == nil || !matchesFilter(&rec.Assignment, filter) {
				continue
			}
			matched = append(matched, rec.Assignment)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return window(matched, limit, offset), len(matched), nil
}

func matchesFilter(a *models.Assignment, filter models.AssignmentFilter) bool {
	if filter.Status != "" && a.Status != filter.Status {
		return false
	}
	if filter.TeacherID != "" && a.TeacherID != filter.TeacherID {
		return false
	}
	return true
}

func (r *boltAssignmentRepository) Update(ctx context.Context, assignment *models.Assignment, expectedVersion int) error {
	return r.store.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketAssignments)
		rec, err := getJSON[assignmentRecord](b, []byte(assignment.ID))
		if err != nil {
			return err
		}
		if rec == nil {
			return ErrVersionMismatch
		}
		if expectedVersion != 0 && rec.Assignment.Version != expectedVersion {
			return ErrVersionMismatch
		}

		rec.Assignment = *assignment
		return putJSON(b, []byte(assignment.ID), rec)
	})
}

func (r *boltAssignmentRepository) Delete(ctx context.Context, id string) error {
	return r.store.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketAssignments)
		rec, err := getJSON[assignmentRecord](b, []byte(id))
		if err != nil || rec == nil {
			return err
		}
		if err := tx.Bucket(bucketAssignmentOrder).Delete(itob(rec.Seq)); err != nil {
			return err
		}
		return b.Delete([]byte(id))
	})
}
