package repository

import (
	"context"

	"go.etcd.io/bbolt"

	"github.com/RubachokBoss/classroom-assignments/internal/models"
)

type boltSubmissionRepository struct {
	store *BoltStore
}

func NewBoltSubmissionRepository(store *BoltStore) SubmissionRepository {
	return &boltSubmissionRepository{store: store}
}

func submissionKey(assignmentID, studentID string) []byte {
	return []byte(assignmentID + ":" + studentID)
}

func (r *boltSubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.store.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSubmissions)
		key := submissionKey(submission.AssignmentID, submission.StudentID)
		if b.Get(key) != nil {
			return ErrDuplicate
		}

		if err := tx.Bucket(bucketSubmissionsByID).Put([]byte(submission.ID), key); err != nil {
			return err
		}
		return putJSON(b, key, submission)
	})
}

func (r *boltSubmissionRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	var submission *models.Submission
	err := r.store.db.View(func(tx *bbolt.Tx) error {
		key := tx.Bucket(bucketSubmissionsByID).Get([]byte(id))
		if key == nil {
			return nil
		}
		var err error
		submission, err = getJSON[models.Submission](tx.Bucket(bucketSubmissions), key)
		return err
	})
	return submission, err
}

func (r *boltSubmissionRepository) GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID string) (*models.Submission, error) {
	var submission *models.Submission
	err := r.store.db.View(func(tx *bbolt.Tx) error {
		var err error
		submission, err = getJSON[models.Submission](tx.Bucket(bucketSubmissions), submissionKey(assignmentID, studentID))
		return err
	})
	return submission, err
}

func (r *boltSubmissionRepository) CompletedStudentIDs(ctx context.Context, assignmentID string, studentIDs []string) (map[string]bool, error) {
	return r.completed(func(id string) []byte { return submissionKey(assignmentID, id) }, studentIDs)
}

func (r *boltSubmissionRepository) SubmittedAssignmentIDs(ctx context.Context, studentID string, assignmentIDs []string) (map[string]bool, error) {
	return r.completed(func(id string) []byte { return submissionKey(id, studentID) }, assignmentIDs)
}

func (r *boltSubmissionRepository) completed(key func(string) []byte, ids []string) (map[string]bool, error) {
	result := make(map[string]bool)
	err := r.store.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSubmissions)
		for _, id := range ids {
			submission, err := getJSON[models.Submission](b, key(id))
			if err != nil {
				return err
			}
			if submission != nil && submission.IsCompleted {
				result[id] = true
			}
		}
		return nil
	})
	return result, err
}

func (r *boltSubmissionRepository) SaveReview(ctx context.Context, submission *models.Submission) error {
	return r.store.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSubmissions)
		key := submissionKey(submission.AssignmentID, submission.StudentID)
		stored, err := getJSON[models.Submission](b, key)
		if err != nil {
			return err
		}
		if stored == nil {
			return ErrVersionMismatch
		}

		stored.Answers = submission.Answers
		stored.TotalMarks = submission.TotalMarks
		stored.MarksObtained = submission.MarksObtained
		stored.ReviewedAt = submission.ReviewedAt
		stored.UpdatedAt = submission.UpdatedAt

		return putJSON(b, key, stored)
	})
}
