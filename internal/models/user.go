package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	PositionTeacher = "teacher"
	PositionStudent = "student"
)

type User struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	Position     string    `json:"position" db:"position"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

func (u *User) IsTeacher() bool {
	return u.Position == PositionTeacher
}

func (u *User) IsStudent() bool {
	return u.Position == PositionStudent
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func IsValidPosition(position string) bool {
	return position == PositionTeacher || position == PositionStudent
}

// StudentProgress is a student row of the per-assignment review list.
type StudentProgress struct {
	User
	IsCompleted bool `json:"isCompleted"`
	CanReview   bool `json:"canReview"`
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID       string
	Position string
}

func (a Actor) IsTeacher() bool {
	return a.Position == PositionTeacher
}

func (a Actor) IsStudent() bool {
	return a.Position == PositionStudent
}
