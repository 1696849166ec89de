package session

import (
	"github.com/RubachokBoss/classroom-assignments/internal/models"
)

type Decision int

const (
	RedirectToLogin Decision = iota
	Allow
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Forbidden:
		return "forbidden"
	default:
		return "login"
	}
}

// Gate decides whether protected views render for sess.
func Gate(sess *Session) Decision {
	if sess == nil || sess.AccessToken == "" || sess.User == nil {
		return RedirectToLogin
	}
	if !models.IsValidPosition(sess.User.Position) {
		return RedirectToLogin
	}
	return Allow
}

// GateFor is Gate for a view restricted to one position.
func GateFor(sess *Session, position string) Decision {
	if d := Gate(sess); d != Allow {
		return d
	}
	if sess.User.Position != position {
		return Forbidden
	}
	return Allow
}
