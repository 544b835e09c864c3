package store

import (
	"context"
	"log"
	"time"

	"github.com/moteeees/library/backend/models"
	"golang.org/x/crypto/bcrypt"
)

// EnsureSeedData creates the bootstrap accounts on first run: the
// default admin and a regular demo user. It is idempotent; existing
// accounts are left untouched, and a concurrent boot losing the insert
// race is treated as success.
func (db *DB) EnsureSeedData(ctx context.Context) error {
	seeds := []struct {
		login    string
		password string
		role     string
	}{
		{"Moteeees", "Moteeees123", models.RoleAdmin},
		{"user", "user1234", models.RoleUser},
	}
	for _, s := range seeds {
		if _, err := db.UserByLogin(ctx, s.login); err == nil {
			continue
		} else if err != ErrNotFound {
			return err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(s.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		_, err = db.CreateUser(ctx, &models.User{
			Login:     s.login,
			Password:  string(hash),
			Role:      s.role,
			CreatedAt: time.Now(),
		})
		if err == ErrDuplicateLogin {
			continue
		}
		if err != nil {
			return err
		}
		log.Printf("seeded account %q (%s)", s.login, s.role)
	}
	return nil
}
