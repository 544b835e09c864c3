package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role constants for user authorization. A user holds exactly one role;
// admins are what the management screens call "staff".
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Login       string             `bson:"login" json:"login"`
	Password    string             `bson:"password,omitempty" json:"-"` // bcrypt hash; empty for external users
	Role        string             `bson:"role" json:"role"`
	OIDCSubject string             `bson:"oidcSubject,omitempty" json:"-"` // identity-provider subject, set for OIDC users
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
