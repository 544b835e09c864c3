package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session is created exactly once per login by whichever login path ran.
// ExternalIDToken is only set when the session was established through
// the OIDC provider; logout uses it as the id_token_hint.
type Session struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID `bson:"userId" json:"userId"`
	ExternalIDToken string             `bson:"externalIdToken,omitempty" json:"-"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}
