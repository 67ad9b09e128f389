package id

import "github.com/google/uuid"

// PublicID identifies a person outside the database. It is never reused.
type PublicID string

func NewPublicID() PublicID {
	return PublicID(uuid.NewString())
}

func (p PublicID) String() string {
	return string(p)
}
