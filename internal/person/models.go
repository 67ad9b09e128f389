package person

import (
	"time"

	"github.com/mehmetcc/todox/pkg/id"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type Person struct {
	ID        int64       `json:"id" db:"id"`
	PublicID  id.PublicID `json:"public_id" db:"public_id"`
	Email     string      `json:"email" db:"email"`
	Username  string      `json:"username" db:"username"`
	Password  string      `json:"-" db:"password"`
	Role      Role        `json:"role" db:"role"`
	IsActive  bool        `json:"is_active" db:"is_active"`
	IsDeleted bool        `json:"is_deleted" db:"is_deleted"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

// CanLogin reports whether the account may start a session.
func (p *Person) CanLogin() bool {
	return p.IsActive && !p.IsDeleted
}
