package users

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the account model. The auth core treats it as read-mostly: only the
// social resolve-or-create path and the admin CRUD endpoints mutate it.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"hashed_password,notnull" json:"-"`
	FirstName     string     `bun:"firstname" json:"firstname,omitempty"`
	LastName      string     `bun:"lastname" json:"lastname,omitempty"`
	Active        bool       `bun:"is_active,notnull,default:true" json:"is_active"`
	Superuser     bool       `bun:"is_superuser,notnull,default:false" json:"is_superuser"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Identifier returns the natural key used as the token subject.
func (u *User) Identifier() string {
	if u == nil {
		return ""
	}
	return u.Email
}

// IsActive reports whether the account may authenticate.
func (u *User) IsActive() bool {
	return u != nil && u.Active
}

// IsSuperuser reports whether the account carries administrative privilege.
func (u *User) IsSuperuser() bool {
	return u != nil && u.Superuser
}

// PublicUser is the API projection of a User; it never carries the hash.
type PublicUser struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstname,omitempty"`
	LastName  string    `json:"lastname,omitempty"`
	Active    bool      `json:"is_active"`
	Superuser bool      `json:"is_superuser"`
}

// NewPublicUser projects a stored user into its API shape.
func NewPublicUser(u *User) PublicUser {
	if u == nil {
		return PublicUser{}
	}
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Active:    u.Active,
		Superuser: u.Superuser,
	}
}

// UsersPage is the paginated listing envelope for the admin index endpoint.
type UsersPage struct {
	Data       []PublicUser `json:"data"`
	Page       int          `json:"page"`
	PerPage    int          `json:"per_page"`
	TotalCount int          `json:"total_count"`
	TotalPages int          `json:"total_pages"`
}

// NewUsersPage builds the listing envelope, deriving total_pages from count.
func NewUsersPage(records []*User, page, perPage, total int) UsersPage {
	data := make([]PublicUser, 0, len(records))
	for _, r := range records {
		data = append(data, NewPublicUser(r))
	}

	totalPages := total / perPage
	if total%perPage > 0 {
		totalPages++
	}

	return UsersPage{
		Data:       data,
		Page:       page,
		PerPage:    perPage,
		TotalCount: total,
		TotalPages: totalPages,
	}
}
