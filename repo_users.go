package users

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// ListUsersParams narrows the admin listing. Name matches against first and
// last name, case insensitive.
type ListUsersParams struct {
	Page    int
	PerPage int
	Name    string
}

// Normalize clamps pagination to valid bounds.
func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = defaultPerPage
	}
	if p.PerPage > maxPerPage {
		p.PerPage = maxPerPage
	}
}

type Users interface {
	repository.Repository[*User]

	GetByEmail(ctx context.Context, email string, criteria ...repository.SelectCriteria) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string, criteria ...repository.SelectCriteria) (*User, error)

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)

	GetOrCreate(ctx context.Context, record *User) (*User, error)
	GetOrCreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)

	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)

	UpdateDetails(ctx context.Context, record *User) (*User, error)
	UpdateDetailsTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)

	ListUsers(ctx context.Context, params ListUsersParams) ([]*User, int, error)
	ListUsersTx(ctx context.Context, tx bun.IDB, params ListUsersParams) ([]*User, int, error)

	DeleteByUserID(ctx context.Context, id uuid.UUID) error
	DeleteByUserIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type usersRepo struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*usersRepo)(nil)
	_ repository.Repository[*User] = (*usersRepo)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &usersRepo{
		Repository: repo,
		db:         db,
	}
}

func (a *usersRepo) GetByEmail(ctx context.Context, email string, criteria ...repository.SelectCriteria) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email, criteria...)
}

func (a *usersRepo) GetByEmailTx(ctx context.Context, tx bun.IDB, email string, criteria ...repository.SelectCriteria) (*User, error) {
	record := &User{}
	q := tx.NewSelect().Model(record)

	for _, c := range criteria {
		q.Apply(c)
	}

	err := q.
		Where("LOWER(?TableAlias.email) = LOWER(?)", strings.TrimSpace(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": email,
				})
		}
		return nil, err
	}

	return record, nil
}

// Register creates a new account, failing with ErrEmailTaken when the email
// is already in use.
func (a *usersRepo) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *usersRepo) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	_, err := a.GetByEmailTx(ctx, tx, user.Email)
	if err == nil {
		return nil, ErrEmailTaken
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	return a.CreateTx(ctx, tx, user)
}

func (a *usersRepo) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *usersRepo) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

// GetOrCreate looks the record up by email and creates it when missing. The
// social sign-in path relies on this being repeat-safe for the same email.
func (a *usersRepo) GetOrCreate(ctx context.Context, record *User) (*User, error) {
	return a.GetOrCreateTx(ctx, a.db, record)
}

func (a *usersRepo) GetOrCreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	user, err := a.GetByEmailTx(ctx, tx, record.Email)
	if err == nil {
		return user, nil
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	return a.CreateTx(ctx, tx, record)
}

// UpdateDetails persists the full editable column set, so clearing flags like
// is_active sticks.
func (a *usersRepo) UpdateDetails(ctx context.Context, record *User) (*User, error) {
	return a.UpdateDetailsTx(ctx, a.db, record)
}

func (a *usersRepo) UpdateDetailsTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	now := time.Now()
	record.UpdatedAt = &now

	res, err := tx.NewUpdate().
		Model(record).
		Column("email", "hashed_password", "firstname", "lastname", "is_active", "is_superuser", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": record.ID.String(),
			})
	}

	return record, nil
}

// ListUsers pages through accounts, optionally filtered by name. It keeps a
// distinct name from the criteria-based List the embedded repository carries.
func (a *usersRepo) ListUsers(ctx context.Context, params ListUsersParams) ([]*User, int, error) {
	return a.ListUsersTx(ctx, a.db, params)
}

func (a *usersRepo) ListUsersTx(ctx context.Context, tx bun.IDB, params ListUsersParams) ([]*User, int, error) {
	params.Normalize()

	records := []*User{}
	q := tx.NewSelect().Model(&records)

	if name := strings.TrimSpace(params.Name); name != "" {
		pattern := "%" + strings.ToLower(name) + "%"
		q = q.Where(
			"LOWER(?TableAlias.firstname) LIKE ? OR LOWER(?TableAlias.lastname) LIKE ?",
			pattern, pattern,
		)
	}

	total, err := q.
		Order("usr.created_at DESC").
		Limit(params.PerPage).
		Offset((params.Page - 1) * params.PerPage).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func (a *usersRepo) DeleteByUserID(ctx context.Context, id uuid.UUID) error {
	return a.DeleteByUserIDTx(ctx, a.db, id)
}

func (a *usersRepo) DeleteByUserIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().
		Model((*User)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	record.Email = strings.ToLower(strings.TrimSpace(record.Email))

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
