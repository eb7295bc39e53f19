package users

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// RegisterUserRoutes mounts the account management endpoints. Listing,
// creation, updates, and deletion require superuser privilege; /users/me and
// reading your own record only require an active session.
func RegisterUserRoutes[T any](app router.Router[T], opts ...UsersControllerOption) {
	controller := NewUsersController(opts...)

	active := controller.Auther.ProtectedRoute(GateActive()...)
	superuser := controller.Auther.ProtectedRoute(GateSuperuser()...)

	app.Post(controller.Routes.Collection, controller.Create, superuser).
		SetName("users-create.post")

	app.Get(controller.Routes.Collection, controller.List, superuser).
		SetName("users-list.get")

	app.Get(controller.Routes.Me, controller.Me, active).
		SetName("users-me.get")

	app.Get(controller.Routes.Record, controller.Show, active).
		SetName("users-show.get")

	app.Patch(controller.Routes.Record, controller.Update, superuser).
		SetName("users-update.patch")

	app.Delete(controller.Routes.Record, controller.Delete, superuser).
		SetName("users-delete.delete")
}

type UsersControllerRoutes struct {
	Collection string
	Me         string
	Record     string
}

type UsersController struct {
	Logger     Logger
	Repo       RepositoryManager
	Auther     HTTPAuthenticator
	ContextKey string
	Routes     *UsersControllerRoutes
}

type UsersControllerOption func(*UsersController) *UsersController

func NewUsersController(opts ...UsersControllerOption) *UsersController {
	c := &UsersController{
		Logger:     defLogger{},
		ContextKey: "current_user",
		Routes: &UsersControllerRoutes{
			Collection: "/users",
			Me:         "/users/me",
			Record:     "/users/:id",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in users controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in users controller...")
	}

	return c
}

func WithUsersLogger(logger Logger) UsersControllerOption {
	return func(c *UsersController) *UsersController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithUsersRepository(repo RepositoryManager) UsersControllerOption {
	return func(c *UsersController) *UsersController {
		c.Repo = repo
		return c
	}
}

func WithUsersAuthenticator(auther HTTPAuthenticator) UsersControllerOption {
	return func(c *UsersController) *UsersController {
		c.Auther = auther
		return c
	}
}

func WithUsersContextKey(key string) UsersControllerOption {
	return func(c *UsersController) *UsersController {
		if key != "" {
			c.ContextKey = key
		}
		return c
	}
}

// CreateUserRequest payload
type CreateUserRequest struct {
	Email     string `form:"email" json:"email"`
	Password  string `form:"password" json:"password"`
	FirstName string `form:"firstname" json:"firstname"`
	LastName  string `form:"lastname" json:"lastname"`
	Active    bool   `form:"is_active" json:"is_active"`
	Superuser bool   `form:"is_superuser" json:"is_superuser"`
}

// Validate will run validation rules
func (r CreateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.FirstName, validation.Length(0, 200)),
		validation.Field(&r.LastName, validation.Length(0, 200)),
	)
}

func (a *UsersController) Create(ctx router.Context) error {
	payload := new(CreateUserRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.Auther.RespondError(ctx, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.Auther.RespondError(ctx, validationError(err))
	}

	hash, err := HashPassword(payload.Password)
	if err != nil {
		return a.Auther.RespondError(ctx, err)
	}

	user, err := a.Repo.Users().Register(ctx.Context(), &User{
		Email:        payload.Email,
		PasswordHash: hash,
		FirstName:    payload.FirstName,
		LastName:     payload.LastName,
		Active:       payload.Active,
		Superuser:    payload.Superuser,
	})
	if err != nil {
		a.Logger.Error("user create error", "error", err)
		return a.Auther.RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, NewPublicUser(user))
}

func (a *UsersController) List(ctx router.Context) error {
	params := ListUsersParams{
		Page:    ctx.QueryInt("page", 1),
		PerPage: ctx.QueryInt("per_page", defaultPerPage),
		Name:    ctx.Query("name", ""),
	}

	records, total, err := a.Repo.Users().ListUsers(ctx.Context(), params)
	if err != nil {
		a.Logger.Error("user list error", "error", err)
		return a.Auther.RespondError(ctx, err)
	}

	params.Normalize()

	return ctx.JSON(router.StatusOK, NewUsersPage(records, params.Page, params.PerPage, total))
}

func (a *UsersController) Me(ctx router.Context) error {
	user, ok := CurrentUser(ctx, a.ContextKey)
	if !ok {
		return a.Auther.RespondError(ctx, ErrUnableToFindSession)
	}

	return ctx.JSON(router.StatusOK, NewPublicUser(user))
}

// Show returns a single record. Non-superusers may only read their own.
func (a *UsersController) Show(ctx router.Context) error {
	current, ok := CurrentUser(ctx, a.ContextKey)
	if !ok {
		return a.Auther.RespondError(ctx, ErrUnableToFindSession)
	}

	id, err := parseUserID(ctx.Param("id", ""))
	if err != nil {
		return a.Auther.RespondError(ctx, err)
	}

	if current.ID != id && !current.IsSuperuser() {
		return a.Auther.RespondError(ctx, ErrNotEnoughPrivileges)
	}

	if current.ID == id {
		return ctx.JSON(router.StatusOK, NewPublicUser(current))
	}

	user, err := a.Repo.Users().GetByID(ctx.Context(), id.String())
	if err != nil {
		return a.Auther.RespondError(ctx, notFoundError(err, id))
	}

	return ctx.JSON(router.StatusOK, NewPublicUser(user))
}

// UpdateUserRequest carries a partial update; absent fields are untouched.
type UpdateUserRequest struct {
	Email     *string `form:"email" json:"email"`
	Password  *string `form:"password" json:"password"`
	FirstName *string `form:"firstname" json:"firstname"`
	LastName  *string `form:"lastname" json:"lastname"`
	Active    *bool   `form:"is_active" json:"is_active"`
	Superuser *bool   `form:"is_superuser" json:"is_superuser"`
}

// Validate will run validation rules
func (r UpdateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Length(8, 100)),
	)
}

func (a *UsersController) Update(ctx router.Context) error {
	id, err := parseUserID(ctx.Param("id", ""))
	if err != nil {
		return a.Auther.RespondError(ctx, err)
	}

	payload := new(UpdateUserRequest)
	if err := ctx.Bind(payload); err != nil {
		return a.Auther.RespondError(ctx, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.Auther.RespondError(ctx, validationError(err))
	}

	user, err := a.Repo.Users().GetByID(ctx.Context(), id.String())
	if err != nil {
		return a.Auther.RespondError(ctx, notFoundError(err, id))
	}

	if payload.Email != nil && *payload.Email != user.Email {
		existing, err := a.Repo.Users().GetByEmail(ctx.Context(), *payload.Email)
		if err == nil && existing.ID != id {
			return a.Auther.RespondError(ctx, ErrEmailTaken)
		}
		if err != nil && !repository.IsRecordNotFound(err) {
			return a.Auther.RespondError(ctx, err)
		}
		user.Email = *payload.Email
	}

	if payload.Password != nil {
		hash, err := HashPassword(*payload.Password)
		if err != nil {
			return a.Auther.RespondError(ctx, err)
		}
		user.PasswordHash = hash
	}

	if payload.FirstName != nil {
		user.FirstName = *payload.FirstName
	}
	if payload.LastName != nil {
		user.LastName = *payload.LastName
	}
	if payload.Active != nil {
		user.Active = *payload.Active
	}
	if payload.Superuser != nil {
		user.Superuser = *payload.Superuser
	}

	updated, err := a.Repo.Users().UpdateDetails(ctx.Context(), user)
	if err != nil {
		a.Logger.Error("user update error", "error", err, "id", id.String())
		return a.Auther.RespondError(ctx, notFoundError(err, id))
	}

	return ctx.JSON(router.StatusOK, NewPublicUser(updated))
}

// Delete removes a record. Superusers cannot delete themselves.
func (a *UsersController) Delete(ctx router.Context) error {
	current, ok := CurrentUser(ctx, a.ContextKey)
	if !ok {
		return a.Auther.RespondError(ctx, ErrUnableToFindSession)
	}

	id, err := parseUserID(ctx.Param("id", ""))
	if err != nil {
		return a.Auther.RespondError(ctx, err)
	}

	if current.ID == id {
		return a.Auther.RespondError(ctx, ErrSelfDelete)
	}

	if err := a.Repo.Users().DeleteByUserID(ctx.Context(), id); err != nil {
		return a.Auther.RespondError(ctx, notFoundError(err, id))
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"message": "User deleted successfully",
	})
}

func parseUserID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, errors.CategoryBadInput, "invalid user id").
			WithCode(errors.CodeBadRequest).
			WithMetadata(map[string]any{
				"id": raw,
			})
	}
	return id, nil
}

func notFoundError(err error, id uuid.UUID) error {
	if repository.IsRecordNotFound(err) || errors.IsNotFound(err) {
		return errors.Wrap(err, errors.CategoryNotFound, "user not found").
			WithCode(errors.CodeNotFound).
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}
	return err
}
