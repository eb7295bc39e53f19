package users

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// RegisterAuthRoutes mounts the session endpoints: login, signup, social
// sign-in, token refresh, and logout.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	app.Get(controller.Routes.Welcome, controller.Welcome).
		SetName("root.get")

	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("auth-login.post")

	app.Post(controller.Routes.Signup, controller.SignupPost).
		SetName("auth-signup.post")

	app.Post(controller.Routes.Social, controller.SocialPost).
		SetName("auth-social.post")

	app.Get(controller.Routes.Refresh,
		controller.RefreshToken,
		controller.Auther.ProtectedRoute(GateActive()...),
	).SetName("auth-refresh.get")

	app.Get(controller.Routes.Logout, controller.LogOut).
		SetName("auth-logout.get")
}

type AuthControllerRoutes struct {
	Welcome string
	Login   string
	Signup  string
	Social  string
	Refresh string
	Logout  string
}

type AuthController struct {
	Debug      bool
	Logger     Logger
	Repo       RepositoryManager
	Routes     *AuthControllerRoutes
	Auther     HTTPAuthenticator
	Mailer     Mailer
	ContextKey string
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:     defLogger{},
		ContextKey: "current_user",
		Routes: &AuthControllerRoutes{
			Welcome: "/",
			Login:   "/auth/login",
			Signup:  "/auth/signup",
			Social:  "/auth/social",
			Refresh: "/auth/refresh-token",
			Logout:  "/auth/logout",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in auth controller...")
	}

	return c
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerRepository(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuthenticator(auther HTTPAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerMailer(mailer Mailer) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Mailer = mailer
		return c
	}
}

func WithControllerContextKey(key string) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if key != "" {
			c.ContextKey = key
		}
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func (a *AuthController) Welcome(ctx router.Context) error {
	return ctx.JSON(router.StatusOK, router.ViewContext{
		"message": "Welcome to the users service",
	})
}

// SignInRequest payload
type SignInRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r SignInRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(SignInRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.Auther.RespondError(ctx, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.Auther.RespondError(ctx, validationError(err))
	}

	if a.Debug {
		a.Logger.Debug("auth login", "payload", print.MaybePrettyJSON(payload))
	}

	user, _, err := a.Auther.Login(ctx, payload.Email, payload.Password)
	if err != nil {
		return a.Auther.RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, NewPublicUser(user))
}

// SignUpRequest payload
type SignUpRequest struct {
	Email     string `form:"email" json:"email"`
	Password  string `form:"password" json:"password"`
	FirstName string `form:"firstname" json:"firstname"`
	LastName  string `form:"lastname" json:"lastname"`
}

// Validate will run validation rules
func (r SignUpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.FirstName, validation.Length(0, 200)),
		validation.Field(&r.LastName, validation.Length(0, 200)),
	)
}

func (a *AuthController) SignupPost(ctx router.Context) error {
	payload := new(SignUpRequest)

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
		Active:       true,
	})
	if err != nil {
		a.Logger.Error("signup register error", "error", err)
		// the signup form answers duplicates with a 400, not a conflict
		if errors.Is(err, ErrEmailTaken) {
			err = errors.New(ErrEmailTaken.Message, errors.CategoryValidation).
				WithTextCode(TextCodeEmailTaken).
				WithCode(errors.CodeBadRequest)
		}
		return a.Auther.RespondError(ctx, err)
	}

	if _, err := a.Auther.IssueSession(ctx, user); err != nil {
		return a.Auther.RespondError(ctx, err)
	}

	a.notifyAccountCreated(ctx, user, payload.Password)

	return ctx.JSON(router.StatusCreated, NewPublicUser(user))
}

// SocialProfile carries the externally asserted identity attributes.
type SocialProfile struct {
	FirstName string `form:"firstname" json:"firstname"`
	LastName  string `form:"lastname" json:"lastname"`
}

// SocialSignInRequest payload
type SocialSignInRequest struct {
	Email   string        `form:"email" json:"email"`
	Profile SocialProfile `form:"profile" json:"profile"`
}

// Validate will run validation rules
func (r SocialSignInRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

// SocialPost resolves-or-creates an account from an externally asserted
// identity, then emits a session. Created accounts get a random placeholder
// hash, so password login stays impossible until a password is set.
func (a *AuthController) SocialPost(ctx router.Context) error {
	payload := new(SocialSignInRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.Auther.RespondError(ctx, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.Auther.RespondError(ctx, validationError(err))
	}

	record := &User{
		ID:           socialAccountID(payload.Email),
		Email:        payload.Email,
		PasswordHash: RandomPasswordHash(),
		FirstName:    payload.Profile.FirstName,
		LastName:     payload.Profile.LastName,
		Active:       true,
	}

	user, err := a.Repo.Users().GetOrCreate(ctx.Context(), record)
	if err != nil {
		a.Logger.Error("social sign-in error", "error", err)
		return a.Auther.RespondError(ctx, err)
	}

	token, err := a.Auther.IssueSession(ctx, user)
	if err != nil {
		return a.Auther.RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// RefreshToken re-derives a token for the authenticated caller. The old
// token is not invalidated; both stay valid until their expiry.
func (a *AuthController) RefreshToken(ctx router.Context) error {
	user, ok := CurrentUser(ctx, a.ContextKey)
	if !ok {
		return a.Auther.RespondError(ctx, ErrUnableToFindSession)
	}

	token, err := a.Auther.IssueSession(ctx, user)
	if err != nil {
		return a.Auther.RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (a *AuthController) LogOut(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return ctx.JSON(router.StatusOK, router.ViewContext{
		"message": "Logged out successfully",
	})
}

func (a *AuthController) notifyAccountCreated(ctx router.Context, user *User, password string) {
	if a.Mailer == nil {
		return
	}

	msg := NotifyAccountCreatedMessage{
		Email:     user.Email,
		FirstName: user.FirstName,
		Password:  password,
	}

	notify := NotifyAccountCreatedHandler{mailer: a.Mailer, logger: a.Logger}
	if err := notify.Execute(ctx.Context(), msg); err != nil {
		a.Logger.Error("account created notification error", "error", err)
	}
}

// socialAccountID derives a stable ID from the asserted email, so retried
// social sign-ups converge on the same record.
func socialAccountID(email string) uuid.UUID {
	id, err := hashid.NewUUID(email)
	if err != nil {
		return uuid.New()
	}
	return id
}

func bindError(err error) error {
	return errors.Wrap(err, errors.CategoryBadInput, "failed to parse request body").
		WithCode(errors.CodeBadRequest)
}

func validationError(err error) error {
	return errors.Wrap(err, errors.CategoryValidation, "request validation failed").
		WithCode(errors.CodeBadRequest).
		WithMetadata(map[string]any{
			"fields": FormatValidationErrorToMap(err),
		})
}

// FormatValidationErrorToMap flattens ozzo field errors into a string map.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		for field, ferr := range fieldErrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	out["validation"] = err.Error()
	return out
}
