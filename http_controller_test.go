package users_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-router"
	users "github.com/goliatone/go-users"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type recordingMailer struct {
	sent []sentMail
}

func (m *recordingMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

func newAuthController(t *testing.T, fake *fakeUsers, opts ...users.AuthControllerOption) (*users.AuthController, *users.RouteAuthenticator) {
	t.Helper()

	seed := make([]*users.User, 0, len(fake.records))
	for _, r := range fake.records {
		seed = append(seed, r)
	}
	httpAuth, _ := newTestHTTPAuth(t, seed...)

	opts = append([]users.AuthControllerOption{
		users.WithControllerRepository(fakeRepoManager{users: fake}),
		users.WithControllerAuthenticator(httpAuth),
	}, opts...)

	return users.NewAuthController(opts...), httpAuth
}

func TestAuthControllerLogin(t *testing.T) {
	account := activeUser(t, "a@x.com", "secret123")
	controller, _ := newAuthController(t, newFakeUsers(account))

	var cookie *router.Cookie
	ctx := new(MockContext)
	status, body := jsonRecorder(ctx)
	ctx.On("Cookie", mock.Anything).Run(func(args mock.Arguments) {
		cookie = args.Get(0).(*router.Cookie)
	})
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*users.SignInRequest)
		payload.Email = "a@x.com"
		payload.Password = "secret123"
	}).Return(nil)

	require.NoError(t, controller.LoginPost(ctx))
	assert.Equal(t, 200, *status)

	pub, ok := (*body).(users.PublicUser)
	require.True(t, ok)
	assert.Equal(t, "a@x.com", pub.Email)

	require.NotNil(t, cookie)
	assert.Equal(t, "access_token", cookie.Name)
	assert.NotEmpty(t, cookie.Value)
}

func TestAuthControllerLoginBadCredentials(t *testing.T) {
	account := activeUser(t, "a@x.com", "secret123")
	controller, _ := newAuthController(t, newFakeUsers(account))

	ctx := new(MockContext)
	status, body := jsonRecorder(ctx)
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*users.SignInRequest)
		payload.Email = "a@x.com"
		payload.Password = "wrong"
	}).Return(nil)

	require.NoError(t, controller.LoginPost(ctx))
	assert.Equal(t, 400, *status)

	resp, ok := (*body).(router.ViewContext)
	require.True(t, ok)
	assert.Equal(t, users.TextCodeInvalidCreds, resp["code"])
	ctx.AssertNotCalled(t, "Cookie", mock.Anything)
}

func TestAuthControllerLoginValidation(t *testing.T) {
	controller, _ := newAuthController(t, newFakeUsers())

	ctx := new(MockContext)
	status, _ := jsonRecorder(ctx)
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*users.SignInRequest)
		payload.Email = "not-an-email"
		payload.Password = "secret123"
	}).Return(nil)

	require.NoError(t, controller.LoginPost(ctx))
	assert.Equal(t, 400, *status)
}

func TestAuthControllerSignup(t *testing.T) {
	fake := newFakeUsers()
	mailer := &recordingMailer{}
	controller, _ := newAuthController(t, fake, users.WithControllerMailer(mailer))

	ctx := new(MockContext)
	status, body := jsonRecorder(ctx)
	ctx.On("Cookie", mock.Anything)
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*users.SignUpRequest)
		payload.Email = "new@x.com"
		payload.Password = "secret123"
		payload.FirstName = "Pepe"
	}).Return(nil)

	require.NoError(t, controller.SignupPost(ctx))
	assert.Equal(t, 201, *status)

	pub, ok := (*body).(users.PublicUser)
	require.True(t, ok)
	assert.Equal(t, "new@x.com", pub.Email)
	assert.True(t, pub.Active)
	assert.False(t, pub.Superuser)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "new@x.com", mailer.sent[0].To)
	assert.NotContains(t, mailer.sent[0].Body, "secret123")

	stored, err := fake.GetByEmail(context.Background(), "new@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", stored.PasswordHash)
	assert.NoError(t, users.ComparePasswordAndHash("secret123", stored.PasswordHash))
}

func TestAuthControllerSignupDuplicateEmail(t *testing.T) {
	existing := activeUser(t, "dup@x.com", "secret123")
	controller, _ := newAuthController(t, newFakeUsers(existing))

	ctx := new(MockContext)
	status, body := jsonRecorder(ctx)
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*users.SignUpRequest)
		payload.Email = "dup@x.com"
		payload.Password = "secret123"
	}).Return(nil)

	require.NoError(t, controller.SignupPost(ctx))
	assert.Equal(t, 400, *status)

	resp, ok := (*body).(router.ViewContext)
	require.True(t, ok)
	assert.Equal(t, users.TextCodeEmailTaken, resp["code"])
}

func TestAuthControllerSocialSignIn(t *testing.T) {
	fake := newFakeUsers()
	controller, _ := newAuthController(t, fake)

	bindSocial := func(ctx *MockContext) {
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*users.SocialSignInRequest)
			payload.Email = "social@x.com"
			payload.Profile.FirstName = "Sol"
		}).Return(nil)
	}

	ctx := new(MockContext)
	status, body := jsonRecorder(ctx)
	ctx.On("Cookie", mock.Anything)
	bindSocial(ctx)

	require.NoError(t, controller.SocialPost(ctx))
	assert.Equal(t, 200, *status)

	resp, ok := (*body).(router.ViewContext)
	require.True(t, ok)
	assert.NotEmpty(t, resp["access_token"])
	assert.Equal(t, "bearer", resp["token_type"])

	first, err := fake.GetByEmail(context.Background(), "social@x.com")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, first.ID)

	// a second sign-in with the same email resolves to the same record
	again := new(MockContext)
	jsonRecorder(again)
	again.On("Cookie", mock.Anything)
	bindSocial(again)

	require.NoError(t, controller.SocialPost(again))

	second, err := fake.GetByEmail(context.Background(), "social@x.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, fake.records, 1)
}

func TestAuthControllerSocialSignInKeepsExistingAccount(t *testing.T) {
	existing := activeUser(t, "social@x.com", "secret123")
	existing.FirstName = "Original"
	fake := newFakeUsers(existing)
	controller, _ := newAuthController(t, fake)

	ctx := new(MockContext)
	status, _ := jsonRecorder(ctx)
	ctx.On("Cookie", mock.Anything)
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*users.SocialSignInRequest)
		payload.Email = "social@x.com"
		payload.Profile.FirstName = "Replaced"
	}).Return(nil)

	require.NoError(t, controller.SocialPost(ctx))
	assert.Equal(t, 200, *status)

	stored, err := fake.GetByEmail(context.Background(), "social@x.com")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, stored.ID)
	assert.Equal(t, "Original", stored.FirstName)
	assert.NoError(t, users.ComparePasswordAndHash("secret123", stored.PasswordHash))
}

func TestAuthControllerRefreshToken(t *testing.T) {
	account := activeUser(t, "a@x.com", "secret123")
	controller, _ := newAuthController(t, newFakeUsers(account))

	ctx := new(MockContext)
	status, body := jsonRecorder(ctx)
	ctx.On("Cookie", mock.Anything)
	ctx.On("Locals", mock.Anything).Return(account)

	require.NoError(t, controller.RefreshToken(ctx))
	assert.Equal(t, 200, *status)

	resp, ok := (*body).(router.ViewContext)
	require.True(t, ok)
	assert.Equal(t, "bearer", resp["token_type"])

	token, ok := resp["access_token"].(string)
	require.True(t, ok)

	claims, err := newTestTokenService().Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", claims.Subject())
}

func TestAuthControllerRefreshWithoutSession(t *testing.T) {
	controller, _ := newAuthController(t, newFakeUsers())

	ctx := new(MockContext)
	status, _ := jsonRecorder(ctx)
	ctx.On("Locals", mock.Anything).Return(nil)

	require.NoError(t, controller.RefreshToken(ctx))
	assert.Equal(t, 401, *status)
}

func TestAuthControllerLogOut(t *testing.T) {
	controller, _ := newAuthController(t, newFakeUsers())

	var cookie *router.Cookie
	ctx := new(MockContext)
	status, body := jsonRecorder(ctx)
	ctx.On("Cookie", mock.Anything).Run(func(args mock.Arguments) {
		cookie = args.Get(0).(*router.Cookie)
	})

	require.NoError(t, controller.LogOut(ctx))
	assert.Equal(t, 200, *status)

	resp, ok := (*body).(router.ViewContext)
	require.True(t, ok)
	assert.Equal(t, "Logged out successfully", resp["message"])

	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
}

func TestAuthControllerWelcome(t *testing.T) {
	controller, _ := newAuthController(t, newFakeUsers())

	ctx := new(MockContext)
	status, _ := jsonRecorder(ctx)

	require.NoError(t, controller.Welcome(ctx))
	assert.Equal(t, 200, *status)
}

func TestFormatValidationErrorToMap(t *testing.T) {
	req := users.SignUpRequest{Email: "not-an-email", Password: "short"}
	err := req.Validate()
	require.Error(t, err)

	fields := users.FormatValidationErrorToMap(err)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")
}
