package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"net/smtp"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	users "github.com/goliatone/go-users"
	"github.com/goliatone/go-users/cmd/server/config"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"
)

type App struct {
	config *gconfig.Container[*config.BaseConfig]
	bunDB  *bun.DB
	auth   users.Authenticator
	auther users.HTTPAuthenticator
	repo   users.RepositoryManager
	mailer users.Mailer
	srv    router.Server[*fiber.App]
	logger *glog.BaseLogger
}

func (a *App) Config() *config.BaseConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func (a *App) SetDB(db *bun.DB) {
	a.bunDB = db
}

func (a *App) SetRepository(repo users.RepositoryManager) {
	a.repo = repo
}

func (a *App) SetHTTPServer(srv router.Server[*fiber.App]) {
	a.srv = srv
}

func (a *App) SetAuthenticator(auth users.Authenticator) {
	a.auth = auth
}

func (a *App) SetHTTPAuth(auther users.HTTPAuthenticator) {
	a.auther = auther
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("users"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(&config.BaseConfig{}).
		WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	fmt.Println("============")
	fmt.Println(print.MaybeHighlightJSON(cfg.Raw()))
	fmt.Println("============")

	app := &App{
		config: cfg,
		logger: lgr,
	}

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPAuth(ctx, app); err != nil {
		panic(err)
	}

	RegisterRoutes(app)

	app.srv.Serve(app.Config().GetServer().GetAddr())

	WaitExitSignal()
}

func WithPersistence(ctx context.Context, app *App) error {
	pcfg := app.Config().GetPersistence()

	var db *sql.DB
	var dialect schema.Dialect
	var err error

	switch pcfg.GetDriver() {
	case "postgres":
		db, err = sql.Open("pgx", pcfg.GetDSN())
		dialect = pgdialect.New()
	default:
		db, err = sql.Open(sqliteshim.ShimName, pcfg.GetDSN())
		dialect = sqlitedialect.New()
	}
	if err != nil {
		return err
	}

	persistence.RegisterModel((*users.User)(nil))

	client, err := persistence.New(pcfg, db, dialect)
	if err != nil {
		return err
	}

	client.SetLogger(app.GetLogger("persistence"))

	migrationsFS, err := fs.Sub(users.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}

	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)

	if err := client.ValidateDialects(ctx); err != nil {
		return err
	}

	if err := client.Migrate(ctx); err != nil {
		return err
	}

	if pcfg.GetSeed() {
		client.RegisterFixtures(users.GetFixturesFS()).AddOptions(persistence.WithTrucateTables())
		if err := client.Seed(ctx); err != nil {
			return err
		}
	}

	app.SetDB(client.DB())
	app.SetRepository(users.NewRepositoryManager(client.DB()))

	return nil
}

func WithHTTPServer(ctx context.Context, app *App) error {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:           app.Config().GetName(),
			UnescapePath:      true,
			EnablePrintRoutes: app.Config().GetDebug(),
			StrictRouting:     false,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))

	app.SetHTTPServer(srv)

	return nil
}

func WithHTTPAuth(ctx context.Context, app *App) error {
	cfg := app.Config().GetAuth()

	if err := app.repo.Validate(); err != nil {
		return err
	}

	userProvider := users.NewUserProvider(app.repo.Users())
	userProvider.WithLogger(app.GetLogger("auth:prv"))

	authenticator := users.NewAuthenticator(userProvider, cfg)
	authenticator.WithLogger(app.GetLogger("auth:authz"))

	app.SetAuthenticator(authenticator)

	httpAuth, err := users.NewHTTPAuthenticator(authenticator, cfg)
	if err != nil {
		return err
	}

	var validator users.TokenValidator = authenticator.TokenService()

	if url := cfg.GetJWKSEndpoint(); url != "" {
		jwks, err := users.NewJWKSValidator(url, cfg.GetJWKSIssuer())
		if err != nil {
			return err
		}
		validator = users.NewMultiTokenValidator(validator, jwks)
	}

	resolver := users.NewCurrentUserResolver(validator, userProvider)
	resolver.WithLogger(app.GetLogger("auth:resolver"))

	httpAuth.
		WithResolver(resolver).
		WithLogger(app.GetLogger("auth:http"))

	app.SetHTTPAuth(httpAuth)

	app.mailer = buildMailer(app)

	return nil
}

func RegisterRoutes(app *App) {
	r := app.srv.Router()
	authCfg := app.Config().GetAuth()

	users.RegisterAuthRoutes(r,
		users.WithControllerDebug(app.Config().GetDebug()),
		users.WithControllerRepository(app.repo),
		users.WithControllerAuthenticator(app.auther),
		users.WithControllerMailer(app.mailer),
		users.WithControllerContextKey(authCfg.GetContextKey()),
		users.WithControllerLogger(app.GetLogger("auth:ctrl")),
	)

	users.RegisterUserRoutes(r,
		users.WithUsersRepository(app.repo),
		users.WithUsersAuthenticator(app.auther),
		users.WithUsersContextKey(authCfg.GetContextKey()),
		users.WithUsersLogger(app.GetLogger("users:ctrl")),
	)
}

func buildMailer(app *App) users.Mailer {
	mcfg := app.Config().GetMailer()
	if !mcfg.GetEnabled() {
		return logMailer{logger: app.GetLogger("mailer")}
	}

	return smtpMailer{
		from: mcfg.GetFrom(),
		addr: fmt.Sprintf("%s:%d", mcfg.GetHost(), mcfg.GetPort()),
	}
}

// logMailer records outbound mail instead of delivering it. Default in
// development so signup works without an SMTP relay.
type logMailer struct {
	logger glog.Logger
}

func (m logMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	m.logger.Info("outbound mail", "to", to, "subject", subject)
	return nil
}

type smtpMailer struct {
	from string
	addr string
}

func (m smtpMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"UTF-8\"",
		"",
		htmlBody,
	}, "\r\n")

	return smtp.SendMail(m.addr, nil, m.from, []string{to}, []byte(msg))
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
