package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"

	"github.com/mentorhub/mentor-idm/auth"
	"github.com/mentorhub/mentor-idm/pkg/client"
	"github.com/mentorhub/mentor-idm/pkg/iam"
	"github.com/mentorhub/mentor-idm/pkg/login"
	"github.com/mentorhub/mentor-idm/pkg/notice"
	"github.com/mentorhub/mentor-idm/pkg/notification"
	"github.com/mentorhub/mentor-idm/pkg/rolegate"
	"github.com/mentorhub/mentor-idm/pkg/userrole"
)

type IdmDbConfig struct {
	Host     string `env:"IDM_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"IDM_PG_PORT" env-default:"5432"`
	Database string `env:"IDM_PG_DATABASE" env-default:"idm_db"`
	User     string `env:"IDM_PG_USER" env-default:"idm"`
	Password string `env:"IDM_PG_PASSWORD" env-default:"pwd"`
}

func (d IdmDbConfig) toDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", d.User, d.Password, d.Host, d.Port, d.Database)
}

type JwtConfig struct {
	JwtSecret      string `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
	CookieHttpOnly bool   `env:"COOKIE_HTTP_ONLY" env-default:"true"`
	CookieSecure   bool   `env:"COOKIE_SECURE" env-default:"false"`
}

type EmailConfig struct {
	Host     string `env:"SMTP_HOST" env-default:"localhost"`
	Port     int    `env:"SMTP_PORT" env-default:"1025"`
	TLS      bool   `env:"SMTP_TLS" env-default:"false"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"EMAIL_DEFAULT_FROM" env-default:"noreply@mentorhub.io"`
	ReplyTo  string `env:"EMAIL_DEFAULT_REPLY_TO"`
}

type Config struct {
	IdmDbConfig      IdmDbConfig
	AppConfig        app.AppConfig
	JwtConfig        JwtConfig
	EmailConfig      EmailConfig
	ResetPasswordURL string `env:"RESET_PASSWORD_URL" env-default:"http://localhost:3000/auth/reset-password"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
	slog.SetDefault(logger)

	loadEnvFile()

	config := Config{}
	cleanenv.ReadEnv(&config)

	server := app.DefaultApp()

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	pool, err := pgxpool.New(context.Background(), config.IdmDbConfig.toDatabaseURL())
	if err != nil {
		slog.Error("Failed creating dbpool", "db", config.IdmDbConfig.Database, "host", config.IdmDbConfig.Host, "port", config.IdmDbConfig.Port, "user", config.IdmDbConfig.User)
		os.Exit(-1)
	}

	repo := iam.NewPostgresUserRepository(pool)

	notificationManager, err := notice.NewNotificationManager(notification.SMTPConfig{
		Host:     config.EmailConfig.Host,
		Port:     config.EmailConfig.Port,
		TLS:      config.EmailConfig.TLS,
		Username: config.EmailConfig.Username,
		Password: config.EmailConfig.Password,
		From:     config.EmailConfig.From,
		ReplyTo:  config.EmailConfig.ReplyTo,
	})
	if err != nil {
		slog.Error("Failed creating notification manager", "err", err)
		os.Exit(-1)
	}

	jwtService := auth.NewJwtServiceOptions(
		config.JwtConfig.JwtSecret,
		auth.WithCookieHttpOnly(config.JwtConfig.CookieHttpOnly),
		auth.WithCookieSecure(config.JwtConfig.CookieSecure),
	)

	roleService := userrole.NewRoleService(repo)
	loginService := login.NewLoginService(repo, notificationManager, config.ResetPasswordURL)

	roleHandle := userrole.NewHandle(roleService, jwtService)
	loginHandle := login.NewHandle(loginService)

	tokenAuth := jwtauth.New("HS256", []byte(config.JwtConfig.JwtSecret), nil)
	authenticated := func(r chi.Router) {
		r.Use(client.Verifier(tokenAuth))
		r.Use(jwtauth.Authenticator(tokenAuth))
		r.Use(client.AuthUserMiddleware)
		r.Use(rolegate.Middleware(roleService, nil))
	}

	server.R.Route("/auth", func(r chi.Router) {
		// Public: identity is proven by the mailed token
		r.Group(func(r chi.Router) {
			loginHandle.RegisterRoutes(r)
		})
		r.Group(func(r chi.Router) {
			authenticated(r)
			roleHandle.RegisterAuthRoutes(r)
		})
	})

	server.R.Route("/role-selection", func(r chi.Router) {
		authenticated(r)
		roleHandle.RegisterRoleSelectionRoutes(r)
	})

	server.Run()
}

// loadEnvFile loads environment variables from a .env file if one exists.
// Only sets variables that are not already set in the environment.
func loadEnvFile() {
	envFile := ".env"
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		execPath, err := os.Executable()
		if err != nil {
			return
		}
		envFile = filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(envFile); os.IsNotExist(err) {
			return
		}
	}

	if err := godotenv.Load(envFile); err != nil {
		slog.Error("Failed to load .env file", "error", err, "path", envFile)
		return
	}
	slog.Info("Configuration loaded from .env file", "path", envFile)
}
