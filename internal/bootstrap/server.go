package bootstrap

import (
	"context"
	"net/http"

	"github.com/classpad/activity-backend/internal/presence"
	"github.com/classpad/activity-backend/internal/usage"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"
)

var defaultCORSConfig = middleware.CORSConfig{
	AllowOrigins: []string{"*"},
	AllowMethods: []string{
		http.MethodGet,
		http.MethodHead,
		http.MethodPost,
		http.MethodOptions,
	},
	AllowHeaders: []string{
		"Accept",
		"Content-Type",
		"X-Requested-With",
	},
	AllowCredentials: true,
	MaxAge:           86400,
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	return v.validate.Struct(i)
}

func NewEchoServer() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &requestValidator{validate: validator.New()}
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(defaultCORSConfig))
	return e
}

func StartServer(lc fx.Lifecycle, e *echo.Echo, cfg *Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := e.Start(cfg.ServerAddr); err != nil && err != http.ErrServerClosed {
					e.Logger.Fatal(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})
}

// RunSweeps starts the usage idle sweeper and the presence pruner with the
// server lifecycle.
func RunSweeps(lc fx.Lifecycle, buffer *usage.Buffer, hub *presence.Hub) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go buffer.Run()
			go hub.Run()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			buffer.Stop()
			hub.Stop()
			return nil
		},
	})
}

var ServerModule = fx.Options(
	fx.Provide(NewEchoServer),
	fx.Invoke(StartServer),
	fx.Invoke(RunSweeps),
)

func Run() {
	fx.New(
		fx.Provide(LoadConfig),
		InfrastructureModule,
		StoresModule,
		HandlersModule,
		ServerModule,
	).Run()
}
