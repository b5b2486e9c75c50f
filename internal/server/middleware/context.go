package middleware

import (
	"github.com/MicahParks/keyfunc/v3"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/neoforge-dev/synapse/pkg/ai"
	"github.com/neoforge-dev/synapse/pkg/graphstore"
	"github.com/neoforge-dev/synapse/pkg/reasoning"
	"github.com/neoforge-dev/synapse/pkg/retrieval"
)

type AppUser struct {
	UserID string
	Role   string
}

type App struct {
	DBConn       *pgxpool.Pool
	Queue        *amqp091.Channel
	Key          *keyfunc.Keyfunc
	S3           *s3.Client
	AIClient     ai.Client
	Graph        graphstore.Store
	Orchestrator *retrieval.Orchestrator
	Engine       *reasoning.Engine
	MasterAPIKey string
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}
