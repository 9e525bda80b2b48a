// Package monitor serves the run history API. A bus subscription feeds the
// run store; fiber handlers expose it and can trigger new runs.
package monitor

import (
	"context"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"

	"stock-advisor/internal/events"
	"stock-advisor/internal/interfaces"
	"stock-advisor/internal/runstore"
)

type Server struct {
	store    runstore.Store
	advisor  interfaces.Advisor
	validate *validator.Validate
}

// NewServer builds the API over a run store. The advisor powers POST /runs
// and may be nil for a read-only monitor.
func NewServer(store runstore.Store, advisor interfaces.Advisor) *Server {
	return &Server{
		store:    store,
		advisor:  advisor,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Consume applies run lifecycle events from the bus to the store. It returns
// once the subscription is registered; consumption continues until ctx ends.
func Consume(ctx context.Context, bus *events.Bus, store runstore.Store) error {
	return bus.Subscribe(ctx, func(ctx context.Context, ev events.Event) error {
		switch e := ev.(type) {
		case *events.RunStarted:
			return store.StartRun(ctx, e.RunID, e.Ticker, e.StartedAt)
		case *events.StageCompleted:
			return store.RecordStage(ctx, e.RunID, e.Ticker, e.Output)
		case *events.RunCompleted:
			return store.CompleteRun(ctx, e.RunID, e.Ticker, e.Decision, e.DurationMs)
		case *events.RunFailed:
			return store.FailRun(ctx, e.RunID, e.Ticker, e.Stage, e.Error)
		default:
			return nil
		}
	})
}

func (s *Server) App() *fiber.App {
	app := fiber.New()
	app.Use(cors.New())

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	runs := app.Group("/runs")
	runs.Get("/", s.listRuns)
	runs.Post("/", s.triggerRun)
	runs.Get("/:id", s.getRun)
	runs.Get("/:id/agents", s.listAgents)
	runs.Get("/:id/agents/:name", s.getAgent)

	return app
}

// Start serves the API until ctx is canceled or the listener fails.
func (s *Server) Start(ctx context.Context, port int) error {
	app := s.App()
	go func() {
		<-ctx.Done()
		_ = app.Shutdown()
	}()
	return app.Listen(":" + strconv.Itoa(port))
}
