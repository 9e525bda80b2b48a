package monitor

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"stock-advisor/internal/logger"
	"stock-advisor/internal/runstore"
	"stock-advisor/internal/types"
)

const defaultListLimit = 50

// TriggerRunRequest is the POST /runs payload.
type TriggerRunRequest struct {
	Ticker    string  `json:"ticker"     validate:"required,min=1,max=12"`
	Cash      float64 `json:"cash"       validate:"gte=0"`
	Stock     int     `json:"stock"      validate:"gte=0"`
	NewsCount int     `json:"news_count" validate:"gte=0,lte=100"`
}

func (s *Server) listRuns(c fiber.Ctx) error {
	limit := defaultListLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return badRequest(c, "limit must be a non-negative integer")
		}
		limit = n
	}

	runs, err := s.store.Runs(c.Context(), limit)
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(fiber.Map{
		"runs":  runs,
		"count": len(runs),
	})
}

func (s *Server) getRun(c fiber.Ctx) error {
	rec, err := s.store.RunByID(c.Context(), c.Params("id"))
	if errors.Is(err, runstore.ErrRunNotFound) {
		return notFound(c, "Run not found")
	}
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(rec)
}

func (s *Server) listAgents(c fiber.Ctx) error {
	rec, err := s.store.RunByID(c.Context(), c.Params("id"))
	if errors.Is(err, runstore.ErrRunNotFound) {
		return notFound(c, "Run not found")
	}
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(fiber.Map{
		"run_id": rec.RunID,
		"ticker": rec.Ticker,
		"agents": rec.Agents,
	})
}

func (s *Server) getAgent(c fiber.Ctx) error {
	rec, err := s.store.RunByID(c.Context(), c.Params("id"))
	if errors.Is(err, runstore.ErrRunNotFound) {
		return notFound(c, "Run not found")
	}
	if err != nil {
		return internalError(c, err)
	}

	// Most recent output wins when a stage reported more than once.
	name := c.Params("name")
	for i := len(rec.Agents) - 1; i >= 0; i-- {
		if rec.Agents[i].Agent == name {
			return c.JSON(rec.Agents[i])
		}
	}
	return notFound(c, "No output from agent "+name+" in this run")
}

func (s *Server) triggerRun(c fiber.Ctx) error {
	var req TriggerRunRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}
	if err := s.validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}
	if s.advisor == nil {
		return serviceUnavailable(c, "This monitor has no engine attached")
	}

	runReq := types.RunRequest{
		RunID:     uuid.NewString(),
		Ticker:    strings.ToUpper(strings.TrimSpace(req.Ticker)),
		Portfolio: types.Portfolio{Cash: req.Cash, Stock: req.Stock},
		NewsCount: req.NewsCount,
	}

	// The run outlives the request; progress lands in the store via the bus.
	go func() {
		ctx := context.Background()
		if _, err := s.advisor.Run(ctx, runReq); err != nil {
			logger.ErrorWithErr(ctx, "Triggered run failed", err,
				"run_id", runReq.RunID,
				"ticker", runReq.Ticker,
			)
		}
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"run_id": runReq.RunID,
		"ticker": runReq.Ticker,
		"status": runstore.StatusRunning,
	})
}
