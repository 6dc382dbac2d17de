package controllers

import (
	"context"
	"errors"

	"github.com/flowbaker/signalwatch/pkg/domain"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

type RunDispatcher interface {
	Dispatch(ctx context.Context, kind domain.TriggerKind) (string, error)
	LastResult() (domain.RunResult, bool)
}

// RunController exposes manual dispatch and the last run summary.
type RunController struct {
	dispatcher RunDispatcher
}

type RunControllerDependencies struct {
	Dispatcher RunDispatcher
}

func NewRunController(deps RunControllerDependencies) *RunController {
	return &RunController{
		dispatcher: deps.Dispatcher,
	}
}

type DispatchResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// Dispatch starts a monitor run, the HTTP twin of workflow_dispatch.
func (c *RunController) Dispatch(ctx fiber.Ctx) error {
	runID, err := c.dispatcher.Dispatch(ctx.Context(), domain.TriggerDispatch)
	if errors.Is(err, domain.ErrRunInProgress) {
		return fiber.NewError(fiber.StatusConflict, "A run is already in progress")
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to dispatch run")
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to dispatch run")
	}

	log.Info().Str("run_id", runID).Msg("Run dispatched")

	return ctx.Status(fiber.StatusAccepted).JSON(DispatchResponse{
		RunID:  runID,
		Status: "accepted",
	})
}

func (c *RunController) LastRun(ctx fiber.Ctx) error {
	result, ok := c.dispatcher.LastResult()
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "No run has finished yet")
	}

	return ctx.JSON(result)
}
