package dashboard

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/apexftc/go-auton/pkg/align"
	"github.com/apexftc/go-auton/pkg/hub"
	"github.com/apexftc/go-auton/pkg/routines"
)

// RoutineInfo describes one registered routine.
type RoutineInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Steps       int    `json:"steps"`
	Paths       int    `json:"paths"`
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	if s.opts.Status == nil {
		return c.JSON(fiber.Map{"running": false})
	}
	return c.JSON(s.opts.Status())
}

func (s *Server) handleRoutines(c *fiber.Ctx) error {
	names := routines.Names()
	out := make([]RoutineInfo, 0, len(names))
	for _, name := range names {
		r, err := routines.Get(name)
		if err != nil {
			continue
		}
		out = append(out, RoutineInfo{
			Name:        r.Name,
			Description: r.Description,
			Steps:       len(r.Steps),
			Paths:       len(r.Paths),
		})
	}
	return c.JSON(out)
}

func (s *Server) handleGetTuning(c *fiber.Ctx) error {
	if s.opts.Tuning == nil {
		return fiber.NewError(fiber.StatusNotFound, "alignment tuning not available")
	}
	return c.JSON(s.opts.Tuning.Snapshot())
}

// handlePutTuning applies a partial update; zero or negative fields keep
// their current value.
func (s *Server) handlePutTuning(c *fiber.Ctx) error {
	if s.opts.Tuning == nil {
		return fiber.NewError(fiber.StatusNotFound, "alignment tuning not available")
	}
	var p align.TuningParams
	if err := c.BodyParser(&p); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	cfg := s.opts.Tuning.Apply(p)
	s.logger.Info().
		Int("target_id", cfg.TargetID).
		Float64("target_distance", cfg.TargetDistance).
		Interface("gains", cfg.Gains).
		Interface("limits", cfg.Limits).
		Msg("alignment tuning updated")
	return c.JSON(cfg)
}

func (s *Server) handleTelemetryWS(c *websocket.Conn) {
	if s.opts.Hub == nil {
		c.Close()
		return
	}
	if err := s.opts.Hub.Serve(c); err != nil && !errors.Is(err, hub.ErrStopped) {
		s.logger.Warn().Err(err).Msg("telemetry socket")
	}
}
