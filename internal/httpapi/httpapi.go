// Package httpapi exposes the import service over HTTP.
package httpapi

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/park285/chessvault/internal/domain"
	"github.com/park285/chessvault/internal/obslog"
	"github.com/park285/chessvault/internal/service/importer"
	"github.com/park285/chessvault/pkg/importdto"
)

var validate = validator.New()

type Handler struct {
	svc *importer.Service
}

func NewHandler(svc *importer.Service) *Handler {
	return &Handler{svc: svc}
}

// NewFiberApp builds the router with all routes registered.
func NewFiberApp(svc *importer.Service) *fiber.App {
	h := NewHandler(svc)

	app := fiber.New(fiber.Config{
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	})
	app.Use(recover.New())

	app.Get("/health", h.Health)

	api := app.Group("/api/chess")
	api.Post("/import-games", h.ImportGames)
	api.Get("/games", h.ListGames)

	return app
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(importdto.HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) ImportGames(c *fiber.Ctx) error {
	var req importdto.ImportGamesRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if msg, ok := validateStruct(&req); !ok {
		return badRequest(c, msg)
	}

	outcome, err := h.svc.Run(c.Context(), domain.ImportRequest{
		OwnerID:    req.OwnerID,
		Platform:   domain.Platform(req.Platform),
		Username:   req.Username,
		MonthsBack: req.MonthsBack,
	})
	if err != nil {
		return importError(c, err)
	}

	obslog.L().Info("import_http_done",
		zap.String("platform", req.Platform),
		zap.String("username", req.Username),
		zap.Int("imported", outcome.Imported),
		zap.Int("skipped", outcome.Skipped),
		zap.Int("errors", len(outcome.Errors)))

	return c.JSON(importdto.ImportGamesResponse{
		RunID:    outcome.RunID,
		Platform: req.Platform,
		Username: req.Username,
		Imported: outcome.Imported,
		Skipped:  outcome.Skipped,
		Errors:   outcome.Errors,
	})
}

func (h *Handler) ListGames(c *fiber.Ctx) error {
	var q importdto.GamesQuery
	if err := c.QueryParser(&q); err != nil {
		return badRequest(c, "invalid query parameters")
	}
	if msg, ok := validateStruct(&q); !ok {
		return badRequest(c, msg)
	}
	if q.Limit <= 0 {
		q.Limit = 50
	}

	games, err := h.svc.ListGames(c.Context(), domain.Platform(q.Platform), q.Username, q.Limit, q.Offset)
	if err != nil {
		return importError(c, err)
	}

	resp := importdto.GamesResponse{Games: make([]importdto.GameRecord, 0, len(games))}
	for _, g := range games {
		resp.Games = append(resp.Games, toRecord(g))
	}
	resp.Count = len(resp.Games)
	return c.JSON(resp)
}

func toRecord(g *domain.ChessGame) importdto.GameRecord {
	return importdto.GameRecord{
		ExternalID:    g.ExternalID,
		Platform:      string(g.Platform),
		ExternalURL:   g.ExternalURL,
		WhiteUsername: g.WhiteUsername,
		BlackUsername: g.BlackUsername,
		WhiteRating:   g.WhiteRating,
		BlackRating:   g.BlackRating,
		GameDate:      g.GameDate,
		TimeControl:   g.TimeControl,
		TimeClass:     g.TimeClass,
		Rules:         g.Rules,
		Rated:         g.Rated,
		Result:        g.Result,
		Termination:   g.Termination,
		Winner:        g.Winner,
		PGN:           g.PGN,
		FENFinal:      g.FENFinal,
		TotalPlies:    g.TotalPlies,
		DurationSec:   int64(g.Duration / time.Second),
	}
}

func validateStruct(v any) (string, bool) {
	err := validate.Struct(v)
	if err == nil {
		return "", true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "validation failed", false
	}
	var b strings.Builder
	for _, fe := range verrs {
		if b.Len() > 0 {
			b.WriteString("; ")
		}
		switch fe.Tag() {
		case "required":
			fmt.Fprintf(&b, "%s is required", fe.Field())
		case "oneof":
			fmt.Fprintf(&b, "%s must be one of [%s]", fe.Field(), fe.Param())
		case "min":
			fmt.Fprintf(&b, "%s must be at least %s", fe.Field(), fe.Param())
		case "max":
			fmt.Fprintf(&b, "%s must be at most %s", fe.Field(), fe.Param())
		default:
			fmt.Fprintf(&b, "%s failed %s validation", fe.Field(), fe.Tag())
		}
	}
	return b.String(), false
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(importdto.DomainError{
		Code:    "invalid_request",
		Message: msg,
	})
}

func importError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, importer.ErrImportInProgress):
		return c.Status(fiber.StatusConflict).JSON(importdto.DomainError{
			Code:      "import_in_progress",
			Message:   err.Error(),
			Retryable: true,
		})
	case errors.Is(err, importer.ErrUnsupportedPlatform), errors.Is(err, importer.ErrEmptyUsername):
		return badRequest(c, err.Error())
	default:
		obslog.L().Error("import_http_error", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(importdto.DomainError{
			Code:    "internal",
			Message: "internal error",
		})
	}
}
