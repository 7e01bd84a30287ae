package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"chatguard/internal/analytics"
	"chatguard/internal/bridge"
	"chatguard/internal/moderation"
	"chatguard/internal/spam"
	"chatguard/internal/storage"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Server struct {
	echo       *echo.Echo
	logger     *zap.Logger
	store      *storage.Store
	reports    *moderation.Service
	classifier *spam.Classifier
	analytics  *analytics.Service
}

func New(logger *zap.Logger, store *storage.Store, reports *moderation.Service, classifier *spam.Classifier, analyticsSvc *analytics.Service) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:       e,
		logger:     logger,
		store:      store,
		reports:    reports,
		classifier: classifier,
		analytics:  analyticsSvc,
	}

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.POST("/v1/reports", s.handleSubmitReport)
	e.POST("/v1/classify", s.handleClassify)
	e.GET("/v1/audit", s.handleAuditSummary)

	return s
}

func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

type submitReportRequest struct {
	ReporterID string `json:"reporter_id"`
	MessageID  string `json:"message_id"`
}

type reportResponse struct {
	ReporterID  string  `json:"reporter_id"`
	MessageID   string  `json:"message_id"`
	Weight      float64 `json:"weight"`
	SubmittedAt string  `json:"submitted_at"`
}

func (s *Server) handleSubmitReport(c echo.Context) error {
	var req submitReportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ReporterID == "" || req.MessageID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "reporter_id and message_id are required")
	}

	report, err := s.reports.SubmitReport(c.Request().Context(), req.ReporterID, req.MessageID)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, reportResponse{
		ReporterID:  report.ReporterID,
		MessageID:   report.MessageID,
		Weight:      report.Weight,
		SubmittedAt: report.SubmittedAt.UTC().Format(time.RFC3339),
	})
}

type classifyRequest struct {
	RoomID    string `json:"room_id"`
	AccountID string `json:"account_id"`
	MessageID string `json:"message_id"`
	Text      string `json:"text"`
}

func (s *Server) handleClassify(c echo.Context) error {
	var req classifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.RoomID == "" || req.AccountID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "room_id and account_id are required")
	}

	ctx := c.Request().Context()
	room, err := s.store.GetRoom(ctx, req.RoomID)
	if err != nil {
		return s.mapError(c, err)
	}
	account, err := s.store.GetAccount(ctx, req.AccountID)
	if err != nil {
		return s.mapError(c, err)
	}

	msg := storage.Message{
		ID:        req.MessageID,
		RoomID:    req.RoomID,
		AccountID: req.AccountID,
		Text:      req.Text,
	}
	isSpam, err := s.classifier.Classify(ctx, room, account, msg)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"spam": isSpam})
}

func (s *Server) handleAuditSummary(c echo.Context) error {
	since := time.Now().Add(-24 * time.Hour)
	if raw := c.QueryParam("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "since must be RFC3339")
		}
		since = parsed
	}

	summary, err := s.analytics.Summary(c.Request().Context(), since)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

func (s *Server) mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, bridge.ErrRoomNotBridged):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, moderation.ErrSelfReport):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, storage.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		s.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
