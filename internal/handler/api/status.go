package api

import (
	"context"
	"net/http"
	"time"

	"DigitPulse/internal/domain/repository"
	"DigitPulse/internal/usecase"
	xhttp "DigitPulse/pkg/http"
	xlogger "DigitPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// StatusHandler exposes the engine's operational surface: liveness,
// the current snapshot, and recently archived trades.
type StatusHandler struct {
	logger    *xlogger.Logger
	collector *usecase.TickCollector
	stream    repository.VenueStream
	state     repository.StateStore
	trades    repository.TradeLog
}

// NewStatusHandler wires the handler; state and trades may be nil when
// those backends are disabled.
func NewStatusHandler(
	logger *xlogger.Logger,
	collector *usecase.TickCollector,
	stream repository.VenueStream,
	state repository.StateStore,
	trades repository.TradeLog,
) *StatusHandler {
	return &StatusHandler{
		logger:    logger,
		collector: collector,
		stream:    stream,
		state:     state,
		trades:    trades,
	}
}

func (h *StatusHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api")
	g.GET("/status", h.Status)
	g.GET("/trades/recent", h.RecentTrades)
}

// Health pings each backend with a short deadline and reports per
// dependency status. Degraded backends return 503 so orchestrators can
// act on it.
func (h *StatusHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	deps := map[string]string{}
	healthy := true

	if h.stream != nil {
		if h.stream.IsConnected() {
			deps["venue"] = "up"
		} else {
			deps["venue"] = "down"
			healthy = false
		}
	}
	if h.state != nil {
		if err := h.state.Health(ctx); err != nil {
			deps["state_store"] = "down"
			healthy = false
		} else {
			deps["state_store"] = "up"
		}
	}
	if h.trades != nil {
		if err := h.trades.Health(ctx); err != nil {
			deps["trade_log"] = "down"
			healthy = false
		} else {
			deps["trade_log"] = "up"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, map[string]interface{}{
		"healthy":      healthy,
		"dependencies": deps,
		"time":         time.Now().UTC(),
	})
}

// Status renders the live engine snapshot through the dispatch loop.
func (h *StatusHandler) Status(c echo.Context) error {
	snap, err := h.collector.Snapshot(c.Request().Context())
	if err != nil {
		h.logger.Error("snapshot request failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, snap)
}

// RecentTrades lists archived resolved trades, newest first.
func (h *StatusHandler) RecentTrades(c echo.Context) error {
	if h.trades == nil {
		return xhttp.SuccessResponse(c, []interface{}{})
	}
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 50)
	records, err := h.trades.Recent(c.Request().Context(), limit)
	if err != nil {
		h.logger.Error("recent trades query failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, records, int64(len(records)))
}
