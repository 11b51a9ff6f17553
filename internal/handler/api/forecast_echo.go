package api

import (
	"errors"

	"CoinCast/internal/domain/models"
	"CoinCast/internal/forecast"
	"CoinCast/internal/usecase"
	pkghttp "CoinCast/pkg/http"
	"CoinCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ForecastHandler exposes the forecasting use case over HTTP.
type ForecastHandler struct {
	svc *usecase.ForecastService
	log *logger.Logger
}

// NewForecastHandler creates the HTTP handler.
func NewForecastHandler(svc *usecase.ForecastService, log *logger.Logger) *ForecastHandler {
	return &ForecastHandler{svc: svc, log: log}
}

// RegisterRoutes mounts the API routes.
func (h *ForecastHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/forecast", h.Forecast)
	g.POST("/train", h.Train)
	g.GET("/symbols", h.Symbols)
	g.GET("/live", h.Live)
	g.GET("/history", h.History)
}

// Forecast serves POST /api/forecast.
func (h *ForecastHandler) Forecast(c echo.Context) error {
	req := new(models.ForecastRequest)
	if errs := pkghttp.ReadAndValidateRequest(c, req); errs != nil {
		return pkghttp.BadRequestResponse(c, errs)
	}

	res, err := h.svc.Forecast(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return pkghttp.SuccessResponse(c, res)
}

// Train serves POST /api/train.
func (h *ForecastHandler) Train(c echo.Context) error {
	req := new(models.TrainRequest)
	if errs := pkghttp.ReadAndValidateRequest(c, req); errs != nil {
		return pkghttp.BadRequestResponse(c, errs)
	}

	report, err := h.svc.Train(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return pkghttp.SuccessResponse(c, report)
}

// Symbols serves GET /api/symbols.
func (h *ForecastHandler) Symbols(c echo.Context) error {
	symbols := h.svc.Symbols()
	return pkghttp.ListResponse(c, symbols, int64(len(symbols)))
}

// Live serves GET /api/live?symbol=BTC-USD.
func (h *ForecastHandler) Live(c echo.Context) error {
	symbol := c.QueryParam("symbol")
	if symbol == "" {
		return pkghttp.AppErrorResponse(c, pkghttp.BadRequestError("symbol query parameter is required"))
	}

	price, err := h.svc.Live(c.Request().Context(), symbol)
	if err != nil {
		return h.fail(c, err)
	}
	return pkghttp.SuccessResponse(c, price)
}

// History serves GET /api/history.
func (h *ForecastHandler) History(c echo.Context) error {
	req := new(models.HistoryRequest)
	if errs := pkghttp.ReadAndValidateRequest(c, req); errs != nil {
		return pkghttp.BadRequestResponse(c, errs)
	}

	recs, err := h.svc.History(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return pkghttp.ListResponse(c, recs, int64(len(recs)))
}

// fail maps domain errors onto HTTP statuses.
func (h *ForecastHandler) fail(c echo.Context, err error) error {
	h.log.Error("request failed",
		logger.String("path", c.Path()),
		logger.Error(err),
	)

	switch {
	case errors.Is(err, usecase.ErrUnknownSymbol),
		errors.Is(err, forecast.ErrUnknownArchitecture),
		errors.Is(err, forecast.ErrInsufficientData):
		return pkghttp.AppErrorResponse(c, pkghttp.BadRequestError(err.Error()).WithError(err))
	case errors.Is(err, forecast.ErrArtifactNotFound):
		return pkghttp.AppErrorResponse(c, pkghttp.NotFoundError(err.Error()).WithError(err))
	case errors.Is(err, forecast.ErrDataUnavailable):
		return pkghttp.AppErrorResponse(c, pkghttp.BadGatewayError(err.Error()).WithError(err))
	default:
		return pkghttp.AppErrorResponse(c, pkghttp.InternalError("internal error").WithError(err))
	}
}
