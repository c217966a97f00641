package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	deviceDomain "github.com/allisson/envoy-gateway/internal/device/domain"
	"github.com/allisson/envoy-gateway/internal/device/http/dto"
	deviceUseCase "github.com/allisson/envoy-gateway/internal/device/usecase"
	apperrors "github.com/allisson/envoy-gateway/internal/errors"
	"github.com/allisson/envoy-gateway/internal/httputil"
	customValidation "github.com/allisson/envoy-gateway/internal/validation"
)

// DeviceHandler handles the signed device endpoints. Every route must be mounted
// behind SignatureMiddleware; handlers only ever parse the verified raw body.
type DeviceHandler struct {
	deviceUseCase deviceUseCase.DeviceUseCase
	logger        *slog.Logger
}

// NewDeviceHandler creates a new device handler with required dependencies.
func NewDeviceHandler(deviceUseCase deviceUseCase.DeviceUseCase, logger *slog.Logger) *DeviceHandler {
	return &DeviceHandler{
		deviceUseCase: deviceUseCase,
		logger:        logger,
	}
}

// RegisterRoutes mounts the device endpoints on router. middlewares run in order
// before each handler and must end with SignatureMiddleware.
func (h *DeviceHandler) RegisterRoutes(router gin.IRoutes, middlewares ...gin.HandlerFunc) {
	chain := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		handlers := make([]gin.HandlerFunc, 0, len(middlewares)+1)
		handlers = append(handlers, middlewares...)
		return append(handlers, handler)
	}

	router.POST("/boot", chain(h.BootHandler)...)
	router.POST("/directive", chain(h.DirectiveHandler)...)
	router.POST("/ingest", chain(h.IngestHandler)...)
}

// BootHandler records a boot announcement.
// POST /boot - Body: {"device_id": "...", "config_version": "..." | 5}.
// Returns 200 OK with {"status": "boot_ack", "flags": {...}}.
func (h *DeviceHandler) BootHandler(c *gin.Context) {
	body, ok := h.verifiedBody(c)
	if !ok {
		return
	}

	var req dto.BootRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httputil.HandleErrorGin(c, apperrors.Wrap(apperrors.ErrBadRequest, "invalid boot payload"), h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	ack, err := h.deviceUseCase.BootAnnounce(c.Request.Context(), req.DeviceID, string(req.ConfigVersion), c.ClientIP())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapBootAckToResponse(ack))
}

// DirectiveHandler returns the current directive. The body is only signed, never parsed.
// POST /directive - Returns 200 OK with {"directive_id", "action", "payload"}.
func (h *DeviceHandler) DirectiveHandler(c *gin.Context) {
	if _, ok := h.verifiedBody(c); !ok {
		return
	}

	directive, err := h.deviceUseCase.FetchDirective(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapDirectiveToResponse(directive))
}

// IngestHandler decrypts and stores an encrypted payload.
// POST /ingest?filename=<name> - Body: Fernet token bytes.
// Returns 200 OK with {"status": "ingest_ack", "filename", "size", "gcs_path"}.
func (h *DeviceHandler) IngestHandler(c *gin.Context) {
	body, ok := h.verifiedBody(c)
	if !ok {
		return
	}

	query := dto.IngestQuery{Filename: c.Query("filename")}
	if err := query.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	result, err := h.deviceUseCase.Ingest(c.Request.Context(), &deviceDomain.IngestUpload{
		Filename:    query.Filename,
		ContentType: c.GetHeader("Content-Type"),
		Token:       body,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.logger.Info("payload ingested",
		slog.String("filename", result.Filename),
		slog.Int("size", result.Size),
		slog.String("location", result.Location))

	c.JSON(http.StatusOK, dto.MapIngestResultToResponse(result))
}

// verifiedBody returns the body cached by SignatureMiddleware. A route mounted
// without the middleware fails closed with 401.
func (h *DeviceHandler) verifiedBody(c *gin.Context) ([]byte, bool) {
	body, ok := GetRawBody(c)
	if !ok {
		h.logger.Error("device handler reached without signature verification",
			slog.String("path", c.Request.URL.Path))
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return nil, false
	}
	return body, true
}
