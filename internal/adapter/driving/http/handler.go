package httphandler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"runtime"

	"github.com/ericfisherdev/otpdeck/internal/domain/model"
)

// ConfigStager is the slice of the config store the control server needs.
// Uploads only ever reach the staged slot; status reads the authoritative one.
type ConfigStager interface {
	StageUpload(ctx context.Context, upload model.Upload) (int, error)
	Count(ctx context.Context) int
}

// Handler is the driving adapter that serves the configuration endpoints.
type Handler struct {
	configs ConfigStager
	page    []byte
	logger  *slog.Logger
}

// NewHandler creates a Handler. page is the pre-rendered configuration page
// served at GET /.
func NewHandler(configs ConfigStager, page []byte, logger *slog.Logger) *Handler {
	return &Handler{
		configs: configs,
		page:    page,
		logger:  logger,
	}
}

type route struct {
	method string
	path   string
}

// NewRouter returns a HandlerFunc dispatching the fixed route table, wrapped
// with logging and recovery middleware. Unknown routes get 404.
func NewRouter(h *Handler, logger *slog.Logger) HandlerFunc {
	routes := map[route]HandlerFunc{
		{"GET", "/"}:               h.Index,
		{"POST", "/upload_config"}: h.UploadConfig,
		{"GET", "/status"}:         h.Status,
	}

	dispatch := func(ctx context.Context, req *Request) Response {
		if fn, ok := routes[route{req.Method, req.Path}]; ok {
			return fn(ctx, req)
		}
		return writeText(StatusNotFound, "Not Found")
	}

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, dispatch)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Index serves the static configuration page.
func (h *Handler) Index(_ context.Context, _ *Request) Response {
	return Response{Status: StatusOK, ContentType: contentTypeHTML, Body: h.page}
}

// UploadConfig stages an uploaded configuration. The authoritative document
// is untouched; the display runtime promotes the staged one at its next
// checkpoint.
func (h *Handler) UploadConfig(ctx context.Context, req *Request) Response {
	if len(bytes.TrimSpace(req.Body)) == 0 {
		return writeError(StatusBadRequest, "no data")
	}

	upload, err := model.DecodeUpload(req.Body)
	if err != nil {
		return h.uploadError(req, err)
	}

	count, err := h.configs.StageUpload(ctx, upload)
	if err != nil {
		return h.uploadError(req, err)
	}

	h.logger.Info("configuration staged", "conn_id", req.ConnID, "accounts", count)

	return writeJSON(StatusOK, UploadResponse{
		Status:        "success",
		Message:       "Configuration uploaded successfully",
		AccountsCount: count,
	})
}

func (h *Handler) uploadError(req *Request, err error) Response {
	var verr *model.ValidationError
	switch {
	case errors.Is(err, model.ErrMalformedJSON):
		return writeError(StatusBadRequest, "invalid json")
	case errors.Is(err, model.ErrInvalidFormat):
		return writeError(StatusBadRequest, "invalid configuration format")
	case errors.As(err, &verr):
		return writeError(StatusBadRequest, verr.Error())
	default:
		h.logger.Error("failed to stage configuration", "conn_id", req.ConnID, "error", err)
		return writeError(StatusInternalServerError, "internal server error")
	}
}

// Status reports free memory and the number of authoritative accounts.
func (h *Handler) Status(ctx context.Context, _ *Request) Response {
	return writeJSON(StatusOK, StatusResponse{
		Status:             "ok",
		FreeMemory:         freeMemory(),
		AccountsConfigured: h.configs.Count(ctx),
	})
}

// freeMemory returns heap memory the runtime holds but is not using.
func freeMemory() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapIdle - m.HeapReleased
}
