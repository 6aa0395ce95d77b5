package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rmitchellscott/pdfgateway/internal/gateway"
	"github.com/rmitchellscott/pdfgateway/internal/logging"
	"github.com/rmitchellscott/pdfgateway/internal/staging"
)

// maxMemory is how much of a multipart body is held in memory before
// spilling to temp files.
const maxMemory = 32 << 20

// OperationHandler adapts HTTP uploads to gateway requests.
type OperationHandler struct {
	gw     *gateway.Gateway
	stager *staging.Stager
	log    zerolog.Logger

	// bodyLimit overrides the per-operation request body cap when set.
	bodyLimit int64
}

func NewOperationHandler(gw *gateway.Gateway, stager *staging.Stager) *OperationHandler {
	return &OperationHandler{gw: gw, stager: stager, log: logging.Default()}
}

// Handle returns the handler for op.
func (h *OperationHandler) Handle(op gateway.Operation) gin.HandlerFunc {
	spec, ok := gateway.Lookup(op)
	if !ok {
		panic("handlers: unknown operation " + string(op))
	}

	// Room for every allowed file at its cap plus the text fields.
	maxBody := int64(max(spec.Limits.MaxFiles, 1))*spec.Limits.UploadCap + maxMemory
	if h.bodyLimit > 0 {
		maxBody = h.bodyLimit
	}

	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		fail := func(status int, msg string) {
			c.JSON(status, gateway.ErrorBody(spec, gateway.ErrorReport{Status: status, Message: msg}))
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBody)

		// A request that is not multipart at all carries no files; the
		// pipeline reports that with the operation's own message.
		err := c.Request.ParseMultipartForm(maxMemory)
		if c.Request.MultipartForm != nil {
			defer c.Request.MultipartForm.RemoveAll()
		}
		var tooBig *http.MaxBytesError
		switch {
		case err == nil, errors.Is(err, http.ErrNotMultipart):
		case errors.As(err, &tooBig):
			fail(http.StatusRequestEntityTooLarge, "File too large")
			return
		default:
			h.log.Warn().Err(err).Str("request_id", requestID).Msg("invalid multipart form")
			fail(http.StatusBadRequest, "Invalid multipart form")
			return
		}

		files, fields := formParts(c.Request, spec.PartName)

		staged, err := h.stager.Stage(c.Request.Context(), files, spec.Limits.UploadCap)
		if err != nil {
			if errors.Is(err, staging.ErrFileTooLarge) {
				report := gateway.Classify(spec, err)
				fail(report.Status, report.Message)
				return
			}
			h.log.Error().Err(err).Str("request_id", requestID).Msg("staging failed")
			fail(http.StatusInternalServerError, "Failed to store upload")
			return
		}

		reply := h.gw.Handle(c.Request.Context(), gateway.Request{
			ID:     requestID,
			Op:     op,
			Files:  staged,
			Fields: fields,
		})
		c.JSON(reply.Status, reply.Body)
	}
}
