package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Brownie44l1/fracture-api/internal/diagnosis"
)

const (
	msgNoFile   = "No file selected. Please upload an image."
	msgNotXray  = "The uploaded image does not appear to be an X-ray. Please upload a valid X-ray image."
	msgTooLarge = "The uploaded file is too large."

	uploadField = "xray"
)

var errNoFile = errors.New("no file uploaded")

type Diagnoser interface {
	Diagnose(path string) (*diagnosis.Result, error)
}

type Handler struct {
	diagnoser Diagnoser
	uploadDir string
	maxUpload int64
	logger    *zap.Logger
}

// NewHandler serves uploads into uploadDir, which must exist. maxUpload
// caps the request body in bytes.
func NewHandler(diagnoser Diagnoser, uploadDir string, maxUpload int64, logger *zap.Logger) *Handler {
	return &Handler{
		diagnoser: diagnoser,
		uploadDir: uploadDir,
		maxUpload: maxUpload,
		logger:    logger.Named("handlers"),
	}
}

func (h *Handler) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *Handler) Index(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "index.html", gin.H{})
}

// Upload handles the form post and renders the outcome as HTML. Every
// outcome is a 200 page; errors are shown to the user.
func (h *Handler) Upload(ctx *gin.Context) {
	filename, result, err := h.process(ctx)
	switch {
	case errors.Is(err, errNoFile):
		ctx.HTML(http.StatusOK, "index.html", gin.H{"Error": msgNoFile})
	case isTooLarge(err):
		ctx.HTML(http.StatusOK, "index.html", gin.H{"Error": msgTooLarge})
	case err != nil:
		ctx.HTML(http.StatusOK, "result.html", gin.H{"Error": userMessage(err), "Image": filename})
	default:
		ctx.HTML(http.StatusOK, "result.html", gin.H{
			"Prediction":   result.Label,
			"Confidence":   result.Confidence,
			"Image":        filename,
			"FractureInfo": result.Fracture,
		})
	}
}

// PredictFromImage is the JSON flavour of Upload.
func (h *Handler) PredictFromImage(ctx *gin.Context) {
	filename, result, err := h.process(ctx)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, errNoFile):
			status = http.StatusBadRequest
		case isTooLarge(err):
			status = http.StatusRequestEntityTooLarge
		case errors.Is(err, diagnosis.ErrNotXray):
			status = http.StatusUnprocessableEntity
		}
		ctx.JSON(status, gin.H{"error": userMessage(err), "image": filename})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"label":      result.Label,
		"confidence": result.Confidence,
		"image":      filename,
		"fracture":   result.Fracture,
	})
}

// process stores the upload under its client filename and diagnoses it.
// The file is kept on disk whatever the outcome.
func (h *Handler) process(ctx *gin.Context) (string, *diagnosis.Result, error) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, h.maxUpload)

	header, err := ctx.FormFile(uploadField)
	if err != nil {
		if isTooLarge(err) {
			return "", nil, err
		}
		h.logger.Debug("no upload in request", zap.Error(err))
		return "", nil, errNoFile
	}
	if header.Filename == "" {
		return "", nil, errNoFile
	}

	filename := header.Filename
	path := filepath.Join(h.uploadDir, filename)
	if err := ctx.SaveUploadedFile(header, path); err != nil {
		h.logger.Error("save upload", zap.String("path", path), zap.Error(err))
		return filename, nil, &diagnosis.ProcessingError{Err: fmt.Errorf("save upload: %w", err)}
	}

	h.logger.Info("received file",
		zap.String("filename", filename),
		zap.Int64("size", header.Size),
		zap.String("request_id", ctx.GetString(requestIDKey)))

	result, err := h.diagnoser.Diagnose(path)
	return filename, result, err
}

func userMessage(err error) string {
	var pe *diagnosis.ProcessingError
	switch {
	case errors.Is(err, errNoFile):
		return msgNoFile
	case isTooLarge(err):
		return msgTooLarge
	case errors.Is(err, diagnosis.ErrNotXray):
		return msgNotXray
	case errors.As(err, &pe):
		// The cause is shown verbatim. Fine for a demo, redact before exposing publicly.
		return "Error processing image: " + pe.Err.Error()
	default:
		return "Error processing image: " + err.Error()
	}
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// EnsureDir creates the upload directory if needed.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	return nil
}
