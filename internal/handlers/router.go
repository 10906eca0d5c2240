package handlers

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDKey = "request_id"

//go:embed templates/*.html
var templatesFS embed.FS

func loadTemplates() *template.Template {
	funcs := template.FuncMap{
		"percent": func(v *float64) string {
			if v == nil {
				return ""
			}
			return formatPercent(*v)
		},
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templatesFS, "templates/*.html"))
}

// NewRouter wires the HTML form, the JSON API and the static upload
// directory onto a gin engine.
func NewRouter(h *Handler, logger *zap.Logger) *gin.Engine {
	eng := gin.New()
	eng.Use(requestID(), accessLog(logger.Named("http")), gin.Recovery(), cors())
	eng.SetHTMLTemplate(loadTemplates())

	eng.GET("/", h.Index)
	eng.POST("/", h.Upload)
	eng.GET("/health", h.Health)
	eng.POST("/api/predict", h.PredictFromImage)
	eng.Static("/static", h.uploadDir)

	return eng
}

func requestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		ctx.Set(requestIDKey, id)
		ctx.Header("X-Request-ID", id)
		ctx.Next()
	}
}

func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		logger.Info("request",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.Int("status", ctx.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", ctx.GetString(requestIDKey)))
	}
}

func cors() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Header("Access-Control-Allow-Origin", "*")
		ctx.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		ctx.Header("Access-Control-Allow-Headers", "Content-Type")

		if ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusOK)
			return
		}
		ctx.Next()
	}
}
