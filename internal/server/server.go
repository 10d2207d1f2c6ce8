// Package server exposes the notification, checkout and reporting endpoints
// over HTTP.
package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yourorg/gateway-notify/internal/adapter"
	"github.com/yourorg/gateway-notify/internal/checkout"
	custom_context "github.com/yourorg/gateway-notify/internal/context"
	"github.com/yourorg/gateway-notify/internal/orchestrator"
	"github.com/yourorg/gateway-notify/internal/payment"
	"github.com/yourorg/gateway-notify/internal/reporting"
	"github.com/yourorg/gateway-notify/internal/store"
	"github.com/yourorg/gateway-notify/internal/verifier"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// maxNotificationBytes caps a notification body.
const maxNotificationBytes = 64 << 10

const (
	ackOK       = "OK"
	ackRejected = "REJECTED"
)

// NotificationHandler processes one gateway notification.
type NotificationHandler interface {
	Handle(traceCtx custom_context.TraceContext, gateway string, payload payment.Payload) (orchestrator.Outcome, error)
	HandleUnreadable(traceCtx custom_context.TraceContext, gateway string, cause error) orchestrator.Outcome
}

// FormBuilder builds checkout forms.
type FormBuilder interface {
	Build(traceCtx custom_context.TraceContext, orderID string, mode adapter.Mode) (checkout.Form, error)
}

// AttemptLister reads the attempt log.
type AttemptLister interface {
	ListAttempts(ctx context.Context, since time.Time, limit int) ([]payment.Attempt, error)
}

// Options tunes the HTTP layer.
type Options struct {
	// ServiceName names the otelgin server spans.
	ServiceName string
	// DeclineURL is used for redirect acknowledgements when the payment
	// method has no decline page of its own.
	DeclineURL string
}

// Server wires the HTTP routes to the notification pipeline.
type Server struct {
	notify   NotificationHandler
	forms    FormBuilder
	attempts AttemptLister
	reporter *reporting.RetrospectiveReporter
	opts     Options
	now      func() time.Time
}

// New creates a new Server.
func New(notify NotificationHandler, forms FormBuilder, attempts AttemptLister, opts Options) *Server {
	if notify == nil {
		panic("NotificationHandler cannot be nil")
	}
	if forms == nil {
		panic("FormBuilder cannot be nil")
	}
	if attempts == nil {
		panic("AttemptLister cannot be nil")
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "notifyd"
	}
	return &Server{
		notify:   notify,
		forms:    forms,
		attempts: attempts,
		reporter: reporting.NewRetrospectiveReporter(),
		opts:     opts,
		now:      time.Now,
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(s.opts.ServiceName), requestLogger())
	router.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.tmpl")))

	module := router.Group(adapter.NotifyPathPrefix)
	module.POST("/:gateway/notify", s.handleNotify)
	module.GET("/:gateway/notify", s.handleNotify)
	module.GET("/:gateway/checkout/:order_id", s.handleCheckout)

	router.GET("/admin/attempts/report", s.handleReport)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.InfoContext(c.Request.Context(), "Server: request served",
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	}
}

func (s *Server) handleNotify(c *gin.Context) {
	gateway := c.Param("gateway")
	backend := c.Query("mode") == string(adapter.ModeBackendReprocess)

	traceCtx := custom_context.NewTraceContext(c.Request.Context())
	payload, err := readPayload(c)
	if err != nil {
		slog.WarnContext(c.Request.Context(), "Server: unreadable notification body", "gateway", gateway, "error", err)
		out := s.notify.HandleUnreadable(traceCtx, gateway, err)
		if out.Kind == verifier.KindUnknownGateway {
			c.String(http.StatusNotFound, "unknown gateway")
			return
		}
		c.String(http.StatusBadRequest, "invalid notification body")
		return
	}

	out, err := s.notify.Handle(traceCtx, gateway, payload)
	if err != nil {
		// The gateway retries on 5xx; the attempt is already logged.
		c.String(http.StatusServiceUnavailable, "temporarily unavailable")
		return
	}
	s.acknowledge(c, out, backend)
}

// readPayload returns the posted form fields, or the query fields minus the
// routing "mode" parameter for GET notifications.
func readPayload(c *gin.Context) (payment.Payload, error) {
	if c.Request.Method == http.MethodGet {
		q := c.Request.URL.Query()
		q.Del("mode")
		return payment.PayloadFromForm(q), nil
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxNotificationBytes)
	if err := c.Request.ParseForm(); err != nil {
		return nil, err
	}
	return payment.PayloadFromForm(c.Request.PostForm), nil
}

func (s *Server) acknowledge(c *gin.Context, out orchestrator.Outcome, backend bool) {
	if out.Kind == verifier.KindUnknownGateway {
		c.String(http.StatusNotFound, "unknown gateway")
		return
	}
	if out.Ack == adapter.AckPlain {
		if out.Success() {
			c.String(http.StatusOK, ackOK)
		} else {
			c.String(http.StatusOK, ackRejected)
		}
		return
	}

	target := s.opts.DeclineURL
	switch {
	case out.Success() && out.Config != nil:
		target = out.Config.ReceiptFor(out.OrderID, backend)
	case out.DeclineURL != "":
		target = out.DeclineURL
	}
	c.HTML(http.StatusOK, "redirect.tmpl", gin.H{"URL": target, "Message": out.Message})
}

func (s *Server) handleCheckout(c *gin.Context) {
	gateway := c.Param("gateway")
	orderID := c.Param("order_id")

	mode, err := adapter.ParseMode(c.Query("mode"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	form, err := s.forms.Build(custom_context.NewTraceContext(c.Request.Context()), orderID, mode)
	if err != nil {
		status := checkoutStatus(err)
		if status >= http.StatusInternalServerError {
			slog.ErrorContext(c.Request.Context(), "Server: checkout form failed", "order_id", orderID, "error", err)
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	if form.Gateway != gateway {
		c.JSON(http.StatusNotFound, gin.H{"error": "order " + orderID + " is not paid with " + gateway})
		return
	}

	if c.Query("format") == "html" {
		c.HTML(http.StatusOK, "checkout.tmpl", form)
		return
	}
	c.JSON(http.StatusOK, form)
}

func checkoutStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, checkout.ErrOrderAlreadyPaid):
		return http.StatusConflict
	case errors.Is(err, checkout.ErrNoPaymentMethod),
		errors.Is(err, checkout.ErrUnsupportedGateway),
		errors.Is(err, adapter.ErrInvalidOrder),
		errors.Is(err, adapter.ErrMissingCredential):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) handleReport(c *gin.Context) {
	window, err := time.ParseDuration(c.DefaultQuery("since", "24h"))
	if err != nil || window <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "since must be a positive duration such as 24h"})
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
	}

	attempts, err := s.attempts.ListAttempts(c.Request.Context(), s.now().Add(-window), limit)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "Server: listing attempts failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "attempt log unavailable"})
		return
	}
	report, err := s.reporter.GenerateRetrospective(attempts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"window":       window.String(),
		"success_rate": report.SuccessRate(),
		"report":       report,
	})
}

