// internal/handler/payment_handler.go
package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Isadevans/lucro-backend/internal/models"
	"github.com/Isadevans/lucro-backend/internal/realtime"
	"github.com/Isadevans/lucro-backend/internal/repository"
	"github.com/Isadevans/lucro-backend/internal/service"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	keepAliveInterval    = 25 * time.Second
)

type PaymentService interface {
	CreatePayment(ctx context.Context, req *models.CheckoutRequest, clientIP, idempotencyKey string) (*models.CheckoutResponse, error)
	GetPayment(ctx context.Context, documentID string) (*models.Payment, error)
	GetPaymentByTransaction(ctx context.Context, transactionID int64) (*models.Payment, error)
}

// RoomSubscriber hands out live subscriptions to a room
type RoomSubscriber interface {
	Join(room string) *realtime.Subscription
	Leave(sub *realtime.Subscription)
}

type PaymentHandler struct {
	service PaymentService
	syncer  service.AttributionSyncer
	rooms   RoomSubscriber
	logger  *zap.Logger
}

func NewPaymentHandler(svc PaymentService, syncer service.AttributionSyncer, rooms RoomSubscriber, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: svc,
		syncer:  syncer,
		rooms:   rooms,
		logger:  logger,
	}
}

// CreatePayment handles POST /api/payments
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment request", "details": err.Error()})
		return
	}

	resp, err := h.service.CreatePayment(c.Request.Context(), &req, c.ClientIP(), c.GetHeader(IdempotencyKeyHeader))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetPayment handles GET /api/payments/:documentId
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	payment, err := h.service.GetPayment(c.Request.Context(), c.Param("documentId"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payment})
}

// GetPaymentByTransaction handles GET /api/payments/transaction/:transactionId
func (h *PaymentHandler) GetPaymentByTransaction(c *gin.Context) {
	transactionID, ok := transactionParam(c)
	if !ok {
		return
	}

	payment, err := h.service.GetPaymentByTransaction(c.Request.Context(), transactionID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payment})
}

type resyncRequest struct {
	Status string `json:"status"`
}

// ResyncPayment handles POST /api/payments/transaction/:transactionId/resync.
// An optional {"status": "..."} body overrides the persisted status.
func (h *PaymentHandler) ResyncPayment(c *gin.Context) {
	transactionID, ok := transactionParam(c)
	if !ok {
		return
	}

	var req resyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid resync request", "details": err.Error()})
			return
		}
	}

	ctx := c.Request.Context()
	if _, err := h.service.GetPaymentByTransaction(ctx, transactionID); err != nil {
		h.renderError(c, err)
		return
	}

	if !h.syncer.UpdateAttribution(ctx, transactionID, req.Status) {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to sync attribution"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// PaymentEvents handles GET /api/payments/:documentId/events. The stream
// joins the payment's room and relays its events as server-sent events.
func (h *PaymentHandler) PaymentEvents(c *gin.Context) {
	room := c.Param("documentId")
	sub := h.rooms.Join(room)
	defer h.rooms.Leave(sub)

	h.logger.Info("client joined room", zap.String("room", room), zap.String("client_ip", c.ClientIP()))

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	c.SSEvent("joined", gin.H{"room": room})
	c.Writer.Flush()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case ev, ok := <-sub.Events:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, ev.Data)
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", gin.H{"time": time.Now().UTC()})
			return true
		}
	})
}

func (h *PaymentHandler) renderError(c *gin.Context, err error) {
	var appErr *service.AppError
	switch {
	case errors.As(err, &appErr):
		body := gin.H{"error": appErr.Message}
		if appErr.Details != nil {
			body["details"] = appErr.Details
		}
		c.JSON(appErr.Status, body)
	case errors.Is(err, repository.ErrPaymentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
	default:
		h.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func transactionParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("transactionId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction ID"})
		return 0, false
	}
	return id, true
}
