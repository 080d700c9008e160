// internal/handler/webhook_handler.go
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Isadevans/lucro-backend/internal/metrics"
	"github.com/Isadevans/lucro-backend/internal/models"
	"github.com/Isadevans/lucro-backend/internal/service"
)

// StatusReconciler applies gateway status changes
type StatusReconciler interface {
	Reconcile(ctx context.Context, transactionID int64, newStatus string, data *models.BlackoutTransaction) service.Result
}

type WebhookHandler struct {
	reconciler StatusReconciler
	logger     *zap.Logger
}

func NewWebhookHandler(reconciler StatusReconciler, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		reconciler: reconciler,
		logger:     logger,
	}
}

// BlackoutWebhook handles POST /api/blackout/webhook. Every failure answers
// with a generic 400 so the gateway sees no internals.
func (h *WebhookHandler) BlackoutWebhook(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("panic while processing webhook", zap.Any("panic", r))
			metrics.WebhooksReceived.WithLabelValues("error").Inc()
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Error processing webhook"})
		}
	}()

	var hook models.BlackoutWebhook
	if err := c.ShouldBindJSON(&hook); err != nil {
		h.logger.Warn("malformed webhook body", zap.Error(err))
		metrics.WebhooksReceived.WithLabelValues("error").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error processing webhook"})
		return
	}

	transactionID, err := hook.Data.TransactionID()
	if err != nil {
		h.logger.Warn("webhook with invalid transaction id", zap.ByteString("id", hook.Data.ID))
		metrics.WebhooksReceived.WithLabelValues("invalid_id").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction ID"})
		return
	}

	h.logger.Info("webhook received",
		zap.Int64("transaction_id", transactionID),
		zap.String("status", hook.Data.Status),
		zap.String("type", hook.Type))

	result := h.reconciler.Reconcile(c.Request.Context(), transactionID, hook.Data.Status, &hook.Data)
	if !result.OK() {
		metrics.WebhooksReceived.WithLabelValues("failed").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to update payment"})
		return
	}

	metrics.WebhooksReceived.WithLabelValues("success").Inc()
	c.JSON(http.StatusOK, gin.H{"success": true})
}
