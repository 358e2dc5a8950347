package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-college/payment/order"
	"go-college/payment/qrcode"
	"go-college/web/db"
	"go-college/web/middleware"
)

const maxWebhookBody = 1 << 20

type Payments struct {
	svc             *order.Service
	keyID           string
	signatureHeader string
	log             *zap.Logger
}

// NewPayments wires the payment handlers. keyID is the public provider key
// the checkout widget needs; it is empty when the provider is not configured.
func NewPayments(svc *order.Service, keyID, signatureHeader string, log *zap.Logger) *Payments {
	return &Payments{svc: svc, keyID: keyID, signatureHeader: signatureHeader, log: log}
}

type createOrderRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"` // minor units
	Currency    string `json:"currency" binding:"omitempty,len=3"`
	PaymentType string `json:"paymentType" binding:"required"`
	Description string `json:"description" binding:"max=500"`
}

func (p *Payments) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Amount and paymentType are required; amount must be a positive integer")
		return
	}

	user := middleware.CurrentUser(c)
	o, err := p.svc.CreateOrder(c.Request.Context(), order.CreateOrderInput{
		UserID:      user.ID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Purpose:     req.PaymentType,
		Description: req.Description,
	})
	if err != nil {
		failWith(c, p.log, err, http.StatusBadRequest)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "order": o, "keyId": p.keyID})
}

type verifyRequest struct {
	ProviderOrderID   string `json:"providerOrderId" binding:"required"`
	ProviderPaymentID string `json:"providerPaymentId" binding:"required"`
	Signature         string `json:"signature" binding:"required"`
}

func (p *Payments) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "providerOrderId, providerPaymentId and signature are required")
		return
	}

	o, err := p.svc.Verify(c.Request.Context(), order.VerifyInput{
		ProviderOrderID:   req.ProviderOrderID,
		ProviderPaymentID: req.ProviderPaymentID,
		Signature:         req.Signature,
	})
	if err != nil {
		failWith(c, p.log, err, http.StatusBadRequest)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Payment verified successfully", "payment": o})
}

// Webhook must see the exact bytes the provider signed, so the body is read
// raw and never bound into a struct first.
func (p *Payments) Webhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	body, err := c.GetRawData()
	if err != nil {
		fail(c, http.StatusBadRequest, "Failed to read body")
		return
	}

	res, err := p.svc.HandleWebhook(c.Request.Context(), body, c.GetHeader(p.signatureHeader))
	if err != nil {
		failWith(c, p.log, err, http.StatusUnauthorized)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "event": res.Event, "handled": res.Handled})
}

func (p *Payments) MyPayments(c *gin.Context) {
	user := middleware.CurrentUser(c)
	orders, err := p.svc.ListForUser(c.Request.Context(), user.ID)
	if err != nil {
		failWith(c, p.log, err, http.StatusBadRequest)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(orders), "data": orders})
}

// ownedOrder loads :orderId for its owner or an admin. Anyone else gets 403.
func (p *Payments) ownedOrder(c *gin.Context) (*order.PaymentOrder, bool) {
	o, err := p.svc.Get(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		failWith(c, p.log, err, http.StatusBadRequest)
		return nil, false
	}
	user := middleware.CurrentUser(c)
	if o.UserID != user.ID && user.Role != db.RoleAdmin {
		fail(c, http.StatusForbidden, "Access denied")
		return nil, false
	}
	return o, true
}

func (p *Payments) Get(c *gin.Context) {
	o, ok := p.ownedOrder(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "payment": o})
}

func (p *Payments) Receipt(c *gin.Context) {
	o, ok := p.ownedOrder(c)
	if !ok {
		return
	}
	if o.Status != order.StatusCompleted {
		fail(c, http.StatusConflict, "Receipt is available once the payment is completed")
		return
	}

	png, err := qrcode.ReceiptPNG(*o)
	if err != nil {
		failWith(c, p.log, err, http.StatusBadRequest)
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, "image/png", png)
}

type refundRequest struct {
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Reason string `json:"reason" binding:"max=255"`
}

func (p *Payments) Refund(c *gin.Context) {
	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "A positive integer amount is required")
		return
	}

	o, err := p.svc.Refund(c.Request.Context(), c.Param("orderId"), req.Amount, req.Reason)
	if err != nil {
		failWith(c, p.log, err, http.StatusBadRequest)
		return
	}

	admin := middleware.CurrentUser(c)
	p.log.Info("refund recorded", zap.String("order_id", o.OrderID), zap.String("admin_id", admin.ID))
	c.JSON(http.StatusOK, gin.H{"success": true, "payment": o})
}
