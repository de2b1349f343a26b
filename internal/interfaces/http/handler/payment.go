package handler

import (
	"context"
	"time"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentService is the part of the payment application service the API uses
type PaymentService interface {
	Register(ctx context.Context, req ledgerapp.RegisterPaymentRequest) (*ledgerapp.PaymentResponse, error)
	RegisterAndApply(ctx context.Context, req ledgerapp.RegisterAndApplyRequest) (*ledgerapp.ReceiptApplication, error)
	ApplyPlan(ctx context.Context, paymentID uuid.UUID, entries []ledger.PlanEntry, appliedBy *uuid.UUID) (*ledgerapp.ApplyResult, error)
	GetByID(ctx context.Context, id uuid.UUID) (*ledgerapp.PaymentResponse, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*ledgerapp.PaymentResponse, error)
	Reject(ctx context.Context, id uuid.UUID, reason string) (*ledgerapp.PaymentResponse, error)
}

// PaymentHandler handles payment registration and distribution
type PaymentHandler struct {
	BaseHandler
	payments PaymentService
	now      func() time.Time
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments, now: time.Now}
}

// Register godoc
// @ID           registerPayment
// @Summary      Register a payment
// @Description  Records a confirmed payment without distributing it. Honors Idempotency-Key.
// @Tags         pagos
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Client chosen key making the request safe to retry"
// @Param        request body RegisterPaymentBody true "Payment"
// @Success      201 {object} APIResponse[PaymentDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /pagos [post]
func (h *PaymentHandler) Register(c *gin.Context) {
	var body RegisterPaymentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.HandleBindError(c, err)
		return
	}

	payment, err := h.payments.Register(c.Request.Context(), body.toRequest(middleware.GetOperatorID(c)))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toPaymentDTO(payment))
}

// RegisterAndApply godoc
// @ID           registerAndApplyPayment
// @Summary      Register a payment and apply it to one receipt
// @Description  Records the payment and applies its whole amount to the receipt. Both commit together or not at all.
// @Tags         pagos
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Client chosen key making the request safe to retry"
// @Param        request body RegisterAndApplyBody true "Payment and receipt"
// @Success      201 {object} APIResponse[ApplicationDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /pagos/registrar-y-aplicar [post]
func (h *PaymentHandler) RegisterAndApply(c *gin.Context) {
	var body RegisterAndApplyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.HandleBindError(c, err)
		return
	}

	app, err := h.payments.RegisterAndApply(c.Request.Context(), body.toRequest(middleware.GetOperatorID(c), h.now()))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toApplicationDTO(*app))
}

// Apply godoc
// @ID           applyPayment
// @Summary      Distribute a payment across receipts
// @Description  Validates the whole plan first, then applies it all-or-nothing. Results follow the request order.
// @Tags         pagos
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Client chosen key making the request safe to retry"
// @Param        request body ApplyPaymentBody true "Distribution plan"
// @Success      200 {object} APIResponse[ApplyResultDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse "Partially applied; error.outcomes lists each receipt"
// @Security     BearerAuth
// @Router       /pagos/aplicar [post]
func (h *PaymentHandler) Apply(c *gin.Context) {
	var body ApplyPaymentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.HandleBindError(c, err)
		return
	}

	result, err := h.payments.ApplyPlan(c.Request.Context(), body.IDPago, body.toPlan(), middleware.GetOperatorID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toApplyResultDTO(result))
}

// GetByID godoc
// @ID           getPayment
// @Summary      Get a payment
// @Description  Returns the payment with its allocations and undistributed remainder
// @Tags         pagos
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Success      200 {object} APIResponse[PaymentDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /pagos/{id} [get]
func (h *PaymentHandler) GetByID(c *gin.Context) {
	id, err := parseUUID("id", c.Param("id"))
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	payment, err := h.payments.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPaymentDTO(payment))
}

// Cancel godoc
// @ID           cancelPayment
// @Summary      Cancel a payment
// @Description  Voids a payment that has no allocations
// @Tags         pagos
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Param        request body VoidBody true "Reason"
// @Success      200 {object} APIResponse[PaymentDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /pagos/{id}/cancelar [post]
func (h *PaymentHandler) Cancel(c *gin.Context) {
	h.void(c, h.payments.Cancel)
}

// Reject godoc
// @ID           rejectPayment
// @Summary      Reject a payment
// @Description  Marks a bounced or refused payment that has no allocations
// @Tags         pagos
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Param        request body VoidBody true "Reason"
// @Success      200 {object} APIResponse[PaymentDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /pagos/{id}/rechazar [post]
func (h *PaymentHandler) Reject(c *gin.Context) {
	h.void(c, h.payments.Reject)
}

func (h *PaymentHandler) void(c *gin.Context, fn func(context.Context, uuid.UUID, string) (*ledgerapp.PaymentResponse, error)) {
	id, err := parseUUID("id", c.Param("id"))
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	var body VoidBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.HandleBindError(c, err)
		return
	}

	payment, err := fn(c.Request.Context(), id, body.Motivo)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPaymentDTO(payment))
}
