package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxListLimit = 1000

// ReceiptService is the part of the receipt application service the API uses
type ReceiptService interface {
	Issue(ctx context.Context, req ledgerapp.IssueReceiptsRequest) ([]ledgerapp.ReceiptResponse, error)
	List(ctx context.Context, filter ledger.ReceiptFilter) ([]ledgerapp.ReceiptResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*ledgerapp.ReceiptResponse, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*ledgerapp.ReceiptResponse, error)
	Waive(ctx context.Context, id uuid.UUID, reason string) (*ledgerapp.ReceiptResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Print(ctx context.Context, id uuid.UUID) (*ledgerapp.PrintedReceipt, error)
}

// RepairService finds and fixes receipts issued without lines
type RepairService interface {
	FindDefective(ctx context.Context, filter ledger.ReceiptFilter) ([]ledgerapp.ReceiptResponse, error)
	RepairAll(ctx context.Context, filter ledger.ReceiptFilter) (*ledgerapp.RepairSummary, error)
}

// ReceiptHandler handles receipt issuance, queries and maintenance
type ReceiptHandler struct {
	BaseHandler
	receipts ReceiptService
	repair   RepairService
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(receipts ReceiptService, repair RepairService) *ReceiptHandler {
	return &ReceiptHandler{receipts: receipts, repair: repair}
}

// Issue godoc
// @ID           issueReceipts
// @Summary      Issue receipts
// @Description  Creates every receipt of the batch with balance equal to total, or none of them
// @Tags         recibos
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Client chosen key making the request safe to retry"
// @Param        request body IssueReceiptsBody true "Receipts"
// @Success      201 {object} APIResponse[[]ReceiptDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /recibos/generar [post]
func (h *ReceiptHandler) Issue(c *gin.Context) {
	var body IssueReceiptsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.HandleBindError(c, err)
		return
	}

	req := ledgerapp.IssueReceiptsRequest{Receipts: make([]ledger.ReceiptDraft, len(body.Recibos))}
	for i, rb := range body.Recibos {
		draft, err := rb.toDraft()
		if err != nil {
			h.HandleError(c, fmt.Errorf("receipt %d: %w", i+1, err))
			return
		}
		req.Receipts[i] = draft
	}

	receipts, err := h.receipts.Issue(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toReceiptDTOs(receipts))
}

// List godoc
// @ID           listReceipts
// @Summary      List receipts
// @Description  Receipts of a student or period with their lines. estatus is derived at request time.
// @Tags         recibos
// @Produce      json
// @Param        idEstudiante query string false "Student ID" format(uuid)
// @Param        idPeriodo query string false "Period ID" format(uuid)
// @Param        estatus query string false "Comma separated statuses" example(PENDING,OVERDUE)
// @Param        limite query int false "Maximum receipts returned" maximum(1000)
// @Success      200 {object} APIResponse[[]ReceiptDTO]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /recibos [get]
func (h *ReceiptHandler) List(c *gin.Context) {
	filter, err := receiptFilterFromQuery(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if filter.StudentID == nil && filter.PeriodID == nil {
		h.BadRequest(c, "idEstudiante or idPeriodo is required")
		return
	}

	receipts, err := h.receipts.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, toReceiptDTOs(receipts), len(receipts))
}

// GetByID godoc
// @ID           getReceipt
// @Summary      Get a receipt
// @Description  One receipt with its lines and allocation history
// @Tags         recibos
// @Produce      json
// @Param        id path string true "Receipt ID" format(uuid)
// @Success      200 {object} APIResponse[ReceiptDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /recibos/{id} [get]
func (h *ReceiptHandler) GetByID(c *gin.Context) {
	id, err := parseUUID("id", c.Param("id"))
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	receipt, err := h.receipts.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toReceiptDTO(*receipt))
}

// Print godoc
// @ID           printReceipt
// @Summary      Print a receipt
// @Description  Renders the receipt as a PDF document. Requires printing to be enabled.
// @Tags         recibos
// @Produce      application/pdf
// @Param        id path string true "Receipt ID" format(uuid)
// @Success      200 {file} file
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /recibos/{id}/pdf [get]
func (h *ReceiptHandler) Print(c *gin.Context) {
	id, err := parseUUID("id", c.Param("id"))
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	doc, err := h.receipts.Print(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", doc.FileName))
	c.Data(http.StatusOK, doc.ContentType, doc.Body)
}

// Cancel godoc
// @ID           cancelReceipt
// @Summary      Cancel a receipt
// @Description  Administrative cancellation. The receipt stops accepting payments.
// @Tags         recibos
// @Accept       json
// @Produce      json
// @Param        id path string true "Receipt ID" format(uuid)
// @Param        request body VoidBody true "Reason"
// @Success      200 {object} APIResponse[ReceiptDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /recibos/{id}/cancelar [post]
func (h *ReceiptHandler) Cancel(c *gin.Context) {
	h.close(c, h.receipts.Cancel)
}

// Waive godoc
// @ID           waiveReceipt
// @Summary      Waive a receipt
// @Description  Administrative write-off of the outstanding balance
// @Tags         recibos
// @Accept       json
// @Produce      json
// @Param        id path string true "Receipt ID" format(uuid)
// @Param        request body VoidBody true "Reason"
// @Success      200 {object} APIResponse[ReceiptDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /recibos/{id}/condonar [post]
func (h *ReceiptHandler) Waive(c *gin.Context) {
	h.close(c, h.receipts.Waive)
}

func (h *ReceiptHandler) close(c *gin.Context, fn func(context.Context, uuid.UUID, string) (*ledgerapp.ReceiptResponse, error)) {
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

	receipt, err := fn(c.Request.Context(), id, body.Motivo)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toReceiptDTO(*receipt))
}

// Delete godoc
// @ID           deleteReceipt
// @Summary      Delete a receipt
// @Description  Only receipts without allocations can be deleted
// @Tags         recibos
// @Param        id path string true "Receipt ID" format(uuid)
// @Success      204
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /recibos/{id} [delete]
func (h *ReceiptHandler) Delete(c *gin.Context) {
	id, err := parseUUID("id", c.Param("id"))
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if err := h.receipts.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ListDefective godoc
// @ID           listDefectiveReceipts
// @Summary      List receipts without lines
// @Tags         recibos
// @Produce      json
// @Param        idEstudiante query string false "Student ID" format(uuid)
// @Param        idPeriodo query string false "Period ID" format(uuid)
// @Param        limite query int false "Maximum receipts returned" maximum(1000)
// @Success      200 {object} APIResponse[[]ReceiptDTO]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /recibos/defectuosos [get]
func (h *ReceiptHandler) ListDefective(c *gin.Context) {
	filter, err := receiptFilterFromQuery(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	receipts, err := h.repair.FindDefective(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, toReceiptDTOs(receipts), len(receipts))
}

// Repair godoc
// @ID           repairReceipts
// @Summary      Repair receipts without lines
// @Description  Adds a single regularization line to every defective receipt. Balances and statuses are left untouched.
// @Tags         recibos
// @Produce      json
// @Param        idEstudiante query string false "Student ID" format(uuid)
// @Param        idPeriodo query string false "Period ID" format(uuid)
// @Success      200 {object} APIResponse[RepairResultDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /recibos/reparar [post]
func (h *ReceiptHandler) Repair(c *gin.Context) {
	filter, err := receiptFilterFromQuery(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	summary, err := h.repair.RepairAll(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toRepairResultDTO(summary))
}

func receiptFilterFromQuery(c *gin.Context) (ledger.ReceiptFilter, error) {
	var filter ledger.ReceiptFilter
	if raw := c.Query("idEstudiante"); raw != "" {
		id, err := parseUUID("idEstudiante", raw)
		if err != nil {
			return filter, err
		}
		filter.StudentID = &id
	}
	if raw := c.Query("idPeriodo"); raw != "" {
		id, err := parseUUID("idPeriodo", raw)
		if err != nil {
			return filter, err
		}
		filter.PeriodID = &id
	}
	if raw := c.Query("estatus"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status := ledger.ReceiptStatus(strings.ToUpper(strings.TrimSpace(part)))
			if !status.IsValid() {
				return filter, fmt.Errorf("unknown estatus %q", part)
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if raw := c.Query("limite"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			return filter, fmt.Errorf("limite must be between 1 and %d", maxListLimit)
		}
		filter.Limit = n
	}
	return filter, nil
}
