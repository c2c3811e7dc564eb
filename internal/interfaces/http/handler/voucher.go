package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ledgerkeep/backend/internal/application/voucher"
	"github.com/ledgerkeep/backend/internal/domain/numbering"
	"github.com/ledgerkeep/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// IdempotencyKeyHeader carries the client-chosen submission key. Repeated
// POSTs with the same key within the retention window are rejected instead
// of allocating a second voucher number.
const IdempotencyKeyHeader = "X-Idempotency-Key"

// VoucherHandler handles voucher related API endpoints
type VoucherHandler struct {
	BaseHandler
	service *voucher.VoucherService
}

// NewVoucherHandler creates a new VoucherHandler
func NewVoucherHandler(service *voucher.VoucherService) *VoucherHandler {
	return &VoucherHandler{service: service}
}

// CreateVoucherRequest represents a request to create a voucher
type CreateVoucherRequest struct {
	VoucherKind string  `json:"voucher_kind" binding:"required" example:"payment"`
	VoucherDate string  `json:"voucher_date" binding:"required" example:"2026-07-15"`
	PartyName   string  `json:"party_name" binding:"required,max=200" example:"Acme Traders"`
	Amount      float64 `json:"amount" binding:"required,gt=0" example:"2500.00"`
	Narration   string  `json:"narration" binding:"omitempty,max=500" example:"Office rent for July"`
}

// CancelVoucherRequest represents a request to cancel a voucher
type CancelVoucherRequest struct {
	Reason string `json:"reason" binding:"required,max=500" example:"Entered against the wrong party"`
}

// VoucherListFilter represents filter parameters for the voucher list
type VoucherListFilter struct {
	VoucherKind string `form:"voucher_kind"`
	Status      string `form:"status"`
	FromDate    string `form:"from_date"`
	ToDate      string `form:"to_date"`
	Page        int    `form:"page,omitempty" binding:"omitempty,min=1"`
	PageSize    int    `form:"page_size,omitempty" binding:"omitempty,min=1,max=100"`
}

// RegisterRoutes registers all voucher routes
func (h *VoucherHandler) RegisterRoutes(rg *gin.RouterGroup) {
	vouchers := rg.Group("/vouchers")
	{
		vouchers.GET("", h.ListVouchers)
		vouchers.GET("/:id", h.GetVoucher)
		vouchers.GET("/lookup", h.GetVoucherByNumber)
		vouchers.POST("", h.CreateVoucher)
		vouchers.POST("/:id/confirm", h.ConfirmVoucher)
		vouchers.POST("/:id/cancel", h.CancelVoucher)
	}
}

// CreateVoucher creates a voucher, allocating its number atomically with
// the insert.
func (h *VoucherHandler) CreateVoucher(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Invalid tenant")
		return
	}

	ownerKind, ownerID, err := getOwner(c)
	if err != nil {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Invalid owner identity")
		return
	}

	userID, _ := getUserID(c)

	var req CreateVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, err.Error())
		return
	}

	voucherDate, err := time.Parse("2006-01-02", req.VoucherDate)
	if err != nil {
		h.BadRequest(c, "voucher_date must be in YYYY-MM-DD format")
		return
	}

	serviceReq := voucher.CreateVoucherRequest{
		OwnerKind:   ownerKind,
		OwnerID:     ownerID,
		VoucherKind: numbering.VoucherKind(req.VoucherKind),
		VoucherDate: voucherDate,
		PartyName:   req.PartyName,
		Amount:      decimal.NewFromFloat(req.Amount),
		Narration:   req.Narration,
		RequestKey:  c.GetHeader(IdempotencyKeyHeader),
	}
	if userID != uuid.Nil {
		serviceReq.CreatedBy = &userID
	}

	created, err := h.service.CreateVoucher(c.Request.Context(), tenantID, serviceReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, created)
}

// GetVoucher retrieves a voucher by ID
func (h *VoucherHandler) GetVoucher(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Invalid tenant")
		return
	}

	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid voucher ID")
		return
	}
	voucherID, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid voucher ID")
		return
	}

	result, err := h.service.GetVoucherByID(c.Request.Context(), tenantID, voucherID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// GetVoucherByNumber retrieves a voucher by its voucher number. The number
// is passed as a query parameter because it contains slashes.
func (h *VoucherHandler) GetVoucherByNumber(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Invalid tenant")
		return
	}

	number := c.Query("number")
	if number == "" {
		h.BadRequest(c, "Voucher number is required")
		return
	}

	result, err := h.service.GetVoucherByNumber(c.Request.Context(), tenantID, number)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// ListVouchers lists vouchers for the authenticated owner with filters and
// pagination. The list is scoped to the caller's owner identity; one tenant's
// employees do not see each other's series.
func (h *VoucherHandler) ListVouchers(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Invalid tenant")
		return
	}

	ownerKind, ownerID, err := getOwner(c)
	if err != nil {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Invalid owner identity")
		return
	}

	var filter VoucherListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, err.Error())
		return
	}
	serviceFilter := voucher.VoucherListFilter{
		OwnerKind:   string(ownerKind),
		OwnerID:     &ownerID,
		VoucherKind: filter.VoucherKind,
		Status:      filter.Status,
		Page:        filter.Page,
		PageSize:    filter.PageSize,
	}
	if filter.FromDate != "" {
		from, err := time.Parse("2006-01-02", filter.FromDate)
		if err != nil {
			h.BadRequest(c, "from_date must be in YYYY-MM-DD format")
			return
		}
		serviceFilter.FromDate = &from
	}
	if filter.ToDate != "" {
		to, err := time.Parse("2006-01-02", filter.ToDate)
		if err != nil {
			h.BadRequest(c, "to_date must be in YYYY-MM-DD format")
			return
		}
		serviceFilter.ToDate = &to
	}

	result, err := h.service.ListVouchers(c.Request.Context(), tenantID, serviceFilter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// ConfirmVoucher transitions a draft voucher to confirmed
func (h *VoucherHandler) ConfirmVoucher(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Invalid tenant")
		return
	}

	userID, err := getUserID(c)
	if err != nil {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Invalid user")
		return
	}

	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid voucher ID")
		return
	}
	voucherID, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid voucher ID")
		return
	}

	result, err := h.service.ConfirmVoucher(c.Request.Context(), tenantID, voucherID, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// CancelVoucher cancels a voucher. The voucher number stays spent; gaps in
// the sequence are acceptable, duplicates are not.
func (h *VoucherHandler) CancelVoucher(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Invalid tenant")
		return
	}

	userID, err := getUserID(c)
	if err != nil {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Invalid user")
		return
	}

	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid voucher ID")
		return
	}
	voucherID, err := uuid.Parse(idReq.ID)
	if err != nil {
		h.BadRequest(c, "Invalid voucher ID")
		return
	}

	var req CancelVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, err.Error())
		return
	}

	result, err := h.service.CancelVoucher(c.Request.Context(), tenantID, voucherID, userID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
