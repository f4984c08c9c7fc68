package handlers

import (
	"github.com/gin-gonic/gin"

	"stayledger/internal/core/apperror"
	"stayledger/internal/core/id"
	"stayledger/internal/core/types"
	"stayledger/internal/domain/checkout"
	"stayledger/internal/infrastructure/http/v1/dto"
)

// CheckoutHandler serves the checkout workflow endpoints.
type CheckoutHandler struct {
	*BaseHandler
	service *checkout.Service
}

func NewCheckoutHandler(base *BaseHandler, service *checkout.Service) *CheckoutHandler {
	return &CheckoutHandler{BaseHandler: base, service: service}
}

// CreateRequest handles POST /checkout-requests.
func (h *CheckoutHandler) CreateRequest(c *gin.Context) {
	var input dto.CreateCheckoutRequestInput
	if !h.BindJSON(c, &input) {
		return
	}

	req, err := h.service.CreateRequest(c.Request.Context(), input.RoomNumber, checkout.Mode(input.Mode))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedData(c, req)
}

// GetRequestByRoom handles GET /checkout-requests/:room.
func (h *CheckoutHandler) GetRequestByRoom(c *gin.Context) {
	req, err := h.service.GetRequestByRoom(c.Request.Context(), c.Param("room"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, req)
}

// ListRequests handles GET /checkout-requests.
func (h *CheckoutHandler) ListRequests(c *gin.Context) {
	limit := h.ParseIntQuery(c, "limit", 20)
	offset := h.ParseIntQuery(c, "offset", 0)
	status := checkout.Status(c.Query("status"))

	requests, err := h.service.ListRequests(c.Request.Context(), status, limit, offset)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse[checkout.Request]{Items: requests, Limit: limit, Offset: offset})
}

// AssignEmployee handles POST /checkout-requests/:id/assign.
func (h *CheckoutHandler) AssignEmployee(c *gin.Context) {
	requestID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid request id"))
		return
	}

	var input dto.AssignEmployeeInput
	if !h.BindJSON(c, &input) {
		return
	}

	req, err := h.service.AssignEmployee(c.Request.Context(), requestID, input.Employee)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, req)
}

// SubmitInventoryCheck handles POST /checkout-requests/:id/inventory-check.
func (h *CheckoutHandler) SubmitInventoryCheck(c *gin.Context) {
	requestID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid request id"))
		return
	}

	var input dto.InventoryCheckInput
	if !h.BindJSON(c, &input) {
		return
	}

	domainInput, err := toInventoryCheckInput(input)
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.SubmitInventoryCheck(c.Request.Context(), requestID, domainInput)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

func toInventoryCheckInput(input dto.InventoryCheckInput) (checkout.InventoryCheckInput, error) {
	out := checkout.InventoryCheckInput{
		Notes:     input.Notes,
		CheckedBy: input.CheckedBy,
	}

	for _, item := range input.Items {
		itemID, err := id.Parse(item.ItemID)
		if err != nil {
			return out, apperror.NewValidation("invalid item id").WithDetail("itemId", item.ItemID)
		}
		count := checkout.ItemCount{
			ItemID:      itemID,
			ReturnedQty: types.Quantity(item.ReturnedQty),
		}
		if item.ReturnLocationID != "" {
			locationID, err := id.Parse(item.ReturnLocationID)
			if err != nil {
				return out, apperror.NewValidation("invalid return location id").WithDetail("returnLocationId", item.ReturnLocationID)
			}
			count.ReturnLocationID = &locationID
		}
		out.Items = append(out.Items, count)
	}

	for _, asset := range input.Assets {
		assetID, err := id.Parse(asset.AssetID)
		if err != nil {
			return out, apperror.NewValidation("invalid asset id").WithDetail("assetId", asset.AssetID)
		}
		out.Assets = append(out.Assets, checkout.AssetCondition{
			AssetID:     assetID,
			ReturnedQty: types.Quantity(asset.ReturnedQty),
			Damaged:     asset.Damaged,
			DamageNotes: asset.DamageNotes,
		})
	}

	return out, nil
}

// GetBill handles GET /bill?room=&mode=.
func (h *CheckoutHandler) GetBill(c *gin.Context) {
	room := c.Query("room")
	mode := checkout.Mode(c.DefaultQuery("mode", string(checkout.ModeSingle)))

	bill, err := h.service.GetBill(c.Request.Context(), room, mode)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, bill)
}

// Finalize handles POST /checkouts.
func (h *CheckoutHandler) Finalize(c *gin.Context) {
	var input dto.FinalizeCheckoutInput
	if !h.BindJSON(c, &input) {
		return
	}

	discount := types.Zero()
	if input.Discount != "" {
		parsed, err := types.NewMoneyFromString(input.Discount)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid discount").WithDetail("discount", input.Discount))
			return
		}
		discount = parsed
	}

	record, err := h.service.Finalize(c.Request.Context(), checkout.FinalizeInput{
		RoomNumber:    input.RoomNumber,
		Mode:          checkout.Mode(input.Mode),
		PaymentMethod: input.PaymentMethod,
		Discount:      discount,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedData(c, record)
}

// GetCheckout handles GET /checkouts/:id.
func (h *CheckoutHandler) GetCheckout(c *gin.Context) {
	checkoutID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid checkout id"))
		return
	}

	record, err := h.service.GetCheckout(c.Request.Context(), checkoutID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, record)
}
