package main

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dcastano/tienda-core/internal/cart"
	"github.com/dcastano/tienda-core/internal/catalog"
	"github.com/dcastano/tienda-core/internal/httpx"
	"github.com/dcastano/tienda-core/internal/order"
	"github.com/dcastano/tienda-core/internal/payment"
)

// AddCartItemRequest payload for adding a product to the cart.
// swagger:model AddCartItemRequest
type AddCartItemRequest struct {
	ProductID string `json:"product_id" example:"4e7d4e5c-5cb9-4a3f-9f21-7e1a4f9f2b2a"`
	Quantity  int    `json:"quantity"   example:"2"`
}

type SetQuantityRequest struct {
	Quantity int `json:"quantity" example:"3"`
}

type RemoveItemsRequest struct {
	IDs []string `json:"ids"`
}

// CreateOrderRequest payload for checkout.
// swagger:model CreateOrderRequest
type CreateOrderRequest struct {
	Shipping order.ShippingAddress `json:"shipping"`
	Note     string                `json:"note,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" example:"shipped"`
}

type ConfirmPaymentRequest struct {
	PaymentKey string `json:"payment_key"`
	OrderID    string `json:"order_id"`
	Amount     string `json:"amount" example:"2500.00"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason,omitempty"`
}

// classify maps every known error kind to an HTTP status and a stable machine
// code. Partial-failure kinds keep their message (it carries the identifiers
// an operator needs); anything unknown is downgraded to a generic failure.
func classify(err error) (int, string, bool) {
	var (
		insStock    *cart.InsufficientStockError
		lineInvalid *order.LineInvalidError
		illegal     *order.IllegalTransitionError
		itemsFail   *order.ItemsPersistError
		notPayable  *payment.NotPayableError
		mismatch    *payment.AmountMismatchError
		rejected    *payment.RejectedError
		persistFail *payment.PersistFailedError
	)
	switch {
	case errors.Is(err, cart.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated", true
	case errors.Is(err, cart.ErrInvalidQuantity):
		return http.StatusBadRequest, "invalid_quantity", true
	case errors.Is(err, cart.ErrProductUnavailable):
		return http.StatusConflict, "product_unavailable", true
	case errors.As(err, &insStock):
		return http.StatusConflict, "insufficient_stock", true
	case errors.Is(err, cart.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound, "not_found", true
	case errors.Is(err, order.ErrEmptyCart):
		return http.StatusBadRequest, "empty_cart", true
	case errors.Is(err, order.ErrInvalidShipping):
		return http.StatusBadRequest, "invalid_shipping", true
	case errors.As(err, &lineInvalid):
		return http.StatusConflict, "line_invalid", true
	case errors.As(err, &itemsFail):
		return http.StatusInternalServerError, "order_items_persist_failed", true
	case errors.Is(err, order.ErrNoChange):
		return http.StatusConflict, "no_change", true
	case errors.As(err, &illegal):
		return http.StatusConflict, "illegal_transition", true
	case errors.Is(err, order.ErrStatusConflict):
		return http.StatusConflict, "status_conflict", true
	case errors.Is(err, payment.ErrAlreadyPaid):
		return http.StatusConflict, "already_paid", true
	case errors.As(err, &notPayable):
		return http.StatusConflict, "not_payable", true
	case errors.As(err, &mismatch):
		return http.StatusBadRequest, "amount_mismatch", true
	case errors.As(err, &rejected):
		return http.StatusPaymentRequired, "gateway_rejected", true
	case errors.Is(err, payment.ErrGatewayTimeout):
		return http.StatusGatewayTimeout, "gateway_timeout", true
	case errors.As(err, &persistFail):
		return http.StatusInternalServerError, "post_payment_persist_failed", true
	}
	return http.StatusInternalServerError, "store_unavailable", false
}

func writeError(c *gin.Context, err error) {
	status, code, known := classify(err)
	if !known {
		rid, _ := c.Get("rid")
		log.Printf("[http] rid=%v unexpected error: %v", rid, err)
		c.JSON(status, gin.H{"error": "internal error", "code": code})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

// ---------- catalog ----------

func listProductsHandler(repo catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		q := catalog.Query{Q: c.Query("q"), Limit: limit, Offset: offset}
		items, err := repo.List(c.Request.Context(), q)
		if err != nil {
			writeError(c, err)
			return
		}
		if items == nil {
			items = []catalog.Product{}
		}
		c.JSON(http.StatusOK, catalog.ListResponse{Q: q.Q, Limit: limit, Offset: offset, Items: items})
	}
}

func getProductHandler(repo catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := repo.GetActive(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// ---------- cart ----------

func addToCartHandler(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AddCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		line, err := svc.Add(c.Request.Context(), httpx.BuyerID(c), req.ProductID, req.Quantity)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, line)
	}
}

func listCartHandler(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		lines, err := svc.List(c.Request.Context(), httpx.BuyerID(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": lines})
	}
}

func setCartQuantityHandler(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SetQuantityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		line, err := svc.SetQuantity(c.Request.Context(), httpx.BuyerID(c), c.Param("id"), req.Quantity)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, line)
	}
}

func removeCartItemHandler(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Remove(c.Request.Context(), httpx.BuyerID(c), c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func removeCartItemsHandler(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RemoveItemsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		if err := svc.RemoveMany(c.Request.Context(), httpx.BuyerID(c), req.IDs); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func cartTotalHandler(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		sum, err := svc.Total(c.Request.Context(), httpx.BuyerID(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, sum)
	}
}

// ---------- orders ----------

func createOrderHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		o, err := svc.Build(c.Request.Context(), httpx.BuyerID(c), req.Shipping, req.Note)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"order_id": o.ID, "total": o.Total, "status": o.Status})
	}
}

func getOrderHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, items, err := svc.Get(c.Request.Context(), httpx.BuyerID(c), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		if items == nil {
			items = []order.Item{}
		}
		c.JSON(http.StatusOK, gin.H{"order": o, "items": items})
	}
}

func listOrdersHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var status order.Status
		if raw := c.Query("status"); raw != "" {
			st, ok := order.ParseStatus(raw)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
				return
			}
			status = st
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		orders, err := svc.List(c.Request.Context(), httpx.BuyerID(c), status, limit, offset)
		if err != nil {
			writeError(c, err)
			return
		}
		if orders == nil {
			orders = []order.Order{}
		}
		c.JSON(http.StatusOK, gin.H{"orders": orders})
	}
}

func updateOrderStatusHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		to, ok := order.ParseStatus(req.Status)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
			return
		}
		o, err := svc.Transition(c.Request.Context(), httpx.BuyerID(c), c.Param("id"), to)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// ---------- payments ----------

func initiatePaymentHandler(svc *payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		init, err := svc.Initiate(c.Request.Context(), httpx.BuyerID(c), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, init)
	}
}

func confirmPaymentHandler(svc *payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ConfirmPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		o, err := svc.Confirm(c.Request.Context(), httpx.BuyerID(c), req.PaymentKey, req.OrderID, req.Amount)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

func cancelOrderHandler(svc *payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CancelOrderRequest
		_ = c.ShouldBindJSON(&req) // reason is optional, empty body is fine
		o, err := svc.Cancel(c.Request.Context(), httpx.BuyerID(c), c.Param("id"), req.Reason)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}
