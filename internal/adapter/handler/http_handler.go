package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rl1809/beer-orders/internal/core/dto"
	"github.com/rl1809/beer-orders/internal/core/service"
	"github.com/rl1809/beer-orders/internal/port"
	"github.com/rl1809/beer-orders/internal/validation"
)

type HTTPHandler struct {
	beerService  *service.BeerService
	orderService *service.OrderService
	validate     *validatorv10.Validate
	log          *zap.Logger
}

func NewHTTPHandler(beerService *service.BeerService, orderService *service.OrderService, v *validatorv10.Validate, log *zap.Logger) *HTTPHandler {
	return &HTTPHandler{
		beerService:  beerService,
		orderService: orderService,
		validate:     v,
		log:          log,
	}
}

func (h *HTTPHandler) CreateBeer(c *gin.Context) {
	var req dto.BeerDTO
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	beer, err := h.beerService.Create(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Location", fmt.Sprintf("/beers/%d", beer.ID))
	c.JSON(http.StatusCreated, beer)
}

func (h *HTTPHandler) GetBeer(c *gin.Context) {
	id, ok := pathID(c, "beerId")
	if !ok {
		return
	}

	beer, err := h.beerService.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, beer)
}

func (h *HTTPHandler) ListBeers(c *gin.Context) {
	beers, err := h.beerService.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, beers)
}

func (h *HTTPHandler) UpdateBeer(c *gin.Context) {
	id, ok := pathID(c, "beerId")
	if !ok {
		return
	}

	var req dto.BeerDTO
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	beer, err := h.beerService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, beer)
}

func (h *HTTPHandler) DeleteBeer(c *gin.Context) {
	id, ok := pathID(c, "beerId")
	if !ok {
		return
	}

	deleted, err := h.beerService.Delete(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !deleted {
		c.Status(http.StatusNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) CreateOrder(c *gin.Context) {
	var req dto.BeerOrderDTO
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	order, err := h.orderService.Create(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Location", fmt.Sprintf("/orders/%d", order.ID))
	c.JSON(http.StatusCreated, order)
}

func (h *HTTPHandler) GetOrder(c *gin.Context) {
	id, ok := pathID(c, "orderId")
	if !ok {
		return
	}

	order, err := h.orderService.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *HTTPHandler) ListOrders(c *gin.Context) {
	var q dto.PageQuery
	if err := validation.BindQueryAndValidate(c, &q, h.validate); err != nil {
		return
	}

	page, err := h.orderService.List(c.Request.Context(), q.Page, q.Size)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *HTTPHandler) UpdateOrder(c *gin.Context) {
	id, ok := pathID(c, "orderId")
	if !ok {
		return
	}

	var req dto.BeerOrderDTO
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	order, err := h.orderService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *HTTPHandler) PatchOrder(c *gin.Context) {
	id, ok := pathID(c, "orderId")
	if !ok {
		return
	}

	var req dto.BeerOrderPatchDTO
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	order, err := h.orderService.Patch(c.Request.Context(), id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *HTTPHandler) DeleteOrder(c *gin.Context) {
	id, ok := pathID(c, "orderId")
	if !ok {
		return
	}

	if err := h.orderService.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) AddLine(c *gin.Context) {
	orderID, ok := pathID(c, "orderId")
	if !ok {
		return
	}

	var req dto.BeerOrderLineDTO
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	order, err := h.orderService.AddLine(c.Request.Context(), orderID, req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Location", fmt.Sprintf("/orders/%d", order.ID))
	c.JSON(http.StatusCreated, order)
}

func (h *HTTPHandler) UpdateLine(c *gin.Context) {
	orderID, ok := pathID(c, "orderId")
	if !ok {
		return
	}
	lineID, ok := pathID(c, "lineId")
	if !ok {
		return
	}

	var req dto.BeerOrderLineDTO
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	order, err := h.orderService.UpdateLine(c.Request.Context(), orderID, lineID, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *HTTPHandler) DeleteLine(c *gin.Context) {
	orderID, ok := pathID(c, "orderId")
	if !ok {
		return
	}
	lineID, ok := pathID(c, "lineId")
	if !ok {
		return
	}

	if err := h.orderService.DeleteLine(c.Request.Context(), orderID, lineID); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError translates service and repository errors into a response.
// Not-found responses carry no body.
func (h *HTTPHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, port.ErrUnknownReference):
		c.Status(http.StatusNotFound)
	case errors.Is(err, port.ErrOptimisticLock):
		c.JSON(http.StatusConflict, gin.H{"error": "version_conflict"})
	case errors.Is(err, port.ErrBeerInUse):
		c.JSON(http.StatusConflict, gin.H{"error": "beer_referenced"})
	default:
		h.log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_id", "param": name})
		return 0, false
	}
	return id, true
}
