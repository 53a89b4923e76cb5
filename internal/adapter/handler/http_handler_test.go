package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"

	"github.com/rl1809/beer-orders/internal/adapter/storage"
	"github.com/rl1809/beer-orders/internal/core/domain"
	"github.com/rl1809/beer-orders/internal/core/dto"
	"github.com/rl1809/beer-orders/internal/core/service"
	"github.com/rl1809/beer-orders/internal/port"
	"github.com/rl1809/beer-orders/internal/validation"
)

type HTTPHandlerSuite struct {
	suite.Suite
	repo   *storage.MemoryAdapter
	router *gin.Engine
}

func TestHTTPHandlerSuite(t *testing.T) {
	suite.Run(t, new(HTTPHandlerSuite))
}

func (s *HTTPHandlerSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	s.repo = storage.NewMemoryAdapter()

	mr := miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s.T().Cleanup(func() { client.Close() })
	cache := storage.NewRedisAdapter(client, time.Minute, time.Hour)

	s.router = newTestRouter(s.T(), s.repo, s.repo, cache)
}

func newTestRouter(t *testing.T, orders port.OrderRepository, beers port.BeerRepository, cache port.CacheRepository) *gin.Engine {
	log := zaptest.NewLogger(t)
	h := NewHTTPHandler(
		service.NewBeerService(beers, log),
		service.NewOrderService(orders, beers, log),
		validation.New(),
		log,
	)
	return NewRouter(h, cache, log)
}

func (s *HTTPHandlerSuite) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	return serve(s.T(), s.router, method, path, body, headers...)
}

func serve(t *testing.T, router http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func (s *HTTPHandlerSuite) decode(w *httptest.ResponseRecorder, out any) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func beerBody(name string) map[string]any {
	return map[string]any{
		"beerName":       name,
		"beerStyle":      "IPA",
		"upc":            "0631234200036",
		"quantityOnHand": 12,
		"price":          "12.95",
	}
}

func lineBody(beerID int64, qty int) map[string]any {
	return map[string]any{"beerId": beerID, "orderQuantity": qty}
}

func (s *HTTPHandlerSuite) createBeer(name string) dto.BeerDTO {
	w := s.do(http.MethodPost, "/beers", beerBody(name))
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var beer dto.BeerDTO
	s.decode(w, &beer)
	return beer
}

func (s *HTTPHandlerSuite) createOrder(body map[string]any) dto.BeerOrderDTO {
	w := s.do(http.MethodPost, "/orders", body)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var order dto.BeerOrderDTO
	s.decode(w, &order)
	return order
}

func (s *HTTPHandlerSuite) getOrder(id int64) dto.BeerOrderDTO {
	w := s.do(http.MethodGet, fmt.Sprintf("/orders/%d", id), nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var order dto.BeerOrderDTO
	s.decode(w, &order)
	return order
}

func (s *HTTPHandlerSuite) TestHealth() {
	w := s.do(http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"status":"ok"}`, w.Body.String())
}

func (s *HTTPHandlerSuite) TestCreateBeer() {
	w := s.do(http.MethodPost, "/beers", beerBody("Mango Bobs"))
	s.Require().Equal(http.StatusCreated, w.Code)

	var beer dto.BeerDTO
	s.decode(w, &beer)
	s.NotZero(beer.ID)
	s.Equal(fmt.Sprintf("/beers/%d", beer.ID), w.Header().Get("Location"))
	s.Equal(0, beer.Version)
	s.NotNil(beer.CreatedDate)
}

func (s *HTTPHandlerSuite) TestCreateBeer_IgnoresServerFields() {
	body := beerBody("Mango Bobs")
	body["id"] = 999
	body["version"] = 7
	body["createdDate"] = "2001-01-01T00:00:00Z"

	beer := s.createBeerFrom(body)
	s.NotEqual(int64(999), beer.ID)
	s.Equal(0, beer.Version)
	s.NotEqual(2001, beer.CreatedDate.Year())
}

func (s *HTTPHandlerSuite) createBeerFrom(body map[string]any) dto.BeerDTO {
	w := s.do(http.MethodPost, "/beers", body)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var beer dto.BeerDTO
	s.decode(w, &beer)
	return beer
}

func (s *HTTPHandlerSuite) TestCreateBeer_RoundsPrice() {
	body := beerBody("Mango Bobs")
	body["price"] = "12.345"
	created := s.createBeerFrom(body)
	s.Equal("12.35", created.Price.String())

	w := s.do(http.MethodGet, fmt.Sprintf("/beers/%d", created.ID), nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var fetched dto.BeerDTO
	s.decode(w, &fetched)
	s.True(created.Price.Equal(*fetched.Price))
}

func (s *HTTPHandlerSuite) TestCreateBeer_ValidationFailed() {
	body := beerBody(" ")
	delete(body, "price")

	w := s.do(http.MethodPost, "/beers", body)
	s.Require().Equal(http.StatusBadRequest, w.Code)

	var resp struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	s.decode(w, &resp)
	s.Equal("validation_failed", resp.Error)
	s.Equal("notblank", resp.Fields["beerName"])
	s.Equal("required", resp.Fields["price"])

	w = s.do(http.MethodGet, "/beers", nil)
	s.JSONEq(`[]`, w.Body.String())
}

func (s *HTTPHandlerSuite) TestCreateBeer_MalformedBody() {
	w := s.do(http.MethodPost, "/beers", `{"beerName":`)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), "invalid_request_body")
}

func (s *HTTPHandlerSuite) TestGetBeer() {
	created := s.createBeer("Mango Bobs")

	w := s.do(http.MethodGet, fmt.Sprintf("/beers/%d", created.ID), nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var beer dto.BeerDTO
	s.decode(w, &beer)
	s.Equal("Mango Bobs", *beer.BeerName)
	s.Equal("12.95", beer.Price.StringFixed(2))
}

func (s *HTTPHandlerSuite) TestGetBeer_NotFound() {
	w := s.do(http.MethodGet, "/beers/42", nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.Empty(w.Body.String())
}

func (s *HTTPHandlerSuite) TestGetBeer_InvalidID() {
	w := s.do(http.MethodGet, "/beers/abc", nil)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), "invalid_id")
}

func (s *HTTPHandlerSuite) TestUpdateBeer() {
	created := s.createBeer("Mango Bobs")

	body := beerBody("Mango Bobs Reserve")
	body["quantityOnHand"] = 0
	w := s.do(http.MethodPut, fmt.Sprintf("/beers/%d", created.ID), body)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var beer dto.BeerDTO
	s.decode(w, &beer)
	s.Equal("Mango Bobs Reserve", *beer.BeerName)
	s.Equal(0, *beer.QuantityOnHand)
	s.Equal(1, beer.Version)
	s.True(created.CreatedDate.Equal(*beer.CreatedDate))
}

func (s *HTTPHandlerSuite) TestUpdateBeer_NotFoundCreatesNothing() {
	w := s.do(http.MethodPut, "/beers/42", beerBody("Ghost"))
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/beers", nil)
	s.JSONEq(`[]`, w.Body.String())
}

func (s *HTTPHandlerSuite) TestDeleteBeer_Twice() {
	created := s.createBeer("Mango Bobs")
	path := fmt.Sprintf("/beers/%d", created.ID)

	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, path, nil).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodDelete, path, nil).Code)
}

func (s *HTTPHandlerSuite) TestDeleteBeer_Referenced() {
	beer := s.createBeer("Mango Bobs")
	s.createOrder(map[string]any{"lines": []any{lineBody(beer.ID, 1)}})

	w := s.do(http.MethodDelete, fmt.Sprintf("/beers/%d", beer.ID), nil)
	s.Equal(http.StatusConflict, w.Code)
	s.JSONEq(`{"error":"beer_referenced"}`, w.Body.String())

	s.Equal(http.StatusOK, s.do(http.MethodGet, fmt.Sprintf("/beers/%d", beer.ID), nil).Code)
}

func (s *HTTPHandlerSuite) TestCreateOrder_Defaults() {
	beer := s.createBeer("Mango Bobs")

	w := s.do(http.MethodPost, "/orders", map[string]any{
		"customerRef": "cust-1",
		"lines":       []any{lineBody(beer.ID, 2)},
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var order dto.BeerOrderDTO
	s.decode(w, &order)
	s.Equal(fmt.Sprintf("/orders/%d", order.ID), w.Header().Get("Location"))
	s.Equal(domain.OrderStatusNew, *order.Status)
	s.Require().Len(order.Lines, 1)
	s.Equal(domain.LineStatusNew, *order.Lines[0].Status)
	s.Equal(0, *order.Lines[0].QuantityAllocated)
}

func (s *HTTPHandlerSuite) TestCreateOrder_UnknownBeer() {
	w := s.do(http.MethodPost, "/orders", map[string]any{"lines": []any{lineBody(404, 1)}})
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/orders", nil)
	var page dto.Page[dto.BeerOrderDTO]
	s.decode(w, &page)
	s.Zero(page.TotalElements)
}

func (s *HTTPHandlerSuite) TestCreateOrder_InvalidLine() {
	w := s.do(http.MethodPost, "/orders", map[string]any{
		"lines": []any{map[string]any{"orderQuantity": 0}},
	})
	s.Require().Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), `"lines[0].beerId":"required"`)
	s.Contains(w.Body.String(), `"lines[0].orderQuantity":"min=1"`)
}

func (s *HTTPHandlerSuite) TestListOrders_CapsPageSize() {
	s.createOrder(map[string]any{})

	w := s.do(http.MethodGet, "/orders?page=0&size=500", nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var page dto.Page[dto.BeerOrderDTO]
	s.decode(w, &page)
	s.LessOrEqual(page.Size, 200)
	s.Len(page.Content, 1)
	s.Equal(int64(1), page.TotalElements)
}

func (s *HTTPHandlerSuite) TestListOrders_Defaults() {
	w := s.do(http.MethodGet, "/orders", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"content":[],"page":0,"size":25,"totalElements":0,"totalPages":0}`, w.Body.String())
}

func (s *HTTPHandlerSuite) TestListOrders_BadParams() {
	for _, q := range []string{"page=-1", "size=0", "size=abc"} {
		w := s.do(http.MethodGet, "/orders?"+q, nil)
		s.Equal(http.StatusBadRequest, w.Code, q)
	}
}

func (s *HTTPHandlerSuite) TestListOrders_HugePage() {
	s.createOrder(map[string]any{})

	w := s.do(http.MethodGet, "/orders?page=4611686018427387905&size=2", nil)
	s.Require().Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), `"page":"max=46116860184273879"`)

	w = s.do(http.MethodGet, "/orders?page=46116860184273879&size=500", nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var page dto.Page[dto.BeerOrderDTO]
	s.decode(w, &page)
	s.Empty(page.Content)
	s.Equal(int64(1), page.TotalElements)
}

func (s *HTTPHandlerSuite) TestUpdateOrder_EmptyLinesRemovesAll() {
	beer := s.createBeer("Mango Bobs")
	order := s.createOrder(map[string]any{"lines": []any{lineBody(beer.ID, 1), lineBody(beer.ID, 2)}})

	w := s.do(http.MethodPut, fmt.Sprintf("/orders/%d", order.ID), map[string]any{"lines": []any{}})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	s.Empty(s.getOrder(order.ID).Lines)
}

func (s *HTTPHandlerSuite) TestUpdateOrder_NotFound() {
	w := s.do(http.MethodPut, "/orders/42", map[string]any{"lines": []any{}})
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HTTPHandlerSuite) TestPatchOrder_KeepsLines() {
	beer := s.createBeer("Mango Bobs")
	order := s.createOrder(map[string]any{
		"customerRef": "cust-1",
		"lines":       []any{lineBody(beer.ID, 3)},
	})

	w := s.do(http.MethodPatch, fmt.Sprintf("/orders/%d", order.ID), map[string]any{"customerRef": "cust-2"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	got := s.getOrder(order.ID)
	s.Equal("cust-2", *got.CustomerRef)
	s.Require().Len(got.Lines, 1)
	s.Equal(order.Lines[0].ID, got.Lines[0].ID)
	s.Equal(3, *got.Lines[0].OrderQuantity)
}

func (s *HTTPHandlerSuite) TestPatchOrder_NegativePayment() {
	order := s.createOrder(map[string]any{})

	w := s.do(http.MethodPatch, fmt.Sprintf("/orders/%d", order.ID), map[string]any{"paymentAmount": -1})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), "paymentAmount")
}

func (s *HTTPHandlerSuite) TestDeleteOrder() {
	order := s.createOrder(map[string]any{})
	path := fmt.Sprintf("/orders/%d", order.ID)

	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, path, nil).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, path, nil).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodDelete, path, nil).Code)
}

func (s *HTTPHandlerSuite) TestAddLine() {
	beer := s.createBeer("Mango Bobs")
	other := s.createBeer("Galaxy Cat")
	order := s.createOrder(map[string]any{"lines": []any{lineBody(beer.ID, 1)}})

	w := s.do(http.MethodPost, fmt.Sprintf("/orders/%d/lines", order.ID), lineBody(other.ID, 4))
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.Equal(fmt.Sprintf("/orders/%d", order.ID), w.Header().Get("Location"))

	var updated dto.BeerOrderDTO
	s.decode(w, &updated)
	s.Require().Len(updated.Lines, len(order.Lines)+1)
	s.Equal(other.ID, *updated.Lines[len(updated.Lines)-1].BeerID)
}

func (s *HTTPHandlerSuite) TestAddLine_OrderNotFound() {
	beer := s.createBeer("Mango Bobs")

	w := s.do(http.MethodPost, "/orders/42/lines", lineBody(beer.ID, 1))
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HTTPHandlerSuite) TestUpdateLine() {
	beer := s.createBeer("Mango Bobs")
	order := s.createOrder(map[string]any{"lines": []any{lineBody(beer.ID, 1)}})
	lineID := order.Lines[0].ID

	body := lineBody(beer.ID, 5)
	body["status"] = "ALLOCATED"
	w := s.do(http.MethodPut, fmt.Sprintf("/orders/%d/lines/%d", order.ID, lineID), body)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	got := s.getOrder(order.ID)
	s.Equal(lineID, got.Lines[0].ID)
	s.Equal(5, *got.Lines[0].OrderQuantity)
	s.Equal(domain.LineStatusAllocated, *got.Lines[0].Status)
}

func (s *HTTPHandlerSuite) TestUpdateLine_NotFound() {
	beer := s.createBeer("Mango Bobs")
	order := s.createOrder(map[string]any{"lines": []any{lineBody(beer.ID, 1)}})

	w := s.do(http.MethodPut, fmt.Sprintf("/orders/%d/lines/9999", order.ID), lineBody(beer.ID, 2))
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HTTPHandlerSuite) TestDeleteLine_AbsentIsNoop() {
	beer := s.createBeer("Mango Bobs")
	order := s.createOrder(map[string]any{"lines": []any{lineBody(beer.ID, 1)}})

	w := s.do(http.MethodDelete, fmt.Sprintf("/orders/%d/lines/9999", order.ID), nil)
	s.Equal(http.StatusNoContent, w.Code)

	got := s.getOrder(order.ID)
	s.Equal(order.Version, got.Version)
	s.Len(got.Lines, 1)
}

func (s *HTTPHandlerSuite) TestDeleteLine() {
	beer := s.createBeer("Mango Bobs")
	order := s.createOrder(map[string]any{"lines": []any{lineBody(beer.ID, 1), lineBody(beer.ID, 2)}})

	w := s.do(http.MethodDelete, fmt.Sprintf("/orders/%d/lines/%d", order.ID, order.Lines[0].ID), nil)
	s.Equal(http.StatusNoContent, w.Code)

	got := s.getOrder(order.ID)
	s.Require().Len(got.Lines, 1)
	s.Equal(order.Lines[1].ID, got.Lines[0].ID)
}

func (s *HTTPHandlerSuite) TestIdempotencyKey() {
	first := s.do(http.MethodPost, "/beers", beerBody("Mango Bobs"), idempotencyHeader, "abc")
	s.Equal(http.StatusCreated, first.Code)

	second := s.do(http.MethodPost, "/beers", beerBody("Mango Bobs"), idempotencyHeader, "abc")
	s.Equal(http.StatusConflict, second.Code)
	s.JSONEq(`{"error":"duplicate_request"}`, second.Body.String())

	// same key on a different route is a different request
	third := s.do(http.MethodPost, "/orders", map[string]any{}, idempotencyHeader, "abc")
	s.Equal(http.StatusCreated, third.Code)
}

func (s *HTTPHandlerSuite) TestIdempotencyKey_FailedRequestCanBeRetried() {
	w := s.do(http.MethodPost, "/beers", map[string]any{"beerName": ""}, idempotencyHeader, "k1")
	s.Require().Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/beers", beerBody("Mango Bobs"), idempotencyHeader, "k1")
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/beers", beerBody("Mango Bobs"), idempotencyHeader, "k1")
	s.Equal(http.StatusConflict, w.Code)

	// unknown beer reference is a 404 and frees the key as well
	w = s.do(http.MethodPost, "/orders", map[string]any{"lines": []any{lineBody(999, 1)}}, idempotencyHeader, "k2")
	s.Require().Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/orders", map[string]any{}, idempotencyHeader, "k2")
	s.Equal(http.StatusCreated, w.Code)

	beers, err := s.repo.ListBeers(context.Background())
	s.Require().NoError(err)
	s.Len(beers, 1)
}

func (s *HTTPHandlerSuite) TestRequestID() {
	w := s.do(http.MethodGet, "/health", nil, requestIDHeader, "req-123")
	s.Equal("req-123", w.Header().Get(requestIDHeader))

	w = s.do(http.MethodGet, "/health", nil)
	s.Len(w.Header().Get(requestIDHeader), 36)
}

// conflictingOrders loses every version race on save.
type conflictingOrders struct {
	*storage.MemoryAdapter
}

func (conflictingOrders) SaveOrder(context.Context, *domain.BeerOrder) error {
	return port.ErrOptimisticLock
}

type failingOrders struct {
	*storage.MemoryAdapter
}

func (failingOrders) GetOrder(context.Context, int64) (*domain.BeerOrder, error) {
	return nil, errors.New("connection reset")
}

func TestHTTPHandler_VersionConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := storage.NewMemoryAdapter()
	order := domain.BeerOrder{Status: domain.OrderStatusNew}
	if err := repo.CreateOrder(context.Background(), &order); err != nil {
		t.Fatal(err)
	}

	router := newTestRouter(t, conflictingOrders{repo}, repo, nil)
	w := serve(t, router, http.MethodPatch, fmt.Sprintf("/orders/%d", order.ID), map[string]any{"customerRef": "x"})

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != `{"error":"version_conflict"}` {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestHTTPHandler_InternalError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := storage.NewMemoryAdapter()

	router := newTestRouter(t, failingOrders{repo}, repo, nil)
	w := serve(t, router, http.MethodGet, "/orders/1", nil)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if w.Body.String() != `{"error":"internal_error"}` {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestHTTPHandler_NoIdempotencyStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := storage.NewMemoryAdapter()
	router := newTestRouter(t, repo, repo, nil)

	for i := 0; i < 2; i++ {
		w := serve(t, router, http.MethodPost, "/orders", map[string]any{}, idempotencyHeader, "abc")
		if w.Code != http.StatusCreated {
			t.Fatalf("request %d: expected 201, got %d", i, w.Code)
		}
	}
}
