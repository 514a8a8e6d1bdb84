package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-service/internal/domains/inventory/model"
	"inventory-service/internal/domains/inventory/service"
)

type fakeService struct {
	reserveErr error
	releaseErr error
	queryErr   error
	queryResp  *model.AvailableInventoryResponse
}

var _ service.ServiceInterface = (*fakeService)(nil)

func (f *fakeService) Reserve(_ context.Context, req model.ReserveRequest) (*model.ReserveResponse, error) {
	if f.reserveErr != nil {
		return nil, f.reserveErr
	}
	return &model.ReserveResponse{Status: "ok", OrderID: req.OrderID}, nil
}

func (f *fakeService) Release(_ context.Context, req model.ReleaseRequest) (*model.ReleaseResponse, error) {
	if f.releaseErr != nil {
		return nil, f.releaseErr
	}
	return &model.ReleaseResponse{Status: "ok", OrderID: req.OrderID}, nil
}

func (f *fakeService) Adjust(context.Context, model.AdjustRequest, string) (*model.AdjustResponse, error) {
	return &model.AdjustResponse{Status: "ok", NewAvailableQuantity: 7}, nil
}

func (f *fakeService) GetAvailableInventory(context.Context, string) (*model.AvailableInventoryResponse, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.queryResp, nil
}

func (f *fakeService) CreateSKU(_ context.Context, req model.CreateSKURequest) (*model.SKU, error) {
	return &model.SKU{ID: 1, Code: req.Code}, nil
}

func (f *fakeService) CreateBatch(context.Context, model.CreateBatchRequest) (*model.Batch, error) {
	return &model.Batch{ID: 1}, nil
}

func (f *fakeService) ExpireDueReservations(context.Context, int) (int, error) {
	return 0, nil
}

func setupRouter(svc service.ServiceInterface) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(svc)

	r := gin.New()
	r.POST("/inventory/reserve", h.Reserve)
	r.POST("/inventory/release", h.Release)
	r.GET("/inventory/:sku", h.GetAvailable)
	return r
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestReserve_Created(t *testing.T) {
	router := setupRouter(&fakeService{})

	w := doJSON(t, router, http.MethodPost, "/inventory/reserve", model.ReserveRequest{
		OrderID: "o-1",
		Lines:   []model.ReserveLine{{BatchID: 1, Quantity: 5}},
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp model.ReserveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "o-1", resp.OrderID)
}

func TestReserve_MissingOrderID(t *testing.T) {
	router := setupRouter(&fakeService{})

	w := doJSON(t, router, http.MethodPost, "/inventory/reserve", model.ReserveRequest{
		Lines: []model.ReserveLine{{BatchID: 1, Quantity: 5}},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
}

func TestReserve_InsufficientInventory(t *testing.T) {
	router := setupRouter(&fakeService{
		reserveErr: model.NewInsufficientInventoryError(2, 10, 4),
	})

	w := doJSON(t, router, http.MethodPost, "/inventory/reserve", model.ReserveRequest{
		OrderID: "o-1",
		Lines:   []model.ReserveLine{{BatchID: 2, Quantity: 10}},
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INSUFFICIENT_INVENTORY", errorCode(t, w))

	var body struct {
		Error struct {
			Details model.InsufficientInventoryError `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(2), body.Error.Details.BatchID)
	assert.Equal(t, 10, body.Error.Details.Requested)
	assert.Equal(t, 4, body.Error.Details.Available)
}

func TestReserve_Conflict(t *testing.T) {
	router := setupRouter(&fakeService{reserveErr: model.ErrOrderAlreadyReserved})

	w := doJSON(t, router, http.MethodPost, "/inventory/reserve", model.ReserveRequest{
		OrderID: "o-1",
		Lines:   []model.ReserveLine{{BatchID: 1, Quantity: 5}},
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ORDER_ALREADY_RESERVED", errorCode(t, w))
}

func TestRelease_OK(t *testing.T) {
	router := setupRouter(&fakeService{})

	w := doJSON(t, router, http.MethodPost, "/inventory/release", model.ReleaseRequest{OrderID: "o-1"})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRelease_UnknownOrder(t *testing.T) {
	router := setupRouter(&fakeService{releaseErr: model.ErrOrderNotFound})

	w := doJSON(t, router, http.MethodPost, "/inventory/release", model.ReleaseRequest{OrderID: "nope"})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ORDER_NOT_FOUND", errorCode(t, w))
}

func TestGetAvailable_OK(t *testing.T) {
	router := setupRouter(&fakeService{
		queryResp: &model.AvailableInventoryResponse{
			SkuCode:        "SKU-1",
			TotalAvailable: 25,
			Batches: []model.BatchAvailability{
				{BatchID: 1, TotalQuantity: 30, AvailableQuantity: 25},
			},
		},
	})

	w := doJSON(t, router, http.MethodGet, "/inventory/SKU-1", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp model.AvailableInventoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 25, resp.TotalAvailable)
	require.Len(t, resp.Batches, 1)
}

func TestGetAvailable_UnknownSKU(t *testing.T) {
	router := setupRouter(&fakeService{queryErr: model.ErrSKUNotFound})

	w := doJSON(t, router, http.MethodGet, "/inventory/missing", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "SKU_NOT_FOUND", errorCode(t, w))
}

func TestGetAvailable_InternalErrorMasked(t *testing.T) {
	router := setupRouter(&fakeService{queryErr: assert.AnError})

	w := doJSON(t, router, http.MethodGet, "/inventory/SKU-1", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, w))
	// The raw error must not leak to the client.
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}
