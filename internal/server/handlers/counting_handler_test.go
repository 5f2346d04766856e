package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wardstock/stocktake/internal/domain/models"
	"github.com/wardstock/stocktake/internal/service/counting"
)

type stubCountingService struct {
	view       *models.CountView
	viewErr    error
	saveErr    error
	addErr     error
	progress   models.DeviceProgress
	export     []byte
	exportName string
	exportErr  error

	gotOperator string
	gotDevice   string
	gotFilter   models.ViewFilter
	gotSave     models.SaveCountRequest
	gotAdd      models.AddItemRequest
}

var _ counting.CountingService = (*stubCountingService)(nil)

func (s *stubCountingService) View(_ context.Context, operator, device string, filter models.ViewFilter) (*models.CountView, error) {
	s.gotOperator, s.gotDevice, s.gotFilter = operator, device, filter
	if s.viewErr != nil {
		return nil, s.viewErr
	}
	if s.view == nil {
		return &models.CountView{}, nil
	}
	return s.view, nil
}

func (s *stubCountingService) SaveCount(_ context.Context, operator string, req models.SaveCountRequest) error {
	s.gotOperator, s.gotSave = operator, req
	return s.saveErr
}

func (s *stubCountingService) AddItem(_ context.Context, operator string, req models.AddItemRequest) error {
	s.gotOperator, s.gotAdd = operator, req
	return s.addErr
}

func (s *stubCountingService) Progress(_ context.Context, device string) (models.DeviceProgress, error) {
	s.gotDevice = device
	return s.progress, nil
}

func (s *stubCountingService) Export(_ context.Context, device string) ([]byte, string, error) {
	s.gotDevice = device
	if s.exportErr != nil {
		return nil, "", s.exportErr
	}
	return s.export, s.exportName, nil
}

func newTestRouter(svc counting.CountingService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewCountingHandler(svc, zap.NewNop())

	r := gin.New()
	api := r.Group("/api/count", RequireOperator())
	api.GET("", h.View)
	api.POST("/save", h.Save)
	api.POST("/items", h.AddItem)
	api.GET("/export", h.Export)
	return r
}

func performRequest(r http.Handler, method, path string, body []byte, operator string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if operator != "" {
		req.Header.Set("X-Operator", operator)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestViewPassesQueryFilters(t *testing.T) {
	stub := &stubCountingService{}
	r := newTestRouter(stub)

	w := performRequest(r, http.MethodGet, "/api/count?device=22&zone=B&q=asp&hide_done=1&sort=false", nil, "Alice")
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "Alice", stub.gotOperator)
	assert.Equal(t, "22", stub.gotDevice)
	assert.Equal(t, models.ViewFilter{
		Zone:           "B",
		Keyword:        "asp",
		HideCompleted:  true,
		SortByLocation: false,
	}, stub.gotFilter)
}

func TestViewFilterDefaults(t *testing.T) {
	stub := &stubCountingService{}
	r := newTestRouter(stub)

	w := performRequest(r, http.MethodGet, "/api/count", nil, "Alice")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ViewFilter{SortByLocation: true}, stub.gotFilter)
}

func TestViewMalformedBoolKeepsDefault(t *testing.T) {
	stub := &stubCountingService{}
	r := newTestRouter(stub)

	w := performRequest(r, http.MethodGet, "/api/count?sort=banana&hide_done=banana", nil, "Alice")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ViewFilter{SortByLocation: true}, stub.gotFilter)
}

func TestViewReturnsPayload(t *testing.T) {
	stub := &stubCountingService{view: &models.CountView{
		Device: "21",
		Table:  "Count-21-cart",
		Zones:  []string{"B"},
		Rows: []models.CountRow{
			{DrugName: "Aspirin", Location: "B01", Zone: "B", Editable: true},
		},
		Progress: models.Progress{Total: 1, Done: 0, Percent: 0},
	}}
	r := newTestRouter(stub)

	w := performRequest(r, http.MethodGet, "/api/count", nil, "Alice")
	require.Equal(t, http.StatusOK, w.Code)

	var got models.CountView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Count-21-cart", got.Table)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, "Aspirin", got.Rows[0].DrugName)
	assert.True(t, got.Rows[0].Editable)
}

func TestViewBackendFailure(t *testing.T) {
	stub := &stubCountingService{viewErr: fmt.Errorf("view table Count-21-cart: %w", io.ErrUnexpectedEOF)}
	r := newTestRouter(stub)

	w := performRequest(r, http.MethodGet, "/api/count", nil, "Alice")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"error":"spreadsheet unavailable"}`, w.Body.String())
}

func TestOperatorFallsBackToQuery(t *testing.T) {
	stub := &stubCountingService{}
	r := newTestRouter(stub)

	w := performRequest(r, http.MethodGet, "/api/count?operator=Bob", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bob", stub.gotOperator)
}

func TestMissingOperatorRejected(t *testing.T) {
	stub := &stubCountingService{}
	r := newTestRouter(stub)

	w := performRequest(r, http.MethodGet, "/api/count", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "operator name is required")
	assert.Empty(t, stub.gotOperator, "handler must not run without an operator")
}

func TestSaveCountOK(t *testing.T) {
	stub := &stubCountingService{}
	r := newTestRouter(stub)

	body := []byte(`{"device":"22","drug_name":"Aspirin","location":"B01","quantity":"12","note":"half open"}`)
	w := performRequest(r, http.MethodPost, "/api/count/save", body, "Alice")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"saved"}`, w.Body.String())
	assert.Equal(t, models.SaveCountRequest{
		Device:   "22",
		DrugName: "Aspirin",
		Location: "B01",
		Quantity: "12",
		Note:     "half open",
	}, stub.gotSave)
}

func TestSaveCountMalformedBody(t *testing.T) {
	stub := &stubCountingService{}
	r := newTestRouter(stub)

	w := performRequest(r, http.MethodPost, "/api/count/save", []byte(`{`), "Alice")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestSaveCountMissingRequiredFields(t *testing.T) {
	stub := &stubCountingService{}
	r := newTestRouter(stub)

	w := performRequest(r, http.MethodPost, "/api/count/save", []byte(`{"quantity":"3"}`), "Alice")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, stub.gotSave.DrugName, "service must not be called")
}

func TestSaveCountLockedRowConflict(t *testing.T) {
	stub := &stubCountingService{saveErr: counting.ErrRowLocked}
	r := newTestRouter(stub)

	body := []byte(`{"drug_name":"Aspirin","location":"B01"}`)
	w := performRequest(r, http.MethodPost, "/api/count/save", body, "Alice")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "owned by another operator")
}

func TestSaveCountBackendFailure(t *testing.T) {
	stub := &stubCountingService{saveErr: fmt.Errorf("save count: %w", io.ErrUnexpectedEOF)}
	r := newTestRouter(stub)

	body := []byte(`{"drug_name":"Aspirin","location":"B01"}`)
	w := performRequest(r, http.MethodPost, "/api/count/save", body, "Alice")

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"error":"spreadsheet unavailable"}`, w.Body.String())
}

func TestAddItemCreated(t *testing.T) {
	stub := &stubCountingService{}
	r := newTestRouter(stub)

	body := []byte(`{"drug_name":"Paracetamol","location":"D04","quantity":"3"}`)
	w := performRequest(r, http.MethodPost, "/api/count/items", body, "Alice")

	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"status":"created"}`, w.Body.String())
	assert.Equal(t, "Paracetamol", stub.gotAdd.DrugName)
}

func TestAddItemMissingFields(t *testing.T) {
	stub := &stubCountingService{addErr: counting.ErrMissingFields}
	r := newTestRouter(stub)

	w := performRequest(r, http.MethodPost, "/api/count/items", []byte(`{"drug_name":"  "}`), "Alice")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "drug name and location are required")
}

func TestExportDownload(t *testing.T) {
	payload := []byte("PK\x03\x04 workbook bytes")
	stub := &stubCountingService{export: payload, exportName: "Count-21-cart.xlsx"}
	r := newTestRouter(stub)

	w := performRequest(r, http.MethodGet, "/api/count/export?device=21", nil, "Alice")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "21", stub.gotDevice)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Count-21-cart.xlsx"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, payload, w.Body.Bytes())
}

func TestExportBackendFailure(t *testing.T) {
	stub := &stubCountingService{exportErr: fmt.Errorf("export table Count-21-cart: %w", io.ErrUnexpectedEOF)}
	r := newTestRouter(stub)

	w := performRequest(r, http.MethodGet, "/api/count/export", nil, "Alice")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
