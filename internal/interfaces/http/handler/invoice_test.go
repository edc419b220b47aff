package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appbilling "github.com/retailbill/backend/internal/application/billing"
	"github.com/retailbill/backend/internal/domain/billing"
	"github.com/retailbill/backend/internal/domain/shared"
	"github.com/retailbill/backend/internal/domain/tax"
	"github.com/retailbill/backend/internal/interfaces/http/dto"
)

// MockInvoiceRepository implements billing.InvoiceRepository for testing
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, id)
	if inv := args.Get(0); inv != nil {
		return inv.(*billing.Invoice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, tenantID, id)
	if inv := args.Get(0); inv != nil {
		return inv.(*billing.Invoice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockInvoiceRepository) FindByInvoiceNumber(ctx context.Context, tenantID uuid.UUID, invoiceNumber string) (*billing.Invoice, error) {
	args := m.Called(ctx, tenantID, invoiceNumber)
	if inv := args.Get(0); inv != nil {
		return inv.(*billing.Invoice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockInvoiceRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter billing.InvoiceFilter) ([]billing.Invoice, error) {
	args := m.Called(ctx, tenantID, filter)
	if invs := args.Get(0); invs != nil {
		return invs.([]billing.Invoice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockInvoiceRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter billing.InvoiceFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvoiceRepository) FindEMIDueBefore(ctx context.Context, tenantID uuid.UUID, cutoff time.Time) ([]billing.Invoice, error) {
	args := m.Called(ctx, tenantID, cutoff)
	if invs := args.Get(0); invs != nil {
		return invs.([]billing.Invoice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockInvoiceRepository) Summarize(ctx context.Context, tenantID uuid.UUID) (*billing.InvoiceSummary, error) {
	args := m.Called(ctx, tenantID)
	if s := args.Get(0); s != nil {
		return s.(*billing.InvoiceSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) SaveWithLock(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

// MockSequenceRepository implements billing.SequenceRepository for testing
type MockSequenceRepository struct {
	mock.Mock
}

func (m *MockSequenceRepository) Next(ctx context.Context, tenantID uuid.UUID, name string) (int64, error) {
	args := m.Called(ctx, tenantID, name)
	return args.Get(0).(int64), args.Error(1)
}

func newInvoiceTestHandler(invoiceRepo *MockInvoiceRepository, seqRepo *MockSequenceRepository) *InvoiceHandler {
	service := appbilling.NewInvoiceService(invoiceRepo, seqRepo, tax.NewGSTCalculator())
	return NewInvoiceHandler(service)
}

func createInvoiceBody() map[string]any {
	return map[string]any{
		"customer_id":    uuid.New().String(),
		"customer_name":  "Asha Electronics Traders",
		"segment":        "electronics",
		"payment_status": "pending",
		"items": []map[string]any{
			{
				"name":     "LED TV 43 inch",
				"quantity": "1",
				"rate":     "10000",
				"gst_slab": "18",
				"hsn_code": "8528",
			},
		},
	}
}

func performJSON(h gin.HandlerFunc, method, path string, body any, tenantID uuid.UUID, params ...gin.Param) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, &buf)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = params
	if tenantID != uuid.Nil {
		setJWTContext(c, tenantID, uuid.New())
	}

	h(c)
	// Status-only responses (204) are buffered until the first body write;
	// outside a full engine run the flush has to be explicit.
	c.Writer.WriteHeaderNow()
	return w
}

func TestInvoiceHandlerCreate(t *testing.T) {
	invoiceRepo := new(MockInvoiceRepository)
	seqRepo := new(MockSequenceRepository)
	tenantID := uuid.New()

	seqRepo.On("Next", mock.Anything, tenantID, "invoice:EL_GST").Return(int64(1), nil)
	invoiceRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

	h := newInvoiceTestHandler(invoiceRepo, seqRepo)
	w := performJSON(h.Create, http.MethodPost, "/api/v1/invoices", createInvoiceBody(), tenantID)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "EL_GST_001", data["invoice_number"])
	assert.Equal(t, "11800", data["grand_total"])
	invoiceRepo.AssertExpectations(t)
	seqRepo.AssertExpectations(t)
}

func TestInvoiceHandlerCreate_MissingTenant(t *testing.T) {
	h := newInvoiceTestHandler(new(MockInvoiceRepository), new(MockSequenceRepository))
	w := performJSON(h.Create, http.MethodPost, "/api/v1/invoices", createInvoiceBody(), uuid.Nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInvoiceHandlerCreate_InvalidBody(t *testing.T) {
	tenantID := uuid.New()
	h := newInvoiceTestHandler(new(MockInvoiceRepository), new(MockSequenceRepository))

	body := createInvoiceBody()
	delete(body, "customer_name")
	w := performJSON(h.Create, http.MethodPost, "/api/v1/invoices", body, tenantID)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "customer_name", resp.Error.Details[0].Field)
}

func TestInvoiceHandlerCreate_InvalidSegment(t *testing.T) {
	tenantID := uuid.New()
	h := newInvoiceTestHandler(new(MockInvoiceRepository), new(MockSequenceRepository))

	body := createInvoiceBody()
	body["segment"] = "grocery"
	w := performJSON(h.Create, http.MethodPost, "/api/v1/invoices", body, tenantID)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
}

func TestInvoiceHandlerGet_NotFound(t *testing.T) {
	invoiceRepo := new(MockInvoiceRepository)
	tenantID := uuid.New()
	id := uuid.New()

	invoiceRepo.On("FindByIDForTenant", mock.Anything, tenantID, id).Return(nil, nil)

	h := newInvoiceTestHandler(invoiceRepo, new(MockSequenceRepository))
	w := performJSON(h.Get, http.MethodGet, "/api/v1/invoices/"+id.String(), nil, tenantID,
		gin.Param{Key: "id", Value: id.String()})

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
}

func TestInvoiceHandlerGet_MalformedID(t *testing.T) {
	h := newInvoiceTestHandler(new(MockInvoiceRepository), new(MockSequenceRepository))
	w := performJSON(h.Get, http.MethodGet, "/api/v1/invoices/abc", nil, uuid.New(),
		gin.Param{Key: "id", Value: "abc"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvoiceHandlerList(t *testing.T) {
	invoiceRepo := new(MockInvoiceRepository)
	tenantID := uuid.New()

	invoiceRepo.On("FindAllForTenant", mock.Anything, tenantID, mock.Anything).Return([]billing.Invoice{}, nil)
	invoiceRepo.On("CountForTenant", mock.Anything, tenantID, mock.Anything).Return(int64(0), nil)

	h := newInvoiceTestHandler(invoiceRepo, new(MockSequenceRepository))
	w := performJSON(h.List, http.MethodGet, "/api/v1/invoices?page=1&page_size=10", nil, tenantID)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(0), resp.Meta.Total)
}

func TestInvoiceHandlerSummary(t *testing.T) {
	invoiceRepo := new(MockInvoiceRepository)
	tenantID := uuid.New()

	invoiceRepo.On("Summarize", mock.Anything, tenantID).Return(&billing.InvoiceSummary{
		TotalInvoices:    3,
		TotalBilled:      decimal.NewFromInt(45000),
		TotalOutstanding: decimal.NewFromInt(12000),
	}, nil)

	h := newInvoiceTestHandler(invoiceRepo, new(MockSequenceRepository))
	w := performJSON(h.Summary, http.MethodGet, "/api/v1/invoices/summary", nil, tenantID)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "45000", data["total_billed"])
}

func TestInvoiceHandlerDelete(t *testing.T) {
	invoiceRepo := new(MockInvoiceRepository)
	tenantID := uuid.New()
	id := uuid.New()

	inv := &billing.Invoice{TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID)}
	inv.ID = id
	invoiceRepo.On("FindByIDForTenant", mock.Anything, tenantID, id).Return(inv, nil)
	invoiceRepo.On("DeleteForTenant", mock.Anything, tenantID, id).Return(nil)

	h := newInvoiceTestHandler(invoiceRepo, new(MockSequenceRepository))
	w := performJSON(h.Delete, http.MethodDelete, "/api/v1/invoices/"+id.String(), nil, tenantID,
		gin.Param{Key: "id", Value: id.String()})

	assert.Equal(t, http.StatusNoContent, w.Code)
	invoiceRepo.AssertExpectations(t)
}

func TestInvoiceHandlerPayInstallment_BadNumber(t *testing.T) {
	h := newInvoiceTestHandler(new(MockInvoiceRepository), new(MockSequenceRepository))
	id := uuid.New()

	w := performJSON(h.PayInstallment, http.MethodPost,
		"/api/v1/invoices/"+id.String()+"/installments/zero/payments",
		map[string]any{"amount": "500", "method": "cash"}, uuid.New(),
		gin.Param{Key: "id", Value: id.String()},
		gin.Param{Key: "number", Value: "zero"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
