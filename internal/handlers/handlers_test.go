package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoservice-billing-api/internal/adapters/storage"
	"autoservice-billing-api/internal/database"
	"autoservice-billing-api/internal/metrics"
	"autoservice-billing-api/internal/middleware"
	"autoservice-billing-api/internal/models"
	"autoservice-billing-api/internal/repositories/sqlite"
	"autoservice-billing-api/internal/services"
)

type testServer struct {
	router  *gin.Engine
	auth    *middleware.AuthService
	archive *storage.MemoryFileStorage
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	cfg := database.DefaultConnectionConfig()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "handlers.db")
	cfg.Logger = logger
	cm := database.NewConnectionManager(cfg)
	require.NoError(t, cm.Connect())
	t.Cleanup(func() { cm.Close() })

	m := metrics.New()
	archive := storage.NewMemoryFileStorage()
	container, err := services.NewServiceContainer(sqlite.NewRepositoryContainer(cm.GetDB(), logger), &services.ServiceConfig{
		Archive: archive,
		Metrics: m,
		Logger:  logger,
	})
	require.NoError(t, err)

	seed := models.NewBusinessSettings("Garage Nord", "12 Rue Principale", "514-555-0100")
	federal, provincial := decimal.NewFromInt(5), decimal.RequireFromString("9.975")
	seed.FederalTaxRate, seed.ProvincialTaxRate = &federal, &provincial
	_, err = container.Settings.EnsureSeeded(context.Background(), seed)
	require.NoError(t, err)

	auth := middleware.NewAuthService(&middleware.AuthConfig{JWTSecret: "handler-test"}, logger)

	router := gin.New()
	SetupMiddleware(router, &MiddlewareConfig{Metrics: m, Logger: logger})
	SetupRoutes(router, &RouterConfig{
		Services:    container,
		AuthService: auth,
		Database:    cm,
		Metrics:     m,
		Logger:      logger,
	})

	return &testServer{router: router, auth: auth, archive: archive}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
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
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	token, err := s.auth.GenerateToken("manager", []string{string(middleware.RoleAdmin)})
	require.NoError(t, err)
	return token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func requireMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, got.Equal(decimal.RequireFromString(want)), "got %s, want %s", got, want)
}

var cart = gin.H{
	"items": []gin.H{
		{"name": "Full detail package", "base_price": "50.00", "kind": "package"},
		{"name": "Tire shine", "base_price": 25, "kind": "addon"},
	},
	"vehicle_ref":    "veh-42",
	"performed_date": "2024-03-15",
}

func checkout(t *testing.T, s *testServer) services.CheckoutResult {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/checkout", cart, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[services.CheckoutResult](t, w)
}

func TestPricingEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/pricing/quote", gin.H{"items": cart["items"]}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	quote := decode[services.QuoteResult](t, w)
	requireMoney(t, "86.23", quote.Pricing.Total)
	requireMoney(t, "57.49", quote.ItemPrices[0])

	w = s.do(t, http.MethodPost, "/api/v1/pricing/decompose", gin.H{"total": "114.98"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decomposed := decode[services.DecomposeResult](t, w)
	requireMoney(t, "100.00", decomposed.Breakdown.Subtotal)
	requireMoney(t, "9.98", decomposed.Breakdown.ProvincialTax)

	w = s.do(t, http.MethodGet, "/api/v1/pricing/tax-configuration", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[services.TaxConfigurationView](t, w)
	requireMoney(t, "14.975", view.CombinedRate)
}

func TestPricingEndpoints_Rejects(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/pricing/quote", gin.H{
		"items": []gin.H{{"name": "Wash", "base_price": "-1", "kind": "package"}},
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, "items[0]", resp.Field)
	assert.NotEmpty(t, resp.RequestID)

	w = s.do(t, http.MethodPost, "/api/v1/pricing/decompose", gin.H{
		"total": "10", "rates": gin.H{"federal_tax_rate": "150"},
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/pricing/quote", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutAndReprintAfterSettingsChange(t *testing.T) {
	s := newTestServer(t)
	sale := checkout(t, s)

	require.Len(t, sale.Records, 2)
	require.NotNil(t, sale.SnapshotID)
	requireMoney(t, "86.23", sale.Pricing.Total)
	ids := []string{sale.Records[0].ID, sale.Records[1].ID}

	w := s.do(t, http.MethodPut, "/api/v1/settings/business", gin.H{
		"name":             "Garage Nord",
		"federal_tax_rate": "5",
	}, s.adminToken(t))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/v1/receipts/consolidate", gin.H{"service_record_ids": ids}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	frozen := decode[models.PrintableReceipt](t, w)
	require.Len(t, frozen.Groups, 1)
	requireMoney(t, "75.00", frozen.Groups[0].Subtotal)
	assert.Equal(t, "snapshot", frozen.Groups[0].TaxSource)
	assert.Equal(t, *sale.SnapshotID, frozen.SnapshotID)

	w = s.do(t, http.MethodPost, "/api/v1/receipts/consolidate", gin.H{
		"service_record_ids": ids,
		"tax_source":         "current",
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	current := decode[models.PrintableReceipt](t, w)
	requireMoney(t, "82.12", current.Groups[0].Subtotal)
	requireMoney(t, "4.11", current.Groups[0].FederalTax)
}

func TestReceiptPrinting(t *testing.T) {
	s := newTestServer(t)
	sale := checkout(t, s)
	ids := []string{sale.Records[0].ID, sale.Records[1].ID}

	w := s.do(t, http.MethodPost, "/api/v1/receipts/print?format=pdf", gin.H{"service_record_ids": ids}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".pdf")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	key := w.Header().Get("X-Archive-Key")
	require.NotEmpty(t, key)
	exists, err := s.archive.Exists(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, exists)

	w = s.do(t, http.MethodGet, "/api/v1/receipts/snapshots/"+*sale.SnapshotID+"/print?format=thermal", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Garage Nord")

	w = s.do(t, http.MethodGet, "/api/v1/receipts/snapshots/"+*sale.SnapshotID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode[models.ReceiptSnapshot](t, w)
	assert.ElementsMatch(t, ids, snap.ServiceRecordIDs)

	w = s.do(t, http.MethodPost, "/api/v1/receipts/print?format=docx", gin.H{"service_record_ids": ids}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/receipts/consolidate", gin.H{"service_record_ids": []string{"nope"}}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/receipts/snapshots/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServiceRecordEndpoints(t *testing.T) {
	s := newTestServer(t)
	sale := checkout(t, s)

	w := s.do(t, http.MethodPost, "/api/v1/service-records", gin.H{
		"service_name":   "Winter tire swap",
		"price":          "114.98",
		"vehicle_ref":    "veh-7",
		"performed_date": "2024-11-02",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[services.RecordServiceResult](t, w)
	assert.NotNil(t, created.SnapshotID)

	w = s.do(t, http.MethodGet, "/api/v1/service-records?vehicle_ref=veh-42&limit=1", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page := decode[services.ListRecordsResult](t, w)
	assert.Len(t, page.Records, 1)
	assert.Equal(t, int64(2), page.Pagination.Total)
	assert.True(t, page.Pagination.HasNext)

	w = s.do(t, http.MethodGet, "/api/v1/service-records?from=2024-13-01", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	id := sale.Records[0].ID
	w = s.do(t, http.MethodGet, "/api/v1/service-records/"+id, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodDelete, "/api/v1/service-records/"+id, nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	operator, err := s.auth.GenerateToken("clerk", []string{string(middleware.RoleOperator)})
	require.NoError(t, err)
	w = s.do(t, http.MethodDelete, "/api/v1/service-records/"+id, nil, operator)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodDelete, "/api/v1/service-records/"+id, nil, s.adminToken(t))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/service-records/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// The snapshot outlives the deleted record.
	w = s.do(t, http.MethodGet, "/api/v1/receipts/snapshots/"+*sale.SnapshotID+"/print", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSettingsEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/settings/business", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	settings := decode[models.BusinessSettings](t, w)
	assert.Equal(t, "Garage Nord", settings.Name)

	update := gin.H{"name": "Garage Nord", "provincial_tax_rate": "101"}
	w = s.do(t, http.MethodPut, "/api/v1/settings/business", update, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPut, "/api/v1/settings/business", update, s.adminToken(t))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	checkout(t, s)

	w := s.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[models.HealthCheck](t, w)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "ok", health.Services["database"])

	w = s.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "autoservice_checkouts_total 1")
	assert.Contains(t, w.Body.String(), `autoservice_receipt_snapshot_writes_total{result="success",source="checkout"} 1`)
}
