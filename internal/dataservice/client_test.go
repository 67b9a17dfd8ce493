package dataservice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palletops/warehouse-monitor/internal/config"
	"github.com/palletops/warehouse-monitor/internal/domain"
)

func newTestClient(server *httptest.Server) *Client {
	return &Client{
		baseURL: server.URL,
		apiKey:  "test-api-key",
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func TestNewClient(t *testing.T) {
	cfg := config.DataServiceConfig{
		BaseURL:        "http://data-service.local:9000",
		APIKey:         "test-key",
		TimeoutSeconds: 30,
	}

	client := NewClient(cfg)

	assert.NotNil(t, client)
	assert.Equal(t, "test-key", client.apiKey)
	assert.Equal(t, "http://data-service.local:9000", client.baseURL)
}

func TestGetActionCenterSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/action-center", r.URL.Path)
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))

		response := ActionCenterSnapshot{
			Categories: []ActionCategory{
				{Type: domain.TypeStagnantPallet, Label: "Stagnant Pallets", ActiveItems: 3, Impact: 1250},
				{Type: domain.TypeDuplicateScan, Label: "Duplicate Scans", ActiveItems: 2, Impact: 80},
			},
			TotalActiveItems:     5,
			ResolvedToday:        7,
			TotalFinancialImpact: 1330,
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	client := newTestClient(server)
	snap, err := client.GetActionCenterSnapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.Equal(t, 5, snap.TotalActiveItems)
	assert.Equal(t, 7, snap.ResolvedToday)
	require.Len(t, snap.Categories, 2)
	assert.Equal(t, domain.TypeStagnantPallet, snap.Categories[0].Type)
	assert.InDelta(t, 1330, snap.TotalFinancialImpact, 1e-9)
}

func TestGetAchievementsSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/achievements", r.URL.Path)
		json.NewEncoder(w).Encode(AchievementsSnapshot{
			Achievements: []Achievement{{ID: "clean-week", Title: "Clean Week"}},
			HealthScore:  88.5,
		})
	}))
	defer server.Close()

	client := newTestClient(server)
	snap, err := client.GetAchievementsSnapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.InDelta(t, 88.5, snap.HealthScore, 1e-9)
	require.Len(t, snap.Achievements, 1)
	assert.Equal(t, "clean-week", snap.Achievements[0].ID)
}

func TestListReports(t *testing.T) {
	ts := time.Date(2026, 8, 17, 6, 30, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/reports", r.URL.Path)
		json.NewEncoder(w).Encode([]domain.ReportSummary{
			{ID: 12, Name: "inventory-monday.xlsx", Timestamp: ts, AnomalyCount: 4},
			{ID: 11, Name: "inventory-sunday.xlsx", Timestamp: ts.Add(-24 * time.Hour), AnomalyCount: 0},
		})
	}))
	defer server.Close()

	client := newTestClient(server)
	reports, err := client.ListReports(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, int64(12), reports[0].ID)
	assert.Equal(t, 4, reports[0].AnomalyCount)
	assert.True(t, reports[0].Timestamp.Equal(ts))
}

func TestGetReportDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/reports/12", r.URL.Path)
		json.NewEncoder(w).Encode(ReportDetail{
			ReportID: 12,
			Locations: []domain.LocationSummary{
				{
					Name: "DOCK-01",
					Anomalies: []domain.AnomalyRecord{
						{ID: "a1", Type: domain.TypeStagnantPallet, Priority: domain.PriorityHigh, Status: domain.StatusNew},
					},
					AnomalyCount: 1,
				},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server)
	detail, err := client.GetReportDetail(context.Background(), 12)
	require.NoError(t, err)
	require.NotNil(t, detail)

	assert.Equal(t, int64(12), detail.ReportID)
	require.Len(t, detail.Locations, 1)
	assert.Equal(t, "DOCK-01", detail.Locations[0].Name)
	assert.Equal(t, domain.TypeStagnantPallet, detail.Locations[0].Anomalies[0].Type)
}

func TestGetReportDetail_BackfillsReportID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Older backend versions omit report_id in the detail payload.
		w.Write([]byte(`{"locations":[]}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	detail, err := client.GetReportDetail(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), detail.ReportID)
}

func TestGetSpaceUtilization(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/reports/12/space-utilization", r.URL.Path)
		json.NewEncoder(w).Encode(SpaceUtilization{
			UtilizationPercentage: 81.5,
			InventoryCount:        815,
			WarehouseCapacity:     1000,
			AvailableSpace:        185,
		})
	}))
	defer server.Close()

	client := newTestClient(server)
	util, err := client.GetSpaceUtilization(context.Background(), 12)
	require.NoError(t, err)

	assert.InDelta(t, 81.5, util.UtilizationPercentage, 1e-9)
	assert.Equal(t, 185, util.AvailableSpace)
}

func TestResolveAnomaly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/anomalies/anom-91/resolve", r.URL.Path)
		json.NewEncoder(w).Encode(ResolveResult{Success: true, Message: "resolved"})
	}))
	defer server.Close()

	client := newTestClient(server)
	result, err := client.ResolveAnomaly(context.Background(), "anom-91")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "resolved", result.Message)
}

func TestResolveCategory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/anomalies/categories/duplicate_scan/resolve", r.URL.Path)
		json.NewEncoder(w).Encode(ResolveResult{Success: true})
	}))
	defer server.Close()

	client := newTestClient(server)
	result, err := client.ResolveCategory(context.Background(), domain.TypeDuplicateScan)
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestResolveBulk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/anomalies/resolve-bulk", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string][]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"a1", "a2", "a3"}, body["ids"])

		json.NewEncoder(w).Encode(ResolveResult{Success: true, Message: "3 resolved"})
	}))
	defer server.Close()

	client := newTestClient(server)
	result, err := client.ResolveBulk(context.Background(), []string{"a1", "a2", "a3"})
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestResolveAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/anomalies/resolve-all", r.URL.Path)
		json.NewEncoder(w).Encode(ResolveResult{Success: true})
	}))
	defer server.Close()

	client := newTestClient(server)
	result, err := client.ResolveAll(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestDoRequest_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"report not found"}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.GetReportDetail(context.Background(), 999)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Contains(t, err.Error(), "report not found")
}

func TestDoRequest_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total_active_items": `))
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.GetActionCenterSnapshot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing action center snapshot")
}

func TestDoRequest_NoAuthHeaderWithoutKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode([]domain.ReportSummary{})
	}))
	defer server.Close()

	client := newTestClient(server)
	client.apiKey = ""
	_, err := client.ListReports(context.Background())
	require.NoError(t, err)
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]domain.ReportSummary{})
	}))
	defer server.Close()

	client := newTestClient(server)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestPing_Unreachable(t *testing.T) {
	server := httptest.NewServer(nil)
	server.Close()

	client := newTestClient(server)
	assert.Error(t, client.Ping(context.Background()))
}
