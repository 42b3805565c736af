package v1

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"roamstat/internal/geo"
	"roamstat/internal/mapping"
	"roamstat/internal/model"
	"roamstat/internal/pipeline"
	"roamstat/internal/resolver"
	"roamstat/internal/store"
)

func newTestRouter(t *testing.T) (*gin.Engine, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	s, err := store.New(filepath.Join(dir, "roamstat.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	networkStore := mapping.NewStore(filepath.Join(dir, "network_to_country.csv"), model.ColNetworkID)
	partnerStore := mapping.NewStore(filepath.Join(dir, "partner_to_country.csv"), model.ColPartnerName)
	catalog := geo.NewCatalog()
	pipe := pipeline.New(networkStore, partnerStore, resolver.New(catalog))

	h := NewHandler(Options{
		Store:        s,
		Pipeline:     pipe,
		NetworkStore: networkStore,
		PartnerStore: partnerStore,
		Catalog:      catalog,
		ExportDir:    filepath.Join(dir, "exports"),
	})

	router := gin.New()
	h.RegisterRoutes(router.Group("/api"))
	return router, s
}

func intp(v int) *int { return &v }

func seedUsage(t *testing.T, s *store.Store) {
	t.Helper()

	records := []model.UsageRecord{
		{PartnerName: "Acme Telecom", NetworkID: "GBR001", TotalVolumeKB: 100,
			Year: intp(2020), Period: "Oct", Country: "United Kingdom"},
		{PartnerName: "Bharti Airtel", NetworkID: "IND002", TotalVolumeKB: 300,
			Year: intp(2020), Period: "Oct", Country: "India"},
		{PartnerName: "Mystery Operator", NetworkID: "??9", TotalVolumeKB: 1,
			Year: intp(2020), Period: "Oct", Country: ""},
	}
	if err := s.BatchInsertUsage("run-1", records); err != nil {
		t.Fatalf("insert: %v", err)
	}
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
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

func TestGetStatus_Empty(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status code: %d", w.Code)
	}

	var resp StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Initialized || resp.TotalRecords != 0 {
		t.Fatalf("unexpected status: %+v", resp)
	}
}

func TestListYears_NoData(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/usage/years", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestListCountryUsage(t *testing.T) {
	t.Parallel()

	router, s := newTestRouter(t)
	seedUsage(t, s)

	w := doJSON(t, router, http.MethodGet, "/api/usage/countries?year=2020&topN=5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status code: %d body=%s", w.Code, w.Body.String())
	}

	var resp CountryUsageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Usage) != 2 {
		t.Fatalf("expected 2 countries, got %d", len(resp.Usage))
	}
	if resp.Usage[0].Country != "India" || resp.Usage[0].ISO3 != "IND" {
		t.Fatalf("unexpected leader: %+v", resp.Usage[0])
	}
}

func TestListCountryUsage_MissingYear(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/usage/countries", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCorrectionsFlow(t *testing.T) {
	t.Parallel()

	router, s := newTestRouter(t)
	seedUsage(t, s)

	w := doJSON(t, router, http.MethodPost, "/api/mappings/corrections", gin.H{
		"corrections": []gin.H{
			{"networkId": "??9", "partnerName": "Mystery Operator", "country": "France"},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status code: %d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		NetworkAdded int   `json:"networkAdded"`
		PartnerAdded int   `json:"partnerAdded"`
		Backfilled   int64 `json:"backfilled"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.NetworkAdded != 1 || resp.PartnerAdded != 1 || resp.Backfilled != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	w = doJSON(t, router, http.MethodGet, "/api/unresolved", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status code: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"count":0`) {
		t.Fatalf("expected no unresolved, body=%s", w.Body.String())
	}
}

func TestCorrectionsFlow_AllEmpty(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/mappings/corrections", gin.H{
		"corrections": []gin.H{
			{"networkId": "??9", "partnerName": "Mystery Operator", "country": "none"},
		},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestExportAndDownload(t *testing.T) {
	t.Parallel()

	router, s := newTestRouter(t)
	seedUsage(t, s)

	w := doJSON(t, router, http.MethodPost, "/api/export", gin.H{
		"year":   2020,
		"format": "html",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status code: %d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Token    string `json:"token"`
		FileName string `json:"fileName"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Token == "" {
		t.Fatalf("expected token")
	}

	w = doJSON(t, router, http.MethodGet, "/api/export/download/"+resp.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("download status: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "India") {
		t.Fatalf("expected chart content")
	}

	w = doJSON(t, router, http.MethodGet, "/api/export/download/bogus", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for bogus token, got %d", w.Code)
	}
}

func TestExport_UnknownFormat(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/export", gin.H{
		"year":   2020,
		"format": "pdf",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestIngest_EndToEnd(t *testing.T) {
	t.Parallel()

	router, s := newTestRouter(t)

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", "Oct"); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	rows := [][]interface{}{
		{"Roaming Usage Report"},
		{"Partner Name", "Network ID", "Total Volume (KB)", "Total Duration (min)",
			"Total GPRS Amount (USD)", "Total Voice Amount (USD)"},
		{"Acme Telecom", "GBR001", "100", "10", "1", "1"},
	}
	for r, row := range rows {
		if err := f.SetSheetRow("Oct", fmt.Sprintf("A%d", r+1), &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	var workbook bytes.Buffer
	if err := f.Write(&workbook); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	_ = f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "Report_2020.xlsx")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(workbook.Bytes()); err != nil {
		t.Fatalf("write part: %v", err)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/ingest", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status code: %d body=%s", w.Code, w.Body.String())
	}
	out := w.Body.String()
	if !strings.Contains(out, `"type":"result"`) {
		t.Fatalf("expected result event, body=%s", out)
	}

	total, resolved, err := s.UsageCounts()
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if total != 1 || resolved != 1 {
		t.Fatalf("unexpected counts: %d %d", total, resolved)
	}
}
