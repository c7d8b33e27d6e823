package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/salesdash/internal/config"
	"github.com/JonMunkholm/salesdash/internal/core"
	"github.com/JonMunkholm/salesdash/internal/domain"
	"github.com/JonMunkholm/salesdash/internal/report"
)

type fakeImporter struct {
	result   *core.Result
	gotName  string
	gotBody  string
	gotIP    string
	runs     []domain.ImportRun
	gotLimit int
	limiter  *core.ImportLimiter
}

func (f *fakeImporter) Import(ctx context.Context, fileName string, r io.Reader) *core.Result {
	b, _ := io.ReadAll(r)
	f.gotName, f.gotBody = fileName, string(b)
	f.gotIP = core.IPAddressFromContext(ctx)
	return f.result
}

func (f *fakeImporter) RecentImports(_ context.Context, limit int) ([]domain.ImportRun, error) {
	f.gotLimit = limit
	return f.runs, nil
}

func (f *fakeImporter) Limiter() *core.ImportLimiter { return f.limiter }

type fakeReporter struct {
	err       error
	gotFilter report.Filter
}

func (f *fakeReporter) Overview(_ context.Context, flt report.Filter) (*report.Overview, error) {
	f.gotFilter = flt
	if f.err != nil {
		return nil, f.err
	}
	return &report.Overview{}, nil
}

func (f *fakeReporter) Market(_ context.Context, flt report.Filter) (*report.MarketView, error) {
	f.gotFilter = flt
	return &report.MarketView{}, f.err
}

func (f *fakeReporter) Customer(_ context.Context, flt report.Filter) (*report.CustomerView, error) {
	f.gotFilter = flt
	return &report.CustomerView{}, f.err
}

func (f *fakeReporter) Product(_ context.Context, flt report.Filter) (*report.ProductView, error) {
	f.gotFilter = flt
	return &report.ProductView{}, f.err
}

func (f *fakeReporter) Filters(context.Context) (*report.Filters, error) {
	return &report.Filters{Years: []int{2014, 2015}}, f.err
}

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{RequestTimeout: time.Minute},
		Import:   config.ImportConfig{MaxFileSize: 1 << 20},
		Security: config.SecurityConfig{EnableCSP: true},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, imp *fakeImporter, rep *fakeReporter) *Server {
	t.Helper()
	if imp.limiter == nil {
		imp.limiter = core.NewImportLimiter(1, time.Second)
	}
	s := NewServer(imp, rep, cfg)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func uploadRequest(t *testing.T, field, fileName, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		fw, err := mw.CreateFormFile(field, fileName)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	} else {
		mw.WriteField("note", "no file here")
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func failedResult(err error) *core.Result {
	ue := core.NewUserError(err)
	return &core.Result{FileName: "sales.csv", Message: ue.User.Message, Err: err, UserError: ue}
}

func TestHandleImport(t *testing.T) {
	tests := []struct {
		name       string
		field      string
		result     *core.Result
		wantStatus int
		wantCode   string
	}{
		{
			name:  "committed",
			field: "file",
			result: &core.Result{
				Success: true, FileName: "sales.csv", RowsRead: 3,
				LoadStats: core.LoadStats{DetailsInserted: 3, Orders: 2},
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "legacy field name",
			field:      "excel_file",
			result:     &core.Result{Success: true, FileName: "sales.csv"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "bad data",
			field:      "file",
			result:     failedResult(errors.New("line 4: Sales: invalid decimal \"abc\"")),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "busy",
			field:      "file",
			result:     failedResult(core.ErrImportBusy),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "IMP001",
		},
		{
			name:       "timed out",
			field:      "file",
			result:     failedResult(context.DeadlineExceeded),
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   "IMP003",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imp := &fakeImporter{result: tt.result}
			s := newTestServer(t, testConfig(), imp, &fakeReporter{})

			rec := serve(s, uploadRequest(t, tt.field, "sales.csv", "Row ID\n1\n"))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}

			resp := decode[ImportResponse](t, rec)
			if resp.Success != tt.result.Success {
				t.Errorf("success = %v, want %v", resp.Success, tt.result.Success)
			}
			if tt.wantCode != "" && resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
			if imp.gotName != "sales.csv" || imp.gotBody != "Row ID\n1\n" {
				t.Errorf("importer got %q / %q", imp.gotName, imp.gotBody)
			}
			if imp.gotIP != "192.0.2.1" {
				t.Errorf("client ip = %q, want 192.0.2.1", imp.gotIP)
			}
			if tt.wantStatus == http.StatusServiceUnavailable && rec.Header().Get("Retry-After") == "" {
				t.Error("busy response has no Retry-After")
			}
		})
	}
}

func TestHandleImport_NoFile(t *testing.T) {
	imp := &fakeImporter{}
	s := newTestServer(t, testConfig(), imp, &fakeReporter{})

	rec := serve(s, uploadRequest(t, "", "", ""))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if got := decode[ErrorResponse](t, rec).Code; got != "FILE004" {
		t.Errorf("code = %q, want FILE004", got)
	}
	if imp.gotName != "" {
		t.Error("importer ran without a file")
	}
}

func TestHandleImport_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Import.MaxFileSize = 64
	imp := &fakeImporter{}
	s := newTestServer(t, cfg, imp, &fakeReporter{})

	rec := serve(s, uploadRequest(t, "file", "sales.csv", strings.Repeat("x", 4096)))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
	if got := decode[ErrorResponse](t, rec).Code; got != "FILE001" {
		t.Errorf("code = %q, want FILE001", got)
	}
}

func TestReportEndpoints(t *testing.T) {
	paths := []string{
		"/api/overview-data",
		"/api/market-data",
		"/api/customer-data",
		"/api/product-data",
	}
	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			rep := &fakeReporter{}
			s := newTestServer(t, testConfig(), &fakeImporter{}, rep)

			rec := serve(s, httptest.NewRequest(http.MethodGet, p+"?year=2014&quarter=2&market_id=3", nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content type = %q", ct)
			}
			want := report.Filter{Year: 2014, Quarter: 2, MarketID: 3}
			if rep.gotFilter != want {
				t.Errorf("filter = %+v, want %+v", rep.gotFilter, want)
			}
		})
	}
}

func TestReportEndpoints_Errors(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		err        error
		wantStatus int
	}{
		{"non-numeric year", "?year=abc", nil, http.StatusBadRequest},
		{"month out of range", "?month=13", nil, http.StatusBadRequest},
		{"store failure", "", errors.New("connection refused"), http.StatusInternalServerError},
		{"slow query", "", context.DeadlineExceeded, http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, testConfig(), &fakeImporter{}, &fakeReporter{err: tt.err})

			rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/overview-data"+tt.query, nil))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if decode[ErrorResponse](t, rec).Message == "" {
				t.Error("error response has no message")
			}
		})
	}
}

func TestFiltersAndStatus(t *testing.T) {
	imp := &fakeImporter{runs: []domain.ImportRun{{FileName: "a.csv"}}}
	s := newTestServer(t, testConfig(), imp, &fakeReporter{})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/filters", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("filters status = %d", rec.Code)
	}
	if got := decode[report.Filters](t, rec).Years; len(got) != 2 {
		t.Errorf("years = %v", got)
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/import/status", nil))
	if got := decode[core.ImportLimiterStatus](t, rec); got.Capacity != 1 || got.Available != 1 {
		t.Errorf("limiter status = %+v", got)
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/imports?limit=500", nil))
	if rec.Code != http.StatusOK || imp.gotLimit != 200 {
		t.Errorf("imports status = %d, limit = %d", rec.Code, imp.gotLimit)
	}
	serve(s, httptest.NewRequest(http.MethodGet, "/api/imports?limit=-1", nil))
	if imp.gotLimit != 20 {
		t.Errorf("limit = %d, want default 20", imp.gotLimit)
	}
}

func TestHealthAndSecurityHeaders(t *testing.T) {
	s := newTestServer(t, testConfig(), &fakeImporter{}, &fakeReporter{})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy"} {
		if rec.Header().Get(h) == "" {
			t.Errorf("missing %s", h)
		}
	}
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"k1", "k2"}
	s := newTestServer(t, cfg, &fakeImporter{}, &fakeReporter{})

	tests := []struct {
		key  string
		want int
	}{
		{"", http.StatusUnauthorized},
		{"wrong", http.StatusForbidden},
		{"k2", http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/filters", nil)
		if tt.key != "" {
			req.Header.Set("X-API-Key", tt.key)
		}
		if rec := serve(s, req); rec.Code != tt.want {
			t.Errorf("key %q: status = %d, want %d", tt.key, rec.Code, tt.want)
		}
	}

	if rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil)); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200 without a key", rec.Code)
	}
}

func TestImportRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, ImportLimit: 1}
	imp := &fakeImporter{result: &core.Result{Success: true}}
	s := newTestServer(t, cfg, imp, &fakeReporter{})

	if rec := serve(s, uploadRequest(t, "file", "a.csv", "x")); rec.Code != http.StatusOK {
		t.Fatalf("first import status = %d", rec.Code)
	}
	rec := serve(s, uploadRequest(t, "file", "a.csv", "x"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second import status = %d, want 429", rec.Code)
	}
	if got := decode[ErrorResponse](t, rec).Code; got != "RATE001" {
		t.Errorf("code = %q, want RATE001", got)
	}

	// Reports have their own budget.
	if rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/filters", nil)); rec.Code != http.StatusOK {
		t.Errorf("report status = %d after import limit hit", rec.Code)
	}
}

func TestRateLimiter_WindowResets(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	defer rl.stop()

	now := time.Date(2015, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i, want := range []bool{true, true, false} {
		if got := rl.allow("10.0.0.1"); got != want {
			t.Errorf("call %d: allow = %v, want %v", i+1, got, want)
		}
	}
	if !rl.allow("10.0.0.2") {
		t.Error("second client shares the first client's budget")
	}

	now = now.Add(time.Minute + time.Second)
	if !rl.allow("10.0.0.1") {
		t.Error("budget did not reset after the window")
	}
}
