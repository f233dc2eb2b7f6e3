package timeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"

	"github.com/osborn-app/dashboard/internal/plugins/audit"
	"github.com/osborn-app/dashboard/internal/plugins/auth"
	"github.com/osborn-app/dashboard/internal/rentalapi"
)

const handlerSecret = "handler-secret"

// --- Test Helpers ---

type handlerEnv struct {
	e       *echo.Echo
	svc     TimelineService
	handler *Handler
	token   string
}

func newHandlerEnv(t *testing.T, l rentalapi.Lister) *handlerEnv {
	t.Helper()
	svc := NewTimelineService(l, nil, Settings{PageSize: 10, MinRows: 5})
	h := NewHandler(svc)
	h.now = func() time.Time { return testNow }

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":   1,
		"name": "Sari",
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(handlerSecret))
	if err != nil {
		t.Fatal(err)
	}
	return &handlerEnv{e: echo.New(), svc: svc, handler: h, token: token}
}

// do runs fn behind the auth middleware and returns the recorder and the
// handler error.
func (env *handlerEnv) do(fn echo.HandlerFunc, req *http.Request, params ...string) (*httptest.ResponseRecorder, error) {
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+env.token)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	for i := 0; i+1 < len(params); i += 2 {
		c.SetParamNames(params[i])
		c.SetParamValues(params[i+1])
	}
	mw := auth.RequireAuth(auth.NewAuthService(handlerSecret), auth.MiddlewareConfig{CookieName: "access_token"})
	return rec, mw(fn)(c)
}

func (env *handlerEnv) openView(t *testing.T, f Filter) *View {
	t.Helper()
	v, _, err := env.svc.OpenView(context.Background(), "1", f)
	if err != nil {
		t.Fatalf("OpenView: %v", err)
	}
	return v
}

// --- Handler Tests ---

func TestHandler_ShowFullPage(t *testing.T) {
	env := newHandlerEnv(t, pagedLister(3, 2))

	req := httptest.NewRequest(http.MethodGet, "/timeline?endpoint=fleets&month=3&year=2024&type=suv", nil)
	rec, err := env.do(env.handler.Show, req)
	if err != nil {
		t.Fatalf("Show: %v", err)
	}
	body := rec.Body.String()
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.HasPrefix(body, "<!DOCTYPE html>") {
		t.Error("expected a full page")
	}
	for _, want := range []string{`id="timeline"`, `data-row-id="suv-p1-1"`, "March 2024", `hx-trigger="revealed"`} {
		if !strings.Contains(body, want) {
			t.Errorf("expected body to contain %q", want)
		}
	}
	// Three real rows are padded with two skeleton rows.
	if got := strings.Count(body, `aria-hidden="true"`); got < 2 {
		t.Errorf("expected placeholder rows, found %d", got)
	}
}

func TestHandler_ShowFragmentForHTMX(t *testing.T) {
	env := newHandlerEnv(t, pagedLister(3, 1))

	req := httptest.NewRequest(http.MethodGet, "/timeline?month=3&year=2024", nil)
	req.Header.Set("HX-Request", "true")
	rec, err := env.do(env.handler.Show, req)
	if err != nil {
		t.Fatal(err)
	}
	body := rec.Body.String()
	if strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("expected a fragment for HTMX requests")
	}
	if !strings.HasPrefix(body, `<section id="timeline"`) {
		t.Errorf("expected the grid section, got %.60q", body)
	}
	if strings.Contains(body, "timeline-sentinel") {
		t.Error("expected no sentinel on the last page")
	}
}

func TestHandler_ShowInvalidMonth(t *testing.T) {
	env := newHandlerEnv(t, pagedLister(3, 1))

	req := httptest.NewRequest(http.MethodGet, "/timeline?month=abc", nil)
	_, err := env.do(env.handler.Show, req)
	assertAppError(t, err, http.StatusUnprocessableEntity)
}

func TestHandler_ShowBackendDownRendersRetry(t *testing.T) {
	env := newHandlerEnv(t, &mockLister{listFn: func(context.Context, rentalapi.ListQuery) (rentalapi.ListResult, error) {
		return rentalapi.ListResult{}, errors.New("connection refused")
	}})

	req := httptest.NewRequest(http.MethodGet, "/timeline?month=3&year=2024", nil)
	rec, err := env.do(env.handler.Show, req)
	if err != nil {
		t.Fatalf("expected the page to render, got %v", err)
	}
	if !strings.Contains(rec.Body.String(), `hx-trigger="load delay:3s"`) {
		t.Error("expected a retry sentinel")
	}
}

func TestHandler_ShowRejectedCredentialsClosesView(t *testing.T) {
	env := newHandlerEnv(t, &mockLister{listFn: func(context.Context, rentalapi.ListQuery) (rentalapi.ListResult, error) {
		return rentalapi.ListResult{}, &rentalapi.StatusError{StatusCode: http.StatusUnauthorized, URL: "/fleets"}
	}})

	req := httptest.NewRequest(http.MethodGet, "/timeline?month=3&year=2024", nil)
	_, err := env.do(env.handler.Show, req)
	assertAppError(t, err, http.StatusForbidden)

	if n := env.svc.(*timelineService).registry.Len(); n != 0 {
		t.Errorf("expected the failed view to be closed, %d still open", n)
	}
}

func TestHandler_LoadMoreAppends(t *testing.T) {
	env := newHandlerEnv(t, pagedLister(10, 3))
	v := env.openView(t, testFilter("suv"))

	req := httptest.NewRequest(http.MethodGet, "/timeline/views/"+v.ID+"/rows", nil)
	req.Header.Set("HX-Request", "true")
	rec, err := env.do(env.handler.LoadMore, req, "vid", v.ID)
	if err != nil {
		t.Fatal(err)
	}
	body := rec.Body.String()
	if rec.Header().Get("HX-Retarget") != "" {
		t.Error("an append must not retarget the swap")
	}
	if strings.Contains(body, `data-row-id="suv-p1-1"`) {
		t.Error("expected only the new page's rows")
	}
	if !strings.Contains(body, `data-row-id="suv-p2-1"`) || !strings.Contains(body, "timeline-sentinel") {
		t.Error("expected page 2 rows followed by a new sentinel")
	}
}

func TestHandler_LoadMoreAfterFailedFirstPageRetargets(t *testing.T) {
	fail := true
	env := newHandlerEnv(t, &mockLister{listFn: func(_ context.Context, q rentalapi.ListQuery) (rentalapi.ListResult, error) {
		if fail {
			return rentalapi.ListResult{}, errors.New("timeout")
		}
		return rentalapi.ListResult{Items: fleets("ok", 6), Page: q.Page, TotalPages: 1}, nil
	}})
	v, _, err := env.svc.OpenView(context.Background(), "1", testFilter(""))
	if v == nil {
		t.Fatalf("expected view, got %v", err)
	}

	fail = false
	req := httptest.NewRequest(http.MethodGet, "/timeline/views/"+v.ID+"/rows", nil)
	rec, err := env.do(env.handler.LoadMore, req, "vid", v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Header().Get("HX-Retarget") != "#timeline-rows" || rec.Header().Get("HX-Reswap") != "innerHTML" {
		t.Errorf("expected the rows container to be replaced, got headers %v", rec.Header())
	}
	if got := strings.Count(rec.Body.String(), "data-row-id="); got != 6 {
		t.Errorf("expected 6 rows, got %d", got)
	}
}

func TestHandler_LoadMoreFailureRendersRetry(t *testing.T) {
	env := newHandlerEnv(t, &mockLister{listFn: func(_ context.Context, q rentalapi.ListQuery) (rentalapi.ListResult, error) {
		if q.Page == 2 {
			return rentalapi.ListResult{}, errors.New("timeout")
		}
		return rentalapi.ListResult{Items: fleets("x", 10), Page: q.Page, TotalPages: 2}, nil
	}})
	v := env.openView(t, testFilter(""))

	req := httptest.NewRequest(http.MethodGet, "/timeline/views/"+v.ID+"/rows", nil)
	rec, err := env.do(env.handler.LoadMore, req, "vid", v.ID)
	if err != nil {
		t.Fatal(err)
	}
	body := rec.Body.String()
	if strings.Contains(body, "data-row-id=") {
		t.Error("a failed page must not render rows")
	}
	if !strings.Contains(body, `hx-trigger="load delay:3s"`) {
		t.Error("expected a retry sentinel")
	}
}

func TestHandler_LoadMoreUnknownView(t *testing.T) {
	env := newHandlerEnv(t, pagedLister(10, 3))

	req := httptest.NewRequest(http.MethodGet, "/timeline/views/nope/rows", nil)
	_, err := env.do(env.handler.LoadMore, req, "vid", "nope")
	assertAppError(t, err, http.StatusNotFound)
}

func TestHandler_ChangeFilter(t *testing.T) {
	env := newHandlerEnv(t, pagedLister(10, 3))
	v := env.openView(t, testFilter("suv"))

	form := url.Values{"endpoint": {"fleets"}, "month": {"4"}, "year": {"2024"}, "type": {"mpv"}}
	req := httptest.NewRequest(http.MethodPost, "/timeline/views/"+v.ID+"/filter", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.Header.Set("HX-Request", "true")
	rec, err := env.do(env.handler.ChangeFilter, req, "vid", v.ID)
	if err != nil {
		t.Fatal(err)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "April 2024") || !strings.Contains(body, `data-row-id="mpv-p1-1"`) {
		t.Error("expected the April grid with mpv rows")
	}
	if strings.Contains(body, `data-row-id="suv-p1-1"`) {
		t.Error("rows of the previous filter leaked into the new grid")
	}
}

func TestHandler_Close(t *testing.T) {
	env := newHandlerEnv(t, pagedLister(10, 3))
	v := env.openView(t, testFilter(""))

	req := httptest.NewRequest(http.MethodDelete, "/timeline/views/"+v.ID, nil)
	rec, err := env.do(env.handler.Close, req, "vid", v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if _, err := env.svc.LoadMore(context.Background(), v.ID, "1"); err == nil {
		t.Error("expected the view to be gone")
	}
}

func TestHandler_API(t *testing.T) {
	l := &mockLister{listFn: func(_ context.Context, q rentalapi.ListQuery) (rentalapi.ListResult, error) {
		f := &rentalapi.Fleet{ID: "7", Name: "Avanza", Orders: rentalapi.List[rentalapi.Order]{
			{ID: "1", StartDate: rentalapi.Time{Time: utc(2024, 3, 5, 10)}, EndDate: rentalapi.Time{Time: utc(2024, 3, 7, 14)}},
		}}
		return rentalapi.ListResult{Items: []rentalapi.Entity{f}, Page: q.Page, TotalPages: 2}, nil
	}}
	env := newHandlerEnv(t, l)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/timeline?month=3&year=2024&page=2", nil)
	rec, err := env.do(env.handler.API, req)
	if err != nil {
		t.Fatal(err)
	}

	var resp struct {
		Page    int  `json:"page"`
		HasMore bool `json:"has_more"`
		Days    int  `json:"days"`
		Rows    []struct {
			ID   string `json:"id"`
			Bars []struct {
				Span Span `json:"span"`
			} `json:"bars"`
		} `json:"rows"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Page != 2 || resp.HasMore || resp.Days != 31 {
		t.Errorf("unexpected paging %+v", resp)
	}
	if len(resp.Rows) != 1 || len(resp.Rows[0].Bars) != 1 {
		t.Fatalf("expected one row with one bar, got %+v", resp.Rows)
	}
	assertFloat(t, "left", resp.Rows[0].Bars[0].Span.Left, 4*64+10.0/24*64)
}

func TestHandler_Export(t *testing.T) {
	env := newHandlerEnv(t, pagedLister(2, 2))

	req := httptest.NewRequest(http.MethodGet, "/timeline/export.xlsx?endpoint=fleets&month=3&year=2024", nil)
	rec, err := env.do(env.handler.Export, req)
	if err != nil {
		t.Fatal(err)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != RecapContentType {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := rec.Header().Get(echo.HeaderContentDisposition); !strings.Contains(cd, "timeline_fleets_2024_03.xlsx") {
		t.Errorf("unexpected disposition %q", cd)
	}

	book, err := excelize.OpenReader(rec.Body)
	if err != nil {
		t.Fatalf("response is not a workbook: %v", err)
	}
	defer book.Close()
	rows, err := book.GetRows("March 2024")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 5 {
		t.Errorf("expected header plus 4 lines, got %d", len(rows))
	}
}

type recordedActivity struct {
	entries []*audit.AuditEntry
}

func (r *recordedActivity) Record(_ context.Context, entry *audit.AuditEntry) {
	r.entries = append(r.entries, entry)
}

func TestHandler_ExportRecordsActivity(t *testing.T) {
	env := newHandlerEnv(t, pagedLister(2, 1))
	rec := &recordedActivity{}
	env.handler.WithActivity(rec)

	req := httptest.NewRequest(http.MethodGet, "/timeline/export.xlsx?endpoint=fleets&month=3&year=2024", nil)
	if _, err := env.do(env.handler.Export, req); err != nil {
		t.Fatal(err)
	}
	if len(rec.entries) != 1 {
		t.Fatalf("expected one recorded action, got %d", len(rec.entries))
	}
	got := rec.entries[0]
	if got.Action != audit.ActionRecapExported || got.UserID != "1" || got.UserName != "Sari" {
		t.Errorf("unexpected entry %+v", got)
	}
	if got.Endpoint != "fleets" || got.Period != "2024-03" {
		t.Errorf("expected fleets 2024-03, got %s %s", got.Endpoint, got.Period)
	}
}

func TestParseFilter(t *testing.T) {
	base := testFilter("suv")
	base.Location = "2"

	get := func(vals url.Values) func(string) string { return vals.Get }

	f, err := parseFilter(get(url.Values{"month": {"4"}}), base)
	if err != nil {
		t.Fatal(err)
	}
	if f.Month != time.April || f.Type != "suv" || f.Location != "2" {
		t.Errorf("expected only the month to change, got %+v", f)
	}

	f, err = parseFilter(get(url.Values{"endpoint": {"products"}}), base)
	if err != nil {
		t.Fatal(err)
	}
	if f.Type != "" || f.Location != "" {
		t.Errorf("a form submit clears type and location when blank, got %+v", f)
	}

	_, err = parseFilter(get(url.Values{"endpoint": {"orders"}}), base)
	assertAppError(t, err, http.StatusUnprocessableEntity)
}
