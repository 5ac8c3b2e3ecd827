package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"thelook/api/analytics"
	"thelook/api/dashboard"
	"thelook/api/dataset"
	"thelook/api/middleware"
	"thelook/api/models"
	"thelook/api/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func doRequest(r http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// --- auth ---

type fakeUsers struct {
	byEmail map[string]*models.User
	nextID  int
}

func (f *fakeUsers) CreateUser(_ context.Context, email string, hashed []byte) (*models.User, error) {
	if _, ok := f.byEmail[email]; ok {
		return nil, store.ErrUserExists
	}
	f.nextID++
	u := &models.User{ID: f.nextID, Email: email, HashedPassword: hashed}
	f.byEmail[email] = u
	return u, nil
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return u, nil
}

type fakeTokens struct{}

func (fakeTokens) Generate(u *models.User) (string, error) { return "token-for-" + u.Email, nil }

func authRouter(users *fakeUsers) *gin.Engine {
	h := NewAuthHandlers(users, fakeTokens{}, false, quietLogger())
	r := gin.New()
	r.POST("/signup", h.Signup)
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)
	return r
}

func TestSignup(t *testing.T) {
	users := &fakeUsers{byEmail: map[string]*models.User{}}
	r := authRouter(users)
	body := []byte(`{"email":"ana@example.com","password":"correct-horse"}`)

	if w := doRequest(r, http.MethodPost, "/signup", body); w.Code != http.StatusCreated {
		t.Fatalf("first signup: got %d: %s", w.Code, w.Body)
	}
	if bcrypt.CompareHashAndPassword(users.byEmail["ana@example.com"].HashedPassword, []byte("correct-horse")) != nil {
		t.Fatal("stored password is not a bcrypt hash of the input")
	}
	if w := doRequest(r, http.MethodPost, "/signup", body); w.Code != http.StatusConflict {
		t.Fatalf("duplicate signup: got %d", w.Code)
	}
	if w := doRequest(r, http.MethodPost, "/signup", []byte(`{"email":"nope","password":"x"}`)); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid signup: got %d", w.Code)
	}
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	users := &fakeUsers{byEmail: map[string]*models.User{
		"ana@example.com": {ID: 7, Email: "ana@example.com", HashedPassword: hash},
	}}
	r := authRouter(users)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"ok", `{"email":"ana@example.com","password":"correct-horse"}`, http.StatusOK},
		{"wrong password", `{"email":"ana@example.com","password":"battery-staple"}`, http.StatusUnauthorized},
		{"unknown user", `{"email":"bob@example.com","password":"correct-horse"}`, http.StatusUnauthorized},
		{"malformed", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, http.MethodPost, "/login", []byte(tt.body))
			if w.Code != tt.want {
				t.Fatalf("got %d, want %d: %s", w.Code, tt.want, w.Body)
			}
			if tt.want != http.StatusOK {
				return
			}
			var found bool
			for _, c := range w.Result().Cookies() {
				if c.Name == middleware.TokenCookie && c.Value == "token-for-ana@example.com" {
					found = c.HttpOnly
				}
			}
			if !found {
				t.Fatal("expected an http-only token cookie")
			}
		})
	}
}

// --- tracking ---

type fakeEvents struct {
	inserted  []models.Event
	insertErr error
	interval  string
	eventType string
	start     time.Time
	end       time.Time
}

func (f *fakeEvents) InsertEvents(_ context.Context, events []models.Event) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, events...)
	return nil
}

func (f *fakeEvents) EventCountsOverTime(_ context.Context, interval string, start, end time.Time, eventType string) ([]models.TimeCount, error) {
	f.interval, f.start, f.end, f.eventType = interval, start, end, eventType
	return []models.TimeCount{{Time: start, Count: 3}}, nil
}

func (f *fakeEvents) UniqueSessionsOverTime(_ context.Context, interval string, start, end time.Time) ([]models.TimeCount, error) {
	f.interval, f.start, f.end = interval, start, end
	return []models.TimeCount{{Time: start, Count: 2}}, nil
}

func trackRouter(events *fakeEvents, now time.Time) *gin.Engine {
	h := NewTrackHandlers(events, quietLogger())
	h.now = func() time.Time { return now }
	r := gin.New()
	r.POST("/track", h.TrackEvent)
	r.GET("/event-counts", h.EventCountsOverTime)
	r.GET("/unique-sessions", h.UniqueSessionsOverTime)
	return r
}

func TestTrackEvent(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	events := &fakeEvents{}
	r := trackRouter(events, now)

	body := []byte(`[
		{"session_id":"s1","event_type":"home","traffic_source":"Email","created_at":"2024-04-30T10:00:00Z"},
		{"session_id":"s1","event_type":"purchase","traffic_source":"Email"}
	]`)
	w := doRequest(r, http.MethodPost, "/track", body)
	if w.Code != http.StatusOK {
		t.Fatalf("got %d: %s", w.Code, w.Body)
	}
	if len(events.inserted) != 2 {
		t.Fatalf("inserted %d events, want 2", len(events.inserted))
	}
	first, second := events.inserted[0], events.inserted[1]
	if first.EventID == "" || first.EventID == second.EventID {
		t.Fatalf("event ids not unique: %q %q", first.EventID, second.EventID)
	}
	if first.IPAddress == "" {
		t.Fatal("ip address not captured")
	}
	if !first.CreatedAt.Equal(time.Date(2024, 4, 30, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("client timestamp overwritten: %v", first.CreatedAt)
	}
	if second.CreatedAt == nil || !second.CreatedAt.Equal(now) {
		t.Fatalf("missing timestamp should default to receipt time, got %v", second.CreatedAt)
	}
}

func TestTrackEventRejectsInvalidPayload(t *testing.T) {
	events := &fakeEvents{}
	r := trackRouter(events, time.Now())

	for name, body := range map[string]string{
		"not an array":       `{"session_id":"s1"}`,
		"missing session id": `[{"event_type":"home"}]`,
		"missing event type": `[{"session_id":"s1"}]`,
	} {
		t.Run(name, func(t *testing.T) {
			if w := doRequest(r, http.MethodPost, "/track", []byte(body)); w.Code != http.StatusBadRequest {
				t.Fatalf("got %d, want 400", w.Code)
			}
		})
	}
	if len(events.inserted) != 0 {
		t.Fatalf("nothing should be inserted, got %d", len(events.inserted))
	}
}

func TestTrackEventStoreFailure(t *testing.T) {
	events := &fakeEvents{insertErr: errors.New("clickhouse down")}
	r := trackRouter(events, time.Now())
	w := doRequest(r, http.MethodPost, "/track", []byte(`[{"session_id":"s1","event_type":"home"}]`))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("got %d, want 500", w.Code)
	}
}

func TestStatsQueryParameters(t *testing.T) {
	now := time.Date(2024, 5, 8, 0, 0, 0, 0, time.UTC)
	events := &fakeEvents{}
	r := trackRouter(events, now)

	w := doRequest(r, http.MethodGet, "/event-counts?interval=day&eventType=purchase", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("got %d: %s", w.Code, w.Body)
	}
	if events.interval != "Day" || events.eventType != "purchase" {
		t.Fatalf("interval/eventType = %q/%q", events.interval, events.eventType)
	}
	if !events.end.Equal(now) || !events.start.Equal(now.Add(-7*24*time.Hour)) {
		t.Fatalf("default window = %v..%v", events.start, events.end)
	}

	w = doRequest(r, http.MethodGet, "/unique-sessions?interval=HOUR&start=2024-05-01T00:00:00Z&end=2024-05-02T00:00:00Z", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("got %d: %s", w.Code, w.Body)
	}
	if events.interval != "Hour" || !events.start.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("interval/start = %q/%v", events.interval, events.start)
	}

	bad := []string{
		"/event-counts",
		"/event-counts?interval=fortnight",
		"/event-counts?interval=day&start=yesterday",
		"/unique-sessions?interval=day&start=2024-05-02T00:00:00Z&end=2024-05-01T00:00:00Z",
	}
	for _, target := range bad {
		if w := doRequest(r, http.MethodGet, target, nil); w.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", target, w.Code)
		}
	}
}

// --- dashboard ---

type staticProvider struct {
	snap *dataset.Snapshot
	err  error
}

func (p *staticProvider) Get(context.Context) (*dataset.Snapshot, error) { return p.snap, p.err }

func (p *staticProvider) Reload(context.Context) (*dataset.Snapshot, error) {
	if p.err != nil {
		return nil, p.err
	}
	next := *p.snap
	next.Version++
	p.snap = &next
	return p.snap, nil
}

func at(year int) *time.Time {
	t := time.Date(year, 3, 1, 0, 0, 0, 0, time.UTC)
	return &t
}

func testSnapshot() *dataset.Snapshot {
	return &dataset.Snapshot{
		Version: 1,
		Orders: []models.Order{
			{UserID: "1", OrderID: "o1", Country: "Brasil", Department: "Women", Category: "Tops", Name: "Tee", NumOfItem: 2, TotalSales: 40, TotalProfit: 10, Year: 2023, Month: 3, MonthName: "March", Segment: "Loyal"},
			{UserID: "2", OrderID: "o2", Country: "Germany", Department: "Men", Category: "Jeans", Name: "Slim", NumOfItem: 1, TotalSales: 60, TotalProfit: 20, Year: 2024, Month: 4, MonthName: "April", Segment: "New"},
		},
		Events: []models.Event{
			{SessionID: "s1", EventType: "home", TrafficSource: "Email", CreatedAt: at(2024)},
			{SessionID: "s1", EventType: "purchase", TrafficSource: "Email", CreatedAt: at(2024)},
			{SessionID: "s2", EventType: "home", TrafficSource: "Facebook", CreatedAt: at(2024)},
		},
	}
}

func dashboardRouter(provider *staticProvider, policy analytics.AttributionPolicy) (*gin.Engine, *dashboard.Pipeline) {
	p := dashboard.NewPipeline(provider, dashboard.Options{PurchaseEventType: "purchase", Policy: policy}, quietLogger())
	h := NewDashboardHandlers(p, provider, quietLogger())
	r := gin.New()
	r.GET("/filters", h.Filters)
	r.GET("/sales", h.Sales)
	r.GET("/products", h.Products)
	r.GET("/customers", h.Customers)
	r.GET("/conversion", h.Conversion)
	r.POST("/reload", h.Reload)
	r.GET("/health", Health)
	return r, p
}

type conversionBody struct {
	Conversion []struct {
		TrafficSource    string   `json:"traffic_source"`
		ConvertedCount   int      `json:"converted_count"`
		UnconvertedCount int      `json:"unconverted_count"`
		ConversionRate   *float64 `json:"conversion_rate"`
	} `json:"conversion"`
}

func TestDashboardConversion(t *testing.T) {
	r, _ := dashboardRouter(&staticProvider{snap: testSnapshot()}, analytics.FirstTouch)

	w := doRequest(r, http.MethodGet, "/conversion", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("got %d: %s", w.Code, w.Body)
	}
	var body conversionBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Conversion) != 2 {
		t.Fatalf("got %d channels, want 2", len(body.Conversion))
	}
	email, facebook := body.Conversion[0], body.Conversion[1]
	if email.TrafficSource != "Email" || email.ConvertedCount != 1 || *email.ConversionRate != 100 {
		t.Fatalf("email row = %+v", email)
	}
	if facebook.TrafficSource != "Facebook" || facebook.UnconvertedCount != 1 || *facebook.ConversionRate != 0 {
		t.Fatalf("facebook row = %+v", facebook)
	}

	// No events in 2023.
	w = doRequest(r, http.MethodGet, "/conversion?year=2023", nil)
	body = conversionBody{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Conversion) != 0 {
		t.Fatalf("2023 should have no channels, got %+v", body.Conversion)
	}
}

func TestDashboardSalesFilters(t *testing.T) {
	r, _ := dashboardRouter(&staticProvider{snap: testSnapshot()}, analytics.FirstTouch)

	var body struct {
		Sales struct {
			KPI struct {
				TotalSales        float64  `json:"total_sales"`
				Orders            int      `json:"orders"`
				AverageOrderValue *float64 `json:"average_order_value"`
			} `json:"kpi"`
		} `json:"sales"`
	}

	tests := []struct {
		query  string
		sales  float64
		orders int
	}{
		{"", 100, 2},
		{"?year=All", 100, 2},
		{"?year=2024", 60, 1},
		{"?department=Women", 40, 1},
		{"?department=Women,Men", 100, 2},
		{"?department=Women&department=Men", 100, 2},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := doRequest(r, http.MethodGet, "/sales"+tt.query, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("got %d: %s", w.Code, w.Body)
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Sales.KPI.TotalSales != tt.sales || body.Sales.KPI.Orders != tt.orders {
				t.Fatalf("kpi = %+v", body.Sales.KPI)
			}
		})
	}

	w := doRequest(r, http.MethodGet, "/sales?year=2022", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Sales.KPI.AverageOrderValue != nil {
		t.Fatalf("empty selection should have a null AOV, got %v", *body.Sales.KPI.AverageOrderValue)
	}
}

func TestDashboardRejectsBadFilters(t *testing.T) {
	r, _ := dashboardRouter(&staticProvider{snap: testSnapshot()}, analytics.FirstTouch)
	for _, target := range []string{"/sales?year=twenty", "/products?department=Kids"} {
		if w := doRequest(r, http.MethodGet, target, nil); w.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", target, w.Code)
		}
	}
}

func TestDashboardStrictPolicyMixedChannels(t *testing.T) {
	snap := testSnapshot()
	snap.Events = append(snap.Events, models.Event{SessionID: "s1", EventType: "home", TrafficSource: "Facebook", CreatedAt: at(2024)})
	r, _ := dashboardRouter(&staticProvider{snap: snap}, analytics.Strict)

	if w := doRequest(r, http.MethodGet, "/customers", nil); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("got %d, want 422", w.Code)
	}
}

func TestDashboardFiltersAndMemo(t *testing.T) {
	provider := &staticProvider{snap: testSnapshot()}
	r, p := dashboardRouter(provider, analytics.FirstTouch)

	w := doRequest(r, http.MethodGet, "/filters", nil)
	var filters dashboard.Filters
	if err := json.Unmarshal(w.Body.Bytes(), &filters); err != nil {
		t.Fatal(err)
	}
	if len(filters.Years) != 3 || filters.Years[0] != "All" || filters.Years[1] != "2024" || filters.Years[2] != "2023" {
		t.Fatalf("years = %v", filters.Years)
	}
	if len(filters.Departments) != 2 || filters.Departments[0] != "Women" {
		t.Fatalf("departments = %v", filters.Departments)
	}

	doRequest(r, http.MethodGet, "/sales", nil)
	doRequest(r, http.MethodGet, "/products", nil)
	doRequest(r, http.MethodGet, "/customers", nil)
	if got := p.Runs(); got != 1 {
		t.Fatalf("same selection rebuilt %d times, want 1", got)
	}

	w = doRequest(r, http.MethodPost, "/reload", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reload: got %d", w.Code)
	}
	doRequest(r, http.MethodGet, "/sales", nil)
	if got := p.Runs(); got != 2 {
		t.Fatalf("new dataset version should rebuild, runs = %d", got)
	}
}

func TestDashboardLoadFailure(t *testing.T) {
	r, _ := dashboardRouter(&staticProvider{err: errors.New("workbook missing")}, analytics.FirstTouch)
	if w := doRequest(r, http.MethodGet, "/sales", nil); w.Code != http.StatusInternalServerError {
		t.Fatalf("sales: got %d, want 500", w.Code)
	}
	if w := doRequest(r, http.MethodPost, "/reload", nil); w.Code != http.StatusInternalServerError {
		t.Fatalf("reload: got %d, want 500", w.Code)
	}
}

func TestHealth(t *testing.T) {
	r, _ := dashboardRouter(&staticProvider{snap: testSnapshot()}, analytics.FirstTouch)
	if w := doRequest(r, http.MethodGet, "/health", nil); w.Code != http.StatusOK {
		t.Fatalf("got %d", w.Code)
	}
}
