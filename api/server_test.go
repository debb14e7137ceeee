package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"workguard360/config"
	"workguard360/core/alerts"
	"workguard360/core/auth"
	"workguard360/core/fanout"
	"workguard360/core/rbac"
	"workguard360/core/store"
)

const testSecret = "api-test-secret"

type apiFixture struct {
	cfg    *config.AppConfig
	ts     *httptest.Server
	hub    *fanout.Hub
	alerts store.AlertsStore
	users  store.UsersStore
	roles  store.RolesStore

	officerToken  string
	employeeToken string
	disabledToken string
}

func setupAPI(t *testing.T) *apiFixture {
	t.Helper()
	cfg := &config.AppConfig{
		DBDriver:   "sqlite",
		DBURL:      filepath.Join(t.TempDir(), "test.db"),
		AuthSecret: testSecret,
		Alerts:     config.AlertsConfig{DefaultPageSize: 10, MaxPageSize: 100},
		Stream:     config.StreamConfig{SendBuffer: 16},
	}
	db, err := store.NewDB(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()
	if err := store.ApplyMigrations(ctx, db, zerolog.Nop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	roles := store.NewRolesStore(db)
	users := store.NewUsersStore(db)
	officerRole := &store.Role{Name: "Security Officer", AccessLevel: 6, Permissions: []string{"alert.read", "alert.update", "alert.create"}}
	employeeRole := &store.Role{Name: "Employee", AccessLevel: 3, Permissions: []string{"alert.read"}}
	for _, r := range []*store.Role{officerRole, employeeRole} {
		if err := roles.Create(ctx, r); err != nil {
			t.Fatalf("role: %v", err)
		}
	}
	officer := &store.User{Email: "officer@example.com", FullName: "Officer", PasswordHash: "x", RoleID: officerRole.ID, Active: true}
	employee := &store.User{Email: "employee@example.com", FullName: "Employee", PasswordHash: "x", RoleID: employeeRole.ID, Active: true}
	disabled := &store.User{Email: "disabled@example.com", FullName: "Disabled", PasswordHash: "x", RoleID: officerRole.ID, Active: false}
	for _, u := range []*store.User{officer, employee, disabled} {
		if err := users.Create(ctx, u); err != nil {
			t.Fatalf("user: %v", err)
		}
	}

	roleList, err := roles.List(ctx)
	if err != nil {
		t.Fatalf("roles: %v", err)
	}
	policy, err := rbac.NewPolicy(roleList)
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	engine := rbac.NewEngine(policy)
	hub := fanout.NewHub(cfg.Stream.SendBuffer, zerolog.Nop())
	alertsStore := store.NewAlertsStore(db)
	audits := store.NewAuditStore(db)
	svc := alerts.NewService(alertsStore, engine, hub, audits, zerolog.Nop())
	resolver := auth.NewResolver(users, roles)
	server := NewServer(cfg, zerolog.Nop(), resolver, svc, engine, hub)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	sign := func(userID string) string {
		token, err := auth.SignToken(testSecret, userID, time.Hour, time.Now())
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return token
	}
	return &apiFixture{
		cfg: cfg, ts: ts, hub: hub, alerts: alertsStore, users: users, roles: roles,
		officerToken:  sign(officer.ID),
		employeeToken: sign(employee.ID),
		disabledToken: sign(disabled.ID),
	}
}

func (f *apiFixture) request(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, f.ts.URL+path, reader)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func (f *apiFixture) seedAlert(t *testing.T) *store.Alert {
	t.Helper()
	alert := &store.Alert{
		Type: "security", Severity: store.AlertSeverityHigh,
		Title: "Unauthorized Access Attempt", Description: "d",
		Location: "Main Entrance", TriggeredBy: "sensor",
	}
	if err := f.alerts.CreateAlert(context.Background(), alert); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return alert
}

func errCode(body map[string]any) string {
	errObj, _ := body["error"].(map[string]any)
	code, _ := errObj["code"].(string)
	return code
}

func TestAuthRequired(t *testing.T) {
	f := setupAPI(t)
	resp, _ := f.request(t, http.MethodGet, "/api/alerts", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no token status = %d", resp.StatusCode)
	}

	expired, err := auth.SignToken(testSecret, "someone", -time.Minute, time.Now())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	resp, _ = f.request(t, http.MethodGet, "/api/alerts", expired, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expired token status = %d", resp.StatusCode)
	}
}

func TestAcknowledgeEndpoint(t *testing.T) {
	f := setupAPI(t)
	alert := f.seedAlert(t)

	resp, body := f.request(t, http.MethodPut, "/api/alerts/"+alert.ID+"/acknowledge", f.officerToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body = %v", resp.StatusCode, body)
	}
	got, _ := body["alert"].(map[string]any)
	if got["status"] != "acknowledged" {
		t.Fatalf("alert status = %v", got["status"])
	}

	resp, body = f.request(t, http.MethodPut, "/api/alerts/"+alert.ID+"/acknowledge", f.officerToken, nil)
	if resp.StatusCode != http.StatusConflict || errCode(body) != "INVALID_TRANSITION" {
		t.Fatalf("second acknowledge = %d %q", resp.StatusCode, errCode(body))
	}
}

func TestResolveForbiddenForEmployee(t *testing.T) {
	f := setupAPI(t)
	alert := f.seedAlert(t)

	resp, body := f.request(t, http.MethodPut, "/api/alerts/"+alert.ID+"/resolve", f.employeeToken, nil)
	if resp.StatusCode != http.StatusForbidden || errCode(body) != "FORBIDDEN" {
		t.Fatalf("employee resolve = %d %q", resp.StatusCode, errCode(body))
	}
}

func TestDisabledAccount(t *testing.T) {
	f := setupAPI(t)
	resp, body := f.request(t, http.MethodGet, "/api/alerts", f.disabledToken, nil)
	if resp.StatusCode != http.StatusForbidden || errCode(body) != "PRINCIPAL_INACTIVE" {
		t.Fatalf("disabled account = %d %q", resp.StatusCode, errCode(body))
	}
}

func TestAlertNotFound(t *testing.T) {
	f := setupAPI(t)
	resp, body := f.request(t, http.MethodPut, "/api/alerts/missing-id/resolve", f.officerToken, nil)
	if resp.StatusCode != http.StatusNotFound || errCode(body) != "NOT_FOUND" {
		t.Fatalf("missing alert = %d %q", resp.StatusCode, errCode(body))
	}
}

func TestCreateEndpoint(t *testing.T) {
	f := setupAPI(t)

	resp, body := f.request(t, http.MethodPost, "/api/alerts", f.officerToken, map[string]any{
		"type": "security", "severity": "high",
		"title": "Broken window", "description": "ground floor", "location": "West wing",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create = %d %v", resp.StatusCode, body)
	}
	got, _ := body["alert"].(map[string]any)
	if got["status"] != "active" {
		t.Fatalf("new alert status = %v", got["status"])
	}

	resp, body = f.request(t, http.MethodPost, "/api/alerts", f.officerToken, map[string]any{
		"type": "security", "severity": "high",
	})
	if resp.StatusCode != http.StatusBadRequest || errCode(body) != "VALIDATION_FAILED" {
		t.Fatalf("missing fields = %d %q", resp.StatusCode, errCode(body))
	}
}

func TestListEndpoint(t *testing.T) {
	f := setupAPI(t)
	for i := 0; i < 4; i++ {
		f.seedAlert(t)
	}
	resp, body := f.request(t, http.MethodGet, "/api/alerts?limit=2&page=2&status=active", f.employeeToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list = %d", resp.StatusCode)
	}
	pagination, _ := body["pagination"].(map[string]any)
	if pagination["total"].(float64) != 4 || pagination["pages"].(float64) != 2 {
		t.Fatalf("pagination = %v", pagination)
	}
	if pagination["hasPrev"] != true || pagination["hasNext"] != false {
		t.Fatalf("pagination flags = %v", pagination)
	}
}

func TestRoleChangeEffectiveImmediately(t *testing.T) {
	f := setupAPI(t)
	alert := f.seedAlert(t)

	employeeRole, err := f.roles.GetByName(context.Background(), "Employee")
	if err != nil || employeeRole == nil {
		t.Fatalf("role: %v", err)
	}
	officer, err := f.users.GetByEmail(context.Background(), "officer@example.com")
	if err != nil || officer == nil {
		t.Fatalf("user: %v", err)
	}
	// demote with the existing token still in hand; the next request must
	// pick up the new role because resolution is fresh every time
	if err := f.users.SetRole(context.Background(), officer.ID, employeeRole.ID); err != nil {
		t.Fatalf("demote: %v", err)
	}
	resp, body := f.request(t, http.MethodPut, "/api/alerts/"+alert.ID+"/acknowledge", f.officerToken, nil)
	if resp.StatusCode != http.StatusForbidden || errCode(body) != "FORBIDDEN" {
		t.Fatalf("demoted officer = %d %q", resp.StatusCode, errCode(body))
	}
}

func TestHealthAndMetricsOpen(t *testing.T) {
	f := setupAPI(t)
	resp, body := f.request(t, http.MethodGet, "/api/health", "", nil)
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("health = %d %v", resp.StatusCode, body)
	}
	resp, _ = f.request(t, http.MethodGet, "/metrics", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics = %d", resp.StatusCode)
	}
}

func TestStreamEndpoint(t *testing.T) {
	f := setupAPI(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(f.ts.URL, "http://", "ws://", 1) + "/api/alerts/stream?token=" + f.officerToken
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	waitForSubscriber(t, f.hub)
	f.hub.Publish(fanout.TopicGlobal, "alertUpdated", json.RawMessage(`{"id":"a1"}`))

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev fanout.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Name != "alertUpdated" || ev.Topic != fanout.TopicGlobal {
		t.Fatalf("event = %q on %q", ev.Name, ev.Topic)
	}

	// join a type channel and receive a scoped event
	join, _ := json.Marshal(map[string]string{"action": "joinAlertType", "alertType": "security"})
	if err := conn.Write(ctx, websocket.MessageText, join); err != nil {
		t.Fatalf("write: %v", err)
	}
	// the join frame is handled asynchronously; publish until one lands
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				f.hub.Publish(fanout.TypeTopic("security"), "alertTypeUpdated", nil)
			}
		}
	}()
	_, data, err = conn.Read(ctx)
	close(stop)
	if err != nil {
		t.Fatalf("read scoped event: %v", err)
	}
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Name != "alertTypeUpdated" || ev.Topic != "alerts:security" {
		t.Fatalf("scoped event = %q on %q", ev.Name, ev.Topic)
	}
}

func TestStreamRejectsWithoutToken(t *testing.T) {
	f := setupAPI(t)
	resp, err := http.Get(f.ts.URL + "/api/alerts/stream")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("stream without token = %d", resp.StatusCode)
	}
}

func waitForSubscriber(t *testing.T, hub *fanout.Hub) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
