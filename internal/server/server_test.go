package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
	"nhooyr.io/websocket"

	"github.com/playperu/huntgate/internal/database"
	"github.com/playperu/huntgate/internal/gate"
	"github.com/playperu/huntgate/internal/handler/health"
	"github.com/playperu/huntgate/internal/migrations"
	"github.com/playperu/huntgate/internal/store"
	"github.com/playperu/huntgate/internal/token"
)

const testAdminKey = "correct horse battery staple"

type testEnv struct {
	router chi.Router
	store  *store.SQLiteStore
	broker *Broker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := database.Open(ctx, database.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	st := store.NewSQLiteStore(db)
	if err := SeedDemo(ctx, logger, st); err != nil {
		t.Fatalf("seed demo: %v", err)
	}

	secret := []byte("0123456789abcdef0123456789abcdef")
	issuer, err := token.New(secret, nil)
	if err != nil {
		t.Fatalf("token issuer: %v", err)
	}
	broker := NewBroker()
	svc := gate.NewService(gate.Config{LockTTL: time.Hour},
		gate.Stores{Codes: st, Locks: st, Config: st, Orders: st, Progress: st},
		issuer, token.NewFingerprintHasher(secret), broker, logger)

	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminKey), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing admin key: %v", err)
	}

	r := newRouter(logger, Deps{
		Service:      svc,
		Admin:        st,
		Broker:       broker,
		Checks:       map[string]health.Checker{"sqlite": health.CheckFunc(st.Ping)},
		AdminKeyHash: hash,
	})
	return &testEnv{router: r, store: st, broker: broker}
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) verify(t *testing.T, code, device string) VerifyResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/verify", "", VerifyRequest{Code: code, DeviceFingerprint: device})
	if w.Code != http.StatusOK {
		t.Fatalf("verify: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp VerifyResponse
	json.NewDecoder(w.Body).Decode(&resp)
	return resp
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	return resp.Code
}

func stopsPath(v VerifyResponse) string {
	return "/api/orgs/" + v.OrgID + "/hunts/" + v.HuntID + "/teams/" + v.TeamID + "/stops"
}

func TestVerifyEndpoint(t *testing.T) {
	e := newTestEnv(t)

	first := e.verify(t, "ALPHA01", "dev-A")
	if first.LockToken == "" {
		t.Fatal("expected a lock token")
	}
	if first.OrgID != demoOrg || first.HuntID != demoHunt {
		t.Errorf("expected demo/lima, got %s/%s", first.OrgID, first.HuntID)
	}
	if first.TTLSeconds <= 0 || first.TTLSeconds > 3600 {
		t.Errorf("ttl = %d, want within (0, 3600]", first.TTLSeconds)
	}

	second := e.verify(t, "alpha01", "dev-A")
	if second.TeamID != first.TeamID {
		t.Errorf("repeat verify: team %s, want %s", second.TeamID, first.TeamID)
	}
}

func TestVerifyEndpointErrors(t *testing.T) {
	e := newTestEnv(t)
	e.verify(t, "ALPHA01", "dev-A")

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"unknown code", VerifyRequest{Code: "NOPE", DeviceFingerprint: "dev-B"}, http.StatusUnauthorized, "CODE_INVALID"},
		{"device conflict", VerifyRequest{Code: "BETA02", DeviceFingerprint: "dev-A"}, http.StatusConflict, "DEVICE_CONFLICT"},
		{"missing fingerprint", VerifyRequest{Code: "BETA02"}, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"wrong hunt scope", VerifyRequest{Code: "BETA02", DeviceFingerprint: "dev-B", HuntID: "other"}, http.StatusUnauthorized, "CODE_INVALID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(t, http.MethodPost, "/api/verify", "", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if got := errorCode(t, w); got != tt.wantCode {
				t.Errorf("code = %q, want %q", got, tt.wantCode)
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/verify", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad body: expected 400, got %d", w.Code)
	}
}

func TestTeamEndpoint(t *testing.T) {
	e := newTestEnv(t)
	v := e.verify(t, "BETA02", "dev-B")

	w := e.do(t, http.MethodGet, "/api/team", v.LockToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp TeamResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.TeamID != v.TeamID {
		t.Errorf("team = %s, want %s", resp.TeamID, v.TeamID)
	}

	w = e.do(t, http.MethodGet, "/api/team", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", w.Code)
	}
	w = e.do(t, http.MethodGet, "/api/team", "not-a-token", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401, got %d", w.Code)
	}
	if got := errorCode(t, w); got != "TOKEN_INVALID" {
		t.Errorf("code = %q, want TOKEN_INVALID", got)
	}
}

func TestStopsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	v := e.verify(t, "ALPHA01", "dev-A")

	var first []StopResponse
	for i := range 5 {
		w := e.do(t, http.MethodGet, stopsPath(v), v.LockToken, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("fetch %d: expected 200, got %d: %s", i, w.Code, w.Body.String())
		}
		var stops []StopResponse
		json.NewDecoder(w.Body).Decode(&stops)
		if len(stops) != 4 {
			t.Fatalf("expected 4 stops, got %d", len(stops))
		}
		if first == nil {
			first = stops
			continue
		}
		for j := range stops {
			if stops[j].StopID != first[j].StopID || stops[j].Position != j+1 {
				t.Errorf("fetch %d position %d = %s@%d, want %s@%d", i, j, stops[j].StopID, stops[j].Position, first[j].StopID, j+1)
			}
		}
	}
	for _, s := range first {
		if len(s.Hints) != 0 {
			t.Errorf("stop %s leaked unrevealed hints %v", s.StopID, s.Hints)
		}
	}

	other := e.verify(t, "BETA02", "dev-B")
	w := e.do(t, http.MethodGet, stopsPath(other), v.LockToken, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("other team's stops: expected 401, got %d", w.Code)
	}
}

func TestProgressEndpoints(t *testing.T) {
	e := newTestEnv(t)
	v := e.verify(t, "ALPHA01", "dev-A")

	w := e.do(t, http.MethodPost, stopsPath(v)+"/plaza-mayor/hint", v.LockToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("hint: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var hint HintResponse
	json.NewDecoder(w.Body).Decode(&hint)
	if hint.Hint != "The fountain dates from 1651." || hint.Progress.HintsRevealed != 1 {
		t.Errorf("unexpected hint response %+v", hint)
	}

	w = e.do(t, http.MethodPost, stopsPath(v)+"/muralla/hint", v.LockToken, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("hint on stop without hints: expected 404, got %d", w.Code)
	}

	w = e.do(t, http.MethodPost, stopsPath(v)+"/plaza-mayor/complete", v.LockToken, CompleteStopRequest{PhotoRef: "img-1"})
	if w.Code != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var prog ProgressResponse
	json.NewDecoder(w.Body).Decode(&prog)
	if !prog.Done || prog.CompletedAt == nil || prog.PhotoRef != "img-1" {
		t.Errorf("unexpected progress %+v", prog)
	}

	// The body is optional.
	w = e.do(t, http.MethodPost, stopsPath(v)+"/muralla/complete", v.LockToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("complete without body: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = e.do(t, http.MethodGet, stopsPath(v), v.LockToken, nil)
	var stops []StopResponse
	json.NewDecoder(w.Body).Decode(&stops)
	for _, s := range stops {
		wantDone := s.StopID == "plaza-mayor" || s.StopID == "muralla"
		if s.Completed != wantDone {
			t.Errorf("stop %s completed = %v, want %v", s.StopID, s.Completed, wantDone)
		}
		if s.StopID == "plaza-mayor" && len(s.Hints) != 1 {
			t.Errorf("expected 1 revealed hint, got %v", s.Hints)
		}
	}

	w = e.do(t, http.MethodGet, "/api/orgs/demo/hunts/lima/leaderboard", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("leaderboard: expected 200, got %d", w.Code)
	}
	var board []StandingResponse
	json.NewDecoder(w.Body).Decode(&board)
	if len(board) != 2 || board[0].TeamName != "alpha" || board[0].Completed != 2 {
		t.Errorf("unexpected leaderboard %+v", board)
	}
}

func TestAdminEndpoints(t *testing.T) {
	e := newTestEnv(t)

	hunt := AdminHuntRequest{
		Name:     "Cusco",
		Strategy: "fixed",
		Stops: []AdminStopRequest{
			{ID: "a", Title: "Qorikancha"},
			{ID: "b", Title: "Sacsayhuaman", Hints: []string{"Uphill."}},
		},
	}
	w := e.do(t, http.MethodPut, "/api/admin/orgs/acme/hunts/cusco", "wrong", hunt)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key: expected 401, got %d", w.Code)
	}
	var denied ErrorResponse
	json.NewDecoder(w.Body).Decode(&denied)
	if denied.Code != "UNAUTHENTICATED" {
		t.Errorf("wrong key: code = %q, want UNAUTHENTICATED", denied.Code)
	}

	w = e.do(t, http.MethodPut, "/api/admin/orgs/acme/hunts/cusco", testAdminKey, hunt)
	if w.Code != http.StatusOK {
		t.Fatalf("put hunt: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = e.do(t, http.MethodPut, "/api/admin/orgs/acme/hunts/cusco", testAdminKey, AdminHuntRequest{Strategy: "spiral"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad strategy: expected 400, got %d", w.Code)
	}

	w = e.do(t, http.MethodPost, "/api/admin/orgs/acme/hunts/cusco/teams", testAdminKey, AdminTeamRequest{Name: "condor", Code: "CONDOR"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create team: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var team AdminTeamResponse
	json.NewDecoder(w.Body).Decode(&team)

	w = e.do(t, http.MethodPost, "/api/admin/orgs/acme/hunts/cusco/teams", testAdminKey, AdminTeamRequest{Name: "dup", Code: "condor"})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate code: expected 409, got %d", w.Code)
	}
	w = e.do(t, http.MethodPost, "/api/admin/orgs/acme/hunts/missing/teams", testAdminKey, AdminTeamRequest{Name: "x", Code: "X"})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown hunt: expected 404, got %d", w.Code)
	}

	v := e.verify(t, "CONDOR", "dev-C")
	w = e.do(t, http.MethodGet, stopsPath(v), v.LockToken, nil)
	var stops []StopResponse
	json.NewDecoder(w.Body).Decode(&stops)
	if len(stops) != 2 || stops[0].StopID != "a" || stops[1].StopID != "b" {
		t.Errorf("fixed order = %+v, want a, b", stops)
	}

	w = e.do(t, http.MethodPost, "/api/admin/codes/"+team.CodeID+"/deactivate", testAdminKey, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("deactivate: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	w = e.do(t, http.MethodPost, "/api/verify", "", VerifyRequest{Code: "CONDOR", DeviceFingerprint: "dev-D"})
	if w.Code != http.StatusForbidden {
		t.Errorf("inactive code: expected 403, got %d", w.Code)
	}
	w = e.do(t, http.MethodPost, "/api/admin/codes/nope/deactivate", testAdminKey, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown code: expected 404, got %d", w.Code)
	}
}

func TestAdminStopEndpoints(t *testing.T) {
	e := newTestEnv(t)
	base := "/api/admin/orgs/acme/hunts/inca"

	w := e.do(t, http.MethodPut, base, testAdminKey, AdminHuntRequest{
		Name: "Inca trail",
		Stops: []AdminStopRequest{
			{ID: "a", Title: "Wayllabamba", Position: 10},
			{ID: "b", Title: "Runkurakay", Position: 10},
		},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("shared position: expected 400, got %d", w.Code)
	}

	w = e.do(t, http.MethodPut, base, testAdminKey, AdminHuntRequest{
		Name: "Inca trail",
		Stops: []AdminStopRequest{
			{ID: "a", Title: "Wayllabamba", Position: 10},
			{ID: "b", Title: "Runkurakay", Position: 20},
			{ID: "c", Title: "Intipunku", Position: 30},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("put hunt: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w := e.do(t, http.MethodPost, base+"/teams", testAdminKey, AdminTeamRequest{Name: "puma", Code: "PUMA"}); w.Code != http.StatusCreated {
		t.Fatalf("create team: expected 201, got %d", w.Code)
	}
	v := e.verify(t, "PUMA", "dev-P")

	w = e.do(t, http.MethodPost, base+"/stops/a/deactivate", testAdminKey, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("deactivate stop: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = e.do(t, http.MethodGet, stopsPath(v), v.LockToken, nil)
	var stops []StopResponse
	json.NewDecoder(w.Body).Decode(&stops)
	if len(stops) != 2 || stops[0].StopID != "b" || stops[0].Position != 20 || stops[1].Position != 30 {
		t.Errorf("stops after deactivation = %+v, want b@20, c@30", stops)
	}

	w = e.do(t, http.MethodGet, base, testAdminKey, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get hunt: expected 200, got %d", w.Code)
	}
	var got AdminHuntResponse
	json.NewDecoder(w.Body).Decode(&got)
	if got.Strategy != "fixed" || len(got.Stops) != 3 {
		t.Fatalf("hunt = %+v", got)
	}
	if got.Stops[0].ID != "a" || got.Stops[0].Active || !got.Stops[1].Active {
		t.Errorf("stop states = %+v", got.Stops)
	}

	w = e.do(t, http.MethodPost, base+"/stops/a/activate", testAdminKey, nil)
	if w.Code != http.StatusOK {
		t.Errorf("activate stop: expected 200, got %d", w.Code)
	}
	w = e.do(t, http.MethodPost, base+"/stops/zz/deactivate", testAdminKey, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown stop: expected 404, got %d", w.Code)
	}
	w = e.do(t, http.MethodGet, "/api/admin/orgs/acme/hunts/missing", testAdminKey, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown hunt: expected 404, got %d", w.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodGet, "/healthz", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSeedDemoIdempotent(t *testing.T) {
	e := newTestEnv(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := SeedDemo(context.Background(), logger, e.store); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	codes, err := e.store.FindCodes(context.Background(), "ALPHA01", gate.Scope{})
	if err != nil {
		t.Fatalf("FindCodes: %v", err)
	}
	if len(codes) != 1 {
		t.Errorf("expected 1 ALPHA01 code after reseeding, got %d", len(codes))
	}
}

func TestEventsStream(t *testing.T) {
	e := newTestEnv(t)
	srv := httptest.NewServer(e.router)
	t.Cleanup(srv.Close)
	v := e.verify(t, "ALPHA01", "dev-A")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events?token="+v.LockToken, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("opening stream: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	// The subscription is registered once headers are flushed.
	w := e.do(t, http.MethodPost, stopsPath(v)+"/jiron-union/complete", v.LockToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d", w.Code)
	}

	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		var ev gate.Event
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			t.Fatalf("decoding event %q: %v", data, err)
		}
		if ev.Type != "stop_completed" || ev.StopID != "jiron-union" {
			t.Errorf("unexpected event %+v", ev)
		}
		return
	}
	t.Fatalf("stream ended without an event: %v", sc.Err())
}

func TestEventsStreamRejectsBadToken(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodGet, "/api/events?token=garbage", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	w = e.do(t, http.MethodGet, "/api/events", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", w.Code)
	}
}

func TestWSEvents(t *testing.T) {
	e := newTestEnv(t)
	srv := httptest.NewServer(e.router)
	t.Cleanup(srv.Close)
	v := e.verify(t, "BETA02", "dev-B")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events/ws?token=" + v.LockToken
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	// Publish until the handler has subscribed.
	done := make(chan struct{})
	defer close(done)
	go func() {
		tick := time.NewTicker(20 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-done:
				return
			case <-tick.C:
				e.broker.Publish(v.TeamID, gate.Event{Type: "hint_revealed", StopID: "muralla", HintsRevealed: 1})
			}
		}
	}()

	typ, msg, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if typ != websocket.MessageText {
		t.Errorf("expected text message, got %v", typ)
	}
	var ev gate.Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatalf("decoding %q: %v", msg, err)
	}
	if ev.Type != "hint_revealed" || ev.StopID != "muralla" {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestBroker(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("t1")
	other := b.Subscribe("t2")

	b.Publish("t1", gate.Event{Type: "stop_completed", StopID: "a"})

	select {
	case data := <-ch:
		if !strings.Contains(string(data), `"stopId":"a"`) {
			t.Errorf("unexpected payload %s", data)
		}
	default:
		t.Fatal("expected an event for t1")
	}
	select {
	case data := <-other:
		t.Errorf("t2 received %s", data)
	default:
	}

	b.Unsubscribe("t1", ch)
	b.Publish("t1", gate.Event{Type: "stop_completed"})
	select {
	case data := <-ch:
		t.Errorf("received %s after unsubscribe", data)
	default:
	}
}
