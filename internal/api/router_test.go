package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	gorilla "github.com/gorilla/websocket"
	. "github.com/onsi/gomega"

	"github.com/isdelr/hbnb-api/internal/auth"
	"github.com/isdelr/hbnb-api/internal/models"
	"github.com/isdelr/hbnb-api/internal/services"
	"github.com/isdelr/hbnb-api/internal/storage"
	"github.com/isdelr/hbnb-api/internal/websocket"
)

type harness struct {
	t      *testing.T
	router http.Handler
	hub    *websocket.Hub
	store  *storage.FileStorage
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	dir := t.TempDir()
	store := storage.NewFileStorage(filepath.Join(dir, "file.json"))
	if err := store.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	hub := websocket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	svc := Services{
		Entities:  services.NewEntityService(store, hub),
		Auth:      services.NewAuthService(store),
		Snapshots: services.NewSnapshotService(store, filepath.Join(dir, "snapshots")),
	}
	return &harness{t: t, router: NewRouter(hub, svc, opts), hub: hub, store: store}
}

func (h *harness) do(method, path, body string, header ...string) (int, string) {
	h.t.Helper()
	req := httptest.NewRequest(method, "/api/v1"+path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec.Code, rec.Body.String()
}

// create posts body to path and returns the decoded object.
func (h *harness) create(path string, body any) map[string]any {
	h.t.Helper()
	raw, _ := json.Marshal(body)
	code, resp := h.do(http.MethodPost, path, string(raw))
	if code != http.StatusCreated {
		h.t.Fatalf("POST %s: %d %s", path, code, resp)
	}
	return decodeObj(h.t, resp)
}

func decodeObj(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatalf("decode %q: %v", s, err)
	}
	return m
}

func decodeList(t *testing.T, s string) []map[string]any {
	t.Helper()
	var l []map[string]any
	if err := json.Unmarshal([]byte(s), &l); err != nil {
		t.Fatalf("decode %q: %v", s, err)
	}
	return l
}

func TestStatusAndEmptyStats(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t, Options{})

	code, body := h.do(http.MethodGet, "/status", "")
	g.Expect(code).To(Equal(http.StatusOK))
	g.Expect(body).To(MatchJSON(`{"status":"OK"}`))

	code, body = h.do(http.MethodGet, "/stats", "")
	g.Expect(code).To(Equal(http.StatusOK))
	g.Expect(body).To(MatchJSON(`{"amenities":0,"cities":0,"places":0,"reviews":0,"states":0,"users":0}`))
}

func TestCreateUser(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t, Options{})

	code, body := h.do(http.MethodPost, "/users", `{"email":"a@b.com","password":"x"}`)
	g.Expect(code).To(Equal(http.StatusCreated))
	user := decodeObj(t, body)
	g.Expect(user).To(HaveKeyWithValue("email", "a@b.com"))
	g.Expect(user).To(HaveKeyWithValue("__class__", "User"))
	g.Expect(user).To(HaveKey("id"))
	g.Expect(user).NotTo(HaveKey("password"))

	code, body = h.do(http.MethodGet, "/users/"+user["id"].(string), "")
	g.Expect(code).To(Equal(http.StatusOK))
	g.Expect(decodeObj(t, body)["id"]).To(Equal(user["id"]))

	code, body = h.do(http.MethodGet, "/users", "")
	g.Expect(code).To(Equal(http.StatusOK))
	g.Expect(decodeList(t, body)).To(HaveLen(1))

	code, body = h.do(http.MethodPost, "/users", `{"email":"a@b.com","password":"y"}`)
	g.Expect(code).To(Equal(http.StatusBadRequest))
	g.Expect(body).To(MatchJSON(`{"error":"Duplicate email"}`))
}

func TestCreateErrors(t *testing.T) {
	h := newHarness(t, Options{})
	for name, tc := range map[string]struct {
		path, body string
		status     int
		want       string
	}{
		"missing email":  {"/users", `{}`, http.StatusBadRequest, `{"error":"Missing email"}`},
		"missing name":   {"/states", `{"id":"x"}`, http.StatusBadRequest, `{"error":"Missing name"}`},
		"not json":       {"/states", `name=Texas`, http.StatusBadRequest, `{"error":"Not a JSON"}`},
		"json array":     {"/states", `["Texas"]`, http.StatusBadRequest, `{"error":"Not a JSON"}`},
		"unknown field":  {"/states", `{"name":"Texas","capital":"Austin"}`, http.StatusBadRequest, `{"error":"Unknown field capital"}`},
		"wrong type":     {"/states", `{"name":42}`, http.StatusBadRequest, `{"error":"Invalid value for name"}`},
		"missing parent": {"/cities", `{"name":"Austin","state_id":"nope"}`, http.StatusNotFound, `{"error":"Not found"}`},
	} {
		t.Run(name, func(t *testing.T) {
			g := NewWithT(t)
			code, body := h.do(http.MethodPost, tc.path, tc.body)
			g.Expect(code).To(Equal(tc.status))
			g.Expect(body).To(MatchJSON(tc.want))
		})
	}
}

func TestUpdateAndDelete(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t, Options{})
	state := h.create("/states", map[string]any{"name": "Texas"})
	id := state["id"].(string)

	code, body := h.do(http.MethodPut, "/states/"+id, `{"name":"Lone Star","id":"hijack","created_at":"2000-01-01T00:00:00.000000"}`)
	g.Expect(code).To(Equal(http.StatusOK))
	updated := decodeObj(t, body)
	g.Expect(updated).To(HaveKeyWithValue("name", "Lone Star"))
	g.Expect(updated).To(HaveKeyWithValue("id", id))
	g.Expect(updated).To(HaveKeyWithValue("created_at", state["created_at"]))

	code, body = h.do(http.MethodPut, "/states/"+id, `nope`)
	g.Expect(code).To(Equal(http.StatusBadRequest))
	g.Expect(body).To(MatchJSON(`{"error":"Not a JSON"}`))

	code, _ = h.do(http.MethodPut, "/states/missing", `{"name":"x"}`)
	g.Expect(code).To(Equal(http.StatusNotFound))

	code, body = h.do(http.MethodDelete, "/states/"+id, "")
	g.Expect(code).To(Equal(http.StatusOK))
	g.Expect(body).To(MatchJSON(`{}`))

	code, body = h.do(http.MethodDelete, "/states/"+id, "")
	g.Expect(code).To(Equal(http.StatusNotFound))
	g.Expect(body).To(MatchJSON(`{"error":"Not found"}`))
}

func TestUnknownRouteAndMethod(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t, Options{})

	code, body := h.do(http.MethodGet, "/spaceships", "")
	g.Expect(code).To(Equal(http.StatusNotFound))
	g.Expect(body).To(MatchJSON(`{"error":"Not found"}`))

	code, body = h.do(http.MethodPatch, "/states", "")
	g.Expect(code).To(Equal(http.StatusMethodNotAllowed))
	g.Expect(body).To(MatchJSON(`{"error":"Method not allowed"}`))
}

func TestNestedRoutes(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t, Options{})

	user := h.create("/users", map[string]any{"email": gofakeit.Email(), "password": gofakeit.Password(true, true, true, false, false, 12)})
	state := h.create("/states", map[string]any{"name": gofakeit.State()})
	city := h.create("/states/"+state["id"].(string)+"/cities", map[string]any{"name": gofakeit.City(), "state_id": "ignored"})
	g.Expect(city).To(HaveKeyWithValue("state_id", state["id"]))

	place := h.create("/cities/"+city["id"].(string)+"/places", map[string]any{
		"name": "Loft", "user_id": user["id"], "number_rooms": 3, "latitude": 37.77,
	})
	g.Expect(place).To(HaveKeyWithValue("number_rooms", BeNumerically("==", 3)))
	g.Expect(place).To(HaveKeyWithValue("city_id", city["id"]))

	h.create("/places/"+place["id"].(string)+"/reviews", map[string]any{"text": "Great", "user_id": user["id"]})

	code, body := h.do(http.MethodGet, "/states/"+state["id"].(string)+"/cities", "")
	g.Expect(code).To(Equal(http.StatusOK))
	g.Expect(decodeList(t, body)).To(HaveLen(1))

	code, body = h.do(http.MethodGet, "/places/"+place["id"].(string)+"/reviews", "")
	g.Expect(code).To(Equal(http.StatusOK))
	g.Expect(decodeList(t, body)).To(ConsistOf(HaveKeyWithValue("text", "Great")))

	code, _ = h.do(http.MethodGet, "/states/missing/cities", "")
	g.Expect(code).To(Equal(http.StatusNotFound))
	code, _ = h.do(http.MethodPost, "/states/missing/cities", `{"name":"x"}`)
	g.Expect(code).To(Equal(http.StatusNotFound))

	code, body = h.do(http.MethodGet, "/stats", "")
	g.Expect(code).To(Equal(http.StatusOK))
	g.Expect(body).To(MatchJSON(`{"amenities":0,"cities":1,"places":1,"reviews":1,"states":1,"users":1}`))
}

func TestPlaceAmenitiesAndSearch(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t, Options{})

	user := h.create("/users", map[string]any{"email": "host@b.com", "password": "x"})
	state := h.create("/states", map[string]any{"name": "California"})
	city := h.create("/cities", map[string]any{"name": "San Francisco", "state_id": state["id"]})
	place := h.create("/places", map[string]any{"name": "Loft", "city_id": city["id"], "user_id": user["id"]})
	wifi := h.create("/amenities", map[string]any{"name": "Wifi"})
	link := "/places/" + place["id"].(string) + "/amenities/" + wifi["id"].(string)

	code, _ := h.do(http.MethodPost, link, "")
	g.Expect(code).To(Equal(http.StatusCreated))
	code, _ = h.do(http.MethodPost, link, "")
	g.Expect(code).To(Equal(http.StatusOK))

	code, body := h.do(http.MethodGet, "/places/"+place["id"].(string)+"/amenities", "")
	g.Expect(code).To(Equal(http.StatusOK))
	g.Expect(decodeList(t, body)).To(ConsistOf(HaveKeyWithValue("name", "Wifi")))

	code, body = h.do(http.MethodPost, "/places_search", `{"states":["`+state["id"].(string)+`"],"amenities":["`+wifi["id"].(string)+`"]}`)
	g.Expect(code).To(Equal(http.StatusOK))
	g.Expect(decodeList(t, body)).To(ConsistOf(HaveKeyWithValue("name", "Loft")))

	code, body = h.do(http.MethodPost, "/places_search", `{"cities":["nope"]}`)
	g.Expect(code).To(Equal(http.StatusOK))
	g.Expect(decodeList(t, body)).To(BeEmpty())

	code, _ = h.do(http.MethodPost, "/places_search", `nope`)
	g.Expect(code).To(Equal(http.StatusBadRequest))

	code, _ = h.do(http.MethodDelete, link, "")
	g.Expect(code).To(Equal(http.StatusOK))
	code, _ = h.do(http.MethodDelete, link, "")
	g.Expect(code).To(Equal(http.StatusNotFound))
}

func TestTeardownDropsUnsavedChanges(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t, Options{})
	state := h.create("/states", map[string]any{"name": "Texas"})

	// Mutate the in-memory object without saving; the next request's
	// teardown reloads the file.
	e, err := h.store.Get("State", state["id"].(string))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(h.store.Delete(e)).To(Succeed())
	h.do(http.MethodGet, "/status", "")

	code, _ := h.do(http.MethodGet, "/states/"+state["id"].(string), "")
	g.Expect(code).To(Equal(http.StatusOK))
}

// Concurrent requests and the stats job each run in their own database
// session; none of them may lose another's write.
func TestConcurrentRequestsOnDatabase(t *testing.T) {
	g := NewWithT(t)
	store := storage.NewDBStorage(storage.DriverSQLite, filepath.Join(t.TempDir(), "hbnb.db"))
	g.Expect(store.Reload()).To(Succeed())
	t.Cleanup(func() { store.Shutdown() })
	hub := websocket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	entities := services.NewEntityService(store, hub)
	router := NewRouter(hub, Services{Entities: entities}, Options{})

	stop := make(chan struct{})
	var jobs sync.WaitGroup
	jobs.Add(1)
	go func() {
		defer jobs.Done()
		for {
			select {
			case <-stop:
				return
			case <-time.After(time.Millisecond):
			}
			svc, end := entities.Detached()
			svc.Stats()
			end()
		}
	}()

	const n = 20
	codes := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf(`{"name":"State %d"}`, i)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/states", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			codes <- rec.Code
		}(i)
	}
	wg.Wait()
	close(stop)
	jobs.Wait()
	close(codes)

	for code := range codes {
		g.Expect(code).To(Equal(http.StatusCreated))
	}
	g.Expect(store.Count(models.KindState)).To(Equal(n))
}

func TestAuthGuardsMutations(t *testing.T) {
	g := NewWithT(t)
	issuer, err := auth.NewIssuer("s3cret")
	g.Expect(err).NotTo(HaveOccurred())
	h := newHarness(t, Options{Issuer: issuer})

	code, _ := h.do(http.MethodPost, "/states", `{"name":"Texas"}`)
	g.Expect(code).To(Equal(http.StatusUnauthorized))
	code, _ = h.do(http.MethodGet, "/states", "")
	g.Expect(code).To(Equal(http.StatusOK))

	// Seed a user directly, then log in.
	svc := services.NewEntityService(h.store, nil)
	_, err = svc.Create("User", map[string]any{"email": "a@b.com", "password": "hunter2"})
	g.Expect(err).NotTo(HaveOccurred())

	code, _ = h.do(http.MethodPost, "/auth/login", `{"email":"a@b.com","password":"wrong"}`)
	g.Expect(code).To(Equal(http.StatusUnauthorized))
	code, _ = h.do(http.MethodPost, "/auth/login", `{"email":"a@b.com"}`)
	g.Expect(code).To(Equal(http.StatusBadRequest))

	code, body := h.do(http.MethodPost, "/auth/login", `{"email":"a@b.com","password":"hunter2"}`)
	g.Expect(code).To(Equal(http.StatusOK))
	login := decodeObj(t, body)
	g.Expect(login["user"]).NotTo(HaveKey("password"))
	token := login["token"].(string)

	code, _ = h.do(http.MethodPost, "/states", `{"name":"Texas"}`, "Authorization", "Bearer "+token)
	g.Expect(code).To(Equal(http.StatusCreated))
}

func TestSnapshotRoutes(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t, Options{})
	h.create("/states", map[string]any{"name": "Texas"})

	code, body := h.do(http.MethodPost, "/snapshots", "")
	g.Expect(code).To(Equal(http.StatusCreated))
	snap := decodeObj(t, body)
	g.Expect(snap).To(HaveKeyWithValue("objects", BeNumerically("==", 1)))

	code, body = h.do(http.MethodGet, "/snapshots", "")
	g.Expect(code).To(Equal(http.StatusOK))
	g.Expect(decodeList(t, body)).To(HaveLen(1))

	code, body = h.do(http.MethodGet, "/snapshots/"+snap["name"].(string), "")
	g.Expect(code).To(Equal(http.StatusOK))
	g.Expect(decodeList(t, body)).To(ConsistOf(HaveKeyWithValue("name", "Texas")))

	code, _ = h.do(http.MethodGet, "/snapshots/snapshot-missing.json", "")
	g.Expect(code).To(Equal(http.StatusNotFound))
}

func TestWebSocketFeed(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t, Options{})
	srv := httptest.NewServer(h.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?kind=State"
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	g.Expect(err).NotTo(HaveOccurred())
	defer conn.Close()

	// Registration is asynchronous; an explicit subscribe is acknowledged
	// once the hub knows the client.
	g.Expect(conn.WriteJSON(map[string]string{"action": "subscribe", "kind": "State"})).To(Succeed())
	var msg websocket.Message
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	g.Expect(conn.ReadJSON(&msg)).To(Succeed())
	g.Expect(msg.Action).To(Equal("subscribed"))

	resp, err := http.Post(srv.URL+"/api/v1/amenities", "application/json", bytes.NewBufferString(`{"name":"Wifi"}`))
	g.Expect(err).NotTo(HaveOccurred())
	resp.Body.Close()
	resp, err = http.Post(srv.URL+"/api/v1/states", "application/json", bytes.NewBufferString(`{"name":"Texas"}`))
	g.Expect(err).NotTo(HaveOccurred())
	resp.Body.Close()
	g.Expect(resp.StatusCode).To(Equal(http.StatusCreated))

	g.Expect(conn.ReadJSON(&msg)).To(Succeed())
	g.Expect(msg.Action).To(Equal(services.ActionCreated))
	g.Expect(msg.Kind).To(Equal("State"))
	g.Expect(msg.Payload).To(HaveKeyWithValue("name", "Texas"))

	resp, err = http.Get(srv.URL + "/api/v1/ws?kind=Spaceship")
	g.Expect(err).NotTo(HaveOccurred())
	resp.Body.Close()
	g.Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
}
