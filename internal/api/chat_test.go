//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ashureev/plate-labs/internal/bot"
	"github.com/ashureev/plate-labs/internal/document/memory"
	"github.com/ashureev/plate-labs/internal/domain"
	"github.com/ashureev/plate-labs/internal/identity"
	"github.com/ashureev/plate-labs/internal/plate"
	"github.com/ashureev/plate-labs/internal/render"
	"github.com/ashureev/plate-labs/internal/store"
	"github.com/go-chi/chi/v5"
)

type fakeRepo struct {
	mu      sync.Mutex
	plates  []*domain.ArchivedPlate
	pingErr error
}

func (f *fakeRepo) ArchivePlate(_ context.Context, p *domain.ArchivedPlate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy := *p
	f.plates = append(f.plates, &copy)
	return nil
}

func (f *fakeRepo) ListArchivedPlates(_ context.Context, limit int) ([]*domain.ArchivedPlate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.ArchivedPlate
	for i := len(f.plates) - 1; i >= 0; i-- {
		out = append(out, f.plates[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeRepo) GetArchivedPlate(_ context.Context, id string) (*domain.ArchivedPlate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.plates {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeRepo) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

func (f *fakeRepo) Close() error { return nil }

func (f *fakeRepo) setPingErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pingErr = err
}

type testServer struct {
	*httptest.Server
	orch *bot.Orchestrator
	repo *fakeRepo
}

const testAnonID = "anon_0123456789abcdef0123456789abcdef"

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	repo := &fakeRepo{}
	docs := memory.New()
	orch := bot.New(nil, nil, bot.Options{
		Publisher: render.NewPublisher(docs, ""),
		Archiver:  repo,
	})
	h := NewHandler(orch, docs, Options{Archive: repo, MaxBodySize: 1024})

	r := chi.NewRouter()
	r.Use(identity.Middleware(true))
	NewHealthHandler(repo, orch.Registry()).RegisterHealth(r)
	h.RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, orch: orch, repo: repo}
}

func (s *testServer) do(t *testing.T, method, path, session, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.AddCookie(&http.Cookie{Name: identity.AnonCookieName, Value: testAnonID})
	if session != "" {
		req.Header.Set(identity.SessionHeaderName, session)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (s *testServer) chat(t *testing.T, session, message string) (int, render.Payload) {
	t.Helper()
	body, _ := json.Marshal(chatRequest{Message: message})
	resp := s.do(t, http.MethodPost, "/api/chat", session, string(body))
	var p render.Payload
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
	}
	return resp.StatusCode, p
}

func TestPostChatScenario(t *testing.T) {
	s := newTestServer(t)

	steps := []struct {
		message  string
		wantKind bot.ReplyKind
		wantErr  string
	}{
		{"/new_research", bot.ReplyText, ""},
		{"VersaPlex", bot.ReplyText, ""},
		{"VersaPlex 16654 3 1,5,6", bot.ReplyText, ""},
		{"VersaPlex 16654 4 1,5,6", bot.ReplyText, "count_mismatch"},
		{"/show_researches", bot.ReplyTable, ""},
		{"/print_plate", bot.ReplyText, ""},
		{"VersaPlex", bot.ReplyDocument, ""},
	}
	var last render.Payload
	for _, step := range steps {
		status, p := s.chat(t, "tab-1", step.message)
		if status != http.StatusOK {
			t.Fatalf("%q: status %d", step.message, status)
		}
		if p.Kind != step.wantKind || p.Error != step.wantErr {
			t.Fatalf("%q: got kind %q error %q", step.message, p.Kind, p.Error)
		}
		last = p
	}

	if last.Document == nil || !strings.HasPrefix(last.Document.URL, "/api/documents/plates/") {
		t.Fatalf("expected document link, got %+v", last.Document)
	}

	resp := s.do(t, http.MethodGet, last.Document.URL, "tab-1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("document download: status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != render.ContentTypePDF {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "plate_VersaPlex.pdf") {
		t.Fatalf("unexpected content disposition %q", cd)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.HasPrefix(string(body), "%PDF-") {
		t.Fatal("downloaded document is not a PDF")
	}
}

func TestPostChatIgnoredInput(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.chat(t, "tab-1", "hello there")
	if status != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", status)
	}
}

func TestPostChatBadRequests(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"not json", "{", http.StatusBadRequest},
		{"empty message", `{"message":"   "}`, http.StatusBadRequest},
		{"too large", `{"message":"` + strings.Repeat("x", 2048) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.do(t, http.MethodPost, "/api/chat", "tab-1", tt.body)
			if resp.StatusCode != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

func TestPromptsAreScopedToSession(t *testing.T) {
	s := newTestServer(t)

	s.chat(t, "tab-1", "/new_research")
	if status, _ := s.chat(t, "tab-2", "Alpha"); status != http.StatusNoContent {
		t.Fatalf("tab-2 has no pending prompt, got %d", status)
	}
	if _, p := s.chat(t, "tab-1", "Alpha"); p.Error != "" {
		t.Fatalf("tab-1 answer failed: %+v", p)
	}
	if s.orch.Registry().Len() != 1 {
		t.Fatal("expected one research")
	}
}

func TestListResearches(t *testing.T) {
	s := newTestServer(t)
	if _, err := s.orch.Registry().Create("Alpha", "test"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.orch.Registry().Place("Alpha", "E", []string{"1", "2"}, 2); err != nil {
		t.Fatal(err)
	}

	resp := s.do(t, http.MethodGet, "/api/researches", "", "")
	var got struct {
		Researches []struct {
			Name        string `json:"name"`
			FilledWells int    `json:"filled_wells"`
			FreeWells   int    `json:"free_wells"`
		} `json:"researches"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Researches) != 1 || got.Researches[0].FilledWells != 2 || got.Researches[0].FreeWells != plate.Wells-2 {
		t.Fatalf("unexpected researches %+v", got)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/documents/plates/missing.pdf", "/api/documents/other/x.pdf"} {
		if resp := s.do(t, http.MethodGet, path, "", ""); resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, resp.StatusCode)
		}
	}
}

func TestArchiveEndpoints(t *testing.T) {
	s := newTestServer(t)

	for _, msg := range []string{"/new_research", "Alpha", "Alpha E 1 9", "/close_research", "Alpha"} {
		if status, p := s.chat(t, "tab-1", msg); status != http.StatusOK || p.Error != "" {
			t.Fatalf("%q: status %d payload %+v", msg, status, p)
		}
	}

	resp := s.do(t, http.MethodGet, "/api/archive?limit=10", "", "")
	var list struct {
		Plates []archivedPlateResponse `json:"plates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Plates) != 1 || list.Plates[0].Name != "Alpha" || list.Plates[0].FilledWells != 1 {
		t.Fatalf("unexpected archive list %+v", list)
	}

	resp = s.do(t, http.MethodGet, "/api/archive/"+list.Plates[0].ID, "", "")
	var one archivedPlateResponse
	if err := json.NewDecoder(resp.Body).Decode(&one); err != nil {
		t.Fatalf("decode one: %v", err)
	}
	if one.Table.Cell(0, 0) != "E-9" || !strings.Contains(one.Text, "E-9") {
		t.Fatalf("unexpected archived plate %+v", one)
	}

	if resp := s.do(t, http.MethodGet, "/api/archive/missing", "", ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if resp := s.do(t, http.MethodGet, "/api/archive?limit=0", "", ""); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestArchiveDisabled(t *testing.T) {
	h := NewHandler(bot.New(nil, nil, bot.Options{}), memory.New(), Options{})
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/archive", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodGet, "/health", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	s.repo.setPingErr(errors.New("disk gone"))
	resp = s.do(t, http.MethodGet, "/health", "", "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestGetMe(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodGet, "/api/me", "tab-9", "")
	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["conversation_id"] != testAnonID+":tab-9" {
		t.Fatalf("unexpected identity %v", got)
	}
}
