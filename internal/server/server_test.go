package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/cardmate/internal/export"
	"github.com/joseph-ayodele/cardmate/internal/extract"
	repo "github.com/joseph-ayodele/cardmate/internal/repository"
	"github.com/joseph-ayodele/cardmate/internal/services/auth"
	"github.com/joseph-ayodele/cardmate/internal/services/cards"
)

type stubScanner struct {
	record extract.ContactRecord
}

func (s stubScanner) Scan(context.Context, string, bool) (*extract.ScanResult, error) {
	best := extract.NewAttempt(extract.StageRaw, []extract.TextLine{{Content: s.record.Name, Confidence: 0.9}})
	return &extract.ScanResult{Record: s.record, Best: best, Attempts: []extract.Attempt{best}}, nil
}

func newTestDeps(t *testing.T) Deps {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := repo.OpenMemory(ctx, logger)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close(logger) })
	if err := db.Migrate(ctx, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	users := repo.NewUserRepository(db, logger)
	cardRepo := repo.NewCardRepository(db, logger)
	jobs := repo.NewScanJobRepository(db, logger)

	scanner := stubScanner{record: extract.ContactRecord{
		Name:              "Priya Raman",
		Designation:       "Sales Manager",
		Company:           "ACME TECHNOLOGIES",
		Phones:            []string{"+919876543210"},
		Emails:            []string{"priya@acme.com"},
		Addresses:         []string{},
		Websites:          []string{"www.acme.com"},
		OverallConfidence: 0.9,
		Stage:             extract.StageRaw,
	}}
	cardSvc, err := cards.NewService(scanner, cardRepo, jobs, logger)
	if err != nil {
		t.Fatalf("card service: %v", err)
	}
	return Deps{
		Auth:   auth.NewService(users, strings.Repeat("k", 32), time.Hour, logger),
		Cards:  cardSvc,
		Export: export.NewService(cardRepo, logger),
		DB:     db,
	}
}

func newTestServer(t *testing.T, cfg HTTPConfig) (*httptest.Server, Deps) {
	t.Helper()
	deps := newTestDeps(t)
	cfg.UploadDir = t.TempDir()
	srv := NewHTTPServer(deps, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, deps
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, rdr)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func upload(t *testing.T, url, token, filename string, data []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = fw.Write(data)
	_ = mw.Close()

	req, err := http.NewRequest(http.MethodPost, url, &buf)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func register(t *testing.T, base string) string {
	t.Helper()
	resp := doJSON(t, http.MethodPost, base+"/register", "", map[string]string{
		"username": "priya",
		"email":    "priya@example.com",
		"password": "correct-horse",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
	tok := decode[tokenResponse](t, resp)
	if tok.AccessToken == "" || tok.User.Email != "priya@example.com" {
		t.Fatalf("register response = %+v", tok)
	}
	return tok.AccessToken
}

type cardEnvelope struct {
	Data struct {
		ID      string   `json:"id"`
		Name    string   `json:"name"`
		Phones  []string `json:"phones"`
		Tags    []string `json:"tags"`
		IsOwner bool     `json:"is_owner"`
	} `json:"data"`
	Duplicate bool `json:"duplicate"`
}

func TestCardLifecycle(t *testing.T) {
	ts, _ := newTestServer(t, HTTPConfig{})
	token := register(t, ts.URL)

	resp := doJSON(t, http.MethodPost, ts.URL+"/login", "", map[string]string{
		"email": "PRIYA@example.com", "password": "correct-horse",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}

	resp = upload(t, ts.URL+"/scan", token, "card.jpg", []byte("jpeg bytes"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("scan status = %d", resp.StatusCode)
	}
	scanned := decode[cardEnvelope](t, resp)
	if scanned.Data.Name != "Priya Raman" || len(scanned.Data.Phones) != 1 {
		t.Fatalf("scanned card = %+v", scanned.Data)
	}
	id := scanned.Data.ID

	resp = upload(t, ts.URL+"/scan?skip_duplicates=true", token, "card.jpg", []byte("jpeg bytes"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("duplicate scan status = %d", resp.StatusCode)
	}
	if dup := decode[cardEnvelope](t, resp); !dup.Duplicate || dup.Data.ID != id {
		t.Fatalf("duplicate scan = %+v", dup)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/cards?q=acme", token, nil)
	list := decode[struct {
		Count int `json:"count"`
	}](t, resp)
	if list.Count != 1 {
		t.Fatalf("list count = %d, want 1", list.Count)
	}

	resp = doJSON(t, http.MethodPatch, ts.URL+"/cards/"+id, token, map[string]any{"tags": []string{" Expo "}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch status = %d", resp.StatusCode)
	}
	if patched := decode[cardEnvelope](t, resp); len(patched.Data.Tags) != 1 || patched.Data.Tags[0] != "expo" {
		t.Fatalf("patched tags = %v", patched.Data.Tags)
	}

	resp = doJSON(t, http.MethodPatch, ts.URL+"/cards/"+id, token, map[string]any{"unknown": 1})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid patch status = %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, ts.URL+"/cards/"+id+"/set-owner", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set-owner status = %d", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodGet, ts.URL+"/cards/"+id, token, nil)
	if got := decode[cardEnvelope](t, resp); !got.Data.IsOwner {
		t.Fatalf("card not marked as owner")
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/cards/"+id+"/vcard", token, nil)
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "FN:Priya Raman") {
		t.Fatalf("vcard body = %q", body)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/cards/"+id+"/qr?size=200", token, nil)
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("qr content type = %q (status %d)", ct, resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/cards/export.xlsx", token, nil)
	if ct := resp.Header.Get("Content-Type"); ct != xlsxContentType {
		t.Fatalf("export content type = %q (status %d)", ct, resp.StatusCode)
	}

	resp = doJSON(t, http.MethodDelete, ts.URL+"/cards/"+id, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodGet, ts.URL+"/cards/"+id, token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", resp.StatusCode)
	}
}

func TestRequestErrors(t *testing.T) {
	ts, _ := newTestServer(t, HTTPConfig{})
	token := register(t, ts.URL)

	tests := []struct {
		name string
		do   func() *http.Response
		want int
	}{
		{"no token", func() *http.Response { return doJSON(t, http.MethodGet, ts.URL+"/cards", "", nil) }, http.StatusUnauthorized},
		{"bad token", func() *http.Response { return doJSON(t, http.MethodGet, ts.URL+"/cards", "nope", nil) }, http.StatusUnauthorized},
		{"bad id", func() *http.Response { return doJSON(t, http.MethodGet, ts.URL+"/cards/42", token, nil) }, http.StatusBadRequest},
		{"bad paging", func() *http.Response { return doJSON(t, http.MethodGet, ts.URL+"/cards?limit=-1", token, nil) }, http.StatusBadRequest},
		{"unsupported upload", func() *http.Response { return upload(t, ts.URL+"/scan", token, "notes.txt", []byte("x")) }, http.StatusBadRequest},
		{"wrong password", func() *http.Response {
			return doJSON(t, http.MethodPost, ts.URL+"/login", "", map[string]string{"email": "priya@example.com", "password": "wrong-password"})
		}, http.StatusUnauthorized},
		{"duplicate email", func() *http.Response {
			return doJSON(t, http.MethodPost, ts.URL+"/register", "", map[string]string{"username": "p2", "email": "priya@example.com", "password": "another-pass"})
		}, http.StatusConflict},
		{"unknown field", func() *http.Response {
			return doJSON(t, http.MethodPost, ts.URL+"/login", "", map[string]string{"email": "a@b.co", "pw": "x"})
		}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.do().StatusCode; got != tt.want {
				t.Fatalf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestOCRPreviewDoesNotPersist(t *testing.T) {
	ts, _ := newTestServer(t, HTTPConfig{})
	token := register(t, ts.URL)

	resp := upload(t, ts.URL+"/ocr", "", "card.png", []byte("png bytes"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ocr status = %d", resp.StatusCode)
	}
	out := decode[struct {
		Data extract.ContactRecord `json:"data"`
	}](t, resp)
	if out.Data.Company != "ACME TECHNOLOGIES" {
		t.Fatalf("ocr record = %+v", out.Data)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/cards", token, nil)
	if list := decode[struct {
		Count int `json:"count"`
	}](t, resp); list.Count != 0 {
		t.Fatalf("preview stored %d cards", list.Count)
	}
}

func TestRateLimit(t *testing.T) {
	ts, _ := newTestServer(t, HTTPConfig{RateEvery: time.Hour, RateBurst: 1})
	body := map[string]string{"email": "nobody@example.com", "password": "whatever1"}

	first := doJSON(t, http.MethodPost, ts.URL+"/login", "", body)
	if first.StatusCode != http.StatusUnauthorized {
		t.Fatalf("first status = %d", first.StatusCode)
	}
	second := doJSON(t, http.MethodPost, ts.URL+"/login", "", body)
	if second.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", second.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, HTTPConfig{})
	resp := doJSON(t, http.MethodGet, ts.URL+"/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}
	out := decode[map[string]any](t, resp)
	if out["database"] != "ok" {
		t.Fatalf("health = %v", out)
	}
}

func TestGRPCCardService(t *testing.T) {
	deps := newTestDeps(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	u, err := deps.Auth.Register(context.Background(), auth.RegisterRequest{Username: "g", Email: "g@example.com", Password: "grpc-password"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	token, err := deps.Auth.IssueToken(u.ID)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(LoggingInterceptor(logger), AuthInterceptor(deps.Auth, logger)))
	RegisterCardServiceServer(gs, NewCardService(deps.Cards, t.TempDir(), logger))
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	client := NewCardServiceClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.ListCards(ctx, &emptypb.Empty{}); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("unauthenticated ListCards err = %v", err)
	}

	authed := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	if _, err := client.ScanCard(authed, wrapperspb.Bytes(nil)); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("empty ScanCard err = %v", err)
	}
	scanned, err := client.ScanCard(authed, wrapperspb.Bytes([]byte{0xFF, 0xD8, 0xFF, 0xE0, 'j', 'p', 'g'}))
	if err != nil {
		t.Fatalf("ScanCard: %v", err)
	}
	if name := scanned.GetFields()["card"].GetStructValue().GetFields()["name"].GetStringValue(); name != "Priya Raman" {
		t.Fatalf("scanned name = %q", name)
	}

	list, err := client.ListCards(authed, &emptypb.Empty{})
	if err != nil {
		t.Fatalf("ListCards: %v", err)
	}
	if n := len(list.GetFields()["cards"].GetListValue().GetValues()); n != 1 {
		t.Fatalf("listed %d cards, want 1", n)
	}
}

func TestSniffExt(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"png", []byte("\x89PNG\r\n\x1a\n0000"), ".png"},
		{"heic", []byte("\x00\x00\x00\x18ftypheic0000"), ".heic"},
		{"unknown", []byte("hello"), ".jpg"},
	}
	for _, tt := range tests {
		if got := sniffExt(tt.data); got != tt.want {
			t.Errorf("%s: sniffExt = %q, want %q", tt.name, got, tt.want)
		}
	}
}
