package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"onboarding/api/internal/auth"
	"onboarding/api/internal/authpw"
	"onboarding/api/internal/blob"
	"onboarding/api/internal/catalog"
	"onboarding/api/internal/config"
	"onboarding/api/internal/export"
	"onboarding/api/internal/metrics"
	"onboarding/api/internal/profile"
	"onboarding/api/internal/session"
	"onboarding/api/internal/store"
)

type refreshEntry struct {
	userID    string
	expiresAt time.Time
}

// memStore is an in-memory dataStore. The xxxFn hooks override single
// methods when a test needs a failure.
type memStore struct {
	*profile.MemoryRepository

	mu        sync.Mutex
	users     map[string]store.User
	refresh   map[string]refreshEntry
	revoked   map[string]time.Time
	documents []store.ProfileDocument

	pingFn           func(context.Context) error
	insertDocumentFn func(context.Context, store.ProfileDocument) error
}

func newMemStore() *memStore {
	return &memStore{
		MemoryRepository: profile.NewMemoryRepository(),
		users:            map[string]store.User{},
		refresh:          map[string]refreshEntry{},
		revoked:          map[string]time.Time{},
	}
}

func (m *memStore) CreateUser(_ context.Context, user store.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return store.ErrEmailTaken
		}
	}
	user.CreatedAt = time.Now()
	m.users[user.ID] = user
	return nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return store.User{}, store.ErrNotFound
}

func (m *memStore) GetUserByID(_ context.Context, userID string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *memStore) CountUsers(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

func (m *memStore) UpdateUserRole(_ context.Context, userID, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	user.Role = role
	m.users[userID] = user
	return nil
}

func (m *memStore) SaveRefreshSession(_ context.Context, tokenHash, userID string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresh[tokenHash] = refreshEntry{userID: userID, expiresAt: expiresAt}
	return nil
}

func (m *memStore) LookupRefreshSession(_ context.Context, tokenHash string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.refresh[tokenHash]
	if !ok || time.Now().After(entry.expiresAt) {
		return store.User{}, store.ErrNotFound
	}
	user, ok := m.users[entry.userID]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *memStore) RevokeRefreshSession(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.refresh, tokenHash)
	return nil
}

func (m *memStore) RevokeAccessToken(_ context.Context, jti string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = exp
	return nil
}

func (m *memStore) IsAccessTokenRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[jti]
	return ok, nil
}

func (m *memStore) ListProfileDocuments(_ context.Context, userID string) ([]store.ProfileDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.ProfileDocument
	for _, item := range m.documents {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) GetProfileDocument(_ context.Context, userID, documentID string) (store.ProfileDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.documents {
		if item.UserID == userID && item.ID == documentID {
			return item, nil
		}
	}
	return store.ProfileDocument{}, store.ErrNotFound
}

func (m *memStore) InsertProfileDocument(ctx context.Context, item store.ProfileDocument) error {
	if m.insertDocumentFn != nil {
		return m.insertDocumentFn(ctx, item)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents = append(m.documents, item)
	return nil
}

func (m *memStore) DeleteProfileDocument(_ context.Context, userID, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, item := range m.documents {
		if item.UserID == userID && item.ID == documentID {
			m.documents = append(m.documents[:i], m.documents[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

type fakePDF struct {
	err error
}

func (f fakePDF) Render(context.Context, string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.4 fake"), nil
}

// testSchemas returns a v1 and a v2 catalogue. In v2 the default growth
// stage requires tradeName and paidUpCapital.
func testSchemas() []*catalog.Schema {
	stages := []catalog.StageConfig{
		{ID: "startup", Label: "Start Up", Sequence: 1},
		{ID: "growth", Label: "Scale Up", Sequence: 2},
		{ID: "mature", Label: "Expansion", Sequence: 3},
		{ID: "enterprise", Label: "Enterprise", Sequence: 4},
	}
	basic := catalog.Section{ID: "basic", Title: "Basic Information", Groups: []catalog.Group{
		{GroupName: "Company", Fields: []catalog.FieldDefinition{
			{Label: "Trade Name", FieldName: "tradeName", FieldType: catalog.FieldText, Mandatory: catalog.Always()},
			{Label: "Website", FieldName: "website", FieldType: catalog.FieldURL, Mandatory: catalog.Never()},
		}},
	}}
	finance := catalog.Section{ID: "finance", Title: "Finance", Groups: []catalog.Group{
		{GroupName: "Capital", Fields: []catalog.FieldDefinition{
			{Label: "Paid Up Capital", FieldName: "paidUpCapital", FieldType: catalog.FieldCurrency, Mandatory: catalog.InStages("growth", "mature")},
			{Label: "Annual Revenue", FieldName: "annualRevenue", FieldType: catalog.FieldCurrency, Mandatory: catalog.InStages("mature")},
		}},
	}}
	return []*catalog.Schema{
		{Version: "v1", CompanyStages: stages, Sections: []catalog.Section{basic}},
		{
			Version:       "v2",
			CompanyStages: stages,
			Sections:      []catalog.Section{basic, finance},
			FieldMapping:  map[string]string{"tradeName": "kf_tradename", "paidUpCapital": "kf_paidupcapital"},
		},
	}
}

type testEnv struct {
	server  *HTTPServer
	service *Service
	store   *memStore
	blobs   *blob.MemoryStore
	metrics *metrics.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	registry, err := catalog.NewRegistry(testSchemas(), []string{"v2", "v1"}, catalog.ValidateOptions{})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	cfg := config.Config{
		JWTSecret:      "test-secret",
		AccessTTL:      15 * time.Minute,
		RefreshTTL:     time.Hour,
		MaxUploadBytes: 1 << 20,
		Onboarding: config.Onboarding{
			RequiredDocuments: []string{"Commercial License", "Bank Certificate"},
		},
	}
	env := &testEnv{
		store:   newMemStore(),
		blobs:   blob.NewMemoryStore("onboarding-test"),
		metrics: metrics.New(),
	}
	env.service = New(cfg, env.store, Deps{
		Catalog: registry,
		Blobs:   env.blobs,
		Export:  export.NewService(fakePDF{}),
		Metrics: env.metrics,
	})
	env.server = NewHTTPServer(env.service, "*")
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rr, req)
	return rr
}

// signUp registers a user and returns its access token and id.
func (e *testEnv) signUp(t *testing.T, email string) (string, string) {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email":       email,
		"password":    "correct-horse",
		"displayName": "User " + email,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup %s: expected 201, got %d body=%s", email, rr.Code, rr.Body.String())
	}
	payload := decodeJSON(t, rr)
	return payload["accessToken"].(string), payload["userId"].(string)
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response %q: %v", rr.Body.String(), err)
	}
	return payload
}

func TestRefreshWithRedisSessionsReloadsUser(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	sessions := session.NewRedisStoreWithClient(client)

	data := newMemStore()
	registry, err := catalog.NewRegistry(testSchemas(), nil, catalog.ValidateOptions{})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	svc := New(config.Config{JWTSecret: "secret", AccessTTL: time.Minute, RefreshTTL: time.Hour}, data, Deps{
		Catalog:  registry,
		Sessions: sessions,
	})
	ctx := context.Background()

	first, err := svc.SignUp(ctx, authpw.SignUpRequest{Email: "ada@example.com", Password: "correct-horse", DisplayName: "Ada"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if len(data.refresh) != 0 {
		t.Fatalf("refresh sessions must live in redis, found %d in the data store", len(data.refresh))
	}

	if err := data.UpdateUserRole(ctx, first.UserID, "reviewer"); err != nil {
		t.Fatalf("update role: %v", err)
	}
	refreshed, err := svc.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.Role != "reviewer" || refreshed.Email != "ada@example.com" {
		t.Fatalf("expected reloaded user, got %+v", refreshed)
	}
	if _, err := svc.Refresh(ctx, first.RefreshToken); err == nil {
		t.Fatalf("expected rotated refresh token to be rejected")
	}

	if err := svc.Logout(ctx, refreshed, ""); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.SessionFromToken(ctx, refreshed.Token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected revoked token, got %v", err)
	}

	checks := svc.Checks(ctx)
	if checks["sessions"] != nil || checks["database"] != nil {
		t.Fatalf("expected healthy checks, got %v", checks)
	}
}

func TestChecksOmitSessionsWhenStoredWithData(t *testing.T) {
	svc := New(config.Config{JWTSecret: "secret"}, newMemStore(), Deps{})
	checks := svc.Checks(context.Background())
	if _, ok := checks["sessions"]; ok {
		t.Fatalf("sessions check should only appear for an external session store: %v", checks)
	}
}

func TestUploadDocumentRemovesBlobWhenInsertFails(t *testing.T) {
	env := newTestEnv(t)
	env.store.insertDocumentFn = func(context.Context, store.ProfileDocument) error {
		return errors.New("disk full")
	}

	_, err := env.service.UploadDocument(context.Background(), "usr_1", UploadInput{
		Name: "Bank Certificate.pdf",
		Size: 3,
		Body: strings.NewReader("pdf"),
	})
	if err == nil {
		t.Fatalf("expected insert failure")
	}
	if count := env.blobs.Len(); count != 0 {
		t.Fatalf("expected orphaned blob to be removed, %d left", count)
	}
}

func TestSetUserRoleRejectsUnknownRole(t *testing.T) {
	env := newTestEnv(t)
	err := env.service.SetUserRole(context.Background(), "usr_1", "owner")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 domain error, got %v", err)
	}
}

func TestRouteLabel(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "/api/health", want: "/api/health"},
		{path: "/metrics", want: "/metrics"},
		{path: "/api/catalog/versions", want: "/api/catalog/versions"},
		{path: "/api/catalog/v2/search", want: "/api/catalog/{version}/search"},
		{path: "/api/profile/sections/basic", want: "/api/profile/sections/{id}"},
		{path: "/api/documents/doc_123", want: "/api/documents/{id}"},
		{path: "/api/profiles/usr_9/completion", want: "/api/profiles/{id}/completion"},
		{path: "/favicon.ico", want: "other"},
	}
	for _, tc := range tests {
		if got := routeLabel(tc.path); got != tc.want {
			t.Errorf("routeLabel(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "domain", err: domainError(http.StatusTeapot, "TEAPOT", "short and stout", nil), status: http.StatusTeapot, code: "TEAPOT"},
		{name: "not found", err: store.ErrNotFound, status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "blob not found", err: blob.ErrNotFound, status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "unknown version", err: catalog.ErrUnknownVersion, status: http.StatusNotFound, code: "UNKNOWN_VERSION"},
		{name: "expired token", err: auth.ErrExpiredToken, status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "credentials", err: authpw.ErrInvalidCredentials, status: http.StatusUnauthorized, code: "INVALID_CREDENTIALS"},
		{name: "weak password", err: authpw.ErrWeakPassword, status: http.StatusUnprocessableEntity, code: "VALIDATION_ERROR"},
		{name: "email taken", err: store.ErrEmailTaken, status: http.StatusConflict, code: "EMAIL_EXISTS"},
		{name: "pdf missing", err: export.ErrPDFDependencyMissing, status: http.StatusServiceUnavailable, code: "EXPORT_UNAVAILABLE"},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, code: "SERVER_ERROR"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, code, _, _ := mapError(tc.err)
			if status != tc.status || code != tc.code {
				t.Fatalf("expected %d %s, got %d %s", tc.status, tc.code, status, code)
			}
		})
	}
}
