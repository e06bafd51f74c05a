package app

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"onboarding/api/internal/export"
	"onboarding/api/internal/store"
)

func (e *testEnv) upload(t *testing.T, token, fileName string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	} else if err := writer.WriteField("note", "no file"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rr, req)
	return rr
}

func TestDocumentLifecycleDrivesOnboardingScore(t *testing.T) {
	env := newTestEnv(t)
	token, userID := env.signUp(t, "ada@example.com")

	rr := env.upload(t, token, "Commercial License.pdf", []byte("%PDF-1.4 license"))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var uploaded store.ProfileDocument
	decodeInto(t, rr, &uploaded)
	if uploaded.UserID != userID || uploaded.Name != "Commercial License.pdf" || uploaded.Size != 16 {
		t.Fatalf("unexpected document: %+v", uploaded)
	}
	if env.blobs.Len() != 1 {
		t.Fatalf("expected the file in the blob store")
	}

	rr = env.do(t, http.MethodGet, "/api/documents", token, nil)
	var listing struct {
		Documents []store.ProfileDocument `json:"documents"`
	}
	decodeInto(t, rr, &listing)
	if len(listing.Documents) != 1 || listing.Documents[0].ID != uploaded.ID {
		t.Fatalf("unexpected listing: %+v", listing.Documents)
	}

	rr = env.do(t, http.MethodGet, "/api/profile/onboarding", token, nil)
	var onboarding OnboardingView
	decodeInto(t, rr, &onboarding)
	if onboarding.Documents.Percentage != 50 || onboarding.Score.Score != 15 || onboarding.Score.Complete {
		t.Fatalf("unexpected onboarding before profile work: %+v", onboarding)
	}
	if len(onboarding.Documents.Missing) != 1 || onboarding.Documents.Missing[0] != "Bank Certificate" {
		t.Fatalf("expected Bank Certificate to be missing, got %v", onboarding.Documents.Missing)
	}

	env.do(t, http.MethodPut, "/api/profile/sections/basic", token, map[string]any{"fields": map[string]any{"tradeName": "Acme"}})
	env.do(t, http.MethodPut, "/api/profile/sections/finance", token, map[string]any{"fields": map[string]any{"paidUpCapital": 250000}})

	rr = env.do(t, http.MethodGet, "/api/profile/onboarding", token, nil)
	decodeInto(t, rr, &onboarding)
	if onboarding.Score.Mandatory != 100 || onboarding.Score.Score != 85 || !onboarding.Score.Complete {
		t.Fatalf("expected a complete onboarding at 85, got %+v", onboarding.Score)
	}

	rr = env.do(t, http.MethodDelete, "/api/documents/"+uploaded.ID, token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d body=%s", rr.Code, rr.Body.String())
	}
	if env.blobs.Len() != 0 {
		t.Fatalf("expected the blob to be removed")
	}
	rr = env.do(t, http.MethodDelete, "/api/documents/"+uploaded.ID, token, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rr.Code)
	}
}

func TestDocumentsAreScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	ownerToken, _ := env.signUp(t, "owner@example.com")
	otherToken, _ := env.signUp(t, "other@example.com")

	rr := env.upload(t, ownerToken, "Bank Certificate.pdf", []byte("bank"))
	var uploaded store.ProfileDocument
	decodeInto(t, rr, &uploaded)

	rr = env.do(t, http.MethodGet, "/api/documents", otherToken, nil)
	if strings.Contains(rr.Body.String(), uploaded.ID) {
		t.Fatalf("other users must not see the document")
	}
	rr = env.do(t, http.MethodDelete, "/api/documents/"+uploaded.ID, otherToken, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when deleting someone else's document, got %d", rr.Code)
	}
}

func TestDocumentUploadValidation(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signUp(t, "ada@example.com")

	rr := env.upload(t, token, "", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without a file, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = env.upload(t, token, "empty.pdf", nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for an empty file, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = env.upload(t, token, "huge.pdf", bytes.Repeat([]byte("x"), 2<<20))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d body=%s", rr.Code, rr.Body.String())
	}
	if decodeJSON(t, rr)["code"] != "FILE_TOO_LARGE" {
		t.Fatalf("expected FILE_TOO_LARGE")
	}
	if env.blobs.Len() != 0 {
		t.Fatalf("rejected uploads must not reach the blob store")
	}
}

func TestProfileExport(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signUp(t, "ada@example.com")
	env.do(t, http.MethodPut, "/api/profile/sections/basic", token, map[string]any{"fields": map[string]any{"tradeName": "Acme <Trading>"}})

	rr := env.do(t, http.MethodGet, "/api/profile/export.html", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("expected html content type, got %q", ct)
	}
	if !strings.Contains(rr.Body.String(), "Acme &lt;Trading&gt;") {
		t.Fatalf("expected escaped field value in export")
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment;") || !strings.HasSuffix(cd, `.html"`) {
		t.Fatalf("unexpected content disposition %q", cd)
	}

	rr = env.do(t, http.MethodGet, "/api/profile/export.pdf", token, nil)
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("expected pdf, got %d %q", rr.Code, rr.Header().Get("Content-Type"))
	}
	if rr.Body.String() != "%PDF-1.4 fake" {
		t.Fatalf("unexpected pdf body %q", rr.Body.String())
	}

	rr = env.do(t, http.MethodGet, "/api/profile/export.docx", token, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown export, got %d", rr.Code)
	}
}

func TestProfileExportWithoutChrome(t *testing.T) {
	env := newTestEnv(t)
	env.service.exporter = export.NewService(fakePDF{err: export.ErrPDFDependencyMissing})
	token, _ := env.signUp(t, "ada@example.com")

	rr := env.do(t, http.MethodGet, "/api/profile/export.pdf", token, nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d body=%s", rr.Code, rr.Body.String())
	}
	if decodeJSON(t, rr)["code"] != "EXPORT_UNAVAILABLE" {
		t.Fatalf("expected EXPORT_UNAVAILABLE")
	}
}
