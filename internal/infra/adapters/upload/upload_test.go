//go:build !integration

package upload_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"conversation-store/internal/infra/adapters/upload"
	"conversation-store/internal/infra/logging"
)

func TestHTTPUploaderSendsMultipart(t *testing.T) {
	var gotName, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile(upload.FieldName)
		if err != nil {
			t.Errorf("FormFile: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		gotName, gotBody = hdr.Filename, string(b)
		_, _ = w.Write([]byte(`{"summary":"short"}`))
	}))
	defer srv.Close()

	u, err := upload.NewHTTPUploader(srv.URL+"/get_summary", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	res, err := u.Upload(context.Background(), "notes.txt", []byte("hello"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if gotName != "notes.txt" || gotBody != "hello" {
		t.Fatalf("server saw %q/%q", gotName, gotBody)
	}
	if res.StatusCode != http.StatusOK || string(res.Body) != `{"summary":"short"}` {
		t.Fatalf("unexpected result: %d %s", res.StatusCode, res.Body)
	}
}

func TestHTTPUploaderNon2xxFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	u, err := upload.NewHTTPUploader(srv.URL, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	res, err := u.Upload(context.Background(), "a.pdf", []byte("x"))
	if err == nil {
		t.Fatal("expected error on 500")
	}
	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d", res.StatusCode)
	}
}

func TestHTTPUploaderRejectsBadEndpoint(t *testing.T) {
	if _, err := upload.NewHTTPUploader("", 0); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
	if _, err := upload.NewHTTPUploader("not a url", 0); err == nil {
		t.Fatal("expected error for invalid endpoint")
	}
}

func TestNoopUploaderFails(t *testing.T) {
	u := upload.NewNoopUploader(logging.Nop())
	if _, err := u.Upload(context.Background(), "a", nil); !errors.Is(err, upload.ErrNoEndpoint) {
		t.Fatalf("err = %v", err)
	}
}
