package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGet_FollowsRedirectsAndReportsFinalURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/end", http.StatusFound)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("landed"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := New(Config{})
	res, err := f.Get(context.Background(), srv.URL+"/start")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if res.StatusCode != 200 {
		t.Errorf("status = %d, want 200", res.StatusCode)
	}
	if !strings.HasSuffix(res.FinalURL, "/end") {
		t.Errorf("FinalURL = %q, want .../end", res.FinalURL)
	}
	if string(res.Body) != "landed" {
		t.Errorf("body = %q", res.Body)
	}
}

func TestGet_ErrorStatusIsNotATransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(Config{})
	res, err := f.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get returned error for 404: %v", err)
	}
	if res.StatusCode != 404 {
		t.Errorf("status = %d, want 404", res.StatusCode)
	}
}

func TestGet_CapturesResponseCookies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "x", Path: "/"})
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := New(Config{})
	res, err := f.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(res.Cookies) != 1 || res.Cookies[0].Name != "sid" {
		t.Errorf("cookies = %+v, want one cookie named sid", res.Cookies)
	}
}

func TestGet_RejectsNonHTTPSchemes(t *testing.T) {
	f := New(Config{})
	if _, err := f.Get(context.Background(), "ftp://example.com/"); err == nil {
		t.Error("expected error for ftp scheme")
	}
}

func TestGet_SetsUserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	f := New(Config{UserAgent: "AuditProbe/2.0"})
	if _, err := f.Get(context.Background(), srv.URL); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "AuditProbe/2.0" {
		t.Errorf("User-Agent = %q", got)
	}
}

func TestGet_BodyCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	f := New(Config{MaxBytes: 1024})
	if _, err := f.Get(context.Background(), srv.URL); err == nil {
		t.Error("expected error when body exceeds cap")
	}
}
