package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"torrentsearch/searchd/internal/domain"
)

func TestGetJSONDecodesPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got == "" {
			t.Errorf("expected User-Agent header to be set")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"ubuntu","seeders":42}`))
	}))
	defer srv.Close()

	var out struct {
		Name    string `json:"name"`
		Seeders int    `json:"seeders"`
	}
	client := NewClient()
	if err := client.GetJSON(context.Background(), srv.URL, &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if out.Name != "ubuntu" || out.Seeders != 42 {
		t.Fatalf("unexpected payload: %+v", out)
	}
}

func TestGetJSONMapsStatusToHTTPKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	var out map[string]any
	err := NewClient().GetJSON(context.Background(), srv.URL, &out)
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if fe.Kind != domain.FailureHTTP || fe.Status != http.StatusForbidden {
		t.Fatalf("expected http/403, got %s/%d", fe.Kind, fe.Status)
	}
}

func TestGetJSONMapsBadBodyToParseKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	var out map[string]any
	err := NewClient().GetJSON(context.Background(), srv.URL, &out)
	if KindOf(err) != domain.FailureParse {
		t.Fatalf("expected parse kind, got %v (%v)", KindOf(err), err)
	}
}

func TestGetHTMLMapsTimeoutKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient(WithTimeout(20 * time.Millisecond))
	_, err := client.GetHTML(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if KindOf(err) != domain.FailureTimeout {
		t.Fatalf("expected timeout kind, got %v (%v)", KindOf(err), err)
	}
}

func TestGetHTMLMapsRefusedToTransportKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient().GetHTML(context.Background(), url)
	if err == nil {
		t.Fatal("expected error against closed server")
	}
	if KindOf(err) != domain.FailureTransport {
		t.Fatalf("expected transport kind, got %v (%v)", KindOf(err), err)
	}
}

func TestConnectivityCheckerReportsUnavailable(t *testing.T) {
	// Port 1 on loopback is assumed closed.
	checker := NewConnectivityChecker("127.0.0.1:1")
	if err := checker.Check(context.Background()); !errors.Is(err, ErrNetworkUnavailable) {
		t.Fatalf("expected ErrNetworkUnavailable, got %v", err)
	}
}

func TestConnectivityCheckerSucceedsOnReachableAddr(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	checker := NewConnectivityChecker(srv.Listener.Addr().String())
	if err := checker.Check(context.Background()); err != nil {
		t.Fatalf("expected reachable, got %v", err)
	}
}
