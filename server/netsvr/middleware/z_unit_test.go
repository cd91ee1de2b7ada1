package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const body = `{"machines":[1001,1002,1003]}`

func hello(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

func TestCompressionNegotiation(t *testing.T) {
	h := Compression(http.HandlerFunc(hello))

	cases := []struct {
		accept string
		want   string
		read   func(io.Reader) (io.Reader, error)
	}{
		{"", "", func(r io.Reader) (io.Reader, error) { return r, nil }},
		{"gzip", "gzip", func(r io.Reader) (io.Reader, error) { return gzip.NewReader(r) }},
		{"gzip, zstd", "zstd", func(r io.Reader) (io.Reader, error) {
			d, err := zstd.NewReader(r)
			if err != nil {
				return nil, err
			}
			return d.IOReadCloser(), nil
		}},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if c.accept != "" {
			req.Header.Set("Accept-Encoding", c.accept)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if got := rec.Header().Get("Content-Encoding"); got != c.want {
			t.Fatalf("accept %q: encoding got %q want %q", c.accept, got, c.want)
		}
		rd, err := c.read(rec.Body)
		if err != nil {
			t.Fatalf("accept %q: reader: %v", c.accept, err)
		}
		raw, err := io.ReadAll(rd)
		if err != nil || string(raw) != body {
			t.Fatalf("accept %q: body got %q err=%v", c.accept, raw, err)
		}
	}
}

func TestCompressionSkipsNoBody(t *testing.T) {
	h := Compression(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 || rec.Header().Get("Content-Encoding") != "" {
		t.Fatalf("204 got code=%d len=%d enc=%q", rec.Code, rec.Body.Len(), rec.Header().Get("Content-Encoding"))
	}
}

func TestAccessLogAndReqID(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	var short string
	h := RequestID(AccessLog(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		short = GetReqIdNumPart(r)
		http.Error(w, "nope", http.StatusNotFound)
	})))
	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/x", nil)
	req.Header.Set("X-Request-Id", "edge-42")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if short != "42" {
		t.Fatalf("short req id got %q", short)
	}
	out := buf.String()
	for _, want := range []string{`"msg":"http.access"`, `"status":404`, `"level":"WARN"`, `"req_id":"edge-42"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("access log missing %s:\n%s", want, out)
		}
	}
}

func TestRecover(t *testing.T) {
	h := Recover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("panic got %d want 500", rec.Code)
	}
}
