package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

type syncBuf struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuf) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuf) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestParseMode(t *testing.T) {
	cases := map[string]LogMode{"": ModeDev, "dev": ModeDev, "PROD": ModeProd, "silence": ModeSilence, "off": ModeSilence}
	for in, want := range cases {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q) got %v err=%v want %v", in, got, err, want)
		}
	}
	if _, err := ParseMode("loud"); err == nil {
		t.Fatalf("unknown mode should fail")
	}
	if ModeProd.String() != "prod" {
		t.Fatalf("String got %s", ModeProd.String())
	}
}

func TestAsyncHandlerDrainsOnClose(t *testing.T) {
	var buf syncBuf
	ah := NewAsyncHandler(handlerTo(ModeProd, &buf), 64)
	log := slog.New(ah).With(slog.String("sid", "abc"))
	for i := range 10 {
		log.Info("session.open", slog.Int("i", i))
	}
	log.Debug("filtered")
	ah.Close()
	ah.Close()

	out := buf.String()
	if n := strings.Count(out, `"msg":"session.open"`); n != 10 {
		t.Fatalf("lines got %d want 10:\n%s", n, out)
	}
	if !strings.Contains(out, `"sid":"abc"`) || strings.Contains(out, "filtered") {
		t.Fatalf("attrs or level filter wrong:\n%s", out)
	}
	log.Info("after close")
	if ah.Dropped() != 1 {
		t.Fatalf("dropped got %d want 1", ah.Dropped())
	}
}
