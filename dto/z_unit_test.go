package dto

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zintix-labs/clawlab"
	"github.com/zintix-labs/clawlab/corefmt"
)

func TestDecodeOpenRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/v1/sessions?machine_id=1001&player=p1&seed=42", nil)
	req, err := DecodeOpenRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.MachineID != 1001 || req.Player != "p1" || req.Seed == nil || *req.Seed != 42 {
		t.Fatalf("unexpected request: %+v", req)
	}

	r = httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader(`{"machine":"classic"}`))
	req, err = DecodeOpenRequest(r)
	if err != nil || req.MachineName != "classic" || req.Seed != nil {
		t.Fatalf("post got %+v err=%v", req, err)
	}

	bad := []*http.Request{
		httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader(`{"machine_id":1,"unknown":true}`)),
		httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader(`{}`)),
		httptest.NewRequest(http.MethodGet, "/v1/sessions?machine_id=x", nil),
		httptest.NewRequest(http.MethodPut, "/v1/sessions", nil),
	}
	for i, r := range bad {
		if _, err := DecodeOpenRequest(r); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestDecodeCommandRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/move", strings.NewReader(`{"dir":"left"}`))
	cmd, err := DecodeCommandRequest(r, clawlab.OpMove)
	if err != nil || cmd.Op != clawlab.OpMove || cmd.Dir != "left" {
		t.Fatalf("move got %+v err=%v", cmd, err)
	}
	r = httptest.NewRequest(http.MethodPost, "/coins?n=3", nil)
	cmd, err = DecodeCommandRequest(r, clawlab.OpCoins)
	if err != nil || cmd.N != 3 {
		t.Fatalf("coins got %+v err=%v", cmd, err)
	}
	r = httptest.NewRequest(http.MethodPost, "/grab", nil)
	if _, err := DecodeCommandRequest(r, clawlab.OpGrab); err != nil {
		t.Fatalf("grab with empty body: %v", err)
	}
	for _, c := range []struct {
		op   clawlab.Op
		body string
	}{
		{clawlab.OpMove, `{}`},
		{clawlab.OpCoins, `{"n":0}`},
		{clawlab.Op("dance"), `{}`},
		{clawlab.OpGrab, `{"force":true}`},
	} {
		r := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(c.body))
		if _, err := DecodeCommandRequest(r, c.op); err == nil {
			t.Fatalf("%s %s: expected error", c.op, c.body)
		}
	}
}

func TestDecodeSimRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/v1/sim?machine_id=1001&players=50&workers=4&strategy=random", nil)
	req, err := DecodeSimRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Players != 50 || req.Workers != 4 || req.Strategy != "random" {
		t.Fatalf("unexpected request: %+v", req)
	}
	r = httptest.NewRequest(http.MethodPost, "/v1/sim", strings.NewReader(`{"machine_id":1001}`))
	req, err = DecodeSimRequest(r)
	if err != nil || req.Players != 100 || req.Workers != 1 {
		t.Fatalf("defaults got %+v err=%v", req, err)
	}
	r = httptest.NewRequest(http.MethodGet, "/v1/sim?machine_id=1001&players=0", nil)
	if _, err := DecodeSimRequest(r); err == nil {
		t.Fatalf("zero players should fail")
	}
	r = httptest.NewRequest(http.MethodGet, "/v1/sim?machine_id=1001&workers=1000", nil)
	if _, err := DecodeSimRequest(r); err == nil {
		t.Fatalf("too many workers should fail")
	}
}

func TestDecodeReplayRequestJournal(t *testing.T) {
	cmds := []clawlab.Command{
		{Op: clawlab.OpMove, Dir: "left", Accepted: true},
		{Op: clawlab.OpGrab, At: 200_000_000, Accepted: true},
	}
	blob, err := corefmt.EncodeJournal(cmds)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	body := `{"machine_id":1001,"seed":7,"journal_b64u":"` + corefmt.EncodeBase64URL(blob) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/v1/replay", bytes.NewReader([]byte(body)))
	req, err := DecodeReplayRequest(r)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(req.Commands) != 2 || req.Commands[1].At != cmds[1].At || req.Commands[0].Dir != "left" {
		t.Fatalf("commands got %+v", req.Commands)
	}
	r = httptest.NewRequest(http.MethodGet, "/v1/replay", nil)
	if _, err := DecodeReplayRequest(r); err == nil {
		t.Fatalf("GET replay should fail")
	}
	body = `{"machine_id":1001,"commands":[{"op":"grab"}],"journal_b64u":"AA"}`
	r = httptest.NewRequest(http.MethodPost, "/v1/replay", strings.NewReader(body))
	if _, err := DecodeReplayRequest(r); err == nil {
		t.Fatalf("both commands and journal should fail")
	}
}
