package demo

import "testing"

func TestDemo(t *testing.T) {
	cat, err := New()
	if err != nil || cat.IsFrozen() || len(cat.IDs()) != 0 {
		t.Fatalf("catalog got err=%v", err)
	}
	cfg, err := NewServerConfig()
	if err != nil {
		t.Fatalf("server config: %v", err)
	}
	if err := cfg.Valid(); err != nil || cfg.Capacity != 16 || cfg.Store != nil {
		t.Fatalf("valid got %v cfg=%+v", err, cfg)
	}
	if ids := cfg.Lab.IDs(); len(ids) != 3 {
		t.Fatalf("ids got %v", ids)
	}
}
