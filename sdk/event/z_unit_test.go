package event

import "testing"

func TestBusOrderAndCancel(t *testing.T) {
	b := NewBus()
	var got []string
	c1 := b.Subscribe(func(e Event) { got = append(got, "1:"+string(e.Kind)) })
	b.Subscribe(func(e Event) { got = append(got, "2:"+string(e.Kind)) })

	e := b.Publish(Event{Kind: ClawMoved})
	if e.Seq != 1 {
		t.Fatalf("seq got %d want 1", e.Seq)
	}
	c1()
	c1()
	b.Publish(Event{Kind: GameReset})

	want := []string{"1:claw-moved", "2:claw-moved", "2:game-reset"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
	if b.Subscribers() != 1 {
		t.Fatalf("subscribers got %d want 1", b.Subscribers())
	}
}
