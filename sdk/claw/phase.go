package claw

import (
	"fmt"
	"strings"
)

// Phase 爪子目前的動作階段
type Phase uint8

const (
	Idle Phase = iota
	Moving
	Lowering
	Grabbing
	Rising
	Returning
)

var phaseName = [...]string{"idle", "moving", "lowering", "grabbing", "rising", "returning"}

func (p Phase) String() string {
	if int(p) < len(phaseName) {
		return phaseName[p]
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	for i, n := range phaseName {
		if n == string(b) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// Direction 移動方向；Up 往 y 變小
type Direction uint8

const (
	Left Direction = iota + 1
	Right
	Up
	Down
)

var directionMap = map[string]Direction{
	"left":  Left,
	"right": Right,
	"up":    Up,
	"down":  Down,
}

func ParseDirection(s string) (Direction, bool) {
	d, ok := directionMap[strings.ToLower(strings.TrimSpace(s))]
	return d, ok
}

func (d Direction) String() string {
	for k, v := range directionMap {
		if v == d {
			return k
		}
	}
	return "none"
}
