package input

import "encoding/binary"

// Linux joystick API event layout (struct js_event).
const (
	jsEventSize   = 8
	jsEventButton = 0x01
	jsEventInit   = 0x80
)

type jsEvent struct {
	TimeMs uint32
	Value  int16
	Type   uint8
	Number uint8
}

func decodeJSEvent(b []byte) jsEvent {
	return jsEvent{
		TimeMs: binary.LittleEndian.Uint32(b[0:4]),
		Value:  int16(binary.LittleEndian.Uint16(b[4:6])),
		Type:   b[6],
		Number: b[7],
	}
}

// applyJSEvents folds whole events in buf into mask. Axis events and buttons
// beyond bit 31 are ignored.
func applyJSEvents(mask uint32, buf []byte) uint32 {
	for len(buf) >= jsEventSize {
		ev := decodeJSEvent(buf[:jsEventSize])
		buf = buf[jsEventSize:]
		if ev.Type&^jsEventInit != jsEventButton || ev.Number > 31 {
			continue
		}
		bit := uint32(1) << ev.Number
		if ev.Value != 0 {
			mask |= bit
		} else {
			mask &^= bit
		}
	}
	return mask
}
