package protocol

import (
	"errors"
	"fmt"
)

// EventType identifies the type of client event.
type EventType uint8

// Event type constants.
const (
	EventScroll EventType = 0x30 // Window scroll offsets
	EventResize EventType = 0x31 // Viewport dimensions
	EventLayout EventType = 0x32 // Section geometry
)

// String returns the string representation of the event type.
func (et EventType) String() string {
	switch et {
	case EventScroll:
		return "Scroll"
	case EventResize:
		return "Resize"
	case EventLayout:
		return "Layout"
	default:
		return fmt.Sprintf("EventType(0x%02x)", uint8(et))
	}
}

// ErrUnknownEvent is returned for an event type this version cannot decode.
var ErrUnknownEvent = errors.New("protocol: unknown event type")

// Event is a decoded client event. Exactly one payload field is set,
// matching Type.
type Event struct {
	Seq    uint64
	Type   EventType
	Scroll *ScrollEventData
	Resize *ResizeEventData
	Layout *LayoutEventData
}

// ScrollEventData carries the window scroll offsets. Values may be
// negative during elastic overscroll.
type ScrollEventData struct {
	X int
	Y int
}

// ResizeEventData carries the viewport size in CSS pixels.
type ResizeEventData struct {
	Width  int
	Height int
}

// Section is the measured geometry of one page section, relative to the
// top of the document.
type Section struct {
	ID     string
	Top    int
	Height int
}

// LayoutEventData carries the geometry of the tracked sections. The client
// sends it after load and after every resize.
type LayoutEventData struct {
	Sections []Section
}

// NewScrollEvent creates a scroll event.
func NewScrollEvent(seq uint64, x, y int) *Event {
	return &Event{Seq: seq, Type: EventScroll, Scroll: &ScrollEventData{X: x, Y: y}}
}

// NewResizeEvent creates a resize event.
func NewResizeEvent(seq uint64, width, height int) *Event {
	return &Event{Seq: seq, Type: EventResize, Resize: &ResizeEventData{Width: width, Height: height}}
}

// NewLayoutEvent creates a layout event.
func NewLayoutEvent(seq uint64, sections []Section) *Event {
	return &Event{Seq: seq, Type: EventLayout, Layout: &LayoutEventData{Sections: sections}}
}

// EncodeEvent encodes an event to bytes.
func EncodeEvent(ev *Event) []byte {
	e := NewEncoder()
	EncodeEventTo(e, ev)
	return e.Bytes()
}

// EncodeEventTo encodes an event using the provided encoder.
func EncodeEventTo(e *Encoder, ev *Event) {
	e.WriteUvarint(ev.Seq)
	e.WriteByte(byte(ev.Type))

	switch ev.Type {
	case EventScroll:
		var s ScrollEventData
		if ev.Scroll != nil {
			s = *ev.Scroll
		}
		e.WriteSvarint(int64(s.X))
		e.WriteSvarint(int64(s.Y))

	case EventResize:
		var r ResizeEventData
		if ev.Resize != nil {
			r = *ev.Resize
		}
		e.WriteUvarint(uint64(max(r.Width, 0)))
		e.WriteUvarint(uint64(max(r.Height, 0)))

	case EventLayout:
		var sections []Section
		if ev.Layout != nil {
			sections = ev.Layout.Sections
		}
		e.WriteUvarint(uint64(len(sections)))
		for _, s := range sections {
			e.WriteString(s.ID)
			e.WriteSvarint(int64(s.Top))
			e.WriteUvarint(uint64(max(s.Height, 0)))
		}
	}
}

// DecodeEvent decodes an event from a frame payload.
func DecodeEvent(data []byte) (*Event, error) {
	d := NewDecoder(data)
	ev, err := DecodeEventFrom(d)
	if err != nil {
		return nil, err
	}
	if err := d.Finish(); err != nil {
		return nil, err
	}
	return ev, nil
}

// DecodeEventFrom decodes an event from a decoder.
func DecodeEventFrom(d *Decoder) (*Event, error) {
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	typ, err := d.ReadByte()
	if err != nil {
		return nil, err
	}

	ev := &Event{Seq: seq, Type: EventType(typ)}

	switch ev.Type {
	case EventScroll:
		x, err := d.ReadInt()
		if err != nil {
			return nil, err
		}
		y, err := d.ReadInt()
		if err != nil {
			return nil, err
		}
		ev.Scroll = &ScrollEventData{X: x, Y: y}

	case EventResize:
		w, err := readDimension(d)
		if err != nil {
			return nil, err
		}
		h, err := readDimension(d)
		if err != nil {
			return nil, err
		}
		ev.Resize = &ResizeEventData{Width: w, Height: h}

	case EventLayout:
		n, err := d.ReadCount(MaxSections)
		if err != nil {
			return nil, err
		}
		sections := make([]Section, n)
		for i := range sections {
			if sections[i].ID, err = readID(d); err != nil {
				return nil, err
			}
			if sections[i].Top, err = d.ReadInt(); err != nil {
				return nil, err
			}
			if sections[i].Height, err = readDimension(d); err != nil {
				return nil, err
			}
		}
		ev.Layout = &LayoutEventData{Sections: sections}

	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownEvent, typ)
	}

	return ev, nil
}

// maxDimension bounds decoded sizes; no real document is a billion
// pixels tall.
const maxDimension = 1 << 30

func readDimension(d *Decoder) (int, error) {
	v, err := d.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if v > maxDimension {
		return 0, ErrVarintOverflow
	}
	return int(v), nil
}

func readID(d *Decoder) (string, error) {
	s, err := d.ReadString()
	if err != nil {
		return "", err
	}
	if len(s) > MaxIDLength {
		return "", ErrAllocationTooLarge
	}
	return s, nil
}
