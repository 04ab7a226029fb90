package platform

type WindowConfig struct {
	Title       string
	WidthPx     int
	HeightPx    int
	MinWidthPx  int
	MinHeightPx int
}

type EventType int

const (
	EventUnknown EventType = iota
	EventResize
	EventScroll
	EventKeyDown
	EventTextInput
	EventPointerMove
	EventPointerDown
	EventPointerUp
	EventPointerLeave
	EventSelectionChange
	EventNativeSelectionChange
	EventTextChange
)

func (t EventType) String() string {
	switch t {
	case EventResize:
		return "resize"
	case EventScroll:
		return "scroll"
	case EventKeyDown:
		return "keydown"
	case EventTextInput:
		return "textinput"
	case EventPointerMove:
		return "pointermove"
	case EventPointerDown:
		return "pointerdown"
	case EventPointerUp:
		return "pointerup"
	case EventPointerLeave:
		return "pointerleave"
	case EventSelectionChange:
		return "selection-change"
	case EventNativeSelectionChange:
		return "selectionchange"
	case EventTextChange:
		return "text-change"
	default:
		return "unknown"
	}
}

// Event is a host input or editor notification. X and Y are relative to the
// editor viewport's top-left corner.
type Event struct {
	Type   EventType
	X      int
	Y      int
	DeltaX int
	DeltaY int
	Width  int
	Height int
	Rune   rune
	Key    string
	Shift  bool
	Ctrl   bool

	// InEditor is set by the host when the pointer is over the editing surface.
	InEditor bool

	defaultPrevented bool
	stopped          bool
}

func (e *Event) PreventDefault()        { e.defaultPrevented = true }
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }
func (e *Event) StopPropagation()       { e.stopped = true }
