package platform

type Phase int

const (
	Bubble Phase = iota
	Capture
)

type Handler func(ev *Event)

type listener struct {
	id    uint64
	phase Phase
	fn    Handler
}

// Target holds listeners keyed by event type. It is not safe for concurrent
// use; all dispatch happens on the host loop.
type Target struct {
	name      string
	nextID    uint64
	listeners map[EventType][]listener
}

func NewTarget(name string) *Target {
	return &Target{name: name, listeners: map[EventType][]listener{}}
}

func (t *Target) Name() string { return t.name }

// Listen registers fn and returns a func that removes it. Calling the remove
// func more than once is harmless.
func (t *Target) Listen(typ EventType, phase Phase, fn Handler) func() {
	if fn == nil {
		return func() {}
	}
	t.nextID++
	id := t.nextID
	t.listeners[typ] = append(t.listeners[typ], listener{id: id, phase: phase, fn: fn})
	return func() { t.remove(typ, id) }
}

func (t *Target) remove(typ EventType, id uint64) {
	ls := t.listeners[typ]
	for i := range ls {
		if ls[i].id == id {
			t.listeners[typ] = append(ls[:i:i], ls[i+1:]...)
			return
		}
	}
}

// Count reports how many listeners are registered for typ.
func (t *Target) Count(typ EventType) int {
	return len(t.listeners[typ])
}

// Total reports the number of registered listeners across all event types.
func (t *Target) Total() int {
	n := 0
	for _, ls := range t.listeners {
		n += len(ls)
	}
	return n
}

func (t *Target) fire(ev *Event, phase Phase) {
	// Snapshot so handlers may add or remove listeners while dispatching.
	ls := append([]listener(nil), t.listeners[ev.Type]...)
	for _, l := range ls {
		if ev.stopped {
			return
		}
		if l.phase != phase {
			continue
		}
		l.fn(ev)
	}
}

// Dispatch delivers ev the way a browser would for an element inside a
// window: window capture listeners first, then the element (only when the
// event is inside the editor), then window bubble listeners.
func Dispatch(window, root *Target, ev *Event) {
	if ev == nil {
		return
	}
	if window != nil {
		window.fire(ev, Capture)
	}
	if root != nil && ev.InEditor && !ev.stopped {
		root.fire(ev, Capture)
		root.fire(ev, Bubble)
	}
	if window != nil && !ev.stopped {
		window.fire(ev, Bubble)
	}
}
