package command

// Dropdown is the filtered command list shown while a trigger is being
// typed. It holds no document state of its own besides the trigger index.
type Dropdown struct {
	open   bool
	start  int
	filter string
	items  []Command
	cursor int
}

// Open shows the full catalog for a trigger starting at start.
func (d *Dropdown) Open(start int) {
	d.open = true
	d.start = start
	d.filter = ""
	d.items = All()
	d.cursor = 0
}

func (d *Dropdown) IsOpen() bool     { return d.open }
func (d *Dropdown) Start() int       { return d.start }
func (d *Dropdown) Filter() string   { return d.filter }
func (d *Dropdown) Items() []Command { return append([]Command(nil), d.items...) }
func (d *Dropdown) Highlighted() int { return d.cursor }

// Update re-filters from the text between the trigger and the caret. The
// dropdown closes when the trigger is gone.
func (d *Dropdown) Update(s interface{ Text(index, length int) string }, cursor int) {
	if !d.open {
		return
	}
	start, ok := TriggerStart(s, cursor)
	if !ok || start != d.start {
		d.Close()
		return
	}
	d.filter = s.Text(start+1, cursor-start-1)
	d.items = Match(d.filter)
	if d.cursor >= len(d.items) {
		d.cursor = max(0, len(d.items)-1)
	}
}

// Move shifts the highlight, wrapping at both ends.
func (d *Dropdown) Move(delta int) {
	n := len(d.items)
	if n == 0 {
		return
	}
	d.cursor = ((d.cursor+delta)%n + n) % n
}

func (d *Dropdown) Selected() (Command, bool) {
	if !d.open || len(d.items) == 0 {
		return Command{}, false
	}
	return d.items[d.cursor], true
}

func (d *Dropdown) Close() {
	*d = Dropdown{}
}
