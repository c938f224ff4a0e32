package bytecode

// SlotTable assigns dense slot indices to the names of one method.
type SlotTable struct {
	byName map[string]int
	names  []string
}

func NewSlotTable() *SlotTable {
	return &SlotTable{byName: make(map[string]int)}
}

// Declare returns the slot of name, allocating the next index on first use.
func (t *SlotTable) Declare(name string) int {
	if slot, ok := t.byName[name]; ok {
		return slot
	}
	return t.Fresh(name)
}

// Fresh always allocates a new slot and binds name to it.
func (t *SlotTable) Fresh(name string) int {
	slot := len(t.names)
	t.names = append(t.names, name)
	t.byName[name] = slot
	return slot
}

// Lookup returns the slot bound to name.
func (t *SlotTable) Lookup(name string) (int, bool) {
	slot, ok := t.byName[name]
	return slot, ok
}

// Len is the number of allocated slots.
func (t *SlotTable) Len() int { return len(t.names) }

// Name returns the name a slot was allocated for.
func (t *SlotTable) Name(slot int) string {
	if slot < 0 || slot >= len(t.names) {
		return ""
	}
	return t.names[slot]
}
