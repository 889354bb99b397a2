package overtime

// EntryClass is how an entry participates in overtime accounting.
type EntryClass string

const (
	// ClassWork fills capacity and can become overtime.
	ClassWork EntryClass = "work"
	// ClassBreak fills capacity like work and is also counted as breaks.
	ClassBreak EntryClass = "break"
	// ClassPTO counts toward totals as regular time and never toward the
	// overtime pool.
	ClassPTO EntryClass = "pto"
)

// Classify maps an entry type to its class. Unknown types are work.
func Classify(t EntryType) EntryClass {
	switch t.Normalize() {
	case TypeBreak:
		return ClassBreak
	case TypeHoliday, TypeTimeOff:
		return ClassPTO
	default:
		return ClassWork
	}
}

// inPool reports whether the class takes part in tail attribution.
func (c EntryClass) inPool() bool { return c != ClassPTO }
