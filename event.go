package cashbook

// EventKind identifies what changed in a Store or a View.
type EventKind int

const (
	// Reset means everything may have changed: observers must rebuild.
	Reset EventKind = iota
	AccountAdded
	AccountRemoved
	AccountChanged
	CategoryAdded
	CategoryRemoved
	CategoryChanged
	ModeAdded
	ModeRemoved
	ModeChanged
	TransactionsAdded
	TransactionsRemoved
	RecurringAdded
	RecurringRemoved
	RecurringChanged
	FilterChanged
)

func (k EventKind) String() string {
	switch k {
	case Reset:
		return "reset"
	case AccountAdded:
		return "account-added"
	case AccountRemoved:
		return "account-removed"
	case AccountChanged:
		return "account-changed"
	case CategoryAdded:
		return "category-added"
	case CategoryRemoved:
		return "category-removed"
	case CategoryChanged:
		return "category-changed"
	case ModeAdded:
		return "mode-added"
	case ModeRemoved:
		return "mode-removed"
	case ModeChanged:
		return "mode-changed"
	case TransactionsAdded:
		return "transactions-added"
	case TransactionsRemoved:
		return "transactions-removed"
	case RecurringAdded:
		return "recurring-added"
	case RecurringRemoved:
		return "recurring-removed"
	case RecurringChanged:
		return "recurring-changed"
	case FilterChanged:
		return "filter-changed"
	default:
		return "unknown"
	}
}

// Property names carried by the *Changed events.
const (
	PropName           = "name"
	PropInitialBalance = "initial-balance"
	PropAlert          = "alert"
	PropMode           = "mode"
	PropCheckBooks     = "check-books"
)

// Event describes a change. Only the fields relevant to Kind are set.
type Event struct {
	Kind         EventKind
	Account      *Account
	Category     *Category
	Mode         *Mode // the removed mode, or the new one for ModeChanged
	Transactions []*Transaction
	Recurring    *Recurring // the new template for RecurringChanged
	Filter       string     // name of a stored filter, for FilterChanged

	// Property, Old and New describe *Changed events.
	Property string
	Old, New any
}

// Listener receives events synchronously, on the stack of the mutating call.
type Listener func(Event)

// bus fans events out to listeners.
//
// Listeners must not mutate the emitter. An event emitted while listeners are
// running is queued and delivered once the current delivery completes, so
// every listener sees events in emission order.
type bus struct {
	listeners []*Listener
	disabled  bool
	pending   bool
	running   bool
	queue     []Event
}

// subscribe registers l and returns the function that unregisters it.
func (b *bus) subscribe(l Listener) func() {
	p := &l
	b.listeners = append(b.listeners, p)
	return func() {
		for i, q := range b.listeners {
			if q == p {
				b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
				return
			}
		}
	}
}

func (b *bus) emit(e Event) {
	if b.disabled {
		b.pending = true
		return
	}
	b.queue = append(b.queue, e)
	if b.running {
		return
	}
	b.running = true
	defer func() { b.running, b.queue = false, nil }()
	for len(b.queue) > 0 {
		e := b.queue[0]
		b.queue = b.queue[1:]
		for _, l := range b.listeners {
			(*l)(e)
		}
	}
}

// setEnabled turns delivery on or off. Turning it back on after swallowing
// events emits a single Reset.
func (b *bus) setEnabled(enabled bool) {
	if b.disabled == !enabled {
		return
	}
	b.disabled = !enabled
	if enabled && b.pending {
		b.pending = false
		b.emit(Event{Kind: Reset})
	}
}
