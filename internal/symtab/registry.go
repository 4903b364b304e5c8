// Package symtab provides the server-side symbol table: a registry mapping
// string names to shared in-memory arrays.
//
// Names come in two flavours. Internal names (id_1, id_2, ...) are minted by
// NextName and are removed by DeleteEntry or Clear. Registered names (aliases)
// are user-chosen views onto an existing entry; they survive DeleteEntry and
// Clear until UnregisterAlias is called. Several names may share one entry,
// and an entry is released when the last name referencing it goes away.
//
// Every allocation is gated by a memguard.Guard.
package symtab

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/zjrosen/symtab/internal/array"
	"github.com/zjrosen/symtab/internal/log"
	"github.com/zjrosen/symtab/internal/memguard"
	"github.com/zjrosen/symtab/internal/pubsub"
)

// AllSymbols is the Dump sentinel selecting every name.
const AllSymbols = "__AllSymbols__"

// namePrefix prefixes names minted by NextName.
const namePrefix = "id_"

// Event is the payload published for registry lifecycle changes.
type Event struct {
	Name   string `json:"name"`
	Target string `json:"target,omitempty"` // internal name an alias was bound to
	DType  string `json:"dtype,omitempty"`
	Size   int64  `json:"size,omitempty"`
}

// Config configures a Registry.
type Config struct {
	// Guard gates every allocation. Nil accepts everything.
	Guard memguard.Guard
	// Logger receives redefinition and no-op notices. Nil discards.
	Logger *log.Logger
	// Verbose enables the notices above.
	Verbose bool
	// Events receives lifecycle events. Optional.
	Events *pubsub.Broker[Event]
}

// slot is the reference-counted handle shared by every name bound to one entry.
type slot struct {
	entry array.Entry
	refs  int
}

// binding is one table row.
type binding struct {
	slot *slot
	seq  uint64 // insertion order
}

// Registry is the thread-safe symbol table.
// Entry implementations must be comparable (pointer types) since slots are
// keyed by entry identity.
type Registry struct {
	mu      sync.RWMutex
	table   map[string]*binding
	aliases map[string]struct{}
	slots   map[array.Entry]*slot
	seq     uint64

	counter atomic.Uint64

	guard   atomic.Pointer[guardBox]
	verbose atomic.Bool
	logger  *log.Logger
	events  *pubsub.Broker[Event]
}

type guardBox struct{ g memguard.Guard }

// New creates an empty Registry.
func New(cfg Config) *Registry {
	r := &Registry{
		table:   make(map[string]*binding),
		aliases: make(map[string]struct{}),
		slots:   make(map[array.Entry]*slot),
		logger:  cfg.Logger,
		events:  cfg.Events,
	}
	r.SetGuard(cfg.Guard)
	r.verbose.Store(cfg.Verbose)
	return r
}

// SetGuard replaces the memory guard. Nil accepts everything.
// Guards typically close over TotalMemoryUsed, so they are installed after New.
func (r *Registry) SetGuard(g memguard.Guard) {
	if g == nil {
		g = memguard.Unlimited()
	}
	r.guard.Store(&guardBox{g: g})
}

// SetVerbose toggles redefinition and no-op notices.
func (r *Registry) SetVerbose(v bool) {
	r.verbose.Store(v)
}

// Verbose reports whether notices are enabled.
func (r *Registry) Verbose() bool {
	return r.verbose.Load()
}

// NextName mints a fresh internal name. It never repeats within a process.
func (r *Registry) NextName() string {
	n := r.counter.Add(1)
	return namePrefix + strconv.FormatUint(n, 10)
}

// CreateEntry allocates a zero-filled one-dimensional array and binds it to name.
// An existing binding for name is replaced.
func (r *Registry) CreateEntry(name string, size int64, dt array.DType) (array.Entry, error) {
	if !dt.Supported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, dt)
	}
	if size < 0 {
		return nil, fmt.Errorf("create %s: %w: negative size %d", name, array.ErrInvalidShape, size)
	}

	bytes, err := dt.Bytes(size)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOutOfMemory, name, err)
	}
	if err := r.checkBudget(name, bytes); err != nil {
		return nil, err
	}

	entry, err := array.New(size, dt)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}

	r.insert(name, entry)
	return entry, nil
}

// AdoptEntry binds an already constructed entry to name, gated by its footprint.
func (r *Registry) AdoptEntry(name string, entry array.Entry) (array.Entry, error) {
	if entry == nil {
		return nil, fmt.Errorf("adopt %s: entry cannot be nil", name)
	}
	if err := r.checkBudget(name, array.Footprint(entry)); err != nil {
		return nil, err
	}

	r.insert(name, entry)
	return entry, nil
}

func (r *Registry) checkBudget(name string, bytes int64) error {
	if err := r.guard.Load().g.CheckBudget(bytes); err != nil {
		return fmt.Errorf("%w: %s needs %d bytes: %w", ErrOutOfMemory, name, bytes, err)
	}
	return nil
}

func (r *Registry) insert(name string, entry array.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kind := pubsub.CreatedEvent
	s := r.slotLocked(entry)
	if old, exists := r.table[name]; exists {
		kind = pubsub.UpdatedEvent
		r.notice("redefined symbol", "name", name)
		if old.slot != s {
			r.unbindLocked(name)
			r.bindLocked(name, s)
		}
	} else {
		r.bindLocked(name, s)
	}

	r.publish(kind, Event{Name: name, DType: entry.DType().String(), Size: entry.Size()})
}

// RegisterAlias makes alias a registered name sharing internal's entry.
// Re-registering an existing alias replaces its previous binding.
func (r *Registry) RegisterAlias(internal, alias string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	src, ok := r.table[internal]
	if !ok {
		return unknownSymbol(internal)
	}
	if _, ok := r.aliases[alias]; ok {
		r.notice("re-registered alias", "alias", alias, "target", internal)
	}

	if alias != internal {
		if cur, ok := r.table[alias]; !ok || cur.slot != src.slot {
			if ok {
				r.unbindLocked(alias)
			}
			r.bindLocked(alias, src.slot)
		}
	}
	r.aliases[alias] = struct{}{}

	r.publish(pubsub.RegisteredEvent, Event{Name: alias, Target: internal})
	return nil
}

// UnregisterAlias removes a registered name from the registry and the table.
func (r *Registry) UnregisterAlias(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, inTable := r.table[name]
	_, isAlias := r.aliases[name]
	if !inTable || !isAlias {
		return unknownSymbol(name)
	}

	delete(r.aliases, name)
	r.unbindLocked(name)

	r.publish(pubsub.UnregisteredEvent, Event{Name: name})
	return nil
}

// DeleteEntry removes an unregistered name. Absent and registered names are
// left alone.
func (r *Registry) DeleteEntry(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.deleteLocked(name)
}

func (r *Registry) deleteLocked(name string) bool {
	if _, ok := r.table[name]; !ok {
		r.notice("delete skipped, undefined symbol", "name", name)
		return false
	}
	if _, ok := r.aliases[name]; ok {
		r.notice("delete skipped, registered symbol", "name", name)
		return false
	}

	r.unbindLocked(name)
	r.publish(pubsub.DeletedEvent, Event{Name: name})
	return true
}

// Clear deletes every unregistered name present when it is called.
// Returns the number of names removed.
func (r *Registry) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.table))
	for name := range r.table {
		names = append(names, name)
	}

	removed := 0
	for _, name := range names {
		if _, ok := r.aliases[name]; ok {
			continue
		}
		if r.deleteLocked(name) {
			removed++
		}
	}

	r.publish(pubsub.ClearedEvent, Event{Size: int64(removed)})
	return removed
}

// Lookup returns the entry bound to name. The entry is not owned by the
// caller; it stays valid while some name references it.
func (r *Registry) Lookup(name string) (array.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.table[name]
	if !ok {
		return nil, unknownSymbol(name)
	}
	return b.slot.entry, nil
}

// Contains reports whether name is bound.
func (r *Registry) Contains(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.table[name]
	return ok
}

// IsRegistered reports whether name is a registered alias.
func (r *Registry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.aliases[name]
	return ok
}

// TotalMemoryUsed sums size*itemsize over distinct entries.
func (r *Registry) TotalMemoryUsed() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	used, _ := r.usageLocked()
	return used
}

// Stats summarizes table occupancy.
type Stats struct {
	Names      int   `json:"names"`
	Entries    int   `json:"entries"`
	Registered int   `json:"registered"`
	UsedBytes  int64 `json:"used_bytes"`
}

// Stats returns a consistent snapshot of table occupancy.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	used, entries := r.usageLocked()
	return Stats{
		Names:      len(r.table),
		Entries:    entries,
		Registered: len(r.aliases),
		UsedBytes:  used,
	}
}

// usageLocked counts each entry once, however many names point at it.
func (r *Registry) usageLocked() (used int64, entries int) {
	for entry := range r.slots {
		used += array.Footprint(entry)
	}
	return used, len(r.slots)
}

// Names returns every bound name in insertion order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.orderedNamesLocked()
}

// ListRegistered returns the registered names, sorted.
func (r *Registry) ListRegistered() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.aliases))
	for name := range r.aliases {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Find returns the bound names matching a regular expression, in insertion order.
func (r *Registry) Find(pattern string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	var matches []string
	for _, name := range r.Names() {
		if re.MatchString(name) {
			matches = append(matches, name)
		}
	}
	return matches, nil
}

// Events returns the lifecycle event broker, or nil when none is configured.
func (r *Registry) Events() *pubsub.Broker[Event] {
	return r.events
}

func (r *Registry) orderedNamesLocked() []string {
	names := make([]string, 0, len(r.table))
	for name := range r.table {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return r.table[names[i]].seq < r.table[names[j]].seq
	})
	return names
}

// slotLocked returns the live slot for entry, creating an unreferenced one if needed.
func (r *Registry) slotLocked(entry array.Entry) *slot {
	if s, ok := r.slots[entry]; ok {
		return s
	}
	s := &slot{entry: entry}
	r.slots[entry] = s
	return s
}

func (r *Registry) bindLocked(name string, s *slot) {
	r.seq++
	s.refs++
	r.table[name] = &binding{slot: s, seq: r.seq}
}

// unbindLocked drops name's reference and releases the entry when it was the last.
func (r *Registry) unbindLocked(name string) {
	b, ok := r.table[name]
	if !ok {
		return
	}
	delete(r.table, name)

	b.slot.refs--
	if b.slot.refs > 0 {
		return
	}
	delete(r.slots, b.slot.entry)
	if rel, ok := b.slot.entry.(array.Releaser); ok {
		rel.Release()
	}
}

func (r *Registry) notice(msg string, fields ...any) {
	if !r.verbose.Load() {
		return
	}
	r.logger.Info(log.CatRegistry, msg, fields...)
}

func (r *Registry) publish(t pubsub.EventType, ev Event) {
	if r.events != nil {
		r.events.Publish(t, ev)
	}
}
