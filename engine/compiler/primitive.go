package compiler

// Primitive is one materialized GPU-resident resource. Every concrete type
// implements the same four-phase contract; the Store's canonical ordering is
// the only thing that sequences them.
//
// Create resolves its dependencies through handles against the Store at call
// time, never through pointers captured at materialization, which would be
// stale after a Store reset. It returns false and logs on validation
// failures; truly exceptional native failures abort via core.LogFatal.
//
// Stage performs the optional one-time upload of CPU-resident data and blocks
// until the transfer completed.
//
// Destroy releases native handles and must be idempotent and null-safe.
//
// RecordCommands emits per-frame commands; static primitives no-op, dynamic
// ones copy their current CPU value into mapped memory before consumption.
type Primitive interface {
	Name() string
	SetName(string)
	Handle() Handle

	Create(store *Store, dev Device) bool
	Stage(dev Device) bool
	Destroy(store *Store, dev Device)
	RecordCommands(store *Store, enc CommandEncoder)
}

// Connector is implemented by primitives that consume arrays from graph
// edges. Connect validates type and cardinality compatibility and records
// the binding; it runs strictly before any Create call of the same rebuild.
type Connector interface {
	Primitive
	Connect(arr Array, slot uint32, store *Store) bool
}

// base carries the bookkeeping every primitive shares. The Store fills it in
// at placement time.
type base struct {
	name   string
	handle Handle
}

func (b *base) Name() string        { return b.name }
func (b *base) SetName(name string) { b.name = name }
func (b *base) Handle() Handle      { return b.handle }

// Default no-op phases; concrete types override what they need.
func (b *base) Stage(Device) bool                      { return true }
func (b *base) RecordCommands(*Store, CommandEncoder) {}
