package engine

// Binding supplies read-only external data to a running document.
//
// Reads whose first path segment is "db" are routed here with the leading
// segment stripped: `db.player.name` invokes Lookup("player.name"). The
// binding is owned and lifetime-managed entirely by the host; the engine
// only issues synchronous reads and treats every failure (absent binding,
// lookup error) as Null, never as fatal.
type Binding interface {
	Lookup(path string) (Value, error)
}

// BindingFunc adapts a function to the Binding interface.
type BindingFunc func(path string) (Value, error)

// Lookup implements Binding.
func (f BindingFunc) Lookup(path string) (Value, error) { return f(path) }

// bindingRoot is the reserved first path segment routed to the Binding.
const bindingRoot = "db"
