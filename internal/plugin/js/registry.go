package js

// HandlerRegistry keeps the ordered list of handler names subscribed to
// each event. It is mutated only from the interpreter goroutine, so it
// carries no locking.
//
// Registration order is significant: handlers fire in the order they were
// added, and adding the same name twice makes it fire twice. Removing a
// name removes every occurrence.
type HandlerRegistry struct {
	handlers map[string][]string
}

// NewHandlerRegistry returns an empty registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string][]string)}
}

// On appends handler to the subscription list for event.
func (r *HandlerRegistry) On(event, handler string) {
	r.handlers[event] = append(r.handlers[event], handler)
}

// Off removes every occurrence of handler from event's list. Unknown
// events and unregistered handlers are no-ops.
func (r *HandlerRegistry) Off(event, handler string) {
	list, ok := r.handlers[event]
	if !ok {
		return
	}
	kept := list[:0]
	for _, name := range list {
		if name != handler {
			kept = append(kept, name)
		}
	}
	if len(kept) == 0 {
		delete(r.handlers, event)
		return
	}
	r.handlers[event] = kept
}

// Handlers returns a copy of the subscription list for event, in
// registration order.
func (r *HandlerRegistry) Handlers(event string) []string {
	list := r.handlers[event]
	if len(list) == 0 {
		return nil
	}
	out := make([]string, len(list))
	copy(out, list)
	return out
}

// Has reports whether at least one handler is subscribed to event.
func (r *HandlerRegistry) Has(event string) bool {
	return len(r.handlers[event]) > 0
}

// ActionRegistry maps action names to the handler function name that
// implements them. Registering a name that already exists replaces the
// previous mapping. Like HandlerRegistry it is confined to the
// interpreter goroutine.
type ActionRegistry struct {
	actions map[string]string
}

// NewActionRegistry returns an empty registry.
func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{actions: make(map[string]string)}
}

// Register binds name to handler, replacing any previous binding.
func (r *ActionRegistry) Register(name, handler string) {
	r.actions[name] = handler
}

// Handler returns the handler bound to name.
func (r *ActionRegistry) Handler(name string) (string, bool) {
	h, ok := r.actions[name]
	return h, ok
}

// Remove deletes the binding for name.
func (r *ActionRegistry) Remove(name string) {
	delete(r.actions, name)
}
