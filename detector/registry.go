package detector

import (
	"context"
	"sort"
	"sync"
)

// Probe decides whether a single blob of a leaf format is password
// protected. Probes must not retain data after returning.
type Probe interface {
	Probe(ctx context.Context, data []byte) (bool, error)
}

// ProbeFunc adapts an ordinary function to the Probe interface.
type ProbeFunc func(ctx context.Context, data []byte) (bool, error)

// Probe calls f(ctx, data).
func (f ProbeFunc) Probe(ctx context.Context, data []byte) (bool, error) {
	return f(ctx, data)
}

// Container enumerates the children of a blob of a container format.
// Children are returned in the container's natural order.
type Container interface {
	Children(ctx context.Context, data []byte, limits Limits) ([]Child, error)
}

// Child is one entry of a container.
type Child struct {
	// Name is the entry name, attachment file name or synthesized message
	// name. It may be empty, in which case the child is identified by content.
	Name string

	// Encrypted reports that the container itself marks this entry as
	// encrypted (the zip traditional encryption bit). Such a child is never
	// opened.
	Encrypted bool

	// Open materializes the child's bytes. A nil slice with a nil error
	// means the child has no body and is skipped.
	Open func() ([]byte, error)
}

// handler holds exactly one of probe or container.
type handler struct {
	probe     Probe
	container Container
}

// Registry maps format tags to the probe or container that handles them.
// Registration is not safe for concurrent use; lookups are.
type Registry struct {
	handlers map[Tag]handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[Tag]handler),
	}
}

// DefaultRegistry returns a registry with all built-in probes and
// containers registered.
func DefaultRegistry() *Registry {
	registry := NewRegistry()

	// Legacy Office (and encrypted OOXML)
	registry.RegisterProbe(Word, DefaultWordProbe())
	registry.RegisterProbe(Excel, DefaultExcelProbe())
	registry.RegisterProbe(PowerPoint, DefaultPowerPointProbe())

	registry.RegisterProbe(OpenDocument, DefaultODFProbe())
	registry.RegisterProbe(PDF, DefaultPDFProbe())

	// Containers
	registry.RegisterContainer(Zip, DefaultZipContainer())
	registry.RegisterContainer(Msg, DefaultMsgContainer())
	registry.RegisterContainer(Eml, DefaultEmlContainer())
	registry.RegisterContainer(Mbox, DefaultMboxContainer())

	return registry
}

// Shared default registry, created on first use.
var (
	globalRegistry     *Registry
	globalRegistryOnce sync.Once
)

// GetDefaultRegistry returns the shared default registry, creating it on
// first use. It is safe for concurrent use.
func GetDefaultRegistry() *Registry {
	globalRegistryOnce.Do(func() {
		globalRegistry = DefaultRegistry()
	})
	return globalRegistry
}

// RegisterProbe registers a probe for a tag, replacing any previous handler.
func (r *Registry) RegisterProbe(tag Tag, probe Probe) {
	if tag == Unknown {
		return
	}
	r.handlers[tag] = handler{probe: probe}
}

// RegisterContainer registers a container for a tag, replacing any previous handler.
func (r *Registry) RegisterContainer(tag Tag, container Container) {
	if tag == Unknown {
		return
	}
	r.handlers[tag] = handler{container: container}
}

// Lookup returns the handler for a tag. At most one of the results is non-nil.
func (r *Registry) Lookup(tag Tag) (Probe, Container) {
	h := r.handlers[tag]
	return h.probe, h.container
}

// Has returns true if a handler is registered for the given tag.
func (r *Registry) Has(tag Tag) bool {
	_, ok := r.handlers[tag]
	return ok
}

// Unregister removes the handler for a tag. Blobs of that format are then
// reported as not protected.
func (r *Registry) Unregister(tag Tag) {
	delete(r.handlers, tag)
}

// Count returns the number of registered handlers.
func (r *Registry) Count() int {
	return len(r.handlers)
}

// Tags returns all tags that have handlers registered, in tag order.
func (r *Registry) Tags() []Tag {
	tags := make([]Tag, 0, len(r.handlers))
	for tag := range r.handlers {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// Clone creates a copy of the registry.
func (r *Registry) Clone() *Registry {
	clone := NewRegistry()
	for tag, h := range r.handlers {
		clone.handlers[tag] = h
	}
	return clone
}
