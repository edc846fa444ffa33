package webclient

import (
	"context"
	"fmt"
	"stlib/internal/assert"
	"stlib/lib/telemetry"
	"sync"
)

const (
	report_registry_new_transport   = "registry.new-transport"
	report_registry_new_session     = "registry.new-session"
	report_registry_destroy_session = "registry.destroy-session"
	report_registry_close           = "registry.close"
)

// Kind describes a type of client that can be stored in a Registry. The
// factory is the only way instances of the kind get built, it receives the
// base Client bound to the session's transport.
//
// The factory runs while the registry is locked, it must not do any I/O
// or call back into the registry.
type Kind[T any] struct {
	name    string
	factory func(base *Client) (T, error)
}

// NewKind declares a client kind, `name` identifies it in the registry and
// must be unique per type.
func NewKind[T any](name string, factory func(base *Client) (T, error)) Kind[T] {
	assert.NotEmptyStr(name, "kind name")
	assert.NotNil(factory, "kind factory")
	return Kind[T]{name: name, factory: factory}
}

func (k Kind[T]) Name() string {
	return k.name
}

// BaseKind is the kind of the bare Client, for callers that only need the
// request helpers.
var BaseKind = NewKind("webclient.Client", func(base *Client) (*Client, error) {
	return base, nil
})

type RegistryOptions struct {
	// TransportDefaults is used for the transports the registry creates
	// implicitly in NewSession.
	TransportDefaults TransportOptions
	Telemetry         telemetry.API
}

// Registry holds the transports and client instances of every session index
// of a process. Every method is safe for concurrent use, check-then-create
// sequences are atomic.
type Registry struct {
	mu         sync.Mutex
	transports map[int]*Transport
	sessions   map[string]map[int]any

	defaults TransportOptions
	tel      telemetry.API
}

func NewRegistry(opts RegistryOptions) *Registry {
	return &Registry{
		transports: map[int]*Transport{},
		sessions:   map[string]map[int]any{},
		defaults:   opts.TransportDefaults,
		tel:        telemetry.NewScopedAPI("webclient", telemetry.OrDefault(opts.Telemetry)),
	}
}

// NewTransport creates the transport of session `index`, it fails with
// ErrDuplicateSession if the index already has one.
func (r *Registry) NewTransport(index int, opts TransportOptions) (*Transport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.newTransportLocked(index, opts)
}

func (r *Registry) newTransportLocked(index int, opts TransportOptions) (*Transport, error) {
	if _, exists := r.transports[index]; exists {
		return nil, fmt.Errorf("%w: transport at index %d", ErrDuplicateSession, index)
	}

	transport, err := newTransport(index, opts, r.tel)
	if err != nil {
		r.tel.ReportBroken(report_registry_new_transport, err, index)
		return nil, err
	}
	r.transports[index] = transport
	r.tel.ReportDebug(report_registry_new_transport, index)
	return transport, nil
}

// Transport returns the transport of session `index`.
func (r *Registry) Transport(index int) (*Transport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	transport, ok := r.transports[index]
	if !ok {
		return nil, fmt.Errorf("%w: transport at index %d", ErrNoSuchSession, index)
	}
	return transport, nil
}

// NewSession creates the instance of `kind` at session `index`. The
// transport of the index is reused, or created with the registry's default
// options if there is none yet. It fails with ErrDuplicateSession if `kind`
// already has an instance at `index`.
func NewSession[T any](r *Registry, kind Kind[T], index int) (T, error) {
	var zero T

	r.mu.Lock()
	defer r.mu.Unlock()

	instances := r.sessions[kind.name]
	if _, exists := instances[index]; exists {
		return zero, fmt.Errorf("%w: %s at index %d", ErrDuplicateSession, kind.name, index)
	}

	transport, reused := r.transports[index]
	if reused {
		r.tel.ReportDebug("reusing transport", kind.name, index)
	} else {
		var err error
		transport, err = r.newTransportLocked(index, r.defaults)
		if err != nil {
			return zero, err
		}
	}

	instance, err := kind.factory(&Client{
		index:     index,
		transport: transport,
		tel:       r.tel,
	})
	if err != nil {
		if !reused {
			transport.Close()
			delete(r.transports, index)
		}
		r.tel.ReportBroken(report_registry_new_session, fmt.Errorf("%s factory: %w", kind.name, err), index)
		return zero, err
	}

	if instances == nil {
		instances = map[int]any{}
		r.sessions[kind.name] = instances
	}
	instances[index] = instance
	r.tel.ReportDebug(report_registry_new_session, kind.name, index)
	return instance, nil
}

// GetSession returns the instance of `kind` at session `index`, it never
// creates one.
func GetSession[T any](r *Registry, kind Kind[T], index int) (T, error) {
	var zero T

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.sessions[kind.name][index]
	if !ok {
		return zero, fmt.Errorf("%w: %s at index %d", ErrNoSuchSession, kind.name, index)
	}
	instance, ok := stored.(T)
	if !ok {
		return zero, fmt.Errorf("webclient: %s at index %d is a %T, kind name reused by another type", kind.name, index, stored)
	}
	return instance, nil
}

// DestroySession removes the instance of `kind` at session `index`, then
// closes and removes the transport of the index. Instances of other kinds
// bound to that transport are removed as well since they could not make
// requests anymore.
//
// It fails with ErrNoSuchSession if there is no such instance, unless
// `suppressMissing` is set.
func DestroySession[T any](r *Registry, kind Kind[T], index int, suppressMissing bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[kind.name][index]; !ok {
		if suppressMissing {
			return nil
		}
		return fmt.Errorf("%w: %s at index %d", ErrNoSuchSession, kind.name, index)
	}
	delete(r.sessions[kind.name], index)

	transport, ok := r.transports[index]
	if ok {
		transport.Close()
		delete(r.transports, index)
	}

	for name, instances := range r.sessions {
		if _, bound := instances[index]; !bound {
			continue
		}
		delete(instances, index)
		r.tel.ReportWarning(
			report_registry_destroy_session,
			fmt.Errorf("evicted %s bound to the destroyed transport", name),
			index,
		)
	}

	r.tel.ReportDebug(report_registry_destroy_session, kind.name, index)
	return nil
}

// Close closes every transport and forgets every instance. The registry
// stays usable, new sessions can be created afterwards.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	closed := len(r.transports)
	for index, transport := range r.transports {
		transport.Close()
		delete(r.transports, index)
	}
	r.sessions = map[string]map[int]any{}
	r.tel.ReportCount(report_registry_close, int64(closed))
}

// CloseOnDone closes the registry once ctx is done. Pair it with a signal
// bound context and a deferred Close so transports are released on every
// exit path.
func (r *Registry) CloseOnDone(ctx context.Context) {
	go func() {
		<-ctx.Done()
		r.Close()
	}()
}

// Len returns the number of live transports.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.transports)
}
