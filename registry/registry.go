// Package registry tracks the model backends participating in batch runs:
// one record per model id plus an optionally attached connector instance.
// The collection is bounded by a hard capacity and guarded by a single lock;
// reads return point-in-time snapshots, never live references.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/taskmesh/connector"
)

// ErrModelNotFound is returned when a model id is not registered.
var ErrModelNotFound = errors.New("model not found")

// ErrCapacityReached is returned when registering past the capacity bound.
var ErrCapacityReached = errors.New("registry capacity reached")

// ErrAlreadyRegistered is returned on duplicate model ids.
var ErrAlreadyRegistered = errors.New("model already registered")

// Status enumerates the batch lifecycle of a registered model.
type Status string

const (
	// StatusPending marks a model not yet processed by a batch.
	StatusPending Status = "pending"
	// StatusRunning marks a model whose workflow unit is executing.
	StatusRunning Status = "running"
	// StatusCompleted marks a model whose workflow unit succeeded.
	StatusCompleted Status = "completed"
	// StatusFailed marks a model whose workflow unit failed.
	StatusFailed Status = "failed"
)

// Record describes one registered model backend. Records exported from the
// registry are copies; mutating them never touches live state.
type Record struct {
	ModelID      string         `json:"model_id"`
	Source       string         `json:"source"`
	ModelType    string         `json:"model_type"`
	Capabilities []string       `json:"capabilities"`
	Status       Status         `json:"status"`
	Endpoint     string         `json:"endpoint,omitempty"`
	Metadata     map[string]any `json:"metadata"`
}

func (r Record) clone() Record {
	c := r
	c.Capabilities = append([]string(nil), r.Capabilities...)
	if r.Metadata != nil {
		c.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			c.Metadata[k] = v
		}
	}
	return c
}

// Options configure a registration beyond the required identity fields.
type Options struct {
	Capabilities []string
	Status       Status
	Endpoint     string
	Metadata     map[string]any
	Connector    connector.Connector
}

// Registry is a bounded, thread-safe collection of model records with their
// attached connectors. A connector is owned 1:1 by its record; unregistering
// removes both atomically.
type Registry struct {
	mu         sync.Mutex
	maxModels  int
	records    map[string]Record
	connectors map[string]connector.Connector
}

// New creates a registry bounded to maxModels entries. A non-positive bound
// falls back to the default capacity of 32.
func New(maxModels int) *Registry {
	if maxModels <= 0 {
		maxModels = 32
	}
	return &Registry{
		maxModels:  maxModels,
		records:    make(map[string]Record),
		connectors: make(map[string]connector.Connector),
	}
}

// Register adds a model record, failing on duplicate ids or exhausted
// capacity. The returned record is a copy.
func (r *Registry) Register(modelID, source, modelType string, optFns ...func(o *Options)) (Record, error) {
	opts := Options{Status: StatusPending}
	for _, fn := range optFns {
		fn(&opts)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[modelID]; exists {
		return Record{}, fmt.Errorf("register %q: %w", modelID, ErrAlreadyRegistered)
	}
	if len(r.records) >= r.maxModels {
		return Record{}, fmt.Errorf("register %q: %w", modelID, ErrCapacityReached)
	}

	record := Record{
		ModelID:      modelID,
		Source:       source,
		ModelType:    modelType,
		Capabilities: append([]string(nil), opts.Capabilities...),
		Status:       opts.Status,
		Endpoint:     opts.Endpoint,
		Metadata:     opts.Metadata,
	}
	if record.Metadata == nil {
		record.Metadata = map[string]any{}
	}
	r.records[modelID] = record
	if opts.Connector != nil {
		r.connectors[modelID] = opts.Connector
	}
	return record.clone(), nil
}

// WithCapabilities sets the capability tags of the record.
func WithCapabilities(caps ...string) func(o *Options) {
	return func(o *Options) { o.Capabilities = caps }
}

// WithStatus overrides the initial status (defaults to pending).
func WithStatus(s Status) func(o *Options) {
	return func(o *Options) { o.Status = s }
}

// WithEndpoint sets the backend endpoint.
func WithEndpoint(endpoint string) func(o *Options) {
	return func(o *Options) { o.Endpoint = endpoint }
}

// WithMetadata sets arbitrary metadata on the record.
func WithMetadata(md map[string]any) func(o *Options) {
	return func(o *Options) { o.Metadata = md }
}

// WithConnector attaches the connector instance at registration time.
func WithConnector(c connector.Connector) func(o *Options) {
	return func(o *Options) { o.Connector = c }
}

// Unregister removes the record and its connector together. Removing an
// unknown id is a no-op.
func (r *Registry) Unregister(modelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, modelID)
	delete(r.connectors, modelID)
}

// Get returns a copy of the record, or false when the id is unknown.
func (r *Registry) Get(modelID string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[modelID]
	if !ok {
		return Record{}, false
	}
	return record.clone(), true
}

// List returns a snapshot of all records.
func (r *Registry) List() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, 0, len(r.records))
	for _, record := range r.records {
		out = append(out, record.clone())
	}
	return out
}

// Len returns the number of registered models.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// UpdateStatus transitions the record's batch status, failing on unknown ids.
func (r *Registry) UpdateStatus(modelID string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[modelID]
	if !ok {
		return fmt.Errorf("update status %q: %w", modelID, ErrModelNotFound)
	}
	record.Status = status
	r.records[modelID] = record
	return nil
}

// AttachConnector binds a connector to an existing record, failing on
// unknown ids. An existing connector is replaced.
func (r *Registry) AttachConnector(modelID string, c connector.Connector) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[modelID]; !ok {
		return fmt.Errorf("attach connector %q: %w", modelID, ErrModelNotFound)
	}
	r.connectors[modelID] = c
	return nil
}

// GetConnector returns the connector attached to the record, or nil.
func (r *Registry) GetConnector(modelID string) connector.Connector {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connectors[modelID]
}

// Export returns a defensive snapshot of all records for reporting. The
// result is fully decoupled from live registry state.
func (r *Registry) Export() []Record {
	return r.List()
}
