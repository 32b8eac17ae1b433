// Package object holds the domain object model the tasks operate on and the
// persistence collaborators they consume.
package object

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a reference does not resolve to a stored object.
	ErrNotFound = errors.New("object not found")
	// ErrConflict is returned when an object is saved from a stale version.
	ErrConflict = errors.New("object modified concurrently")
)

// Reference identifies a persisted object.
type Reference struct {
	Archetype string `json:"archetype"`
	ID        string `json:"id"`
}

func (r Reference) String() string {
	return r.Archetype + ":" + r.ID
}

// IsZero reports whether the reference is unset.
func (r Reference) IsZero() bool {
	return r.Archetype == "" && r.ID == ""
}

// Object is a domain object described by an archetype and a set of named nodes.
type Object struct {
	ref     Reference
	version uint64
	props   map[string]interface{}
}

// New returns an unsaved object of the given archetype.
func New(archetype string) *Object {
	return &Object{
		ref: Reference{
			Archetype: archetype,
			ID:        uuid.NewString(),
		},
		props: make(map[string]interface{}),
	}
}

func (o *Object) Archetype() string {
	return o.ref.Archetype
}

func (o *Object) Reference() Reference {
	return o.ref
}

// Version is the persisted version the object was loaded at. Zero means the
// object has never been saved.
func (o *Object) Version() uint64 {
	return o.version
}

// SetVersion is called by stores after a successful load or save.
func (o *Object) SetVersion(v uint64) {
	o.version = v
}

func (o *Object) IsNew() bool {
	return o.version == 0
}

func (o *Object) Get(node string) (interface{}, bool) {
	v, ok := o.props[node]
	return v, ok
}

func (o *Object) Set(node string, value interface{}) {
	o.props[node] = value
}

// Apply sets every node in props.
func (o *Object) Apply(props map[string]interface{}) {
	for k, v := range props {
		o.props[k] = v
	}
}

// Bool returns the node as a bool, false when unset or not a bool.
func (o *Object) Bool(node string) bool {
	v, _ := o.props[node].(bool)
	return v
}

// String returns the node as a string, empty when unset or not a string.
func (o *Object) String(node string) string {
	v, _ := o.props[node].(string)
	return v
}

// Nodes returns the node names in sorted order.
func (o *Object) Nodes() []string {
	names := make([]string, 0, len(o.props))
	for k := range o.props {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Clone returns a copy that shares no node map with o.
func (o *Object) Clone() *Object {
	c := &Object{
		ref:     o.ref,
		version: o.version,
		props:   make(map[string]interface{}, len(o.props)),
	}
	for k, v := range o.props {
		c.props[k] = v
	}
	return c
}

// Snapshot is the serialized form used by the store backends.
type Snapshot struct {
	Reference Reference              `json:"reference"`
	Version   uint64                 `json:"version"`
	Props     map[string]interface{} `json:"props"`
}

func (o *Object) Snapshot() Snapshot {
	c := o.Clone()
	return Snapshot{
		Reference: c.ref,
		Version:   c.version,
		Props:     c.props,
	}
}

// FromSnapshot rebuilds an object from its serialized form.
func FromSnapshot(s Snapshot) *Object {
	o := &Object{
		ref:     s.Reference,
		version: s.Version,
		props:   s.Props,
	}
	if o.props == nil {
		o.props = make(map[string]interface{})
	}
	return o
}

// DecodeSnapshot parses a JSON snapshot. Whole numbers come back as int64 and
// the others as float64, so integer nodes survive a round trip.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&s); err != nil {
		return Snapshot{}, err
	}
	for k, v := range s.Props {
		s.Props[k] = normalize(v)
	}
	return s, nil
}

func normalize(v interface{}) interface{} {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]interface{}:
		for k, e := range x {
			x[k] = normalize(e)
		}
		return x
	case []interface{}:
		for i, e := range x {
			x[i] = normalize(e)
		}
		return x
	default:
		return v
	}
}

type (
	// Store persists objects.
	Store interface {
		Get(ctx context.Context, ref Reference) (*Object, error)
		Save(ctx context.Context, obj *Object) error
		Remove(ctx context.Context, obj *Object) error
	}

	// Query finds persisted objects by archetype.
	Query interface {
		Find(ctx context.Context, archetypes ...string) ([]*Object, error)
	}

	// Factory creates new objects of an archetype.
	Factory interface {
		Create(ctx context.Context, archetype string) (*Object, error)
	}
)

// FactoryFunc adapts a function to a Factory.
type FactoryFunc func(ctx context.Context, archetype string) (*Object, error)

func (f FactoryFunc) Create(ctx context.Context, archetype string) (*Object, error) {
	return f(ctx, archetype)
}

// DefaultFactory creates empty objects, seeding each archetype's defaults when
// configured.
type DefaultFactory struct {
	Defaults map[string]map[string]interface{}
}

func (f DefaultFactory) Create(_ context.Context, archetype string) (*Object, error) {
	if archetype == "" {
		return nil, fmt.Errorf("create object: empty archetype")
	}
	o := New(archetype)
	o.Apply(f.Defaults[archetype])
	return o, nil
}
