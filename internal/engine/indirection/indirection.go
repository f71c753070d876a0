// Package indirection resolves bindings that reach their dependency through a
// cross-context placeholder object instead of a direct instance.
package indirection

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
)

// Catalog is the external store of provisioned indirection objects.
type Catalog interface {
	// FindExisting returns the indirection object provisioned for concrete, if any.
	FindExisting(concrete reflect.Type) (any, bool)
	// RequestCreate asks the host to provision an indirection object. Provisioning
	// may need a rebuild of the host before the object becomes available.
	RequestCreate(req ProvisionRequest) error
}

// ProvisionRequest describes an indirection object the host should create.
type ProvisionRequest struct {
	ID        string `json:"id" toml:"id"`
	TypeName  string `json:"type" toml:"type"`
	Interface string `json:"interface,omitempty" toml:"interface,omitempty"`
	ProxyName string `json:"proxy" toml:"proxy"`
}

// Handle is the outcome of an indirection lookup: either a ready instance or a
// pending provisioning request.
type Handle struct {
	Instance any
	Pending  *ProvisionRequest
}

func (h Handle) Ready() bool {
	return h.Instance != nil
}

// ErrNoCatalog is returned when indirection is requested without a catalog.
var ErrNoCatalog = errors.New("no indirection catalog configured")

// Resolver remembers the requests it issued so every missing type is requested
// once per run.
type Resolver struct {
	catalog   Catalog
	requested map[reflect.Type]*ProvisionRequest
	order     []*ProvisionRequest
}

func NewResolver(catalog Catalog) *Resolver {
	return &Resolver{
		catalog:   catalog,
		requested: make(map[reflect.Type]*ProvisionRequest),
	}
}

// Resolve returns the indirection object for concrete. iface, when set, must be
// implemented by an existing object.
func (r *Resolver) Resolve(concrete, iface reflect.Type) (Handle, error) {
	if concrete == nil {
		return Handle{}, errors.New("indirection requires a concrete type")
	}
	if r.catalog == nil {
		return Handle{}, ErrNoCatalog
	}

	if inst, ok := r.catalog.FindExisting(concrete); ok && inst != nil {
		if iface != nil && !reflect.TypeOf(inst).AssignableTo(iface) {
			return Handle{}, fmt.Errorf("indirection object %T does not implement %s", inst, iface)
		}
		return Handle{Instance: inst}, nil
	}

	if req, ok := r.requested[concrete]; ok {
		return Handle{Pending: req}, nil
	}
	req := &ProvisionRequest{
		ID:        uuid.NewString(),
		TypeName:  concrete.String(),
		ProxyName: ProxyName(concrete),
	}
	if iface != nil {
		req.Interface = iface.String()
	}
	if err := r.catalog.RequestCreate(*req); err != nil {
		return Handle{}, fmt.Errorf("request indirection object for %s: %w", concrete, err)
	}
	r.requested[concrete] = req
	r.order = append(r.order, req)
	return Handle{Pending: req}, nil
}

// Requests lists the provisioning requests issued so far, in issue order.
func (r *Resolver) Requests() []ProvisionRequest {
	out := make([]ProvisionRequest, 0, len(r.order))
	for _, req := range r.order {
		out = append(out, *req)
	}
	return out
}

// ProxyName is the conventional name of the indirection object for t.
func ProxyName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if name == "" {
		name = strings.NewReplacer("*", "", ".", "_", " ", "").Replace(t.String())
	}
	return name + "Proxy"
}
