package querycache

import (
	"context"
	"slices"

	"github.com/backoffice/prdesk/internal/domain/pricing"
)

// Effect is the optimistic change a command makes to one key. Forward
// receives the current value (nil when nothing is cached) and returns the new
// one, or false to leave the key alone. Forward must not modify current in
// place; the coordinator keeps it as the rollback snapshot.
type Effect struct {
	Key     Key
	Forward func(current any) (any, bool)
}

// Command is a server mutation with optimistic effects
type Command interface {
	Name() string
	Effects() []Effect
	Execute(ctx context.Context) error
}

// Invalidator is implemented by commands that make keys stale beyond their
// own effects, such as another role's list
type Invalidator interface {
	Invalidates() []Key
}

// Func is a Command assembled from parts
type Func struct {
	name        string
	exec        func(ctx context.Context) error
	effects     []Effect
	invalidates []Key
}

// NewCommand creates a command that runs exec with the given effects
func NewCommand(name string, exec func(ctx context.Context) error, effects ...Effect) *Func {
	return &Func{name: name, exec: exec, effects: effects}
}

// Also adds keys to refresh after the command settles
func (f *Func) Also(keys ...Key) *Func {
	f.invalidates = append(f.invalidates, keys...)
	return f
}

func (f *Func) Name() string                      { return f.name }
func (f *Func) Effects() []Effect                 { return f.effects }
func (f *Func) Invalidates() []Key                { return f.invalidates }
func (f *Func) Execute(ctx context.Context) error { return f.exec(ctx) }

// UpdateInList applies fn to a copy of the request with the given id in a
// cached list. Nothing happens when the list is not cached, the id is absent
// or fn returns an error.
func UpdateInList(key Key, id string, fn func(*pricing.PricingRequest) error) Effect {
	return Effect{Key: key, Forward: func(current any) (any, bool) {
		list, ok := current.([]*pricing.PricingRequest)
		if !ok {
			return nil, false
		}
		i := slices.IndexFunc(list, func(pr *pricing.PricingRequest) bool { return pr.ID == id })
		if i < 0 {
			return nil, false
		}
		updated := list[i].Clone()
		if err := fn(updated); err != nil {
			return nil, false
		}
		out := slices.Clone(list)
		out[i] = updated
		return out, true
	}}
}

// RemoveFromList drops the request with the given id from a cached list
func RemoveFromList(key Key, id string) Effect {
	return Effect{Key: key, Forward: func(current any) (any, bool) {
		list, ok := current.([]*pricing.PricingRequest)
		if !ok {
			return nil, false
		}
		out := slices.DeleteFunc(slices.Clone(list), func(pr *pricing.PricingRequest) bool { return pr.ID == id })
		if len(out) == len(list) {
			return nil, false
		}
		return out, true
	}}
}

// PrependToList puts pr at the head of a cached list
func PrependToList(key Key, pr *pricing.PricingRequest) Effect {
	return Effect{Key: key, Forward: func(current any) (any, bool) {
		list, ok := current.([]*pricing.PricingRequest)
		if !ok || pr == nil {
			return nil, false
		}
		out := make([]*pricing.PricingRequest, 0, len(list)+1)
		out = append(out, pr.Clone())
		for _, existing := range list {
			if existing.ID != pr.ID {
				out = append(out, existing)
			}
		}
		return out, true
	}}
}

// UpdateDetails applies fn to a copy of a cached request
func UpdateDetails(key Key, fn func(*pricing.PricingRequest) error) Effect {
	return Effect{Key: key, Forward: func(current any) (any, bool) {
		pr, ok := current.(*pricing.PricingRequest)
		if !ok || pr == nil {
			return nil, false
		}
		updated := pr.Clone()
		if err := fn(updated); err != nil {
			return nil, false
		}
		return updated, true
	}}
}
