package catalog

import (
	"fmt"
	"sort"
)

// Registry is an immutable, lookup-friendly view of a parsed catalog.
type Registry struct {
	models map[string][]Asset
	order  []string
	def    Asset
}

func newRegistry() *Registry {
	return &Registry{models: make(map[string][]Asset)}
}

func (r *Registry) add(a Asset) {
	if _, ok := r.models[a.Model]; !ok {
		r.order = append(r.order, a.Model)
	}
	r.models[a.Model] = append(r.models[a.Model], a)
}

// Get returns the asset for model and variant.
func (r *Registry) Get(model, variant string) (Asset, error) {
	assets, ok := r.models[model]
	if !ok {
		return Asset{}, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	for _, a := range assets {
		if a.Variant == variant {
			return a, nil
		}
	}
	return Asset{}, fmt.Errorf("%w: %s/%s", ErrUnknownVariant, model, variant)
}

// Resolve returns the asset for a selection. An empty variant picks the model's
// first variant.
func (r *Registry) Resolve(sel Selection) (Asset, error) {
	if sel.Variant == "" {
		assets, ok := r.models[sel.Model]
		if !ok {
			return Asset{}, fmt.Errorf("%w: %s", ErrUnknownModel, sel.Model)
		}
		return assets[0], nil
	}
	return r.Get(sel.Model, sel.Variant)
}

// Default returns the asset shown before the user picks one.
func (r *Registry) Default() Asset {
	return r.def
}

// Models returns the model names, sorted alphabetically.
func (r *Registry) Models() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}

// Variants returns the assets of one model in catalog order.
func (r *Registry) Variants(model string) ([]Asset, error) {
	assets, ok := r.models[model]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	out := make([]Asset, len(assets))
	copy(out, assets)
	return out, nil
}

// Count returns the number of assets.
func (r *Registry) Count() int {
	n := 0
	for _, assets := range r.models {
		n += len(assets)
	}
	return n
}
