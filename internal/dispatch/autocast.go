package dispatch

import (
	"github.com/pkg/errors"

	"github.com/born-ml/fxtrace/internal/catalog"
	"github.com/born-ml/fxtrace/internal/slot"
	"github.com/born-ml/fxtrace/internal/tensor"
)

// Autocast is the mixed precision state of a Context. When enabled,
// matrix products cast their float inputs to DType. Casts of parameters are
// cached while the cache is enabled.
type Autocast struct {
	enabled      bool
	cacheEnabled bool
	dtype        tensor.DataType
	cache        map[slot.ID]*tensor.Tensor
}

// Enabled reports whether autocasting is on.
func (a *Autocast) Enabled() bool {
	return a.enabled
}

// DType returns the cast target.
func (a *Autocast) DType() tensor.DataType {
	return a.dtype
}

// Enable turns autocasting to dtype on until the returned func is called.
// Leaving the region clears the cache.
func (a *Autocast) Enable(dtype tensor.DataType) (restore func()) {
	prevEnabled, prevDType := a.enabled, a.dtype
	a.enabled, a.dtype = true, dtype
	return func() {
		a.enabled, a.dtype = prevEnabled, prevDType
		a.cache = nil
	}
}

// CacheEnabled reports whether parameter casts are cached.
func (a *Autocast) CacheEnabled() bool {
	return a.cacheEnabled
}

// SetCacheEnabled sets the cache flag until the returned func is called.
func (a *Autocast) SetCacheEnabled(b bool) (restore func()) {
	prev := a.cacheEnabled
	a.cacheEnabled = b
	return func() { a.cacheEnabled = prev }
}

// DisableCache is SetCacheEnabled(false).
func (a *Autocast) DisableCache() (restore func()) {
	return a.SetCacheEnabled(false)
}

// Cast returns t converted to the autocast dtype. Non float tensors and
// tensors already of the right type are returned unchanged.
func (a *Autocast) Cast(c *Context, t *tensor.Tensor) (*tensor.Tensor, error) {
	if !a.enabled || !t.DType().IsFloat() || t.DType() == a.dtype {
		return t, nil
	}

	cacheable := a.cacheEnabled && t.IsParameter()
	if cacheable {
		if cached, ok := a.cache[t.SlotID()]; ok {
			return cached, nil
		}
	}

	out, err := c.Call(catalog.To, []any{t, a.dtype}, nil)
	if err != nil {
		return nil, err
	}
	cast, ok := out.(*tensor.Tensor)
	if !ok {
		return nil, errors.Errorf("autocast: %s returned %T", catalog.To, out)
	}
	if cacheable {
		if a.cache == nil {
			a.cache = make(map[slot.ID]*tensor.Tensor)
		}
		a.cache[t.SlotID()] = cast
	}
	return cast, nil
}
