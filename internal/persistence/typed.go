package persistence

import (
	"github.com/MoonWalka/app-booking-2-sub010/internal/codec"
	"github.com/MoonWalka/app-booking-2-sub010/model"
)

// Getter is implemented by Service and Namespace.
type Getter interface {
	Get(key string, strategy model.Strategy) (any, bool)
}

// GetAs reads key and converts it to T. The result is the same whichever tier
// served the read: values read back from a durable tier come back as generic
// JSON (maps, json.Number...) and are decoded into T. A value that cannot be
// converted is reported absent.
func GetAs[T any](g Getter, key string, strategy model.Strategy) (T, bool) {
	var zero T
	v, ok := g.Get(key, strategy)
	if !ok {
		return zero, false
	}
	out, err := codec.As[T](v)
	if err != nil {
		return zero, false
	}
	return out, true
}
