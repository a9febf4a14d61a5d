// Package options implements the functional options pattern shared by the
// configurable constructors of this module.
package options

// OptionConstructor produces the default option values.
type OptionConstructor[T any] func() T

// OptionCallback mutates the options being built.
type OptionCallback[T any] func(*T)

// ApplyOptions builds an options value from the defaults produced by
// constructor and the given callbacks, applied in order. A nil constructor
// starts from the zero value.
func ApplyOptions[T any](constructor OptionConstructor[T], cbs []OptionCallback[T]) T {
	var opts T

	if constructor != nil {
		opts = constructor()
	}

	for _, cb := range cbs {
		cb(&opts)
	}

	return opts
}
