package instance

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/controller"
)

// DataBuilderOption is a functional option for configuring a Data via NewData.
type DataBuilderOption func(*data)

// WithID is an option builder that sets the host's identifier for the instance.
//
// Parameters:
//   - id: the instance id
//
// Returns:
//   - DataBuilderOption: a function that applies the id option to a Data
func WithID(id uint64) DataBuilderOption {
	return func(d *data) {
		d.id = id
	}
}

// WithLibrary is an option builder that sets the clip library controllers resolve requests against.
//
// Parameters:
//   - lib: the clip library
//
// Returns:
//   - DataBuilderOption: a function that applies the library option to a Data
func WithLibrary(lib clip.Library) DataBuilderOption {
	return func(d *data) {
		d.library = lib
	}
}

// WithControllers is an option builder that attaches controllers in order.
//
// Parameters:
//   - controllers: the controllers to attach
//
// Returns:
//   - DataBuilderOption: a function that applies the controllers option to a Data
func WithControllers(controllers ...controller.Controller) DataBuilderOption {
	return func(d *data) {
		for _, c := range controllers {
			d.AddController(c)
		}
	}
}
