package controller

import (
	"log"

	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/easing"
)

// ControllerBuilderOption is a functional option for configuring a Controller via NewController.
type ControllerBuilderOption func(*controller)

// WithName is an option builder that sets the controller name.
//
// Parameters:
//   - name: the controller name, unique within an instance
//
// Returns:
//   - ControllerBuilderOption: a function that applies the name option to a controller
func WithName(name string) ControllerBuilderOption {
	return func(c *controller) {
		if name != "" {
			c.name = name
		}
	}
}

// WithTransitionLength is an option builder that sets how many ticks the controller spends
// blending into each new clip. Zero makes transitions instantaneous.
//
// Parameters:
//   - ticks: the transition length in ticks
//
// Returns:
//   - ControllerBuilderOption: a function that applies the transition option to a controller
func WithTransitionLength(ticks float64) ControllerBuilderOption {
	return func(c *controller) {
		c.transitionLength = max(ticks, 0)
	}
}

// WithSpeed is an option builder that sets a constant playback speed multiplier.
//
// Parameters:
//   - speed: the speed multiplier
//
// Returns:
//   - ControllerBuilderOption: a function that applies the speed option to a controller
func WithSpeed(speed float64) ControllerBuilderOption {
	return func(c *controller) {
		c.speed = func() float64 { return speed }
	}
}

// WithSpeedFunc is an option builder that sets a playback speed multiplier evaluated every tick.
//
// Parameters:
//   - fn: the speed function
//
// Returns:
//   - ControllerBuilderOption: a function that applies the speed option to a controller
func WithSpeedFunc(fn func() float64) ControllerBuilderOption {
	return func(c *controller) {
		if fn != nil {
			c.speed = fn
		}
	}
}

// WithEasing is an option builder that sets the controller's easing, which takes precedence over
// keyframe easings except on keyframes flagged NoEasingOverride.
//
// Parameters:
//   - fn: the easing function
//
// Returns:
//   - ControllerBuilderOption: a function that applies the easing option to a controller
func WithEasing(fn easing.Func) ControllerBuilderOption {
	return func(c *controller) {
		c.easing = fn
	}
}

// WithLibrary is an option builder that sets the clip library requests are resolved against.
//
// Parameters:
//   - lib: the clip library
//
// Returns:
//   - ControllerBuilderOption: a function that applies the library option to a controller
func WithLibrary(lib clip.Library) ControllerBuilderOption {
	return func(c *controller) {
		c.library = lib
	}
}

// WithLogger is an option builder that sets the logger used for rejected requests.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - ControllerBuilderOption: a function that applies the logger option to a controller
func WithLogger(logger *log.Logger) ControllerBuilderOption {
	return func(c *controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSoundHandler is an option builder that sets the receiver for sound markers.
func WithSoundHandler(h SoundHandler) ControllerBuilderOption {
	return func(c *controller) {
		c.soundHandler = h
	}
}

// WithParticleHandler is an option builder that sets the receiver for particle markers.
func WithParticleHandler(h ParticleHandler) ControllerBuilderOption {
	return func(c *controller) {
		c.particleHandler = h
	}
}

// WithCustomHandler is an option builder that sets the receiver for custom instruction markers.
func WithCustomHandler(h CustomHandler) ControllerBuilderOption {
	return func(c *controller) {
		c.customHandler = h
	}
}
