package processor

import (
	"log"

	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
)

// ProcessorBuilderOption is a functional option for configuring a Processor via NewProcessor.
type ProcessorBuilderOption func(*processor)

// WithLibrary is an option builder that sets the clip library controllers resolve requests against.
//
// Parameters:
//   - lib: the clip library
//
// Returns:
//   - ProcessorBuilderOption: a function that applies the library option to a processor
func WithLibrary(lib clip.Library) ProcessorBuilderOption {
	return func(p *processor) {
		p.library.Store(&libraryRef{lib: lib})
	}
}

// WithResetDuration is an option builder that sets how many ticks an abandoned channel takes to
// relax back to rest. Non-positive values snap abandoned channels to rest immediately.
//
// Parameters:
//   - ticks: the reset duration in ticks
//
// Returns:
//   - ProcessorBuilderOption: a function that applies the reset duration option to a processor
func WithResetDuration(ticks float64) ProcessorBuilderOption {
	return func(p *processor) {
		p.resetDuration = ticks
	}
}

// WithCrashOnMissingBone is an option builder that makes clip tracks for bones the model lacks
// abort the tick instead of being skipped.
//
// Parameters:
//   - crash: true to abort on missing bones
//
// Returns:
//   - ProcessorBuilderOption: a function that applies the option to a processor
func WithCrashOnMissingBone(crash bool) ProcessorBuilderOption {
	return func(p *processor) {
		p.crash = crash
	}
}

// WithLogger is an option builder that sets the logger used for reload notices.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - ProcessorBuilderOption: a function that applies the logger option to a processor
func WithLogger(logger *log.Logger) ProcessorBuilderOption {
	return func(p *processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}
