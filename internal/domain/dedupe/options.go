package dedupe

import "github.com/okian/quizboard/internal/domain/names"

// Option applies a configuration option to the Detector.
type Option func(*Detector)

// WithHighThreshold sets the slug similarity at or above which a pair becomes an edge.
// Values outside [0,1] are ignored.
func WithHighThreshold(v float64) Option {
	return func(d *Detector) {
		if v >= 0 && v <= 1 {
			d.high = v
		}
	}
}

// WithAdvisoryThreshold sets the slug similarity at or above which a pair is listed as a
// possible duplicate. Values outside [0,1] are ignored.
func WithAdvisoryThreshold(v float64) Option {
	return func(d *Detector) {
		if v >= 0 && v <= 1 {
			d.advisory = v
		}
	}
}

// WithFirstNameThreshold sets the first-name similarity tolerated as a typo.
func WithFirstNameThreshold(v float64) Option {
	return func(d *Detector) {
		if v >= 0 && v <= 1 {
			d.firstName = v
		}
	}
}

// WithMinFirstNameLength sets how long both first names must be before typo tolerance applies.
func WithMinFirstNameLength(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.minFirstName = n
		}
	}
}

// WithMinLastNameLength sets the minimum length of the full last name facing an initial.
func WithMinLastNameLength(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.minLastName = n
		}
	}
}

// WithNormalizer sets the normalizer used to tokenize display names.
func WithNormalizer(n *names.Normalizer) Option {
	return func(d *Detector) {
		if n != nil {
			d.normalizer = n
		}
	}
}
