//
// Copyright (C) 2026 The promptcheck Authors. All rights reserved.
//
// promptcheck is licensed under the Apache License Version 2.0.
//
//

package rubric

// DefaultThreshold is the pass/fail score threshold used when no
// WithThreshold option is supplied.
const DefaultThreshold = 70

type options struct {
	threshold int
	baseline  *string
}

func newOptions(opt ...Option) *options {
	opts := &options{threshold: DefaultThreshold}
	for _, o := range opt {
		o(opts)
	}
	return opts
}

// Option configures a single Evaluate call.
type Option func(*options)

// WithThreshold overrides the pass/fail threshold. Values outside [0, 100]
// are ignored.
func WithThreshold(threshold int) Option {
	return func(o *options) {
		if threshold >= 0 && threshold <= 100 {
			o.threshold = threshold
		}
	}
}

// WithBaseline supplies a baseline text; Evaluate then attaches a drift
// analysis comparing content against it.
func WithBaseline(baseline string) Option {
	return func(o *options) {
		o.baseline = &baseline
	}
}
