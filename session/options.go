// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package session

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/born-ml/micro/internal/kernels"
)

// Model dimensions and defaults.
const (
	ArenaSize    = 16 * 1024          // default arena capacity in bytes
	FeatureCount = 13                 // input features
	ClassCount   = 3                  // output scores
	MaxKernels   = kernels.MaxKernels // kernel set capacity
)

// Kind is a kernel capability.
type Kind = kernels.Kind

// Kernel capabilities.
const (
	FullyConnected = kernels.FullyConnected
	ReLU           = kernels.ReLU
	Softmax        = kernels.Softmax
	Reshape        = kernels.Reshape
)

// Observer receives session outcomes, typically to export metrics.
type Observer interface {
	ObserveInit(status int)
	ObserveInvoke(status int, d time.Duration)
	SetArenaUsed(n int)
}

// Options configures a Session.
type Options struct {
	// ArenaSize is the arena capacity in bytes. Zero selects ArenaSize.
	ArenaSize int

	// Kernels is the capability set registered at Initialize.
	// Nil selects every kind; at most MaxKernels kinds may be listed.
	Kernels []Kind

	// Logger receives lifecycle logs. Nil disables logging.
	Logger *zerolog.Logger

	// Observer receives outcomes. Nil disables observation.
	Observer Observer
}

// DefaultOptions returns the options used when New is called without any.
func DefaultOptions() Options {
	return Options{
		ArenaSize: ArenaSize,
		Kernels:   kernels.AllKinds(),
	}
}

func (o Options) withDefaults() Options {
	if o.ArenaSize == 0 {
		o.ArenaSize = ArenaSize
	}
	if o.Kernels == nil {
		o.Kernels = kernels.AllKinds()
	}
	return o
}
