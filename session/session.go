// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/born-ml/micro/internal/arena"
	"github.com/born-ml/micro/internal/interpreter"
	"github.com/born-ml/micro/internal/kernels"
	"github.com/born-ml/micro/internal/onnx"
	"github.com/born-ml/micro/internal/tensor"
)

// Features is one input vector of normalized measurements.
type Features [FeatureCount]float32

// Scores is one output vector of class probabilities.
type Scores [ClassCount]float32

// ArgMax returns the index of the highest score.
func (s Scores) ArgMax() int {
	best := 0
	for i := 1; i < len(s); i++ {
		if s[i] > s[best] {
			best = i
		}
	}
	return best
}

// invoker runs a bound graph over its input and output tensors.
type invoker interface {
	Invoke() error
}

// Session is the bound runtime state of one model, one kernel set and one
// arena.
type Session struct {
	model       []byte
	fingerprint uint64
	opts        Options
	logger      zerolog.Logger
	arena       *arena.Arena

	interp invoker
	input  *tensor.Tensor
	output *tensor.Tensor
	ready  bool
	closed bool
}

// New creates a session over serialized model bytes. The bytes are not
// copied and must stay unchanged for the life of the session.
// Only the first Options value is used.
func New(model []byte, opts ...Options) *Session {
	opt := DefaultOptions()
	if len(opts) > 0 {
		opt = opts[0].withDefaults()
	}
	logger := zerolog.Nop()
	if opt.Logger != nil {
		logger = *opt.Logger
	}
	return &Session{
		model:       model,
		fingerprint: onnx.Fingerprint(model),
		opts:        opt,
		logger:      logger.With().Str("component", "session").Logger(),
		arena:       arena.New(opt.ArenaSize),
	}
}

// Initialize decodes the model, validates it against the kernel set, binds
// the interpreter and plans every tensor in the arena.
//
// It succeeds at most once: a second call returns ErrAlreadyInitialized and
// leaves the session usable. After a failure the session stays not ready and
// Initialize may be called again.
func (s *Session) Initialize() error {
	err := s.initialize()
	if s.opts.Observer != nil {
		s.opts.Observer.ObserveInit(StatusCode(err))
	}
	return err
}

func (s *Session) initialize() error {
	if s.closed {
		return ErrClosed
	}
	if s.ready {
		return ErrAlreadyInitialized
	}

	if err := s.bind(); err != nil {
		s.teardown()
		s.logger.Error().Err(err).Int("status", StatusCode(err)).Msg("initialize failed")
		return err
	}

	s.ready = true
	if s.opts.Observer != nil {
		s.opts.Observer.SetArenaUsed(s.ArenaUsed())
	}
	s.logger.Info().
		Ints("input_dims", s.input.Shape()).
		Ints("output_dims", s.output.Shape()).
		Int("arena_used", s.ArenaUsed()).
		Int("arena_size", s.arena.Capacity()).
		Str("fingerprint", fmt.Sprintf("%016x", s.fingerprint)).
		Msg("session initialized")
	return nil
}

// bind performs the initialization steps in order.
func (s *Session) bind() error {
	proto, err := onnx.Parse(s.model)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrModelLoad, err)
	}
	if proto.Graph == nil {
		return fmt.Errorf("%w: model has no graph", ErrModelLoad)
	}

	resolver := kernels.NewResolver(kernels.MaxKernels)
	if err := resolver.AddAll(s.opts.Kernels...); err != nil {
		return fmt.Errorf("%w: %w", ErrModelLoad, err)
	}
	if missing := resolver.Missing(proto.Graph.OpTypes()); len(missing) > 0 {
		return &UnsupportedOperationError{OpTypes: missing}
	}

	interp, err := interpreter.New(proto, resolver, s.arena)
	if err != nil {
		var mk *interpreter.MissingKernelsError
		switch {
		case errors.As(err, &mk):
			return &UnsupportedOperationError{OpTypes: mk.OpTypes}
		case errors.Is(err, interpreter.ErrNoInputs), errors.Is(err, interpreter.ErrNoOutputs):
			return fmt.Errorf("%w: %w", ErrTensorResolution, err)
		}
		return fmt.Errorf("%w: %w", ErrModelLoad, err)
	}

	if err := interp.AllocateTensors(); err != nil {
		return fmt.Errorf("%w: %w", ErrTensorAllocation, err)
	}

	input, output := interp.Input(0), interp.Output(0)
	if input == nil || output == nil {
		return fmt.Errorf("%w: input or output tensor missing", ErrTensorResolution)
	}

	s.interp, s.input, s.output = interp, input, output
	return nil
}

// Ready reports whether Initialize has succeeded.
func (s *Session) Ready() bool {
	return s.ready
}

// Infer runs one forward pass. On failure the returned scores are zero.
func (s *Session) Infer(in Features) (Scores, error) {
	var out Scores
	if err := s.InferInto(&in, &out); err != nil {
		return Scores{}, err
	}
	return out, nil
}

// InferInto runs one forward pass, writing out only on success.
func (s *Session) InferInto(in *Features, out *Scores) error {
	if in == nil || out == nil {
		return s.observe(fmt.Errorf("%w: nil buffer", ErrInvalidInputSize), time.Now())
	}
	return s.Run(in[:], out[:])
}

// Run is InferInto over slices. in must hold FeatureCount values and out
// ClassCount values; out is written only on success.
func (s *Session) Run(in, out []float32) error {
	start := time.Now()
	return s.observe(s.run(in, out), start)
}

func (s *Session) run(in, out []float32) error {
	if s.closed {
		return ErrClosed
	}
	if !s.ready {
		return ErrNotInitialized
	}
	if len(in) != FeatureCount || len(out) != ClassCount {
		return fmt.Errorf("%w: got %d features and %d scores, want %d and %d",
			ErrInvalidInputSize, len(in), len(out), FeatureCount, ClassCount)
	}
	if n := s.input.NumElements(); n != len(in) {
		return fmt.Errorf("%w: model input holds %d values, want %d", ErrInvalidInputSize, n, len(in))
	}
	if n := s.output.NumElements(); n < len(out) {
		return fmt.Errorf("%w: model output holds %d values, want at least %d", ErrInvalidInputSize, n, len(out))
	}

	copy(s.input.AsFloat32(), in)
	if err := s.interp.Invoke(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvocation, err)
	}
	copy(out, s.output.AsFloat32()[:len(out)])
	return nil
}

func (s *Session) observe(err error, start time.Time) error {
	if s.opts.Observer != nil {
		s.opts.Observer.ObserveInvoke(StatusCode(err), time.Since(start))
	}
	if err != nil {
		s.logger.Debug().Err(err).Msg("inference failed")
	}
	return err
}

// InputShape returns the input tensor shape, or nil before Initialize.
func (s *Session) InputShape() []int {
	if !s.ready {
		return nil
	}
	return s.input.Shape().Clone()
}

// OutputShape returns the output tensor shape, or nil before Initialize.
func (s *Session) OutputShape() []int {
	if !s.ready {
		return nil
	}
	return s.output.Shape().Clone()
}

// ArenaUsed returns the arena bytes committed by Initialize.
func (s *Session) ArenaUsed() int {
	return s.arena.Used()
}

// ArenaSize returns the arena capacity in bytes.
func (s *Session) ArenaSize() int {
	return s.arena.Capacity()
}

// Fingerprint returns the xxhash64 digest of the model bytes.
func (s *Session) Fingerprint() uint64 {
	return s.fingerprint
}

// Kernels returns the configured kernel set.
func (s *Session) Kernels() []Kind {
	return append([]Kind(nil), s.opts.Kernels...)
}

// Reset releases the interpreter and returns the session to not ready so
// Initialize may run again.
func (s *Session) Reset() error {
	if s.closed {
		return ErrClosed
	}
	s.teardown()
	return nil
}

// Close releases the session. Later calls other than Close return ErrClosed.
func (s *Session) Close() error {
	if !s.closed {
		s.teardown()
		s.closed = true
	}
	return nil
}

func (s *Session) teardown() {
	s.interp, s.input, s.output = nil, nil, nil
	s.ready = false
	s.arena.Reset()
}
