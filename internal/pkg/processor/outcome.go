package processor

import "fmt"

type Stage string

const (
	StageDecode    Stage = "decode"
	StageTransform Stage = "transform"
	StageEncode    Stage = "encode"
)

// Degradation records why a stage gave up. It is reported to operators, not callers.
type Degradation struct {
	Stage Stage
	Err   error
}

func (d *Degradation) Error() string {
	return fmt.Sprintf("%s: %v", d.Stage, d.Err)
}

func (d *Degradation) Unwrap() error {
	return d.Err
}

// Outcome is either Ok(value) or Degraded(reason).
type Outcome[T any] struct {
	value  T
	reason *Degradation
}

func Ok[T any](value T) Outcome[T] {
	return Outcome[T]{value: value}
}

func Degraded[T any](stage Stage, err error) Outcome[T] {
	return Outcome[T]{reason: &Degradation{Stage: stage, Err: err}}
}

func (o Outcome[T]) Value() (T, bool) {
	return o.value, o.reason == nil
}

func (o Outcome[T]) Reason() *Degradation {
	return o.reason
}

func (o Outcome[T]) IsDegraded() bool {
	return o.reason != nil
}

// Then runs next only on Ok; a Degraded outcome short-circuits with its reason.
func Then[T, U any](o Outcome[T], next func(T) Outcome[U]) Outcome[U] {
	if o.reason != nil {
		return Outcome[U]{reason: o.reason}
	}
	return next(o.value)
}
