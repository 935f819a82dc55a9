package result

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
)

// Result is the envelope every service operation returns instead of an error.
// A zero Result is a failure without an error and should not be used directly.
type Result[T any] struct {
	ok   bool
	data T
	err  error
}

func Ok[T any](data T) Result[T] {
	return Result[T]{ok: true, data: data}
}

func Fail[T any](err error) Result[T] {
	if err == nil {
		err = errors.New("unknown error")
	}
	return Result[T]{err: err}
}

func (r Result[T]) Success() bool {
	return r.ok
}

func (r Result[T]) Data() T {
	return r.data
}

func (r Result[T]) Err() error {
	return r.err
}

// Unwrap returns the data and the error as a regular Go pair.
func (r Result[T]) Unwrap() (T, error) {
	if !r.ok {
		var zero T
		return zero, r.err
	}
	return r.data, nil
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    *T     `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (r Result[T]) MarshalJSON() ([]byte, error) {
	env := envelope[T]{Success: r.ok}
	if r.ok {
		data := r.data
		env.Data = &data
	} else if r.err != nil {
		env.Error = r.err.Error()
	}
	return json.Marshal(env)
}

func (r *Result[T]) UnmarshalJSON(b []byte) error {
	var env envelope[T]
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	r.ok = env.Success
	if env.Data != nil {
		r.data = *env.Data
	}
	if !env.Success {
		r.err = errors.New(env.Error)
	}
	return nil
}

// Recover turns a panic in the calling operation into a failed result.
// Must be deferred directly: defer result.Recover(&res, "sign in").
func Recover[T any](res *Result[T], op string) {
	if r := recover(); r != nil {
		log.Errorf("%s: panic: %v\n%s", op, r, debug.Stack())
		*res = Fail[T](fmt.Errorf("%s: %v", op, r))
	}
}
