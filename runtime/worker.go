package runtime

import (
	"context"
	"reflect"
)

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

// WorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes, avoiding the need for
// manual naming in the Worker interface.
func WorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
