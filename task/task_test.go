package task_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/faizol/uringcoro/task"
)

func TestTask_ResultAfterResolve(t *testing.T) {
	tsk, resolve := task.New[int]()
	if tsk.Done() {
		t.Fatal("expected unresolved task to report not done")
	}

	resolve(5, nil)

	v, err := tsk.Result()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 5 {
		t.Fatalf("got %d, want 5", v)
	}
	if !tsk.Done() {
		t.Fatal("expected resolved task to report done")
	}
}

func TestTask_ResolveOnceWins(t *testing.T) {
	tsk, resolve := task.New[int]()
	resolve(1, nil)
	resolve(2, errors.New("late"))

	v, err := tsk.Result()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 1 {
		t.Fatalf("got %d, want 1 (first resolve should win)", v)
	}
}

func TestTask_MustResultPanicsOnError(t *testing.T) {
	tsk, resolve := task.New[int]()
	resolve(0, errors.New("boom"))

	defer func() {
		if recover() == nil {
			t.Fatal("expected MustResult to panic on error")
		}
	}()
	tsk.MustResult()
}

func TestTask_AwaitContextDeadline(t *testing.T) {
	tsk, _ := task.New[int]()

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	_, err := tsk.Await(ctx)
	if err != context.DeadlineExceeded {
		t.Fatalf("got %v, want context.DeadlineExceeded", err)
	}
}

func TestTask_AwaitReturnsBeforeDeadline(t *testing.T) {
	tsk, resolve := task.New[string]()
	go func() {
		time.Sleep(time.Millisecond)
		resolve("ok", nil)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	v, err := tsk.Await(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "ok" {
		t.Fatalf("got %q, want %q", v, "ok")
	}
}

func TestTask_FromSource(t *testing.T) {
	done := make(chan struct{})
	tsk := task.FromSource(done, func() (int, error) { return 9, nil })

	if tsk.Done() {
		t.Fatal("expected task backed by an open channel to report not done")
	}
	close(done)
	if !tsk.Done() {
		t.Fatal("expected task to report done once its source channel closes")
	}
	v, err := tsk.Result()
	if err != nil || v != 9 {
		t.Fatalf("got (%d, %v), want (9, nil)", v, err)
	}
}
