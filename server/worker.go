package server

import (
	"errors"
	"fmt"

	"github.com/chazu/swiftast/pkg/ast"
	"github.com/chazu/swiftast/policy"
)

var errWorkerStopped = errors.New("policy worker stopped")

// checkRequest is one file to evaluate on the policy goroutine.
type checkRequest struct {
	file *ast.File
	done chan checkResult
}

type checkResult struct {
	violations []policy.Violation
	err        error
}

// PolicyWorker serializes policy evaluation through a single goroutine.
// A compiled policy holds a CUE context that must not be shared between
// concurrent handlers.
type PolicyWorker struct {
	policy   *policy.Policy
	requests chan checkRequest
	quit     chan struct{}
}

// NewPolicyWorker creates a PolicyWorker and starts the processing goroutine.
func NewPolicyWorker(p *policy.Policy) *PolicyWorker {
	w := &PolicyWorker{
		policy:   p,
		requests: make(chan checkRequest, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *PolicyWorker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.file)
		case <-w.quit:
			return
		}
	}
}

// execute checks a file, recovering from panics in the evaluator.
func (w *PolicyWorker) execute(f *ast.File) (result checkResult) {
	defer func() {
		if r := recover(); r != nil {
			result.err = fmt.Errorf("policy evaluation panicked: %v", r)
		}
	}()
	result.violations = w.policy.Check(f)
	return result
}

// Check submits f and blocks until it has been evaluated.
func (w *PolicyWorker) Check(f *ast.File) ([]policy.Violation, error) {
	req := checkRequest{
		file: f,
		done: make(chan checkResult, 1),
	}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, errWorkerStopped
	}
	select {
	case result := <-req.done:
		return result.violations, result.err
	case <-w.quit:
		return nil, errWorkerStopped
	}
}

// Stop shuts down the worker goroutine.
func (w *PolicyWorker) Stop() {
	close(w.quit)
}
