// Package orchestrator serializes bucket install requests into a FIFO queue,
// coalesces duplicate requests, and drives the package backend one bucket at
// a time.
package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/glorpus-work/bucketd/internal/logger"
	"github.com/glorpus-work/bucketd/pkg/backend"
	"github.com/glorpus-work/bucketd/pkg/model"
	"github.com/glorpus-work/bucketd/pkg/progress"
)

// DoneFunc receives the terminal result of an install request. Coalesced
// requests receive the shared result of the request they merged into.
type DoneFunc func(model.Result)

// request is one queued bucket install. dones grows while the request is
// pending or active as duplicates coalesce onto it.
type request struct {
	bucket   model.Bucket
	reporter *progress.Reporter
	dones    []DoneFunc
}

// Orchestrator owns the install queue. Submissions never block; a single
// worker goroutine drains the queue and exits when it runs dry.
type Orchestrator struct {
	backend backend.Backend

	mu      sync.Mutex
	pending []*request
	active  *request
	running bool
}

// New returns an orchestrator driving the given backend.
func New(b backend.Backend) *Orchestrator {
	return &Orchestrator{backend: b}
}

// InstallBucket enqueues a bucket install and returns immediately. onProgress
// receives normalized two-phase progress; onDone receives the terminal result.
// Either callback may be nil. When an identical bucket is already pending or
// active the request coalesces onto it: onDone is attached to the existing
// request and onProgress is discarded.
func (o *Orchestrator) InstallBucket(bucket model.Bucket, onProgress progress.Callback, onDone DoneFunc) error {
	if err := bucket.Validate(); err != nil {
		return err
	}
	bucket = bucket.Clone()

	o.mu.Lock()
	defer o.mu.Unlock()

	if existing := o.findLocked(bucket); existing != nil {
		logger.Debug("coalescing duplicate install request", logger.Fields{"bucket": bucket.String()})
		if onDone != nil {
			existing.dones = append(existing.dones, onDone)
		}
		return nil
	}

	req := &request{
		bucket:   bucket,
		reporter: progress.New(onProgress),
	}
	if onDone != nil {
		req.dones = append(req.dones, onDone)
	}
	o.pending = append(o.pending, req)
	logger.Debug("enqueued install request", logger.Fields{"bucket": bucket.String(), "queued": len(o.pending)})

	if !o.running {
		o.running = true
		go o.run()
	}
	return nil
}

// Lookup reports the installed or available state of a single package. It
// queries the backend directly and does not touch the queue.
func (o *Orchestrator) Lookup(name string) (*model.PackageState, error) {
	return o.backend.Lookup(name)
}

// findLocked returns the active or pending request for an identical bucket.
// Caller holds o.mu.
func (o *Orchestrator) findLocked(bucket model.Bucket) *request {
	if o.active != nil && o.active.bucket.Equal(bucket) {
		return o.active
	}
	for _, req := range o.pending {
		if req.bucket.Equal(bucket) {
			return req
		}
	}
	return nil
}

// run drains the queue. One request executes at a time; its done callbacks
// all fire before the next request is dispatched.
func (o *Orchestrator) run() {
	for {
		o.mu.Lock()
		if len(o.pending) == 0 {
			o.running = false
			o.mu.Unlock()
			return
		}
		req := o.pending[0]
		o.pending = o.pending[1:]
		o.active = req
		o.mu.Unlock()

		res := o.execute(req)

		// Snapshot the callbacks and clear active in one step so a late
		// duplicate either attaches before the snapshot or queues anew.
		o.mu.Lock()
		o.active = nil
		dones := req.dones
		o.mu.Unlock()

		for _, done := range dones {
			deliver(done, res)
		}
	}
}

// execute runs one bucket through the backend, converting panics into a
// failed result so the queue never dies.
func (o *Orchestrator) execute(req *request) (res model.Result) {
	res.Bucket = req.bucket
	defer func() {
		if r := recover(); r != nil {
			logger.Error("bucket install panicked", logger.Fields{"bucket": req.bucket.String(), "panic": r})
			res.Err = fmt.Errorf("install of bucket %s panicked: %v", req.bucket, r)
		}
	}()

	logger.Info("installing bucket", logger.Fields{"bucket": req.bucket.String()})
	res.Err = o.backend.InstallBucket(context.Background(), req.bucket, req.reporter.Handle)
	if res.Err != nil {
		logger.Error("bucket install failed", logger.Fields{"bucket": req.bucket.String(), "error": res.Err.Error()})
	}
	return res
}

// deliver invokes one done callback, isolating the queue from callback panics.
func deliver(done DoneFunc, res model.Result) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("done callback panicked", logger.Fields{"bucket": res.Bucket.String(), "panic": r})
		}
	}()
	done(res)
}
