// Package geoprocessing implements the asynchronous job protocol of the analysis
// server: submit a task, poll the job until it reaches a terminal status while
// relaying its progress messages, then resolve each output parameter through its
// secondary lookup URL.
//
// The flow for one invocation is
//
//	submission := Submitter.Submit(ctx, invocation)      // POST <service>/<task>/submitJob
//	snapshot   := Tracker.Track(ctx, submission.Handle)  // POST <service>/<task>/jobs/<jobId>
//	outputs    := Resolver.Resolve(ctx, handle, ...)     // POST <service>/<task>/jobs/<jobId>/<paramUrl>
//
// Service strings the three together. Every component keeps its per-job state on
// the stack, so one Service can track any number of jobs concurrently.
package geoprocessing
