// Package pipeline streams source audio into the object store for a single
// catalog reference. It owns format selection and the liveness guards on the
// source stream; it does not touch job state, which belongs to the job store.
package pipeline
