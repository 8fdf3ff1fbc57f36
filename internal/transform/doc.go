// Package transform defines the contract every pipeline step implements: a
// fit phase that learns from a training table and a transform phase that maps
// one Row Table to a new one. The final step of a pipeline is an Estimator
// that consumes the numeric matrix the preceding steps produce.
package transform
