// Package preprocess holds the stateful pipeline steps that sit between the
// passenger feature extractors and the classifier: imputation, missing-value
// indicators, column selection, rare-label grouping, one-hot encoding and
// standard scaling. Each step learns its parameters in Fit and replays them
// in Transform.
package preprocess
