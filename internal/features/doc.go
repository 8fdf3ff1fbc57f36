// Package features implements the passenger-specific feature extractors that
// open the survival pipeline: first cabin token, title from name, first letter
// of a variable and numeric casting. None of them learns anything at fit time.
package features
