// Package types defines the experiment record, its overview and schema,
// the failure listener contract, configuration, and the standard error
// values shared by the journal storage layers.
package types
