// Package generation runs the provider adapters that drive background
// generation tasks end to end: submit to the external provider, poll
// with progress forwarding, persist the artifact, record it in the
// asset catalog and finalize the task record. It also owns the error
// normalizer that flattens provider failures into the single string a
// polling client sees.
package generation
