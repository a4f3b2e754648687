// Package recommendation holds the request-side domain types (emotion vector,
// intents, contextual data) and the normalizer that turns a loosely structured
// model answer into a stable Recommendation.
//
// Everything in this package is pure: no I/O, no shared state. Validation
// follows a single reject policy: malformed input is an error, never
// silently replaced with defaults.
package recommendation
