// Package modeladapter is the model adapter (C6): it turns an uploaded
// segment reference plus a (language, mode) prompt template into cue
// text via a generative model endpoint. Requests sharing a fingerprint
// single-flight to at most one in-flight call, but nothing is cached
// past that call's completion: a quality-gate retry reaches the same
// fingerprint again and must issue a fresh model call. It classifies
// quota errors distinctly from ordinary transient faults.
package modeladapter
