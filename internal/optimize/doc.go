// Package optimize shrinks Pipedrive responses before they are handed to a
// language model.
//
// List, Single and Search take an upstream envelope and return a Result:
// failure envelopes pass through unchanged; otherwise items are optionally
// projected through their Summary method and lists longer than MaxItems are
// cut to a stable prefix, with Meta recording the original count and why the
// payload changed. Budget estimates the token cost of serialized text.
package optimize
