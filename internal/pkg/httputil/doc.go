// Package httputil writes the JSON envelopes shared by every API handler.
package httputil
