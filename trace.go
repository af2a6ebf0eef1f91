package md2html

import "github.com/npillmayer/schuko/tracing"

// tracer traces with key 'md2html'.
func tracer() tracing.Trace {
	return tracing.Select("md2html")
}
