package site

import "github.com/npillmayer/schuko/tracing"

// tracer traces with key 'md2html.site'
func tracer() tracing.Trace {
	return tracing.Select("md2html.site")
}
