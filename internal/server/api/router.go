package api

import (
	"context"
	"log/slog"
	"strings"
)

// Request is one parsed command line. Params holds the values captured by
// "{name}" segments of the matched route; Args the whitespace separated
// words after the path.
type Request struct {
	Ctx    context.Context
	Params map[string]string
	Args   []string
}

// Response carries the JSON line written back on success.
type Response struct {
	JSON string
}

// HandlerFunc serves one route. A returned error is sent to the client as
// {"error": "..."}.
type HandlerFunc func(req *Request, res *Response, logger *slog.Logger) error

type route struct {
	segments []string
	handler  HandlerFunc
}

// Router matches slash separated paths against registered patterns.
// Literal segments take precedence over parameters when two routes overlap.
type Router struct {
	routes []route
}

func NewRouter() *Router { return &Router{} }

// Register adds a handler for pattern, e.g. "device/{bus}/{address}".
func (r *Router) Register(pattern string, h HandlerFunc) {
	r.routes = append(r.routes, route{segments: splitPath(pattern), handler: h})
}

// Match returns the handler for path and its captured parameters, or nil.
func (r *Router) Match(path string) (HandlerFunc, map[string]string) {
	parts := splitPath(path)
	var (
		best       HandlerFunc
		bestParams map[string]string
		bestScore  = -1
	)
	for _, rt := range r.routes {
		params, score, ok := rt.match(parts)
		if ok && score > bestScore {
			best, bestParams, bestScore = rt.handler, params, score
		}
	}
	return best, bestParams
}

// match reports whether parts fit the route and how many literal segments
// matched.
func (rt route) match(parts []string) (map[string]string, int, bool) {
	if len(parts) != len(rt.segments) {
		return nil, 0, false
	}
	params := map[string]string{}
	literals := 0
	for i, seg := range rt.segments {
		if name, ok := paramName(seg); ok {
			if parts[i] == "" {
				return nil, 0, false
			}
			params[name] = parts[i]
			continue
		}
		if !strings.EqualFold(seg, parts[i]) {
			return nil, 0, false
		}
		literals++
	}
	return params, literals, true
}

func paramName(seg string) (string, bool) {
	if len(seg) > 2 && strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
		return seg[1 : len(seg)-1], true
	}
	return "", false
}

func splitPath(p string) []string {
	return strings.Split(strings.Trim(p, "/"), "/")
}
