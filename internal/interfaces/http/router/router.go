// Package router assembles the prdesk HTTP API.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// route is one endpoint of a resource group
type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// resource is a path prefix whose routes share middleware, such as the
// role guard of /sales/pr or /pa/pr
type resource struct {
	prefix string
	guards []gin.HandlerFunc
	routes []route
}

func newResource(prefix string, guards ...gin.HandlerFunc) *resource {
	return &resource{prefix: prefix, guards: guards}
}

func (r *resource) handle(method, path string, handlers ...gin.HandlerFunc) *resource {
	r.routes = append(r.routes, route{method: method, path: path, handlers: handlers})
	return r
}

func (r *resource) get(path string, h ...gin.HandlerFunc) *resource {
	return r.handle(http.MethodGet, path, h...)
}

func (r *resource) post(path string, h ...gin.HandlerFunc) *resource {
	return r.handle(http.MethodPost, path, h...)
}

func (r *resource) put(path string, h ...gin.HandlerFunc) *resource {
	return r.handle(http.MethodPut, path, h...)
}

func (r *resource) delete(path string, h ...gin.HandlerFunc) *resource {
	return r.handle(http.MethodDelete, path, h...)
}

// mount registers every resource on the engine
func mount(engine *gin.Engine, resources ...*resource) {
	for _, res := range resources {
		group := engine.Group(res.prefix, res.guards...)
		for _, rt := range res.routes {
			group.Handle(rt.method, rt.path, rt.handlers...)
		}
	}
}
