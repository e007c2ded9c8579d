package nest

import "reflect"

// RouteRecord describes one route bound by the router explorer
type RouteRecord struct {
	// Controller is the controller instance serving the route
	Controller     any
	ControllerType reflect.Type
	ControllerName string
	Path           string
	Method         string
	Handler        reflect.Value
	HandlerName    string
}

// RouteTable is the ordered result of an exploration pass
type RouteTable []RouteRecord

// ByController returns the routes served by the named controller
func (t RouteTable) ByController(controllerName string) RouteTable {
	var filtered RouteTable
	for _, r := range t {
		if r.ControllerName == controllerName {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// ByMethod returns the routes registered for an HTTP method
func (t RouteTable) ByMethod(method string) RouteTable {
	var filtered RouteTable
	for _, r := range t {
		if r.Method == method {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// Find returns the first route with the given method and path
func (t RouteTable) Find(method, path string) (RouteRecord, bool) {
	for _, r := range t {
		if r.Method == method && r.Path == path {
			return r, true
		}
	}
	return RouteRecord{}, false
}
