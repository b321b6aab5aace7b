// Package httpserver runs the gatekeeper API with health, readiness and drain
// endpoints, and a separate Prometheus metrics listener.
//
// Endpoints:
//
//	GET /livez     always 200 while the process is up
//	GET /readyz    200 unless the server is draining
//	GET /drain     mark the server not ready ahead of shutdown
//	GET /undrain   mark the server ready again
//
// Application routes are contributed by a RouteRegistrar.
package httpserver
