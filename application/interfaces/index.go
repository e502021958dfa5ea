package interfaces

import "net/http"

// ApplicationContext carries a parsed request body and request scoped
// data from the transport layer into controllers, keeping them free of
// gin types except for the opaque Ctx handle the responder needs.
type ApplicationContext[T any] struct {
	Ctx    interface{}
	Body   *T
	Header http.Header
}
