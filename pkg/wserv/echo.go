package wserv

import "context"

// ServerName is the Server header of the echo handlers.
const ServerName = "my_first_http_server"

// EchoRouter returns the reference handler set: /echo streams the request
// body back, any other URI is greeted.
func EchoRouter() *Router {
	r := NewRouter()
	r.HandleFunc("/echo", Echo)
	r.Default(HandlerFunc(Hello))
	return r
}

// Echo answers with the request body, read from the peer as it is written.
func Echo(_ context.Context, req *Request) (*Response, error) {
	resp := &Response{Status: 200, Body: req.Body}
	return resp.AddHeader("Server", ServerName), nil
}

// Hello answers with a fixed greeting.
func Hello(_ context.Context, _ *Request) (*Response, error) {
	return Text(200, "hello world.\n").AddHeader("Server", ServerName), nil
}
