// Package ipc carries one JSON request and one JSON response per unix-socket
// connection between the application shell and the bridge.
package ipc

import "encoding/json"

// Response codes let callers branch on the failure kind.
const (
	CodeUnimplemented = "unimplemented"
	CodeError         = "error"
	CodeBadRequest    = "bad_request"
)

// ProbeMethod is sent by Probe. Serve answers it without calling the handler.
const ProbeMethod = "__probe"

type Request struct {
	Method    string          `json:"method"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type Response struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result,omitempty"`
	Code   string          `json:"code,omitempty"`
	Error  string          `json:"error,omitempty"`
}
