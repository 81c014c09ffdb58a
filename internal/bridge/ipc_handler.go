package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rbright/memora-native/internal/ipc"
)

// IPCHandler serves an Invoker over the unix-socket transport.
func IPCHandler(inv Invoker) ipc.Handler {
	return ipc.HandlerFunc(func(ctx context.Context, req ipc.Request) ipc.Response {
		value, err := inv.Invoke(ctx, req.Method, req.Arguments)
		if err != nil {
			code := ipc.CodeError
			if errors.Is(err, ErrNotImplemented) {
				code = ipc.CodeUnimplemented
			}
			return ipc.Response{OK: false, Code: code, Error: err.Error()}
		}

		encoded, err := json.Marshal(value)
		if err != nil {
			return ipc.Response{OK: false, Code: ipc.CodeError, Error: fmt.Sprintf("encode result: %v", err)}
		}
		return ipc.Response{OK: true, Result: encoded}
	})
}
