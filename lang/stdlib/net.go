package stdlib

import (
	"fmt"
	"net"
	"time"

	"github.com/aelys-lang/aelys/lang/heap"
	"github.com/aelys-lang/aelys/lang/value"
)

// netModule is the representative network module behind the "net"
// capability: dialing a TCP connection, returning it as a Socket resource
// object (spec §3's KindSocket), plus send/recv/close over the handle
// stashed in that resource.
func netModule() *Module {
	return &Module{
		Name:       "net",
		Capability: CapNet,
		Funcs: []Func{
			{Name: "tcp_dial", Arity: 1, Capability: CapNet, Fn: func(h *heap.Heap, args []value.Value) (value.Value, error) {
				addr, err := wantString(h, args, 0)
				if err != nil {
					return value.Value{}, err
				}
				conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
				if err != nil {
					return value.Value{}, err
				}
				return h.NewResource(heap.KindSocket, &heap.Resource{Handle: conn})
			}},
			{Name: "send", Arity: 2, Capability: CapNet, Fn: func(h *heap.Heap, args []value.Value) (value.Value, error) {
				conn, err := wantSocket(h, args, 0)
				if err != nil {
					return value.Value{}, err
				}
				data, err := wantString(h, args, 1)
				if err != nil {
					return value.Value{}, err
				}
				n, err := conn.Write([]byte(data))
				if err != nil {
					return value.Value{}, err
				}
				return value.Int(int64(n)), nil
			}},
			{Name: "recv", Arity: 2, Capability: CapNet, Fn: func(h *heap.Heap, args []value.Value) (value.Value, error) {
				conn, err := wantSocket(h, args, 0)
				if err != nil {
					return value.Value{}, err
				}
				n, err := wantInt(args, 1)
				if err != nil {
					return value.Value{}, err
				}
				buf := make([]byte, n)
				read, err := conn.Read(buf)
				if err != nil && read == 0 {
					return value.Value{}, err
				}
				return h.InternString(string(buf[:read]))
			}},
			{Name: "close", Arity: 1, Capability: CapNet, Fn: func(h *heap.Heap, args []value.Value) (value.Value, error) {
				ref, ok := args[0].AsPtr()
				if !ok {
					return value.Value{}, errNotSocket
				}
				obj, err := h.Get(ref)
				if err != nil {
					return value.Value{}, err
				}
				if obj.Kind != heap.KindSocket || obj.Resource.Closed {
					return value.Null, nil
				}
				obj.Resource.Closed = true
				return value.Null, obj.Resource.Handle.(net.Conn).Close()
			}},
		},
	}
}

var errNotSocket = fmt.Errorf("expected a Socket")

func wantSocket(h *heap.Heap, args []value.Value, i int) (net.Conn, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("argument %d missing", i)
	}
	ref, ok := args[i].AsPtr()
	if !ok {
		return nil, errNotSocket
	}
	obj, err := h.Get(ref)
	if err != nil {
		return nil, err
	}
	if obj.Kind != heap.KindSocket {
		return nil, errNotSocket
	}
	if obj.Resource.Closed {
		return nil, fmt.Errorf("socket is closed")
	}
	conn, ok := obj.Resource.Handle.(net.Conn)
	if !ok {
		return nil, errNotSocket
	}
	return conn, nil
}
