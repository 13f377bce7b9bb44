//go:build wasip1

package log

import "github.com/blackbox-log/blackbox-log-go/internal/abi"

// host_log_message takes a packed (ptr, len) JSON LogMessageWire. The host
// copies the bytes before returning.
//
//go:wasmimport blackbox_host log_message
//nolint:revive // intentional snake_case to match WASM import convention
func host_log_message(messagePacked uint64)

func defaultSink(payload []byte) {
	buf, err := abi.Alloc(abi.KindBytes, len(payload))
	if err != nil {
		return
	}
	defer buf.Free()
	copy(buf.Bytes(), payload)
	host_log_message(buf.Pack())
}
