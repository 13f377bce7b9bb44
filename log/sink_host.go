//go:build !wasip1

package log

import "os"

func defaultSink(payload []byte) {
	_, _ = os.Stderr.Write(append(payload, '\n'))
}
