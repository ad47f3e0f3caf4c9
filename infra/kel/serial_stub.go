//go:build !linux

package kel

import (
	"fmt"
	"io"
	"runtime"
	"time"
)

func openSerial(string, int, time.Duration) (io.ReadWriteCloser, error) {
	return nil, fmt.Errorf("serial transport not supported on %s", runtime.GOOS)
}
