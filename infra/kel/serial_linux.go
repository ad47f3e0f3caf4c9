//go:build linux

package kel

import (
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

var baudRates = map[int]uint32{
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
}

// serialPort is a minimal 8N1 raw-mode serial port.
type serialPort struct {
	mu     sync.Mutex
	fd     int
	device string
	closed bool
}

// openSerial opens device in raw mode at the given baud rate. Reads time
// out per character after readTimeout so a wedged instrument cannot hang
// the control loop indefinitely.
func openSerial(device string, baud int, readTimeout time.Duration) (io.ReadWriteCloser, error) {
	speed, ok := baudRates[baud]
	if !ok {
		return nil, fmt.Errorf("unsupported baud rate %d", baud)
	}
	fd, err := unix.Open(device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		unix.Close(fd) //nolint:errcheck
		return nil, fmt.Errorf("get termios: %w", err)
	}

	// Raw 8N1, no flow control.
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF | unix.IXANY
	t.Oflag &^= unix.OPOST
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.PARODD | unix.CSTOPB
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Ispeed = speed
	t.Ospeed = speed

	deciseconds := readTimeout.Milliseconds() / 100
	if deciseconds < 1 {
		deciseconds = 1
	}
	if deciseconds > 255 {
		deciseconds = 255
	}
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = uint8(deciseconds)

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
		unix.Close(fd) //nolint:errcheck
		return nil, fmt.Errorf("set termios: %w", err)
	}
	if err := unix.SetNonblock(fd, false); err != nil {
		unix.Close(fd) //nolint:errcheck
		return nil, fmt.Errorf("set blocking: %w", err)
	}
	return &serialPort{fd: fd, device: device}, nil
}

func (p *serialPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	fd, closed := p.fd, p.closed
	p.mu.Unlock()
	if closed {
		return 0, fmt.Errorf("serial port %s closed", p.device)
	}
	n, err := unix.Read(fd, b)
	if n < 0 {
		n = 0
	}
	if err != nil {
		return n, fmt.Errorf("read %s: %w", p.device, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("read %s: timeout", p.device)
	}
	return n, nil
}

func (p *serialPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	fd, closed := p.fd, p.closed
	p.mu.Unlock()
	if closed {
		return 0, fmt.Errorf("serial port %s closed", p.device)
	}
	n, err := unix.Write(fd, b)
	if n < 0 {
		n = 0
	}
	if err != nil {
		return n, fmt.Errorf("write %s: %w", p.device, err)
	}
	return n, nil
}

func (p *serialPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return unix.Close(p.fd)
}
