package capture

import (
	"bytes"
	"fmt"
	"os"
	"sync"
	"unsafe"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

const (
	vidiocQueryCap  = 0x80685600 // _IOR('V', 0, struct v4l2_capability)
	capVideoCapture = 0x00000001
	capDeviceCaps   = 0x80000000
)

// v4l2Capability mirrors struct v4l2_capability.
type v4l2Capability struct {
	Driver       [16]byte
	Card         [32]byte
	BusInfo      [32]byte
	Version      uint32
	Capabilities uint32
	DeviceCaps   uint32
	Reserved     [3]uint32
}

// v4l2Track holds the camera device open for the lifetime of the session.
type v4l2Track struct {
	id     string
	device string
	card   string
	file   *os.File

	stopOnce sync.Once
	stopErr  error
}

func openV4L2(device string) (*v4l2Track, error) {
	f, err := os.OpenFile(device, os.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}

	var caps v4l2Capability
	if err := ioctl(f.Fd(), vidiocQueryCap, unsafe.Pointer(&caps)); err != nil {
		f.Close()
		return nil, fmt.Errorf("query %s capabilities: %w", device, err)
	}
	effective := caps.Capabilities
	if effective&capDeviceCaps != 0 {
		effective = caps.DeviceCaps
	}
	if effective&capVideoCapture == 0 {
		f.Close()
		return nil, &PermissionError{Kind: DeviceNotFound, Err: fmt.Errorf("%s is not a video capture device", device)}
	}

	return &v4l2Track{
		id:     uuid.NewString(),
		device: device,
		card:   cString(caps.Card[:]),
		file:   f,
	}, nil
}

func (t *v4l2Track) ID() string { return t.id }
func (t *v4l2Track) Kind() Kind { return KindVideo }

func (t *v4l2Track) Label() string {
	if t.card == "" {
		return t.device
	}
	return fmt.Sprintf("%s (%s)", t.card, t.device)
}

func (t *v4l2Track) Stop() error {
	t.stopOnce.Do(func() {
		t.stopErr = t.file.Close()
	})
	return t.stopErr
}

func ioctl(fd uintptr, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
