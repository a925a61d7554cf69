//go:build linux

package bridge

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctl request encoding (Linux _IOC macro)
const (
	iocNRBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNRShift   = 0
	iocTypeShift = iocNRShift + iocNRBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	iocWrite = 1
	iocRead  = 2
)

func ioc(dir uint32, typ uint32, nr uint32, size uint32) uintptr {
	return uintptr((dir << iocDirShift) | (typ << iocTypeShift) | (nr << iocNRShift) | (size << iocSizeShift))
}

func evioCGrab() uintptr {
	// EVIOCGRAB = _IOW('E', 0x90, int)
	return ioc(iocWrite, uint32('E'), uint32(0x90), uint32(unsafe.Sizeof(int32(0))))
}

func evioCGName(size int) uintptr {
	// EVIOCGNAME(len) = _IOR('E', 0x06, char[len])
	return ioc(iocRead, uint32('E'), uint32(0x06), uint32(size))
}

// Device is an evdev character device opened for reading.
type Device struct {
	f    *os.File
	name string
}

// OpenDevice opens an evdev node such as /dev/input/event3. With grab
// set the device is claimed exclusively so the desktop stops seeing
// its events.
func OpenDevice(path string, grab bool) (*Device, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("bridge: open %s: %w", path, err)
	}

	d := &Device{f: f}
	d.name = deviceName(int(f.Fd()))

	if grab {
		var one int32 = 1
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), evioCGrab(), uintptr(unsafe.Pointer(&one)))
		if errno != 0 {
			f.Close()
			return nil, fmt.Errorf("bridge: grab %s: %w", path, errno)
		}
	}
	return d, nil
}

func deviceName(fd int) string {
	buf := make([]byte, 256)
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), evioCGName(len(buf)), uintptr(unsafe.Pointer(&buf[0])))
	if errno != 0 {
		return ""
	}
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}

// Name reports the kernel's name for the device, if it answered.
func (d *Device) Name() string { return d.name }

func (d *Device) Read(p []byte) (int, error) { return d.f.Read(p) }

func (d *Device) Close() error { return d.f.Close() }
