package device

import (
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/stanley-fork/bluepad32/protocol"
	"github.com/stanley-fork/bluepad32/quadrature"
)

// Device runs the firmware side of the serial link: it decodes frames
// from the host and applies them to the quadrature core.
type Device struct {
	quad *quadrature.Quadrature
	reg  *Registry
	dec  *protocol.Decoder
	log  func(string)

	writeMu sync.Mutex
	rw      io.ReadWriter
	seq     uint8
}

// New wires a Device over rw. log may be nil.
func New(q *quadrature.Quadrature, rw io.ReadWriter, log func(string)) *Device {
	d := &Device{
		quad: q,
		reg:  NewRegistry(),
		dec:  protocol.NewDecoder(),
		rw:   rw,
		log:  log,
	}
	d.registerCommands()
	return d
}

// Registry exposes the command table, mainly for tests.
func (d *Device) Registry() *Registry {
	return d.reg
}

func (d *Device) registerCommands() {
	d.reg.Register(protocol.CmdConfigQuadraturePort,
		"config_quadrature_port", "port=%c h_a=%u h_b=%u v_a=%u v_b=%u",
		d.handleConfigPort)
	d.reg.Register(protocol.CmdQuadratureStart,
		"quadrature_start", "port=%c",
		d.handleStart)
	d.reg.Register(protocol.CmdQuadraturePause,
		"quadrature_pause", "port=%c",
		d.handlePause)
	d.reg.Register(protocol.CmdQuadratureUpdate,
		"quadrature_update", "port=%c dx=%i dy=%i",
		d.handleUpdate)
	d.reg.Register(protocol.CmdSetScaleFactor,
		"set_scale_factor", "value=%u",
		d.handleSetScaleFactor)
	d.reg.Register(protocol.CmdGetScaleFactor,
		"get_scale_factor", "",
		d.handleGetScaleFactor)
}

func (d *Device) handleConfigPort(data *[]byte) error {
	port, err := protocol.DecodeUint(data)
	if err != nil {
		return err
	}
	var pins [4]uint32
	for i := range pins {
		if pins[i], err = protocol.DecodeUint(data); err != nil {
			return err
		}
	}
	d.quad.SetupPort(int(port),
		quadrature.PinPair{A: quadrature.Pin(pins[0]), B: quadrature.Pin(pins[1])},
		quadrature.PinPair{A: quadrature.Pin(pins[2]), B: quadrature.Pin(pins[3])})
	return nil
}

func (d *Device) handleStart(data *[]byte) error {
	port, err := protocol.DecodeUint(data)
	if err != nil {
		return err
	}
	d.quad.Start(int(port))
	return nil
}

func (d *Device) handlePause(data *[]byte) error {
	port, err := protocol.DecodeUint(data)
	if err != nil {
		return err
	}
	d.quad.Pause(int(port))
	return nil
}

func (d *Device) handleUpdate(data *[]byte) error {
	port, err := protocol.DecodeUint(data)
	if err != nil {
		return err
	}
	dx, err := protocol.DecodeInt(data)
	if err != nil {
		return err
	}
	dy, err := protocol.DecodeInt(data)
	if err != nil {
		return err
	}
	d.quad.Update(int(port), dx, dy)
	return nil
}

func (d *Device) handleSetScaleFactor(data *[]byte) error {
	bits, err := protocol.DecodeUint(data)
	if err != nil {
		return err
	}
	d.quad.SetScaleFactor(math.Float32frombits(bits))
	return nil
}

func (d *Device) handleGetScaleFactor(data *[]byte) error {
	payload := protocol.AppendUint(nil, protocol.RspScaleFactor)
	payload = protocol.AppendUint(payload, math.Float32bits(d.quad.ScaleFactor()))
	return d.send(payload)
}

func (d *Device) send(payload []byte) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	wire, err := protocol.EncodeFrame(d.seq, payload)
	if err != nil {
		return err
	}
	d.seq = (d.seq + 1) & protocol.SeqMask
	if _, err := d.rw.Write(wire); err != nil {
		return fmt.Errorf("device: write response: %w", err)
	}
	return nil
}

// HandleFrame dispatches one decoded frame. Malformed or unknown
// commands are logged and dropped; the link keeps running.
func (d *Device) HandleFrame(f protocol.Frame) {
	data := f.Payload
	id, err := protocol.DecodeUint(&data)
	if err != nil {
		d.logf("frame without command id: %v", err)
		return
	}
	if err := d.reg.Dispatch(id, &data); err != nil {
		d.logf("%v", err)
	}
}

// Run pumps the link until the reader fails (EOF on host disconnect).
func (d *Device) Run() error {
	buf := make([]byte, protocol.MaxFrameLen)
	for {
		n, err := d.rw.Read(buf)
		if n > 0 {
			for _, f := range d.dec.Push(buf[:n]) {
				d.HandleFrame(f)
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("device: read: %w", err)
		}
	}
}

func (d *Device) logf(format string, args ...any) {
	if d.log != nil {
		d.log(fmt.Sprintf("device: "+format, args...))
	}
}
