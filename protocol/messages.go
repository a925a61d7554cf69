package protocol

// Command identifiers, carried as the first VLQ value of a frame
// payload. Arguments follow as further VLQ values in the documented
// order.
const (
	// CmdConfigQuadraturePort: port, h_a, h_b, v_a, v_b (all unsigned).
	CmdConfigQuadraturePort uint32 = 1

	// CmdQuadratureStart: port.
	CmdQuadratureStart uint32 = 2

	// CmdQuadraturePause: port.
	CmdQuadraturePause uint32 = 3

	// CmdQuadratureUpdate: port (unsigned), dx, dy (signed).
	CmdQuadratureUpdate uint32 = 4

	// CmdSetScaleFactor: value as IEEE-754 float32 bits (unsigned).
	CmdSetScaleFactor uint32 = 5

	// CmdGetScaleFactor: no arguments; answered with RspScaleFactor.
	CmdGetScaleFactor uint32 = 6

	// RspScaleFactor: value as IEEE-754 float32 bits (unsigned).
	RspScaleFactor uint32 = 7
)
