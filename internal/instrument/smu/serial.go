package smu

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/elworkbench/workbench-core/internal/infrastructure/config"
	"github.com/elworkbench/workbench-core/internal/instrument"
)

// SerialAdapter drives a Keithley 26xx series SMU over RS-232 using
// TSP commands. One adapter owns one serial port.
//
// Thread Safety:
//   - Commands are serialized on an internal mutex; callers above
//     additionally gate access per device session.
type SerialAdapter struct {
	portName    string
	baud        int
	readTimeout time.Duration

	mu     sync.Mutex
	port   serial.Port
	reader *bufio.Reader
}

// NewSerialAdapter creates an adapter for the configured serial port.
func NewSerialAdapter(cfg config.SMUConfig) *SerialAdapter {
	return &SerialAdapter{
		portName:    cfg.Port,
		baud:        cfg.Baud,
		readTimeout: cfg.ReadTimeout,
	}
}

// Open establishes the serial connection.
func (a *SerialAdapter) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.port != nil {
		return nil
	}

	mode := &serial.Mode{
		BaudRate: a.baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: 1,
	}

	port, err := serial.Open(a.portName, mode)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", instrument.ErrDeviceComm, a.portName, err)
	}
	if err := port.SetReadTimeout(a.readTimeout); err != nil {
		port.Close()
		return fmt.Errorf("%w: configuring %s: %v", instrument.ErrDeviceComm, a.portName, err)
	}

	a.port = port
	a.reader = bufio.NewReader(port)
	return nil
}

// Close releases the serial connection.
func (a *SerialAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.port == nil {
		return nil
	}
	err := a.port.Close()
	a.port = nil
	a.reader = nil
	if err != nil {
		return fmt.Errorf("%w: closing %s: %v", instrument.ErrDeviceComm, a.portName, err)
	}
	return nil
}

// Identify queries the instrument identification string.
func (a *SerialAdapter) Identify(ctx context.Context) (string, error) {
	return a.query(ctx, "*IDN?")
}

// SetSourceFunction selects DC volts or DC amps sourcing.
func (a *SerialAdapter) SetSourceFunction(ctx context.Context, ch Channel, voltageSource bool) error {
	node, err := tspNode(ch)
	if err != nil {
		return err
	}
	fn := "OUTPUT_DCAMPS"
	if voltageSource {
		fn = "OUTPUT_DCVOLTS"
	}
	return a.send(ctx, fmt.Sprintf("%s.source.func = %s.%s", node, node, fn))
}

// SetSourceLevel programs the source level.
func (a *SerialAdapter) SetSourceLevel(ctx context.Context, ch Channel, voltageSource bool, level float64) error {
	node, err := tspNode(ch)
	if err != nil {
		return err
	}
	attr := "leveli"
	if voltageSource {
		attr = "levelv"
	}
	return a.send(ctx, fmt.Sprintf("%s.source.%s = %g", node, attr, level))
}

// SetLimit programs the compliance limit for the opposite quantity.
func (a *SerialAdapter) SetLimit(ctx context.Context, ch Channel, voltageSource bool, limit float64) error {
	node, err := tspNode(ch)
	if err != nil {
		return err
	}
	attr := "limitv"
	if voltageSource {
		attr = "limiti"
	}
	return a.send(ctx, fmt.Sprintf("%s.source.%s = %g", node, attr, limit))
}

// SetOutput switches the channel output.
func (a *SerialAdapter) SetOutput(ctx context.Context, ch Channel, on bool) error {
	node, err := tspNode(ch)
	if err != nil {
		return err
	}
	state := "OUTPUT_OFF"
	if on {
		state = "OUTPUT_ON"
	}
	return a.send(ctx, fmt.Sprintf("%s.source.output = %s.%s", node, node, state))
}

// MeasureIV reads current and voltage in one instrument operation.
func (a *SerialAdapter) MeasureIV(ctx context.Context, ch Channel) (float64, float64, error) {
	node, err := tspNode(ch)
	if err != nil {
		return 0, 0, err
	}

	line, err := a.query(ctx, fmt.Sprintf("print(%s.measure.iv())", node))
	if err != nil {
		return 0, 0, err
	}

	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("%w: unexpected iv reply %q", instrument.ErrDeviceComm, line)
	}

	current, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: parsing current %q: %v", instrument.ErrDeviceComm, fields[0], err)
	}
	voltage, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: parsing voltage %q: %v", instrument.ErrDeviceComm, fields[1], err)
	}
	return current, voltage, nil
}

// Reset restores the channel to power-on defaults.
func (a *SerialAdapter) Reset(ctx context.Context, ch Channel) error {
	node, err := tspNode(ch)
	if err != nil {
		return err
	}
	return a.send(ctx, node+".reset()")
}

// send writes one TSP command line.
func (a *SerialAdapter) send(ctx context.Context, cmd string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.port == nil {
		return fmt.Errorf("%w: port not open", instrument.ErrDeviceComm)
	}
	if _, err := a.port.Write([]byte(cmd + "\n")); err != nil {
		return fmt.Errorf("%w: writing %q: %v", instrument.ErrDeviceComm, cmd, err)
	}
	return nil
}

// query writes one command line and reads one reply line.
func (a *SerialAdapter) query(ctx context.Context, cmd string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.port == nil {
		return "", fmt.Errorf("%w: port not open", instrument.ErrDeviceComm)
	}
	if _, err := a.port.Write([]byte(cmd + "\n")); err != nil {
		return "", fmt.Errorf("%w: writing %q: %v", instrument.ErrDeviceComm, cmd, err)
	}

	line, err := a.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("%w: reading reply to %q: %v", instrument.ErrDeviceComm, cmd, err)
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("%w: empty reply to %q", instrument.ErrDeviceComm, cmd)
	}
	return line, nil
}

// tspNode maps a channel to its TSP node name.
func tspNode(ch Channel) (string, error) {
	switch ch {
	case ChannelA:
		return "smua", nil
	case ChannelB:
		return "smub", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidChannel, ch)
	}
}
