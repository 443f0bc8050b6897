package transport

import (
	"context"
	"fmt"
	"strings"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// DefaultBaudRate is the EBB firmware's line rate.
const DefaultBaudRate = 9600

// EiBotBoard USB identifiers.
const (
	ebbVendorID  = "04D8"
	ebbProductID = "FD92"
)

// SerialOpener opens a local serial device. With no PortName it picks the
// first attached EiBotBoard, then the first port listed.
type SerialOpener struct {
	PortName string
	BaudRate int
}

// Available reports whether any serial port can be enumerated.
func (o *SerialOpener) Available() bool {
	if o.PortName != "" {
		return true
	}
	ports, err := serial.GetPortsList()
	return err == nil && len(ports) > 0
}

// Open opens the configured port, or the discovered one.
func (o *SerialOpener) Open(ctx context.Context) (Port, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := o.PortName
	if name == "" {
		found, err := discoverPort()
		if err != nil {
			return nil, err
		}
		name = found
	}

	baud := o.BaudRate
	if baud <= 0 {
		baud = DefaultBaudRate
	}

	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	fmt.Printf("[Transport] Opened %s at %d baud\n", name, baud)
	return port, nil
}

// ListPorts returns the names of attached serial devices, EiBotBoards first.
func ListPorts() ([]string, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("listing serial ports: %w", err)
	}

	var boards, others []string
	for _, d := range details {
		if isEBB(d) {
			boards = append(boards, d.Name)
		} else {
			others = append(others, d.Name)
		}
	}
	return append(boards, others...), nil
}

func discoverPort() (string, error) {
	names, err := ListPorts()
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no serial ports found")
	}
	return names[0], nil
}

func isEBB(d *enumerator.PortDetails) bool {
	return d.IsUSB && strings.EqualFold(d.VID, ebbVendorID) && strings.EqualFold(d.PID, ebbProductID)
}
