package pipe

import (
	"fmt"

	"github.com/sofia-silvestri/KappaLibrary/block"
)

// TypeMismatchError is returned when two ports with differing descriptors
// are connected. No connection is recorded.
type TypeMismatchError struct {
	From Port
	To   Port
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch connecting %s (%s) to %s (%s)",
		e.From, e.From.Type, e.To, e.To.Type)
}

// PortAlreadyConnectedError is returned when an input port that already has
// an incoming connection is connected again.
type PortAlreadyConnectedError struct {
	Port     Port
	Existing Port
}

func (e PortAlreadyConnectedError) Error() string {
	return fmt.Sprintf("input port %s is already connected to %s", e.Port, e.Existing)
}

// PortArityExceededError is returned when an output port's declared fan-out
// limit would be exceeded.
type PortArityExceededError struct {
	Port Port
	Max  int
}

func (e PortArityExceededError) Error() string {
	return fmt.Sprintf("output port %s exceeds its declared fan-out of %d", e.Port, e.Max)
}

// DirectionError is returned when a connection endpoint has the wrong
// direction for its role.
type DirectionError struct {
	Port Port
	Want block.Direction
}

func (e DirectionError) Error() string {
	return fmt.Sprintf("port %s is an %s, expected an %s", e.Port, e.Port.Direction, e.Want)
}
