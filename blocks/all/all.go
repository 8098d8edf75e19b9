// Package all imports every builtin block so a single blank import wires the
// whole catalog into the binary.
package all

import (
	// initialize the builtin block catalog
	_ "github.com/sofia-silvestri/KappaLibrary/blocks/amqp"
	_ "github.com/sofia-silvestri/KappaLibrary/blocks/cfar"
	_ "github.com/sofia-silvestri/KappaLibrary/blocks/ekf"
	_ "github.com/sofia-silvestri/KappaLibrary/blocks/fft"
	_ "github.com/sofia-silvestri/KappaLibrary/blocks/file"
	_ "github.com/sofia-silvestri/KappaLibrary/blocks/fir"
	_ "github.com/sofia-silvestri/KappaLibrary/blocks/gain"
	_ "github.com/sofia-silvestri/KappaLibrary/blocks/generator"
	_ "github.com/sofia-silvestri/KappaLibrary/blocks/iir"
	_ "github.com/sofia-silvestri/KappaLibrary/blocks/tcp"
	_ "github.com/sofia-silvestri/KappaLibrary/blocks/udp"
)
