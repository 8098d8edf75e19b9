// Package tcp provides stream-socket source and sink blocks. Frames cross
// the wire with a little-endian uint32 length prefix; the payload is the
// value's wire encoding.
package tcp

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/sofia-silvestri/KappaLibrary/block"
	"github.com/sofia-silvestri/KappaLibrary/blocks"
	"github.com/sofia-silvestri/KappaLibrary/data"
	"github.com/sofia-silvestri/KappaLibrary/log"
)

const (
	sourceSampleConfig = `    type: tcp_source
    address: 0.0.0.0:50000
    type_id: float64[]`

	sourceDescription = "receives length-prefixed byte frames from a tcp peer"

	sinkSampleConfig = `    type: tcp_sink
    address: 127.0.0.1:50000`

	sinkDescription = "sends each byte frame to a tcp peer, length prefixed"

	// maxFrame bounds a declared frame length so a broken peer cannot make
	// the source allocate without limit.
	maxFrame = 1 << 24
)

var (
	_ block.Initializer = &Source{}
	_ block.Closer      = &Source{}
	_ block.Initializer = &Sink{}
	_ block.Closer      = &Sink{}
)

func init() {
	blocks.Add(block.Spec{
		Name:        "tcp_source",
		Description: sourceDescription,
		Tolerant:    true,
		Ports: []block.Port{
			{Name: "out", Direction: block.Output, Type: data.ByteSeq()},
		},
		Creator: func() block.Block { return &Source{Address: "0.0.0.0:50000"} },
	})
	blocks.Add(block.Spec{
		Name:        "tcp_sink",
		Description: sinkDescription,
		Ports: []block.Port{
			{Name: "in", Direction: block.Input, Type: data.ByteSeq()},
		},
		Creator: func() block.Block { return &Sink{Address: "127.0.0.1:50000"} },
	})
}

// Source listens for one peer and emits each received frame as a byte
// sequence. Reception runs on its own goroutine so a slow peer never stalls
// the step driver; a step with no pending frame produces nothing.
type Source struct {
	Address string `json:"address" doc:"listen address, ie 0.0.0.0:50000"`
	TypeID  string `json:"type_id" doc:"optional type id each frame must fit, ie float64[8]"`

	desc     data.Descriptor
	validate bool
	ln       net.Listener

	mu     sync.Mutex
	frames chan []byte
	closed bool
}

// Description for tcp_source block
func (s *Source) Description() string {
	return sourceDescription
}

// SampleConfig for tcp_source block
func (s *Source) SampleConfig() string {
	return sourceSampleConfig
}

// Init binds the listener and starts receiving.
func (s *Source) Init() error {
	if s.TypeID != "" {
		desc, ok := data.Lookup(s.TypeID)
		if !ok {
			return fmt.Errorf("unknown type id '%s'", s.TypeID)
		}
		s.desc = desc
		s.validate = true
	}
	ln, err := net.Listen("tcp", s.Address)
	if err != nil {
		return err
	}
	s.ln = ln
	s.frames = make(chan []byte, 16)
	go s.accept()
	return nil
}

func (s *Source) accept() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.receive(conn)
	}
}

func (s *Source) receive(conn net.Conn) {
	defer conn.Close()
	for {
		frame, err := readFrame(conn)
		if err != nil {
			if err != io.EOF {
				log.With("address", s.Address).Errorln(err)
			}
			return
		}
		if s.validate {
			if _, err := data.FromBytes(s.desc, frame); err != nil {
				log.With("address", s.Address).With("type_id", s.TypeID).Errorln(err)
				continue
			}
		}
		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return
		}
		select {
		case s.frames <- frame:
		default:
			// the stream is continuous, drop the oldest frame instead of
			// blocking the socket
			select {
			case <-s.frames:
			default:
			}
			s.frames <- frame
		}
	}
}

// Step satisfies block.Block.
func (s *Source) Step(in map[string]data.Value) (map[string]data.Value, error) {
	select {
	case frame := <-s.frames:
		v, err := data.New(data.ByteSeq(), frame)
		if err != nil {
			return nil, err
		}
		return map[string]data.Value{"out": v}, nil
	default:
		return nil, nil
	}
}

// Close satisfies block.Closer.
func (s *Source) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}

// Sink dials a peer once and writes every received frame to it.
type Sink struct {
	Address string `json:"address" doc:"peer address, ie 127.0.0.1:50000"`

	conn net.Conn
}

// Description for tcp_sink block
func (s *Sink) Description() string {
	return sinkDescription
}

// SampleConfig for tcp_sink block
func (s *Sink) SampleConfig() string {
	return sinkSampleConfig
}

// Init dials the peer.
func (s *Sink) Init() error {
	conn, err := net.Dial("tcp", s.Address)
	if err != nil {
		return err
	}
	s.conn = conn
	return nil
}

// Step satisfies block.Block.
func (s *Sink) Step(in map[string]data.Value) (map[string]data.Value, error) {
	return nil, writeFrame(s.conn, in["in"].Bytes())
}

// Close satisfies block.Closer.
func (s *Sink) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func readFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(header[:])
	if n > maxFrame {
		return nil, fmt.Errorf("frame of %d bytes exceeds the %d byte limit", n, maxFrame)
	}
	frame := make([]byte, n)
	if _, err := io.ReadFull(r, frame); err != nil {
		return nil, err
	}
	return frame, nil
}

func writeFrame(w io.Writer, frame []byte) error {
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(frame)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(frame)
	return err
}
