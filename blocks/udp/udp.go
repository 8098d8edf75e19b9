// Package udp provides datagram source and sink blocks. One datagram
// carries one value's wire encoding, no framing needed.
package udp

import (
	"fmt"
	"net"
	"sync"

	"github.com/sofia-silvestri/KappaLibrary/block"
	"github.com/sofia-silvestri/KappaLibrary/blocks"
	"github.com/sofia-silvestri/KappaLibrary/data"
	"github.com/sofia-silvestri/KappaLibrary/log"
)

const (
	sourceSampleConfig = `    type: udp_source
    address: 0.0.0.0:50001`

	sourceDescription = "receives one byte frame per udp datagram"

	sinkSampleConfig = `    type: udp_sink
    address: 127.0.0.1:50001`

	sinkDescription = "sends each byte frame as one udp datagram"

	maxDatagram = 65535
)

var (
	_ block.Initializer = &Source{}
	_ block.Closer      = &Source{}
	_ block.Initializer = &Sink{}
	_ block.Closer      = &Sink{}
)

func init() {
	blocks.Add(block.Spec{
		Name:        "udp_source",
		Description: sourceDescription,
		Tolerant:    true,
		Ports: []block.Port{
			{Name: "out", Direction: block.Output, Type: data.ByteSeq()},
		},
		Creator: func() block.Block { return &Source{Address: "0.0.0.0:50001"} },
	})
	blocks.Add(block.Spec{
		Name:        "udp_sink",
		Description: sinkDescription,
		Ports: []block.Port{
			{Name: "in", Direction: block.Input, Type: data.ByteSeq()},
		},
		Creator: func() block.Block { return &Sink{Address: "127.0.0.1:50001"} },
	})
}

// Source binds a UDP socket and emits each datagram as a byte sequence. A
// step with no pending datagram produces nothing.
type Source struct {
	Address string `json:"address" doc:"bind address, ie 0.0.0.0:50001"`
	TypeID  string `json:"type_id" doc:"optional type id each datagram must fit"`

	desc     data.Descriptor
	validate bool
	conn     *net.UDPConn

	mu     sync.Mutex
	frames chan []byte
	closed bool
}

// Description for udp_source block
func (s *Source) Description() string {
	return sourceDescription
}

// SampleConfig for udp_source block
func (s *Source) SampleConfig() string {
	return sourceSampleConfig
}

// Init binds the socket and starts receiving.
func (s *Source) Init() error {
	if s.TypeID != "" {
		desc, ok := data.Lookup(s.TypeID)
		if !ok {
			return fmt.Errorf("unknown type id '%s'", s.TypeID)
		}
		s.desc = desc
		s.validate = true
	}
	addr, err := net.ResolveUDPAddr("udp", s.Address)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return err
	}
	s.conn = conn
	s.frames = make(chan []byte, 16)
	go s.receive()
	return nil
}

func (s *Source) receive() {
	buf := make([]byte, maxDatagram)
	for {
		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		frame := append([]byte(nil), buf[:n]...)
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
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Sink sends each frame to a fixed peer, one datagram per frame.
type Sink struct {
	Address string `json:"address" doc:"peer address, ie 127.0.0.1:50001"`

	conn net.Conn
}

// Description for udp_sink block
func (s *Sink) Description() string {
	return sinkDescription
}

// SampleConfig for udp_sink block
func (s *Sink) SampleConfig() string {
	return sinkSampleConfig
}

// Init resolves the peer.
func (s *Sink) Init() error {
	conn, err := net.Dial("udp", s.Address)
	if err != nil {
		return err
	}
	s.conn = conn
	return nil
}

// Step satisfies block.Block.
func (s *Sink) Step(in map[string]data.Value) (map[string]data.Value, error) {
	_, err := s.conn.Write(in["in"].Bytes())
	return nil, err
}

// Close satisfies block.Closer.
func (s *Sink) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
