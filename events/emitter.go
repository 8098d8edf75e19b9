package events

import (
	"bytes"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sofia-silvestri/KappaLibrary/log"
)

// EmitFunc is a function that takes an Event and does something with it.
type EmitFunc func(Event)

// Emitter consumes events from a channel and hands each one to an EmitFunc.
// Stop blocks until the in-flight event has been handled.
type Emitter struct {
	ch     chan Event
	emit   EmitFunc
	chstop chan chan struct{}
	once   sync.Once
}

// NewEmitter creates an Emitter listening on the given channel.
func NewEmitter(ch chan Event, emit EmitFunc) *Emitter {
	return &Emitter{
		ch:     ch,
		emit:   emit,
		chstop: make(chan chan struct{}),
	}
}

// Start begins consuming events off of the channel.
func (e *Emitter) Start() {
	e.once.Do(func() {
		go e.loop()
	})
}

// Stop the event loop.
func (e *Emitter) Stop() {
	s := make(chan struct{})
	e.chstop <- s
	<-s
}

func (e *Emitter) loop() {
	for {
		select {
		case s := <-e.chstop:
			// drain whatever is still queued before acknowledging
			for {
				select {
				case event := <-e.ch:
					e.emit(event)
				default:
					s <- struct{}{}
					return
				}
			}
		case event := <-e.ch:
			e.emit(event)
		case <-time.After(100 * time.Millisecond):
			continue
		}
	}
}

// LogEmitter writes each event to the package logger.
func LogEmitter() EmitFunc {
	return func(event Event) {
		log.Infoln(event.String())
	}
}

// NoopEmitter drops all events. Useful for cli utilities that dump output
// to stdout and don't want it cluttered with metrics.
func NoopEmitter() EmitFunc {
	return func(Event) {}
}

// HTTPPostEmitter posts each event, serialized to json, to the given uri.
// If pid and key are both set they are sent as http basic auth credentials.
// http errors are logged and won't stop the emitter.
func HTTPPostEmitter(uri, key, pid string) EmitFunc {
	return func(event Event) {
		ba, err := event.Emit()
		if err != nil {
			log.Errorf("EventEmitter, %s", err)
			return
		}

		req, err := http.NewRequest("POST", uri, bytes.NewBuffer(ba))
		if err != nil {
			log.Errorf("EventEmitter, %s", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")
		if len(pid) > 0 && len(key) > 0 {
			req.SetBasicAuth(pid, key)
		}
		cli := &http.Client{}
		resp, err := cli.Do(req)
		if err != nil {
			log.Errorf("EventEmitter, %s", err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			log.Errorln(fmt.Sprintf("EventEmitter, http error code, expected 200 or 201, got %d", resp.StatusCode))
		}
	}
}
