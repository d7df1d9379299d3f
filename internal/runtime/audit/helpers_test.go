package audit

import (
	"errors"
	"sync"
)

type recordedEvent struct {
	logger     string
	source     string
	name       string
	properties Properties
}

type recordedException struct {
	logger     string
	source     string
	err        error
	properties Properties
}

// journal collects records from several sinks in arrival order.
type journal struct {
	mu         sync.Mutex
	events     []recordedEvent
	exceptions []recordedException
}

func (j *journal) sink(name string) Sink {
	return SinkFuncs{
		Event: func(source, eventName string, properties Properties) error {
			j.mu.Lock()
			defer j.mu.Unlock()
			j.events = append(j.events, recordedEvent{logger: name, source: source, name: eventName, properties: properties})
			return nil
		},
		Exception: func(source string, err error, properties Properties) error {
			j.mu.Lock()
			defer j.mu.Unlock()
			j.exceptions = append(j.exceptions, recordedException{logger: name, source: source, err: err, properties: properties})
			return nil
		},
	}
}

func (j *journal) eventNames() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	names := make([]string, 0, len(j.events))
	for _, e := range j.events {
		names = append(names, e.name)
	}
	return names
}

func (j *journal) loggersFor(eventName string) []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []string
	for _, e := range j.events {
		if e.name == eventName {
			out = append(out, e.logger)
		}
	}
	return out
}

var errSink = errors.New("sink offline")

var failingSink = SinkFuncs{
	Event:     func(string, string, Properties) error { return errSink },
	Exception: func(string, error, Properties) error { return errSink },
}

var panickingSink = SinkFuncs{
	Event:     func(string, string, Properties) error { panic("event sink exploded") },
	Exception: func(string, error, Properties) error { panic("exception sink exploded") },
}
