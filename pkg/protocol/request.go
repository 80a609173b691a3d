package protocol

import (
	"time"

	"github.com/robotalks/rs4b/pkg/ident"
	"github.com/robotalks/rs4b/pkg/registry"
)

// RequestKind is the kind of a master request.
type RequestKind int

// Request kinds.
const (
	// RequestRaw sends a console line; it completes once sent unless the
	// line turns out to be WHO or IDENTIFY.
	RequestRaw RequestKind = iota
	RequestWho
	RequestIdentify
)

// Result is the outcome of a Request.
type Result struct {
	Err error
	// Devices lists the identifiers that answered a WHO, in reply order.
	Devices []ident.ID
	// Entry is the registry entry updated by an IDENTIFY.
	Entry registry.Entry
}

// Request is a command issued by the master.
type Request struct {
	Kind   RequestKind
	Target ident.ID
	Text   string

	issuedAt time.Time
	deadline time.Time
	devices  []ident.ID
	resultCh chan Result
	done     bool
}

// NewDiscoverRequest creates a WHO request.
func NewDiscoverRequest() *Request {
	return &Request{Kind: RequestWho, resultCh: make(chan Result, 1)}
}

// NewIdentifyRequest creates an IDENTIFY request for a device.
func NewIdentifyRequest(id ident.ID) *Request {
	return &Request{Kind: RequestIdentify, Target: id, resultCh: make(chan Result, 1)}
}

// NewRawRequest creates a request sending text as is.
func NewRawRequest(text string) *Request {
	return &Request{Kind: RequestRaw, Text: text, resultCh: make(chan Result, 1)}
}

// ResultChan delivers exactly one Result.
func (r *Request) ResultChan() <-chan Result {
	return r.resultCh
}

// IssuedAt is the time the request was sent.
func (r *Request) IssuedAt() time.Time {
	return r.issuedAt
}

func (r *Request) addDevice(id ident.ID) {
	for _, d := range r.devices {
		if d == id {
			return
		}
	}
	r.devices = append(r.devices, id)
}

func (r *Request) complete(res Result) {
	if r.done {
		return
	}
	r.done = true
	r.resultCh <- res
	close(r.resultCh)
}
