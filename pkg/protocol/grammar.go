package protocol

import (
	"strings"

	"github.com/robotalks/rs4b/pkg/caps"
	"github.com/robotalks/rs4b/pkg/frame"
	"github.com/robotalks/rs4b/pkg/ident"
)

// Wire keywords.
const (
	CmdWho         = "WHO"
	PrefixUUID     = "UUID:"
	PrefixIdentify = "IDENTIFY:"
)

// Kind classifies a frame.
type Kind int

// Frame kinds.
const (
	KindUnknown Kind = iota
	KindWho
	KindUUID
	KindIdentify
	KindDescriptor
)

var kindNames = [...]string{"unknown", "who", "uuid", "identify", "descriptor"}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "invalid"
	}
	return kindNames[k]
}

// Message is a classified frame.
type Message struct {
	Kind  Kind
	Arg   string
	Frame frame.Frame
}

// Parse classifies a frame. WHO matches case-insensitively, the UUID and
// IDENTIFY prefixes only in upper case.
func Parse(f frame.Frame) Message {
	s := string(f)
	msg := Message{Frame: f}
	switch {
	case strings.EqualFold(s, CmdWho):
		msg.Kind = KindWho
	case strings.HasPrefix(s, PrefixUUID):
		msg.Kind, msg.Arg = KindUUID, s[len(PrefixUUID):]
	case strings.HasPrefix(s, PrefixIdentify):
		msg.Kind, msg.Arg = KindIdentify, s[len(PrefixIdentify):]
	case strings.HasPrefix(s, "{"):
		msg.Kind = KindDescriptor
	}
	return msg
}

// Who builds the discovery request.
func Who() frame.Frame {
	return frame.Frame(CmdWho)
}

// UUIDReply builds the discovery reply of a device.
func UUIDReply(id ident.ID) (frame.Frame, error) {
	return frame.New(PrefixUUID + string(id))
}

// Identify builds the identification request for a device.
func Identify(id ident.ID) (frame.Frame, error) {
	return frame.New(PrefixIdentify + string(id))
}

// DescriptorReply builds the identification reply of a device.
func DescriptorReply(desc *caps.Descriptor) (frame.Frame, error) {
	b, err := desc.MarshalJSON()
	if err != nil {
		return "", err
	}
	return frame.New(string(b))
}
