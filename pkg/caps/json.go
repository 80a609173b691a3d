package caps

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-json-experiment/json/jsontext"

	"github.com/robotalks/rs4b/pkg/ident"
)

// MarshalJSON encodes the compact wire form with keys uuid, type, methods
// and props, keeping declaration order.
func (d Descriptor) MarshalJSON() ([]byte, error) {
	tokens := []jsontext.Token{
		jsontext.ObjectStart,
		jsontext.String("uuid"), jsontext.String(string(d.UUID)),
		jsontext.String("type"), jsontext.String(d.Type),
		jsontext.String("methods"), jsontext.ArrayStart,
	}
	for _, m := range d.Methods {
		tokens = append(tokens, jsontext.String(m))
	}
	tokens = append(tokens, jsontext.ArrayEnd, jsontext.String("props"), jsontext.ObjectStart)
	for _, p := range d.Props {
		tokens = append(tokens, jsontext.String(p.Name), jsontext.String(p.Type))
	}
	tokens = append(tokens, jsontext.ObjectEnd, jsontext.ObjectEnd)

	var buf bytes.Buffer
	enc := jsontext.NewEncoder(&buf)
	for _, tok := range tokens {
		if err := enc.WriteToken(tok); err != nil {
			return nil, err
		}
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON decodes the wire form. Unknown keys are skipped.
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	dec := jsontext.NewDecoder(bytes.NewReader(data))
	if err := readDelim(dec, '{'); err != nil {
		return err
	}
	var out Descriptor
	for dec.PeekKind() != '}' {
		name, err := readString(dec)
		if err != nil {
			return err
		}
		switch name {
		case "uuid":
			s, err := readString(dec)
			if err != nil {
				return err
			}
			out.UUID = ident.ID(s)
		case "type":
			if out.Type, err = readString(dec); err != nil {
				return err
			}
		case "methods":
			if out.Methods, err = readMethods(dec); err != nil {
				return err
			}
		case "props":
			if out.Props, err = readProps(dec); err != nil {
				return err
			}
		default:
			if err = dec.SkipValue(); err != nil {
				return err
			}
		}
	}
	if err := readDelim(dec, '}'); err != nil {
		return err
	}
	if _, err := dec.ReadToken(); err != io.EOF {
		return fmt.Errorf("unexpected data after descriptor at offset %d", dec.InputOffset())
	}
	*d = out
	return nil
}

// Decode parses and validates a descriptor reply.
func Decode(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := d.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

func readDelim(dec *jsontext.Decoder, kind jsontext.Kind) error {
	tok, err := dec.ReadToken()
	if err != nil {
		return err
	}
	if tok.Kind() != kind {
		return fmt.Errorf("expect %v, got %v", kind, tok.Kind())
	}
	return nil
}

func readString(dec *jsontext.Decoder) (string, error) {
	tok, err := dec.ReadToken()
	if err != nil {
		return "", err
	}
	if tok.Kind() != '"' {
		return "", fmt.Errorf("expect string, got %v", tok.Kind())
	}
	return tok.String(), nil
}

func readMethods(dec *jsontext.Decoder) (MethodSet, error) {
	if err := readDelim(dec, '['); err != nil {
		return nil, err
	}
	var methods MethodSet
	for dec.PeekKind() != ']' {
		m, err := readString(dec)
		if err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	return methods, readDelim(dec, ']')
}

func readProps(dec *jsontext.Decoder) (PropSet, error) {
	if err := readDelim(dec, '{'); err != nil {
		return nil, err
	}
	var props PropSet
	for dec.PeekKind() != '}' {
		name, err := readString(dec)
		if err != nil {
			return nil, err
		}
		typ, err := readString(dec)
		if err != nil {
			return nil, err
		}
		props = append(props, Prop{Name: name, Type: typ})
	}
	return props, readDelim(dec, '}')
}
