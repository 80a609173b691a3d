package caps

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/robotalks/rs4b/pkg/ident"
)

// declaration is the file form of a descriptor, e.g.
//
//	type: set_generic
//	methods: [SET_LIGHT, GET_LIGHT]
//	props:
//	  light: bool
type declaration struct {
	Type    string    `yaml:"type"`
	Methods []string  `yaml:"methods"`
	Props   yaml.Node `yaml:"props"`
}

// Load reads a declaration and binds it to a device.
func Load(r io.Reader, id ident.ID) (*Descriptor, error) {
	var decl declaration
	if err := yaml.NewDecoder(r).Decode(&decl); err != nil {
		return nil, fmt.Errorf("failed to decode capabilities: %w", err)
	}
	props, err := propsFromNode(&decl.Props)
	if err != nil {
		return nil, err
	}
	return New(id, decl.Type, decl.Methods, props)
}

// LoadFile reads a declaration file.
func LoadFile(path string, id ident.ID) (*Descriptor, error) {
	path = filepath.Clean(path)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load capabilities from %s: %w", path, err)
	}
	defer f.Close()
	return Load(f, id)
}

// propsFromNode keeps the declaration order of the props mapping.
func propsFromNode(node *yaml.Node) (PropSet, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: props must be a mapping", node.Line)
	}
	props := make(PropSet, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if key.Kind != yaml.ScalarNode || val.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: prop must map a name to a type name", key.Line)
		}
		props = append(props, Prop{Name: key.Value, Type: val.Value})
	}
	return props, nil
}
