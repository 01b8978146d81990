// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package frontmatter

import (
	"github.com/cockroachdb/errors"
	"go.yaml.in/yaml/v3"
)

// ErrMissingField is wrapped by Fields decoders when a required key is absent.
var ErrMissingField = errors.New("missing required field")

// Decoder maps a parsed YAML header onto a header record. The node is the
// document node produced by yaml.Unmarshal; it has Kind 0 when the header
// block was empty.
type Decoder[H any] func(node *yaml.Node) (H, error)

// Fields returns a Decoder that requires each named key to be present in the
// header mapping and then decodes the mapping into H through its yaml struct
// tags. Keys H does not declare are ignored. A present key with no value
// decodes to the zero value of its field.
func Fields[H any](required ...string) Decoder[H] {
	return func(node *yaml.Node) (H, error) {
		var headers H

		mapping, err := mappingOf(node)
		if err != nil {
			return headers, err
		}

		present := make(map[string]bool, len(mapping.Content)/2)
		for i := 0; i+1 < len(mapping.Content); i += 2 {
			present[mapping.Content[i].Value] = true
		}
		for _, name := range required {
			if !present[name] {
				return headers, errors.Wrapf(ErrMissingField, "%q", name)
			}
		}

		if len(mapping.Content) == 0 {
			return headers, nil
		}
		if err := mapping.Decode(&headers); err != nil {
			return headers, errors.Wrap(err, "decoding header fields")
		}
		return headers, nil
	}
}

// mappingOf returns the root mapping of a YAML document. An empty document
// and an explicit null both count as an empty mapping.
func mappingOf(node *yaml.Node) (*yaml.Node, error) {
	root := node
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return &yaml.Node{Kind: yaml.MappingNode}, nil
		}
		root = root.Content[0]
	}

	switch {
	case root.Kind == 0:
		return &yaml.Node{Kind: yaml.MappingNode}, nil
	case root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null":
		return &yaml.Node{Kind: yaml.MappingNode}, nil
	case root.Kind == yaml.AliasNode && root.Alias != nil:
		return mappingOf(root.Alias)
	case root.Kind != yaml.MappingNode:
		return nil, errors.Newf("header must be a mapping, found %s at line %d", kindName(root.Kind), root.Line)
	}
	return root, nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "a sequence"
	case yaml.ScalarNode:
		return "a scalar"
	case yaml.AliasNode:
		return "an alias"
	default:
		return "an unexpected node"
	}
}
