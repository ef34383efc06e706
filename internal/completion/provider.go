// Package completion serves the static GLSL completion candidates: language
// keywords, built-in types and functions, and the uniforms a shader loader
// feeds into pack programs. The list is position-independent and loaded once
// at process start from an embedded data file.
package completion

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
	"go.lsp.dev/protocol"
)

// ErrItemNotFound is returned by Resolve for ids outside the candidate list.
var ErrItemNotFound = errors.New("completion item not found")

//go:embed data/builtins.yaml
var builtinsYAML []byte

type candidate struct {
	Label  string `yaml:"label"`
	Kind   string `yaml:"kind"`
	Detail string `yaml:"detail"`
	Doc    string `yaml:"doc"`
}

// Provider holds the candidate list in wire order. Each item carries its
// 1-based list position in Data; resolve requests echo that id back.
type Provider struct {
	items []protocol.CompletionItem
	docs  []string
}

// NewProvider parses the embedded candidate data. The list and its order
// are fixed for the life of the process.
func NewProvider() (*Provider, error) {
	var candidates []candidate
	if err := yaml.Unmarshal(builtinsYAML, &candidates); err != nil {
		return nil, fmt.Errorf("parsing embedded completion data: %w", err)
	}
	if len(candidates) == 0 {
		return nil, errors.New("embedded completion data is empty")
	}

	p := &Provider{
		items: make([]protocol.CompletionItem, 0, len(candidates)),
		docs:  make([]string, 0, len(candidates)),
	}
	for i, c := range candidates {
		p.items = append(p.items, protocol.CompletionItem{
			Label:  c.Label,
			Kind:   kindFor(c.Kind),
			Detail: c.Detail,
			Data:   i + 1,
		})
		p.docs = append(p.docs, c.Doc)
	}
	return p, nil
}

// Items returns the full candidate list. GLSL completion is not position
// sensitive; the same candidates apply anywhere in a shader.
func (p *Provider) Items() []protocol.CompletionItem {
	return p.items
}

// Resolve returns the candidate at 1-based position id with documentation
// attached. Ids outside the list report ErrItemNotFound.
func (p *Provider) Resolve(id int) (protocol.CompletionItem, error) {
	if id < 1 || id > len(p.items) {
		return protocol.CompletionItem{}, fmt.Errorf("%w: id %d of %d", ErrItemNotFound, id, len(p.items))
	}

	item := p.items[id-1]
	if doc := p.docs[id-1]; doc != "" {
		item.Documentation = &protocol.MarkupContent{
			Kind:  protocol.Markdown,
			Value: doc,
		}
	}
	return item, nil
}

func kindFor(kind string) protocol.CompletionItemKind {
	switch kind {
	case "keyword":
		return protocol.CompletionItemKindKeyword
	case "type":
		return protocol.CompletionItemKindStruct
	case "function":
		return protocol.CompletionItemKindFunction
	case "variable":
		return protocol.CompletionItemKindVariable
	case "uniform":
		return protocol.CompletionItemKindProperty
	default:
		return protocol.CompletionItemKindText
	}
}
