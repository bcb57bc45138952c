package roster

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"navwatch/internal/domain/model"
)

// Fund is one roster entry.
type Fund struct {
	Code model.FundCode `json:"code" yaml:"code"`
	Name string         `json:"name,omitempty" yaml:"name,omitempty"`
}

// Load reads a roster file. JSON and YAML documents may be either a mapping
// keyed by fund code or a list of codes or {code, name} objects. File order is
// preserved and duplicates keep their first position.
func Load(path string) ([]Fund, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("roster: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(b)
	default:
		return ParseJSON(b)
	}
}

// Codes projects the roster onto its fund codes.
func Codes(funds []Fund) []model.FundCode {
	out := make([]model.FundCode, len(funds))
	for i, f := range funds {
		out[i] = f.Code
	}
	return out
}

func ParseJSON(b []byte) ([]Fund, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, errors.New("roster: empty document")
	}

	var acc accumulator
	switch b[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(b, &items); err != nil {
			return nil, fmt.Errorf("roster: %w", err)
		}
		for _, it := range items {
			var code string
			if err := json.Unmarshal(it, &code); err == nil {
				acc.add(code, "")
				continue
			}
			var f struct {
				Code string `json:"code"`
				Name string `json:"name"`
			}
			if err := json.Unmarshal(it, &f); err != nil {
				return nil, fmt.Errorf("roster: entry %s: %w", string(it), err)
			}
			acc.add(f.Code, f.Name)
		}

	case '{':
		// object keys are read as tokens so the file order survives
		dec := json.NewDecoder(bytes.NewReader(b))
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("roster: %w", err)
		}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("roster: %w", err)
			}
			key, _ := tok.(string)
			var val json.RawMessage
			if err := dec.Decode(&val); err != nil {
				return nil, fmt.Errorf("roster: fund %s: %w", key, err)
			}
			acc.add(key, jsonName(val))
		}

	default:
		return nil, errors.New("roster: expected a JSON object or array")
	}
	return acc.result()
}

func jsonName(val json.RawMessage) string {
	var s string
	if err := json.Unmarshal(val, &s); err == nil {
		return s
	}
	var obj struct {
		Name string `json:"name"`
	}
	_ = json.Unmarshal(val, &obj)
	return obj.Name
}

func ParseYAML(b []byte) ([]Fund, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("roster: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("roster: empty document")
	}
	root := doc.Content[0]
	// a top-level "funds:" key is accepted as a wrapper
	if root.Kind == yaml.MappingNode && len(root.Content) == 2 && root.Content[0].Value == "funds" {
		root = root.Content[1]
	}

	var acc accumulator
	switch root.Kind {
	case yaml.SequenceNode:
		for _, n := range root.Content {
			switch n.Kind {
			case yaml.ScalarNode:
				acc.add(n.Value, "")
			case yaml.MappingNode:
				var f Fund
				if err := n.Decode(&f); err != nil {
					return nil, fmt.Errorf("roster: line %d: %w", n.Line, err)
				}
				acc.add(string(f.Code), f.Name)
			default:
				return nil, fmt.Errorf("roster: line %d: unexpected entry", n.Line)
			}
		}

	case yaml.MappingNode:
		for i := 0; i+1 < len(root.Content); i += 2 {
			key, val := root.Content[i], root.Content[i+1]
			name := ""
			switch val.Kind {
			case yaml.ScalarNode:
				name = val.Value
			case yaml.MappingNode:
				var f Fund
				if err := val.Decode(&f); err != nil {
					return nil, fmt.Errorf("roster: line %d: %w", val.Line, err)
				}
				name = f.Name
			}
			acc.add(key.Value, name)
		}

	default:
		return nil, errors.New("roster: expected a YAML mapping or sequence")
	}
	return acc.result()
}

type accumulator struct {
	funds []Fund
	seen  map[model.FundCode]struct{}
	err   error
}

func (a *accumulator) add(raw, name string) {
	if a.err != nil {
		return
	}
	code, err := model.ParseFundCode(raw)
	if err != nil {
		a.err = fmt.Errorf("roster: %w", err)
		return
	}
	if a.seen == nil {
		a.seen = make(map[model.FundCode]struct{})
	}
	if _, dup := a.seen[code]; dup {
		return
	}
	a.seen[code] = struct{}{}
	a.funds = append(a.funds, Fund{Code: code, Name: strings.TrimSpace(name)})
}

func (a *accumulator) result() ([]Fund, error) {
	if a.err != nil {
		return nil, a.err
	}
	if len(a.funds) == 0 {
		return nil, errors.New("roster: no funds listed")
	}
	return a.funds, nil
}
