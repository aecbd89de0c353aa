package parse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tidwall/jsonc"

	"github.com/aretw0/govmeta/pkg/core"
	"github.com/aretw0/govmeta/pkg/tree"
)

// --- JSON Parser ---

// JSONParser reads JSON and JSON-LD documents.
// Numbers are kept as literals and object key order is preserved.
type JSONParser struct{}

// NewJSONParser creates a new JSON parser.
func NewJSONParser() *JSONParser {
	return &JSONParser{}
}

func (p *JSONParser) Parse(data []byte) (tree.Value, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	v, err := decodeValue(decoder)
	if err != nil {
		return tree.Value{}, fmt.Errorf("%w: invalid json: %v", core.ErrMalformedInput, err)
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return tree.Value{}, fmt.Errorf("%w: invalid json: trailing data after document", core.ErrMalformedInput)
	}
	return v, nil
}

func decodeValue(decoder *json.Decoder) (tree.Value, error) {
	tok, err := decoder.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return tree.Value{}, io.ErrUnexpectedEOF
		}
		return tree.Value{}, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(decoder)
		case '[':
			return decodeArray(decoder)
		default:
			return tree.Value{}, fmt.Errorf("unexpected delimiter %q", t)
		}
	case string:
		return tree.String(t), nil
	case json.Number:
		return tree.Num(t), nil
	case bool:
		return tree.Bool(t), nil
	case nil:
		return tree.Null(), nil
	default:
		return tree.Value{}, fmt.Errorf("unexpected token %v", tok)
	}
}

func decodeObject(decoder *json.Decoder) (tree.Value, error) {
	var members []tree.Member
	for decoder.More() {
		tok, err := decoder.Token()
		if err != nil {
			return tree.Value{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return tree.Value{}, fmt.Errorf("object key is not a string: %v", tok)
		}
		v, err := decodeValue(decoder)
		if err != nil {
			return tree.Value{}, fmt.Errorf("%s: %w", key, err)
		}
		members = append(members, tree.M(key, v))
	}
	if _, err := decoder.Token(); err != nil {
		return tree.Value{}, err
	}
	return tree.Obj(members...), nil
}

func decodeArray(decoder *json.Decoder) (tree.Value, error) {
	var items []tree.Value
	for decoder.More() {
		v, err := decodeValue(decoder)
		if err != nil {
			return tree.Value{}, fmt.Errorf("[%d]: %w", len(items), err)
		}
		items = append(items, v)
	}
	if _, err := decoder.Token(); err != nil {
		return tree.Value{}, err
	}
	return tree.Array(items...), nil
}

// --- JSONC Parser ---

// JSONCParser reads JSON extended with // line comments, /* block comments */
// and trailing commas.
type JSONCParser struct {
	json *JSONParser
}

// NewJSONCParser creates a new JSONC parser.
func NewJSONCParser() *JSONCParser {
	return &JSONCParser{json: NewJSONParser()}
}

func (p *JSONCParser) Parse(data []byte) (tree.Value, error) {
	return p.json.Parse(jsonc.ToJSON(data))
}
