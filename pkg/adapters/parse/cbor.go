package parse

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/aretw0/govmeta/pkg/core"
	"github.com/aretw0/govmeta/pkg/tree"
)

// --- CBOR Parser ---

// decMode decodes generic CBOR into map[string]any so the result converts
// directly into a tree. Non-string map keys are rejected.
var decMode cbor.DecMode

func init() {
	var err error
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("parse: CBOR decoder initialization failed: " + err.Error())
	}
}

// CBORParser reads CBOR-encoded documents. Map keys come out sorted since CBOR
// maps decode without an order. Byte strings become lowercase hex strings and
// tags are replaced by their content.
type CBORParser struct{}

// NewCBORParser creates a new CBOR parser.
func NewCBORParser() *CBORParser {
	return &CBORParser{}
}

func (p *CBORParser) Parse(data []byte) (tree.Value, error) {
	var raw any
	if err := decMode.Unmarshal(data, &raw); err != nil {
		return tree.Value{}, fmt.Errorf("%w: invalid cbor: %v", core.ErrMalformedInput, err)
	}
	v, err := tree.FromAny(normalizeCBOR(raw))
	if err != nil {
		return tree.Value{}, fmt.Errorf("%w: invalid cbor: %v", core.ErrMalformedInput, err)
	}
	return v, nil
}

func normalizeCBOR(x any) any {
	switch t := x.(type) {
	case []byte:
		return hex.EncodeToString(t)
	case cbor.Tag:
		return normalizeCBOR(t.Content)
	case big.Int:
		return tree.Number(t.String())
	case *big.Int:
		return tree.Number(t.String())
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalizeCBOR(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = normalizeCBOR(item)
		}
		return out
	default:
		return x
	}
}
