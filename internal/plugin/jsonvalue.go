package plugin

import (
	"encoding/json"
	"fmt"

	"github.com/ColtMcG1/Mainstage/internal/ir"
)

// valuesToJSON serializes a call's argument list to the ABI's args_json
// shape: a plain JSON array, numbers/strings/bools/null mapped directly,
// Symbol as its name string, Array/Object recursively.
func valuesToJSON(args []ir.Value) ([]byte, error) {
	out := make([]interface{}, len(args))
	for i, a := range args {
		out[i] = valueToAny(a)
	}
	return json.Marshal(out)
}

func valueToAny(v ir.Value) interface{} {
	switch v.Kind {
	case ir.KindNull:
		return nil
	case ir.KindInt:
		return v.Int
	case ir.KindFloat:
		return v.Float
	case ir.KindBool:
		return v.Bool
	case ir.KindStr, ir.KindSymbol:
		return v.Str
	case ir.KindArray:
		out := make([]interface{}, len(v.Array))
		for i, e := range v.Array {
			out[i] = valueToAny(e)
		}
		return out
	case ir.KindObject:
		out := make(map[string]interface{}, len(v.Object))
		for k, e := range v.Object {
			out[k] = valueToAny(e)
		}
		return out
	}
	return nil
}

// errorEnvelope is the shape a plugin_call_json implementation returns to
// signal a failure, per §6.3: {"error":"message"}.
type errorEnvelope struct {
	Error string `json:"error"`
}

// jsonToValue decodes a plugin_call_json return value. An {"error":...}
// object is surfaced as a Go error rather than an ir.Value.
func jsonToValue(data []byte) (ir.Value, error) {
	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err == nil && env.Error != "" {
		return ir.Value{}, fmt.Errorf("%s", env.Error)
	}

	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return ir.Value{}, fmt.Errorf("invalid json from plugin: %w", err)
	}
	return anyToValue(raw), nil
}

func anyToValue(raw interface{}) ir.Value {
	switch t := raw.(type) {
	case nil:
		return ir.Null()
	case bool:
		return ir.Bool(t)
	case float64:
		if t == float64(int64(t)) {
			return ir.Int(int64(t))
		}
		return ir.Float(t)
	case string:
		return ir.Str(t)
	case []interface{}:
		out := make([]ir.Value, len(t))
		for i, e := range t {
			out[i] = anyToValue(e)
		}
		return ir.Arr(out)
	case map[string]interface{}:
		out := make(map[string]ir.Value, len(t))
		for k, e := range t {
			out[k] = anyToValue(e)
		}
		return ir.Obj(out)
	}
	return ir.Null()
}
