package rules

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/diegoholiveira/jsonlogic/v3"
	"github.com/pkg/errors"
)

// Evaluate applies a JSONLogic condition to vars and reports whether the result is truthy.
// An empty condition always holds.
func Evaluate(condition json.RawMessage, vars map[string]interface{}) (bool, error) {
	if len(bytes.TrimSpace(condition)) == 0 {
		return true, nil
	}

	dataJSON, err := json.Marshal(vars)
	if err != nil {
		return false, errors.Wrap(err, "encoding condition data")
	}

	var resultBuffer bytes.Buffer
	err = jsonlogic.Apply(bytes.NewReader(condition), bytes.NewReader(dataJSON), &resultBuffer)
	if err != nil {
		return false, errors.Wrap(err, "evaluating condition")
	}

	resultStr := strings.TrimSpace(resultBuffer.String())
	if resultStr == "" || resultStr == "null" {
		return false, nil
	}

	var res interface{}
	decoder := json.NewDecoder(strings.NewReader(resultStr))
	decoder.UseNumber()
	if err := decoder.Decode(&res); err != nil {
		return false, errors.Wrap(err, "decoding condition result")
	}
	return truthy(res), nil
}

// truthy follows JSONLogic: false, null, 0, "" and [] are falsy.
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case float64:
		return t != 0
	case string:
		return t != ""
	case []interface{}:
		return len(t) > 0
	}
	return true
}
