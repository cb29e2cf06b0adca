// Package serialization provides JSON helpers for payloads that end up in logs or run reports.
package serialization

import (
	"encoding/json"
	"strings"

	"github.com/ulelab/flowAPIscripts/pkg/batch/support/util/exception"
)

const moduleName = "serialization"

// maskedKeys lists keys whose values never appear in logs.
var maskedKeys = []string{"password", "token", "authorization"}

// MaskSecrets returns a shallow copy of fields with credential-like keys replaced.
func MaskSecrets(fields map[string]interface{}) map[string]interface{} {
	if len(fields) == 0 {
		return map[string]interface{}{}
	}
	masked := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		masked[k] = v
		for _, key := range maskedKeys {
			if strings.EqualFold(k, key) {
				masked[k] = "********"
				break
			}
		}
	}
	return masked
}

// MarshalIndented serializes v as indented JSON for reports and debug output.
func MarshalIndented(v interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, exception.NewBatchError(moduleName, exception.KindUnknown, "failed to serialize value", err)
	}
	return data, nil
}

// CompactString serializes v on a single line. Serialization failures are
// rendered as the error text, which keeps it usable directly in log calls.
func CompactString(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "<unserializable: " + err.Error() + ">"
	}
	return string(data)
}
