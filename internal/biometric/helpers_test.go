package biometric

import "encoding/json"

func jsonUnmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func jsonMarshal(v any) []byte {
	data, _ := json.Marshal(v)
	return data
}
