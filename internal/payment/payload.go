package payment

import (
	"encoding/json"
	"net/url"
)

// Payload is the key/value set a gateway posts to the notification endpoint.
type Payload map[string]string

// PayloadFromForm keeps the first value of every form key.
func PayloadFromForm(form url.Values) Payload {
	p := make(Payload, len(form))
	for k, vs := range form {
		if len(vs) > 0 {
			p[k] = vs[0]
		}
	}
	return p
}

// Get returns the value for key, or "" when absent.
func (p Payload) Get(key string) string {
	if p == nil || key == "" {
		return ""
	}
	return p[key]
}

// Snapshot renders the payload as JSON with keys sorted, for the attempt log.
// Keys listed in redact are masked.
func (p Payload) Snapshot(redact ...string) string {
	masked := make(map[string]string, len(p))
	for k, v := range p {
		masked[k] = v
	}
	for _, k := range redact {
		if _, ok := masked[k]; ok {
			masked[k] = "***"
		}
	}
	b, err := json.Marshal(masked) // encoding/json sorts map keys
	if err != nil {
		return "{}"
	}
	return string(b)
}
