package llm

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

// errorEnvelopeTransport turns successful responses whose body carries an
// {"error": ...} object into 502 responses, so the client reports them as
// API errors instead of decoding an empty completion.
type errorEnvelopeTransport struct {
	base http.RoundTripper
}

func (t *errorEnvelopeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	resp, err := base.RoundTrip(req)
	if err != nil || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, err
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}

	if envelope, ok := errorEnvelope(body); ok {
		body = envelope
		resp.StatusCode = http.StatusBadGateway
		resp.Status = "502 Bad Gateway"
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	return resp, nil
}

// errorEnvelope reports whether body is an error envelope and returns it in
// the {"error":{"message":...}} form. A bare string error is wrapped.
func errorEnvelope(body []byte) ([]byte, bool) {
	var probe struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, false
	}
	raw := bytes.TrimSpace(probe.Error)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, false
	}

	switch raw[0] {
	case '{':
		var obj struct {
			Message json.RawMessage `json:"message"`
		}
		if json.Unmarshal(raw, &obj) == nil && len(obj.Message) > 0 {
			return body, true
		}
		out, err := json.Marshal(map[string]any{"error": map[string]string{"message": string(raw)}})
		return out, err == nil
	case '"':
		var msg string
		if err := json.Unmarshal(raw, &msg); err != nil || msg == "" {
			return nil, false
		}
		out, err := json.Marshal(map[string]any{"error": map[string]string{"message": msg}})
		return out, err == nil
	default:
		return nil, false
	}
}
