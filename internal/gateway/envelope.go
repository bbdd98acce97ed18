package gateway

import (
	"encoding/json"
	"fmt"
)

// parseEnvelope splits a remote response body into the inner payload and
// its sibling signature, verifies them, and only then deserializes.
//
// The body is a JSON object with a single payload key plus a top-level
// "sign" field. json.RawMessage preserves the payload's original bytes, so
// the signature is checked against exactly what was transmitted rather
// than a re-serialized approximation.
func (c *Client) parseEnvelope(body, payloadKey string) (*Response, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", errUnexpectedEnvelope, err)
	}

	payload, ok := envelope[payloadKey]
	if !ok {
		// Calls the provider rejects outright come back under a generic
		// error key instead of the operation's response key.
		payload, ok = envelope["error_response"]
		if !ok {
			return nil, fmt.Errorf("%w: missing %q", errUnexpectedEnvelope, payloadKey)
		}
	}

	var signature string
	rawSign, ok := envelope["sign"]
	if !ok {
		return nil, fmt.Errorf("%w: missing sign", errUnexpectedEnvelope)
	}
	if err := json.Unmarshal(rawSign, &signature); err != nil {
		return nil, fmt.Errorf("%w: sign is not a string", errUnexpectedEnvelope)
	}

	if err := c.merchant.Verify(string(payload), signature); err != nil {
		return nil, fmt.Errorf("verify gateway response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}
	resp.raw = string(payload)
	resp.signature = signature
	return &resp, nil
}
