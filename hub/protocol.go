package hub

import (
	"bytes"
	"encoding/json"
)

const recordSeparator byte = 0x1e

const (
	invocationMessageType       = 1
	streamItemMessageType       = 2
	completionMessageType       = 3
	streamInvocationMessageType = 4
	cancelInvocationMessageType = 5
	pingMessageType             = 6
	closeMessageType            = 7
)

type handshakeRequest struct {
	Protocol string `json:"protocol"`
	Version  int    `json:"version"`
}

type handshakeResponse struct {
	Error string `json:"error,omitempty"`
}

type hubMessage struct {
	Type int `json:"type"`
}

type invocationMessage struct {
	Type         int               `json:"type"`
	InvocationID string            `json:"invocationId,omitempty"`
	Target       string            `json:"target"`
	Arguments    []json.RawMessage `json:"arguments"`
}

type closeMessage struct {
	Type           int    `json:"type"`
	Error          string `json:"error,omitempty"`
	AllowReconnect bool   `json:"allowReconnect,omitempty"`
}

func encodeRecord(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(raw, recordSeparator), nil
}

var pingRecord = []byte{'{', '"', 't', 'y', 'p', 'e', '"', ':', '6', '}', recordSeparator}

// recordReader reassembles separator-terminated records that may be split
// across, or batched within, transport frames.
type recordReader struct {
	pending []byte
}

func (r *recordReader) feed(data []byte) [][]byte {
	r.pending = append(r.pending, data...)
	var records [][]byte
	for {
		idx := bytes.IndexByte(r.pending, recordSeparator)
		if idx < 0 {
			break
		}
		record := make([]byte, idx)
		copy(record, r.pending[:idx])
		r.pending = r.pending[idx+1:]
		if len(bytes.TrimSpace(record)) > 0 {
			records = append(records, record)
		}
	}
	if len(r.pending) == 0 {
		r.pending = nil
	}
	return records
}
