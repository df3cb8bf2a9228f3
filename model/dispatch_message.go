package model

import "encoding/json"

// DispatchMessage is the instruction published to the dispatch queue and stored on
// the DataDispatch row it belongs to.
type DispatchMessage struct {
	Context                   string `json:"context"`
	FileSourceIdentifier      string `json:"file_source_identifier"`
	FileDestinationIdentifier string `json:"file_destination_identifier"`
	FileName                  string `json:"file_name"`
	IdempotencyKey            string `json:"idempotency_key"`
}

func (m DispatchMessage) Encode() (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func DecodeDispatchMessage(body string) (DispatchMessage, error) {
	var m DispatchMessage
	err := json.Unmarshal([]byte(body), &m)
	return m, err
}
