package detectors

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// envelope tags a serialized detector with its algorithm so any artifact can
// be decoded without knowing what produced it.
type envelope struct {
	Algorithm string
	Payload   []byte
}

func Encode(d Detector) ([]byte, error) {
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(d); err != nil {
		return nil, fmt.Errorf("error encoding %s model: %w", d.Algorithm(), err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(envelope{Algorithm: d.Algorithm(), Payload: payload.Bytes()}); err != nil {
		return nil, fmt.Errorf("error encoding model envelope: %w", err)
	}
	return buf.Bytes(), nil
}

func Decode(data []byte) (Detector, error) {
	var env envelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return nil, fmt.Errorf("error decoding model envelope: %w", err)
	}

	d, err := New(env.Algorithm, Config{})
	if err != nil {
		return nil, err
	}

	if err := gob.NewDecoder(bytes.NewReader(env.Payload)).Decode(d); err != nil {
		return nil, fmt.Errorf("error decoding %s model: %w", env.Algorithm, err)
	}
	return d, nil
}
