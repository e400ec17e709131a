// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package relay

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// unitMessage is the CBOR body of a frame: [code, data]
type unitMessage struct {
	_    struct{} `cbor:",toarray"`
	Code uint8
	Data []byte
}

func encodeUnitPayload(code byte, data []byte) ([]byte, error) {
	if data == nil {
		data = []byte{}
	}
	return cbor.Marshal(unitMessage{Code: code, Data: data})
}

// ParseUnitPayload decodes a CBOR [code, data] body
func ParseUnitPayload(body []byte) (byte, []byte, error) {
	if len(body) == 0 {
		return 0, nil, fmt.Errorf("empty unit payload")
	}
	var msg unitMessage
	if err := cbor.Unmarshal(body, &msg); err != nil {
		return 0, nil, fmt.Errorf("failed to decode CBOR: %w", err)
	}
	return msg.Code, msg.Data, nil
}
