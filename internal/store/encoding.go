package store

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/elrafoon/ptnet-mgr/internal/model"
)

func encodeNodeRecord(rec *model.NodeRecord) ([]byte, error) {
	b, err := cbor.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode node record: %w", err)
	}
	return b, nil
}

func decodeNodeRecord(b []byte) (*model.NodeRecord, error) {
	var rec model.NodeRecord
	if err := cbor.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode node record: %w", err)
	}
	return &rec, nil
}

func encodeFWUState(st *model.FWUState) ([]byte, error) {
	b, err := cbor.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fwu state: %w", err)
	}
	return b, nil
}

func decodeFWUState(b []byte) (*model.FWUState, error) {
	var st model.FWUState
	if err := cbor.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("failed to decode fwu state: %w", err)
	}
	return &st, nil
}
