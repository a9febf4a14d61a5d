package etcd

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/tarantool/go-rangekv/region"
)

// record is the msgpack wire form of a region descriptor as stored by the
// placement service.
type record struct {
	ID       uint64 `msgpack:"id"`
	StartKey []byte `msgpack:"start_key"`
	EndKey   []byte `msgpack:"end_key"`
	Epoch    uint64 `msgpack:"epoch"`
	Leader   string `msgpack:"leader"`
}

func encodeRecord(desc region.Descriptor) ([]byte, error) {
	data, err := msgpack.Marshal(record{
		ID:       desc.ID,
		StartKey: desc.StartKey,
		EndKey:   desc.EndKey,
		Epoch:    desc.Epoch,
		Leader:   desc.Leader,
	})
	if err != nil {
		return nil, fmt.Errorf("encode region record: %w", err)
	}

	return data, nil
}

func decodeRecord(data []byte) (region.Descriptor, error) {
	var rec record
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return region.Descriptor{}, fmt.Errorf("decode region record: %w", err)
	}

	return region.Descriptor{
		ID:       rec.ID,
		StartKey: rec.StartKey,
		EndKey:   rec.EndKey,
		Epoch:    rec.Epoch,
		Leader:   rec.Leader,
	}, nil
}
