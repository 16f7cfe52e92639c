package protocol

import "github.com/vmihailenco/msgpack/v5"

func mustEncodeRawMap(m map[string]interface{}) []byte {
	data, err := msgpack.Marshal(m)
	if err != nil {
		panic(err)
	}
	return data
}

func encodeMapWithExtraKey() ([]byte, error) {
	return msgpack.Marshal(map[string]interface{}{
		"type":              TypeWSClose,
		"ws_id":             "w1",
		"unexpected_field":  "ignored",
	})
}
