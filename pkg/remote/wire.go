package remote

import "google.golang.org/protobuf/encoding/protowire"

// TxRawData, RxRawData, and SendResponse are the three wire messages the
// remote variant's RPC contract carries (SPEC_FULL.md §4.10), encoded by
// hand with protowire's low-level varint/bytes primitives rather than
// generated from a .proto file; there is exactly one field in each
// message, so a full protoc-gen-go pipeline buys nothing.
type TxRawData struct {
	Data []byte
}

type RxRawData struct {
	Data []byte
}

type SendResponse struct {
	Success bool
}

func marshalTxRawData(m TxRawData) []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, 1, protowire.BytesType)
	buf = protowire.AppendBytes(buf, m.Data)
	return buf
}

func unmarshalTxRawData(buf []byte) (TxRawData, error) {
	var m TxRawData
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return m, protowire.ParseError(n)
		}
		buf = buf[n:]
		if num == 1 && typ == protowire.BytesType {
			data, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return m, protowire.ParseError(n)
			}
			m.Data = data
			buf = buf[n:]
			continue
		}
		n = protowire.ConsumeFieldValue(num, typ, buf)
		if n < 0 {
			return m, protowire.ParseError(n)
		}
		buf = buf[n:]
	}
	return m, nil
}

func marshalRxRawData(m RxRawData) []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, 1, protowire.BytesType)
	buf = protowire.AppendBytes(buf, m.Data)
	return buf
}

func unmarshalRxRawData(buf []byte) (RxRawData, error) {
	m, err := unmarshalTxRawData(buf)
	return RxRawData(m), err
}

func marshalSendResponse(m SendResponse) []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, 1, protowire.VarintType)
	var v uint64
	if m.Success {
		v = 1
	}
	buf = protowire.AppendVarint(buf, v)
	return buf
}

func unmarshalSendResponse(buf []byte) (SendResponse, error) {
	var m SendResponse
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return m, protowire.ParseError(n)
		}
		buf = buf[n:]
		if num == 1 && typ == protowire.VarintType {
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return m, protowire.ParseError(n)
			}
			m.Success = v != 0
			buf = buf[n:]
			continue
		}
		n = protowire.ConsumeFieldValue(num, typ, buf)
		if n < 0 {
			return m, protowire.ParseError(n)
		}
		buf = buf[n:]
	}
	return m, nil
}
