package datasource

import (
	"bytes"
	"fmt"

	"github.com/oklog/ulid/v2"
)

// ErrorID is an opaque, host-invisible diagnostic identifier stamped on
// every queued error record. It exists purely so a log line and a queued
// ErrorRecord can be correlated by a human or a test without relying on
// wall-clock time or slice position. It plays no role in the wire protocol.
//
// comparable
type ErrorID [16]byte

func NewErrorID() ErrorID {
	return ErrorID(ulid.Make())
}

func (self ErrorID) String() string {
	return encodeUlid(self)
}

func (self ErrorID) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('"')
	buf.WriteString(encodeUlid(self))
	buf.WriteByte('"')
	return buf.Bytes(), nil
}

func encodeUlid(src [16]byte) string {
	return fmt.Sprintf("%x-%x-%x-%x-%x", src[0:4], src[4:6], src[6:8], src[8:10], src[10:16])
}
