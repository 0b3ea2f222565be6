package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestEncodeGetPageRequest(t *testing.T) {
	body := EncodeGetPageRequest(7, 1234, 987654321)
	require.Equal(t, `{"space_id":7,"page_no":1234,"lsn":987654321}`, body)
	// The rendered body must be well-formed for any real JSON consumer
	parsed := gjson.Parse(body)
	require.Equal(t, uint64(7), parsed.Get("space_id").Uint())
	require.Equal(t, uint64(1234), parsed.Get("page_no").Uint())
	require.Equal(t, uint64(987654321), parsed.Get("lsn").Uint())
}

func TestEncodeStreamWALRequest(t *testing.T) {
	walData := []byte{0x01, 0x02, 0x03, 0x04}
	body := EncodeStreamWALRequest(42, walData)
	parsed := gjson.Parse(body)
	require.Equal(t, uint64(42), parsed.Get("lsn").Uint())
	require.Equal(t, Encode(walData), parsed.Get("wal_data").String())
}

func TestGetStringField(t *testing.T) {
	body := []byte(`{"status":"success","page_data":"QUJD"}`)
	status, ok := GetStringField(body, "status")
	require.True(t, ok)
	require.Equal(t, "success", status)
	pageData, ok := GetStringField(body, "page_data")
	require.True(t, ok)
	require.Equal(t, "QUJD", pageData)
}

func TestGetStringFieldOrderAndWhitespaceIndependent(t *testing.T) {
	body := []byte("{ \"page_data\" :\t\"QUJD\" ,\r\n  \"status\": \"success\" }")
	status, ok := GetStringField(body, "status")
	require.True(t, ok)
	require.Equal(t, "success", status)
	pageData, ok := GetStringField(body, "page_data")
	require.True(t, ok)
	require.Equal(t, "QUJD", pageData)
}

func TestGetStringFieldAbsent(t *testing.T) {
	body := []byte(`{"status":"success"}`)
	_, ok := GetStringField(body, "page_data")
	require.False(t, ok)
}

func TestGetStringFieldKeyInsideValueDoesNotMatch(t *testing.T) {
	// "status" appears inside another field's value - a substring search
	// would find it, the scanner must not
	body := []byte(`{"error":"no status for you","status":"success"}`)
	status, ok := GetStringField(body, "status")
	require.True(t, ok)
	require.Equal(t, "success", status)

	body = []byte(`{"error":"status: broken"}`)
	_, ok = GetStringField(body, "status")
	require.False(t, ok)
}

func TestGetStringFieldEscapes(t *testing.T) {
	body := []byte(`{"status":"line\none\ttab\rret \"quoted\" back\\slash"}`)
	status, ok := GetStringField(body, "status")
	require.True(t, ok)
	require.Equal(t, "line\none\ttab\rret \"quoted\" back\\slash", status)
}

func TestGetUint64Field(t *testing.T) {
	body := []byte(`{"status":"success","page_lsn":42}`)
	lsn, ok := GetUint64Field(body, "page_lsn")
	require.True(t, ok)
	require.Equal(t, uint64(42), lsn)
}

func TestGetUint64FieldLargeValue(t *testing.T) {
	body := []byte(`{"page_lsn":18446744073709551615}`)
	lsn, ok := GetUint64Field(body, "page_lsn")
	require.True(t, ok)
	require.Equal(t, uint64(18446744073709551615), lsn)
}

func TestGetUint64FieldAbsent(t *testing.T) {
	body := []byte(`{"status":"success"}`)
	_, ok := GetUint64Field(body, "page_lsn")
	require.False(t, ok)
}

func TestGetUint64FieldNotANumber(t *testing.T) {
	body := []byte(`{"page_lsn":"forty-two"}`)
	_, ok := GetUint64Field(body, "page_lsn")
	require.False(t, ok)
}

func TestGetFieldsFromEmptyBody(t *testing.T) {
	_, ok := GetStringField(nil, "status")
	require.False(t, ok)
	_, ok = GetUint64Field([]byte{}, "page_lsn")
	require.False(t, ok)
}
