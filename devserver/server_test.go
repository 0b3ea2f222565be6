package devserver

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/stratosdb/pagestore/common"
)

func startServer(t *testing.T) *Server {
	t.Helper()
	server := NewServer("127.0.0.1:0")
	require.NoError(t, server.Start())
	t.Cleanup(func() {
		require.NoError(t, server.Stop())
	})
	return server
}

func TestStopShutsDownServeGoroutine(t *testing.T) {
	before := common.RunningGRCount()
	server := NewServer("127.0.0.1:0")
	require.NoError(t, server.Start())
	require.Equal(t, before+1, common.RunningGRCount())
	require.NoError(t, server.Stop())
	// The count drops once the serve loop actually returns
	require.Eventually(t, func() bool {
		return common.RunningGRCount() == before
	}, 5*time.Second, 1*time.Millisecond)
}

func TestPing(t *testing.T) {
	server := startServer(t)
	resp, err := http.Get(fmt.Sprintf("http://%s/api/v1/ping", server.ListenAddress()))
	require.NoError(t, err)
	defer closeBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "ok", gjson.GetBytes(body, "status").String())
}

func TestPingWrongMethod(t *testing.T) {
	server := startServer(t)
	resp, err := http.Post(fmt.Sprintf("http://%s/api/v1/ping", server.ListenAddress()), "application/json", nil)
	require.NoError(t, err)
	defer closeBody(t, resp)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestGetPageNotFound(t *testing.T) {
	server := startServer(t)
	resp, err := http.Post(fmt.Sprintf("http://%s/api/v1/get_page", server.ListenAddress()),
		"application/json", bytes.NewReader([]byte(`{"space_id":1,"page_no":2,"lsn":3}`)))
	require.NoError(t, err)
	defer closeBody(t, resp)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "error", gjson.GetBytes(body, "status").String())
}

func TestGetPageFound(t *testing.T) {
	server := startServer(t)
	page := []byte("sixteen byte pag")
	require.NoError(t, server.Store().PutPage(1, 2, 30, page))

	resp, err := http.Post(fmt.Sprintf("http://%s/api/v1/get_page", server.ListenAddress()),
		"application/json", bytes.NewReader([]byte(`{"space_id":1,"page_no":2,"lsn":3}`)))
	require.NoError(t, err)
	defer closeBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "success", gjson.GetBytes(body, "status").String())
	require.Equal(t, uint64(30), gjson.GetBytes(body, "page_lsn").Uint())
	decoded, err := base64.StdEncoding.DecodeString(gjson.GetBytes(body, "page_data").String())
	require.NoError(t, err)
	require.Equal(t, page, decoded)
}

func TestStreamWAL(t *testing.T) {
	server := startServer(t)
	walB64 := base64.StdEncoding.EncodeToString([]byte("wal record"))
	resp, err := http.Post(fmt.Sprintf("http://%s/api/v1/stream_wal", server.ListenAddress()),
		"application/json", bytes.NewReader([]byte(fmt.Sprintf(`{"lsn":99,"wal_data":"%s"}`, walB64))))
	require.NoError(t, err)
	defer closeBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "success", gjson.GetBytes(body, "status").String())
	require.Equal(t, uint64(99), gjson.GetBytes(body, "last_applied_lsn").Uint())
	require.Equal(t, 1, server.Store().WALRecordCount())
}

func TestStreamWALInvalidBase64(t *testing.T) {
	server := startServer(t)
	resp, err := http.Post(fmt.Sprintf("http://%s/api/v1/stream_wal", server.ListenAddress()),
		"application/json", bytes.NewReader([]byte(`{"lsn":99,"wal_data":"%%%not base64%%%"}`)))
	require.NoError(t, err)
	defer closeBody(t, resp)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, 0, server.Store().WALRecordCount())
}

func closeBody(t *testing.T, resp *http.Response) {
	t.Helper()
	require.NoError(t, resp.Body.Close())
}
