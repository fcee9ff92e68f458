package transport

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/richard-senior/podds/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamTransportReadsConsecutiveObjects(t *testing.T) {
	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{"q":"a } brace"}}` + "\n" +
		`  {"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n")
	tr := NewStreamTransport(in, io.Discard)

	req, err := tr.ReadRequest()
	require.NoError(t, err)
	assert.Equal(t, "tools/list", req.Method)
	assert.JSONEq(t, `{"q":"a } brace"}`, string(req.Params))

	req, err = tr.ReadRequest()
	require.NoError(t, err)
	assert.Equal(t, "notifications/initialized", req.Method)
	assert.Nil(t, req.ID)

	_, err = tr.ReadRequest()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStreamTransportEscapedQuotes(t *testing.T) {
	in := strings.NewReader(`{"jsonrpc":"2.0","id":"x","method":"m","params":{"s":"say \"}\" \\"}}`)
	req, err := NewStreamTransport(in, io.Discard).ReadRequest()
	require.NoError(t, err)
	assert.Equal(t, "m", req.Method)
}

func TestStreamTransportRejectsBadMessages(t *testing.T) {
	cases := []struct {
		name string
		in   string
		code int
	}{
		{"malformed json", `{"jsonrpc":"2.0","id":1,"method":}`, protocol.ErrParse},
		{"wrong version", `{"jsonrpc":"1.0","id":1,"method":"x"}`, protocol.ErrInvalidRequest},
		{"missing method", `{"jsonrpc":"2.0","id":1}`, protocol.ErrInvalidRequest},
		{"method not a string", `{"jsonrpc":"2.0","id":1,"method":5}`, protocol.ErrInvalidRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewStreamTransport(strings.NewReader(tc.in), io.Discard).ReadRequest()
			var rpcErr *protocol.JsonRpcError
			require.True(t, errors.As(err, &rpcErr))
			assert.Equal(t, tc.code, rpcErr.Code)
		})
	}
}

func TestStreamTransportWriteResponse(t *testing.T) {
	var out bytes.Buffer
	tr := NewStreamTransport(strings.NewReader(""), &out)
	resp, err := protocol.NewJsonRpcResponse(map[string]int{"n": 1}, 7)
	require.NoError(t, err)
	require.NoError(t, tr.WriteResponse(resp))
	assert.Equal(t, `{"jsonrpc":"2.0","result":{"n":1},"id":7}`+"\n", out.String())
}

func TestFetchDecodesContentEncodings(t *testing.T) {
	const payload = `{"teams":[]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gzip, deflate, br", r.Header.Get("Accept-Encoding"))
		switch r.URL.Path {
		case "/gzip":
			w.Header().Set("Content-Encoding", "gzip")
			gz := gzip.NewWriter(w)
			gz.Write([]byte(payload))
			gz.Close()
		case "/br":
			w.Header().Set("Content-Encoding", "br")
			br := brotli.NewWriter(w)
			br.Write([]byte(payload))
			br.Close()
		case "/plain":
			w.Write([]byte(payload))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	for _, path := range []string{"/gzip", "/br", "/plain"} {
		data, err := Fetch(context.Background(), srv.URL+path, "")
		require.NoError(t, err, path)
		assert.Equal(t, payload, string(data), path)
	}

	_, err := Fetch(context.Background(), srv.URL+"/missing", "")
	assert.ErrorContains(t, err, "404")
}
