package transport

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/richard-senior/podds/internal/logger"
	"github.com/richard-senior/podds/pkg/protocol"
)

// StdioTransport reads JSON-RPC messages from one stream and writes responses,
// one per line, to another.
type StdioTransport struct {
	reader *bufio.Reader
	mu     sync.Mutex
	writer *bufio.Writer
}

// NewStdioTransport creates a new transport that uses stdin/stdout
func NewStdioTransport() *StdioTransport {
	return NewStreamTransport(os.Stdin, os.Stdout)
}

// NewStreamTransport creates a transport over arbitrary streams.
func NewStreamTransport(r io.Reader, w io.Writer) *StdioTransport {
	return &StdioTransport{
		reader: bufio.NewReader(r),
		writer: bufio.NewWriter(w),
	}
}

// readObject reads bytes up to and including the brace closing the first
// top level JSON object. Braces inside strings are ignored.
func (t *StdioTransport) readObject() ([]byte, error) {
	var (
		data       []byte
		depth      int
		inString   bool
		escapeNext bool
	)
	for {
		b, err := t.reader.ReadByte()
		if err != nil {
			if err == io.EOF && len(data) > 0 && depth > 0 {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		if depth == 0 && b != '{' {
			// whitespace and newlines between messages
			continue
		}
		data = append(data, b)

		switch {
		case escapeNext:
			escapeNext = false
		case inString && b == '\\':
			escapeNext = true
		case b == '"':
			inString = !inString
		case !inString && b == '{':
			depth++
		case !inString && b == '}':
			depth--
			if depth == 0 {
				return data, nil
			}
		}
	}
}

// ReadRequest blocks for the next request. A malformed message is returned as
// a *protocol.JsonRpcError (ErrParse or ErrInvalidRequest) so the caller can
// answer it and keep reading; any other error means the stream is finished.
func (t *StdioTransport) ReadRequest() (*protocol.JsonRpcRequest, error) {
	logger.Debug("Waiting for request on stdin...")
	data, err := t.readObject()
	if err != nil {
		if err == io.EOF {
			logger.Info("Received EOF on stdin, client disconnected")
		} else {
			logger.Error("Error reading from stdin:", err)
		}
		return nil, err
	}
	logger.Debug("Received raw request:", string(data))

	request, err := protocol.ParseJsonRpcRequest(data)
	if err != nil {
		logger.Error("Failed to parse JSON-RPC request:", err)
		return nil, err
	}
	return request, nil
}

// WriteResponse writes a JSON-RPC response followed by a newline
func (t *StdioTransport) WriteResponse(response *protocol.JsonRpcResponse) error {
	responseBytes, err := json.Marshal(response)
	if err != nil {
		logger.Error("Failed to marshal response:", err)
		return err
	}
	responseBytes = append(responseBytes, '\n')

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.writer.Write(responseBytes); err != nil {
		logger.Error("Failed to write response:", err)
		return err
	}
	if err := t.writer.Flush(); err != nil {
		logger.Error("Failed to flush response:", err)
		return err
	}
	logger.Debug("Response sent", len(responseBytes))
	return nil
}
