package remote

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"
)

// contentType is the wire content type for every RPC, per SPEC_FULL.md
// §4.10.
const contentType = "application/x-protobuf"

// Client is the RPC client described in SPEC_FULL.md §4.10: three calls
// over HTTP, each POSTing a protobuf-wire-encoded message and reading
// back one in response. Grounded on the teacher's cmd/get/main.go, which
// wraps an http.Transport with a custom DialContext; here the wrapping
// is one layer up, at the RPC-call level instead of the dial level,
// since the remote variant has no raw-socket stats to gather.
type Client struct {
	addr string
	http *http.Client
}

// NewClient constructs a Client against addr (host:port, no scheme).
func NewClient(addr string, timeout time.Duration) *Client {
	return &Client{
		addr: addr,
		http: &http.Client{Timeout: timeout},
	}
}

func (c *Client) post(path string, body []byte) ([]byte, error) {
	url := fmt.Sprintf("http://%s/%s", c.addr, path)
	resp, err := c.http.Post(url, contentType, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("remote: post %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote: post %s: status %d", path, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Close issues ecat.Close; the remote server releases its link.
func (c *Client) Close() error {
	_, err := c.post("ecat.Close", nil)
	return err
}

// SendData issues ecat.SendData with the packed TX bytes, returning the
// server's reported success flag.
func (c *Client) SendData(data []byte) (bool, error) {
	body, err := c.post("ecat.SendData", marshalTxRawData(TxRawData{Data: data}))
	if err != nil {
		return false, err
	}
	resp, err := unmarshalSendResponse(body)
	if err != nil {
		return false, fmt.Errorf("remote: decode SendResponse: %w", err)
	}
	return resp.Success, nil
}

// ReadData issues ecat.ReadData and returns the packed RX bytes.
func (c *Client) ReadData() ([]byte, error) {
	body, err := c.post("ecat.ReadData", nil)
	if err != nil {
		return nil, err
	}
	resp, err := unmarshalRxRawData(body)
	if err != nil {
		return nil, fmt.Errorf("remote: decode RxRawData: %w", err)
	}
	return resp.Data, nil
}
