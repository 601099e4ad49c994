package cache

import (
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"lukechampine.com/blake3"
)

// Response is an immutable snapshot of an HTTP response
type Response struct {
	// Status is the HTTP status code
	Status int `json:"status"`

	// Header holds the response headers
	Header http.Header `json:"header"`

	// Body holds the complete response body
	Body []byte `json:"body"`

	// StoredAt is the time the snapshot was taken
	StoredAt JSONTime `json:"storedAt"`

	// Hash is the hex encoded blake3 sum of Body
	Hash string `json:"hash"`
}

// NewResponse builds a response snapshot from its parts.
// The header and body are copied.
func NewResponse(status int, header http.Header, body []byte) *Response {
	b := make([]byte, len(body))
	copy(b, body)
	if header == nil {
		header = http.Header{}
	}

	return &Response{
		Status:   status,
		Header:   header.Clone(),
		Body:     b,
		StoredAt: JSONTime(time.Now()),
		Hash:     hashBody(b),
	}
}

// ReadResponse drains and closes the body of res into a snapshot
func ReadResponse(res *http.Response) (*Response, error) {
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	return NewResponse(res.StatusCode, res.Header, body), nil
}

// OK reports whether the status is in the 2xx range
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status <= 299
}

// Verify reports whether the body still matches the stored hash
func (r *Response) Verify() bool {
	return r.Hash == hashBody(r.Body)
}

// Clone returns a deep copy of the response
func (r *Response) Clone() *Response {
	c := *r
	c.Header = r.Header.Clone()
	c.Body = make([]byte, len(r.Body))
	copy(c.Body, r.Body)

	return &c
}

// WriteTo writes the response to res
func (r *Response) WriteTo(res http.ResponseWriter) error {
	for name, values := range r.Header {
		for _, v := range values {
			res.Header().Add(name, v)
		}
	}
	res.Header().Set("Content-Length", strconv.Itoa(len(r.Body)))
	res.WriteHeader(r.Status)
	_, err := res.Write(r.Body)
	if err != nil {
		return errors.Wrap(err, "failed to write response body")
	}

	return nil
}

func hashBody(body []byte) string {
	sum := blake3.Sum256(body)
	return hex.EncodeToString(sum[:])
}
