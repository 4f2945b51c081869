package protocol

import (
	"io"

	"github.com/fxamacker/cbor/v2"
)

// CBOR is self-delimiting, so messages go over the stream with no extra
// framing.

func ReadRequest(r io.Reader) (*Request, error) {
	req := &Request{}
	if err := cbor.NewDecoder(r).Decode(req); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	return req, nil
}

func WriteRequest(w io.Writer, req *Request) error {
	return cbor.NewEncoder(w).Encode(req)
}

func ReadResponse(r io.Reader) (*Response, error) {
	resp := &Response{}
	if err := cbor.NewDecoder(r).Decode(resp); err != nil {
		return nil, err
	}
	if err := resp.validate(); err != nil {
		return nil, err
	}
	return resp, nil
}

func WriteResponse(w io.Writer, resp *Response) error {
	return cbor.NewEncoder(w).Encode(resp)
}
