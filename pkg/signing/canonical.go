package signing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// Canonicalize renders req into the exact byte sequence the signature is
// computed over:
//
//	body present:  "{timestamp}{method}{path}{sortedBody}"
//	query present: "{timestamp}{method}{path}{sortedQuery}"
//	otherwise:     "{timestamp}{method}{path}"
//
// The body is re-rendered as compact JSON with object keys sorted
// lexicographically at every depth and array order preserved. Query tokens
// are sorted byte-wise as opaque "key=value" strings, not by decoded key;
// the gateway sorts the same way, so this is a wire-compatibility
// requirement and must not be "fixed".
func Canonicalize(req Request) (string, error) {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(req.Timestamp, 10))
	b.WriteString(req.Method)
	b.WriteString(req.Path)

	switch {
	case len(req.Body) > 0:
		rendered, err := renderBody(req.Body)
		if err != nil {
			return "", err
		}
		b.Write(rendered)
	case len(req.Query) > 0:
		tokens := make([]string, len(req.Query))
		copy(tokens, req.Query)
		sort.Strings(tokens)
		b.WriteString(strings.Join(tokens, "&"))
	}

	return b.String(), nil
}

// Hash returns the Keccak-256 digest of the canonical content.
func Hash(content string) []byte {
	return crypto.Keccak256([]byte(content))
}

// renderBody decodes body as JSON and re-encodes it in minimal form.
// encoding/json writes map keys in sorted order, which gives the sorted
// rendering at every nesting depth; UseNumber keeps numeric literals
// exactly as they appeared so re-rendering is byte-stable.
func renderBody(body []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrMalformedBody)
	}

	var out bytes.Buffer
	enc := json.NewEncoder(&out)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return bytes.TrimRight(out.Bytes(), "\n"), nil
}
