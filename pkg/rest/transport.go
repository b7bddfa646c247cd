package rest

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/edgex-exchange/edgex-sdk-go/pkg/signing"
)

// authTransport signs every outbound request: it captures the wall clock,
// canonicalizes method/path/query/body, and attaches the timestamp and
// signature headers. Signing failure aborts the request; it is never
// retried because the same input fails identically. A client built
// without a key sends requests unsigned, which the public endpoints
// accept.
type authTransport struct {
	base   http.RoundTripper
	signer signing.Signer
	key    signing.PrivateKey
	now    func() time.Time
}

func newAuthTransport(base http.RoundTripper, signer signing.Signer, key signing.PrivateKey) *authTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &authTransport{
		base:   base,
		signer: signer,
		key:    key,
		now:    time.Now,
	}
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.key == "" {
		return t.base.RoundTrip(req)
	}

	signed := req.Clone(req.Context())

	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}
		signed.Body = io.NopCloser(bytes.NewReader(body))
		signed.ContentLength = int64(len(body))
	}

	timestamp := t.now().UnixMilli()

	sig, err := signing.SignRequest(t.signer, t.key, signing.Request{
		Method:    req.Method,
		Path:      req.URL.Path,
		Query:     splitRawQuery(req.URL.RawQuery),
		Body:      body,
		Timestamp: timestamp,
	})
	if err != nil {
		return nil, err
	}

	signed.Header.Set(signing.HeaderTimestamp, strconv.FormatInt(timestamp, 10))
	signed.Header.Set(signing.HeaderSignature, sig.String())

	return t.base.RoundTrip(signed)
}

// splitRawQuery returns the raw "key=value" tokens in URL order, or nil
// when there is no query.
func splitRawQuery(rawQuery string) []string {
	if rawQuery == "" {
		return nil
	}
	return strings.Split(rawQuery, "&")
}
