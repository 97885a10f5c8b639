package bankapi

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"

	"bankledger/internal/domain/bank"
)

const (
	dayFirstLayout = "02/01/2006"
	isoDateLayout  = "2006-01-02"
)

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

// decodeEnvelope unmarshals a SOAP response into v, whose XMLName must be
// Envelope. fault must point at v's Body>Fault field.
func decodeEnvelope(variant bank.Variant, body []byte, v any, fault **soapFault) error {
	if len(strings.TrimSpace(string(body))) == 0 {
		return &bank.ParseError{Variant: variant, Reason: "empty response body"}
	}
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = charsetReader
	if err := dec.Decode(v); err != nil {
		return &bank.ParseError{Variant: variant, Reason: "not a SOAP envelope", Err: err}
	}
	if *fault != nil {
		f := *fault
		return &bank.ParseError{Variant: variant, Reason: fmt.Sprintf("SOAP fault %s: %s", strings.TrimSpace(f.Code), strings.TrimSpace(f.String))}
	}
	return nil
}

// charsetReader transcodes legacy declared encodings (ISO-8859-9,
// windows-1254 and the like) to UTF-8.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

// requireFields returns a ParseError naming the first empty field.
func requireFields(variant bank.Variant, row int, fields ...[2]string) error {
	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			return &bank.ParseError{Variant: variant, Reason: fmt.Sprintf("row %d: missing %s", row, f[0])}
		}
	}
	return nil
}

func optionalIBAN(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func credentialsMismatch(want bank.Variant, got bank.Credentials) error {
	return fmt.Errorf("%w: %s adapter given %s credentials", bank.ErrUnknownVariant, want, got.Variant())
}
