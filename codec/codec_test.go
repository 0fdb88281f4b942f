package codec

import (
	"bytes"
	"strings"
	"testing"
)

type sample struct {
	UID  string `json:"uid" msgpack:"uid" cbor:"uid"`
	Name string `json:"name" msgpack:"name" cbor:"name"`
}

func TestJSONRoundTrip(t *testing.T) {
	c := JSON[sample]{}
	in := sample{UID: "800000001", Name: "Qingque"}

	b, err := c.Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := c.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out != in {
		t.Fatalf("roundtrip = %+v, want %+v", out, in)
	}

	if _, err := c.Decode([]byte("{broken")); err == nil {
		t.Fatalf("Decode accepted malformed JSON")
	}
}

func TestBytesIsIdentity(t *testing.T) {
	c := Bytes{}
	in := []byte{0x89, 'P', 'N', 'G', 0x00}

	b, err := c.Encode(in)
	if err != nil || !bytes.Equal(b, in) {
		t.Fatalf("Encode: b=%x err=%v", b, err)
	}
	out, err := c.Decode(b)
	if err != nil || !bytes.Equal(out, in) {
		t.Fatalf("Decode: out=%x err=%v", out, err)
	}
}

func TestLimitBlocksOversizedDecode(t *testing.T) {
	c := Limit[string]{Inner: String{}, MaxDecode: 8}

	big := []byte(strings.Repeat("x", 9))
	if _, err := c.Decode(big); err == nil {
		t.Fatalf("Decode accepted a payload over MaxDecode")
	}

	small, err := c.Decode([]byte("ok"))
	if err != nil || small != "ok" {
		t.Fatalf("Decode small: %q %v", small, err)
	}

	// Encode is never limited.
	if _, err := c.Encode(strings.Repeat("y", 100)); err != nil {
		t.Fatalf("Encode: %v", err)
	}
}
