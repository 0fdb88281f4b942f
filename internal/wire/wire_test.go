package wire

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestEntryRoundTrip(t *testing.T) {
	fetchedAt := time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.UTC)
	payload := []byte(`{"uid":"800000001"}`)

	b := EncodeEntry(fetchedAt, "v1", payload)
	ent, err := DecodeEntry(b)
	if err != nil {
		t.Fatalf("DecodeEntry: %v", err)
	}
	if !ent.FetchedAt.Equal(fetchedAt) {
		t.Fatalf("FetchedAt = %v, want %v", ent.FetchedAt, fetchedAt)
	}
	if ent.Version != "v1" {
		t.Fatalf("Version = %q, want %q", ent.Version, "v1")
	}
	if !bytes.Equal(ent.Payload, payload) {
		t.Fatalf("Payload = %q, want %q", ent.Payload, payload)
	}
}

func TestEntryEmptyVersionAndPayload(t *testing.T) {
	b := EncodeEntry(time.Unix(0, 1), "", nil)
	ent, err := DecodeEntry(b)
	if err != nil {
		t.Fatalf("DecodeEntry: %v", err)
	}
	if ent.Version != "" || len(ent.Payload) != 0 {
		t.Fatalf("got version=%q payload=%q, want both empty", ent.Version, ent.Payload)
	}
}

func TestArtifactRoundTrip(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G'}
	b := EncodeArtifact("abc123", payload)
	art, err := DecodeArtifact(b)
	if err != nil {
		t.Fatalf("DecodeArtifact: %v", err)
	}
	if art.SourceVersion != "abc123" {
		t.Fatalf("SourceVersion = %q, want %q", art.SourceVersion, "abc123")
	}
	if !bytes.Equal(art.Payload, payload) {
		t.Fatalf("Payload mismatch")
	}
}

func TestDecodeRejectsCorrupt(t *testing.T) {
	good := EncodeEntry(time.Now(), "v1", []byte("payload"))

	mutate := func(f func(b []byte) []byte) []byte {
		cp := append([]byte(nil), good...)
		return f(cp)
	}

	cases := map[string][]byte{
		"empty":     nil,
		"short":     []byte("QQ"),
		"bad magic": mutate(func(b []byte) []byte { b[0] = 'X'; return b }),
		"bad version": mutate(func(b []byte) []byte {
			b[4] = 99
			return b
		}),
		"truncated payload": good[:len(good)-3],
		"trailing garbage":  append(append([]byte(nil), good...), 0xFF),
		"version len past end": mutate(func(b []byte) []byte {
			b[14] = 0xFF // vlen high byte
			return b
		}),
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeEntry(in); !errors.Is(err, ErrCorrupt) {
				t.Fatalf("DecodeEntry(%s) err = %v, want ErrCorrupt", name, err)
			}
		})
	}
}

func TestKindsAreNotInterchangeable(t *testing.T) {
	ent := EncodeEntry(time.Now(), "v1", []byte("p"))
	art := EncodeArtifact("v1", []byte("p"))

	if _, err := DecodeArtifact(ent); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("DecodeArtifact(entry) err = %v, want ErrCorrupt", err)
	}
	if _, err := DecodeEntry(art); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("DecodeEntry(artifact) err = %v, want ErrCorrupt", err)
	}
}
