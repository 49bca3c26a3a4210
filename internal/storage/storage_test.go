package storage

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestDisabledBlobs(t *testing.T) {
	var b Blobs = Disabled{}
	if _, err := b.Put(context.Background(), Object{Key: "a"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if err := b.Delete(context.Background(), "a"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestAttachmentKey(t *testing.T) {
	id := uuid.MustParse("5b0c3f6e-2a47-4f3e-9a55-1f1c7d1c2b10")
	prefix := "solicitacoes/" + id.String() + "/"

	cases := []struct {
		name string
		ext  string
	}{
		{"Foto.JPG", ".jpg"},
		{`C:\Users\joao\laudo.pdf`, ".pdf"},
		{"../../etc/passwd", ""},
		{"sem-extensao", ""},
		{"x.um nome estranho", ""},
	}
	for _, tc := range cases {
		key := AttachmentKey(id, tc.name)
		if !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, tc.ext) {
			t.Fatalf("%q: unexpected key %q", tc.name, key)
		}
		if strings.Count(key, "/") != 2 {
			t.Fatalf("%q: key must not nest paths: %q", tc.name, key)
		}
	}
	if AttachmentKey(id, "a.png") == AttachmentKey(id, "a.png") {
		t.Fatal("keys must be unique per upload")
	}
}

func TestObjectBase(t *testing.T) {
	b := &Bucket{base: objectBase(BucketConfig{Endpoint: "localhost:9000", Bucket: "zeladoria"})}
	if got := b.URL("solicitacoes/1/f.jpg"); got != "http://localhost:9000/zeladoria/solicitacoes/1/f.jpg" {
		t.Fatalf("unexpected url %q", got)
	}

	b.base = objectBase(BucketConfig{Endpoint: "s3.local", Bucket: "zeladoria", UseSSL: true})
	if got := b.URL("/x.pdf"); got != "https://s3.local/zeladoria/x.pdf" {
		t.Fatalf("unexpected url %q", got)
	}

	b.base = objectBase(BucketConfig{Endpoint: "s3.local", Bucket: "zeladoria", PublicURL: "https://cdn.ecoa.gov.br/"})
	if got := b.URL("x.pdf"); got != "https://cdn.ecoa.gov.br/zeladoria/x.pdf" {
		t.Fatalf("unexpected url %q", got)
	}
}

func TestAnonymousReadPolicy(t *testing.T) {
	var doc struct {
		Statement []struct {
			Action   []string
			Resource []string
		}
	}
	if err := json.Unmarshal([]byte(anonymousReadPolicy("zeladoria")), &doc); err != nil {
		t.Fatalf("invalid policy json: %v", err)
	}
	if len(doc.Statement) != 1 || doc.Statement[0].Resource[0] != "arn:aws:s3:::zeladoria/solicitacoes/*" {
		t.Fatalf("unexpected policy %+v", doc)
	}
	if doc.Statement[0].Action[0] != "s3:GetObject" {
		t.Fatalf("policy must only allow reads: %+v", doc.Statement[0].Action)
	}
}

func TestNewBucketRequiresEndpoint(t *testing.T) {
	if _, err := NewBucket(context.Background(), BucketConfig{Bucket: "x"}); err == nil {
		t.Fatal("expected error without endpoint")
	}
}
