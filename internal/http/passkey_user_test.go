package http

import (
	"bytes"
	"testing"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/google/uuid"

	"github.com/ecoa/zeladoria/internal/repo"
)

func TestPasskeyUserAdapter(t *testing.T) {
	name := "João Silva"
	user := repo.User{ID: uuid.New(), Email: "usuario@ecoa.com", Name: &name}
	stored := []repo.PasskeyCredential{{
		CredentialID: []byte{1, 2, 3},
		PublicKey:    []byte{9},
		SignCount:    7,
		Transports:   []string{"USB", " hybrid ", "smart-card"},
		AAGUID:       []byte{4, 4},
	}}

	pu := newPasskeyUser(user, stored)
	if !bytes.Equal(pu.WebAuthnID(), user.ID[:]) {
		t.Fatal("webauthn id must be the raw user uuid")
	}
	if pu.WebAuthnDisplayName() != "João Silva" || pu.WebAuthnName() != "usuario@ecoa.com" {
		t.Fatalf("unexpected names %q %q", pu.WebAuthnName(), pu.WebAuthnDisplayName())
	}

	creds := pu.WebAuthnCredentials()
	if len(creds) != 1 || creds[0].Authenticator.SignCount != 7 {
		t.Fatalf("unexpected credentials %+v", creds)
	}
	want := []protocol.AuthenticatorTransport{protocol.USB, protocol.Hybrid, "smart-card"}
	for i, tr := range want {
		if creds[0].Transport[i] != tr {
			t.Fatalf("transport %d: expected %q, got %q", i, tr, creds[0].Transport[i])
		}
	}
	if len(pu.exclusions()) != 1 {
		t.Fatal("existing credentials must be excluded on registration")
	}

	stored[0].CredentialID[0] = 42
	if creds[0].ID[0] != 1 {
		t.Fatal("credential bytes must be copied")
	}

	back := storedFromCredential(user.ID, &creds[0])
	if back.UserID != user.ID || back.SignCount != 7 || len(back.Transports) != 3 {
		t.Fatalf("unexpected round trip %+v", back)
	}
}

func TestPasskeyUserWithoutName(t *testing.T) {
	pu := newPasskeyUser(repo.User{ID: uuid.New(), Email: "a@ecoa.com"}, nil)
	if pu.WebAuthnDisplayName() != "a@ecoa.com" {
		t.Fatalf("display name must fall back to email, got %q", pu.WebAuthnDisplayName())
	}
	if len(pu.WebAuthnCredentials()) != 0 {
		t.Fatal("expected no credentials")
	}
}
