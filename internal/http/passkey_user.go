package http

import (
	"strings"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"

	"github.com/ecoa/zeladoria/internal/repo"
)

// passkeyUser adapta repo.User à interface webauthn.User.
type passkeyUser struct {
	user        repo.User
	credentials []webauthn.Credential
}

func newPasskeyUser(user repo.User, stored []repo.PasskeyCredential) *passkeyUser {
	creds := make([]webauthn.Credential, 0, len(stored))
	for _, pk := range stored {
		creds = append(creds, credentialFromStored(pk))
	}
	return &passkeyUser{user: user, credentials: creds}
}

func (u *passkeyUser) WebAuthnID() []byte {
	id := u.user.ID
	return id[:]
}

func (u *passkeyUser) WebAuthnName() string { return u.user.Email }

func (u *passkeyUser) WebAuthnDisplayName() string {
	if u.user.Name != nil && *u.user.Name != "" {
		return *u.user.Name
	}
	return u.user.Email
}

func (u *passkeyUser) WebAuthnCredentials() []webauthn.Credential { return u.credentials }

func (u *passkeyUser) exclusions() []protocol.CredentialDescriptor {
	out := make([]protocol.CredentialDescriptor, 0, len(u.credentials))
	for _, cred := range u.credentials {
		out = append(out, cred.Descriptor())
	}
	return out
}

func credentialFromStored(pk repo.PasskeyCredential) webauthn.Credential {
	cred := webauthn.Credential{
		ID:        append([]byte(nil), pk.CredentialID...),
		PublicKey: append([]byte(nil), pk.PublicKey...),
		Transport: parseTransports(pk.Transports),
	}
	cred.Authenticator.SignCount = pk.SignCount
	cred.Authenticator.CloneWarning = pk.Cloned
	cred.Authenticator.AAGUID = append([]byte(nil), pk.AAGUID...)
	return cred
}

func storedFromCredential(userID uuid.UUID, cred *webauthn.Credential) repo.CreatePasskeyParams {
	transports := make([]string, 0, len(cred.Transport))
	for _, t := range cred.Transport {
		transports = append(transports, string(t))
	}
	return repo.CreatePasskeyParams{
		UserID:       userID,
		CredentialID: cred.ID,
		PublicKey:    cred.PublicKey,
		SignCount:    cred.Authenticator.SignCount,
		Transports:   transports,
		AAGUID:       cred.Authenticator.AAGUID,
		Cloned:       cred.Authenticator.CloneWarning,
	}
}

var knownTransports = map[string]protocol.AuthenticatorTransport{
	"usb":      protocol.USB,
	"nfc":      protocol.NFC,
	"ble":      protocol.BLE,
	"internal": protocol.Internal,
	"hybrid":   protocol.Hybrid,
	"cable":    protocol.Hybrid,
}

func parseTransports(values []string) []protocol.AuthenticatorTransport {
	if len(values) == 0 {
		return nil
	}
	out := make([]protocol.AuthenticatorTransport, 0, len(values))
	for _, v := range values {
		if t, ok := knownTransports[strings.ToLower(strings.TrimSpace(v))]; ok {
			out = append(out, t)
			continue
		}
		out = append(out, protocol.AuthenticatorTransport(v))
	}
	return out
}
