package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type ceremonyKind string

const (
	ceremonyRegister ceremonyKind = "register"
	ceremonyLogin    ceremonyKind = "login"
)

var errCeremonyExpired = errors.New("sessão inválida ou expirada")

// ceremonyStore guarda a SessionData de uma cerimônia WebAuthn entre o start e o finish.
type ceremonyStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

type ceremonyRecord struct {
	Session *webauthn.SessionData `json:"session"`
	UserID  uuid.UUID             `json:"user_id"`
}

func newCeremonyStore(rdb redis.Cmdable, ttl time.Duration) *ceremonyStore {
	return &ceremonyStore{rdb: rdb, ttl: ttl}
}

func (c *ceremonyStore) key(kind ceremonyKind, id string) string {
	return fmt.Sprintf("zeladoria:webauthn:%s:%s", kind, id)
}

// Save grava a sessão e devolve o id que o cliente ecoa no finish.
func (c *ceremonyStore) Save(ctx context.Context, kind ceremonyKind, data *webauthn.SessionData, userID uuid.UUID) (string, error) {
	payload, err := json.Marshal(ceremonyRecord{Session: data, UserID: userID})
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	if err := c.rdb.Set(ctx, c.key(kind, id), payload, c.ttl).Err(); err != nil {
		return "", err
	}
	return id, nil
}

// Take lê e apaga a sessão; cada cerimônia vale uma vez.
func (c *ceremonyStore) Take(ctx context.Context, kind ceremonyKind, id string) (*webauthn.SessionData, uuid.UUID, error) {
	if id == "" {
		return nil, uuid.Nil, errCeremonyExpired
	}
	raw, err := c.rdb.GetDel(ctx, c.key(kind, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, uuid.Nil, errCeremonyExpired
	}
	if err != nil {
		return nil, uuid.Nil, err
	}

	var rec ceremonyRecord
	if err := json.Unmarshal(raw, &rec); err != nil || rec.Session == nil || rec.UserID == uuid.Nil {
		return nil, uuid.Nil, errCeremonyExpired
	}
	return rec.Session, rec.UserID, nil
}
