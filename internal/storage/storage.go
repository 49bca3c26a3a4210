package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrNotConfigured indica que a instância roda sem backend de anexos.
var ErrNotConfigured = errors.New("storage: anexos desabilitados")

// Object é o arquivo a gravar; Key já deve vir de AttachmentKey.
type Object struct {
	Key         string
	Body        io.Reader
	Size        int64
	ContentType string
}

// Stored é o que o backend devolve após gravar.
type Stored struct {
	Key  string
	URL  string
	ETag string
}

// Blobs guarda os arquivos anexados às solicitações.
type Blobs interface {
	Put(ctx context.Context, obj Object) (*Stored, error)
	Delete(ctx context.Context, key string) error
}

// AttachmentKey monta a chave do objeto; o nome enviado pelo cliente só contribui com a extensão.
func AttachmentKey(requestID uuid.UUID, fileName string) string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(fileName, `\`, "/")))
	if len(ext) > 10 || strings.ContainsAny(ext, " ?#%") {
		ext = ""
	}
	return "solicitacoes/" + requestID.String() + "/" + uuid.NewString() + ext
}

// Disabled é usado quando STORAGE_PROVIDER=noop.
type Disabled struct{}

func (Disabled) Put(context.Context, Object) (*Stored, error) { return nil, ErrNotConfigured }

func (Disabled) Delete(context.Context, string) error { return ErrNotConfigured }
