package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// anexos nunca são sobrescritos: cada upload ganha chave nova
const immutableCache = "public, max-age=31536000, immutable"

// BucketConfig aponta para um bucket S3 compatível.
type BucketConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// Bucket implementa Blobs sobre minio-go.
type Bucket struct {
	client *minio.Client
	name   string
	base   string
}

// NewBucket conecta, cria o bucket se faltar e libera leitura anônima dos objetos.
func NewBucket(ctx context.Context, cfg BucketConfig) (*Bucket, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("storage: MINIO_ENDPOINT e MINIO_BUCKET são obrigatórios")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: cliente: %w", err)
	}

	if err := ensureBucket(ctx, client, cfg.Bucket); err != nil {
		return nil, err
	}
	if err := client.SetBucketPolicy(ctx, cfg.Bucket, anonymousReadPolicy(cfg.Bucket)); err != nil {
		log.Warn().Err(err).Str("bucket", cfg.Bucket).Msg("política de leitura não aplicada")
	}

	return &Bucket{client: client, name: cfg.Bucket, base: objectBase(cfg)}, nil
}

func ensureBucket(ctx context.Context, client *minio.Client, name string) error {
	exists, err := client.BucketExists(ctx, name)
	if err != nil {
		return fmt.Errorf("storage: bucket %s: %w", name, err)
	}
	if exists {
		return nil
	}
	if err := client.MakeBucket(ctx, name, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("storage: criar bucket %s: %w", name, err)
	}
	log.Info().Str("bucket", name).Msg("bucket criado")
	return nil
}

func (b *Bucket) Put(ctx context.Context, obj Object) (*Stored, error) {
	if obj.Key == "" || obj.Body == nil {
		return nil, errors.New("storage: objeto sem chave ou conteúdo")
	}
	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info, err := b.client.PutObject(ctx, b.name, obj.Key, obj.Body, obj.Size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: immutableCache,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: gravar %s: %w", obj.Key, err)
	}
	return &Stored{Key: obj.Key, URL: b.URL(obj.Key), ETag: info.ETag}, nil
}

func (b *Bucket) Delete(ctx context.Context, key string) error {
	return b.client.RemoveObject(ctx, b.name, key, minio.RemoveObjectOptions{})
}

// URL é o endereço público do objeto.
func (b *Bucket) URL(key string) string {
	return b.base + "/" + strings.TrimLeft(key, "/")
}

// objectBase resolve o prefixo das URLs: PublicURL (CDN) ou o próprio endpoint com o bucket no path.
func objectBase(cfg BucketConfig) string {
	if base := strings.TrimRight(cfg.PublicURL, "/"); base != "" {
		return base + "/" + cfg.Bucket
	}
	u := url.URL{Scheme: "http", Host: cfg.Endpoint, Path: "/" + cfg.Bucket}
	if cfg.UseSSL {
		u.Scheme = "https"
	}
	return u.String()
}

type policyStatement struct {
	Effect    string   `json:"Effect"`
	Principal any      `json:"Principal"`
	Action    []string `json:"Action"`
	Resource  []string `json:"Resource"`
}

func anonymousReadPolicy(bucket string) string {
	doc := struct {
		Version   string            `json:"Version"`
		Statement []policyStatement `json:"Statement"`
	}{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Effect:    "Allow",
			Principal: map[string][]string{"AWS": {"*"}},
			Action:    []string{"s3:GetObject"},
			Resource:  []string{"arn:aws:s3:::" + bucket + "/solicitacoes/*"},
		}},
	}
	raw, _ := json.Marshal(doc)
	return string(raw)
}
