package credentials

import "context"

type Repository interface {
	Get(ctx context.Context, service, account string) (Credential, error)
	Set(ctx context.Context, credential Credential) error
	Delete(ctx context.Context, service, account string) error
	FindByService(ctx context.Context, service string) ([]Credential, error)
	DeleteByService(ctx context.Context, service string) (int, error)
}
