package auditlog

import "context"

type Repository interface {
	Insert(ctx context.Context, e *Entry) error
	Search(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error)
}
