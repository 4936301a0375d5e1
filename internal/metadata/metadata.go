// Package metadata is a schema-light secondary index over free-form
// transaction/account metadata. Postgres remains the system of record for
// LedgerTransaction.metadata and Account.metadata; this index exists only
// so operators can query by an arbitrary metadata key without a migration
// per key.
package metadata

import (
	"time"

	"github.com/iancoleman/strcase"
)

// Document is the wire shape stored in mongo for one indexed entity.
type Document struct {
	EntityID   string         `bson:"entity_id"`
	EntityType string         `bson:"entity_type"`
	Data       map[string]any `bson:"metadata"`
	CreatedAt  time.Time      `bson:"created_at"`
	UpdatedAt  time.Time      `bson:"updated_at"`
}

// Normalize lower-cases and snake_cases every top-level key of data so a
// caller's "customerId" and a later caller's "customer_id" land on the same
// Mongo field, regardless of which casing the metadata arrived in.
func Normalize(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))

	for k, v := range data {
		out[strcase.ToSnake(k)] = v
	}

	return out
}
