package connector

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/crimson-sun/auditexport/internal/model"
)

// Source is a remote audit history that can be read one page at a time.
// Implementations must be safe for concurrent use.
type Source interface {
	// FetchPage returns up to q.Limit entries of type q.Type, newest first,
	// strictly older than q.Before when it is non-zero.
	FetchPage(ctx context.Context, guildID string, q PageQuery) ([]model.AuditEntry, error)
}

// MaxPageSize is the largest page an audit source serves.
const MaxPageSize = 100

// PageQuery selects one page of audit history.
type PageQuery struct {
	Limit  int
	Type   model.EventType
	Before snowflake.ID // exclusive upper bound entry id; zero on the first page
}

// Config holds provider-specific connection settings.
type Config struct {
	Provider       string
	Token          string
	Endpoint       string
	RequestTimeout time.Duration
}
