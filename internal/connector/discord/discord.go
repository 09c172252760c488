// Package discord reads guild audit logs from the Discord REST API.
package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/crimson-sun/auditexport/internal/connector"
	"github.com/crimson-sun/auditexport/internal/connector/httpclient"
	"github.com/crimson-sun/auditexport/internal/eventtype"
	"github.com/crimson-sun/auditexport/internal/model"
)

const (
	defaultEndpoint = "https://discord.com/api/v10"
	userAgent       = "DiscordBot (https://github.com/crimson-sun/auditexport, 1.0)"

	// Epoch is the Discord snowflake epoch in unix milliseconds.
	Epoch int64 = 1420070400000

	unknownTarget = "Unknown"
	userTarget    = "User"
)

func init() {
	snowflake.Epoch = Epoch
	connector.Register("discord", func(cfg connector.Config, types *eventtype.Table) (connector.Source, error) {
		return New(cfg, types)
	})
}

// Source implements connector.Source for GET /guilds/{id}/audit-logs.
type Source struct {
	client *httpclient.Client
	types  *eventtype.Table
}

// New creates a Source. cfg.Token is the bot token; cfg.Endpoint overrides
// the API base URL.
func New(cfg connector.Config, types *eventtype.Table) (*Source, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("discord connector: missing bot token")
	}
	if types == nil {
		types = eventtype.Default()
	}
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = defaultEndpoint
	}
	client := httpclient.New(baseURL, cfg.Token,
		httpclient.WithAuthScheme("Bot"),
		httpclient.WithUserAgent(userAgent),
		httpclient.WithTimeout(cfg.RequestTimeout),
	)
	return &Source{client: client, types: types}, nil
}

// Response types (unexported).

type auditLogResponse struct {
	Entries []rawEntry `json:"audit_log_entries"`
	Users   []rawUser  `json:"users"`
}

type rawEntry struct {
	ID         snowflake.ID  `json:"id"`
	UserID     *snowflake.ID `json:"user_id"`
	TargetID   *snowflake.ID `json:"target_id"`
	ActionType int           `json:"action_type"`
	Changes    []rawChange   `json:"changes"`
	Reason     *string       `json:"reason"`
}

type rawChange struct {
	Key      string          `json:"key"`
	OldValue json.RawMessage `json:"old_value"`
	NewValue json.RawMessage `json:"new_value"`
}

type rawUser struct {
	ID            snowflake.ID `json:"id"`
	Username      string       `json:"username"`
	Discriminator string       `json:"discriminator"`
}

func (u rawUser) tag() string {
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}
	return u.Username + "#" + u.Discriminator
}

// FetchPage requests one page of audit entries of a single type.
func (s *Source) FetchPage(ctx context.Context, guildID string, q connector.PageQuery) ([]model.AuditEntry, error) {
	if guildID == "" {
		return nil, fmt.Errorf("discord connector: missing guild id")
	}

	query := url.Values{}
	query.Set("action_type", strconv.Itoa(int(q.Type)))
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(min(q.Limit, connector.MaxPageSize)))
	}
	if q.Before != 0 {
		query.Set("before", q.Before.String())
	}

	var resp auditLogResponse
	path := "/guilds/" + url.PathEscape(guildID) + "/audit-logs"
	if err := s.client.GetJSON(ctx, path, query, &resp); err != nil {
		return nil, fmt.Errorf("discord connector: %w", err)
	}

	users := make(map[snowflake.ID]rawUser, len(resp.Users))
	for _, u := range resp.Users {
		users[u.ID] = u
	}

	entries := make([]model.AuditEntry, 0, len(resp.Entries))
	for _, raw := range resp.Entries {
		entry, err := s.toAuditEntry(raw, users)
		if err != nil {
			return nil, fmt.Errorf("discord connector: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *Source) toAuditEntry(raw rawEntry, users map[snowflake.ID]rawUser) (model.AuditEntry, error) {
	if raw.ID <= 0 {
		return model.AuditEntry{}, fmt.Errorf("invalid snowflake %q", raw.ID.String())
	}
	ts := Timestamp(raw.ID)

	typ := model.EventType(raw.ActionType)
	entry := model.AuditEntry{
		ID:               raw.ID,
		Type:             typ,
		ActionType:       s.types.Label(typ),
		Reason:           nonEmpty(raw.Reason),
		Changes:          make([]model.Change, 0, len(raw.Changes)),
		CreatedTimestamp: ts.UnixMilli(),
		CreatedAt:        ts.UTC().Format(model.TimeLayout),
	}

	if raw.UserID != nil {
		actor := &model.Actor{ID: *raw.UserID}
		if u, ok := users[*raw.UserID]; ok {
			actor.Tag = u.tag()
		}
		entry.Executor = actor
	}

	if raw.TargetID != nil {
		kind, ok := s.types.TargetKind(typ)
		if !ok {
			kind = unknownTarget
		}
		target := &model.Target{ID: *raw.TargetID, Type: kind}
		if kind == userTarget {
			if u, ok := users[*raw.TargetID]; ok {
				tag := u.tag()
				target.Tag = &tag
			}
		}
		entry.Target = target
	}

	for _, c := range raw.Changes {
		entry.Changes = append(entry.Changes, model.Change{Key: c.Key, Old: c.OldValue, New: c.NewValue})
	}
	return entry, nil
}

// Timestamp extracts the creation instant encoded in a Discord snowflake id.
// Discord ids share the layout of the snowflake package (41-bit time, 10-bit
// node, 12-bit step); only the epoch differs and is set at init.
func Timestamp(id snowflake.ID) time.Time {
	return time.UnixMilli(id.Time())
}

// nonEmpty maps an absent or empty reason to nil.
func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
