package hetzner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/octodns/octodns-hetzner/pkg/rdata"
	"github.com/octodns/octodns-hetzner/pkg/zone"
	"github.com/octodns/octodns-hetzner/providers/hetzner/backend"
)

// applyStrategy turns one planned change into backend calls. current holds
// the zone's wire records as last read.
type applyStrategy interface {
	Create(ctx context.Context, zoneID string, desired *zone.Record) error
	Update(ctx context.Context, zoneID string, existing, desired *zone.Record, current []backend.Record) error
	Delete(ctx context.Context, zoneID string, existing *zone.Record, current []backend.Record) error
}

// recordStrategy drives a record-CRUD backend: one call per wire value.
type recordStrategy struct {
	client backend.Client
	codec  *rdata.Codec
	logger *slog.Logger
}

func (s *recordStrategy) Create(ctx context.Context, zoneID string, desired *zone.Record) error {
	params, err := s.codec.Encode(desired)
	if err != nil {
		return err
	}
	for _, p := range params {
		if err := s.client.CreateRecord(ctx, zoneID, p.Name, p.Type, p.Value, p.TTL); err != nil {
			return err
		}
	}
	return nil
}

// Update deletes every existing wire record of the pair, then creates the
// new values. The backend has no partial update.
func (s *recordStrategy) Update(ctx context.Context, zoneID string, existing, desired *zone.Record, current []backend.Record) error {
	if err := s.Delete(ctx, zoneID, existing, current); err != nil {
		return err
	}
	return s.Create(ctx, zoneID, desired)
}

func (s *recordStrategy) Delete(ctx context.Context, zoneID string, existing *zone.Record, current []backend.Record) error {
	for _, r := range current {
		// zone names are lowercased; the wire keeps whatever case it was given
		if !strings.EqualFold(r.Name, existing.Name) || r.Type != existing.Type {
			continue
		}
		if err := s.client.DeleteRecord(ctx, zoneID, r.ID); err != nil {
			return err
		}
		s.logger.Debug("deleted wire record",
			slog.String("record_id", r.ID),
			slog.String("name", r.Name),
			slog.String("type", string(r.Type)),
		)
	}
	return nil
}

// rrsetStrategy drives an RRSet backend: every write covers the whole set.
type rrsetStrategy struct {
	client backend.RRSetClient
	codec  *rdata.Codec
}

// Create upserts the full value set. TXT values longer than a character
// string are chunked; each logical value stays one entry.
func (s *rrsetStrategy) Create(ctx context.Context, zoneID string, desired *zone.Record) error {
	params, err := s.codec.Encode(desired)
	if err != nil {
		return err
	}
	values := make([]string, 0, len(params))
	for _, p := range params {
		v := p.Value
		if desired.Type == zone.RecordTypeTXT {
			v = rdata.ChunkTXT(v)
		}
		values = append(values, v)
	}
	if err := s.client.UpsertRRSet(ctx, zoneID, desired.Name, desired.Type, values, desired.TTL); err != nil {
		return fmt.Errorf("upserting %s: %w", desired.Key(), err)
	}
	return nil
}

// Update is a Create: replacing a set is idempotent.
func (s *rrsetStrategy) Update(ctx context.Context, zoneID string, _, desired *zone.Record, _ []backend.Record) error {
	return s.Create(ctx, zoneID, desired)
}

func (s *rrsetStrategy) Delete(ctx context.Context, zoneID string, existing *zone.Record, _ []backend.Record) error {
	if err := s.client.DeleteRRSet(ctx, zoneID, existing.Name, existing.Type); err != nil {
		return fmt.Errorf("deleting %s: %w", existing.Key(), err)
	}
	return nil
}
