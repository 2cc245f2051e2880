package app

import (
	"context"
	"iter"

	"github.com/louisbranch/hiring.space/internal/services/pipeline/domain"
)

// AuditTrail returns the candidate's audit entries in timestamp order. The
// sequence reads the store lazily, one page at a time, and every range over
// it starts again from the first entry. A failed read yields the error once
// and stops.
func (s *Service) AuditTrail(ctx context.Context, candidateID string) iter.Seq2[domain.AuditEntry, error] {
	return func(yield func(domain.AuditEntry, error) bool) {
		if err := s.ready(); err != nil {
			yield(domain.AuditEntry{}, err)
			return
		}
		candidate, err := s.getCandidate(ctx, candidateID)
		if err != nil {
			yield(domain.AuditEntry{}, err)
			return
		}

		var afterID int64
		for {
			page, err := s.store.ListAuditEntries(ctx, candidate.ID, afterID, s.cfg.AuditPageSize)
			if err != nil {
				yield(domain.AuditEntry{}, err)
				return
			}
			for _, entry := range page {
				if !yield(entry, nil) {
					return
				}
				afterID = entry.ID
			}
			if len(page) < s.cfg.AuditPageSize {
				return
			}
		}
	}
}

// CollectAuditTrail drains AuditTrail into a slice.
func (s *Service) CollectAuditTrail(ctx context.Context, candidateID string) ([]domain.AuditEntry, error) {
	var entries []domain.AuditEntry
	for entry, err := range s.AuditTrail(ctx, candidateID) {
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
