package service

import (
	"context"
	"errors"

	firmmodels "firmgate/internal/firm/models"
	"firmgate/internal/sentinel"
	"firmgate/internal/token/models"
	id "firmgate/pkg/domain"
	dErrors "firmgate/pkg/domain-errors"
	"firmgate/pkg/requestcontext"
)

// ListActive returns every unused token, expired ones included, newest
// first and enriched with the owning firm.
func (s *Service) ListActive(ctx context.Context) ([]models.TokenWithFirm, error) {
	tokens, err := s.tokens.ListUnused(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list tokens")
	}
	return s.enrich(ctx, tokens)
}

func (s *Service) ListAll(ctx context.Context) ([]models.TokenWithFirm, error) {
	tokens, err := s.tokens.ListAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list tokens")
	}
	return s.enrich(ctx, tokens)
}

// ListForFirm returns the full token history of one firm.
func (s *Service) ListForFirm(ctx context.Context, firmID id.FirmID) ([]*models.Token, error) {
	if _, err := s.firms.FindByID(ctx, firmID); err != nil {
		return nil, wrapFirmErr(err)
	}
	tokens, err := s.tokens.ListByFirm(ctx, firmID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list tokens")
	}
	return tokens, nil
}

// ListValidForFirm returns the firm's unused, unexpired tokens. At most one
// is expected.
func (s *Service) ListValidForFirm(ctx context.Context, firmID id.FirmID) ([]*models.Token, error) {
	tokens, err := s.tokens.ListUnusedByFirm(ctx, firmID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list tokens")
	}
	now := requestcontext.Now(ctx)
	valid := make([]*models.Token, 0, len(tokens))
	for _, t := range tokens {
		if t.IsValid(now) {
			valid = append(valid, t)
		}
	}
	return valid, nil
}

func (s *Service) enrich(ctx context.Context, tokens []*models.Token) ([]models.TokenWithFirm, error) {
	firms := make(map[id.FirmID]*firmmodels.Summary)
	out := make([]models.TokenWithFirm, 0, len(tokens))
	for _, t := range tokens {
		summary, seen := firms[t.FirmID]
		if !seen {
			f, err := s.firms.FindByID(ctx, t.FirmID)
			switch {
			case err == nil:
				sum := f.Summary()
				summary = &sum
			case !errors.Is(err, sentinel.ErrNotFound):
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load firm")
			}
			firms[t.FirmID] = summary
		}
		out = append(out, models.TokenWithFirm{Token: t, Firm: summary})
	}
	return out, nil
}
