package encounter

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/encounter/internal/platform/reporting"
	"github.com/ehr/encounter/internal/platform/tz"
)

const reportTimeLayout = "2006-01-02 15:04"

// Report gathers the printable form of an encounter.
func (s *Service) Report(ctx context.Context, id uuid.UUID) (*reporting.EncounterReport, error) {
	v, err := s.View(ctx, id)
	if err != nil {
		return nil, err
	}
	loc, _ := s.location(ctx, v.InstitutionID)
	local := func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return tz.Localtime(*t, loc).Format(reportTimeLayout)
	}
	return &reporting.EncounterReport{
		RecName:     v.RecName,
		Institution: v.InstitutionName,
		StartTime:   local(&v.StartTime),
		EndTime:     local(v.EndTime),
		State:       v.State,
		SignedBy:    v.SignedByName,
		SignTime:    local(v.SignTime),
		Summary:     v.Summary,
	}, nil
}
