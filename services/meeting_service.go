package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/akinalp/voxgate/models"
	"github.com/akinalp/voxgate/pkg"
	"github.com/akinalp/voxgate/repository"
)

// MeetingService, kalıcı meeting kayıtlarını yönetir. Canlı durum
// SessionService'tedir; bu servis sadece kaydı oluşturur ve okur.
type MeetingService interface {
	Create(ctx context.Context, organizerID string, req *models.CreateMeetingRequest) (*models.Meeting, error)
	GetByID(ctx context.Context, id string) (*models.Meeting, error)
}

type meetingService struct {
	meetings repository.MeetingRepository
	log      zerolog.Logger
}

// NewMeetingService, constructor.
func NewMeetingService(meetings repository.MeetingRepository, log zerolog.Logger) MeetingService {
	return &meetingService{meetings: meetings, log: log}
}

func (s *meetingService) Create(ctx context.Context, organizerID string, req *models.CreateMeetingRequest) (*models.Meeting, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	m := &models.Meeting{
		ID:                uuid.NewString(),
		Title:             req.Title,
		OrganizerID:       organizerID,
		VoiceAuthRequired: req.RequiresVoiceAuth(),
		Status:            models.SessionScheduled,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.meetings.Create(ctx, m); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("meeting_id", m.ID).
		Str("organizer_id", organizerID).
		Bool("voice_auth_required", m.VoiceAuthRequired).
		Msg("meeting created")
	return m, nil
}

func (s *meetingService) GetByID(ctx context.Context, id string) (*models.Meeting, error) {
	m, err := s.meetings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", pkg.ErrSessionNotFound, id)
		}
		return nil, err
	}
	return m, nil
}
