package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/akinalp/voxgate/models"
	"github.com/akinalp/voxgate/pkg"
)

func TestMeetingService_Create(t *testing.T) {
	f := newFixture(t)
	svc := NewMeetingService(f.meetings, zerolog.Nop())
	ctx := context.Background()

	off := false
	m, err := svc.Create(ctx, "ORG", &models.CreateMeetingRequest{Title: "  retro  ", VoiceAuthRequired: &off})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if m.ID == "" || m.Title != "retro" || m.VoiceAuthRequired || m.Status != models.SessionScheduled {
		t.Errorf("meeting = %+v", m)
	}

	def, err := svc.Create(ctx, "ORG", &models.CreateMeetingRequest{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !def.VoiceAuthRequired {
		t.Error("voice auth must default to required")
	}

	got, err := svc.GetByID(ctx, m.ID)
	if err != nil || got.OrganizerID != "ORG" {
		t.Errorf("GetByID = %+v, %v", got, err)
	}
	if _, err := svc.GetByID(ctx, "missing"); !errors.Is(err, pkg.ErrSessionNotFound) {
		t.Errorf("missing: err = %v", err)
	}
	if _, err := svc.Create(ctx, "ORG", &models.CreateMeetingRequest{Title: strings.Repeat("x", 201)}); !errors.Is(err, pkg.ErrBadRequest) {
		t.Errorf("long title: err = %v", err)
	}
}
