// Package main: WebSocket Hub callback wire-up.
//
// registerHubCallbacks, Hub'ın inbound mesaj callback'lerini SessionService'e
// bağlar. Hub ws paketinde yaşıyor, iş mantığı services'te; ws'nin
// services'e bağımlı olmasını istemiyoruz. main package wire-up noktasıdır.
package main

import (
	"context"

	"github.com/akinalp/voxgate/models"
	"github.com/akinalp/voxgate/services"
	"github.com/akinalp/voxgate/ws"
)

// registerHubCallbacks, tüm Hub callback'lerini register eder.
//
// Kimlik her zaman bağlantının doğrulanmış token'ından (conn.UserID) alınır;
// payload'daki user_id'nin eşleştiği ws katmanında kontrol edilmiştir.
func registerHubCallbacks(hub *ws.Hub, sessions services.SessionService) {
	hub.SetCallbacks(ws.SessionCallbacks{
		OnJoin: func(ctx context.Context, conn ws.ConnInfo, d ws.JoinSessionData) error {
			name := d.DisplayName
			if name == "" {
				name = conn.Username
			}
			_, err := sessions.Join(ctx, services.JoinRequest{
				SessionID:   d.SessionID,
				UserID:      conn.UserID,
				DisplayName: name,
				ConnID:      conn.ConnID,
			})
			return err
		},

		OnLeave: func(ctx context.Context, conn ws.ConnInfo, d ws.LeaveSessionData) error {
			return sessions.Leave(ctx, d.SessionID, conn.UserID, conn.ConnID, models.LeaveExplicit)
		},

		OnVoiceSample: func(ctx context.Context, conn ws.ConnInfo, d ws.SubmitVoiceSampleData) error {
			return sessions.SubmitVoiceSample(ctx, d.SessionID, conn.UserID, conn.ConnID, d.Sample)
		},

		OnMessage: func(ctx context.Context, conn ws.ConnInfo, d ws.SendMessageData) error {
			return sessions.SendMessage(ctx, d.SessionID, conn.UserID, conn.ConnID, d.Content)
		},

		OnEnd: func(ctx context.Context, conn ws.ConnInfo, d ws.EndSessionData) error {
			return sessions.EndSession(ctx, d.SessionID, conn.UserID)
		},

		// Kopan bağlantının tüm session üyelikleri disconnect sebebiyle
		// kaldırılır ve resume ticket'ı yazılır.
		OnDisconnect: func(conn ws.ConnInfo) {
			sessions.DisconnectConnection(conn.ConnID)
		},
	})
}
