package ws

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/akinalp/voxgate/pkg"
	"github.com/akinalp/voxgate/pkg/validate"
)

// Inbound, client'tan gelebilecek mesajların kapalı kümesi.
// Sadece bu paketteki *Data tipleri implement eder.
type Inbound interface {
	Op() string
	claimedUserID() string
}

func (HeartbeatData) Op() string         { return OpHeartbeat }
func (JoinSessionData) Op() string       { return OpJoinSession }
func (LeaveSessionData) Op() string      { return OpLeaveSession }
func (SubmitVoiceSampleData) Op() string { return OpSubmitVoiceSample }
func (SendMessageData) Op() string       { return OpSendMessage }
func (EndSessionData) Op() string        { return OpEndSession }

func (HeartbeatData) claimedUserID() string           { return "" }
func (d JoinSessionData) claimedUserID() string       { return d.UserID }
func (d LeaveSessionData) claimedUserID() string      { return d.UserID }
func (d SubmitVoiceSampleData) claimedUserID() string { return d.UserID }
func (d SendMessageData) claimedUserID() string       { return d.UserID }
func (d EndSessionData) claimedUserID() string        { return d.UserID }

// envelope, inbound mesajın ham hali; d alanı op'a göre sonradan çözülür.
type envelope struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"d"`
	Seq  int64           `json:"seq"`
}

// DecodeInbound, ham WS mesajını tipli bir Inbound'a çevirir ve doğrular.
// Bilinmeyen op, bozuk JSON, bilinmeyen alan veya validate tag ihlali
// pkg.ErrBadRequest döner. op hata durumunda da (biliniyorsa) döner.
func DecodeInbound(raw []byte) (Inbound, string, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, "", fmt.Errorf("%w: malformed envelope", pkg.ErrBadRequest)
	}

	switch env.Op {
	case OpHeartbeat:
		return HeartbeatData{}, env.Op, nil
	case OpJoinSession:
		msg, err := decodeData[JoinSessionData](env.Data)
		return msg, env.Op, err
	case OpLeaveSession:
		msg, err := decodeData[LeaveSessionData](env.Data)
		return msg, env.Op, err
	case OpSubmitVoiceSample:
		msg, err := decodeData[SubmitVoiceSampleData](env.Data)
		return msg, env.Op, err
	case OpSendMessage:
		msg, err := decodeData[SendMessageData](env.Data)
		return msg, env.Op, err
	case OpEndSession:
		msg, err := decodeData[EndSessionData](env.Data)
		return msg, env.Op, err
	case "":
		return nil, "", fmt.Errorf("%w: missing op", pkg.ErrBadRequest)
	default:
		return nil, env.Op, fmt.Errorf("%w: unknown op %q", pkg.ErrBadRequest, env.Op)
	}
}

// decodeData, payload'ı T'ye strict olarak çözer ve doğrular.
func decodeData[T Inbound](raw json.RawMessage) (Inbound, error) {
	var data T
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("%w: missing payload", pkg.ErrBadRequest)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: invalid payload: %v", pkg.ErrBadRequest, err)
	}

	if err := validate.Struct(data); err != nil {
		return nil, err
	}
	return data, nil
}
