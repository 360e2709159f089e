package feed

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	httpcmn "github.com/aukilabs/sowilo/http"
	"github.com/aukilabs/sowilo/projector"
	"github.com/aukilabs/sowilo/raster"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

// Sink receives the decoded sensor feed.
type Sink interface {
	PutRaster(r raster.Raster) uint64
	PutPose(p projector.Pose) uint64
	PutMesh(b projector.Batch) uint64
	RemoveMesh(name string) bool
}

// SensorHandler decodes the sensor feed of a single connection into a sink.
type SensorHandler struct {
	// The inputs of the frame loop.
	Sink Sink

	// The time a client is idle before being disconnected.
	ClientIdleTimeout time.Duration

	conn     *websocket.Conn
	clientID string
}

func (h *SensorHandler) HandleConnect(conn *websocket.Conn) {
	h.conn = conn

	if req := conn.Request(); req != nil {
		h.clientID = req.Header.Get(httpcmn.HeaderClientID)
	}
	if h.clientID == "" {
		h.clientID = uuid.NewString()
	}
}

func (h *SensorHandler) HandleDisconnect(err error) {
}

func (h *SensorHandler) HandlePing(ctx context.Context, respond ResponseSender, msg Msg) error {
	return h.ack(respond, msg, AckData{Type: MsgTypePing})
}

func (h *SensorHandler) HandleRaster(ctx context.Context, respond ResponseSender, msg Msg) error {
	var r raster.Raster
	if err := msg.DataTo(&r); err != nil {
		return err
	}

	if err := r.Validate(); err != nil {
		return errors.New("invalid raster").
			WithType(ErrTypeInvalidMsgData).
			Wrap(err)
	}

	version := h.Sink.PutRaster(r)
	return h.ack(respond, msg, AckData{
		Type:    MsgTypeRaster,
		Version: version,
	})
}

func (h *SensorHandler) HandlePose(ctx context.Context, respond ResponseSender, msg Msg) error {
	var p projector.Pose
	if err := msg.DataTo(&p); err != nil {
		return err
	}

	if err := p.Validate(); err != nil {
		return errors.New("invalid pose").
			WithType(ErrTypeInvalidMsgData).
			Wrap(err)
	}

	version := h.Sink.PutPose(p)
	return h.ack(respond, msg, AckData{
		Type:    MsgTypePose,
		Version: version,
	})
}

func (h *SensorHandler) HandleMesh(ctx context.Context, respond ResponseSender, msg Msg) error {
	var data MeshData
	if err := msg.DataTo(&data); err != nil {
		return err
	}

	b, err := data.Batch()
	if err != nil {
		return err
	}

	version := h.Sink.PutMesh(b)
	return h.ack(respond, msg, AckData{
		Type:    MsgTypeMesh,
		Version: version,
	})
}

func (h *SensorHandler) HandleMeshRemove(ctx context.Context, respond ResponseSender, msg Msg) error {
	var data MeshRemoveData
	if err := msg.DataTo(&data); err != nil {
		return err
	}

	found := h.Sink.RemoveMesh(data.Name)
	return h.ack(respond, msg, AckData{
		Type:  MsgTypeMeshRemove,
		Found: &found,
	})
}

func (h *SensorHandler) Receiver() Receiver {
	return func() (Msg, int, error) {
		var data []byte
		if err := websocket.Message.Receive(h.conn, &data); err != nil {
			return Msg{}, 0, err
		}

		var msg Msg
		if err := json.Unmarshal(data, &msg); err != nil {
			return Msg{}, len(data), errors.New("decoding message failed").
				WithType(ErrTypeMsgUnmarshal).
				Wrap(err)
		}
		return msg, len(data), nil
	}
}

func (h *SensorHandler) Sender() Sender {
	return func(msg Msg) (int, error) {
		data, err := json.Marshal(msg)
		if err != nil {
			return 0, errors.New("encoding message failed").
				WithType(ErrTypeMsgMarshal).
				WithTag("msg_type", msg.TypeString()).
				Wrap(err)
		}

		if err := websocket.Message.Send(h.conn, string(data)); err != nil {
			return 0, err
		}
		return len(data), nil
	}
}

func (h *SensorHandler) Close() {
}

func (h *SensorHandler) IdleTimeout() time.Duration {
	if h.ClientIdleTimeout <= 0 {
		return time.Minute
	}
	return h.ClientIdleTimeout
}

func (h *SensorHandler) GetClientID() string {
	return h.clientID
}

func (h *SensorHandler) ack(respond ResponseSender, msg Msg, data AckData) error {
	res, err := NewMsg(MsgTypeAck, msg.ID, data)
	if err != nil {
		return err
	}
	respond.Send(res)
	return nil
}
