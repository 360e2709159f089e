package feed

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/sowilo/geom"
	"github.com/aukilabs/sowilo/projector"
	"github.com/golang/geo/r3"
	"github.com/segmentio/encoding/json"
)

const (
	ErrTypeMsgUnmarshal     = "msg-unmarshal-error"
	ErrTypeMsgMarshal       = "msg-marshal-error"
	ErrTypeUnsupportedMsg   = "unsupported-msg"
	ErrTypeInvalidMsgData   = "invalid-msg-data"
	ErrTypeSendBufferIsFull = "send-buffer-is-full"
)

// MsgType identifies the content of a message.
type MsgType string

const (
	MsgTypeRaster     MsgType = "raster"
	MsgTypePose       MsgType = "pose"
	MsgTypeMesh       MsgType = "mesh"
	MsgTypeMeshRemove MsgType = "mesh_remove"
	MsgTypePing       MsgType = "ping"
	MsgTypeAck        MsgType = "ack"
	MsgTypeError      MsgType = "error"
)

// Msg is a message exchanged over a feed connection. Data is decoded
// according to Type.
type Msg struct {
	Type MsgType         `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewMsg returns a message with v encoded as its data.
func NewMsg(t MsgType, id string, v any) (Msg, error) {
	msg := Msg{
		Type: t,
		ID:   id,
	}
	if v == nil {
		return msg, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return Msg{}, errors.New("encoding message data failed").
			WithType(ErrTypeMsgMarshal).
			WithTag("msg_type", t).
			Wrap(err)
	}
	msg.Data = data
	return msg, nil
}

// DataTo decodes the message data into v.
func (m Msg) DataTo(v any) error {
	if err := json.Unmarshal(m.Data, v); err != nil {
		return errors.New("decoding message data failed").
			WithType(ErrTypeMsgUnmarshal).
			WithTag("msg_type", m.Type).
			Wrap(err)
	}
	return nil
}

func (m Msg) TypeString() string {
	if m.Type == "" {
		return "unknown"
	}
	return string(m.Type)
}

// MeshData is the content of a mesh message. Vertices are [x, y, z] triples.
type MeshData struct {
	Name     string       `json:"name"`
	Vertices [][3]float64 `json:"vertices"`
	Hidden   bool         `json:"hidden,omitempty"`
	Bounds   *geom.Box    `json:"bounds,omitempty"`
}

// Batch converts the mesh data into a projector batch.
func (d MeshData) Batch() (projector.Batch, error) {
	if d.Name == "" {
		return projector.Batch{}, errors.New("mesh name is empty").
			WithType(ErrTypeInvalidMsgData)
	}

	vertices := make([]r3.Vector, len(d.Vertices))
	for i, v := range d.Vertices {
		vertices[i] = r3.Vector{X: v[0], Y: v[1], Z: v[2]}
		if !geom.IsFinite(vertices[i]) {
			return projector.Batch{}, errors.New("mesh vertex is not finite").
				WithType(ErrTypeInvalidMsgData).
				WithTag("name", d.Name).
				WithTag("index", i)
		}
	}

	if d.Bounds != nil && (!geom.IsFinite(d.Bounds.Min) || !geom.IsFinite(d.Bounds.Max)) {
		return projector.Batch{}, errors.New("mesh bounds are not finite").
			WithType(ErrTypeInvalidMsgData).
			WithTag("name", d.Name)
	}

	return projector.Batch{
		Name:     d.Name,
		Vertices: vertices,
		Visible:  !d.Hidden,
		Bounds:   d.Bounds,
	}, nil
}

// MeshRemoveData is the content of a mesh removal message.
type MeshRemoveData struct {
	Name string `json:"name"`
}

// AckData is the content of an acknowledgement. Version is the version of
// the updated input.
type AckData struct {
	Type    MsgType `json:"type"`
	Version uint64  `json:"version,omitempty"`
	Found   *bool   `json:"found,omitempty"`
}

// ErrorData is the content of an error message.
type ErrorData struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newErrorMsg(id string, err error) Msg {
	msg, _ := NewMsg(MsgTypeError, id, ErrorData{
		Type:    errors.Type(err),
		Message: err.Error(),
	})
	return msg
}
