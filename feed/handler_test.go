package feed

import (
	"math"
	"testing"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/sowilo/pipeline"
	"github.com/aukilabs/sowilo/projector"
	"github.com/aukilabs/sowilo/raster"
	"github.com/golang/geo/r3"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func newTestHandler(inputs *pipeline.Inputs, idleTimeout time.Duration) func() Handler {
	return func() Handler {
		var h Handler = &SensorHandler{
			Sink:              inputs,
			ClientIdleTimeout: idleTimeout,
		}
		h = HandlerWithLogs(h, time.Millisecond*100)
		h = HandlerWithMetrics(h)
		return h
	}
}

func sendMsg(t *testing.T, conn *websocket.Conn, msgType MsgType, id string, v any) {
	msg, err := NewMsg(msgType, id, v)
	require.NoError(t, err)

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, websocket.Message.Send(conn, string(data)))
}

func receiveMsg(t *testing.T, conn *websocket.Conn) Msg {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second*5)))

	var data []byte
	require.NoError(t, websocket.Message.Receive(conn, &data))

	var msg Msg
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func receiveAck(t *testing.T, conn *websocket.Conn, id string) AckData {
	msg := receiveMsg(t, conn)
	require.Equal(t, MsgTypeAck, msg.Type, string(msg.Data))
	require.Equal(t, id, msg.ID)

	var ack AckData
	require.NoError(t, msg.DataTo(&ack))
	return ack
}

func receiveError(t *testing.T, conn *websocket.Conn, id string) ErrorData {
	msg := receiveMsg(t, conn)
	require.Equal(t, MsgTypeError, msg.Type)
	require.Equal(t, id, msg.ID)

	var data ErrorData
	require.NoError(t, msg.DataTo(&data))
	return data
}

func TestNewTestingEnv(t *testing.T) {
	t.Run("encoders are not reset by later environments", func(t *testing.T) {
		_, close := NewTestingEnv(t, newTestHandler(&pipeline.Inputs{}, time.Minute))
		close()

		logs.SetInlineEncoder()
		conn, close := NewTestingEnv(t, newTestHandler(&pipeline.Inputs{}, time.Minute))
		defer close()

		b, err := logs.Encoder(map[string]int{"a": 1})
		require.NoError(t, err)
		require.Equal(t, `{"a":1}`, string(b))

		sendMsg(t, conn, MsgTypePing, "ping-1", nil)
		receiveAck(t, conn, "ping-1")
	})
}

func TestHandlerPing(t *testing.T) {
	conn, close := NewTestingEnv(t, newTestHandler(&pipeline.Inputs{}, time.Minute))
	defer close()

	sendMsg(t, conn, MsgTypePing, "ping-1", nil)
	ack := receiveAck(t, conn, "ping-1")
	require.Equal(t, MsgTypePing, ack.Type)
}

func TestHandlerRaster(t *testing.T) {
	t.Run("raster is put in the inputs", func(t *testing.T) {
		inputs := &pipeline.Inputs{}
		conn, close := NewTestingEnv(t, newTestHandler(inputs, time.Minute))
		defer close()

		sendMsg(t, conn, MsgTypeRaster, "r1", raster.Raster{
			Width:  2,
			Height: 2,
			Data:   []byte{1, 2, 3, 4},
		})
		ack := receiveAck(t, conn, "r1")
		require.Equal(t, MsgTypeRaster, ack.Type)
		require.Equal(t, uint64(1), ack.Version)
		require.Equal(t, uint64(1), inputs.RasterVersion())
	})

	t.Run("invalid raster is rejected", func(t *testing.T) {
		inputs := &pipeline.Inputs{}
		conn, close := NewTestingEnv(t, newTestHandler(inputs, time.Minute))
		defer close()

		sendMsg(t, conn, MsgTypeRaster, "r1", raster.Raster{
			Width:  2,
			Height: 2,
			Data:   []byte{1},
		})
		data := receiveError(t, conn, "r1")
		require.Equal(t, ErrTypeInvalidMsgData, data.Type)
		require.Zero(t, inputs.RasterVersion())

		sendMsg(t, conn, MsgTypePing, "ping", nil)
		receiveAck(t, conn, "ping")
	})

	t.Run("raster with huge dimensions is rejected", func(t *testing.T) {
		inputs := &pipeline.Inputs{}
		conn, close := NewTestingEnv(t, newTestHandler(inputs, time.Minute))
		defer close()

		side := math.MaxInt>>31 + 1
		sendMsg(t, conn, MsgTypeRaster, "r1", raster.Raster{
			Width:  side,
			Height: side,
		})
		data := receiveError(t, conn, "r1")
		require.Equal(t, ErrTypeInvalidMsgData, data.Type)
		require.Zero(t, inputs.RasterVersion())
	})
}

func TestHandlerPose(t *testing.T) {
	t.Run("pose is acknowledged", func(t *testing.T) {
		conn, close := NewTestingEnv(t, newTestHandler(&pipeline.Inputs{}, time.Minute))
		defer close()

		sendMsg(t, conn, MsgTypePose, "p1", projector.Pose{
			Position: r3.Vector{X: 1},
			Rotation: projector.Rotation{W: 1},
		})
		ack := receiveAck(t, conn, "p1")
		require.Equal(t, MsgTypePose, ack.Type)
		require.Equal(t, uint64(1), ack.Version)
	})

	t.Run("pose with a null rotation is rejected", func(t *testing.T) {
		conn, close := NewTestingEnv(t, newTestHandler(&pipeline.Inputs{}, time.Minute))
		defer close()

		sendMsg(t, conn, MsgTypePose, "p1", projector.Pose{})
		data := receiveError(t, conn, "p1")
		require.Equal(t, ErrTypeInvalidMsgData, data.Type)
		require.NotEmpty(t, data.Message)
	})
}

func TestHandlerMesh(t *testing.T) {
	t.Run("mesh is added and removed", func(t *testing.T) {
		inputs := &pipeline.Inputs{}
		conn, close := NewTestingEnv(t, newTestHandler(inputs, time.Minute))
		defer close()

		sendMsg(t, conn, MsgTypeMesh, "m1", MeshData{
			Name:     "wall",
			Vertices: [][3]float64{{0, 0, 3}, {1, 0, 3}},
		})
		ack := receiveAck(t, conn, "m1")
		require.Equal(t, uint64(1), ack.Version)

		batches, _ := inputs.Meshes()
		require.Len(t, batches, 1)
		require.Equal(t, "wall", batches[0].Name)
		require.True(t, batches[0].Visible)
		require.Equal(t, []r3.Vector{{Z: 3}, {X: 1, Z: 3}}, batches[0].Vertices)

		sendMsg(t, conn, MsgTypeMeshRemove, "m2", MeshRemoveData{Name: "wall"})
		ack = receiveAck(t, conn, "m2")
		require.NotNil(t, ack.Found)
		require.True(t, *ack.Found)

		sendMsg(t, conn, MsgTypeMeshRemove, "m3", MeshRemoveData{Name: "wall"})
		ack = receiveAck(t, conn, "m3")
		require.NotNil(t, ack.Found)
		require.False(t, *ack.Found)
	})

	t.Run("mesh without name is rejected", func(t *testing.T) {
		conn, close := NewTestingEnv(t, newTestHandler(&pipeline.Inputs{}, time.Minute))
		defer close()

		sendMsg(t, conn, MsgTypeMesh, "m1", MeshData{
			Vertices: [][3]float64{{0, 0, 3}},
		})
		data := receiveError(t, conn, "m1")
		require.Equal(t, ErrTypeInvalidMsgData, data.Type)
	})
}

func TestHandlerUnsupportedMsg(t *testing.T) {
	conn, close := NewTestingEnv(t, newTestHandler(&pipeline.Inputs{}, time.Minute))
	defer close()

	sendMsg(t, conn, MsgType("teleport"), "t1", nil)
	data := receiveError(t, conn, "t1")
	require.Equal(t, ErrTypeUnsupportedMsg, data.Type)
}

func TestHandlerIdleTimeout(t *testing.T) {
	conn, close := NewTestingEnv(t, newTestHandler(&pipeline.Inputs{}, time.Millisecond*50))
	defer close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second*5)))

	var data []byte
	require.Error(t, websocket.Message.Receive(conn, &data))
}

func TestMeshDataBatch(t *testing.T) {
	t.Run("hidden mesh gives an invisible batch", func(t *testing.T) {
		b, err := MeshData{Name: "a", Hidden: true}.Batch()
		require.NoError(t, err)
		require.False(t, b.Visible)
	})

	t.Run("non finite vertex is rejected", func(t *testing.T) {
		_, err := MeshData{
			Name:     "a",
			Vertices: [][3]float64{{0, 0, math.Inf(1)}},
		}.Batch()
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeInvalidMsgData))
	})
}
