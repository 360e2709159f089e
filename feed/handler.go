// Package feed receives the sensor feed over websocket connections: rasters,
// headset poses and mesh batches are decoded and handed to a Sink that the
// frame loop polls.
package feed

import (
	"context"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"golang.org/x/net/websocket"
)

const (
	sendChanSize    = 64
	receiveChanSize = 64
)

// Receiver receives a message and returns it with its size in bytes.
type Receiver func() (Msg, int, error)

// Sender sends a message and returns its size in bytes.
type Sender func(Msg) (int, error)

// ResponseSender queues messages for the connected client.
type ResponseSender interface {
	Send(Msg)
}

// Handler represents a feed connection handler.
type Handler interface {
	// Handles a client connection.
	HandleConnect(conn *websocket.Conn)

	// Handles a client's disconnection.
	HandleDisconnect(error)

	// Handles a ping.
	HandlePing(ctx context.Context, respond ResponseSender, msg Msg) error

	// Handles a sensor raster.
	HandleRaster(ctx context.Context, respond ResponseSender, msg Msg) error

	// Handles a headset pose.
	HandlePose(ctx context.Context, respond ResponseSender, msg Msg) error

	// Handles a mesh batch addition or replacement.
	HandleMesh(ctx context.Context, respond ResponseSender, msg Msg) error

	// Handles a mesh batch removal.
	HandleMeshRemove(ctx context.Context, respond ResponseSender, msg Msg) error

	// Creates a message receiver used to receive incoming messages.
	Receiver() Receiver

	// Creates a message sender used to send responses.
	Sender() Sender

	// Closes the handler and releases its allocated resources.
	Close()

	// The time a client is idle before being disconnected.
	IdleTimeout() time.Duration

	GetClientID() string
}

// Handle serves the connection with the given handler until the client
// disconnects, stays idle too long or ctx is done.
func Handle(ctx context.Context, conn *websocket.Conn, h Handler) {
	handler := handler{
		Conn:    conn,
		Handler: h,
	}

	handler.Handle(ctx)
}

type handler struct {
	Conn    *websocket.Conn
	Handler Handler

	sendChan       chan Msg
	receiveChan    chan Msg
	disconnectChan chan error
}

func (h *handler) Handle(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	h.Handler.HandleConnect(h.Conn)

	h.disconnectChan = make(chan error, 8)
	defer func() {
		for len(h.disconnectChan) != 0 {
			<-h.disconnectChan
		}
	}()

	var wg sync.WaitGroup

	h.sendChan = make(chan Msg, sendChanSize)
	sender := h.Handler.Sender()
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.startSending(ctx, sender)
	}()

	h.receiveChan = make(chan Msg, receiveChanSize)
	receiver := h.Handler.Receiver()
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.startReceiving(ctx, receiver)
	}()

	idleTimeout := h.Handler.IdleTimeout()
	idleTimer := time.NewTimer(idleTimeout)
	defer idleTimer.Stop()

	responder := responseSender{send: h.send}
	disconnected := false

	for !disconnected {
		select {
		case <-ctx.Done():
			h.disconnect(ctx.Err())

		case <-idleTimer.C:
			h.disconnect(errors.New("idle connection").WithTag("duration", idleTimeout))

		case msg := <-h.receiveChan:
			idleTimer.Stop()
			idleTimer.Reset(idleTimeout)

			if err := h.handleMessage(ctx, msg, responder); err != nil {
				logs.WithTag(logs.ClientIDTag, h.Handler.GetClientID()).
					WithTag("msg_type", msg.TypeString()).
					WithTag("msg_id", msg.ID).
					Warn(errors.New("handling message failed").Wrap(err))
				h.send(newErrorMsg(msg.ID, err))
			}

		case err := <-h.disconnectChan:
			h.handleDisconnect(err)
			disconnected = true
			// Cancel context so goroutines can cleanly exit.
			cancel()
		}
	}

	wg.Wait()
}

func (h *handler) handleMessage(ctx context.Context, msg Msg, respond ResponseSender) error {
	switch msg.Type {
	case MsgTypePing:
		return h.Handler.HandlePing(ctx, respond, msg)

	case MsgTypeRaster:
		return h.Handler.HandleRaster(ctx, respond, msg)

	case MsgTypePose:
		return h.Handler.HandlePose(ctx, respond, msg)

	case MsgTypeMesh:
		return h.Handler.HandleMesh(ctx, respond, msg)

	case MsgTypeMeshRemove:
		return h.Handler.HandleMeshRemove(ctx, respond, msg)

	default:
		return errors.New("unsupported message type").
			WithType(ErrTypeUnsupportedMsg).
			WithTag("msg_type", msg.TypeString())
	}
}

// send queues msg. Responses are dropped when the client does not read them.
func (h *handler) send(msg Msg) {
	select {
	case h.sendChan <- msg:
	default:
		logs.WithTag(logs.ClientIDTag, h.Handler.GetClientID()).
			WithTag("msg_type", msg.TypeString()).
			Warn(errors.New("dropping response").WithType(ErrTypeSendBufferIsFull))
	}
}

func (h *handler) startSending(ctx context.Context, sender Sender) {
	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-h.sendChan:
			if _, err := sender(msg); err != nil {
				h.disconnect(errors.New("sending message failed").Wrap(err))
				return
			}
		}
	}
}

func (h *handler) startReceiving(ctx context.Context, receiver Receiver) {
	for {
		msg, _, err := receiver()
		if err != nil {
			h.disconnect(errors.New("receiving message failed").Wrap(err))
			return
		}

		select {
		case <-ctx.Done():
			return

		case h.receiveChan <- msg:
		}
	}
}

func (h *handler) disconnect(err error) {
	select {
	case h.disconnectChan <- err:
	default:
	}
}

func (h *handler) handleDisconnect(err error) {
	h.Conn.Close()
	h.Handler.HandleDisconnect(err)
}

type responseSender struct {
	send func(Msg)
}

func (r responseSender) Send(msg Msg) {
	r.send(msg)
}
