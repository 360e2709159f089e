package feed

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/net/websocket"
)

const (
	errTypeLabel = "error_type"
	msgTypeLabel = "msg_type"
)

var (
	connectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sowilo_feed_connected_clients",
		Help: "The number of connected sensor clients.",
	})

	receivedMsgs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sowilo_feed_received_msgs",
		Help: "The number of messages received from feed connections.",
	}, []string{msgTypeLabel})

	receivedBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sowilo_feed_received_bytes",
		Help: "The number of bytes received from feed connections.",
	}, []string{msgTypeLabel})

	receiveErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sowilo_feed_receive_errors",
		Help: "The errors that occured while receiving a feed message.",
	}, []string{errTypeLabel})

	sentMsgs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sowilo_feed_sent_msgs",
		Help: "The number of messages sent to feed connections.",
	}, []string{msgTypeLabel})

	sentBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sowilo_feed_sent_bytes",
		Help: "The number of bytes sent to feed connections.",
	}, []string{msgTypeLabel})

	sendErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sowilo_feed_send_errors",
		Help: "The errors that occured while sending a feed message.",
	}, []string{errTypeLabel, msgTypeLabel})

	handleErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sowilo_feed_handle_errors",
		Help: "The errors returned while handling a feed message.",
	}, []string{errTypeLabel, msgTypeLabel})

	msgLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "sowilo_feed_msg_latency",
		Help: "The time to process a feed message.",
	}, []string{msgTypeLabel})
)

func HandlerWithMetrics(h Handler) Handler {
	return &handlerWithMetrics{
		Handler: h,
	}
}

type handlerWithMetrics struct {
	Handler
}

func (h *handlerWithMetrics) HandleConnect(conn *websocket.Conn) {
	connectedClients.Inc()
	h.Handler.HandleConnect(conn)
}

func (h *handlerWithMetrics) HandleDisconnect(err error) {
	connectedClients.Dec()
	h.Handler.HandleDisconnect(err)
}

func (h *handlerWithMetrics) HandlePing(ctx context.Context, respond ResponseSender, msg Msg) error {
	return h.measureLatency(msg, func() error {
		return h.Handler.HandlePing(ctx, respond, msg)
	})
}

func (h *handlerWithMetrics) HandleRaster(ctx context.Context, respond ResponseSender, msg Msg) error {
	return h.measureLatency(msg, func() error {
		return h.Handler.HandleRaster(ctx, respond, msg)
	})
}

func (h *handlerWithMetrics) HandlePose(ctx context.Context, respond ResponseSender, msg Msg) error {
	return h.measureLatency(msg, func() error {
		return h.Handler.HandlePose(ctx, respond, msg)
	})
}

func (h *handlerWithMetrics) HandleMesh(ctx context.Context, respond ResponseSender, msg Msg) error {
	return h.measureLatency(msg, func() error {
		return h.Handler.HandleMesh(ctx, respond, msg)
	})
}

func (h *handlerWithMetrics) HandleMeshRemove(ctx context.Context, respond ResponseSender, msg Msg) error {
	return h.measureLatency(msg, func() error {
		return h.Handler.HandleMeshRemove(ctx, respond, msg)
	})
}

func (h *handlerWithMetrics) Receiver() Receiver {
	receive := h.Handler.Receiver()

	return func() (Msg, int, error) {
		msg, n, err := receive()
		if err != nil {
			receiveErrors.WithLabelValues(errors.Type(err)).Inc()
		} else {
			receivedMsgs.WithLabelValues(msg.TypeString()).Inc()
		}

		if n != 0 {
			receivedBytes.WithLabelValues(msg.TypeString()).Add(float64(n))
		}
		return msg, n, err
	}
}

func (h *handlerWithMetrics) Sender() Sender {
	sender := h.Handler.Sender()

	return func(msg Msg) (int, error) {
		msgType := msg.TypeString()

		n, err := sender(msg)
		if err != nil {
			sendErrors.WithLabelValues(errors.Type(err), msgType).Inc()
		}

		if n != 0 {
			sentMsgs.WithLabelValues(msgType).Inc()
			sentBytes.WithLabelValues(msgType).Add(float64(n))
		}
		return n, err
	}
}

func (h *handlerWithMetrics) measureLatency(msg Msg, f func() error) error {
	start := time.Now()

	err := f()
	if err != nil {
		handleErrors.WithLabelValues(errors.Type(err), msg.TypeString()).Inc()
	}

	msgLatency.WithLabelValues(msg.TypeString()).Observe(time.Since(start).Seconds())
	return err
}
