// Package smoketest checks that a sensor feed endpoint accepts connections
// and answers pings.
package smoketest

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/sowilo/feed"
	sowilohttp "github.com/aukilabs/sowilo/http"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"

	defaultTimeout = time.Second * 5
)

type Options struct {
	// The feed endpoint tested when a request has none.
	Endpoint string

	// The token used when a request has none.
	Token string

	UserAgent string
}

type Request struct {
	Endpoint string        `json:"endpoint,omitempty"`
	Token    string        `json:"token,omitempty"`
	Timeout  time.Duration `json:"timeout,omitempty"`
}

type Result struct {
	Endpoint        string  `json:"endpoint"`
	Status          string  `json:"status"`
	LatencyMilliSec float64 `json:"latency_ms"`
	Error           string  `json:"error,omitempty"`
}

// HandleSmokeTest runs a smoke test for each POST request and writes its
// result.
func HandleSmokeTest(ctx context.Context, opts Options) http.HandlerFunc {
	return sowilohttp.HandlePostJSON(func(req Request) (any, error) {
		res, err := Run(ctx, opts, req)
		if err != nil {
			logs.WithTag("endpoint", res.Endpoint).Warn(err)
		}
		return res, nil
	})
}

// Run connects to the feed endpoint, sends a ping and waits for its
// acknowledgement.
func Run(ctx context.Context, opts Options, req Request) (Result, error) {
	if req.Endpoint == "" {
		req.Endpoint = opts.Endpoint
	}
	if req.Token == "" {
		req.Token = opts.Token
	}
	if req.Timeout <= 0 {
		req.Timeout = defaultTimeout
	}

	res := Result{
		Endpoint: req.Endpoint,
		Status:   StatusFailed,
	}

	latency, err := ping(ctx, opts.UserAgent, req)
	if err != nil {
		err = errors.New("smoke test failed").
			WithTag("endpoint", req.Endpoint).
			Wrap(err)
		res.Error = err.Error()
		return res, err
	}

	res.Status = StatusSuccess
	res.LatencyMilliSec = float64(latency) / float64(time.Millisecond)
	return res, nil
}

func ping(ctx context.Context, userAgent string, req Request) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	endpoint := strings.Replace(req.Endpoint, "http", "ws", 1)
	config, err := websocket.NewConfig(endpoint, "http://localhost")
	if err != nil {
		return 0, errors.New("creating websocket config failed").Wrap(err)
	}
	config.Dialer = &net.Dialer{Timeout: req.Timeout}
	config.Header.Set(sowilohttp.HeaderClientID, "smoketest-"+uuid.NewString())
	if userAgent != "" {
		config.Header.Set("User-Agent", userAgent)
	}
	if req.Token != "" {
		config.Header.Set("Authorization", "Bearer "+req.Token)
	}

	conn, err := websocket.DialConfig(config)
	if err != nil {
		return 0, errors.New("dialing feed endpoint failed").Wrap(err)
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return 0, errors.New("setting deadline failed").Wrap(err)
	}

	id := uuid.NewString()
	msg, err := feed.NewMsg(feed.MsgTypePing, id, nil)
	if err != nil {
		return 0, err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return 0, errors.New("encoding ping failed").Wrap(err)
	}

	start := time.Now()
	if err := websocket.Message.Send(conn, string(data)); err != nil {
		return 0, errors.New("sending ping failed").Wrap(err)
	}

	for {
		var data []byte
		if err := websocket.Message.Receive(conn, &data); err != nil {
			return 0, errors.New("receiving ping acknowledgement failed").Wrap(err)
		}

		var res feed.Msg
		if err := json.Unmarshal(data, &res); err != nil {
			return 0, errors.New("decoding response failed").Wrap(err)
		}
		if res.ID != id {
			continue
		}

		if res.Type != feed.MsgTypeAck {
			return 0, errors.New("ping was not acknowledged").
				WithTag("msg_type", res.Type).
				WithTag("data", string(res.Data))
		}
		return time.Since(start), nil
	}
}
