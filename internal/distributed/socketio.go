package distributed

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/vk/kerngen/internal/ctxlog"
	"github.com/vk/kerngen/internal/expr"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Wire protocol events. A worker fleet listens for evaluate requests and
// answers with one chunk_result per request.
const (
	eventEvaluate = "evaluate_chunk"
	eventResult   = "chunk_result"
)

// SocketIOConfig configures the remote transport.
type SocketIOConfig struct {
	// URL is the base endpoint of the worker fleet, e.g. wss://host/kernel.
	URL string
	// Workers is the fixed, known worker count; worker i is addressed at
	// namespace /worker-i.
	Workers            int
	InsecureSkipVerify bool
}

// SocketIOPool ships expression chunks to remote workers over socket.io.
// It honors the same no-retry contract as every Pool: a connect error or a
// worker-reported failure is fatal and surfaces from Fetch.
type SocketIOPool struct {
	cfg     SocketIOConfig
	manager *socket.Manager
}

// NewSocketIOPool validates the endpoint and prepares a connection manager.
// Connections are established lazily per chunk shipment.
func NewSocketIOPool(cfg SocketIOConfig) (*SocketIOPool, error) {
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("distributed: socket.io pool needs a fixed worker count, got %d", cfg.Workers)
	}
	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("distributed: failed to parse worker URL: %w", err)
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	opts.SetTransports(types.NewSet(transports.WebSocket))
	if cfg.InsecureSkipVerify {
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}

	return &SocketIOPool{cfg: cfg, manager: socket.NewManager(baseURL, opts)}, nil
}

// Workers implements Pool.
func (p *SocketIOPool) Workers() int { return p.cfg.Workers }

// Evaluate implements Pool: encode the chunk, connect to the worker's
// namespace, emit the request, and hand back a Pending that resolves on the
// worker's result event. Connection errors resolve the Pending with a fatal
// error; there is no retry.
func (p *SocketIOPool) Evaluate(ctx context.Context, worker int, exprs []expr.Node, env expr.MapEnv) Pending {
	logger := ctxlog.FromContext(ctx).With("worker", worker, "chunkSize", len(exprs))
	ch := make(chan result, 1)

	payload, err := encodeChunk(worker, exprs, env)
	if err != nil {
		ch <- result{err: err}
		return pending{ch: ch}
	}

	ns := fmt.Sprintf("/worker-%d", worker)
	io := p.manager.Socket(ns, nil)

	finish := func(r result) {
		select {
		case ch <- r:
		default:
		}
		io.Disconnect()
	}

	io.On(types.EventName("connect"), func(...any) {
		logger.Debug("Connected to remote worker.", "namespace", ns, "sid", io.Id())
		io.Emit(eventEvaluate, payload)
	})

	io.On(types.EventName("connect_error"), func(errs ...any) {
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				finish(result{err: fmt.Errorf("distributed: worker %d connect: %w", worker, e)})
				return
			}
		}
		finish(result{err: fmt.Errorf("distributed: worker %d connect error", worker)})
	})

	io.On(types.EventName(eventResult), func(data ...any) {
		if len(data) == 0 {
			finish(result{err: fmt.Errorf("distributed: worker %d sent empty result", worker)})
			return
		}
		raw, err := json.Marshal(data[0])
		if err != nil {
			finish(result{err: fmt.Errorf("distributed: worker %d result: %w", worker, err)})
			return
		}
		var res chunkResult
		if err := json.Unmarshal(raw, &res); err != nil {
			finish(result{err: fmt.Errorf("distributed: worker %d result: %w", worker, err)})
			return
		}
		if res.Error != "" {
			finish(result{err: fmt.Errorf("distributed: worker %d failed: %s", worker, res.Error)})
			return
		}
		if len(res.Values) != len(exprs) {
			finish(result{err: fmt.Errorf("distributed: worker %d returned %d values for %d expressions",
				worker, len(res.Values), len(exprs))})
			return
		}
		logger.Debug("Remote chunk result received.")
		finish(result{values: res.Values})
	})

	io.Connect()
	return pending{ch: ch}
}
