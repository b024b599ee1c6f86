// Package bus is the Redis pub/sub client. Publishing and subscribing use
// separate connections so inbound delivery never queues behind outbound
// commands.
package bus

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"cortex/internal/config"
	"cortex/internal/notify"
	"cortex/internal/protocol"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type Client struct {
	cfg       config.BusConfig
	namespace string
	status    *notify.Topic[StatusEvent]

	mu         sync.Mutex
	pub        *redis.Client
	sub        *redis.Client
	pubsub     *redis.PubSub
	handlers   map[string]Handler
	keyspace   string
	lastStatus Status
	closed     bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

func New(cfg config.BusConfig, namespace string) *Client {
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 2 * time.Second
	}
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = 2 * time.Second
	}
	return &Client{
		cfg:       cfg,
		namespace: namespace,
		status:    notify.NewTopic[StatusEvent]("bus_status"),
		handlers:  map[string]Handler{},
	}
}

func (c *Client) Namespace() string { return c.namespace }

func (c *Client) Status() *notify.Topic[StatusEvent] { return c.status }

func (c *Client) LastStatus() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastStatus
}

// Connect opens the publisher and subscriber connections. Failures are never
// returned: they are reported on the status topic and retried by the health
// monitor.
func (c *Client) Connect(ctx context.Context) {
	c.mu.Lock()
	if c.pub != nil || c.closed {
		c.mu.Unlock()
		return
	}
	c.pub = redis.NewClient(c.options(true))
	c.sub = redis.NewClient(c.options(false))
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	pub := c.pub
	c.mu.Unlock()

	log.Info().Str("addr", c.cfg.Addr()).Str("namespace", c.namespace).Bool("tls", c.cfg.TLS).Msg("bus connecting")
	c.wg.Add(1)
	go c.monitor(runCtx, pub)
}

func (c *Client) options(publisher bool) *redis.Options {
	opts := &redis.Options{
		Addr:     c.cfg.Addr(),
		Username: c.cfg.Username,
		Password: c.cfg.Password,
	}
	if c.cfg.TLS {
		opts.TLSConfig = &tls.Config{ServerName: c.cfg.Host, MinVersion: tls.VersionTLS12}
	}
	if publisher {
		// Extra pool connections opened while ready are not lifecycle changes.
		opts.OnConnect = func(context.Context, *redis.Conn) error {
			if c.LastStatus() != StatusReady {
				c.setStatus(StatusConnect, nil)
			}
			return nil
		}
	}
	return opts
}

// Publish encodes payload as JSON and sends it on the namespaced channel.
func (c *Client) Publish(ctx context.Context, channel protocol.Channel, payload any) error {
	c.mu.Lock()
	pub := c.pub
	c.mu.Unlock()
	if pub == nil {
		log.Error().Str("channel", string(channel)).Msg("publish before connect")
		return ErrNotConnected
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", channel, err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.PublishTimeout)
	defer cancel()
	if err := pub.Publish(ctx, channel.Namespaced(c.namespace), data).Err(); err != nil {
		metricPublishErrorsTotal.Add(1)
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	metricPublishedTotal.Add(1)
	return nil
}

// Subscribe routes messages of the namespaced channel to h. Registering a
// channel again replaces its handler.
func (c *Client) Subscribe(ctx context.Context, channel protocol.Channel, h Handler) error {
	return c.subscribe(ctx, channel.Namespaced(c.namespace), h)
}

func (c *Client) SubscribeDiscovery(ctx context.Context, h Handler) error {
	return c.subscribe(ctx, protocol.ChannelDiscovery.Namespaced(""), h)
}

func (c *Client) UnsubscribeDiscovery(ctx context.Context) error {
	name := protocol.ChannelDiscovery.Namespaced("")
	c.mu.Lock()
	ps := c.pubsub
	delete(c.handlers, name)
	c.mu.Unlock()
	if ps == nil {
		return nil
	}
	if err := ps.Unsubscribe(ctx, name); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", name, err)
	}
	log.Debug().Str("channel", name).Msg("bus unsubscribed")
	return nil
}

func (c *Client) subscribe(ctx context.Context, name string, h Handler) error {
	c.mu.Lock()
	if c.sub == nil {
		c.mu.Unlock()
		log.Error().Str("channel", name).Msg("subscribe before connect")
		return ErrNotConnected
	}
	c.handlers[name] = h
	if c.pubsub == nil {
		// Without channels the PubSub does not dial; that happens below.
		c.pubsub = c.sub.Subscribe(ctx)
		c.wg.Add(1)
		go c.dispatch(c.pubsub.Channel())
	}
	ps := c.pubsub
	c.mu.Unlock()

	if err := ps.Subscribe(ctx, name); err != nil {
		return fmt.Errorf("subscribe %s: %w", name, err)
	}
	log.Debug().Str("channel", name).Msg("bus subscribed")
	return nil
}

// dispatch delivers messages one at a time in arrival order.
func (c *Client) dispatch(ch <-chan *redis.Message) {
	defer c.wg.Done()
	for msg := range ch {
		metricReceivedTotal.Add(1)
		c.mu.Lock()
		h := c.handlers[msg.Channel]
		c.mu.Unlock()
		if h == nil {
			continue
		}
		payload := []byte(msg.Payload)
		if !json.Valid(payload) {
			metricDecodeErrorsTotal.Add(1)
			log.Warn().Str("channel", msg.Channel).Str("payload", msg.Payload).Msg("drop malformed message")
			continue
		}
		c.deliver(msg.Channel, h, payload)
	}
}

func (c *Client) deliver(channel string, h Handler, payload json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			metricHandlerPanicsTotal.Add(1)
			log.Error().Str("channel", channel).Interface("panic", r).Msg("bus handler failed")
		}
	}()
	h(payload)
}

func (c *Client) monitor(ctx context.Context, pub *redis.Client) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.HealthInterval)
	defer ticker.Stop()
	for {
		c.probe(ctx, pub)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *Client) probe(ctx context.Context, pub *redis.Client) {
	pingCtx, cancel := context.WithTimeout(ctx, c.cfg.PublishTimeout)
	err := pub.Ping(pingCtx).Err()
	cancel()
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		if c.LastStatus() == StatusReady {
			c.setStatus(StatusReconnecting, err)
		}
		c.setStatus(StatusError, err)
		return
	}
	c.setStatus(StatusReady, nil)
}

// Ping checks the publisher connection.
func (c *Client) Ping(ctx context.Context) error {
	c.mu.Lock()
	pub := c.pub
	c.mu.Unlock()
	if pub == nil {
		return ErrNotConnected
	}
	return pub.Ping(ctx).Err()
}

func (c *Client) setStatus(s Status, err error) {
	c.mu.Lock()
	if c.lastStatus == s || c.lastStatus == StatusEnd {
		c.mu.Unlock()
		return
	}
	c.lastStatus = s
	c.mu.Unlock()

	ev := log.Info()
	if err != nil {
		ev = log.Warn().Err(err)
	}
	ev.Str("status", string(s)).Str("namespace", c.namespace).Msg("bus status")
	c.status.Emit(StatusEvent{Status: s, Err: err, At: time.Now()})
}

// Quit closes both connections and waits for the client's goroutines. It is
// safe to call more than once.
func (c *Client) Quit(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	pub, sub, ps, cancel := c.pub, c.sub, c.pubsub, c.cancel
	c.pub, c.sub, c.pubsub = nil, nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var errs []error
	if ps != nil {
		log.Info().Msg("closing bus subscriber")
		errs = append(errs, ps.Close())
	}
	if sub != nil {
		errs = append(errs, sub.Close())
	}
	if pub != nil {
		log.Info().Msg("closing bus publisher")
		errs = append(errs, pub.Close())
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	c.setStatus(StatusEnd, nil)
	log.Info().Msg("bus connection closed")
	return errors.Join(errs...)
}
