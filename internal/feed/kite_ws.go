// Package feed keeps the live-quote cache populated. The Kite WebSocket
// stream is the primary source, the Yahoo poller the fallback, and the
// quote-page scraper the last resort.
package feed

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arthasutra/backend/internal/contracts"
	"github.com/arthasutra/backend/pkg/config"
	"github.com/arthasutra/backend/pkg/logger"
)

const (
	// Source tags recorded on cached quotes.
	SourceKite   = "kite"
	SourceYahoo  = "yf"
	SourceScrape = "web"

	reconnectDelay    = 5 * time.Second
	maxReconnectDelay = 5 * time.Minute

	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
)

// KiteWS streams last-traded prices from the Zerodha Kite ticker and
// writes them into the quote cache under the "kite" source tag.
type KiteWS struct {
	cfg        config.KiteConfig
	logger     *logger.Logger
	quotes     contracts.QuoteStore
	securities contracts.SecurityRepository

	conn   *websocket.Conn
	connMu sync.RWMutex

	// tokens maps instrument token to security id for the subscribed set.
	tokens   map[uint32]int64
	tokensMu sync.RWMutex

	stopCh       chan struct{}
	doneCh       chan struct{}
	reconnecting bool
	reconnectMu  sync.Mutex
}

func NewKiteWS(
	cfg config.KiteConfig,
	quotes contracts.QuoteStore,
	securities contracts.SecurityRepository,
	log *logger.Logger,
) *KiteWS {
	return &KiteWS{
		cfg:        cfg,
		logger:     log,
		quotes:     quotes,
		securities: securities,
		tokens:     make(map[uint32]int64),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start connects, subscribes every security carrying an instrument token
// and launches the read and ping loops.
func (c *KiteWS) Start(ctx context.Context) error {
	c.logger.Info("Starting Kite ticker client")

	if err := c.refreshTokens(ctx); err != nil {
		return fmt.Errorf("load instrument tokens: %w", err)
	}
	if err := c.connect(ctx); err != nil {
		return fmt.Errorf("initial connection failed: %w", err)
	}

	go c.readLoop(ctx)
	go c.pingLoop(ctx)

	return nil
}

// Stop closes the connection and waits for the read loop to exit.
func (c *KiteWS) Stop() {
	c.logger.Info("Stopping Kite ticker client")

	close(c.stopCh)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.connMu.Unlock()

	<-c.doneCh
}

// RefreshSubscriptions reloads the tokenized security set and resubscribes.
// Called after a holdings import adds new securities.
func (c *KiteWS) RefreshSubscriptions(ctx context.Context) error {
	if err := c.refreshTokens(ctx); err != nil {
		return err
	}
	return c.subscribeAll()
}

func (c *KiteWS) refreshTokens(ctx context.Context) error {
	secs, err := c.securities.ListWithKiteToken(ctx)
	if err != nil {
		return err
	}

	tokens := make(map[uint32]int64, len(secs))
	for _, sec := range secs {
		if sec.KiteToken != nil {
			tokens[uint32(*sec.KiteToken)] = sec.ID
		}
	}

	c.tokensMu.Lock()
	c.tokens = tokens
	c.tokensMu.Unlock()

	c.logger.WithField("count", len(tokens)).Debug("Loaded instrument tokens")
	return nil
}

func (c *KiteWS) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	wsURL := fmt.Sprintf("%s?api_key=%s&access_token=%s", c.cfg.WSURL, c.cfg.APIKey, c.cfg.AccessToken)

	c.logger.WithField("url", c.cfg.WSURL).Debug("Connecting to Kite ticker")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.conn = conn
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	c.logger.Info("Connected to Kite ticker")

	return c.subscribeLocked()
}

func (c *KiteWS) subscribeAll() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.subscribeLocked()
}

// subscribeLocked sends subscribe and LTP-mode messages for every known
// token. Caller holds connMu.
func (c *KiteWS) subscribeLocked() error {
	if c.conn == nil {
		return nil
	}

	c.tokensMu.RLock()
	tokens := make([]uint32, 0, len(c.tokens))
	for tok := range c.tokens {
		tokens = append(tokens, tok)
	}
	c.tokensMu.RUnlock()

	if len(tokens) == 0 {
		return nil
	}

	if err := c.conn.WriteJSON(map[string]interface{}{"a": "subscribe", "v": tokens}); err != nil {
		return fmt.Errorf("subscribe failed: %w", err)
	}
	if err := c.conn.WriteJSON(map[string]interface{}{"a": "mode", "v": []interface{}{"ltp", tokens}}); err != nil {
		return fmt.Errorf("set ltp mode failed: %w", err)
	}

	c.logger.WithField("tokens", len(tokens)).Info("Subscribed to instrument tokens")
	return nil
}

func (c *KiteWS) readLoop(ctx context.Context) {
	defer close(c.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		default:
		}

		c.connMu.RLock()
		conn := c.conn
		c.connMu.RUnlock()

		if conn == nil {
			time.Sleep(1 * time.Second)
			continue
		}

		msgType, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.stopCh:
				return
			default:
			}
			c.logger.WithError(err).Error("Failed to read ticker message")
			c.handleDisconnect(ctx)
			continue
		}

		if msgType == websocket.BinaryMessage {
			c.handleBinary(message)
		}
	}
}

// handleBinary decodes a Kite binary frame. Layout: a two-byte packet
// count, then per packet a two-byte length followed by the payload. An LTP
// payload is eight bytes: instrument token and price in paise, both
// big-endian. One-byte frames are heartbeats.
func (c *KiteWS) handleBinary(frame []byte) {
	if len(frame) < 2 {
		return
	}

	count := int(binary.BigEndian.Uint16(frame[0:2]))
	offset := 2

	for i := 0; i < count; i++ {
		if offset+2 > len(frame) {
			return
		}
		length := int(binary.BigEndian.Uint16(frame[offset : offset+2]))
		offset += 2
		if offset+length > len(frame) {
			return
		}
		packet := frame[offset : offset+length]
		offset += length

		if length < 8 {
			continue
		}
		token := binary.BigEndian.Uint32(packet[0:4])
		paise := int32(binary.BigEndian.Uint32(packet[4:8]))
		if paise <= 0 {
			continue
		}
		price := float64(paise) / 100.0

		c.tokensMu.RLock()
		securityID, ok := c.tokens[token]
		c.tokensMu.RUnlock()
		if !ok {
			continue
		}

		c.quotes.Upsert(securityID, price, SourceKite)
	}
}

func (c *KiteWS) handleDisconnect(ctx context.Context) {
	c.reconnectMu.Lock()
	if c.reconnecting {
		c.reconnectMu.Unlock()
		return
	}
	c.reconnecting = true
	c.reconnectMu.Unlock()

	defer func() {
		c.reconnectMu.Lock()
		c.reconnecting = false
		c.reconnectMu.Unlock()
	}()

	c.logger.Warn("Kite ticker disconnected, attempting to reconnect")

	delay := reconnectDelay
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-time.After(delay):
		}

		if err := c.connect(ctx); err != nil {
			c.logger.WithError(err).WithField("delay", delay).Error("Reconnect failed, retrying")

			delay *= 2
			if delay > maxReconnectDelay {
				delay = maxReconnectDelay
			}
			continue
		}

		c.logger.Info("Reconnected to Kite ticker")
		return
	}
}

func (c *KiteWS) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.connMu.RLock()
			conn := c.conn
			c.connMu.RUnlock()

			if conn == nil {
				continue
			}

			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeWait)); err != nil {
				c.logger.WithError(err).Error("Failed to send ping")
			}
		}
	}
}
