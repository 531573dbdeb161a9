package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"DigitPulse/internal/domain/models"
	drepo "DigitPulse/internal/domain/repository"
	"DigitPulse/internal/service/ratelimit"
	"DigitPulse/pkg/logger"

	"github.com/gorilla/websocket"
)

// Client implements a VenueStream over the venue's JSON WebSocket API.
// Ticks stream in, buys go out, contract resolutions come back; all of
// it is surfaced as typed VenueEvents.
type Client struct {
	apiToken       string
	appID          string
	websocketURL   string
	symbol         string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	log     *logger.Logger
	limiter *ratelimit.Limiter

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

// Config carries the venue connection settings.
type Config struct {
	APIToken       string
	AppID          string
	WebSocketURL   string
	Symbol         string
	ReconnectDelay time.Duration
	PingInterval   time.Duration
	MaxBuysPerMin  int
}

// New creates a venue stream client.
func New(cfg Config, log *logger.Logger) drepo.VenueStream {
	perMin := cfg.MaxBuysPerMin
	if perMin <= 0 {
		perMin = 10
	}
	return &Client{
		apiToken:       cfg.APIToken,
		appID:          cfg.AppID,
		websocketURL:   cfg.WebSocketURL,
		symbol:         cfg.Symbol,
		reconnectDelay: cfg.ReconnectDelay,
		pingInterval:   cfg.PingInterval,
		log:            log,
		limiter:        ratelimit.New(float64(perMin), float64(perMin)/60),
	}
}

// Connect dials the venue and authorizes when a token is configured.
func (c *Client) Connect(ctx context.Context) error {
	u := c.websocketURL
	if c.appID != "" {
		u = fmt.Sprintf("%s?app_id=%s", c.websocketURL, c.appID)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("venue connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if c.apiToken != "" {
		if err := c.writeJSON(map[string]interface{}{"authorize": c.apiToken}); err != nil {
			return fmt.Errorf("venue authorize: %w", err)
		}
	}
	c.log.Info("venue connected", logger.String("url", c.websocketURL))
	return nil
}

// Subscribe requests the tick stream for the configured symbol.
func (c *Client) Subscribe(ctx context.Context) error {
	if !c.IsConnected() {
		return fmt.Errorf("venue not connected")
	}
	if err := c.writeJSON(map[string]interface{}{"ticks": c.symbol, "subscribe": 1}); err != nil {
		return fmt.Errorf("subscribe %s: %w", c.symbol, err)
	}
	c.log.Info("venue subscribed", logger.String("symbol", c.symbol))
	return nil
}

// Wire frames. The venue multiplexes everything over one socket and
// tags each frame with msg_type.
type venueFrame struct {
	MsgType string `json:"msg_type"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Tick *struct {
		Epoch int64   `json:"epoch"`
		Quote float64 `json:"quote"`
	} `json:"tick"`
	Proposal *struct {
		ID       string  `json:"id"`
		AskPrice float64 `json:"ask_price"`
		Payout   float64 `json:"payout"`
	} `json:"proposal"`
	Buy *struct {
		ContractID int64   `json:"contract_id"`
		BuyPrice   float64 `json:"buy_price"`
	} `json:"buy"`
	Contract *struct {
		ContractID int64   `json:"contract_id"`
		IsSold     int     `json:"is_sold"`
		Profit     float64 `json:"profit"`
	} `json:"proposal_open_contract"`
}

// Read streams typed venue events and errors. The error channel
// receives at most one value; the caller decides whether to reconnect.
func (c *Client) Read(ctx context.Context) (<-chan models.VenueEvent, <-chan error) {
	events := make(chan models.VenueEvent, 256)
	errs := make(chan error, 1)

	// keepalive loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.IsConnected() {
					_ = c.writeJSON(map[string]interface{}{"ping": 1})
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(events)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()
			if conn == nil {
				errs <- fmt.Errorf("venue conn nil")
				return
			}
			_, b, err := conn.ReadMessage()
			if err != nil {
				errs <- fmt.Errorf("venue read: %w", err)
				return
			}
			var f venueFrame
			if err := json.Unmarshal(b, &f); err != nil {
				continue
			}
			if ev, ok := frameToEvent(&f); ok {
				if !forward(ctx, events, ev) {
					return
				}
			}
		}
	}()

	return events, errs
}

// forward queues an event for the consumer. Ticks are shed under
// backpressure; every other frame carries trade lifecycle state the
// engine must see, so those block until the consumer catches up or the
// context ends. Returns false when the context ended.
func forward(ctx context.Context, events chan<- models.VenueEvent, ev models.VenueEvent) bool {
	if _, isTick := ev.(models.TickEvent); isTick {
		select {
		case events <- ev:
		default:
		}
		return true
	}
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func frameToEvent(f *venueFrame) (models.VenueEvent, bool) {
	if f.Error != nil {
		return models.VenueErrorEvent{Code: f.Error.Code, Message: f.Error.Message}, true
	}
	switch f.MsgType {
	case "tick":
		if f.Tick == nil {
			return nil, false
		}
		return models.TickEvent{Epoch: f.Tick.Epoch, Price: f.Tick.Quote}, true
	case "proposal":
		if f.Proposal == nil {
			return nil, false
		}
		return models.ProposalReadyEvent{
			ProposalID: f.Proposal.ID,
			AskPrice:   f.Proposal.AskPrice,
			Payout:     f.Proposal.Payout,
		}, true
	case "buy":
		if f.Buy == nil {
			return nil, false
		}
		return models.TradeFilledEvent{
			ContractID: fmt.Sprintf("%d", f.Buy.ContractID),
			BuyPrice:   f.Buy.BuyPrice,
		}, true
	case "proposal_open_contract":
		if f.Contract == nil || f.Contract.IsSold != 1 {
			return nil, false
		}
		return models.ContractResolvedEvent{
			ContractID: fmt.Sprintf("%d", f.Contract.ContractID),
			Profit:     f.Contract.Profit,
		}, true
	}
	return nil, false
}

// Buy submits a digit-parity contract for the command's side and
// subscribes to its resolution. Throttled by the buy limiter.
func (c *Client) Buy(ctx context.Context, cmd *models.TradeCommand) error {
	if !c.IsConnected() {
		return fmt.Errorf("venue not connected")
	}
	if !c.limiter.Allow() {
		return fmt.Errorf("venue buy rate limited")
	}
	contractType := "DIGITEVEN"
	if cmd.Side == models.Odd {
		contractType = "DIGITODD"
	}
	req := map[string]interface{}{
		"buy":   1,
		"price": cmd.Stake,
		"parameters": map[string]interface{}{
			"contract_type": contractType,
			"symbol":        cmd.Symbol,
			"duration":      cmd.DurationTicks,
			"duration_unit": "t",
			"basis":         "stake",
			"amount":        cmd.Stake,
			"currency":      "USD",
		},
		"subscribe": 1,
	}
	if err := c.writeJSON(req); err != nil {
		return fmt.Errorf("venue buy: %w", err)
	}
	c.log.Info("buy submitted",
		logger.String("contract_type", contractType),
		logger.Float64("stake", cmd.Stake),
		logger.Int("duration_ticks", cmd.DurationTicks))
	return nil
}

// Reconnect closes, waits, and re-establishes the stream.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.reconnectDelay):
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close shuts the connection down.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// IsConnected reports connection status.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("venue conn nil")
	}
	return c.conn.WriteJSON(v)
}
