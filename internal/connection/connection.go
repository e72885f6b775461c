package connection

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/elrafoon/ptnet-mgr/internal/broadcast"
	"github.com/elrafoon/ptnet-mgr/internal/logger"
	"github.com/elrafoon/ptnet-mgr/internal/metrics"
	"github.com/elrafoon/ptnet-mgr/internal/model"
	"github.com/elrafoon/ptnet-mgr/internal/protocol/ptnet"
	"github.com/elrafoon/ptnet-mgr/internal/ptneterr"
)

// ChannelCapacity is the bounded broadcast capacity for server_messages and
// parsed_iobs (spec §4.4, §9: "the spec mandates capacity >= 128").
const ChannelCapacity = 128

// Connection multiplexes one full-duplex TCP session: a read half owned
// solely by the dispatcher (Run) and a write half guarded by a mutex shared
// by senders (spec §4.4).
//
// The write mutex also guards the pending-request map and the id counter
// (spec §9, "Shared mutable session state"): separating them would let two
// sends publish frames out of id order, so the coupling is deliberate and
// must be preserved.
type Connection struct {
	conn   net.Conn
	reader *bufio.Reader

	mu      sync.Mutex
	nextID  uint16
	pending map[uint16]chan uint16
	closed  bool

	serverMessages *broadcast.Broadcaster[ServerMessage]
	parsedIOBs     *broadcast.Broadcaster[IOBEvent]

	metrics *metrics.Metrics
}

// Option configures a Connection at construction time.
type Option func(*Connection)

// WithMetrics wires m into the connection's frame/pending-request
// instrumentation. Omitting it leaves metrics recording as a no-op.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Connection) { c.metrics = m }
}

// IOBEvent pairs a successfully-parsed information object with the node
// address of the server message it arrived in (spec §4.4's parsed_iobs
// fan-out; SPEC_FULL.md Open Question Decision 7 — IOB itself carries no
// node address, but the persistor (§4.6) and NodeScan (§4.5) both key their
// work off it, so the dispatcher attaches the enclosing ServerMessage's
// Header.Address to every IOB it publishes).
type IOBEvent struct {
	Address model.NodeAddress
	IOB     ptnet.IOB
}

// New wraps conn in a Connection. conn is not dialed or closed by New; the
// caller owns its lifecycle (spec §3, "created once per session").
func New(conn net.Conn, opts ...Option) *Connection {
	c := &Connection{
		conn:           conn,
		reader:         bufio.NewReader(conn),
		pending:        make(map[uint16]chan uint16),
		serverMessages: broadcast.New[ServerMessage](ChannelCapacity),
		parsedIOBs:     broadcast.New[IOBEvent](ChannelCapacity),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubscribeServerMessages returns a bounded, drop-oldest channel of every
// inbound server-pushed message (spec §4.4).
func (c *Connection) SubscribeServerMessages() (<-chan ServerMessage, func()) {
	return c.serverMessages.Subscribe()
}

// SubscribeParsedIOBs returns a bounded, drop-oldest channel of every
// successfully-parsed information object (spec §4.4).
func (c *Connection) SubscribeParsedIOBs() (<-chan IOBEvent, func()) {
	return c.parsedIOBs.Subscribe()
}

// Send writes one outbound request message and registers its id with a
// freshly created waiter channel, returned for the caller to await the
// delivery result on (spec §4.4's "NodeScan" and "FWU" call sites; spec §8
// scenario S3).
//
// Id reservation, the wire write, and waiter registration happen under one
// lock acquisition (spec §4.4, §9): the result cannot arrive before the
// write returns, so registering after the write is safe, but all three
// steps must stay atomic with respect to other senders.
func (c *Connection) Send(port int32, header ptnet.Header, payload []byte) (uint16, <-chan uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, nil, fmt.Errorf("connection: send: %w: link down", ptneterr.ErrIO)
	}

	id := c.nextID
	frame, err := encodeMessage(Message{ID: id, Port: port, Header: header, Payload: payload})
	if err != nil {
		return 0, nil, err
	}
	if _, err := c.conn.Write(frame); err != nil {
		return 0, nil, fmt.Errorf("connection: send: %w: %v", ptneterr.ErrIO, err)
	}
	c.nextID++ // monotonic u16, wraps at 2^16 (spec §3)

	waiter := make(chan uint16, 1)
	c.pending[id] = waiter
	c.metrics.IncFramesSent()
	c.metrics.SetPendingRequests(len(c.pending))
	return id, waiter, nil
}

// Run is the dispatcher loop (spec §4.4): it owns the read half exclusively
// and blocks reading frames until a read or codec error occurs, at which
// point it terminates, drops every pending waiter by closing its channel,
// and returns the terminal error to the caller (normally the supervisor).
func (c *Connection) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.conn.Close()
		case <-done:
		}
	}()

	err := c.dispatchLoop()
	c.teardown()
	return err
}

func (c *Connection) dispatchLoop() error {
	for {
		var magicBuf [2]byte
		if _, err := io.ReadFull(c.reader, magicBuf[:]); err != nil {
			return fmt.Errorf("connection: read magic: %w: %v", ptneterr.ErrIO, err)
		}
		magic := binary.LittleEndian.Uint16(magicBuf[:])

		switch magic {
		case ptnet.MagicResult:
			if err := c.handleResult(); err != nil {
				return err
			}
		case ptnet.MagicServerMessage:
			if err := c.handleServerMessage(); err != nil {
				return err
			}
		default:
			return fmt.Errorf("connection: dispatch: %w: unknown magic 0x%04X", ptneterr.ErrProtocol, magic)
		}
	}
}

func (c *Connection) handleResult() error {
	var buf [messageResultSize]byte
	if _, err := io.ReadFull(c.reader, buf[:]); err != nil {
		return fmt.Errorf("connection: read message result: %w: %v", ptneterr.ErrIO, err)
	}
	res := decodeMessageResult(buf[:])
	c.metrics.IncFramesReceived()

	c.mu.Lock()
	waiter, ok := c.pending[res.MsgID]
	if ok {
		delete(c.pending, res.MsgID)
	}
	pending := len(c.pending)
	c.mu.Unlock()
	c.metrics.SetPendingRequests(pending)

	if !ok {
		logger.Warn("connection: result for unknown or already-delivered id", "msg_id", res.MsgID)
		return nil
	}
	waiter <- res.Result
	return nil
}

func (c *Connection) handleServerMessage() error {
	var hdr [serverMessageHeaderSize]byte
	if _, err := io.ReadFull(c.reader, hdr[:]); err != nil {
		return fmt.Errorf("connection: read server message header: %w: %v", ptneterr.ErrIO, err)
	}
	sm, payloadLen := decodeServerMessageHeader(hdr[:])
	c.metrics.IncFramesReceived()

	if payloadLen > 0 {
		sm.Payload = make([]byte, payloadLen)
		if _, err := io.ReadFull(c.reader, sm.Payload); err != nil {
			return fmt.Errorf("connection: read server message payload: %w: %v", ptneterr.ErrIO, err)
		}
	}

	c.serverMessages.Publish(sm)

	if sm.Header.Prm() && (sm.Header.FC() == ptnet.FCPrmSendConfirm || sm.Header.FC() == ptnet.FCPrmSendNoreply) {
		addr := model.NodeAddress(sm.Header.Address)
		iobs, err := ptnet.NewIOBIterator(sm.Payload).All()
		if err != nil {
			logger.Warn("connection: stopped parsing server message payload after bad IE",
				"address", addr, "error", err)
		}
		for _, iob := range iobs {
			c.parsedIOBs.Publish(IOBEvent{Address: addr, IOB: iob})
		}
	}
	return nil
}

// teardown drops every pending waiter (spec §4.4, "Cancellation"): a waiter
// observing its channel closed treats it as LinkDown.
func (c *Connection) teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for id, waiter := range c.pending {
		close(waiter)
		delete(c.pending, id)
	}
}

