package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"sync"
)

const bridgeHost = "127.0.0.1"

// OpHandler serves one whitelisted operation. The payload is the raw JSON the
// UI sent; the returned value is marshalled into the response's data field.
type OpHandler func(payload json.RawMessage) (any, error)

// request is one line from a UI client.
type request struct {
	Op      string          `json:"op"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// response answers one request.
type response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// notification is pushed to every connected client.
type notification struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// Server exposes the fixed operation whitelist over newline-delimited JSON on
// a loopback TCP port and forwards every bus notification to connected UI
// clients in publish order.
type Server struct {
	mu       sync.Mutex
	handlers map[string]OpHandler
	clients  map[net.Conn]*clientConn
	bus      *Bus
	unsubs   []Unsubscribe
	lis      net.Listener
	port     int
}

type clientConn struct {
	mu sync.Mutex
	c  net.Conn
	w  *bufio.Writer
}

func (cc *clientConn) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if _, err := cc.w.Write(append(data, '\n')); err != nil {
		return err
	}
	return cc.w.Flush()
}

// NewServer creates a server forwarding notifications from bus.
func NewServer(bus *Bus) *Server {
	return &Server{
		handlers: make(map[string]OpHandler),
		clients:  make(map[net.Conn]*clientConn),
		bus:      bus,
	}
}

// Handle registers the handler for one operation name. Registering the same
// name twice is a programming error.
func (s *Server) Handle(op string, h OpHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.handlers[op]; dup {
		panic(fmt.Sprintf("bridge: duplicate handler for %s", op))
	}
	s.handlers[op] = h
}

// Start binds the loopback port and begins accepting UI clients. A busy port
// means another resident already owns the bridge.
func (s *Server) Start(ctx context.Context, port int) error {
	addr := fmt.Sprintf("%s:%d", bridgeHost, port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("bridge: failed to bind %s: %v", addr, err)
		return err
	}
	s.mu.Lock()
	s.lis = lis
	s.port = lis.Addr().(*net.TCPAddr).Port
	s.mu.Unlock()
	log.Printf("bridge: listening on %s", lis.Addr())

	for _, name := range EventNames() {
		name := name
		unsub := s.bus.Subscribe(name, func(ev Event) {
			s.broadcast(notification{Event: ev.Name, Payload: ev.Payload})
		})
		s.unsubs = append(s.unsubs, unsub)
	}

	go s.acceptLoop(ctx, lis)
	return nil
}

// Port returns the bound TCP port, or 0 if not started.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// acceptLoop owns its listener reference; Close only closes the listener, it
// never mutates what this loop reads.
func (s *Server) acceptLoop(ctx context.Context, lis net.Listener) {
	for {
		c, err := lis.Accept()
		if err != nil {
			return
		}
		cc := &clientConn{c: c, w: bufio.NewWriter(c)}
		s.mu.Lock()
		s.clients[c] = cc
		s.mu.Unlock()
		log.Printf("bridge: client connected from %s", c.RemoteAddr())
		go s.serveConn(ctx, cc)
	}
}

func (s *Server) serveConn(ctx context.Context, cc *clientConn) {
	defer func() {
		s.mu.Lock()
		delete(s.clients, cc.c)
		s.mu.Unlock()
		_ = cc.c.Close()
	}()

	scanner := bufio.NewScanner(cc.c)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		var req request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			_ = cc.writeJSON(response{Success: false, Error: "malformed request"})
			continue
		}
		_ = cc.writeJSON(s.handle(req))
	}
}

func (s *Server) handle(req request) response {
	s.mu.Lock()
	h, ok := s.handlers[req.Op]
	s.mu.Unlock()
	if !ok {
		log.Printf("bridge: unknown operation %q", req.Op)
		return response{Success: false, Error: fmt.Sprintf("unknown operation: %s", req.Op)}
	}
	data, err := h(req.Payload)
	if err != nil {
		return response{Success: false, Error: err.Error()}
	}
	return response{Success: true, Data: data}
}

func (s *Server) broadcast(n notification) {
	s.mu.Lock()
	clients := make([]*clientConn, 0, len(s.clients))
	for _, cc := range s.clients {
		clients = append(clients, cc)
	}
	s.mu.Unlock()
	for _, cc := range clients {
		if err := cc.writeJSON(n); err != nil {
			log.Printf("bridge: dropping client %s: %v", cc.c.RemoteAddr(), err)
			_ = cc.c.Close()
		}
	}
}

// Close stops accepting clients and releases bus subscriptions.
func (s *Server) Close() error {
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		_ = c.Close()
	}
	s.clients = make(map[net.Conn]*clientConn)
	if s.lis != nil {
		err := s.lis.Close()
		s.lis = nil
		return err
	}
	return nil
}
