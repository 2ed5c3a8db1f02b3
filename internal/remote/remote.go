// Package remote runs taggers over a WebSocket connection. A Server
// exposes a locally registered tagger; a Client satisfies the tagger
// interface by shipping the text to the server and attaching the layer
// it sends back.
//
// The wire protocol is one JSON request per message:
//
//	{"id": "...", "tagger": "name", "text": <text record>}
//
// answered by exactly one response:
//
//	{"id": "...", "layer": <layer record>} or {"id": "...", "error": "..."}
package remote

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/strata-nlp/strata/core/errors"
	"github.com/strata-nlp/strata/core/layer"
	"github.com/strata-nlp/strata/core/record"
	"github.com/strata-nlp/strata/core/tagger"
	"github.com/strata-nlp/strata/core/text"
	"github.com/strata-nlp/strata/internal/logging"
)

// Request asks the server to run a named tagger on a text.
type Request struct {
	ID     string             `json:"id"`
	Tagger string             `json:"tagger"`
	Text   *record.TextRecord `json:"text"`
}

// Response carries the produced layer or an error back to the client.
type Response struct {
	ID    string              `json:"id"`
	Layer *record.LayerRecord `json:"layer,omitempty"`
	Error string              `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Server exposes registered taggers over WebSocket connections.
type Server struct {
	mu      sync.RWMutex
	taggers map[string]tagger.Tagger
}

// NewServer creates a server with no registered taggers.
func NewServer() *Server {
	return &Server{taggers: make(map[string]tagger.Tagger)}
}

// Register makes a tagger available under its output layer name.
func (s *Server) Register(tg tagger.Tagger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taggers[tg.OutputLayer()] = tg
}

// Taggers returns the names of all registered taggers.
func (s *Server) Taggers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.taggers))
	for name := range s.taggers {
		names = append(names, name)
	}
	return names
}

// ServeHTTP upgrades the connection and answers tagging requests until
// the client disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	logging.Debug("tagging client connected", "remote", conn.RemoteAddr().String())

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Warn("websocket read failed", "error", err)
			}
			return
		}
		resp := s.handle(&req)
		if err := conn.WriteJSON(resp); err != nil {
			logging.Warn("websocket write failed", "error", err)
			return
		}
	}
}

func (s *Server) handle(req *Request) *Response {
	resp := &Response{ID: req.ID}

	s.mu.RLock()
	tg, ok := s.taggers[req.Tagger]
	s.mu.RUnlock()
	if !ok {
		resp.Error = "unknown tagger: " + req.Tagger
		return resp
	}
	if req.Text == nil {
		resp.Error = "request carries no text"
		return resp
	}

	t, err := record.RecordToText(req.Text)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	if err := tagger.Run(tg, t); err != nil {
		resp.Error = err.Error()
		return resp
	}
	l, ok := t.Layer(tg.OutputLayer())
	if !ok {
		resp.Error = "tagger produced no layer"
		return resp
	}
	resp.Layer = record.LayerToRecord(l)
	return resp
}

// Client runs a server-side tagger on local texts. It satisfies the
// tagger interface, so tagger.Run handles dependency checking and
// attachment the same way it does for local taggers.
type Client struct {
	conn       *websocket.Conn
	mu         sync.Mutex
	output     string
	attributes []string
	inputs     []string
	timeout    time.Duration
}

// ClientOptions configures a remote tagging client.
type ClientOptions struct {
	// OutputLayer is the server-side tagger to invoke.
	OutputLayer string
	// OutputAttributes is the schema of the layer the server produces.
	OutputAttributes []string
	// InputLayers are the dependency layers shipped with each request.
	InputLayers []string
	// Timeout bounds each request round trip. Zero means no deadline.
	Timeout time.Duration
}

// Dial connects to a tagging server at the given WebSocket URL.
func Dial(url string, opts ClientOptions) (*Client, error) {
	if opts.OutputLayer == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "remote client needs an output layer name")
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, errors.NewIO("dial tagging server", url, err)
	}
	return &Client{
		conn:       conn,
		output:     opts.OutputLayer,
		attributes: opts.OutputAttributes,
		inputs:     opts.InputLayers,
		timeout:    opts.Timeout,
	}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// OutputLayer implements tagger.Tagger.
func (c *Client) OutputLayer() string { return c.output }

// OutputAttributes implements tagger.Tagger.
func (c *Client) OutputAttributes() []string { return c.attributes }

// InputLayers implements tagger.Tagger.
func (c *Client) InputLayers() []string { return c.inputs }

// MakeLayer ships the text to the server and decodes the returned layer.
// Only one request is in flight per client at a time.
func (c *Client) MakeLayer(t *text.Text, deps map[string]*layer.Layer) (*layer.Layer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req := Request{
		ID:     uuid.NewString(),
		Tagger: c.output,
		Text:   record.TextToRecord(t),
	}
	if c.timeout > 0 {
		deadline := time.Now().Add(c.timeout)
		c.conn.SetWriteDeadline(deadline)
		c.conn.SetReadDeadline(deadline)
	}
	if err := c.conn.WriteJSON(&req); err != nil {
		return nil, errors.NewIO("send tagging request", c.output, err)
	}
	var resp Response
	if err := c.conn.ReadJSON(&resp); err != nil {
		return nil, errors.NewIO("read tagging response", c.output, err)
	}
	if resp.ID != req.ID {
		return nil, errors.Wrapf(errors.ErrInvalidInput,
			"response id %q does not match request id %q", resp.ID, req.ID)
	}
	if resp.Error != "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "server: %s", resp.Error)
	}
	if resp.Layer == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "response carries no layer")
	}
	return record.RecordToLayer(resp.Layer)
}

