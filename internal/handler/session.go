// WebSocket session transport. One connection hosts one resolver: the
// client announces its product pair in an init frame, streams variant
// selection events in, and receives control-state, price, and cart frames
// back. Closing the connection detaches the resolver.

package handler

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"preorder-proxy/internal/bus"
	"preorder-proxy/internal/model"
	"preorder-proxy/internal/resolver"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size.
	maxMessageSize = 8 << 10
)

// Storefront widgets are served from the shop's origin, not ours.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// sessionConfig is the product pair announced by the init frame.
type sessionConfig struct {
	OriginalProductID string `json:"original_product_id"`
	OriginalHandle    string `json:"original_handle"`
	PreorderProductID string `json:"preorder_product_id"`
	PreorderHandle    string `json:"preorder_handle"`
	InitialSKU        string `json:"initial_sku,omitempty"`
	InitialVariantID  string `json:"initial_variant_id,omitempty"`
}

// inFrame is the envelope for every client-to-server frame.
type inFrame struct {
	Type string `json:"type"`

	// init
	Config   *sessionConfig `json:"config,omitempty"`
	Sections []string       `json:"sections,omitempty"`
	Quantity string         `json:"quantity,omitempty"`

	// variant:update; a null variant clears the selection
	ProductID string     `json:"product_id,omitempty"`
	Variant   *wsVariant `json:"variant,omitempty"`

	// quantity
	Value string `json:"value,omitempty"`

	// submit
	ActivationID string `json:"activation_id,omitempty"`
}

type wsVariant struct {
	ID        string `json:"id"`
	SKU       string `json:"sku"`
	Title     string `json:"title,omitempty"`
	Available bool   `json:"available"`
	Price     int64  `json:"price,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
}

// outFrame is the envelope for every server-to-client frame.
type outFrame struct {
	Type string `json:"type"`

	// control
	State string `json:"state,omitempty"`
	Label string `json:"label,omitempty"`

	// price
	Formatted string `json:"formatted,omitempty"`

	// cart:added
	Added *model.CartAdded `json:"added,omitempty"`

	// cart:error
	Message  string `json:"message,omitempty"`
	SourceID string `json:"source_id,omitempty"`

	// fly_to_cart
	ImageURL string `json:"image_url,omitempty"`

	// error (protocol-level)
	Code string `json:"code,omitempty"`
}

// session adapts one WebSocket connection into the resolver's collaborator
// surfaces: it is the Control, SectionProvider, QuantitySource, and Effects
// for the resolver it hosts.
type session struct {
	conn *websocket.Conn
	log  *slog.Logger

	send   chan outFrame
	closed chan struct{}
	once   sync.Once

	mu       sync.Mutex
	quantity string
	sections []string
}

var _ resolver.Control = (*session)(nil)
var _ resolver.SectionProvider = (*session)(nil)
var _ resolver.QuantitySource = (*session)(nil)
var _ resolver.Effects = (*session)(nil)

// handleSession upgrades the connection and runs the session loop until the
// client disconnects.
//
//	GET /preorder/session
func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	s := &session{
		conn:     conn,
		log:      h.logger,
		send:     make(chan outFrame, 32),
		closed:   make(chan struct{}),
		sections: h.shop.DefaultSections,
	}

	go s.writePump()
	h.readPump(r, s)
}

// readPump consumes inbound frames until the connection drops, wiring up
// the resolver on the init frame.
func (h *Handler) readPump(r *http.Request, s *session) {
	defer s.close()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Session-scoped notification bus: the resolver and the cart frames it
	// produces are private to this connection.
	b := bus.New()
	token := b.NewToken()
	defer token.Cancel()

	var res *resolver.Resolver
	defer func() {
		if res != nil {
			res.Detach()
		}
	}()

	for {
		var frame inFrame
		if err := s.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("session read failed", slog.String("error", err.Error()))
			}
			return
		}

		switch frame.Type {
		case "init":
			if res != nil {
				s.sendProtocolError("already_initialized", "session already has a resolver")
				continue
			}
			if frame.Config == nil {
				s.sendProtocolError("invalid_init", "init frame requires a config object")
				continue
			}
			s.setQuantity(frame.Quantity)
			if len(frame.Sections) > 0 {
				s.setSections(frame.Sections)
			}

			var err error
			res, err = resolver.New(resolver.Config{
				OriginalProductID: frame.Config.OriginalProductID,
				OriginalHandle:    frame.Config.OriginalHandle,
				PreorderProductID: frame.Config.PreorderProductID,
				PreorderHandle:    frame.Config.PreorderHandle,
				InitialSKU:        frame.Config.InitialSKU,
				InitialVariantID:  frame.Config.InitialVariantID,
				MaxQuantity:       h.shop.MaxQuantity,
			}, resolver.Deps{
				Catalog:  h.store,
				Cart:     h.store,
				Bus:      b,
				Control:  s,
				Sections: s,
				Quantity: s,
				Effects:  s,
				Logger:   h.logger,
			})
			if err != nil {
				s.sendProtocolError("invalid_init", err.Error())
				continue
			}

			// Forward the resolver's cart broadcasts to the client.
			token.Subscribe(bus.TopicCartAdd, func(p any) {
				if ev, ok := p.(model.CartAdded); ok {
					s.enqueue(outFrame{Type: "cart:added", Added: &ev})
				}
			})
			token.Subscribe(bus.TopicCartError, func(p any) {
				if ev, ok := p.(model.CartError); ok {
					s.enqueue(outFrame{Type: "cart:error", Message: ev.Message, SourceID: ev.SourceID})
				}
			})

			res.Attach()

		case "variant:changing":
			b.Publish(bus.TopicVariantChanging, nil)

		case "variant:update":
			upd := model.VariantUpdate{ProductID: frame.ProductID}
			if frame.Variant != nil {
				upd.Variant = &model.Variant{
					ID:        frame.Variant.ID,
					SKU:       frame.Variant.SKU,
					Title:     frame.Variant.Title,
					Available: frame.Variant.Available,
					Price:     frame.Variant.Price,
					ImageURL:  frame.Variant.ImageURL,
				}
			}
			b.Publish(bus.TopicVariantUpdate, upd)

		case "quantity":
			s.setQuantity(frame.Value)

		case "sections":
			s.setSections(frame.Sections)

		case "submit":
			if res == nil {
				s.sendProtocolError("not_initialized", "submit before init")
				continue
			}
			// Submission blocks on the storefront; keep the read loop hot.
			go res.Submit(r.Context(), resolver.Activation{
				ID: frame.ActivationID,
				At: time.Now(),
			})

		default:
			s.sendProtocolError("unknown_frame", "unrecognized frame type "+frame.Type)
		}
	}
}

// writePump serializes all writes to the connection and keeps it alive
// with pings.
func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.closed:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (s *session) close() {
	s.once.Do(func() { close(s.closed) })
}

// enqueue queues an outbound frame, dropping it if the session is closing
// or the client cannot keep up.
func (s *session) enqueue(frame outFrame) {
	select {
	case <-s.closed:
	case s.send <- frame:
	default:
		s.log.Warn("session send buffer full, dropping frame",
			slog.String("type", frame.Type))
	}
}

func (s *session) sendProtocolError(code, msg string) {
	s.enqueue(outFrame{Type: "error", Code: code, Message: msg})
}

// SetState implements resolver.Control.
func (s *session) SetState(state resolver.ControlState, label string) {
	s.enqueue(outFrame{Type: "control", State: string(state), Label: label})
}

// SetPrice implements resolver.Control.
func (s *session) SetPrice(formatted string) {
	s.enqueue(outFrame{Type: "price", Formatted: formatted})
}

// CartSections implements resolver.SectionProvider.
func (s *session) CartSections() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sections...)
}

// Quantity implements resolver.QuantitySource.
func (s *session) Quantity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quantity
}

// FlyToCart implements resolver.Effects.
func (s *session) FlyToCart(imageURL string) {
	s.enqueue(outFrame{Type: "fly_to_cart", ImageURL: imageURL})
}

func (s *session) setQuantity(v string) {
	s.mu.Lock()
	s.quantity = v
	s.mu.Unlock()
}

func (s *session) setSections(ids []string) {
	s.mu.Lock()
	s.sections = append([]string(nil), ids...)
	s.mu.Unlock()
}
