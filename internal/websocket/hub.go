package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Hub maintains the set of connected map viewers and broadcasts lot
// status changes to them
type Hub struct {
	// Registered clients map: connection ID -> Client
	clients map[string]*Client

	// Register requests
	register chan *Client

	// Unregister requests
	unregister chan *Client

	// Outbound messages fanned out to every client
	broadcast chan []byte

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		clients:    make(map[string]*Client),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			log.Printf("Viewer connected: %s", client.ID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.send)
				log.Printf("Viewer disconnected: %s", client.ID)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for id, client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow client, drop it
					close(client.send)
					delete(h.clients, id)
				}
			}
			h.mu.Unlock()
		}
	}
}

// LotStatusMessage notifies viewers that a lot changed state
type LotStatusMessage struct {
	Type       string `json:"type"`
	ProductID  int64  `json:"productId"`
	Status     string `json:"status"`
	ClientName string `json:"clientName,omitempty"`
	At         string `json:"at"`
}

// BroadcastLotStatus pushes a lot status change to all connected viewers
func (h *Hub) BroadcastLotStatus(productID int64, status, clientName string) {
	msg, err := json.Marshal(LotStatusMessage{
		Type:       "LOT_STATUS_CHANGED",
		ProductID:  productID,
		Status:     status,
		ClientName: clientName,
		At:         time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		log.Println("WS broadcast queue full, dropping lot status update")
	}
}

// PaymentValidatedMessage notifies viewers that an invoice was paid
type PaymentValidatedMessage struct {
	Type      string `json:"type"`
	InvoiceID int64  `json:"invoiceId"`
	At        string `json:"at"`
}

// BroadcastPaymentValidated pushes a payment-validated webhook event
func (h *Hub) BroadcastPaymentValidated(invoiceID int64) {
	msg, err := json.Marshal(PaymentValidatedMessage{
		Type:      "PAYMENT_VALIDATED",
		InvoiceID: invoiceID,
		At:        time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	select {
	case h.broadcast <- msg:
	default:
	}
}

// ClientCount returns the number of connected viewers
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
