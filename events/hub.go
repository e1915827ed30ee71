package events

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Event types
const (
	EventTableAssigned      = "table_assigned"
	EventTableReleased      = "table_released"
	EventTableStatusUpdated = "table_status_updated"
	EventSessionCreated     = "customer_session_created"
	EventSessionCheckout    = "customer_session_checkout"
	EventSessionClosed      = "customer_session_closed"
	EventTablesBulkUpdated  = "tables_bulk_updated"
	EventTablesImported     = "tables_imported"
	EventReconcileReport    = "reconcile_report"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub menampung semua client service screen (waiter, admin) untuk broadcast.
// Pengiriman fire-and-forget: transisi state tidak pernah menunggu hub.
type Hub struct {
	clients map[*websocket.Conn]string // conn -> role
	mutex   sync.Mutex
}

var hub = Hub{
	clients: make(map[*websocket.Conn]string),
}

// RegisterClient -> menambahkan connection ke set dengan role
func RegisterClient(conn *websocket.Conn, role string) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	hub.clients[conn] = role
}

// UnregisterClient -> melepaskan connection
func UnregisterClient(conn *websocket.Conn) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	delete(hub.clients, conn)
	conn.Close()
}

// BroadcastTableAssigned -> staff mendapat meja
func BroadcastTableAssigned(tableNumber string, staffID uint) {
	broadcast(Message{
		Event: EventTableAssigned,
		Data: map[string]interface{}{
			"table_number": tableNumber,
			"staff_id":     staffID,
		},
	})
}

// BroadcastTableReleased -> meja kembali available
func BroadcastTableReleased(tableNumber string) {
	broadcast(Message{
		Event: EventTableReleased,
		Data:  map[string]interface{}{"table_number": tableNumber},
	})
}

// BroadcastTableStatusUpdated -> update status meja
func BroadcastTableStatusUpdated(tableNumber, status string) {
	broadcast(Message{
		Event: EventTableStatusUpdated,
		Data: map[string]interface{}{
			"table_number": tableNumber,
			"status":       status,
		},
	})
}

// BroadcastSessionCreated -> tamu duduk
func BroadcastSessionCreated(tableNumber, guestName string, occupancy int) {
	broadcast(Message{
		Event: EventSessionCreated,
		Data: map[string]interface{}{
			"table_number": tableNumber,
			"guest_name":   guestName,
			"occupancy":    occupancy,
		},
	})
}

// BroadcastSessionCheckout -> tamu minta bill
func BroadcastSessionCheckout(tableNumber string, durationMinutes int, totalAmount float64) {
	broadcast(Message{
		Event: EventSessionCheckout,
		Data: map[string]interface{}{
			"table_number": tableNumber,
			"duration":     durationMinutes,
			"total_amount": totalAmount,
		},
	})
}

// BroadcastSessionClosed -> kunjungan selesai
func BroadcastSessionClosed(tableNumber string) {
	broadcast(Message{
		Event: EventSessionClosed,
		Data:  map[string]interface{}{"table_number": tableNumber},
	})
}

// BroadcastMessage -> broadcast pesan umum
func BroadcastMessage(msg Message) {
	broadcast(msg)
}

// broadcast -> fungsi internal untuk mengirim pesan
func broadcast(msg Message) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	for conn := range hub.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("Error sending message to client: %v", err)
			continue
		}
	}
}
