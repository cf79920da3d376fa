package console

import (
	"sync"

	"github.com/normaladmin/go-console-sdk/api"
	"github.com/normaladmin/go-console-sdk/util"
)

type MessageHandler func(msg api.Message)

// DeregisterFunc removes the handler it was returned for. Calling it more than
// once has no effect.
type DeregisterFunc func()

type listener struct {
	id      uint64
	handler MessageHandler
}

// ListenerRegistry maps message types to handlers kept in registration order.
type ListenerRegistry struct {
	mu        sync.RWMutex
	nextId    uint64
	listeners map[string][]listener
}

func NewListenerRegistry() *ListenerRegistry {
	return &ListenerRegistry{
		listeners: make(map[string][]listener),
	}
}

func (r *ListenerRegistry) On(messageType string, handler MessageHandler) DeregisterFunc {
	if handler == nil {
		return func() {}
	}
	r.mu.Lock()
	r.nextId++
	id := r.nextId
	r.listeners[messageType] = append(r.listeners[messageType], listener{id: id, handler: handler})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.remove(messageType, id)
		})
	}
}

// remove copies the slice so a dispatch already iterating the old one is unaffected.
func (r *ListenerRegistry) remove(messageType string, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current := r.listeners[messageType]
	for i, l := range current {
		if l.id != id {
			continue
		}
		next := make([]listener, 0, len(current)-1)
		next = append(next, current[:i]...)
		next = append(next, current[i+1:]...)
		if len(next) == 0 {
			delete(r.listeners, messageType)
		} else {
			r.listeners[messageType] = next
		}
		return
	}
}

func (r *ListenerRegistry) Len(messageType string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners[messageType])
}

func (r *ListenerRegistry) snapshot(messageType string) []listener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listeners[messageType]
}

// Emit invokes only the handlers registered for messageType.
func (r *ListenerRegistry) Emit(messageType string, msg api.Message) {
	for _, l := range r.snapshot(messageType) {
		invokeListener(l, messageType, msg)
	}
}

// Dispatch delivers an inbound message to its type's handlers, then to wildcard
// handlers. A notification recall additionally emits notification-recall.
func (r *ListenerRegistry) Dispatch(msg api.Message) {
	r.Emit(msg.Type_, msg)
	if msg.Type_ != api.MessageType_Wildcard {
		r.Emit(api.MessageType_Wildcard, msg)
	}

	if msg.IsRecall() {
		recall, err := api.NewRecallMessage(msg)
		if err != nil {
			util.Warnf("Failed to build recall event: %v", err)
			return
		}
		r.Emit(api.MessageType_NotificationRecall, recall)
	}
}

func invokeListener(l listener, messageType string, msg api.Message) {
	defer func() {
		if rec := recover(); rec != nil {
			util.Warnf("Listener %d for %q panicked: %v", l.id, messageType, rec)
		}
	}()
	l.handler(msg)
}
