package notificacion

import (
	"container/heap"
	"sync"
	"time"

	"github.com/dewauriarte/SIGCERH-sub005/pkg/domain"
)

// Queue is the in-memory priority queue the worker drains. Ordering: higher
// Prioridad first, then earliest enqueue time (FIFO within a level). Items
// whose ProximoIntento lies in the future are not eligible for dequeue, which
// is how retry backoff is expressed.
type Queue struct {
	mu    sync.Mutex
	items eventHeap
}

func NewQueue() *Queue {
	return &Queue{}
}

// Push enqueues an event.
func (q *Queue) Push(evento *Evento) {
	q.mu.Lock()
	defer q.mu.Unlock()
	heap.Push(&q.items, evento)
}

// PopDue removes and returns the highest-priority event whose retry time has
// passed. Returns nil when nothing is eligible.
func (q *Queue) PopDue(now time.Time) *Evento {
	q.mu.Lock()
	defer q.mu.Unlock()
	// Pop in priority order, setting aside items still backing off, so the
	// best *eligible* item wins rather than the best item overall.
	var deferred []*Evento
	var due *Evento
	for q.items.Len() > 0 {
		evento := heap.Pop(&q.items).(*Evento)
		if evento.ProximoIntento.After(now) {
			deferred = append(deferred, evento)
			continue
		}
		due = evento
		break
	}
	for _, evento := range deferred {
		heap.Push(&q.items, evento)
	}
	return due
}

// Remove drops the event with the given id, if queued. Used when an operator
// cancels a pending notification.
func (q *Queue) Remove(id domain.NotificacionID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.items {
		if q.items[i].ID == id {
			heap.Remove(&q.items, i)
			return true
		}
	}
	return false
}

// Len reports the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

type eventHeap []*Evento

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].Prioridad != h[j].Prioridad {
		return h[i].Prioridad > h[j].Prioridad
	}
	return h[i].FechaEncolado.Before(h[j].FechaEncolado)
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) { *h = append(*h, x.(*Evento)) }

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
