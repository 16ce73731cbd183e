// Package multicast implements a self-healing fan-out bus: one worker
// goroutine owns the subscriber list, forwarding each published message to
// every live subscriber and pruning a subscriber lazily on the first publish
// that finds its channel buffer full.
package multicast

import "errors"

// ErrClosed is returned by Publish/Subscribe once the bus has shut down.
var ErrClosed = errors.New("multicast: bus closed")

const subscriberBuffer = 4096

// Subscription is a live registration on a Bus. Unsubscribe should be called
// when the subscriber is done reading, though a subscriber that merely stops
// draining its channel is pruned lazily by the bus once a publish finds its
// buffer (subscriberBuffer messages) full.
type Subscription[T any] struct {
	C      <-chan T
	bus    *Bus[T]
	ch     chan T
	closed chan struct{}
}

// Unsubscribe removes the subscription immediately rather than waiting for
// lazy pruning, and the bus then closes C.
func (s *Subscription[T]) Unsubscribe() {
	select {
	case <-s.closed:
		return
	default:
		close(s.closed)
	}
	select {
	case s.bus.unregister <- s.ch:
	case <-s.bus.closedCh:
	}
}

// Bus fans out messages of type T to any number of subscribers. One worker
// goroutine owns the subscriber list; a message channel and a
// subscriber-registration channel feed it.
type Bus[T any] struct {
	messages   chan T
	register   chan *Subscription[T]
	unregister chan chan T
	done       chan struct{}
	closedCh   chan struct{}
}

// New creates a Bus and starts its worker goroutine. bufSize sizes the
// internal message channel.
func New[T any](bufSize int) *Bus[T] {
	b := &Bus[T]{
		messages:   make(chan T, bufSize),
		register:   make(chan *Subscription[T]),
		unregister: make(chan chan T, 16),
		done:       make(chan struct{}),
		closedCh:   make(chan struct{}),
	}
	go b.run()
	return b
}

// Subscribe registers a new subscriber and returns a Subscription whose C
// field receives every message published after registration. Returns
// ErrClosed if the bus has already shut down.
func (b *Bus[T]) Subscribe() (*Subscription[T], error) {
	ch := make(chan T, subscriberBuffer)
	sub := &Subscription[T]{C: ch, bus: b, ch: ch, closed: make(chan struct{})}
	select {
	case b.register <- sub:
		return sub, nil
	case <-b.closedCh:
		return nil, ErrClosed
	}
}

// Publish enqueues a message for delivery to every current subscriber.
// Returns ErrClosed if the bus has already shut down.
func (b *Bus[T]) Publish(msg T) error {
	select {
	case <-b.closedCh:
		return ErrClosed
	default:
	}
	select {
	case b.messages <- msg:
		return nil
	case <-b.closedCh:
		return ErrClosed
	}
}

// Close shuts the bus down. Pending Publish/Subscribe calls in flight may
// still be observed as ErrClosed; no further messages are delivered.
func (b *Bus[T]) Close() {
	select {
	case <-b.done:
	default:
		close(b.done)
	}
}

func (b *Bus[T]) run() {
	defer close(b.closedCh)
	subs := make([]chan T, 0, 8)
	remove := func(dead chan T) {
		for i := len(subs) - 1; i >= 0; i-- {
			if subs[i] == dead {
				subs = append(subs[:i], subs[i+1:]...)
			}
		}
	}
	for {
		select {
		case <-b.done:
			return
		case sub := <-b.register:
			subs = append(subs, sub.ch)
		case dead := <-b.unregister:
			remove(dead)
			close(dead)
		case msg := <-b.messages:
			for i := len(subs) - 1; i >= 0; i-- {
				select {
				case subs[i] <- msg:
				default:
					// Subscriber channel is full: its buffer is generous
					// enough (subscriberBuffer) that a full channel means a
					// genuinely dead or abandoned subscriber, not a merely
					// slow one. Prune it rather than block the bus.
					subs = append(subs[:i], subs[i+1:]...)
				}
			}
		}
	}
}
