// Package amqp implements the message broker interface for AMQP compliant brokers (ie RabbitMQ)
package amqp

import (
	"encoding/json"
	"log"
	"strings"
	"sync"

	"github.com/streadway/amqp"

	"github.com/tarancss/wadp/lib/msg"
)

// Exchange is the exchange adapter events are published to.
const Exchange = "ae"

// Amqp implements a connection to a broker and a channel for reuse.
type Amqp struct {
	conn *amqp.Connection
	l    sync.Mutex // guards ch
	ch   *amqp.Channel
}

// New instantiates a new amqp broker.
func New(uri string) (*Amqp, error) {
	r := Amqp{}

	var err error

	if r.conn, err = amqp.Dial(uri); err != nil {
		return nil, err
	}

	log.Printf("Connected to %s", uri)

	return &r, nil
}

// Setup obtains an amqp channel and declares the message broker exchange:
//
// - ae ("adapter events"): the wallet service publishes the lifecycle events of its adapters to this exchange
func (r *Amqp) Setup(x interface{}) error {
	// obtain a one-use channel
	channel, err := r.conn.Channel()
	if err != nil {
		return err
	}
	defer channel.Close()

	return channel.ExchangeDeclare(Exchange, amqp.ExchangeTopic, true, false, false, false, nil)
}

// Close terminates gracefully the connection to the AMQP message broker
func (r *Amqp) Close() error {
	r.l.Lock()
	if r.ch != nil {
		if err := r.ch.Close(); err != nil {
			log.Printf("Error closing amqp.Channel:%e", err)
		}

		r.ch = nil

		log.Printf("amqp.Channel closed!")
	}
	r.l.Unlock()

	return r.conn.Close()
}

// channel returns the reusable channel, obtaining it if not present.
func (r *Amqp) channel() (*amqp.Channel, error) {
	r.l.Lock()
	defer r.l.Unlock()

	if r.ch == nil {
		ch, err := r.conn.Channel()
		if err != nil {
			return nil, err
		}

		r.ch = ch
	}

	return r.ch, nil
}

// RoutingKey returns the routing key of the events of clientID named name. Dots in the client id are replaced, as
// they separate the words of topic keys.
func RoutingKey(clientID, name string) string {
	return strings.ReplaceAll(clientID, ".", "_") + "." + name
}

// SendEvent publishes an adapter event to the "ae" exchange
func (r *Amqp) SendEvent(e msg.Event) (err error) {
	// marshal to JSON
	var jsonDoc []byte
	if jsonDoc, err = json.Marshal(e); err != nil {
		return
	}

	ch, err := r.channel()
	if err != nil {
		return
	}
	// build body
	m := amqp.Publishing{
		Headers:     amqp.Table{"x-event-name": e.ClientID + "." + e.Name},
		Body:        jsonDoc,
		ContentType: "application/json",
		Timestamp:   e.TS,
	}
	// publish
	if err = ch.Publish(Exchange, RoutingKey(e.ClientID, e.Name), false, false, m); err != nil {
		log.Printf("[%s] Error sending adapter event to message broker %e", e.ClientID, err)
	}

	return
}

// GetEvents consumes events of clientID, or of every client with msg.AllClients, from the "ae" exchange pushing them
// to the returned channel. The Mutex pointer is provided to ensure the consumed message has been fully dealt with by
// the management function: the mutex is locked when an event is received and the message is only acknowledged once the
// receiver unlocks it.
func (r *Amqp) GetEvents(clientID string, mut *sync.Mutex) (<-chan msg.Event, <-chan error, error) {
	ch, err := r.channel()
	if err != nil {
		return nil, nil, err
	}

	queue, key := Exchange+".all", "#"
	if clientID != msg.AllClients {
		queue, key = Exchange+"."+clientID, RoutingKey(clientID, "*")
	}
	// declare queue
	if _, err = ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, nil, err
	}
	// bind queue to exchange
	if err = ch.QueueBind(queue, key, Exchange, false, nil); err != nil {
		return nil, nil, err
	}
	// create channel for receiving events
	msgs, errCons := ch.Consume(queue, "listener-"+queue, false, false, false, false, nil)
	if errCons != nil {
		return nil, nil, errCons
	}
	// define channels to return
	eves := make(chan msg.Event)
	errs := make(chan error)
	// start routine to consume messages from broker
	go func() {
		defer close(eves)

		for m := range msgs {
			e := new(msg.Event)
			if err := json.Unmarshal(m.Body, e); err != nil {
				errs <- err

				_ = m.Nack(false, false)

				continue
			}
			mut.Lock() // held until the listener is done with the event
			eves <- *e
			mut.Lock() // wait for listener to finish processing the event
			_ = m.Ack(false)
			mut.Unlock()
		}
	}()

	return eves, errs, nil
}
