package worker

// MessageSkipWaiting forces an installing or waiting worker to activate
const MessageSkipWaiting = "SKIP_WAITING"

// Message is a message posted to the worker container by a client
type Message struct {
	Type string `json:"type"`
}
