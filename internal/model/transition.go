package model

// TransitionPolicy decides whether an order may move from one status to another.
type TransitionPolicy interface {
	Allow(from, to OrderStatus) error
}

// TransitionFunc adapts a function to TransitionPolicy.
type TransitionFunc func(from, to OrderStatus) error

// Allow calls f(from, to).
func (f TransitionFunc) Allow(from, to OrderStatus) error {
	return f(from, to)
}

var lifecycle = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
}

// StrictTransitions enforces the order lifecycle:
// pending -> processing|cancelled, processing -> shipped|cancelled, shipped -> delivered.
var StrictTransitions TransitionPolicy = TransitionFunc(func(from, to OrderStatus) error {
	if _, err := ParseOrderStatus(string(to)); err != nil {
		return err
	}
	for _, next := range lifecycle[from] {
		if next == to {
			return nil
		}
	}
	return ErrInvalidTransition
})

// AnyTransition lets operators move an order to any known status.
var AnyTransition TransitionPolicy = TransitionFunc(func(_, to OrderStatus) error {
	_, err := ParseOrderStatus(string(to))
	return err
})
