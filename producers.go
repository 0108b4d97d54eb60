package reaktor

// NewGenerator registers a pre-filled source with sys: the loop's drain
// pulls one value per poll until the sequence is spent. Handy for trees
// that should run without external traffic.
func NewGenerator[T any](sys *System, values ...T) (*ReactiveSignal[T], error) {
	rx, err := NewSignalReceiver[T](Unbounded())
	if err != nil {
		return nil, err
	}
	tx := rx.Sender()
	for _, v := range values {
		if err := tx.Send(v); err != nil {
			rx.Close()
			return nil, err
		}
	}
	rs, err := NewReactiveSignal(sys, rx)
	if err != nil {
		rx.Close()
		return nil, err
	}
	return rs, nil
}

// NewSingle registers a source producing value exactly once.
func NewSingle[T any](sys *System, value T) (*ReactiveSignal[T], error) {
	return NewGenerator(sys, value)
}
