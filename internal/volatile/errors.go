package volatile

import "errors"

// ErrSlotDeclared is returned when declaring a slot name twice.
var ErrSlotDeclared = errors.New("volatile: slot already declared")

// ErrSlotNotDeclared is returned when writing to an unknown slot.
var ErrSlotNotDeclared = errors.New("volatile: slot not declared")

// ErrNotProducer is returned when a writer is not the slot's declared producer.
var ErrNotProducer = errors.New("volatile: not the declared producer")

// ErrInvalidSlot is returned for empty slot or producer names.
var ErrInvalidSlot = errors.New("volatile: invalid slot declaration")
