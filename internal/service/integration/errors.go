package integration

import "errors"

var ErrQueueFull = errors.New("event queue is full")
