package realtime

import "errors"

var ErrBrokerClosed = errors.New("broker closed")
