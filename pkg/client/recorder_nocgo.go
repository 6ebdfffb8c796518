//go:build !cgo
// +build !cgo

package client

import "errors"

// Без cgo нет ни драйвера микрофона, ни кодека Opus
func startMicrophone() (capture, error) {
	return nil, errors.New("built without cgo")
}
