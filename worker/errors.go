package worker

import "github.com/pkg/errors"

var (
	// ErrNetworkUnavailable represents a rejected fetch: offline, DNS failure, connection reset
	ErrNetworkUnavailable = errors.New("network unavailable")
	// ErrInstallAssetUnavailable represents a manifest asset that could not be fetched during install
	ErrInstallAssetUnavailable = errors.New("install asset unavailable")
	// ErrNotIntercepted is returned for requests the worker does not handle
	ErrNotIntercepted = errors.New("request not intercepted")
	// ErrUnknownMessage represents a message with an unsupported type
	ErrUnknownMessage = errors.New("unknown message type")
	// ErrNoWaitingWorker is returned when there is no worker to skip waiting for
	ErrNoWaitingWorker = errors.New("no installing or waiting worker")
)
