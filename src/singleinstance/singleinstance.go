package singleinstance

// This file defines the API for single-instance ownership and capture delegation.

import (
	"context"
)

// Command names a request a second launch sends to the resident.
type Command string

const (
	// CommandCapture asks the resident to start one capture session.
	CommandCapture Command = "CAPTURE"
)

// Server owns the TCP endpoint and answers delegated requests.
type Server interface {
	// Start begins listening on the configured loopback port and accepting client requests.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted connection as a Conn, or ctx error.
	Next(ctx context.Context) (Conn, error)
	// Close releases ownership and stops accepting clients.
	Close() error
}

// Conn represents one client connection and exposes request + response API.
type Conn interface {
	// Request returns the parsed client request.
	Request() Request
	// RespondSuccess acknowledges the request with an optional message.
	RespondSuccess(msg string) error
	// RespondError sends an error with human-readable message.
	RespondError(msg string) error
	// Close closes the underlying connection.
	Close() error
}

// Request represents a single delegated request.
type Request struct {
	Command Command
}

// Client attempts to delegate a capture to a resident server.
type Client interface {
	// TryCapture performs the PING handshake and asks the resident to capture.
	// If no resident is found, returns delegated=false, err=nil.
	TryCapture(ctx context.Context) (delegated bool, err error)
}

// NewServer returns TCP implementation.
func NewServer(port int) Server { return newTcpServer(ResolvePort(port)) }

// NewClient returns TCP implementation.
func NewClient(port int) Client { return newTcpClient(ResolvePort(port)) }
