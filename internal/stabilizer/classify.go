package stabilizer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
)

// Class is the verdict of the classifier for one runtime error.
type Class uint8

const (
	// ClassUnclassified is left to the host's default error path.
	ClassUnclassified Class = iota
	// ClassNetwork may trigger a safe reload.
	ClassNetwork
	// ClassExcluded never triggers recovery, even when it looks like a network failure.
	ClassExcluded
)

func (c Class) String() string {
	switch c {
	case ClassNetwork:
		return "network"
	case ClassExcluded:
		return "excluded"
	default:
		return "unclassified"
	}
}

var (
	// ErrNetwork marks an error as a network-class failure.
	ErrNetwork = errors.New("network failure")
	// ErrChunkLoad marks a failed load of a code bundle; it is excluded from recovery.
	ErrChunkLoad = errors.New("chunk load failure")
)

// ChunkLoadError reports that a lazily loaded bundle could not be fetched.
type ChunkLoadError struct {
	Chunk string
	Err   error
}

func (e *ChunkLoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("loading chunk %s failed", e.Chunk)
	}
	return fmt.Sprintf("loading chunk %s failed: %v", e.Chunk, e.Err)
}

func (e *ChunkLoadError) Unwrap() error { return e.Err }

var networkErrnos = []syscall.Errno{
	syscall.ECONNREFUSED,
	syscall.ECONNRESET,
	syscall.ECONNABORTED,
	syscall.ENETUNREACH,
	syscall.ENETDOWN,
	syscall.EHOSTUNREACH,
	syscall.ETIMEDOUT,
	syscall.EPIPE,
}

// Classifier sorts runtime errors into network, excluded and unclassified.
// Exclusions are checked first.
type Classifier struct {
	keywords []string
	excluded []string
}

// NewClassifier builds a classifier; keywords and patterns match case-insensitively.
func NewClassifier(keywords, excludedPatterns []string) *Classifier {
	return &Classifier{keywords: lower(keywords), excluded: lower(excludedPatterns)}
}

func (c *Classifier) Classify(err error) Class {
	if err == nil {
		return ClassUnclassified
	}

	msg := strings.ToLower(err.Error())
	if isChunkLoad(err) || containsAny(msg, c.excluded) {
		return ClassExcluded
	}
	// Cancellation is the caller giving up, not the network.
	if errors.Is(err, context.Canceled) {
		return ClassUnclassified
	}
	if isNetwork(err) || containsAny(msg, c.keywords) {
		return ClassNetwork
	}
	return ClassUnclassified
}

func isChunkLoad(err error) bool {
	var chunkErr *ChunkLoadError
	return errors.As(err, &chunkErr) || errors.Is(err, ErrChunkLoad)
}

// isNetwork matches concrete transport failures. The generic net.Error
// interface is not used: syscall.Errno and context.DeadlineExceeded satisfy it too.
// A *url.Error only counts through what it wraps, or when the request timed out;
// parse errors and unsupported schemes are client bugs.
func isNetwork(err error) bool {
	if errors.Is(err, ErrNetwork) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var (
		opErr  *net.OpError
		dnsErr *net.DNSError
		urlErr *url.Error
	)
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return true
	}
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	for _, errno := range networkErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}

func containsAny(msg string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(msg, n) {
			return true
		}
	}
	return false
}

func lower(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(s))
	}
	return out
}
