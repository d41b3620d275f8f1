// Package codec turns cache values into durable records and back.
//
// Every durable payload is a JSON envelope carrying the value together with
// its write time and TTL, so a record written under one strategy can be read
// under any other. Payloads above a size threshold may be gzip-compressed;
// compressed payloads are recognised on read by the gzip magic bytes.
package codec

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/MoonWalka/app-booking-2-sub010/config"
	"io"
	"time"
)

// RecordVersion is the current envelope version.
const RecordVersion = 1

var (
	// ErrSerialization wraps every encode/decode failure.
	ErrSerialization = errors.New("serialization failed")
	// ErrUnsupportedVersion is returned for envelopes written by a newer format.
	ErrUnsupportedVersion = errors.New("unsupported record version")
)

var gzipMagic = []byte{0x1f, 0x8b}

// Record is the durable representation of one cache entry.
type Record struct {
	Version   int             `json:"v"`
	Value     json.RawMessage `json:"value"`
	WrittenAt int64           `json:"writtenAt"` // unix ms
	TTL       int64           `json:"ttl"`       // ms, 0 means none
}

// Written returns the write time.
func (r Record) Written() time.Time { return time.UnixMilli(r.WrittenAt) }

// Lifetime returns the TTL, 0 meaning none.
func (r Record) Lifetime() time.Duration { return time.Duration(r.TTL) * time.Millisecond }

// Expired reports whether the record outlived its TTL at now.
func (r Record) Expired(now time.Time) bool {
	if r.TTL <= 0 {
		return false
	}
	return now.Sub(r.Written()) >= r.Lifetime()
}

// Remaining returns the TTL left at now; 0 for records without TTL.
func (r Record) Remaining(now time.Time) time.Duration {
	if r.TTL <= 0 {
		return 0
	}
	left := r.Lifetime() - now.Sub(r.Written())
	if left < 0 {
		return 0
	}
	return left
}

// Decode unmarshals the value into a generic Go value (maps, slices,
// json.Number, string, bool or nil). Numbers keep their exact literal.
func (r Record) Decode() (any, error) {
	var v any
	if err := decodeJSON(r.Value, &v); err != nil {
		return nil, fmt.Errorf("decode value: %w: %v", ErrSerialization, err)
	}
	return v, nil
}

// As converts a cached value to T. A value already of type T is returned as is;
// generic values read back from a durable tier are re-decoded into T.
func As[T any](v any) (T, error) {
	if t, ok := v.(T); ok {
		return t, nil
	}
	var out T
	raw, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("convert %T: %w: %v", v, ErrSerialization, err)
	}
	if err = decodeJSON(raw, &out); err != nil {
		return out, fmt.Errorf("convert %T to %T: %w: %v", v, out, ErrSerialization, err)
	}
	return out, nil
}

func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// Codec encodes records, optionally compressing them.
type Codec struct {
	compress bool
	level    int
	minBytes int
}

func New(cfg *config.CompressionCfg) *Codec {
	if !cfg.Enabled() {
		return &Codec{}
	}
	return &Codec{compress: true, level: cfg.Level, minBytes: cfg.MinBytes}
}

// NewRecord builds a record for value. It fails with ErrSerialization for values JSON cannot represent.
func NewRecord(value any, writtenAt time.Time, ttl time.Duration) (Record, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return Record{}, fmt.Errorf("encode value: %w: %v", ErrSerialization, err)
	}
	return Record{
		Version:   RecordVersion,
		Value:     raw,
		WrittenAt: writtenAt.UnixMilli(),
		TTL:       ttlMillis(ttl),
	}, nil
}

// ttlMillis rounds up so a positive TTL never becomes "no TTL".
func ttlMillis(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return int64((ttl + time.Millisecond - 1) / time.Millisecond)
}

// Encode marshals value into a durable payload.
func (c *Codec) Encode(value any, writtenAt time.Time, ttl time.Duration) ([]byte, error) {
	rec, err := NewRecord(value, writtenAt, ttl)
	if err != nil {
		return nil, err
	}
	return c.Marshal(rec)
}

// Decode parses a durable payload.
func (c *Codec) Decode(data []byte) (Record, error) {
	var rec Record
	if err := c.Unmarshal(data, &rec); err != nil {
		return Record{}, err
	}
	if rec.Version != RecordVersion {
		return Record{}, fmt.Errorf("record v%d: %w", rec.Version, ErrUnsupportedVersion)
	}
	if len(rec.Value) == 0 {
		return Record{}, fmt.Errorf("record without value: %w", ErrSerialization)
	}
	return rec, nil
}

// Marshal JSON-encodes v and compresses the result when it is large enough.
func (c *Codec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w: %v", ErrSerialization, err)
	}
	if !c.compress || len(data) < c.minBytes {
		return data, nil
	}

	var buf bytes.Buffer
	gw, err := gzip.NewWriterLevel(&buf, c.level)
	if err != nil {
		return nil, fmt.Errorf("gzip writer: %w: %v", ErrSerialization, err)
	}
	if _, err = gw.Write(data); err != nil {
		return nil, fmt.Errorf("gzip write: %w: %v", ErrSerialization, err)
	}
	if err = gw.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w: %v", ErrSerialization, err)
	}
	return buf.Bytes(), nil
}

// Unmarshal reverses Marshal. Compressed input is accepted whether or not
// this codec compresses, so toggling compression never strands old records.
func (c *Codec) Unmarshal(data []byte, v any) error {
	if bytes.HasPrefix(data, gzipMagic) {
		gr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("gzip reader: %w: %v", ErrSerialization, err)
		}
		defer gr.Close()
		if data, err = io.ReadAll(gr); err != nil {
			return fmt.Errorf("gzip read: %w: %v", ErrSerialization, err)
		}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal: %w: %v", ErrSerialization, err)
	}
	return nil
}
