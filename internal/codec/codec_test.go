package codec

import (
	"bytes"
	"encoding/json"
	"github.com/MoonWalka/app-booking-2-sub010/config"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
	"time"
)

// TestCodec_EncodeDecode keeps value, write time and TTL.
func TestCodec_EncodeDecode(t *testing.T) {
	c := New(nil)
	at := time.UnixMilli(1_700_000_000_000)

	data, err := c.Encode(map[string]any{"name": "Festival", "year": 2025}, at, 30*time.Minute)
	require.NoError(t, err)

	rec, err := c.Decode(data)
	require.NoError(t, err)
	require.Equal(t, RecordVersion, rec.Version)
	require.Equal(t, at, rec.Written())
	require.Equal(t, 30*time.Minute, rec.Lifetime())

	v, err := rec.Decode()
	require.NoError(t, err)
	require.Equal(t, map[string]any{"name": "Festival", "year": json.Number("2025")}, v)
}

// TestCodec_Unserializable fails with ErrSerialization.
func TestCodec_Unserializable(t *testing.T) {
	_, err := New(nil).Encode(make(chan int), time.Now(), 0)
	require.ErrorIs(t, err, ErrSerialization)
}

// TestCodec_CorruptPayload fails with ErrSerialization.
func TestCodec_CorruptPayload(t *testing.T) {
	_, err := New(nil).Decode([]byte("invalid json {"))
	require.ErrorIs(t, err, ErrSerialization)
}

// TestCodec_UnknownVersion rejects envelopes from another format version.
func TestCodec_UnknownVersion(t *testing.T) {
	_, err := New(nil).Decode([]byte(`{"v":7,"value":1,"writtenAt":0,"ttl":0}`))
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

// TestCodec_Compression compresses large payloads and reads them with any codec.
func TestCodec_Compression(t *testing.T) {
	c := New(&config.CompressionCfg{Level: 6, MinBytes: 64})
	big := strings.Repeat("contract clause ", 100)

	data, err := c.Encode(big, time.Now(), 0)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, gzipMagic))

	rec, err := New(nil).Decode(data)
	require.NoError(t, err)
	v, err := rec.Decode()
	require.NoError(t, err)
	require.Equal(t, big, v)

	small, err := c.Encode("x", time.Now(), 0)
	require.NoError(t, err)
	require.False(t, bytes.HasPrefix(small, gzipMagic))
}

// TestRecord_Expiry computes expiry and remaining lifetime.
func TestRecord_Expiry(t *testing.T) {
	at := time.UnixMilli(1_000_000)
	rec, err := NewRecord("v", at, time.Minute)
	require.NoError(t, err)

	require.False(t, rec.Expired(at.Add(59*time.Second)))
	require.Equal(t, time.Second, rec.Remaining(at.Add(59*time.Second)))
	require.True(t, rec.Expired(at.Add(time.Minute)))
	require.Equal(t, time.Duration(0), rec.Remaining(at.Add(2*time.Minute)))

	forever, err := NewRecord("v", at, 0)
	require.NoError(t, err)
	require.False(t, forever.Expired(at.Add(365*24*time.Hour)))
}

// TestCodec_Snapshot round-trips a snapshot and rejects unknown versions.
func TestCodec_Snapshot(t *testing.T) {
	c := New(nil)
	at := time.UnixMilli(1_700_000_000_000)

	snap := NewSnapshot(at, 1)
	rec, err := NewRecord([]any{"a", "b"}, at.Add(-time.Minute), time.Hour)
	require.NoError(t, err)
	snap.Entries["list"] = rec

	data, err := c.Marshal(snap)
	require.NoError(t, err)

	got, err := c.DecodeSnapshot(data)
	require.NoError(t, err)
	require.Equal(t, at.UnixMilli(), got.TakenAt)
	require.Equal(t, at.Add(-time.Minute), got.Entries["list"].Written())

	_, err = c.DecodeSnapshot([]byte(`{"version":2,"takenAt":0,"entries":{}}`))
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

// TestRecord_SubMillisecondTTL keeps a positive TTL positive.
func TestRecord_SubMillisecondTTL(t *testing.T) {
	at := time.UnixMilli(1_000_000)
	rec, err := NewRecord("v", at, 500*time.Microsecond)
	require.NoError(t, err)

	require.Equal(t, int64(1), rec.TTL)
	require.True(t, rec.Expired(at.Add(time.Millisecond)))

	rec, err = NewRecord("v", at, 1500*time.Microsecond)
	require.NoError(t, err)
	require.Equal(t, int64(2), rec.TTL)
}

type invoice struct {
	ID     int64    `json:"id"`
	Client string   `json:"client"`
	Lines  []string `json:"lines"`
}

// TestRecord_DecodeKeepsIntegers decodes integers above 2^53 without loss.
func TestRecord_DecodeKeepsIntegers(t *testing.T) {
	rec, err := NewRecord(int64(9007199254740993), time.Now(), 0)
	require.NoError(t, err)

	v, err := rec.Decode()
	require.NoError(t, err)
	require.Equal(t, json.Number("9007199254740993"), v)

	n, err := As[int64](v)
	require.NoError(t, err)
	require.Equal(t, int64(9007199254740993), n)
}

// TestAs converts generic values into the requested type.
func TestAs(t *testing.T) {
	want := invoice{ID: 9007199254740993, Client: "Ana", Lines: []string{"stage", "sound"}}
	rec, err := NewRecord(want, time.Now(), 0)
	require.NoError(t, err)
	generic, err := rec.Decode()
	require.NoError(t, err)

	got, err := As[invoice](generic)
	require.NoError(t, err)
	require.Equal(t, want, got)

	same, err := As[invoice](want)
	require.NoError(t, err)
	require.Equal(t, want, same)

	n, err := As[int](42)
	require.NoError(t, err)
	require.Equal(t, 42, n)

	_, err = As[int]("not a number")
	require.ErrorIs(t, err, ErrSerialization)
}
