// Package frame serialises Tightbeam's three wire frame kinds (Meta, Sync,
// Symbol) to the compact ASCII strings spec.md §6 defines for QR encoding,
// and parses them back. Grounded on the DNS-exfiltration teacher's
// build/parse pair for its own wire grammar, adapted from dot-separated DNS
// labels to the QR-oriented "TAG:body" grammar spec.md §6 specifies, and on
// web/public/python/simulation.py's _encode_*_frame helpers for the exact
// JSON field names.
package frame

import (
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/tightbeam/tightbeam/tberr"
)

// Wire tags, the first two bytes of every encoded frame.
const (
	TagMeta   = "M:"
	TagSync   = "Y:"
	TagSymbol = "S:"
)

// Metadata carries the invariants constant across a broadcast session
// (spec.md §3, BroadcastMetadata). IntegrityAlgorithm is a superset field
// over spec.md §6's byte-exact grammar: it lets a receiver verify a CRC-32
// check value from metadata alone, without assuming SHA-256.
type Metadata struct {
	BlockSize          int    `json:"block_size"`
	K                  int    `json:"k"`
	OrigLen            int    `json:"orig_len"`
	IntegrityCheck     string `json:"integrity_check"`
	IntegrityAlgorithm string `json:"integrity_algorithm,omitempty"`
}

// Validate checks the InvalidMetadata conditions from spec.md §7. The
// general rule is k > 0, but spec.md §8's boundary behaviour carves out
// k == 0 for the empty-payload case (orig_len == 0): a session with
// nothing to send has no source blocks at all.
func (m Metadata) Validate() error {
	if m.BlockSize <= 0 {
		return fmt.Errorf("frame: block_size must be > 0, got %d: %w", m.BlockSize, tberr.ErrInvalidMetadata)
	}
	if m.K < 0 {
		return fmt.Errorf("frame: k must be >= 0, got %d: %w", m.K, tberr.ErrInvalidMetadata)
	}
	if m.K == 0 && m.OrigLen != 0 {
		return fmt.Errorf("frame: k == 0 requires orig_len == 0, got %d: %w", m.OrigLen, tberr.ErrInvalidMetadata)
	}
	if m.OrigLen < 0 || m.OrigLen > m.K*m.BlockSize {
		return fmt.Errorf("frame: orig_len %d out of range [0, %d]: %w", m.OrigLen, m.K*m.BlockSize, tberr.ErrInvalidMetadata)
	}
	return nil
}

// Kind identifies which of the three frame variants a parsed Frame holds.
type Kind int

const (
	KindMeta Kind = iota
	KindSync
	KindSymbol
)

// SyncBody is the JSON payload of a Sync frame: an embedded copy of
// Metadata plus the fields the sync controller uses to acquire lock
// (spec.md §4.5).
type SyncBody struct {
	Sequence             int    `json:"sequence"`
	Ordinal              int    `json:"ordinal"`
	Total                int    `json:"total"`
	BlockSize            int    `json:"block_size"`
	K                    int    `json:"k"`
	OrigLen              int    `json:"orig_len"`
	IntegrityCheck       string `json:"integrity_check"`
	IntegrityAlgorithm   string `json:"integrity_algorithm,omitempty"`
	ConfirmationRequired int    `json:"confirmation_required"`
}

// Metadata extracts the embedded BroadcastMetadata from a Sync frame body.
func (b SyncBody) Metadata() Metadata {
	return Metadata{
		BlockSize:          b.BlockSize,
		K:                  b.K,
		OrigLen:            b.OrigLen,
		IntegrityCheck:     b.IntegrityCheck,
		IntegrityAlgorithm: b.IntegrityAlgorithm,
	}
}

// Frame is a tagged variant of the three wire frames Tightbeam emits.
// Exactly one of Meta, Sync, or Symbol is meaningful, selected by Kind —
// modelled as a flat struct with an exhaustive Kind switch at parse and
// sync-state boundaries (spec.md §9, "runtime reflection" design note)
// rather than an interface, since every consumer needs to branch on kind
// immediately anyway.
type Frame struct {
	Kind Kind

	Meta Metadata

	Sync SyncBody

	SymbolSequence int
	SymbolIndices  []int
	SymbolPayload  []byte
}

// EncodeMeta renders a Meta frame.
func EncodeMeta(m Metadata) (string, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("frame: encode meta: %w", err)
	}
	return TagMeta + string(body), nil
}

// EncodeSync renders a Sync frame.
func EncodeSync(b SyncBody) (string, error) {
	body, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("frame: encode sync: %w", err)
	}
	return TagSync + string(body), nil
}

// EncodeSymbol renders a Symbol frame: "S:<sequence>|<i1,i2,...>|<hex>".
func EncodeSymbol(sequence int, indices []int, payload []byte) string {
	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = strconv.Itoa(idx)
	}
	return fmt.Sprintf("%s%d|%s|%x", TagSymbol, sequence, strings.Join(parts, ","), payload)
}

// Parse decodes a wire string into a Frame, or returns a typed rejection:
// tberr.ErrMalformedFrame for grammar failures, tberr.ErrIndexOutOfRange for
// a symbol index >= k, and tberr.ErrInvalidMetadata for a Meta or Sync body
// that fails Metadata.Validate. Parse never panics on truncated input.
func Parse(s string, k int) (Frame, error) {
	switch {
	case strings.HasPrefix(s, TagMeta):
		return parseMeta(s)
	case strings.HasPrefix(s, TagSync):
		return parseSync(s)
	case strings.HasPrefix(s, TagSymbol):
		return parseSymbol(s, k)
	default:
		tag := s
		if len(tag) > 2 {
			tag = tag[:2]
		}
		return Frame{}, fmt.Errorf("frame: unknown tag %q: %w", tag, tberr.ErrMalformedFrame)
	}
}

func parseMeta(s string) (Frame, error) {
	var m Metadata
	if err := json.Unmarshal([]byte(s[len(TagMeta):]), &m); err != nil {
		return Frame{}, fmt.Errorf("frame: parse meta: %w: %v", tberr.ErrMalformedFrame, err)
	}
	if err := m.Validate(); err != nil {
		return Frame{}, err
	}
	return Frame{Kind: KindMeta, Meta: m}, nil
}

func parseSync(s string) (Frame, error) {
	var b SyncBody
	if err := json.Unmarshal([]byte(s[len(TagSync):]), &b); err != nil {
		return Frame{}, fmt.Errorf("frame: parse sync: %w: %v", tberr.ErrMalformedFrame, err)
	}
	if b.ConfirmationRequired < 1 {
		return Frame{}, fmt.Errorf("frame: sync confirmation_required must be >= 1, got %d: %w", b.ConfirmationRequired, tberr.ErrMalformedFrame)
	}
	if err := b.Metadata().Validate(); err != nil {
		return Frame{}, err
	}
	return Frame{Kind: KindSync, Sync: b}, nil
}

func parseSymbol(s string, k int) (Frame, error) {
	body := s[len(TagSymbol):]
	fields := strings.SplitN(body, "|", 3)
	if len(fields) != 3 {
		return Frame{}, fmt.Errorf("frame: symbol frame expects 3 fields, got %d: %w", len(fields), tberr.ErrMalformedFrame)
	}

	sequence, err := strconv.Atoi(fields[0])
	if err != nil || sequence < 0 {
		return Frame{}, fmt.Errorf("frame: bad sequence %q: %w", fields[0], tberr.ErrMalformedFrame)
	}

	indices, err := parseIndices(fields[1], k)
	if err != nil {
		return Frame{}, err
	}

	payload, err := parseHexPayload(fields[2])
	if err != nil {
		return Frame{}, err
	}

	return Frame{
		Kind:           KindSymbol,
		SymbolSequence: sequence,
		SymbolIndices:  indices,
		SymbolPayload:  payload,
	}, nil
}

func parseIndices(s string, k int) ([]int, error) {
	if s == "" {
		return nil, fmt.Errorf("frame: empty indices list: %w", tberr.ErrMalformedFrame)
	}
	parts := strings.Split(s, ",")
	seen := make(map[int]struct{}, len(parts))
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		idx, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("frame: bad index %q: %w", p, tberr.ErrMalformedFrame)
		}
		if idx < 0 || (k > 0 && idx >= k) {
			return nil, fmt.Errorf("frame: index %d out of range [0, %d): %w", idx, k, tberr.ErrIndexOutOfRange)
		}
		if _, dup := seen[idx]; dup {
			return nil, fmt.Errorf("frame: duplicate index %d: %w", idx, tberr.ErrMalformedFrame)
		}
		seen[idx] = struct{}{}
		out = append(out, idx)
	}
	return out, nil
}

func parseHexPayload(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("frame: odd-length hex payload: %w", tberr.ErrMalformedFrame)
	}
	out := make([]byte, len(s)/2)
	for i := 0; i < len(out); i++ {
		hi, ok1 := hexDigit(s[2*i])
		lo, ok2 := hexDigit(s[2*i+1])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("frame: invalid hex payload %q: %w", s, tberr.ErrMalformedFrame)
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
