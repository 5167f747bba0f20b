// Package envelope parses the Doginals scripting envelope out of the
// whitespace-separated assembly token stream of a scriptSig.
package envelope

import (
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// GenesisSentinel is the decimal marker token that must open the first
// input's assembly for a transaction to be considered an inscription
// genesis.
const GenesisSentinel = "6582895"

var (
	// ErrNotDoginal is returned when the first input's assembly does not
	// begin with GenesisSentinel.
	ErrNotDoginal = errors.New("envelope: missing genesis sentinel")

	// ErrTooFewTokens is returned when the token stream is shorter than
	// the minimum shape requires.
	ErrTooFewTokens = errors.New("envelope: token stream too short")

	// ErrExpectedInteger is returned when a token expected to be a
	// decimal integer marker is not.
	ErrExpectedInteger = errors.New("envelope: expected integer token")

	// ErrExpectedHex is returned when a token expected to carry payload
	// bytes is not a well-formed hex string.
	ErrExpectedHex = errors.New("envelope: expected hex token")
)

var integerToken = regexp.MustCompile(`^[+-]?[0-9]+$`)
var hexToken = regexp.MustCompile(`^[0-9a-fA-F]+$`)

// isInteger reports whether tok is an integer marker. Integer markers take
// priority over hex interpretation: a token made entirely of decimal digits
// is always a marker, never payload.
func isInteger(tok string) bool {
	return integerToken.MatchString(tok)
}

// isHex reports whether tok is a well-formed hex payload token.
func isHex(tok string) bool {
	return hexToken.MatchString(tok) && !isInteger(tok)
}

// Result is the outcome of parsing one hop's worth of envelope tokens.
type Result struct {
	// HexChunks are the raw hex strings carried by this hop, in order.
	HexChunks []string

	// MimeType is the UTF-8 decoded declared media type. Only populated
	// by ParseGenesis.
	MimeType string

	// EndOfData is true if a (remaining, hex) pair with a remaining-chunks
	// marker of 0 was consumed, signaling the envelope is complete.
	EndOfData bool

	// ChunksConsumed is the number of (integer, hex) pairs consumed from
	// this hop.
	ChunksConsumed int

	// LastRemaining is the last remaining-chunks value observed, used by
	// the chain walker as a running estimate of the total chunk count.
	LastRemaining int
}

// Hex returns the concatenation of all hex chunks collected in this result.
func (r Result) Hex() string {
	return strings.Join(r.HexChunks, "")
}

// TruncationError wraps a partially parsed Result for the case where the
// token stream ran out mid-envelope but at least one hex chunk was
// collected. Callers should emit the partial bytes along with a truncation
// warning rather than failing outright.
type TruncationError struct {
	Result Result
	Err    error
}

func (e *TruncationError) Error() string {
	return fmt.Sprintf("envelope: truncated (%d chunks collected): %v", len(e.Result.HexChunks), e.Err)
}

func (e *TruncationError) Unwrap() error { return e.Err }

// ParseGenesis parses a genesis hop: [sentinel, remainingChunks, mimeTypeHex,
// (remainingN, hexChunkN)*]. It requires at least 3 tokens.
func ParseGenesis(tokens []string) (Result, error) {
	if len(tokens) < 3 {
		return Result{}, ErrTooFewTokens
	}
	if tokens[0] != GenesisSentinel {
		return Result{}, ErrNotDoginal
	}
	if !isInteger(tokens[1]) {
		return Result{}, fmt.Errorf("%w: remaining-chunks marker %q", ErrExpectedInteger, tokens[1])
	}
	firstRemaining, err := strconv.Atoi(tokens[1])
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrExpectedInteger, err)
	}
	if !isHex(tokens[2]) {
		return Result{}, fmt.Errorf("%w: mime type token %q", ErrExpectedHex, tokens[2])
	}
	mimeBytes, err := hex.DecodeString(tokens[2])
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrExpectedHex, err)
	}

	res := Result{
		MimeType:      string(mimeBytes),
		LastRemaining: firstRemaining,
	}

	return parsePairs(tokens[3:], res)
}

// ParseSubsequent parses a non-genesis hop: (remainingN, hexChunkN)* with no
// sentinel or mime preamble.
func ParseSubsequent(tokens []string) (Result, error) {
	return parsePairs(tokens, Result{})
}

// parsePairs greedily consumes (integer, hex) pairs from tokens, appending
// them to the seed Result, until tokens run out or a remaining-chunks value
// of 0 is observed.
func parsePairs(tokens []string, seed Result) (Result, error) {
	res := seed
	i := 0
	for i < len(tokens) {
		remainingTok := tokens[i]
		if !isInteger(remainingTok) {
			err := fmt.Errorf("%w: remaining-chunks marker %q at pair %d", ErrExpectedInteger, remainingTok, res.ChunksConsumed)
			return truncatedOrError(res, err)
		}
		remaining, err := strconv.Atoi(remainingTok)
		if err != nil {
			return truncatedOrError(res, fmt.Errorf("%w: %v", ErrExpectedInteger, err))
		}

		// No hex token follows: truncated trailing integer.
		if i+1 >= len(tokens) {
			return truncatedOrError(res, fmt.Errorf("%w: trailing remaining-chunks marker with no hex", ErrTooFewTokens))
		}

		hexTok := tokens[i+1]
		if !isHex(hexTok) {
			return truncatedOrError(res, fmt.Errorf("%w: chunk token %q", ErrExpectedHex, hexTok))
		}

		res.HexChunks = append(res.HexChunks, hexTok)
		res.ChunksConsumed++
		res.LastRemaining = remaining
		i += 2

		if remaining == 0 {
			res.EndOfData = true
			return res, nil
		}
	}

	return res, nil
}

// truncatedOrError discards the partial result only when no hex has been
// produced at all; otherwise it returns what was collected wrapped in a
// TruncationError so the caller can emit it with a warning.
func truncatedOrError(res Result, err error) (Result, error) {
	if len(res.HexChunks) == 0 {
		return Result{}, err
	}
	return res, &TruncationError{Result: res, Err: err}
}

// Tokenize splits a disassembled scriptSig (as produced by a node's
// decodescript/getrawtransaction verbose asm field) into whitespace
// separated tokens.
func Tokenize(asm string) []string {
	return strings.Fields(asm)
}
