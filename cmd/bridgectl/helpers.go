package main

import (
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"time"
)

func parseBigInt(s string) (*big.Int, bool) {
	return new(big.Int).SetString(strings.TrimSpace(s), 10)
}

func parseHash32(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil || len(b) != 32 {
		return out, errors.New("expected 32-byte hex")
	}
	copy(out[:], b)
	return out, nil
}

func nowUnix() int64 { return time.Now().UTC().Unix() }
