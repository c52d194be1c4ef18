package model

import (
	"fmt"
	"strings"
)

type Side uint8

const (
	BUY Side = iota
	SELL
)

func (s Side) String() string {
	switch s {
	case BUY:
		return "buy"
	case SELL:
		return "sell"
	}
	return fmt.Sprintf("side(%d)", uint8(s))
}

// ParseSide accepts buy/sell and the bid/ask aliases, case-insensitive.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "bid":
		return BUY, nil
	case "sell", "ask":
		return SELL, nil
	}
	return 0, fmt.Errorf("invalid side %q", s)
}

func (s Side) MarshalText() ([]byte, error) {
	if s != BUY && s != SELL {
		return nil, fmt.Errorf("invalid side %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(text []byte) error {
	parsed, err := ParseSide(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
