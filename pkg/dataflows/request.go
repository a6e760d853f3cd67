// Package dataflows resolves market data requests through a hierarchy of
// cache tiers with upstream provider fallback. Cache entries are shared
// process-wide; the resolver guarantees a single in-flight upstream fetch
// per key no matter how many sessions ask concurrently.
package dataflows

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Kind identifies what sort of data a request is after.
type Kind string

const (
	KindPrice        Kind = "price"
	KindFundamentals Kind = "fundamentals"
	KindNews         Kind = "news"
	KindSentiment    Kind = "sentiment"
	KindIndex        Kind = "index"
)

// Market identifies the exchange group an instrument trades in.
type Market string

const (
	MarketChina Market = "china"
	MarketUS    Market = "us"
	MarketHK    Market = "hk"
)

// Request identifies one piece of market data.
type Request struct {
	Instrument string
	Market     Market
	Start      time.Time
	End        time.Time
	Kind       Kind
}

// Key returns the deterministic cache key for this request. Same request,
// same key, across processes and sessions.
func (r Request) Key() string {
	s := fmt.Sprintf("%s|%s|%s|%s|%s",
		r.Instrument, r.Market,
		r.Start.UTC().Format("2006-01-02"),
		r.End.UTC().Format("2006-01-02"),
		r.Kind)
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}

func (r Request) String() string {
	return fmt.Sprintf("%s/%s %s %s..%s",
		r.Market, r.Instrument, r.Kind,
		r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
}
