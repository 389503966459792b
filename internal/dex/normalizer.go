package dex

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"

	"solana-whale-watch/internal/domain"
	"solana-whale-watch/internal/idhash"
)

// quoteAsset describes a quote-side asset the normalizer can price in USD.
type quoteAsset struct {
	symbol   string
	decimals int32
	priceUSD decimal.Decimal
}

// Normalizer converts raw, protocol-specific transaction payloads into
// uniform NormalizedTrade records. It is a pure function over its input:
// no network calls, no mutation of the raw payload.
//
// Monetary amounts are carried as decimals end to end; binary floating
// point would accumulate drift in the detector's window aggregation.
type Normalizer struct {
	symbols map[string]string     // mint -> tracked token symbol
	quotes  map[string]quoteAsset // mint -> quote asset

	rayLogPattern *regexp.Regexp
	mintPattern   *regexp.Regexp
	fieldPattern  *regexp.Regexp
	ownerPattern  *regexp.Regexp
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithSOLPrice overrides the USD price used to value SOL-quoted swaps.
func WithSOLPrice(price decimal.Decimal) NormalizerOption {
	return func(n *Normalizer) {
		q := n.quotes[WSOL]
		q.priceUSD = price
		n.quotes[WSOL] = q
	}
}

// NewNormalizer creates a Normalizer for the given watchlist. Mints outside
// the watchlist still normalize; their symbol falls back to the mint address
// and the detector stays inert for them.
func NewNormalizer(watchlist []domain.TokenThresholds, opts ...NormalizerOption) *Normalizer {
	symbols := make(map[string]string, len(watchlist))
	for _, t := range watchlist {
		symbols[t.Mint] = t.Symbol
	}

	n := &Normalizer{
		symbols: symbols,
		quotes: map[string]quoteAsset{
			WSOL: {symbol: "SOL", decimals: 9, priceUSD: decimal.NewFromInt(150)},
			USDC: {symbol: "USDC", decimals: 6, priceUSD: decimal.NewFromInt(1)},
		},
		rayLogPattern: regexp.MustCompile(`ray_log: ([A-Za-z0-9+/=]+)`),
		mintPattern:   regexp.MustCompile(`mint[=:]\s*([A-Za-z0-9]+)`),
		fieldPattern:  regexp.MustCompile(`([a-z_]+)[=:]\s*(\d+)`),
		ownerPattern:  regexp.MustCompile(`owner=([A-Za-z0-9]+)`),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize converts one RawTransaction into one NormalizedTrade.
// Returns ErrUnsupportedFormat when the payload matches no known protocol
// shape, ErrMissingField when a required field is absent or non-numeric.
func (n *Normalizer) Normalize(raw *domain.RawTransaction) (*domain.NormalizedTrade, error) {
	if raw == nil || raw.Signature == "" {
		return nil, fmt.Errorf("%w: signature", ErrMissingField)
	}

	if trade, err, ok := n.normalizeRaydium(raw); ok {
		return trade, err
	}
	if trade, err, ok := n.normalizePumpFun(raw); ok {
		return trade, err
	}
	if trade, err, ok := n.normalizeJupiter(raw); ok {
		return trade, err
	}
	if trade, err, ok := n.normalizeOpenbook(raw); ok {
		return trade, err
	}

	return nil, ErrUnsupportedFormat
}

// normalizeRaydium parses a Raydium AMM v4 swap from its ray_log entry.
// ray_log layout: discriminator(1) + ammId(32) + inputMint(32) +
// outputMint(32) + amountIn(8) + amountOut(8).
func (n *Normalizer) normalizeRaydium(raw *domain.RawTransaction) (*domain.NormalizedTrade, error, bool) {
	if !invokes(raw, RaydiumAMMV4) {
		return nil, nil, false
	}

	for i, logLine := range raw.LogMessages {
		matches := n.rayLogPattern.FindStringSubmatch(logLine)
		if matches == nil {
			continue
		}

		data, err := base64.StdEncoding.DecodeString(matches[1])
		if err != nil {
			continue
		}
		if !isRaydiumSwapLog(data) {
			continue
		}
		if len(data) < 113 {
			return nil, fmt.Errorf("%w: ray_log amounts", ErrMissingField), true
		}

		inputMint := base58.Encode(data[33:65])
		outputMint := base58.Encode(data[65:97])
		amountIn := binary.LittleEndian.Uint64(data[97:105])
		amountOut := binary.LittleEndian.Uint64(data[105:113])

		side, mint, base, quoteUSD, err := n.resolvePair(inputMint, outputMint, amountIn, amountOut)
		if err != nil {
			return nil, err, true
		}

		var counterparty string
		if len(raw.AccountKeys) >= 18 {
			counterparty = raw.AccountKeys[17] // user owner in the swap account layout
		}

		return n.newTrade(raw, i, mint, side, base, quoteUSD, counterparty), nil, true
	}

	return nil, fmt.Errorf("%w: ray_log", ErrMissingField), true
}

// normalizePumpFun parses a pump.fun bonding-curve trade from program logs.
func (n *Normalizer) normalizePumpFun(raw *domain.RawTransaction) (*domain.NormalizedTrade, error, bool) {
	if !invokes(raw, PumpFun) {
		return nil, nil, false
	}

	var (
		mint        string
		side        string
		eventIndex  int
		tokenAmount uint64
		solAmount   uint64
		hasToken    bool
		hasSol      bool
	)
	inSection := false

	for i, logLine := range raw.LogMessages {
		if strings.Contains(logLine, "Program "+PumpFun+" invoke") {
			inSection = true
			continue
		}
		if strings.Contains(logLine, "Program "+PumpFun+" success") ||
			strings.Contains(logLine, "Program "+PumpFun+" failed") {
			inSection = false
			continue
		}
		if !inSection {
			continue
		}

		if m := n.mintPattern.FindStringSubmatch(logLine); m != nil {
			mint = m[1]
		}
		for _, f := range n.fieldPattern.FindAllStringSubmatch(logLine, -1) {
			v, err := strconv.ParseUint(f[2], 10, 64)
			if err != nil {
				continue
			}
			switch f[1] {
			case "token_amount", "amount":
				tokenAmount, hasToken = v, true
			case "sol_amount":
				solAmount, hasSol = v, true
			}
		}

		if strings.Contains(logLine, "Instruction: Buy") {
			side, eventIndex = domain.SideBuy, i
		} else if strings.Contains(logLine, "Instruction: Sell") {
			side, eventIndex = domain.SideSell, i
		}
	}

	if side == "" {
		return nil, fmt.Errorf("%w: trade instruction", ErrMissingField), true
	}
	if mint == "" {
		return nil, fmt.Errorf("%w: mint", ErrMissingField), true
	}
	if !hasToken || !hasSol {
		return nil, fmt.Errorf("%w: amounts", ErrMissingField), true
	}

	sol := n.quotes[WSOL]
	quoteUSD := decimal.NewFromUint64(solAmount).Shift(-sol.decimals).Mul(sol.priceUSD)
	base := decimal.NewFromUint64(tokenAmount)

	var counterparty string
	if len(raw.AccountKeys) > 0 {
		counterparty = raw.AccountKeys[0] // fee payer is the trader
	}

	return n.newTrade(raw, eventIndex, mint, side, base, quoteUSD, counterparty), nil, true
}

// normalizeJupiter parses a Jupiter v6 route instruction.
// Instruction data layout: discriminator(1) + inAmount(8) + outAmount(8) +
// slippageBps(8) + platformFeeBps(8). Accounts: [user, inputMint, outputMint].
func (n *Normalizer) normalizeJupiter(raw *domain.RawTransaction) (*domain.NormalizedTrade, error, bool) {
	for i, inst := range raw.Instructions {
		if inst.ProgramID != JupiterV6 {
			continue
		}
		if len(inst.Data) < 1 || inst.Data[0] != 0x02 {
			continue
		}
		if len(inst.Data) < 33 {
			return nil, fmt.Errorf("%w: route amounts", ErrMissingField), true
		}
		if len(inst.Accounts) < 3 {
			return nil, fmt.Errorf("%w: route accounts", ErrMissingField), true
		}

		amountIn := binary.LittleEndian.Uint64(inst.Data[1:9])
		amountOut := binary.LittleEndian.Uint64(inst.Data[9:17])
		inputMint := inst.Accounts[1]
		outputMint := inst.Accounts[2]

		side, mint, base, quoteUSD, err := n.resolvePair(inputMint, outputMint, amountIn, amountOut)
		if err != nil {
			return nil, err, true
		}

		return n.newTrade(raw, i, mint, side, base, quoteUSD, inst.Accounts[0]), nil, true
	}

	return nil, nil, false
}

// normalizeOpenbook parses an OpenBook v2 fill from program logs.
// Fill log shape: "Program log: Fill side=<buy|sell> mint=<mint>
// native_base=<n> native_quote=<n> owner=<addr>".
func (n *Normalizer) normalizeOpenbook(raw *domain.RawTransaction) (*domain.NormalizedTrade, error, bool) {
	if !invokes(raw, OpenbookV2) {
		return nil, nil, false
	}

	for i, logLine := range raw.LogMessages {
		if !strings.Contains(logLine, "Program log: Fill") {
			continue
		}

		var side string
		switch {
		case strings.Contains(logLine, "side=buy"):
			side = domain.SideBuy
		case strings.Contains(logLine, "side=sell"):
			side = domain.SideSell
		default:
			return nil, fmt.Errorf("%w: side", ErrMissingField), true
		}

		m := n.mintPattern.FindStringSubmatch(logLine)
		if m == nil {
			return nil, fmt.Errorf("%w: mint", ErrMissingField), true
		}
		mint := m[1]

		fields := make(map[string]uint64)
		for _, f := range n.fieldPattern.FindAllStringSubmatch(logLine, -1) {
			if v, err := strconv.ParseUint(f[2], 10, 64); err == nil {
				fields[f[1]] = v
			}
		}
		nativeBase, okBase := fields["native_base"]
		nativeQuote, okQuote := fields["native_quote"]
		if !okBase || !okQuote {
			return nil, fmt.Errorf("%w: native amounts", ErrMissingField), true
		}

		var counterparty string
		if om := n.ownerPattern.FindStringSubmatch(logLine); om != nil {
			counterparty = om[1]
		}

		usdc := n.quotes[USDC]
		quoteUSD := decimal.NewFromUint64(nativeQuote).Shift(-usdc.decimals).Mul(usdc.priceUSD)
		base := decimal.NewFromUint64(nativeBase)

		return n.newTrade(raw, i, mint, side, base, quoteUSD, counterparty), nil, true
	}

	return nil, fmt.Errorf("%w: fill log", ErrMissingField), true
}

// resolvePair determines trade side and USD volume from an input/output mint
// pair where one side must be a priceable quote asset.
func (n *Normalizer) resolvePair(inputMint, outputMint string, amountIn, amountOut uint64) (side, mint string, base, quoteUSD decimal.Decimal, err error) {
	if q, ok := n.quotes[inputMint]; ok {
		// Quote asset in, token out: a buy of the output token.
		quoteUSD = decimal.NewFromUint64(amountIn).Shift(-q.decimals).Mul(q.priceUSD)
		return domain.SideBuy, outputMint, decimal.NewFromUint64(amountOut), quoteUSD, nil
	}
	if q, ok := n.quotes[outputMint]; ok {
		// Token in, quote asset out: a sell of the input token.
		quoteUSD = decimal.NewFromUint64(amountOut).Shift(-q.decimals).Mul(q.priceUSD)
		return domain.SideSell, inputMint, decimal.NewFromUint64(amountIn), quoteUSD, nil
	}
	return "", "", decimal.Zero, decimal.Zero, fmt.Errorf("%w: quote asset", ErrMissingField)
}

// newTrade assembles the normalized record. Venue and trade kind stay unset
// until classification.
func (n *Normalizer) newTrade(raw *domain.RawTransaction, eventIndex int, mint, side string, base, quoteUSD decimal.Decimal, counterparty string) *domain.NormalizedTrade {
	symbol, ok := n.symbols[mint]
	if !ok {
		symbol = mint
	}
	return &domain.NormalizedTrade{
		ID:             idhash.ComputeTradeID(raw.Signature, eventIndex, raw.Slot),
		TxSignature:    raw.Signature,
		EventIndex:     eventIndex,
		Slot:           raw.Slot,
		Timestamp:      raw.Timestamp,
		TokenSymbol:    symbol,
		TokenMint:      mint,
		Side:           side,
		BaseAmount:     base,
		QuoteAmountUSD: quoteUSD,
		Counterparty:   counterparty,
	}
}

// invokes reports whether the transaction touches the given program, either
// via an instruction or a program invoke log line.
func invokes(raw *domain.RawTransaction, programID string) bool {
	for _, inst := range raw.Instructions {
		if inst.ProgramID == programID {
			return true
		}
	}
	needle := "Program " + programID + " invoke"
	for _, logLine := range raw.LogMessages {
		if strings.Contains(logLine, needle) {
			return true
		}
	}
	return false
}

// isRaydiumSwapLog checks the ray_log discriminator for a swap instruction.
// 0x09 = SwapBaseIn, 0x0b = SwapBaseOut, 0x0d/0x0e appear in newer variants.
func isRaydiumSwapLog(data []byte) bool {
	if len(data) < 1 {
		return false
	}
	disc := data[0]
	return disc == 0x09 || disc == 0x0b || disc == 0x0d || disc == 0x0e
}
