package dex

import (
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"solana-whale-watch/internal/domain"
)

// Classifier tags a normalized trade with its originating venue and trade
// kind by matching known program identifiers in the raw payload.
type Classifier struct {
	venues   map[string]string // programID -> venue
	kinds    map[string]string // venue -> trade kind
	priority []string          // programIDs in match order, router first
}

// NewClassifier creates a classifier with the default program registry.
func NewClassifier() *Classifier {
	return &Classifier{
		venues: map[string]string{
			RaydiumAMMV4: domain.VenueRaydium,
			PumpFun:      domain.VenuePumpFun,
			JupiterV6:    domain.VenueJupiter,
			OpenbookV2:   domain.VenueOpenbook,
		},
		kinds: map[string]string{
			domain.VenueRaydium:  domain.TradeKindAMMSwap,
			domain.VenuePumpFun:  domain.TradeKindAMMSwap,
			domain.VenueJupiter:  domain.TradeKindAMMSwap,
			domain.VenueOpenbook: domain.TradeKindOrderbook,
		},
		priority: []string{JupiterV6, RaydiumAMMV4, PumpFun, OpenbookV2},
	}
}

// RegisterVenue adds a program to the registry at lowest match priority.
func (c *Classifier) RegisterVenue(programID, venue, tradeKind string) {
	c.venues[programID] = venue
	c.kinds[venue] = tradeKind
	c.priority = append(c.priority, programID)
}

// Classify sets Venue and TradeKind on the trade from the raw payload.
// Returns ErrUnknownVenue when no known protocol signature matches; the
// caller treats that as a recoverable skip.
func (c *Classifier) Classify(trade *domain.NormalizedTrade, raw *domain.RawTransaction) error {
	venue := c.matchVenue(raw)
	if venue == domain.VenueUnknown {
		return ErrUnknownVenue
	}

	trade.Venue = venue
	trade.TradeKind = c.kinds[venue]

	// A counterparty that is not a valid ed25519 point is a PDA or garbage;
	// drop it rather than report a non-wallet account.
	if trade.Counterparty != "" && !isOnCurve(trade.Counterparty) {
		trade.Counterparty = ""
	}

	return nil
}

// matchVenue scans instructions first, then invoke logs. Instruction order
// decides when a transaction touches several known programs: the outermost
// router (e.g. Jupiter) wins over the pools it routes through.
func (c *Classifier) matchVenue(raw *domain.RawTransaction) string {
	for _, inst := range raw.Instructions {
		if venue, ok := c.venues[inst.ProgramID]; ok {
			return venue
		}
	}
	for _, programID := range c.priority {
		needle := "Program " + programID + " invoke"
		for _, logLine := range raw.LogMessages {
			if strings.Contains(logLine, needle) {
				return c.venues[programID]
			}
		}
	}
	return domain.VenueUnknown
}

// isOnCurve reports whether the base58 address decodes to a valid ed25519
// curve point, i.e. a keypair-controlled account.
func isOnCurve(address string) bool {
	point, err := base58.Decode(address)
	if err != nil || len(point) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(point)
	return err == nil
}
