package document

import (
	"fmt"
	"math"
)

const SatsPerBSV = 100_000_000

// Defaults for storage pricing.
const (
	DefaultBSVPriceUSD          = 60.0
	DefaultBytesPerWord         = 5
	DefaultSatsPerByte          = 0.05
	DefaultServiceMarkup        = 2.0
	DefaultEncryptionMultiplier = 1.5
	DefaultBudgetUSD            = 0.01

	// BudgetIncreaseThreshold is the word count at which a larger budget is
	// always suggested.
	BudgetIncreaseThreshold = 5000
)

// BudgetTiers are the auto-save budgets offered to authors, in USD.
var BudgetTiers = []float64{0.01, 0.02, 0.05, 0.10}

// Rates are the inputs to a storage quote.
type Rates struct {
	BSVPriceUSD          float64 `json:"bsvPriceUsd" yaml:"bsv_price_usd"`
	BytesPerWord         int     `json:"bytesPerWord" yaml:"bytes_per_word"`
	SatsPerByte          float64 `json:"satsPerByte" yaml:"sats_per_byte"`
	ServiceMarkup        float64 `json:"serviceMarkup" yaml:"service_markup"`
	EncryptionMultiplier float64 `json:"encryptionMultiplier" yaml:"encryption_multiplier"`
}

// DefaultRates returns the standard pricing.
func DefaultRates() Rates {
	return Rates{
		BSVPriceUSD:          DefaultBSVPriceUSD,
		BytesPerWord:         DefaultBytesPerWord,
		SatsPerByte:          DefaultSatsPerByte,
		ServiceMarkup:        DefaultServiceMarkup,
		EncryptionMultiplier: DefaultEncryptionMultiplier,
	}
}

func (r Rates) withDefaults() Rates {
	d := DefaultRates()
	if r.BSVPriceUSD <= 0 {
		r.BSVPriceUSD = d.BSVPriceUSD
	}
	if r.BytesPerWord <= 0 {
		r.BytesPerWord = d.BytesPerWord
	}
	if r.SatsPerByte <= 0 {
		r.SatsPerByte = d.SatsPerByte
	}
	if r.ServiceMarkup <= 0 {
		r.ServiceMarkup = d.ServiceMarkup
	}
	if r.EncryptionMultiplier <= 0 {
		r.EncryptionMultiplier = d.EncryptionMultiplier
	}
	return r
}

// SatsToUSD converts satoshis to USD at the configured price.
func (r Rates) SatsToUSD(sats int64) float64 {
	return float64(sats) / SatsPerBSV * r.withDefaults().BSVPriceUSD
}

// USDToSats converts USD to satoshis, rounding up.
func (r Rates) USDToSats(usd float64) int64 {
	return int64(math.Ceil(usd / r.withDefaults().BSVPriceUSD * SatsPerBSV))
}

// Budget reports how a quote relates to the author's auto-save budget.
type Budget struct {
	CurrentLimit     float64  `json:"currentLimit"`
	SuggestedLimit   *float64 `json:"suggestedLimit,omitempty"`
	RequiresIncrease bool     `json:"requiresIncrease"`
}

// StorageQuote is the cost of publishing a document.
type StorageQuote struct {
	WordCount      int     `json:"wordCount"`
	Bytes          int     `json:"bytes"`
	MinerFeeSats   int64   `json:"minerFeeSats"`
	ServiceFeeSats int64   `json:"serviceFeeSats"`
	TotalSats      int64   `json:"totalSats"`
	TotalUSD       float64 `json:"totalUSD"`
	Budget         Budget  `json:"budget"`
	CostPerWord    float64 `json:"costPerWord"`
	Description    string  `json:"description"`
}

// Quote prices the storage of a document of wordCount words. A budgetUSD of
// zero or less selects DefaultBudgetUSD.
func Quote(wordCount int, encrypted bool, budgetUSD float64, rates Rates) StorageQuote {
	rates = rates.withDefaults()
	if wordCount < 0 {
		wordCount = 0
	}
	if budgetUSD <= 0 {
		budgetUSD = DefaultBudgetUSD
	}

	bytes := wordCount * rates.BytesPerWord
	minerFee := int64(math.Ceil(float64(bytes) * rates.SatsPerByte))

	total := float64(minerFee) * rates.ServiceMarkup
	if encrypted {
		total *= rates.EncryptionMultiplier
	}
	totalSats := int64(math.Ceil(total))
	totalUSD := rates.SatsToUSD(totalSats)

	budget := Budget{
		CurrentLimit:     budgetUSD,
		RequiresIncrease: totalUSD > budgetUSD,
	}
	if wordCount >= BudgetIncreaseThreshold || budget.RequiresIncrease {
		next := nextTier(totalUSD)
		budget.SuggestedLimit = &next
	}

	var perWord float64
	if wordCount > 0 {
		perWord = totalUSD / float64(wordCount)
	}
	desc := fmt.Sprintf("$%.4f per 1k words", perWord*1000)
	if encrypted {
		desc += " (encrypted)"
	}

	return StorageQuote{
		WordCount:      wordCount,
		Bytes:          bytes,
		MinerFeeSats:   minerFee,
		ServiceFeeSats: totalSats - minerFee,
		TotalSats:      totalSats,
		TotalUSD:       totalUSD,
		Budget:         budget,
		CostPerWord:    perWord,
		Description:    desc,
	}
}

// nextTier returns the smallest budget tier above usd, or double usd when
// it exceeds every tier.
func nextTier(usd float64) float64 {
	for _, tier := range BudgetTiers {
		if tier > usd {
			return tier
		}
	}
	return usd * 2
}
