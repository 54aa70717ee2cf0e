package domain

import "math/bits"

const bpsDenominator = 10_000

// Split divides a sale price into the organizer royalty and the seller proceeds.
// The royalty is floored, so royalty+proceeds always equals price exactly.
func Split(price uint64, royaltyBps uint16) (royalty, proceeds uint64, err error) {
	if royaltyBps > MaxRoyaltyBps {
		return 0, 0, ErrInvalidRoyalty
	}
	// price*bps needs up to 78 bits; hi < 10000 so Div64 cannot overflow.
	hi, lo := bits.Mul64(price, uint64(royaltyBps))
	royalty, _ = bits.Div64(hi, lo, bpsDenominator)
	return royalty, price - royalty, nil
}

// MaxPriceWithMarkup returns the highest resale price allowed for a face price
// under a markup cap expressed in basis points. It saturates at MaxPrice.
func MaxPriceWithMarkup(face uint64, markupBps uint32) uint64 {
	hi, lo := bits.Mul64(face, bpsDenominator+uint64(markupBps))
	if hi >= bpsDenominator {
		return MaxPrice
	}
	limit, _ := bits.Div64(hi, lo, bpsDenominator)
	if limit > MaxPrice {
		return MaxPrice
	}
	return limit
}

// MaxPrice is the largest amount the ledger stores; amounts are persisted as
// signed 64-bit integers.
const MaxPrice = uint64(1<<63 - 1)
